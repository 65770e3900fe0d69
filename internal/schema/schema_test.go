package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestBuildSchema(t *testing.T) {
	root := &cobra.Command{Use: "sherpa"}
	child := &cobra.Command{Use: "panels", Short: "dashboard panels"}
	leaf := &cobra.Command{Use: "move", Short: "reorder a widget"}
	leaf.Flags().String("direction", "up", "move direction")
	child.AddCommand(leaf)
	root.AddCommand(child)

	s, err := Build(root, "panels move")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Path != "sherpa panels move" {
		t.Fatalf("unexpected path: %s", s.Path)
	}
	if len(s.Flags) != 1 || s.Flags[0].Name != "direction" {
		t.Fatalf("unexpected flags: %+v", s.Flags)
	}
}

func TestBuildSchemaUnknownPath(t *testing.T) {
	root := &cobra.Command{Use: "sherpa"}
	if _, err := Build(root, "nonsense"); err == nil {
		t.Fatal("expected error for unknown command path")
	}
}

func TestBuildSchemaWholeTreeSkipsHidden(t *testing.T) {
	root := &cobra.Command{Use: "sherpa"}
	root.AddCommand(&cobra.Command{Use: "chat", Short: "talk"})
	root.AddCommand(&cobra.Command{Use: "debug", Hidden: true})

	s, err := Build(root, "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(s.Subcommands) != 1 || s.Subcommands[0].Use != "chat" {
		t.Fatalf("unexpected subcommands: %+v", s.Subcommands)
	}
}
