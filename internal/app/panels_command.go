package app

import (
	"github.com/spf13/cobra"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
	"github.com/bryfeng/sherpa-front-sub002/internal/session"
)

func (s *runtimeState) newPanelsCommand() *cobra.Command {
	root := &cobra.Command{Use: "panels", Short: "Dashboard panel operations"}
	root.AddCommand(s.newPanelsListCommand())
	root.AddCommand(s.newPanelsMoveCommand())
	root.AddCommand(s.newPanelsRemoveCommand())
	return root
}

type boardView struct {
	Widgets     []panel.Widget `json:"widgets"`
	Highlighted []string       `json:"highlighted,omitempty"`
}

func (s *runtimeState) newPanelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored panels in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := s.requireSnapshot()
			if err != nil {
				return err
			}
			data := boardView{
				Widgets:     panel.DisplaySort(snap.Widgets),
				Highlighted: snap.Highlighted,
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
}

func (s *runtimeState) newPanelsMoveCommand() *cobra.Command {
	var panelID, direction string
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a panel one slot up or down",
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir panel.Direction
			switch direction {
			case "up":
				dir = panel.DirectionUp
			case "down":
				dir = panel.DirectionDown
			default:
				return clierr.New(clierr.CodeUsage, "--direction must be up or down")
			}

			snap, err := s.requireSnapshot()
			if err != nil {
				return err
			}
			snap.Widgets = panel.Move(snap.Widgets, panelID, dir)
			s.saveSnapshot(snap)
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), boardView{Widgets: panel.DisplaySort(snap.Widgets)}, nil)
		},
	}
	cmd.Flags().StringVar(&panelID, "panel", "", "Panel id to move")
	cmd.Flags().StringVar(&direction, "direction", "", "up or down")
	_ = cmd.MarkFlagRequired("panel")
	_ = cmd.MarkFlagRequired("direction")
	return cmd
}

func (s *runtimeState) newPanelsRemoveCommand() *cobra.Command {
	var panelID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a panel from the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := s.requireSnapshot()
			if err != nil {
				return err
			}
			snap.Widgets = panel.Remove(snap.Widgets, panelID)
			s.saveSnapshot(snap)
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), boardView{Widgets: panel.DisplaySort(snap.Widgets)}, nil)
		},
	}
	cmd.Flags().StringVar(&panelID, "panel", "", "Panel id to remove")
	_ = cmd.MarkFlagRequired("panel")
	return cmd
}

// requireSnapshot loads the stored board for commands that cannot run
// without it.
func (s *runtimeState) requireSnapshot() (session.Snapshot, error) {
	if !s.settings.SessionEnabled {
		return session.Snapshot{}, clierr.New(clierr.CodeUsage, "panel commands need session persistence (remove --no-session)")
	}
	return s.loadSnapshot()
}
