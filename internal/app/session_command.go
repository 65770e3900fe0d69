package app

import (
	"time"

	"github.com/spf13/cobra"
)

type sessionView struct {
	ConversationID string `json:"conversation_id"`
	Messages       int    `json:"messages"`
	Widgets        int    `json:"widgets"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

func (s *runtimeState) newSessionCommand() *cobra.Command {
	root := &cobra.Command{Use: "session", Short: "Stored conversation and board"}

	show := &cobra.Command{
		Use:   "show",
		Short: "Summarize the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := s.requireSnapshot()
			if err != nil {
				return err
			}
			view := sessionView{
				ConversationID: snap.ConversationID,
				Messages:       len(snap.Messages),
				Widgets:        len(snap.Widgets),
			}
			if !snap.UpdatedAt.IsZero() {
				view.UpdatedAt = snap.UpdatedAt.UTC().Format(time.RFC3339)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), view, nil)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Drop the stored conversation and board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.requireSnapshot(); err != nil {
				return err
			}
			if err := s.store.Reset(); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{"reset": true}, nil)
		},
	}

	root.AddCommand(show)
	root.AddCommand(reset)
	return root
}
