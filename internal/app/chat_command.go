package app

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryfeng/sherpa-front-sub002/internal/chat"
	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/httpx"
	"github.com/bryfeng/sherpa-front-sub002/internal/id"
	"github.com/bryfeng/sherpa-front-sub002/internal/model"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
	"github.com/bryfeng/sherpa-front-sub002/internal/wallet/signer"
)

func (s *runtimeState) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Send a chat turn and merge returned panels into the dashboard",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return clierr.New(clierr.CodeUsage, "prompt is empty")
			}

			controller, err := s.newChatController()
			if err != nil {
				return err
			}
			snap, err := s.loadSnapshot()
			if err != nil {
				return err
			}
			controller.Restore(snap)

			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()
			turn, err := controller.Send(ctx, prompt)
			if err != nil {
				return err
			}
			s.saveSnapshot(controller.Snapshot())

			data := model.ChatTurn{
				Reply:          turn.Reply,
				ConversationID: turn.ConversationID,
				Highlighted:    turn.Highlighted,
				Widgets:        panel.DisplaySort(turn.Widgets),
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
}

func (s *runtimeState) newChatController() (*chat.Controller, error) {
	opts := chat.Options{Model: s.settings.Model}

	if s.settings.Chain != "" {
		chain, err := id.ParseChain(s.settings.Chain)
		if err != nil {
			return nil, err
		}
		opts.Chain = chain.Slug
	}

	// Wallet context is best-effort; chat works without a configured key.
	if sg, err := signer.NewLocalSignerFromEnv(signer.KeySourceAuto); err == nil {
		opts.Address = sg.Address().Hex()
	}

	client := chat.NewClient(httpx.New(s.settings.Timeout, s.settings.Retries), s.settings.BackendURL)
	return chat.NewController(client, opts), nil
}
