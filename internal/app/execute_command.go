package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	clierr "github.com/bryfeng/sherpa-front-sub002/internal/errors"
	"github.com/bryfeng/sherpa-front-sub002/internal/intent"
	"github.com/bryfeng/sherpa-front-sub002/internal/model"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
	"github.com/bryfeng/sherpa-front-sub002/internal/pipeline"
	"github.com/bryfeng/sherpa-front-sub002/internal/session"
	"github.com/bryfeng/sherpa-front-sub002/internal/wallet"
	"github.com/bryfeng/sherpa-front-sub002/internal/wallet/signer"
)

type executeResult struct {
	model.ExecutionResult
	Intent *intent.Intent `json:"intent,omitempty"`
}

func (s *runtimeState) newExecuteCommand() *cobra.Command {
	var panelID, keySource string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute the transaction carried by a quote panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := s.requireSnapshot()
			if err != nil {
				return err
			}
			widget, ok := findWidget(snap.Widgets, panelID)
			if !ok {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("no panel with id %q", panelID))
			}

			it := intent.Extract(widget.Payload, widget.ID)
			if it == nil {
				return clierr.New(clierr.CodeUsage, fmt.Sprintf("panel %q carries no actionable transaction", panelID))
			}
			if dryRun {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), executeResult{Intent: it}, nil)
			}

			sg, err := signer.NewLocalSignerFromEnv(keySource)
			if err != nil {
				return clierr.Wrap(clierr.CodeWallet, "load signing key", err)
			}
			node := wallet.NewNode(sg, s.settings.RPCOverrides)
			defer node.Close()

			p := pipeline.New(node, s.refreshFunc(&snap))
			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()
			hash, err := p.Execute(ctx, widget)
			s.saveSnapshot(snap)
			if err != nil {
				return err
			}

			data := executeResult{
				ExecutionResult: model.ExecutionResult{
					TxHash:  hash.Hex(),
					ChainID: node.ChainID(),
					Panel:   widget.ID,
				},
				Intent: it,
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
	cmd.Flags().StringVar(&panelID, "panel", "", "Quote panel id to execute")
	cmd.Flags().StringVar(&keySource, "key-source", signer.KeySourceAuto, "Signing key source (auto, env, file, keystore)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract and print the intent without touching the wallet")
	_ = cmd.MarkFlagRequired("panel")
	return cmd
}

// refreshFunc wires the pipeline's failure callback to a backend quote
// refresh. Panels returned by the refresh land back in the snapshot that the
// command persists after the attempt.
func (s *runtimeState) refreshFunc(snap *session.Snapshot) pipeline.RefreshFunc {
	controller, err := s.newChatController()
	if err != nil {
		return nil
	}
	controller.Restore(*snap)
	return func() {
		controller.RequestQuoteRefresh()
		*snap = controller.Snapshot()
	}
}

func findWidget(widgets []panel.Widget, id string) (panel.Widget, bool) {
	for _, w := range widgets {
		if w.ID == id {
			return w, true
		}
	}
	return panel.Widget{}, false
}
