package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"captioner/internal/deps"
	"captioner/internal/models"
	"captioner/internal/pipeline"
	"captioner/internal/preflight"
	"captioner/internal/services"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var req pipeline.TranscribeRequest
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "transcribe <video>",
		Short: "Transcribe a video into its caption store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !skipChecks {
				if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
					return services.Wrap(services.ErrExternalTool, pipeline.StageTranscribe, "preflight",
						fmt.Sprintf("missing required binaries: %v", missing), nil)
				}
			}
			req.VideoPath = args[0]
			return ctx.withPipeline(cmd, func(runCtx context.Context, p *pipeline.Pipeline, _ *models.Manager) error {
				result, err := p.Transcribe(runCtx, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Captions written to %s (%d segments", result.StorePath, result.Segments)
				if result.Dropped > 0 {
					fmt.Fprintf(out, ", %d unusable dropped", result.Dropped)
				}
				fmt.Fprintln(out, ")")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Model, "model", "", "Model name (default models.default)")
	cmd.Flags().StringVar(&req.Language, "language", "", "Spoken language hint (default transcription.language)")
	cmd.Flags().BoolVar(&req.ForceDownload, "force-download", false, "Re-download the model even if a verified copy exists")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip the external binary check")
	return cmd
}
