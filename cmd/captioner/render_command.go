package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"captioner/internal/models"
	"captioner/internal/pipeline"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var subtitlesOnly bool

	cmd := &cobra.Command{
		Use:   "render <video>",
		Short: "Write subtitles and the captioned video from the caption store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(runCtx context.Context, p *pipeline.Pipeline, _ *models.Manager) error {
				result, err := p.Render(runCtx, pipeline.RenderRequest{VideoPath: args[0], SubtitlesOnly: subtitlesOnly})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Subtitles: %s (%d cues, %d too short)\n",
					result.Subtitles.Path, result.Subtitles.Cues, result.Subtitles.Dropped)
				if result.Video != nil {
					fmt.Fprintf(out, "Video: %s (%d captions at %dx%d)\n",
						result.Video.OutputPath, result.Video.Clips, result.Video.Width, result.Video.Height)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&subtitlesOnly, "subtitles-only", false, "Only write the SubRip file")
	return cmd
}
