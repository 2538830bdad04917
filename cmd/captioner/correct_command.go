package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"captioner/internal/correction"
	"captioner/internal/models"
	"captioner/internal/pipeline"
)

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	var transcript string
	var grouping string

	cmd := &cobra.Command{
		Use:   "correct <video>",
		Short: "Merge a corrected transcript into the caption store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(transcript) == "" {
				return fmt.Errorf("--transcript is required")
			}
			req := correction.Request{VideoPath: args[0], TranscriptPath: transcript}
			if strings.TrimSpace(grouping) != "" {
				parsed, err := correction.ParseGrouping(grouping)
				if err != nil {
					return err
				}
				req.Grouping = parsed
			}
			return ctx.withPipeline(cmd, func(runCtx context.Context, p *pipeline.Pipeline, _ *models.Manager) error {
				result, err := p.Correct(runCtx, req)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Merged %d lines onto %d segments (%s): %d entries in %s\n",
					result.Lines, result.Segments, result.Policy, result.MergedEntries, result.StorePath)
				if result.BackedUp {
					fmt.Fprintf(out, "Previous captions saved to %s\n", result.BackupPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "Corrected transcript, one line per caption")
	cmd.Flags().StringVar(&grouping, "grouping", "", "Grouping when lines < segments: align or even (default correction.grouping)")
	return cmd
}
