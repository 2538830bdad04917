package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"captioner/internal/models"
	"captioner/internal/pipeline"
)

func newModelCommand(ctx *commandContext) *cobra.Command {
	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Manage transcription model artifacts",
	}
	modelCmd.AddCommand(newModelAcquireCommand(ctx))
	modelCmd.AddCommand(newModelListCommand(ctx))
	return modelCmd
}

func newModelAcquireCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "acquire <name>",
		Short: "Download and verify a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(runCtx context.Context, p *pipeline.Pipeline, _ *models.Manager) error {
				artifact, err := p.Acquire(runCtx, args[0], force)
				if err != nil {
					return err
				}
				action := "already verified"
				if artifact.Downloaded {
					action = "downloaded"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s %s: %s (%s, %s)\n",
					artifact.Name, action, artifact.LocalPath, artifact.Kind, humanize.IBytes(uint64(artifact.Size)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Download even if a verified copy exists")
	return cmd
}

func newModelListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show registered models and their local state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(runCtx context.Context, _ *pipeline.Pipeline, manager *models.Manager) error {
				statuses, err := manager.List(runCtx)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					size := "-"
					if status.Present {
						size = humanize.IBytes(uint64(status.Size))
					}
					rows = append(rows, []string{
						status.Definition.Name,
						status.Definition.Provider,
						string(status.Definition.Kind),
						modelState(status),
						size,
						status.LocalPath,
					})
				}
				cols := columns("Name", "Provider", "Kind", "State", "Size", "Path")
				cols[4].alignRight = true
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(cols, rows))
				return nil
			})
		},
	}
}

func modelState(status models.Status) string {
	switch {
	case status.Verified:
		return "verified " + humanize.Time(status.VerifiedAt)
	case status.Present:
		return "unverified"
	default:
		return "missing"
	}
}
