package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"captioner/internal/deps"
	"captioner/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, disk space, binaries, and credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			binaries := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(binaries))
			for _, status := range binaries {
				rows = append(rows, []string{status.Name, binaryState(status, colorize), binaryDetail(status)})
			}
			fmt.Fprintln(out, sectionHeader("Dependencies", colorize))
			fmt.Fprintln(out, renderTable(columns("Name", "State", "Detail"), rows))

			checks := preflight.RunAll(cmd.Context(), cfg)
			rows = rows[:0]
			for _, check := range checks {
				rows = append(rows, []string{check.Name, checkState(check.Passed, colorize), check.Detail})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, sectionHeader("Checks", colorize))
			fmt.Fprintln(out, renderTable(columns("Check", "State", "Detail"), rows))
			return nil
		},
	}
}

func sectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func checkState(passed, colorize bool) string {
	label, color := "FAIL", ansiRed
	if passed {
		label, color = "OK", ansiGreen
	}
	if colorize {
		return color + label + ansiReset
	}
	return label
}

func binaryState(status deps.Status, colorize bool) string {
	if !status.Available && status.Optional {
		return "optional"
	}
	return checkState(status.Available, colorize)
}

func binaryDetail(status deps.Status) string {
	if status.Available {
		return fmt.Sprintf("%s (%s)", status.Path, status.Description)
	}
	if status.Detail != "" {
		return fmt.Sprintf("%s; %s", status.Detail, status.Description)
	}
	return status.Description
}
