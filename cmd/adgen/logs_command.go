package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"adgen/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		filter logs.Filter
		raw    bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, "adgen.log")
			out := cmd.OutOrStdout()

			emit := func(batch []string) {
				for _, line := range batch {
					entry := logs.ParseEntry(line)
					if !filter.Match(entry) {
						continue
					}
					if raw {
						fmt.Fprintln(out, entry.Raw)
					} else {
						fmt.Fprintln(out, entry.Format())
					}
				}
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			limit := lines
			if filter.JobID != "" || filter.Stage != "" || filter.MinLevel != "" {
				// Filtering happens after the tail, so read deeper.
				limit = lines * 20
			}
			result, err := logs.Tail(runCtx, path, logs.TailOptions{Offset: -1, Limit: limit})
			if err != nil {
				return err
			}
			emit(result.Lines)
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				result, err = logs.Tail(runCtx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				emit(result.Lines)
				offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&filter.JobID, "job", "", "Only show entries for this job ID")
	cmd.Flags().StringVar(&filter.Stage, "stage", "", "Only show entries for this stage")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&raw, "json", false, "Print raw JSON lines")
	return cmd
}
