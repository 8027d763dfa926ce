package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cubeq/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [fingerprint]",
		Short: "List or show journaled queries",
		Long: `List queries recorded with compile --history, newest first.

With a fingerprint argument, show that one query in full.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(args) == 1 {
				return runHistoryShow(ctx, opts, args[0], cmd)
			}
			return runHistoryList(ctx, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "journal database path (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of queries to list (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func historyFormatter(opts *HistoryOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func runHistoryList(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := historyFormatter(opts, cmd)
	if opts.Limit < 0 {
		return fail(formatter, ExitCommandError, ErrCodeInvalidLimit, fmt.Sprintf("--limit must be >= 0, got %d", opts.Limit))
	}

	j, err := history.Open(opts.DB)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error())
	}
	defer j.Close()

	entries, err := j.List(ctx, opts.Limit)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error())
	}

	if formatter.Format == "json" {
		if entries == nil {
			entries = []history.Entry{}
		}
		return formatter.Success(entries)
	}

	fmt.Fprintf(formatter.Writer, "%d quer(ies)\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "  %s  %-12s  hits=%d  last=%s\n",
			shortFingerprint(e.Fingerprint), e.Cube, e.Hits, e.LastSeen.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func runHistoryShow(ctx context.Context, opts *HistoryOptions, fingerprint string, cmd *cobra.Command) error {
	formatter := historyFormatter(opts, cmd)

	j, err := history.Open(opts.DB)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error())
	}
	defer j.Close()

	entry, err := j.Get(ctx, fingerprint)
	if errors.Is(err, history.ErrNotFound) {
		return fail(formatter, ExitFailure, ErrCodeJournal, fmt.Sprintf("no query with fingerprint %s", fingerprint))
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(entry)
	}
	return outputCompileSuccess(formatter, CompileResult{
		Cube:        entry.Cube,
		Fingerprint: entry.Fingerprint,
		QueryID:     entry.QueryID,
		Query:       entry.Query,
		Hits:        entry.Hits,
	}, "")
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
