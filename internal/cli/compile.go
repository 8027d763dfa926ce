package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cubeq/internal/history"
	"github.com/roach88/cubeq/internal/wire"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output  string // output file path
	History string // journal database path
}

// CompileResult is the JSON payload of a successful compile.
type CompileResult struct {
	Cube        string     `json:"cube"`
	Fingerprint string     `json:"fingerprint"`
	QueryID     string     `json:"query_id"`
	Columns     []string   `json:"columns"`
	Query       wire.Query `json:"query"`
	Hits        int        `json:"hits,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <cubes-dir> <query.yaml>",
		Short: "Compile a query document to a wire query",
		Long: `Compile a YAML query document against the CUE cubes in a directory.

The query is checked against its cube, then printed as the JSON query the
cube service accepts, together with its fingerprint and query ID.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical query JSON to this file")
	cmd.Flags().StringVar(&opts.History, "history", "", "record the query in this journal database")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, cubesDir, docPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	log := newLogger(opts.RootOptions, formatter.GetErrWriter())

	c, b, err := loadQuery(formatter, log, cubesDir, docPath)
	if err != nil {
		return err
	}

	q, dec, err := b.Finalize()
	if err != nil {
		errs := configErrorsToCLI(err)
		_ = formatter.Errors("Query rejected by cube "+c.Name(), errs)
		return WrapExitError(ExitFailure, fmt.Sprintf("query rejected with %d error(s)", len(errs)), err)
	}

	fp, err := wire.Fingerprint(q)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueryConfig, fmt.Sprintf("fingerprinting query: %v", err))
	}
	id, err := wire.QueryID(q)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeQueryConfig, fmt.Sprintf("deriving query id: %v", err))
	}

	result := CompileResult{
		Cube:        c.Name(),
		Fingerprint: fp,
		QueryID:     id.String(),
		Columns:     dec.Keys(),
		Query:       q,
	}

	if opts.Output != "" {
		if err := writeQueryToFile(q, opts.Output); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		log.Debug("wrote query", "path", opts.Output)
	}

	if opts.History != "" {
		entry, err := recordQuery(ctx, opts.History, c.Name(), q)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeJournal, err.Error())
		}
		result.Hits = entry.Hits
		log.Info("recorded query", "fingerprint", entry.Fingerprint, "hits", entry.Hits)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func recordQuery(ctx context.Context, dbPath, cubeName string, q wire.Query) (history.Entry, error) {
	j, err := history.Open(dbPath)
	if err != nil {
		return history.Entry{}, err
	}
	defer j.Close()
	return j.Record(ctx, cubeName, q, time.Now().UTC())
}

// outputCompileSuccess outputs the compiled query.
func outputCompileSuccess(formatter *OutputFormatter, result CompileResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	data, err := json.MarshalIndent(result.Query, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling query: %w", err)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled query for cube %s\n\n", result.Cube)
	fmt.Fprintf(w, "fingerprint: %s\n", result.Fingerprint)
	fmt.Fprintf(w, "query id:    %s\n", result.QueryID)
	if len(result.Columns) > 0 {
		fmt.Fprintf(w, "columns:     %s\n", strings.Join(result.Columns, ", "))
	}
	if result.Hits > 0 {
		fmt.Fprintf(w, "hits:        %d\n", result.Hits)
	}
	fmt.Fprintf(w, "\n%s\n", data)

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote canonical query to %s\n", outputFile)
	}
	return nil
}

// writeQueryToFile writes the canonical form, the same bytes the
// fingerprint is computed over.
func writeQueryToFile(q wire.Query, filename string) error {
	data, err := wire.Canonical(q)
	if err != nil {
		return fmt.Errorf("canonicalizing query: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
