package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/spf13/cobra"

	"github.com/roach88/cubeq/internal/decode"
	"github.com/roach88/cubeq/internal/member"
	"github.com/roach88/cubeq/internal/wire"
)

// DecodeResult is the JSON payload of a successful decode.
type DecodeResult struct {
	Columns []string         `json:"columns"`
	Records []map[string]any `json:"records"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <cubes-dir> <query.yaml> <rows.json>",
		Short: "Decode cube service rows for a query",
		Long: `Decode the rows returned for a query into typed records.

Rows are a JSON array of objects, or a response object with a "data"
array. Pass "-" to read rows from stdin. Columns outside the query's
selection are ignored; missing or malformed values decode to defaults.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
	return cmd
}

func runDecode(opts *RootOptions, cubesDir, docPath, rowsPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	log := newLogger(opts, formatter.GetErrWriter())

	c, b, err := loadQuery(formatter, log, cubesDir, docPath)
	if err != nil {
		return err
	}

	_, dec, err := b.Finalize()
	if err != nil {
		errs := configErrorsToCLI(err)
		_ = formatter.Errors("Query rejected by cube "+c.Name(), errs)
		return WrapExitError(ExitFailure, fmt.Sprintf("query rejected with %d error(s)", len(errs)), err)
	}

	rows, err := readRows(rowsPath, cmd.InOrStdin())
	if err != nil {
		return fail(formatter, ExitFailure, ErrCodeRowsFile, err.Error())
	}
	log.Debug("decoding rows", "count", len(rows), "columns", len(dec.Keys()))

	records := dec.DecodeAll(rows)
	return outputDecodeSuccess(formatter, dec, records)
}

// readRows reads a row array or a {"data": [...]} response. Numbers stay
// json.Number so decimals keep their precision.
func readRows(path string, stdin io.Reader) ([]wire.Row, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	d := json.NewDecoder(bytes.NewReader(data))
	d.UseNumber()
	var raw any
	if err := d.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing rows: %w", err)
	}

	if obj, ok := raw.(map[string]any); ok {
		inner, ok := obj["data"]
		if !ok {
			return nil, fmt.Errorf("response object has no data field")
		}
		raw = inner
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of rows, got %T", raw)
	}

	rows := make([]wire.Row, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d: expected an object, got %T", i, item)
		}
		rows[i] = wire.Row(obj)
	}
	return rows, nil
}

// displayValue renders decoded values the way they are written in queries.
func displayValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(member.TimeLayout)
	case *apd.Decimal:
		if x == nil {
			return nil
		}
		return x.String()
	}
	return v
}

func outputDecodeSuccess(formatter *OutputFormatter, dec decode.Decoder, records []decode.Record) error {
	keys := dec.Keys()

	if formatter.Format == "json" {
		out := make([]map[string]any, len(records))
		for i, r := range records {
			m := make(map[string]any, len(r))
			for k, v := range r {
				m[k] = displayValue(v)
			}
			out[i] = m
		}
		return formatter.Success(DecodeResult{Columns: keys, Records: out})
	}

	fmt.Fprintf(formatter.Writer, "✓ Decoded %d row(s)\n\n", len(records))
	for _, r := range records {
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, displayValue(r[k]))
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", strings.Join(parts, " "))
	}
	return nil
}
