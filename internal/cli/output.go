package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/cubeq/internal/cubeload"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query rejected by its cube, undecodable rows
	ExitCommandError = 2 // Command error (invalid paths, unreadable files, database errors)
)

// Error codes beyond the loader's E0xx/E1xx range.
const (
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeQueryDoc     = "E201" // Query document unreadable or malformed
	ErrCodeUnknownCube  = "E202" // Query targets a cube not in the catalog
	ErrCodeQueryConfig  = "E203" // Query rejected by its cube
	ErrCodeRowsFile     = "E204" // Rows file unreadable or malformed
	ErrCodeJournal      = "E301" // History database error
	ErrCodeInvalidLimit = "E302" // Negative --limit
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostic output; keeps JSON on Writer clean
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload, or every error on failure
	Error  *CLIError `json:"error,omitempty"` // first error
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E201", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result. In text mode data is printed as is.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs a single error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Errors outputs several errors under a heading. JSON output carries the
// first error in "error" and all of them in "data".
func (f *OutputFormatter) Errors(heading string, errs []CLIError) error {
	if len(errs) == 0 {
		return nil
	}
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "error",
			Error:  &errs[0],
			Data:   errs,
		})
	}

	fmt.Fprintf(f.Writer, "✗ %s\n\n", heading)
	for _, e := range errs {
		fmt.Fprintf(f.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	fmt.Fprintln(f.Writer)
	return nil
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// fail prints one error and returns the matching ExitError.
func fail(f *OutputFormatter, exitCode int, code, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// loadErrorsToCLI converts loader errors, keeping CUE positions in the
// message.
func loadErrorsToCLI(errs []error) []CLIError {
	out := make([]CLIError, len(errs))
	for i, err := range errs {
		var loadErr *cubeload.LoadError
		if errors.As(err, &loadErr) {
			msg := loadErr.Message
			if loadErr.Pos.IsValid() {
				msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
			}
			out[i] = CLIError{Code: loadErr.Code, Message: msg}
			continue
		}
		out[i] = CLIError{Code: cubeload.ErrCodeGeneric, Message: err.Error()}
	}
	return out
}
