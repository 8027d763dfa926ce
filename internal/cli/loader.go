package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/cubeload"
	"github.com/roach88/cubeq/internal/query"
	"github.com/roach88/cubeq/internal/querydoc"
)

// loadCatalog loads every cube under dir, stopping at the first error.
func loadCatalog(f *OutputFormatter, log *slog.Logger, dir string) (*cubeload.Catalog, error) {
	cat, errs := cubeload.LoadDir(dir, cubeload.Options{}, cubeload.LoadModeFailFast)
	if len(errs) > 0 {
		cliErrs := loadErrorsToCLI(errs)
		_ = f.Error(cliErrs[0].Code, cliErrs[0].Message, nil)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", cliErrs[0].Code, cliErrs[0].Message))
	}
	log.Debug("loaded cubes", "dir", dir, "files", cat.FileCount, "cubes", cat.Len())
	return cat, nil
}

// loadQuery resolves the document at docPath against the catalog under
// cubesDir and replays it through a query builder.
func loadQuery(f *OutputFormatter, log *slog.Logger, cubesDir, docPath string) (*cube.Cube, query.Builder, error) {
	cat, err := loadCatalog(f, log, cubesDir)
	if err != nil {
		return nil, query.Builder{}, err
	}

	doc, err := querydoc.Load(docPath)
	if err != nil {
		return nil, query.Builder{}, fail(f, ExitCommandError, ErrCodeQueryDoc, err.Error())
	}

	c, ok := cat.Cube(doc.Cube)
	if !ok {
		return nil, query.Builder{}, fail(f, ExitFailure, ErrCodeUnknownCube,
			fmt.Sprintf("unknown cube %q (have %v)", doc.Cube, cat.Names()))
	}
	log.Debug("resolved query document", "path", docPath, "cube", c.Name())

	b, err := doc.Build(c)
	if err != nil {
		return nil, query.Builder{}, fail(f, ExitFailure, ErrCodeQueryDoc, err.Error())
	}
	return c, b, nil
}

// configErrorsToCLI flattens a joined builder error into one entry per
// configuration error. Details carries the configuration error code.
func configErrorsToCLI(err error) []CLIError {
	var out []CLIError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case *cube.ConfigError:
			out = append(out, CLIError{Code: ErrCodeQueryConfig, Message: e.Error(), Details: string(e.Code)})
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := e.Unwrap(); inner != nil {
				walk(inner)
				return
			}
			out = append(out, CLIError{Code: ErrCodeQueryConfig, Message: err.Error()})
		default:
			out = append(out, CLIError{Code: ErrCodeQueryConfig, Message: err.Error()})
		}
	}
	walk(err)
	return out
}
