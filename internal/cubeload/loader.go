package cubeload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/member"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error codes shared with the CLI's JSON output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeNoMembers     = "E101" // Cube has no measures or dimensions
	ErrCodeUnknownKind   = "E102" // Member kind not registered
	ErrCodeInvalidSchema = "E103" // Cube rejected by schema validation
	ErrCodeBadSegments   = "E104" // Segments not a list of strings
	ErrCodeNoCubes       = "E105" // No cubes field found
)

// MapFieldToErrorCode maps a CompileError field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "members":
		return ErrCodeNoMembers
	case "kind":
		return ErrCodeUnknownKind
	case "schema":
		return ErrCodeInvalidSchema
	case "segments":
		return ErrCodeBadSegments
	default:
		return ErrCodeGeneric
	}
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Options tunes loading.
type Options struct {
	// Kinds adds or overrides member kinds by name.
	Kinds map[string]member.Member
}

// Catalog is the set of cubes loaded from one directory.
type Catalog struct {
	cubes     map[string]*cube.Cube
	FileCount int
}

// NewCatalog builds a catalog from already constructed cubes.
func NewCatalog(cubes ...*cube.Cube) *Catalog {
	cat := &Catalog{cubes: make(map[string]*cube.Cube, len(cubes))}
	for _, c := range cubes {
		cat.cubes[c.Name()] = c
	}
	return cat
}

// Cube returns the named cube.
func (c *Catalog) Cube(name string) (*cube.Cube, bool) {
	cb, ok := c.cubes[name]
	return cb, ok
}

// Names returns the cube names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.cubes))
	for name := range c.cubes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of cubes.
func (c *Catalog) Len() int { return len(c.cubes) }

// LoadDir loads every CUE file in dir as one instance and compiles each
// field under cubes:. A nil catalog means the directory itself could not be
// read; otherwise the catalog holds every cube that compiled.
func LoadDir(dir string, opts Options, mode LoadMode) (*Catalog, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("cubes directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing cubes directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	cat, errs := LoadValue(value, opts, mode)
	cat.FileCount = len(cueFiles)
	return cat, errs
}

// LoadValue compiles the cubes: field of an already built CUE value.
func LoadValue(value cue.Value, opts Options, mode LoadMode) (*Catalog, []error) {
	cat := NewCatalog()
	var errs []error

	cubesVal := value.LookupPath(cue.ParsePath("cubes"))
	if !cubesVal.Exists() {
		return cat, []error{&LoadError{Code: ErrCodeNoCubes, Message: "no cubes field found"}}
	}

	iter, err := cubesVal.Fields()
	if err != nil {
		return cat, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating cubes: %v", err)}}
	}
	for iter.Next() {
		c, compileErr := CompileCube(iter.Value(), opts.Kinds)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "cubes."+iter.Label()))
			if mode == LoadModeFailFast {
				return cat, errs
			}
			continue
		}
		cat.cubes[c.Name()] = c
	}

	if cat.Len() == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoCubes, Message: "no cubes defined"})
	}
	return cat, errs
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compile error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
