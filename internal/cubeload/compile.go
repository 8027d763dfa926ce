// Package cubeload reads cube schemas written in CUE.
//
//	cubes: Orders: {
//		measures:   {count: "number", revenue: "decimal"}
//		dimensions: {status: "string", createdAt: {kind: "time"}}
//		segments:   ["completed"]
//	}
//
// Member kinds resolve against the built-in member registry, extended by
// any custom kinds the caller supplies.
package cubeload

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/member"
)

// CompileError is a schema problem tied to a CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileCube builds a cube from the CUE struct v. The cube name is the
// last path label of v. Custom kinds take precedence over built-ins.
func CompileCube(v cue.Value, kinds map[string]member.Member) (*cube.Cube, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := cube.Definition{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	var err error
	def.Measures, err = parseMembers(v, "measures", kinds)
	if err != nil {
		return nil, err
	}
	def.Dimensions, err = parseMembers(v, "dimensions", kinds)
	if err != nil {
		return nil, err
	}
	if len(def.Measures) == 0 && len(def.Dimensions) == 0 {
		return nil, &CompileError{
			Field:   "members",
			Message: "at least one measure or dimension is required",
			Pos:     v.Pos(),
		}
	}

	def.Segments, err = parseSegments(v)
	if err != nil {
		return nil, err
	}

	c, err := cube.New(def)
	if err != nil {
		return nil, &CompileError{Field: "schema", Message: err.Error(), Pos: v.Pos()}
	}
	return c, nil
}

// parseMembers reads a struct of name: kind entries. A kind is either a
// string or a struct with a kind field.
func parseMembers(v cue.Value, field string, kinds map[string]member.Member) (map[string]member.Member, error) {
	membersVal := v.LookupPath(cue.ParsePath(field))
	if !membersVal.Exists() {
		return nil, nil
	}

	iter, err := membersVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	members := make(map[string]member.Member)
	for iter.Next() {
		name := iter.Label()
		kind, err := extractKind(iter.Value())
		if err != nil {
			return nil, &CompileError{
				Field:   "kind",
				Message: fmt.Sprintf("%s.%s: %v", field, name, err),
				Pos:     iter.Value().Pos(),
			}
		}
		m, ok := resolveKind(kind, kinds)
		if !ok {
			return nil, &CompileError{
				Field:   "kind",
				Message: fmt.Sprintf("%s.%s: unknown member kind %q (known: %v)", field, name, kind, member.Kinds()),
				Pos:     iter.Value().Pos(),
			}
		}
		members[name] = m
	}
	return members, nil
}

func extractKind(v cue.Value) (string, error) {
	if s, err := v.String(); err == nil {
		return s, nil
	}
	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return "", fmt.Errorf("expected a kind string or {kind: string}")
	}
	s, err := kindVal.String()
	if err != nil {
		return "", fmt.Errorf("kind must be a concrete string")
	}
	return s, nil
}

func resolveKind(kind string, custom map[string]member.Member) (member.Member, bool) {
	if m, ok := custom[kind]; ok {
		return m, true
	}
	return member.Lookup(kind)
}

func parseSegments(v cue.Value) ([]string, error) {
	segVal := v.LookupPath(cue.ParsePath("segments"))
	if !segVal.Exists() {
		return nil, nil
	}

	list, err := segVal.List()
	if err != nil {
		return nil, &CompileError{Field: "segments", Message: "segments must be a list of strings", Pos: segVal.Pos()}
	}

	var segments []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, &CompileError{Field: "segments", Message: "segment names must be strings", Pos: list.Value().Pos()}
		}
		segments = append(segments, s)
	}
	return segments, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
