// Package cube holds the declarative schema of one cube: its measures,
// dimensions and segments, and the path functions shared by the query
// compiler and the row decoder.
package cube

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/cubeq/internal/member"
)

// Category says which table a member name belongs to.
type Category int

const (
	CategoryMeasure Category = iota + 1
	CategoryDimension
)

func (c Category) String() string {
	switch c {
	case CategoryMeasure:
		return "measure"
	case CategoryDimension:
		return "dimension"
	}
	return "unknown"
}

// Definition is the input to New.
type Definition struct {
	Name       string
	Measures   map[string]member.Member
	Dimensions map[string]member.Member
	Segments   []string
}

// Cube is an immutable, validated schema. It is safe for concurrent use.
type Cube struct {
	name       string
	measures   map[string]member.Member
	dimensions map[string]member.Member
	segments   map[string]struct{}

	measureNames   []string
	dimensionNames []string
	segmentNames   []string
}

// New validates def and builds a Cube. The maps in def are copied.
func New(def Definition) (*Cube, error) {
	if err := validName(def.Name); err != nil {
		return nil, schemaError(def.Name, "", "cube name: %v", err)
	}

	c := &Cube{
		name:       def.Name,
		measures:   make(map[string]member.Member, len(def.Measures)),
		dimensions: make(map[string]member.Member, len(def.Dimensions)),
		segments:   make(map[string]struct{}, len(def.Segments)),
	}

	for name, m := range def.Measures {
		if err := checkMember(def.Name, name, m); err != nil {
			return nil, err
		}
		c.measures[name] = m
		c.measureNames = append(c.measureNames, name)
	}
	for name, m := range def.Dimensions {
		if err := checkMember(def.Name, name, m); err != nil {
			return nil, err
		}
		if _, dup := c.measures[name]; dup {
			return nil, schemaError(def.Name, name, "defined as both measure and dimension")
		}
		c.dimensions[name] = m
		c.dimensionNames = append(c.dimensionNames, name)
	}
	for _, name := range def.Segments {
		if err := validName(name); err != nil {
			return nil, schemaError(def.Name, name, "segment name: %v", err)
		}
		if _, dup := c.segments[name]; dup {
			return nil, schemaError(def.Name, name, "duplicate segment")
		}
		c.segments[name] = struct{}{}
		c.segmentNames = append(c.segmentNames, name)
	}

	sort.Strings(c.measureNames)
	sort.Strings(c.dimensionNames)
	sort.Strings(c.segmentNames)
	return c, nil
}

// MustNew is New for schemas written as literals. It panics on error.
func MustNew(def Definition) *Cube {
	c, err := New(def)
	if err != nil {
		panic(err)
	}
	return c
}

func checkMember(cubeName, name string, m member.Member) error {
	if err := validName(name); err != nil {
		return schemaError(cubeName, name, "member name: %v", err)
	}
	if err := m.Validate(); err != nil {
		return schemaError(cubeName, name, "%v", err)
	}
	return nil
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty")
	}
	if strings.ContainsAny(name, ". \t\n") {
		return fmt.Errorf("%q contains a dot or whitespace", name)
	}
	return nil
}

func schemaError(cubeName, memberName, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidSchema,
		Cube:    cubeName,
		Member:  memberName,
		Message: fmt.Sprintf(format, args...),
	}
}

// Name returns the cube name used as the path prefix.
func (c *Cube) Name() string { return c.name }

// Path formats "{cube}.{name}" without checking that name exists.
func (c *Cube) Path(name string) string {
	return c.name + "." + name
}

// Measure returns the fully-qualified path of a measure.
func (c *Cube) Measure(name string) (string, error) {
	if _, ok := c.measures[name]; !ok {
		return "", c.unknown(name, CategoryMeasure)
	}
	return c.Path(name), nil
}

// Dimension returns the fully-qualified path of a dimension.
func (c *Cube) Dimension(name string) (string, error) {
	if _, ok := c.dimensions[name]; !ok {
		return "", c.unknown(name, CategoryDimension)
	}
	return c.Path(name), nil
}

// Member returns the path of a measure or dimension.
func (c *Cube) Member(name string) (string, error) {
	if _, _, ok := c.Lookup(name); !ok {
		return "", c.Errorf(ErrCodeUnknownMember, name, "no measure or dimension named %q", name)
	}
	return c.Path(name), nil
}

// Segment returns the fully-qualified path of a segment.
func (c *Cube) Segment(name string) (string, error) {
	if _, ok := c.segments[name]; !ok {
		return "", c.Errorf(ErrCodeUnknownSegment, name, "no segment named %q", name)
	}
	return c.Path(name), nil
}

// TimeDimensionKey returns "{cube}.{dimension}.{granularity}", the column
// name a granular time dimension comes back under.
func (c *Cube) TimeDimensionKey(dimension string, g Granularity) (string, error) {
	path, err := c.Dimension(dimension)
	if err != nil {
		return "", err
	}
	if !g.Valid() {
		return "", c.Errorf(ErrCodeInvalidGranularity, dimension, "unknown granularity %q", g)
	}
	return path + "." + string(g), nil
}

// Lookup finds a measure or dimension by short name.
func (c *Cube) Lookup(name string) (member.Member, Category, bool) {
	if m, ok := c.measures[name]; ok {
		return m, CategoryMeasure, true
	}
	if m, ok := c.dimensions[name]; ok {
		return m, CategoryDimension, true
	}
	return member.Member{}, 0, false
}

// LookupIn finds name only within the given category.
func (c *Cube) LookupIn(cat Category, name string) (member.Member, bool) {
	var m member.Member
	var ok bool
	switch cat {
	case CategoryMeasure:
		m, ok = c.measures[name]
	case CategoryDimension:
		m, ok = c.dimensions[name]
	}
	return m, ok
}

// Measures returns the measure names, sorted.
func (c *Cube) Measures() []string { return append([]string(nil), c.measureNames...) }

// Dimensions returns the dimension names, sorted.
func (c *Cube) Dimensions() []string { return append([]string(nil), c.dimensionNames...) }

// Segments returns the segment names, sorted.
func (c *Cube) Segments() []string { return append([]string(nil), c.segmentNames...) }

func (c *Cube) unknown(name string, want Category) *ConfigError {
	if _, got, ok := c.Lookup(name); ok {
		return c.Errorf(ErrCodeUnknownMember, name, "%q is a %s, not a %s", name, got, want)
	}
	return c.Errorf(ErrCodeUnknownMember, name, "no %s named %q", want, name)
}
