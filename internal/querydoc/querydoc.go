// Package querydoc reads query documents: YAML descriptions of a query that
// are replayed through the query builder, so a document is checked exactly
// like hand-written builder calls.
package querydoc

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/filter"
	"github.com/roach88/cubeq/internal/member"
	"github.com/roach88/cubeq/internal/query"
	"github.com/roach88/cubeq/internal/wire"
)

// Document is one query against one cube.
type Document struct {
	// Cube names the target cube.
	Cube string `yaml:"cube"`

	Measures   []string `yaml:"measures,omitempty"`
	Dimensions []string `yaml:"dimensions,omitempty"`
	Segments   []string `yaml:"segments,omitempty"`

	// Filters are the top-level filter nodes, implicitly and-ed.
	Filters []FilterDoc `yaml:"filters,omitempty"`

	TimeDimensions []TimeDimensionDoc `yaml:"timeDimensions,omitempty"`

	Order    []OrderDoc `yaml:"order,omitempty"`
	Limit    int        `yaml:"limit,omitempty"`
	Offset   int        `yaml:"offset,omitempty"`
	Timezone string     `yaml:"timezone,omitempty"`
}

// FilterDoc is a leaf (Member + Operator [+ Values]) or exactly one group.
type FilterDoc struct {
	Member   string `yaml:"member,omitempty"`
	Operator string `yaml:"operator,omitempty"`
	Values   []any  `yaml:"values,omitempty"`

	AndMeasures   []FilterDoc `yaml:"andMeasures,omitempty"`
	AndDimensions []FilterDoc `yaml:"andDimensions,omitempty"`
	OrMeasures    []FilterDoc `yaml:"orMeasures,omitempty"`
	OrDimensions  []FilterDoc `yaml:"orDimensions,omitempty"`
}

// TimeDimensionDoc selects a time dimension. DateRange is a token string or
// a [from, to] pair. Setting CompareDateRange makes it a comparison.
type TimeDimensionDoc struct {
	Dimension        string `yaml:"dimension"`
	Granularity      string `yaml:"granularity,omitempty"`
	DateRange        any    `yaml:"dateRange,omitempty"`
	CompareDateRange []any  `yaml:"compareDateRange,omitempty"`
}

// OrderDoc is one sort key. Direction defaults to asc.
type OrderDoc struct {
	Member    string `yaml:"member"`
	Direction string `yaml:"direction,omitempty"`
}

// Load reads and parses a query document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a document. Unknown fields are rejected to catch typos.
func Parse(data []byte) (*Document, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("invalid query document: %w", err)
	}
	return &doc, nil
}

// validateDocument checks the shape of the document. Member names and
// operators are left to the builder, which knows the cube.
func validateDocument(doc *Document) error {
	if doc.Cube == "" {
		return fmt.Errorf("cube is required")
	}
	for i := range doc.Filters {
		if err := validateFilter(fmt.Sprintf("filters[%d]", i), &doc.Filters[i]); err != nil {
			return err
		}
	}
	for i, td := range doc.TimeDimensions {
		if td.Dimension == "" {
			return fmt.Errorf("timeDimensions[%d]: dimension is required", i)
		}
		if td.DateRange != nil && td.CompareDateRange != nil {
			return fmt.Errorf("timeDimensions[%d]: dateRange and compareDateRange are exclusive", i)
		}
	}
	for i, o := range doc.Order {
		if o.Member == "" {
			return fmt.Errorf("order[%d]: member is required", i)
		}
	}
	return nil
}

func validateFilter(path string, f *FilterDoc) error {
	shapes := 0
	if f.Member != "" || f.Operator != "" {
		shapes++
		if f.Member == "" || f.Operator == "" {
			return fmt.Errorf("%s: member and operator are both required", path)
		}
	}
	groups := []struct {
		name string
		docs []FilterDoc
	}{
		{"andMeasures", f.AndMeasures},
		{"andDimensions", f.AndDimensions},
		{"orMeasures", f.OrMeasures},
		{"orDimensions", f.OrDimensions},
	}
	for _, g := range groups {
		if g.docs != nil {
			shapes++
		}
	}
	if shapes != 1 {
		return fmt.Errorf("%s: must be a leaf or exactly one group", path)
	}
	for _, g := range groups {
		for i := range g.docs {
			if err := validateFilter(fmt.Sprintf("%s.%s[%d]", path, g.name, i), &g.docs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Build replays the document through a query builder over c. Configuration
// errors surface from the builder's Finalize; only malformed date ranges
// are reported here.
func (d *Document) Build(c *cube.Cube) (query.Builder, error) {
	if d.Cube != c.Name() {
		return query.Builder{}, fmt.Errorf("document targets cube %q, got %q", d.Cube, c.Name())
	}

	b := query.New(c)
	for _, name := range d.Measures {
		b = b.Measure(name)
	}
	for _, name := range d.Dimensions {
		b = b.Dimension(name)
	}
	for _, name := range d.Segments {
		b = b.Segment(name)
	}
	if len(d.Filters) > 0 {
		b = b.Filter(func(f filter.Builder) filter.Builder {
			return applyFilters(f, d.Filters)
		})
	}

	for i, td := range d.TimeDimensions {
		next, err := applyTimeDimension(b, td)
		if err != nil {
			return query.Builder{}, fmt.Errorf("timeDimensions[%d]: %w", i, err)
		}
		b = next
	}

	for _, o := range d.Order {
		dir := wire.Direction(o.Direction)
		if dir == "" {
			dir = wire.Asc
		}
		b = b.Order(o.Member, dir)
	}
	if d.Limit != 0 {
		b = b.Limit(d.Limit)
	}
	if d.Offset != 0 {
		b = b.Offset(d.Offset)
	}
	if d.Timezone != "" {
		b = b.Timezone(d.Timezone)
	}
	return b, nil
}

func applyFilters(b filter.Builder, docs []FilterDoc) filter.Builder {
	for _, f := range docs {
		b = applyFilter(b, f)
	}
	return b
}

func applyFilter(b filter.Builder, f FilterDoc) filter.Builder {
	nested := func(docs []FilterDoc) func(filter.Builder) filter.Builder {
		return func(inner filter.Builder) filter.Builder { return applyFilters(inner, docs) }
	}
	switch {
	case f.AndMeasures != nil:
		return b.AndMeasures(nested(f.AndMeasures))
	case f.AndDimensions != nil:
		return b.AndDimensions(nested(f.AndDimensions))
	case f.OrMeasures != nil:
		return b.OrMeasures(nested(f.OrMeasures))
	case f.OrDimensions != nil:
		return b.OrDimensions(nested(f.OrDimensions))
	}
	op := member.Operator(f.Operator)
	if op.IsUnary() {
		return b.Unary(f.Member, op)
	}
	return b.Binary(f.Member, op, f.Values...)
}

func applyTimeDimension(b query.Builder, td TimeDimensionDoc) (query.Builder, error) {
	g := cube.Granularity(td.Granularity)

	if td.CompareDateRange != nil {
		ranges := make([]query.DateRange, len(td.CompareDateRange))
		for i, raw := range td.CompareDateRange {
			r, err := parseDateRange(raw)
			if err != nil {
				return query.Builder{}, fmt.Errorf("compareDateRange[%d]: %w", i, err)
			}
			ranges[i] = r
		}
		if g == "" {
			return b.TimeDimensionComparisonUngrouped(td.Dimension, ranges...), nil
		}
		return b.TimeDimensionComparison(td.Dimension, g, ranges...), nil
	}

	var r query.DateRange
	if td.DateRange != nil {
		var err error
		if r, err = parseDateRange(td.DateRange); err != nil {
			return query.Builder{}, fmt.Errorf("dateRange: %w", err)
		}
	}
	if g == "" {
		return b.TimeDimensionUngrouped(td.Dimension, r), nil
	}
	return b.TimeDimension(td.Dimension, g, r), nil
}

func parseDateRange(raw any) (query.DateRange, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return query.DateRange{}, fmt.Errorf("empty token")
		}
		return query.Relative(v), nil
	case []any:
		if len(v) != 2 {
			return query.DateRange{}, fmt.Errorf("expected [from, to], got %d elements", len(v))
		}
		return query.Between(v[0], v[1]), nil
	}
	return query.DateRange{}, fmt.Errorf("expected a token or [from, to], got %T", raw)
}
