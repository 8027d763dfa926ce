// Package decode turns flat response rows into typed records.
//
// A Decoder is bound to the exact selection of a query. It reads each
// selected member from the row under its fully-qualified path and converts
// it with the member's deserializer. Decoding never fails: a missing or
// malformed value yields the member type's default, and row keys outside
// the selection are ignored.
package decode

import (
	"fmt"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/member"
	"github.com/roach88/cubeq/internal/wire"
)

// TimeDimension selects one granular time-dimension column.
type TimeDimension struct {
	Dimension   string
	Granularity cube.Granularity
}

// Key is the record key for the column: "dimension.granularity".
func (td TimeDimension) Key() string {
	return td.Dimension + "." + string(td.Granularity)
}

// Selection names the members a Decoder reads.
type Selection struct {
	Measures       []string
	Dimensions     []string
	TimeDimensions []TimeDimension
}

// Record is a decoded row keyed by short member name, or by
// "dimension.granularity" for time-dimension columns.
type Record map[string]any

type field struct {
	key    string
	path   string
	member member.Member
}

// Decoder converts rows for one selection. It is immutable and safe for
// concurrent use. The zero value decodes every row to an empty record.
type Decoder struct {
	fields []field
}

// New binds a decoder to sel. Every name must exist in c in the right
// category; duplicates are read once.
func New(c *cube.Cube, sel Selection) (Decoder, error) {
	var d Decoder
	seen := make(map[string]bool)
	add := func(key, path string, m member.Member) {
		if seen[key] {
			return
		}
		seen[key] = true
		d.fields = append(d.fields, field{key: key, path: path, member: m})
	}

	for _, name := range sel.Measures {
		path, err := c.Measure(name)
		if err != nil {
			return Decoder{}, fmt.Errorf("decode: %w", err)
		}
		m, _ := c.LookupIn(cube.CategoryMeasure, name)
		add(name, path, m)
	}
	for _, name := range sel.Dimensions {
		path, err := c.Dimension(name)
		if err != nil {
			return Decoder{}, fmt.Errorf("decode: %w", err)
		}
		m, _ := c.LookupIn(cube.CategoryDimension, name)
		add(name, path, m)
	}
	for _, td := range sel.TimeDimensions {
		path, err := c.TimeDimensionKey(td.Dimension, td.Granularity)
		if err != nil {
			return Decoder{}, fmt.Errorf("decode: %w", err)
		}
		m, _ := c.LookupIn(cube.CategoryDimension, td.Dimension)
		add(td.Key(), path, m)
	}
	return d, nil
}

// Decode converts one row. The result holds exactly the selected keys.
func (d Decoder) Decode(row wire.Row) Record {
	rec := make(Record, len(d.fields))
	for _, f := range d.fields {
		rec[f.key] = f.member.Deserialize(row[f.path])
	}
	return rec
}

// DecodeAll converts rows in order.
func (d Decoder) DecodeAll(rows []wire.Row) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = d.Decode(row)
	}
	return out
}

// Keys returns the record keys in selection order.
func (d Decoder) Keys() []string {
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.key
	}
	return keys
}

// Paths returns the row keys read, in selection order.
func (d Decoder) Paths() []string {
	paths := make([]string, len(d.fields))
	for i, f := range d.fields {
		paths[i] = f.path
	}
	return paths
}

// Get reads key from r as a T. It reports false when the key is absent or
// holds a different type.
func Get[T any](r Record, key string) (T, bool) {
	v, ok := r[key].(T)
	return v, ok
}
