package query

import (
	"fmt"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/decode"
	"github.com/roach88/cubeq/internal/filter"
	"github.com/roach88/cubeq/internal/wire"
)

// Finalize compiles the accumulated state into the wire query and a decoder
// bound to exactly the selected measures, dimensions and granular time
// dimensions. It has no side effects and may be called repeatedly.
func (b Builder) Finalize() (wire.Query, decode.Decoder, error) {
	if err := b.Err(); err != nil {
		return wire.Query{}, decode.Decoder{}, fmt.Errorf("query %s: %w", b.cube.Name(), err)
	}

	q := wire.Query{
		Limit:    b.limit,
		Offset:   b.offset,
		Timezone: b.timezone,
	}

	var err error
	if q.Measures, err = paths(b.measures, b.cube.Measure); err != nil {
		return wire.Query{}, decode.Decoder{}, err
	}
	if q.Dimensions, err = paths(b.dimensions, b.cube.Dimension); err != nil {
		return wire.Query{}, decode.Decoder{}, err
	}
	if q.Segments, err = paths(b.segments, b.cube.Segment); err != nil {
		return wire.Query{}, decode.Decoder{}, err
	}

	if len(b.filters) > 0 {
		q.Filters, err = filter.Compile(b.cube, b.filters)
		if err != nil {
			return wire.Query{}, decode.Decoder{}, fmt.Errorf("query %s: %w", b.cube.Name(), err)
		}
	}

	for i, td := range b.timeDimensions {
		compiled, err := b.compileTimeDimension(td)
		if err != nil {
			return wire.Query{}, decode.Decoder{}, fmt.Errorf("query %s: time dimension %d: %w", b.cube.Name(), i, err)
		}
		q.TimeDimensions = append(q.TimeDimensions, compiled)
	}

	for _, o := range b.order {
		q.Order = append(q.Order, wire.Order{Member: b.cube.Path(o.Member), Direction: o.Direction})
	}

	dec, err := decode.New(b.cube, b.selection())
	if err != nil {
		return wire.Query{}, decode.Decoder{}, err
	}
	return q, dec, nil
}

// Selection returns what the decoder from Finalize will read.
func (b Builder) Selection() decode.Selection {
	return b.selection()
}

func (b Builder) selection() decode.Selection {
	sel := decode.Selection{
		Measures:   append([]string(nil), b.measures...),
		Dimensions: append([]string(nil), b.dimensions...),
	}
	for _, td := range b.timeDimensions {
		if td.granularity == "" {
			continue
		}
		sel.TimeDimensions = append(sel.TimeDimensions, decode.TimeDimension{
			Dimension:   td.dimension,
			Granularity: td.granularity,
		})
	}
	return sel
}

func paths(names []string, resolve func(string) (string, error)) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]string, len(names))
	for i, name := range names {
		p, err := resolve(name)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (b Builder) compileTimeDimension(td timeDimension) (wire.TimeDimension, error) {
	path, err := b.cube.Dimension(td.dimension)
	if err != nil {
		return wire.TimeDimension{}, err
	}
	out := wire.TimeDimension{
		Dimension:   path,
		Granularity: string(td.granularity),
	}

	ranges := make([]wire.DateRange, len(td.ranges))
	for i, r := range td.ranges {
		ranges[i], err = b.compileDateRange(td.dimension, r)
		if err != nil {
			return wire.TimeDimension{}, err
		}
	}

	switch {
	case td.compare:
		out.CompareDateRange = ranges
	case len(ranges) == 1:
		out.DateRange = &ranges[0]
	}
	return out, nil
}

func (b Builder) compileDateRange(dim string, r DateRange) (wire.DateRange, error) {
	if !r.bounded {
		return wire.DateRange{Token: r.token}, nil
	}
	m, _ := b.cube.LookupIn(cube.CategoryDimension, dim)
	var bounds [2]string
	for i, v := range [2]any{r.from, r.to} {
		s, err := m.Serialize(v)
		if err != nil {
			cfgErr := b.cube.Errorf(cube.ErrCodeValueType, dim, "date range bound %d", i)
			cfgErr.Err = err
			return wire.DateRange{}, cfgErr
		}
		bounds[i] = s
	}
	return wire.DateRange{Bounds: bounds}, nil
}
