package query

import (
	"errors"
	"time"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/filter"
	"github.com/roach88/cubeq/internal/member"
	"github.com/roach88/cubeq/internal/wire"
)

// timeDimension is one accumulated time-dimension entry. An empty
// granularity means ungrouped.
type timeDimension struct {
	dimension   string
	granularity cube.Granularity
	ranges      []DateRange
	compare     bool
}

// Builder accumulates a query over one cube. Start from New.
type Builder struct {
	cube *cube.Cube

	measures       []string
	dimensions     []string
	segments       []string
	filters        []filter.Node
	timeDimensions []timeDimension
	order          []wire.Order
	limit          int
	offset         int
	timezone       string

	errs []error
}

// New returns an empty builder over c.
func New(c *cube.Cube) Builder {
	return Builder{cube: c}
}

// Cube returns the cube this builder targets.
func (b Builder) Cube() *cube.Cube { return b.cube }

// Measure selects a measure. Duplicates are kept.
func (b Builder) Measure(name string) Builder {
	if _, err := b.cube.Measure(name); err != nil {
		return b.withErr(err)
	}
	out := b
	out.measures = appendCopy(b.measures, name)
	return out
}

// Dimension selects a dimension. Duplicates are kept.
func (b Builder) Dimension(name string) Builder {
	if _, err := b.cube.Dimension(name); err != nil {
		return b.withErr(err)
	}
	out := b
	out.dimensions = appendCopy(b.dimensions, name)
	return out
}

// Segment applies a predefined segment.
func (b Builder) Segment(name string) Builder {
	if _, err := b.cube.Segment(name); err != nil {
		return b.withErr(err)
	}
	out := b
	out.segments = appendCopy(b.segments, name)
	return out
}

// Filter hands fn a fresh filter builder over all members and appends the
// nodes it returns to the top-level filter list.
func (b Builder) Filter(fn func(filter.Builder) filter.Builder) Builder {
	nodes, err := fn(filter.NewBuilder(b.cube)).Finalize()
	if err != nil {
		return b.withErr(err)
	}
	out := b
	out.filters = appendCopy(b.filters, nodes...)
	return out
}

// Order sorts by a measure or dimension of the cube.
func (b Builder) Order(name string, dir wire.Direction) Builder {
	if _, err := b.cube.Member(name); err != nil {
		return b.withErr(err)
	}
	if dir != wire.Asc && dir != wire.Desc {
		return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidOrder, name,
			"direction must be %q or %q, got %q", wire.Asc, wire.Desc, dir))
	}
	out := b
	out.order = appendCopy(b.order, wire.Order{Member: name, Direction: dir})
	return out
}

// Limit caps the number of rows. Zero means the service default.
func (b Builder) Limit(n int) Builder {
	if n < 0 {
		return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidPagination, "", "negative limit %d", n))
	}
	out := b
	out.limit = n
	return out
}

// Offset skips rows.
func (b Builder) Offset(n int) Builder {
	if n < 0 {
		return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidPagination, "", "negative offset %d", n))
	}
	out := b
	out.offset = n
	return out
}

// Timezone sets the IANA zone the service buckets time in.
func (b Builder) Timezone(tz string) Builder {
	if _, err := time.LoadLocation(tz); err != nil || tz == "" {
		cfgErr := b.cube.Errorf(cube.ErrCodeInvalidTimezone, "", "unknown timezone %q", tz)
		cfgErr.Err = err
		return b.withErr(cfgErr)
	}
	out := b
	out.timezone = tz
	return out
}

// Err returns every recorded configuration error, joined.
func (b Builder) Err() error {
	return errors.Join(b.errs...)
}

// TimeDimension selects dim bucketed by g over r. A zero r omits the
// window.
func (b Builder) TimeDimension(dim string, g cube.Granularity, r DateRange) Builder {
	return b.addTimeDimension(timeDimension{dimension: dim, granularity: g, ranges: optional(r)}, true)
}

// TimeDimensionUngrouped filters on dim over r without bucketing; the
// dimension gets no output column.
func (b Builder) TimeDimensionUngrouped(dim string, r DateRange) Builder {
	return b.addTimeDimension(timeDimension{dimension: dim, ranges: optional(r)}, false)
}

// TimeDimensionComparison compares the same buckets across several windows.
func (b Builder) TimeDimensionComparison(dim string, g cube.Granularity, ranges ...DateRange) Builder {
	return b.addTimeDimension(timeDimension{dimension: dim, granularity: g, ranges: append([]DateRange(nil), ranges...), compare: true}, true)
}

// TimeDimensionComparisonUngrouped compares whole windows without bucketing.
func (b Builder) TimeDimensionComparisonUngrouped(dim string, ranges ...DateRange) Builder {
	return b.addTimeDimension(timeDimension{dimension: dim, ranges: append([]DateRange(nil), ranges...), compare: true}, false)
}

func optional(r DateRange) []DateRange {
	if r.IsZero() {
		return nil
	}
	return []DateRange{r}
}

func (b Builder) addTimeDimension(td timeDimension, grouped bool) Builder {
	m, ok := b.cube.LookupIn(cube.CategoryDimension, td.dimension)
	if !ok {
		_, err := b.cube.Dimension(td.dimension)
		return b.withErr(err)
	}
	if m.FilterClass != member.ClassTime {
		return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidTimeDimension, td.dimension,
			"dimension has filter class %q, want %q", m.FilterClass, member.ClassTime))
	}
	if grouped && !td.granularity.Valid() {
		return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidGranularity, td.dimension,
			"unknown granularity %q", td.granularity))
	}
	if td.compare && len(td.ranges) == 0 {
		return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidDateRange, td.dimension,
			"comparison needs at least one date range"))
	}
	for i, r := range td.ranges {
		if !r.valid() {
			return b.withErr(b.cube.Errorf(cube.ErrCodeInvalidDateRange, td.dimension,
				"date range %d is empty", i))
		}
	}
	out := b
	out.timeDimensions = appendCopy(b.timeDimensions, td)
	return out
}

func (b Builder) withErr(err error) Builder {
	out := b
	out.errs = appendCopy(b.errs, err)
	return out
}

func appendCopy[T any](s []T, elems ...T) []T {
	out := make([]T, 0, len(s)+len(elems))
	out = append(out, s...)
	return append(out, elems...)
}
