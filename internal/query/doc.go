// Package query is the immutable accumulator that turns a chain of
// selection calls into a wire query and a matching row decoder.
//
//	q, dec, err := query.New(orders).
//		Measure("count").
//		Dimension("status").
//		Filter(func(f filter.Builder) filter.Builder {
//			return f.Binary("count", member.Gt, 10)
//		}).
//		TimeDimension("createdAt", cube.Day, query.Relative("last 7 days")).
//		Finalize()
//
// Every method returns a new Builder and leaves the receiver untouched.
// Mistakes are recorded as they happen and all of them are returned by
// Finalize, which may be called any number of times.
package query
