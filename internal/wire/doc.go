// Package wire defines the JSON query grammar accepted by the cube service
// and the flat rows it returns.
//
// Key presence is part of the contract:
//
//   - measures, dimensions, segments, filters and timeDimensions are omitted
//     when empty
//   - a unary filter (set, notSet) carries no "values" key; a binary filter
//     always does, even when the list is empty
//   - an ungrouped time dimension carries no "granularity" key
//   - a dateRange is either a token string or a two-element array
//
// Canonical encoding (RFC 8785) gives every compiled query a stable byte
// form, from which Fingerprint and QueryID are derived.
package wire
