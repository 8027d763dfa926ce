// Package member defines the typed handlers that sit behind every measure and
// dimension of a cube.
//
// A Member bundles three things:
//
//   - Deserialize turns a raw response value into a native Go value. It is
//     total: missing or malformed input yields the type's default.
//   - Serialize turns a native value into the string form used in filter
//     values and date ranges.
//   - FilterClass selects which binary filter operators are legal.
//
// The built-in kinds are string, number, boolean, time and decimal. Callers
// can build their own Member values; anything with both functions and a
// valid FilterClass can be placed in a cube.
package member
