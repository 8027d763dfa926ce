// Package filter builds and compiles boolean filter trees over a cube's
// members.
//
// Trees are built with an immutable Builder. Each method returns a new
// Builder; the receiver is never changed, so a partially built tree can be
// reused as the base of several variants. Group methods (AndMeasures,
// OrDimensions, ...) hand the callback a fresh Builder restricted to one
// member category and wrap whatever it returns in a single And or Or node.
//
// Configuration mistakes (unknown member, illegal operator, scope
// violation) are recorded when the leaf is added and reported by Finalize.
//
// Compile walks a finished tree depth first and produces wire filters,
// serializing every value through the member that owns it.
package filter
