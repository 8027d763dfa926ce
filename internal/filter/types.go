package filter

import "github.com/roach88/cubeq/internal/member"

// Node is a filter tree node.
//
// Sealed interface: only Unary, Binary, And and Or implement it.
type Node interface {
	filterNode()
}

// Unary tests a member for presence. Operator is Set or NotSet.
type Unary struct {
	Member   string
	Operator member.Operator
}

// Binary compares a member against native-typed values.
type Binary struct {
	Member   string
	Operator member.Operator
	Values   []any
}

// And matches when every child matches.
type And struct {
	Children []Node
}

// Or matches when any child matches.
type Or struct {
	Children []Node
}

func (Unary) filterNode()  {}
func (Binary) filterNode() {}
func (And) filterNode()    {}
func (Or) filterNode()     {}

// Scope restricts which member category a builder accepts.
type Scope int

const (
	// ScopeAll accepts measures and dimensions.
	ScopeAll Scope = iota
	ScopeMeasures
	ScopeDimensions
)

func (s Scope) String() string {
	switch s {
	case ScopeMeasures:
		return "measures"
	case ScopeDimensions:
		return "dimensions"
	}
	return "all"
}
