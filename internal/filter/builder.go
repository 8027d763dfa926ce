package filter

import (
	"errors"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/member"
)

// Builder accumulates filter nodes. The zero value is not usable; start
// from NewBuilder.
type Builder struct {
	cube  *cube.Cube
	scope Scope
	nodes []Node
	errs  []error
}

// NewBuilder returns an empty builder over every member of c.
func NewBuilder(c *cube.Cube) Builder {
	return Builder{cube: c, scope: ScopeAll}
}

func newScoped(c *cube.Cube, scope Scope) Builder {
	return Builder{cube: c, scope: scope}
}

// Scope returns the member category this builder accepts.
func (b Builder) Scope() Scope { return b.scope }

// Unary appends a set/notSet leaf.
func (b Builder) Unary(name string, op member.Operator) Builder {
	if !op.IsUnary() {
		return b.withErr(b.cube.Errorf(cube.ErrCodeIllegalOperator, name,
			"%q is not a unary operator", op))
	}
	if _, err := b.resolve(name); err != nil {
		return b.withErr(err)
	}
	return b.with(Unary{Member: name, Operator: op})
}

// Binary appends a comparison leaf. Values are serialized at compile time by
// the member's serializer, so they stay native-typed here.
func (b Builder) Binary(name string, op member.Operator, values ...any) Builder {
	m, err := b.resolve(name)
	if err != nil {
		return b.withErr(err)
	}
	if !m.FilterClass.AllowsBinary(op) {
		return b.withErr(b.cube.Errorf(cube.ErrCodeIllegalOperator, name,
			"operator %q is not allowed for filter class %q", op, m.FilterClass))
	}
	vals := make([]any, len(values))
	copy(vals, values)
	return b.with(Binary{Member: name, Operator: op, Values: vals})
}

// AndMeasures appends an And group whose leaves must be measures.
func (b Builder) AndMeasures(fn func(Builder) Builder) Builder {
	return b.group(ScopeMeasures, fn, func(children []Node) Node { return And{Children: children} })
}

// AndDimensions appends an And group whose leaves must be dimensions.
func (b Builder) AndDimensions(fn func(Builder) Builder) Builder {
	return b.group(ScopeDimensions, fn, func(children []Node) Node { return And{Children: children} })
}

// OrMeasures appends an Or group whose leaves must be measures.
func (b Builder) OrMeasures(fn func(Builder) Builder) Builder {
	return b.group(ScopeMeasures, fn, func(children []Node) Node { return Or{Children: children} })
}

// OrDimensions appends an Or group whose leaves must be dimensions.
func (b Builder) OrDimensions(fn func(Builder) Builder) Builder {
	return b.group(ScopeDimensions, fn, func(children []Node) Node { return Or{Children: children} })
}

// Nodes returns a copy of the accumulated top-level nodes.
func (b Builder) Nodes() []Node {
	return append([]Node(nil), b.nodes...)
}

// Err returns every configuration error recorded so far, joined.
func (b Builder) Err() error {
	return errors.Join(b.errs...)
}

// Finalize returns the top-level nodes, or the recorded errors.
func (b Builder) Finalize() ([]Node, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b.Nodes(), nil
}

// group runs fn on a child builder scoped to one category. A scoped builder
// only opens groups of its own category, and fn must return a builder
// derived from the child it was given.
func (b Builder) group(scope Scope, fn func(Builder) Builder, wrap func([]Node) Node) Builder {
	if b.scope != ScopeAll && b.scope != scope {
		return b.withErr(b.cube.Errorf(cube.ErrCodeScopeViolation, "",
			"%s group opened inside a group scoped to %s", scope, b.scope))
	}
	inner := fn(newScoped(b.cube, scope))
	if inner.cube != b.cube || inner.scope != scope {
		return b.withErr(b.cube.Errorf(cube.ErrCodeScopeViolation, "",
			"%s group callback returned a builder scoped to %s", scope, inner.scope))
	}
	if len(inner.errs) > 0 {
		out := b
		out.errs = appendCopy(b.errs, inner.errs...)
		return out
	}
	return b.with(wrap(inner.Nodes()))
}

// resolve finds name within the builder's scope.
func (b Builder) resolve(name string) (member.Member, error) {
	m, cat, ok := b.cube.Lookup(name)
	if !ok {
		return member.Member{}, b.cube.Errorf(cube.ErrCodeUnknownMember, name,
			"no measure or dimension named %q", name)
	}
	switch {
	case b.scope == ScopeMeasures && cat != cube.CategoryMeasure,
		b.scope == ScopeDimensions && cat != cube.CategoryDimension:
		return member.Member{}, b.cube.Errorf(cube.ErrCodeScopeViolation, name,
			"%s %q used in a group scoped to %s", cat, name, b.scope)
	}
	return m, nil
}

func (b Builder) with(n Node) Builder {
	out := b
	out.nodes = appendCopy(b.nodes, n)
	return out
}

func (b Builder) withErr(err error) Builder {
	out := b
	out.errs = appendCopy(b.errs, err)
	return out
}

// appendCopy never writes into the backing array of s, so sibling builders
// derived from the same parent cannot observe each other's appends.
func appendCopy[T any](s []T, elems ...T) []T {
	out := make([]T, 0, len(s)+len(elems))
	out = append(out, s...)
	return append(out, elems...)
}
