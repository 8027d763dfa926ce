package filter

import (
	"fmt"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/wire"
)

// Compile converts finished nodes into wire filters for cube c.
//
// Nodes built by hand rather than through a Builder are checked here too:
// every leaf member must exist and its operator must be legal. Scope is
// not rechecked since a bare node carries none.
func Compile(c *cube.Cube, nodes []Node) ([]wire.Filter, error) {
	out := make([]wire.Filter, 0, len(nodes))
	for i, n := range nodes {
		f, err := compileNode(c, n)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func compileNode(c *cube.Cube, n Node) (wire.Filter, error) {
	switch node := n.(type) {
	case And:
		children, err := compileChildren(c, node.Children)
		if err != nil {
			return wire.Filter{}, fmt.Errorf("and: %w", err)
		}
		return wire.AndGroup(children), nil
	case *And:
		return compileNode(c, *node)
	case Or:
		children, err := compileChildren(c, node.Children)
		if err != nil {
			return wire.Filter{}, fmt.Errorf("or: %w", err)
		}
		return wire.OrGroup(children), nil
	case *Or:
		return compileNode(c, *node)
	case Binary:
		return compileBinary(c, node)
	case *Binary:
		return compileBinary(c, *node)
	case Unary:
		return compileUnary(c, node)
	case *Unary:
		return compileUnary(c, *node)
	default:
		return wire.Filter{}, fmt.Errorf("unsupported filter node: %T", n)
	}
}

func compileChildren(c *cube.Cube, nodes []Node) ([]wire.Filter, error) {
	children := make([]wire.Filter, 0, len(nodes))
	for i, child := range nodes {
		f, err := compileNode(c, child)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		children = append(children, f)
	}
	return children, nil
}

func compileBinary(c *cube.Cube, b Binary) (wire.Filter, error) {
	m, _, ok := c.Lookup(b.Member)
	if !ok {
		return wire.Filter{}, c.Errorf(cube.ErrCodeUnknownMember, b.Member,
			"no measure or dimension named %q", b.Member)
	}
	if !m.FilterClass.AllowsBinary(b.Operator) {
		return wire.Filter{}, c.Errorf(cube.ErrCodeIllegalOperator, b.Member,
			"operator %q is not allowed for filter class %q", b.Operator, m.FilterClass)
	}
	values := make([]string, len(b.Values))
	for i, v := range b.Values {
		s, err := m.Serialize(v)
		if err != nil {
			cfgErr := c.Errorf(cube.ErrCodeValueType, b.Member, "value %d", i)
			cfgErr.Err = err
			return wire.Filter{}, cfgErr
		}
		values[i] = s
	}
	return wire.Leaf(c.Path(b.Member), string(b.Operator), values), nil
}

func compileUnary(c *cube.Cube, u Unary) (wire.Filter, error) {
	if _, _, ok := c.Lookup(u.Member); !ok {
		return wire.Filter{}, c.Errorf(cube.ErrCodeUnknownMember, u.Member,
			"no measure or dimension named %q", u.Member)
	}
	if !u.Operator.IsUnary() {
		return wire.Filter{}, c.Errorf(cube.ErrCodeIllegalOperator, u.Member,
			"%q is not a unary operator", u.Operator)
	}
	return wire.UnaryLeaf(c.Path(u.Member), string(u.Operator)), nil
}
