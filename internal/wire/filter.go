package wire

import (
	"encoding/json"
	"fmt"
)

// Filter is one node of a compiled filter tree. Exactly one shape is set:
// a leaf (Member and Operator, plus Values for binary operators) or a
// group (And or Or).
type Filter struct {
	Member   string
	Operator string
	Values   []string
	Unary    bool

	And []Filter
	Or  []Filter
}

// Leaf builds a binary filter. A nil values slice still encodes as [].
func Leaf(member, operator string, values []string) Filter {
	if values == nil {
		values = []string{}
	}
	return Filter{Member: member, Operator: operator, Values: values}
}

// UnaryLeaf builds a filter that carries no values key.
func UnaryLeaf(member, operator string) Filter {
	return Filter{Member: member, Operator: operator, Unary: true}
}

// AndGroup builds {"and": [...]}.
func AndGroup(children []Filter) Filter {
	if children == nil {
		children = []Filter{}
	}
	return Filter{And: children}
}

// OrGroup builds {"or": [...]}.
func OrGroup(children []Filter) Filter {
	if children == nil {
		children = []Filter{}
	}
	return Filter{Or: children}
}

// IsGroup reports whether f is an and/or group.
func (f Filter) IsGroup() bool {
	return f.And != nil || f.Or != nil
}

type filterJSON struct {
	Member   string    `json:"member,omitempty"`
	Operator string    `json:"operator,omitempty"`
	Values   *[]string `json:"values,omitempty"`
	And      *[]Filter `json:"and,omitempty"`
	Or       *[]Filter `json:"or,omitempty"`
}

func (f Filter) MarshalJSON() ([]byte, error) {
	switch {
	case f.And != nil && f.Or != nil:
		return nil, fmt.Errorf("filter: both and and or set")
	case f.And != nil:
		return json.Marshal(filterJSON{And: &f.And})
	case f.Or != nil:
		return json.Marshal(filterJSON{Or: &f.Or})
	}
	if f.Member == "" || f.Operator == "" {
		return nil, fmt.Errorf("filter: leaf needs member and operator")
	}
	out := filterJSON{Member: f.Member, Operator: f.Operator}
	if !f.Unary {
		values := f.Values
		if values == nil {
			values = []string{}
		}
		out.Values = &values
	}
	return json.Marshal(out)
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var in filterJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.And != nil:
		*f = AndGroup(*in.And)
	case in.Or != nil:
		*f = OrGroup(*in.Or)
	case in.Values != nil:
		*f = Leaf(in.Member, in.Operator, *in.Values)
	default:
		*f = UnaryLeaf(in.Member, in.Operator)
	}
	return nil
}
