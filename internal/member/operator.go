package member

import "slices"

// FilterClass selects the operator set legal for a member.
type FilterClass string

const (
	ClassString FilterClass = "string"
	ClassNumber FilterClass = "number"
	ClassTime   FilterClass = "time"
	ClassNone   FilterClass = "none"
)

// Operator is a filter operator as named on the wire.
type Operator string

const (
	Equals         Operator = "equals"
	NotEquals      Operator = "notEquals"
	Contains       Operator = "contains"
	NotContains    Operator = "notContains"
	StartsWith     Operator = "startsWith"
	NotStartsWith  Operator = "notStartsWith"
	EndsWith       Operator = "endsWith"
	NotEndsWith    Operator = "notEndsWith"
	Gt             Operator = "gt"
	Gte            Operator = "gte"
	Lt             Operator = "lt"
	Lte            Operator = "lte"
	InDateRange    Operator = "inDateRange"
	NotInDateRange Operator = "notInDateRange"
	BeforeDate     Operator = "beforeDate"
	BeforeOrOnDate Operator = "beforeOrOnDate"
	AfterDate      Operator = "afterDate"
	AfterOrOnDate  Operator = "afterOrOnDate"

	// Set and NotSet take no values and are legal for every class.
	Set    Operator = "set"
	NotSet Operator = "notSet"
)

var binaryOperators = map[FilterClass][]Operator{
	ClassString: {Equals, NotEquals, Contains, NotContains, StartsWith, NotStartsWith, EndsWith, NotEndsWith},
	ClassNumber: {Equals, NotEquals, Gt, Gte, Lt, Lte},
	ClassTime:   {Equals, NotEquals, InDateRange, NotInDateRange, BeforeDate, BeforeOrOnDate, AfterDate, AfterOrOnDate},
	ClassNone:   {Equals, NotEquals},
}

// Valid reports whether c is one of the four known classes.
func (c FilterClass) Valid() bool {
	_, ok := binaryOperators[c]
	return ok
}

// BinaryOperators returns the binary operators legal for c, in table order.
// The returned slice is a copy.
func (c FilterClass) BinaryOperators() []Operator {
	return slices.Clone(binaryOperators[c])
}

// AllowsBinary reports whether op is a legal binary operator for c.
func (c FilterClass) AllowsBinary(op Operator) bool {
	return slices.Contains(binaryOperators[c], op)
}

// IsUnary reports whether op takes no values.
func (op Operator) IsUnary() bool {
	return op == Set || op == NotSet
}

// Known reports whether op is any operator of any class.
func (op Operator) Known() bool {
	if op.IsUnary() {
		return true
	}
	for _, ops := range binaryOperators {
		if slices.Contains(ops, op) {
			return true
		}
	}
	return false
}
