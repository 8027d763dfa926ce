package wire

import (
	"encoding/json"
	"fmt"
)

// Query is the compiled query sent to the cube service.
type Query struct {
	Measures       []string        `json:"measures,omitempty"`
	Dimensions     []string        `json:"dimensions,omitempty"`
	Segments       []string        `json:"segments,omitempty"`
	Filters        []Filter        `json:"filters,omitempty"`
	TimeDimensions []TimeDimension `json:"timeDimensions,omitempty"`
	Order          []Order         `json:"order,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Offset         int             `json:"offset,omitempty"`
	Timezone       string          `json:"timezone,omitempty"`
}

// Row is one flat result row keyed by fully-qualified member path.
type Row map[string]any

// TimeDimension selects a time window and optional bucketing.
type TimeDimension struct {
	Dimension        string      `json:"dimension"`
	Granularity      string      `json:"granularity,omitempty"`
	DateRange        *DateRange  `json:"dateRange,omitempty"`
	CompareDateRange []DateRange `json:"compareDateRange,omitempty"`
}

// DateRange is either a relative token ("last 7 days") or an explicit pair
// of serialized bounds.
type DateRange struct {
	Token  string
	Bounds [2]string
}

// IsToken reports whether r is the token form.
func (r DateRange) IsToken() bool {
	return r.Token != ""
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	if r.IsToken() {
		return json.Marshal(r.Token)
	}
	return json.Marshal(r.Bounds)
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		if token == "" {
			return fmt.Errorf("dateRange: empty token")
		}
		*r = DateRange{Token: token}
		return nil
	}
	var bounds []string
	if err := json.Unmarshal(data, &bounds); err != nil {
		return fmt.Errorf("dateRange: expected string or [from, to]: %w", err)
	}
	if len(bounds) != 2 {
		return fmt.Errorf("dateRange: expected 2 bounds, got %d", len(bounds))
	}
	*r = DateRange{Bounds: [2]string{bounds[0], bounds[1]}}
	return nil
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is one sort key, encoded as a [member, direction] pair.
type Order struct {
	Member    string
	Direction Direction
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{o.Member, string(o.Direction)})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("order: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("order: expected [member, direction], got %d elements", len(pair))
	}
	*o = Order{Member: pair[0], Direction: Direction(pair[1])}
	return nil
}
