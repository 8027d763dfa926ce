package member

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Deserializer converts a raw response value into a native value.
// Implementations must not fail; malformed input maps to a default.
type Deserializer func(raw any) any

// Serializer converts a native value into its wire string form.
type Serializer func(v any) (string, error)

// Member is a typed handler for one measure or dimension.
// Its name is assigned by placement in a cube, not stored here.
type Member struct {
	Kind        string
	FilterClass FilterClass
	Deserialize Deserializer
	Serialize   Serializer
}

// ErrValueType is returned by serializers handed a value of the wrong type.
var ErrValueType = errors.New("unsupported value type")

// TimeLayout is the fixed-precision UTC form used for serialized instants.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Validate checks that m can be placed in a cube.
func (m Member) Validate() error {
	if m.Deserialize == nil {
		return errors.New("missing deserializer")
	}
	if m.Serialize == nil {
		return errors.New("missing serializer")
	}
	if !m.FilterClass.Valid() {
		return fmt.Errorf("invalid filter class %q", m.FilterClass)
	}
	return nil
}

// String handles free-text members.
func String() Member {
	return Member{
		Kind:        "string",
		FilterClass: ClassString,
		Deserialize: func(raw any) any {
			s, _ := raw.(string)
			return s
		},
		Serialize: func(v any) (string, error) {
			switch s := v.(type) {
			case string:
				return s, nil
			case fmt.Stringer:
				return s.String(), nil
			}
			return stringifyScalar(v)
		},
	}
}

// Number handles float64 members.
func Number() Member {
	return Member{
		Kind:        "number",
		FilterClass: ClassNumber,
		Deserialize: func(raw any) any {
			f, ok := toFloat(raw)
			if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
				return float64(0)
			}
			return f
		},
		Serialize: func(v any) (string, error) {
			if n, ok := v.(json.Number); ok {
				if _, err := n.Float64(); err != nil {
					return "", fmt.Errorf("number: %w", err)
				}
				return n.String(), nil
			}
			if _, ok := v.(string); ok {
				return "", typeError("number", v)
			}
			f, ok := toFloat(v)
			if !ok {
				return "", typeError("number", v)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return "", fmt.Errorf("number: non-finite value %v", f)
			}
			return strconv.FormatFloat(f, 'f', -1, 64), nil
		},
	}
}

// Boolean handles true/false members. Any string other than "false" reads as
// true.
func Boolean() Member {
	return Member{
		Kind:        "boolean",
		FilterClass: ClassNone,
		Deserialize: func(raw any) any {
			switch b := raw.(type) {
			case string:
				return b != "false"
			case bool:
				return b
			}
			return false
		},
		Serialize: func(v any) (string, error) {
			b, ok := v.(bool)
			if !ok {
				return "", typeError("boolean", v)
			}
			return strconv.FormatBool(b), nil
		},
	}
}

// Time handles instants. Unparseable input decodes to the Unix epoch.
func Time() Member {
	return TimeWithDefault(func() time.Time { return time.Unix(0, 0).UTC() })
}

// TimeWithDefault is Time with a caller-chosen fallback instant, e.g.
// TimeWithDefault(time.Now).
func TimeWithDefault(fallback func() time.Time) Member {
	return Member{
		Kind:        "time",
		FilterClass: ClassTime,
		Deserialize: func(raw any) any {
			if t, ok := parseTime(raw); ok {
				return t
			}
			return fallback().UTC()
		},
		Serialize: func(v any) (string, error) {
			switch t := v.(type) {
			case time.Time:
				return t.UTC().Format(TimeLayout), nil
			case *time.Time:
				if t == nil {
					return "", typeError("time", v)
				}
				return t.UTC().Format(TimeLayout), nil
			case string:
				parsed, ok := parseTime(t)
				if !ok {
					return "", fmt.Errorf("time: cannot parse %q", t)
				}
				return parsed.Format(TimeLayout), nil
			}
			return "", typeError("time", v)
		},
	}
}

// Decimal handles exact numeric members backed by apd. It filters like a
// number.
func Decimal() Member {
	return Member{
		Kind:        "decimal",
		FilterClass: ClassNumber,
		Deserialize: func(raw any) any {
			d, err := toDecimal(raw)
			if err != nil || d.Form != apd.Finite {
				return new(apd.Decimal)
			}
			return d
		},
		Serialize: func(v any) (string, error) {
			if _, ok := v.(float64); ok {
				return "", typeError("decimal", v)
			}
			d, err := toDecimal(v)
			if err != nil {
				return "", err
			}
			if d.Form != apd.Finite {
				return "", fmt.Errorf("decimal: non-finite value %s", d.String())
			}
			return d.Text('f'), nil
		},
	}
}

var builtins = map[string]func() Member{
	"string":  String,
	"number":  Number,
	"boolean": Boolean,
	"time":    Time,
	"decimal": Decimal,
}

// Lookup returns a fresh built-in member of the given kind.
func Lookup(kind string) (Member, bool) {
	ctor, ok := builtins[kind]
	if !ok {
		return Member{}, false
	}
	return ctor(), true
}

// Kinds returns the built-in kind names, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(builtins))
	for k := range builtins {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// stringifyScalar formats bool, integer and float kinds. Composite and nil
// values have no single string form.
func stringifyScalar(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return "", typeError("string", v)
}

func typeError(kind string, v any) error {
	return fmt.Errorf("%s: %w %T", kind, ErrValueType, v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func toDecimal(v any) (*apd.Decimal, error) {
	switch n := v.(type) {
	case *apd.Decimal:
		if n == nil {
			return nil, typeError("decimal", v)
		}
		return new(apd.Decimal).Set(n), nil
	case apd.Decimal:
		return new(apd.Decimal).Set(&n), nil
	case string:
		d, _, err := apd.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return nil, fmt.Errorf("decimal: %w", err)
		}
		return d, nil
	case json.Number:
		d, _, err := apd.NewFromString(n.String())
		if err != nil {
			return nil, fmt.Errorf("decimal: %w", err)
		}
		return d, nil
	case float64:
		d, err := new(apd.Decimal).SetFloat64(n)
		if err != nil {
			return nil, fmt.Errorf("decimal: %w", err)
		}
		return d, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return apd.New(rv.Int(), 0), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return apd.New(int64(rv.Uint()), 0), nil
	}
	return nil, typeError("decimal", v)
}

// Zoneless forms are read as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTime(raw any) (time.Time, bool) {
	switch t := raw.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.UTC(), true
		}
		for _, layout := range zonelessLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
