package wire

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterJSONShapes(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name:   "binary",
			filter: Leaf("MyCube.myMeasure", "gte", []string{"100"}),
			want:   `{"member":"MyCube.myMeasure","operator":"gte","values":["100"]}`,
		},
		{
			name:   "binary without values keeps key",
			filter: Leaf("MyCube.myDimension", "equals", nil),
			want:   `{"member":"MyCube.myDimension","operator":"equals","values":[]}`,
		},
		{
			name:   "unary has no values key",
			filter: UnaryLeaf("MyCube.myDimension", "set"),
			want:   `{"member":"MyCube.myDimension","operator":"set"}`,
		},
		{
			name: "nested groups",
			filter: OrGroup([]Filter{
				UnaryLeaf("C.a", "notSet"),
				AndGroup([]Filter{Leaf("C.b", "equals", []string{"x"})}),
			}),
			want: `{"or":[{"member":"C.a","operator":"notSet"},{"and":[{"member":"C.b","operator":"equals","values":["x"]}]}]}`,
		},
		{
			name:   "empty group",
			filter: AndGroup(nil),
			want:   `{"and":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.filter)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
			assert.Equal(t, tt.want, string(data))

			var back Filter
			require.NoError(t, json.Unmarshal(data, &back))
			again, err := json.Marshal(back)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(again))
		})
	}
}

func TestFilterMarshalRejectsMalformed(t *testing.T) {
	_, err := json.Marshal(Filter{})
	assert.Error(t, err)

	_, err = json.Marshal(Filter{And: []Filter{}, Or: []Filter{}})
	assert.Error(t, err)
}

func TestTimeDimensionJSON(t *testing.T) {
	grouped := TimeDimension{
		Dimension:   "C.createdAt",
		Granularity: "day",
		DateRange:   &DateRange{Token: "last 7 days"},
	}
	data, err := json.Marshal(grouped)
	require.NoError(t, err)
	assert.Equal(t, `{"dimension":"C.createdAt","granularity":"day","dateRange":"last 7 days"}`, string(data))

	ungrouped := TimeDimension{
		Dimension: "C.createdAt",
		DateRange: &DateRange{Bounds: [2]string{"2024-01-01T00:00:00.000Z", "2024-01-31T00:00:00.000Z"}},
	}
	data, err = json.Marshal(ungrouped)
	require.NoError(t, err)
	assert.Equal(t, `{"dimension":"C.createdAt","dateRange":["2024-01-01T00:00:00.000Z","2024-01-31T00:00:00.000Z"]}`, string(data))
	assert.NotContains(t, string(data), "granularity")

	compare := TimeDimension{
		Dimension:        "C.createdAt",
		CompareDateRange: []DateRange{{Token: "this week"}, {Token: "last week"}},
	}
	data, err = json.Marshal(compare)
	require.NoError(t, err)
	assert.Equal(t, `{"dimension":"C.createdAt","compareDateRange":["this week","last week"]}`, string(data))
}

func TestDateRangeUnmarshal(t *testing.T) {
	var r DateRange
	require.NoError(t, json.Unmarshal([]byte(`"today"`), &r))
	assert.Equal(t, DateRange{Token: "today"}, r)

	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &r))
	assert.Equal(t, DateRange{Bounds: [2]string{"a", "b"}}, r)

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`""`), &r))
	assert.Error(t, json.Unmarshal([]byte(`3`), &r))
}

func TestQueryOmitsEmptySections(t *testing.T) {
	data, err := json.Marshal(Query{Measures: []string{"C.count"}})
	require.NoError(t, err)
	assert.Equal(t, `{"measures":["C.count"]}`, string(data))

	data, err = json.Marshal(Query{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestOrderJSON(t *testing.T) {
	q := Query{Order: []Order{{Member: "C.count", Direction: Desc}}, Limit: 10}
	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, `{"order":[["C.count","desc"]],"limit":10}`, string(data))

	var back Query
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, q, back)
}

func TestCanonical(t *testing.T) {
	q := Query{
		TimeDimensions: []TimeDimension{{Dimension: "C.t", Granularity: "day", DateRange: &DateRange{Token: "today"}}},
		Measures:       []string{"C.count"},
		Filters:        []Filter{Leaf("C.name", "contains", []string{"<a&b>"})},
		Limit:          5,
	}

	data, err := Canonical(q)
	require.NoError(t, err)
	assert.Equal(t,
		`{"filters":[{"member":"C.name","operator":"contains","values":["<a&b>"]}],"limit":5,"measures":["C.count"],"timeDimensions":[{"dateRange":"today","dimension":"C.t","granularity":"day"}]}`,
		string(data))
}

func TestCanonicalizeJSON(t *testing.T) {
	t.Run("utf16 key order", func(t *testing.T) {
		// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
		data, err := CanonicalizeJSON([]byte(`{"😀":1,"｡":2,"a":3}`))
		require.NoError(t, err)
		assert.Equal(t, `{"a":3,"😀":1,"｡":2}`, string(data))
	})

	t.Run("nfc", func(t *testing.T) {
		data, err := CanonicalizeJSON([]byte("\"e\u0301\""))
		require.NoError(t, err)
		assert.Equal(t, "\"\u00e9\"", string(data))
	})

	t.Run("escapes", func(t *testing.T) {
		data, err := CanonicalizeJSON([]byte(`"a\"b\\c\n\u0001 "`))
		require.NoError(t, err)
		assert.Equal(t, "\"a\\\"b\\\\c\\n\\u0001 \"", string(data))
	})

	t.Run("rejects floats and nulls", func(t *testing.T) {
		_, err := CanonicalizeJSON([]byte(`{"a":1.5}`))
		assert.Error(t, err)
		_, err = CanonicalizeJSON([]byte(`[null]`))
		assert.Error(t, err)
	})
}

func TestFingerprintAndQueryID(t *testing.T) {
	a := Query{Measures: []string{"C.count"}, Dimensions: []string{"C.status"}}
	b := Query{Dimensions: []string{"C.status"}, Measures: []string{"C.count"}}
	c := Query{Measures: []string{"C.count"}}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	fc, err := Fingerprint(c)
	require.NoError(t, err)

	assert.Len(t, fa, 64)
	assert.Equal(t, fa, fb)
	assert.NotEqual(t, fa, fc)

	ida, err := QueryID(a)
	require.NoError(t, err)
	idb, err := QueryID(b)
	require.NoError(t, err)
	assert.Equal(t, ida, idb)
	assert.Equal(t, uuid.Version(5), ida.Version())
	assert.NotEqual(t, uuid.Nil, ida)
}

func TestHashWithDomainSeparates(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain("a", data), hashWithDomain("b", data))
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}
