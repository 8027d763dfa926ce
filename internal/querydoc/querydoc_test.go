package querydoc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubeq/internal/cube"
	"github.com/roach88/cubeq/internal/testutil"
)

const ordersDoc = `
cube: Orders
measures: [count]
dimensions: [status]
segments: [completed]
filters:
  - member: count
    operator: gt
    values: [10]
  - orDimensions:
      - member: status
        operator: equals
        values: [shipped]
      - member: city
        operator: notSet
timeDimensions:
  - dimension: createdAt
    granularity: day
    dateRange: last 7 days
  - dimension: shippedAt
    compareDateRange:
      - this week
      - ["2024-01-01", "2024-01-07"]
order:
  - member: count
    direction: desc
  - member: status
limit: 100
offset: 20
timezone: UTC
`

func TestParseAndBuild(t *testing.T) {
	doc, err := Parse([]byte(ordersDoc))
	require.NoError(t, err)
	assert.Equal(t, "Orders", doc.Cube)

	b, err := doc.Build(testutil.Orders())
	require.NoError(t, err)

	q, dec, err := b.Finalize()
	require.NoError(t, err)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"measures": ["Orders.count"],
		"dimensions": ["Orders.status"],
		"segments": ["Orders.completed"],
		"filters": [
			{"member": "Orders.count", "operator": "gt", "values": ["10"]},
			{"or": [
				{"member": "Orders.status", "operator": "equals", "values": ["shipped"]},
				{"member": "Orders.city", "operator": "notSet"}
			]}
		],
		"timeDimensions": [
			{"dimension": "Orders.createdAt", "granularity": "day", "dateRange": "last 7 days"},
			{"dimension": "Orders.shippedAt", "compareDateRange": ["this week", ["2024-01-01T00:00:00.000Z", "2024-01-07T00:00:00.000Z"]]}
		],
		"order": [["Orders.count", "desc"], ["Orders.status", "asc"]],
		"limit": 100,
		"offset": 20,
		"timezone": "UTC"
	}`, string(data))

	assert.Equal(t, []string{"count", "status", "createdAt.day"}, dec.Keys())
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing cube", `measures: [count]`, "cube is required"},
		{"unknown field", "cube: Orders\nmeasure: [count]", "field measure not found"},
		{"leaf without operator", "cube: Orders\nfilters:\n  - member: count", "member and operator are both required"},
		{"leaf and group", "cube: Orders\nfilters:\n  - member: count\n    operator: set\n    andMeasures: []", "exactly one group"},
		{"empty filter", "cube: Orders\nfilters:\n  - {}", "exactly one group"},
		{"nested error path", "cube: Orders\nfilters:\n  - orDimensions:\n      - operator: set", "filters[0].orDimensions[0]"},
		{"time dimension without dimension", "cube: Orders\ntimeDimensions:\n  - granularity: day", "dimension is required"},
		{"both ranges", "cube: Orders\ntimeDimensions:\n  - dimension: createdAt\n    dateRange: today\n    compareDateRange: [today]", "exclusive"},
		{"order without member", "cube: Orders\norder:\n  - direction: asc", "member is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildSurfacesBuilderErrors(t *testing.T) {
	doc, err := Parse([]byte(`
cube: Orders
measures: [nope]
filters:
  - andMeasures:
      - member: status
        operator: equals
        values: [x]
`))
	require.NoError(t, err)

	b, err := doc.Build(testutil.Orders())
	require.NoError(t, err)

	_, _, err = b.Finalize()
	require.Error(t, err)
	assert.True(t, cube.HasCode(err, cube.ErrCodeUnknownMember))
	assert.True(t, cube.HasCode(err, cube.ErrCodeScopeViolation))
}

func TestBuildDateRangeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"one bound", "cube: Orders\ntimeDimensions:\n  - dimension: createdAt\n    dateRange: [2024-01-01]"},
		{"number", "cube: Orders\ntimeDimensions:\n  - dimension: createdAt\n    dateRange: 7"},
		{"bad compare entry", "cube: Orders\ntimeDimensions:\n  - dimension: createdAt\n    compareDateRange: [{a: 1}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.src))
			require.NoError(t, err)
			_, err = doc.Build(testutil.Orders())
			assert.ErrorContains(t, err, "timeDimensions[0]")
		})
	}
}

func TestBuildWrongCube(t *testing.T) {
	doc, err := Parse([]byte("cube: Users\nmeasures: [count]"))
	require.NoError(t, err)

	_, err = doc.Build(testutil.Orders())
	assert.ErrorContains(t, err, `targets cube "Users"`)
}

func TestUngroupedTimeDimension(t *testing.T) {
	doc, err := Parse([]byte(`
cube: MyCube
timeDimensions:
  - dimension: myTime
    dateRange: ["2024-03-01T00:00:00Z", "2024-03-31T23:59:59Z"]
`))
	require.NoError(t, err)

	b, err := doc.Build(testutil.MyCube())
	require.NoError(t, err)
	q, dec, err := b.Finalize()
	require.NoError(t, err)

	data, err := json.Marshal(q.TimeDimensions)
	require.NoError(t, err)
	assert.Equal(t, `[{"dimension":"MyCube.myTime","dateRange":["2024-03-01T00:00:00.000Z","2024-03-31T23:59:59.000Z"]}]`, string(data))
	assert.Empty(t, dec.Keys())
}

func TestUnquotedScalarOnStringMember(t *testing.T) {
	doc, err := Parse([]byte(`
cube: Orders
filters:
  - member: city
    operator: equals
    values: [10001, true, 2.5]
`))
	require.NoError(t, err)

	b, err := doc.Build(testutil.Orders())
	require.NoError(t, err)
	q, _, err := b.Finalize()
	require.NoError(t, err)

	data, err := json.Marshal(q.Filters)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"member":"Orders.city","operator":"equals","values":["10001","true","2.5"]}]`, string(data))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersDoc), 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"count"}, doc.Measures)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read query file")
}
