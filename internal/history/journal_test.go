package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cubeq/internal/testutil"
	"github.com/roach88/cubeq/internal/wire"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenConfiguresDatabase(t *testing.T) {
	j := openTestJournal(t)

	assert.NoError(t, j.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, j.verifyPragma("synchronous", "1"))
	assert.NoError(t, j.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, j.verifyPragma("user_version", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	j1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()
	assert.NoError(t, j2.verifyPragma("user_version", "1"))
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	clock := testutil.NewStepClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), time.Minute)

	q := wire.Query{
		Measures: []string{"Orders.count"},
		Filters:  []wire.Filter{wire.UnaryLeaf("Orders.status", "set")},
		TimeDimensions: []wire.TimeDimension{{
			Dimension:   "Orders.createdAt",
			Granularity: "day",
			DateRange:   &wire.DateRange{Token: "last 7 days"},
		}},
	}

	first, err := j.Record(ctx, "Orders", q, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Hits)
	assert.Equal(t, "Orders", first.Cube)
	assert.Equal(t, q, first.Query)
	assert.Equal(t, first.FirstSeen, first.LastSeen)

	fingerprint, err := wire.Fingerprint(q)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, first.Fingerprint)

	id, err := wire.QueryID(q)
	require.NoError(t, err)
	assert.Equal(t, id.String(), first.QueryID)

	second, err := j.Record(ctx, "Orders", q, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Hits)
	assert.Equal(t, first.FirstSeen, second.FirstSeen)
	assert.Equal(t, first.LastSeen.Add(time.Minute), second.LastSeen)

	got, err := j.Get(ctx, fingerprint)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestGetUnknown(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Get(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := openTestJournal(t)
	clock := testutil.NewStepClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Second)

	a := wire.Query{Measures: []string{"Orders.count"}}
	b := wire.Query{Dimensions: []string{"Orders.status"}}
	c := wire.Query{Segments: []string{"Orders.completed"}}

	for _, q := range []wire.Query{a, b, c} {
		_, err := j.Record(ctx, "Orders", q, clock.Now())
		require.NoError(t, err)
	}
	_, err := j.Record(ctx, "Orders", a, clock.Now())
	require.NoError(t, err)

	entries, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, a, entries[0].Query)
	assert.Equal(t, 2, entries[0].Hits)
	assert.Equal(t, c, entries[1].Query)
	assert.Equal(t, b, entries[2].Query)

	limited, err := j.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListEmpty(t *testing.T) {
	j := openTestJournal(t)

	entries, err := j.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCloseNilDB(t *testing.T) {
	j := &Journal{}
	assert.NoError(t, j.Close())
}
