package docstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMovies(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := map[string]map[string]any{
		"m1": {"title": "Dune", "genre": []string{"Sci-Fi", "Drama"}, "ticketPrice": 12.5, "createdAt": base},
		"m2": {"title": "Heat", "genre": []any{"Crime", "Drama"}, "ticketPrice": 10, "createdAt": base.Add(time.Hour)},
		"m3": {"title": "Alien", "genre": []string{"Sci-Fi", "Horror"}, "ticketPrice": int64(9), "createdAt": base.Add(2 * time.Hour)},
	}
	for id, d := range docs {
		require.NoError(t, m.Set(ctx, "movies", id, d))
	}
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "movies", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryQueryFilters(t *testing.T) {
	m := NewMemory()
	seedMovies(t, m)
	ctx := context.Background()

	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"all by id", Query{}, []string{"m1", "m2", "m3"}},
		{"eq", Query{}.Where("title", OpEq, "Heat"), []string{"m2"}},
		{"ne", Query{}.Where("title", OpNe, "Heat"), []string{"m1", "m3"}},
		{"mixed numeric types", Query{}.Where("ticketPrice", OpGte, 10), []string{"m1", "m2"}},
		{"lt", Query{}.Where("ticketPrice", OpLt, 10.0), []string{"m3"}},
		{"in", Query{}.Where("title", OpIn, []string{"Dune", "Alien"}), []string{"m1", "m3"}},
		{"array-contains", Query{}.Where("genre", OpArrayContains, "Drama"), []string{"m1", "m2"}},
		{"array-contains-any", Query{}.Where("genre", OpArrayContainsAny, []string{"Horror", "Crime"}), []string{"m2", "m3"}},
		{"missing field", Query{}.Where("rating", OpNe, "R"), []string{}},
		{"order desc limit", Query{}.Order("createdAt", Desc).Take(2), []string{"m3", "m2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs, err := m.Query(ctx, "movies", tc.q)
			require.NoError(t, err)
			ids := []string{}
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestMemoryInvalidOperator(t *testing.T) {
	m := NewMemory()
	_, err := m.Query(context.Background(), "movies", Query{}.Where("title", Op("like"), "D%"))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestMemoryUpdateMergesAndStamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "movies", "m1", map[string]any{"title": "Dune", "rating": "PG-13"}))

	require.NoError(t, m.Update(ctx, "movies", "m1", map[string]any{"title": "Dune: Part Two", "updatedAt": ServerTimestamp}))
	doc, err := m.Get(ctx, "movies", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part Two", doc.Data["title"])
	assert.Equal(t, "PG-13", doc.Data["rating"])
	assert.Equal(t, now, doc.Data["updatedAt"])

	assert.ErrorIs(t, m.Update(ctx, "movies", "ghost", map[string]any{"title": "x"}), ErrNotFound)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.Add(ctx, "bookings", map[string]any{"seats": []any{"A1"}})
	require.NoError(t, err)

	doc, err := m.Get(ctx, "bookings", id)
	require.NoError(t, err)
	doc.Data["seats"].([]any)[0] = "Z9"

	again, err := m.Get(ctx, "bookings", id)
	require.NoError(t, err)
	assert.Equal(t, []any{"A1"}, again.Data["seats"])
}

func TestMemoryDeleteIsUnconditional(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	assert.NoError(t, m.Delete(ctx, "movies", "never-existed"))
	seedMovies(t, m)
	require.NoError(t, m.Delete(ctx, "movies", "m1"))
	_, err := m.Get(ctx, "movies", "m1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Get(ctx, "movies", "m1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryCreateOnlyOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, "emails", "k", map[string]any{"uid": "u1"}))
	assert.ErrorIs(t, m.Create(ctx, "emails", "k", map[string]any{"uid": "u2"}), ErrAlreadyExists)

	doc, err := m.Get(ctx, "emails", "k")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.Data["uid"])
}

func TestMemoryCreateConcurrent(t *testing.T) {
	m := NewMemory()
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Create(context.Background(), "emails", "k", map[string]any{}) == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
}
