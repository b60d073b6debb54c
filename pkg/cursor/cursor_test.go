package cursor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

func records(n int) []models.Record {
	out := make([]models.Record, n)
	for i := range out {
		out[i] = models.Record{ID: fmt.Sprintf("T%04d", i)}
	}
	return out
}

func TestNew_InvalidBatchSize(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := New(store.NewMemoryStore(), WithBatchSize(n))
		assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeValidation), "batch size %d", n)
	}

	c, err := New(store.NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, c.BatchSize())
}

func TestCursor_BatchCount(t *testing.T) {
	tests := []struct {
		n, batchSize int
		wantBatches  int
		wantLast     int
	}{
		{0, 1000, 0, 0},
		{1, 1000, 1, 1},
		{1000, 1000, 1, 1000},
		{1001, 1000, 2, 1},
		{10, 3, 4, 1},
		{9, 3, 3, 3},
		{5, 1, 5, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/b=%d", tt.n, tt.batchSize), func(t *testing.T) {
			source := records(tt.n)
			c, err := New(store.NewMemoryStore(source...), WithBatchSize(tt.batchSize))
			require.NoError(t, err)

			var batches []models.Batch
			for batch, err := range c.All(context.Background()) {
				require.NoError(t, err)
				batches = append(batches, batch)
			}

			require.Len(t, batches, tt.wantBatches)
			var concatenated []models.Record
			for i, b := range batches {
				assert.Equal(t, i+1, b.Ordinal)
				assert.Equal(t, i*tt.batchSize, b.Offset)
				if i < len(batches)-1 {
					assert.Equal(t, tt.batchSize, b.Len())
				}
				concatenated = append(concatenated, b.Records...)
			}
			if tt.wantBatches > 0 {
				assert.Equal(t, tt.wantLast, batches[len(batches)-1].Len())
			}
			assert.Equal(t, len(source), len(concatenated))
			for i := range concatenated {
				assert.Equal(t, source[i].ID, concatenated[i].ID)
			}
			assert.Equal(t, tt.n, c.Records())
			assert.NoError(t, c.Err())
		})
	}
}

func TestCursor_SingleUse(t *testing.T) {
	c, err := New(store.NewMemoryStore(records(3)...), WithBatchSize(2))
	require.NoError(t, err)

	all, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	again, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, again.Empty())
}

// shrinkingStore reports a stale count and loses records while being read.
type shrinkingStore struct {
	*store.MemoryStore
	fetches int
}

func (s *shrinkingStore) Count(context.Context) (int64, error) { return 100, nil }

func (s *shrinkingStore) Fetch(ctx context.Context, offset, limit int) ([]models.Record, error) {
	s.fetches++
	if s.fetches == 2 {
		s.Replace(records(3))
	}
	return s.MemoryStore.Fetch(ctx, offset, limit)
}

func TestCursor_ToleratesCountDrift(t *testing.T) {
	src := &shrinkingStore{MemoryStore: store.NewMemoryStore(records(10)...)}
	c, err := New(src, WithBatchSize(2))
	require.NoError(t, err)

	got, err := c.Collect(context.Background())
	require.NoError(t, err)
	// first batch before the shrink, second batch sees records 2..3 of the new set
	assert.Len(t, got, 3)
	assert.Equal(t, 2, c.Batches())
}

type failingStore struct {
	*store.MemoryStore
	failAt int
	calls  int
}

func (s *failingStore) Fetch(ctx context.Context, offset, limit int) ([]models.Record, error) {
	s.calls++
	if s.calls == s.failAt {
		return nil, tendererrors.New(tendererrors.ErrorTypeConnection, "connection reset")
	}
	return s.MemoryStore.Fetch(ctx, offset, limit)
}

func TestCursor_ErrorTerminates(t *testing.T) {
	src := &failingStore{MemoryStore: store.NewMemoryStore(records(10)...), failAt: 2}
	c, err := New(src, WithBatchSize(3))
	require.NoError(t, err)

	var yielded int
	var gotErr error
	for batch, err := range c.All(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		yielded += batch.Len()
	}

	assert.Equal(t, 3, yielded)
	assert.True(t, tendererrors.IsType(gotErr, tendererrors.ErrorTypeConnection))
	assert.Equal(t, gotErr, c.Err())

	next, err := c.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, next.Empty())
	assert.Equal(t, 2, src.calls)
}

func TestCursor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := New(store.NewMemoryStore(records(5)...))
	require.NoError(t, err)
	_, err = c.Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

// oversizedStore ignores the limit.
type oversizedStore struct{ *store.MemoryStore }

func (s oversizedStore) Fetch(ctx context.Context, offset, _ int) ([]models.Record, error) {
	return s.MemoryStore.Fetch(ctx, offset, 1<<20)
}

func TestCursor_TruncatesOversizedFetch(t *testing.T) {
	c, err := New(oversizedStore{store.NewMemoryStore(records(5)...)}, WithBatchSize(2))
	require.NoError(t, err)

	var sizes []int
	for batch, err := range c.All(context.Background()) {
		require.NoError(t, err)
		sizes = append(sizes, batch.Len())
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestCursor_MaxBatchSize(t *testing.T) {
	ctx := context.Background()
	c, err := New(store.NewMemoryStore(records(3)...), WithBatchSize(math.MaxInt))
	require.NoError(t, err)

	var batches []models.Batch
	for batch, err := range c.All(ctx) {
		require.NoError(t, err)
		batches = append(batches, batch)
	}
	require.Len(t, batches, 1)
	assert.Equal(t, 3, batches[0].Len())
	assert.Zero(t, batches[0].Offset)

	batch, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Zero(t, batch.Len())
	assert.NoError(t, c.Err())
}
