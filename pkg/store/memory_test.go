package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

func memoryFixture(n int) *MemoryStore {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{ID: string(rune('A' + i)), Organization: "Org"}
	}
	return NewMemoryStore(records...)
}

func TestMemoryStore_FetchClamping(t *testing.T) {
	ctx := context.Background()
	s := memoryFixture(5)

	tests := []struct {
		name          string
		offset, limit int
		wantIDs       []string
	}{
		{"first page", 0, 2, []string{"A", "B"}},
		{"short tail", 4, 2, []string{"E"}},
		{"at end", 5, 2, []string{}},
		{"past end", 50, 2, []string{}},
		{"negative offset", -3, 1, []string{"A"}},
		{"zero limit", 1, 0, []string{}},
		{"huge limit", 3, 1 << 30, []string{"D", "E"}},
		{"max int limit", 1, math.MaxInt, []string{"B", "C", "D", "E"}},
		{"max int offset and limit", math.MaxInt, math.MaxInt, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Fetch(ctx, tt.offset, tt.limit)
			require.NoError(t, err)
			ids := make([]string, len(got))
			for i, r := range got {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryStore_CountAndNormalize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(models.Record{Organization: "PWD"})

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Fetch(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.DefaultID, got[0].ID)
	assert.Equal(t, models.DefaultLocation, got[0].Location)
}

func TestMemoryStore_FetchReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := memoryFixture(2)

	got, err := s.Fetch(ctx, 0, 2)
	require.NoError(t, err)
	got[0].ID = "mutated"

	again, err := s.Fetch(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", again[0].ID)
}

func TestMemoryStore_InsertReplaceFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Insert(ctx, []models.Record{{ID: "T1"}, {ID: "T2"}}))
	r, err := s.FindByID(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, "T2", r.ID)

	s.Replace([]models.Record{{ID: "T9"}})
	n, _ := s.Count(ctx)
	assert.Equal(t, int64(1), n)

	_, err = s.FindByID(ctx, "T1")
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeNotFound))
}

func TestMemoryStore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := memoryFixture(1).Fetch(ctx, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, []string{CapabilityFind, CapabilityInsert}, Capabilities(NewMemoryStore()))
}
