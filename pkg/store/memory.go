package store

import (
	"context"
	"sync"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// MemoryStore is an in-process document store used when no database is
// configured. It has no native aggregation; statistics scan it.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.Record
}

// NewMemoryStore creates a store holding normalized copies of records.
func NewMemoryStore(records ...models.Record) *MemoryStore {
	s := &MemoryStore{}
	s.records = copyNormalized(records)
	return s
}

// Name returns "memory".
func (s *MemoryStore) Name() string { return "memory" }

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Fetch returns a copy of the records in [offset, offset+limit) clamped to
// the stored range.
func (s *MemoryStore) Fetch(ctx context.Context, offset, limit int) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end := clamp(offset, limit, len(s.records))
	out := make([]models.Record, end-start)
	copy(out, s.records[start:end])
	return out, nil
}

// FindByID returns the first record with the given tender ID.
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].ID == id {
			r := s.records[i]
			return &r, nil
		}
	}
	return nil, tendererrors.Newf(tendererrors.ErrorTypeNotFound, "tender %s not found", id)
}

// Insert appends records to the store.
func (s *MemoryStore) Insert(ctx context.Context, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized := copyNormalized(records)
	s.mu.Lock()
	s.records = append(s.records, normalized...)
	s.mu.Unlock()
	return nil
}

// Replace discards every stored record and stores records instead.
func (s *MemoryStore) Replace(records []models.Record) {
	normalized := copyNormalized(records)
	s.mu.Lock()
	s.records = normalized
	s.mu.Unlock()
}

func copyNormalized(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	normalizeAll(out)
	return out
}
