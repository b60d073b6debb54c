// Package store provides the record store adapters the pipeline reads from.
//
// Every backend exposes the same two primitives: a total count and a slice of
// records at an (offset, limit) position in a stable backend ordering. Native
// aggregation, lookup by ID and bulk insert are optional capabilities that a
// caller discovers with a type assertion:
//
//	if agg, ok := adapter.(store.Aggregator); ok {
//	    return agg.Aggregate(ctx)
//	}
//
// Adapters return normalized records and never cache between calls.
package store

import (
	"context"

	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// Adapter is the uniform read interface over a record store.
type Adapter interface {
	// Name identifies the backend in logs and metric labels
	Name() string
	// Count returns the number of records currently in the store
	Count(ctx context.Context) (int64, error)
	// Fetch returns up to limit records starting at offset. Offsets past the
	// end yield an empty slice, not an error.
	Fetch(ctx context.Context, offset, limit int) ([]models.Record, error)
}

// Aggregator is implemented by backends that compute statistics natively.
type Aggregator interface {
	Aggregate(ctx context.Context) (*models.Snapshot, error)
}

// Finder is implemented by backends that look records up by tender ID.
// A missing record is reported with tendererrors.ErrorTypeNotFound.
type Finder interface {
	FindByID(ctx context.Context, id string) (*models.Record, error)
}

// Writer is implemented by backends that accept new records.
type Writer interface {
	Insert(ctx context.Context, records []models.Record) error
}

// Capability names reported by Capabilities.
const (
	CapabilityAggregate = "aggregate"
	CapabilityFind      = "find"
	CapabilityInsert    = "insert"
)

// Capabilities lists the optional interfaces a implements.
func Capabilities(a Adapter) []string {
	caps := []string{}
	if _, ok := a.(Aggregator); ok {
		caps = append(caps, CapabilityAggregate)
	}
	if _, ok := a.(Finder); ok {
		caps = append(caps, CapabilityFind)
	}
	if _, ok := a.(Writer); ok {
		caps = append(caps, CapabilityInsert)
	}
	return caps
}

// clamp bounds an (offset, limit) window to [0, total].
func clamp(offset, limit, total int) (start, end int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	start = min(offset, total)
	if limit > total-start {
		limit = total - start
	}
	return start, start + limit
}

func normalizeAll(records []models.Record) {
	for i := range records {
		records[i].Normalize()
	}
}
