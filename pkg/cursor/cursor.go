// Package cursor turns a store adapter's count/fetch primitives into a lazy,
// finite sequence of fixed-stride batches.
//
// The cursor never prefetches: each call to Next performs exactly one fetch.
// It stops on the first empty fetch rather than on a precomputed count, so
// records added or removed while iterating never cause an out-of-range read.
// Offsets are positional, so concurrent writes can still shift records
// between batches.
//
//	cur, err := cursor.New(adapter, cursor.WithBatchSize(500))
//	if err != nil {
//	    return err
//	}
//	for batch, err := range cur.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    process(batch)
//	}
package cursor

import (
	"context"
	"iter"
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// DefaultBatchSize is the stride used when none is configured.
const DefaultBatchSize = 1000

// Option configures a Cursor.
type Option func(*Cursor)

// WithBatchSize sets the stride. Values below 1 make New fail.
func WithBatchSize(n int) Option {
	return func(c *Cursor) { c.batchSize = n }
}

// WithLogger sets the logger used for per-batch debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cursor) { c.logger = l }
}

// Cursor is a single-use batch iterator. It is not safe for concurrent use.
type Cursor struct {
	adapter   store.Adapter
	batchSize int
	logger    *zap.Logger

	offset  int
	batches int
	records int
	done    bool
	err     error
}

// New creates a cursor positioned at offset 0.
func New(adapter store.Adapter, opts ...Option) (*Cursor, error) {
	c := &Cursor{
		adapter:   adapter,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.batchSize < 1 {
		return nil, tendererrors.New(tendererrors.ErrorTypeValidation, "batch size must be at least 1").
			WithDetail("batch_size", c.batchSize)
	}
	if adapter == nil {
		return nil, tendererrors.New(tendererrors.ErrorTypeValidation, "cursor requires a store adapter")
	}
	return c, nil
}

// Next fetches the next batch. An empty batch with a nil error means the
// sequence is exhausted. After an error the cursor is finished and Err
// reports the failure.
func (c *Cursor) Next(ctx context.Context) (models.Batch, error) {
	if c.done {
		return models.Batch{}, nil
	}
	if err := ctx.Err(); err != nil {
		c.finish(err)
		return models.Batch{}, err
	}

	records, err := c.adapter.Fetch(ctx, c.offset, c.batchSize)
	if err != nil {
		c.finish(err)
		return models.Batch{}, err
	}
	if len(records) == 0 {
		c.finish(nil)
		c.logger.Debug("Cursor exhausted",
			zap.Int("batches", c.batches),
			zap.Int("records", c.records))
		return models.Batch{}, nil
	}
	if len(records) > c.batchSize {
		records = records[:c.batchSize]
	}

	c.batches++
	batch := models.Batch{
		Ordinal: c.batches,
		Offset:  c.offset,
		Records: records,
	}
	c.records += len(records)
	if c.offset > math.MaxInt-c.batchSize {
		// No further offset is addressable.
		c.finish(nil)
	} else {
		c.offset += c.batchSize
	}

	c.logger.Debug("Fetched batch",
		zap.Int("ordinal", batch.Ordinal),
		zap.Int("offset", batch.Offset),
		zap.Int("size", batch.Len()))
	return batch, nil
}

// All returns the remaining batches as an iterator. Iteration ends after
// the first error is yielded.
func (c *Cursor) All(ctx context.Context) iter.Seq2[models.Batch, error] {
	return func(yield func(models.Batch, error) bool) {
		for {
			batch, err := c.Next(ctx)
			if err != nil {
				yield(models.Batch{}, err)
				return
			}
			if batch.Empty() {
				return
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// Collect drains the cursor into a single slice.
func (c *Cursor) Collect(ctx context.Context) ([]models.Record, error) {
	var out []models.Record
	for batch, err := range c.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, batch.Records...)
	}
	return out, nil
}

// BatchSize returns the stride.
func (c *Cursor) BatchSize() int { return c.batchSize }

// Batches returns the number of batches yielded so far.
func (c *Cursor) Batches() int { return c.batches }

// Records returns the number of records yielded so far.
func (c *Cursor) Records() int { return c.records }

// Adapter returns the store the cursor reads from.
func (c *Cursor) Adapter() store.Adapter { return c.adapter }

// Err returns the error that terminated the cursor, if any.
func (c *Cursor) Err() error { return c.err }

func (c *Cursor) finish(err error) {
	c.done = true
	c.err = err
}
