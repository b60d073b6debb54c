// Package stats computes the statistics snapshot of a record store.
//
// Stores that aggregate natively are asked directly; every other store is
// scanned once through a cursor while an Accumulator keeps running distinct
// sets and min/max/sum/count. Both paths produce identical snapshots for the
// same data.
package stats

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/cursor"
	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/observability"
	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

const (
	pathNative = "native"
	pathScan   = "scan"
)

type options struct {
	batchSize int
	forceScan bool
	logger    *zap.Logger
}

// Option configures Compute.
type Option func(*options)

// WithBatchSize sets the cursor stride of the scan path.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithForceScan makes Compute scan even when the store aggregates natively.
func WithForceScan() Option {
	return func(o *options) { o.forceScan = true }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Compute returns a fresh snapshot of the records in a. Nothing is cached
// between calls.
func Compute(ctx context.Context, a store.Adapter, opts ...Option) (*models.Snapshot, error) {
	if a == nil {
		return nil, tendererrors.New(tendererrors.ErrorTypeValidation, "statistics require a store adapter")
	}
	o := options{batchSize: cursor.DefaultBatchSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	path := pathScan
	agg, native := a.(store.Aggregator)
	if native && !o.forceScan {
		path = pathNative
	}

	ctx, span := observability.StartSpan(ctx, "stats.compute",
		attribute.String("backend", a.Name()),
		attribute.String("path", path))
	metrics.StatsRequests.WithLabelValues(a.Name(), path).Inc()

	var (
		snap *models.Snapshot
		err  error
	)
	if path == pathNative {
		snap, err = agg.Aggregate(ctx)
	} else {
		snap, err = scan(ctx, a, o)
	}
	span.End(err)
	if err != nil {
		return nil, err
	}
	if snap.Fields == nil {
		snap.Fields = []string{}
	}

	o.logger.Debug("Computed statistics",
		zap.String("backend", a.Name()),
		zap.String("path", path),
		zap.Int64("total_records", snap.TotalRecords))
	return snap, nil
}

func scan(ctx context.Context, a store.Adapter, o options) (*models.Snapshot, error) {
	cur, err := cursor.New(a, cursor.WithBatchSize(o.batchSize), cursor.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	acc := NewAccumulator()
	for batch, err := range cur.All(ctx) {
		if err != nil {
			return nil, err
		}
		acc.Add(batch)
	}
	return acc.Snapshot(), nil
}
