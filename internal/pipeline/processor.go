// Package pipeline ties the record store, cursor, exporter, statistics and
// search together behind one Processor per backend handle.
package pipeline

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/compression"
	"github.com/ajitpratap0/tenderflow/pkg/config"
	"github.com/ajitpratap0/tenderflow/pkg/cursor"
	"github.com/ajitpratap0/tenderflow/pkg/export"
	"github.com/ajitpratap0/tenderflow/pkg/logger"
	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/performance"
	"github.com/ajitpratap0/tenderflow/pkg/query"
	"github.com/ajitpratap0/tenderflow/pkg/stats"
	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// Publisher uploads a finished artifact and returns where it went.
type Publisher interface {
	Publish(ctx context.Context, path string) (string, error)
}

// SchemaEnsurer is implemented by stores that can create their own table.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// ProcessorConfig contains the settings shared by every operation.
type ProcessorConfig struct {
	BatchSize     int                   // records per backend round-trip
	ExportDir     string                // destination directory of exports
	Format        export.Format         // default export format
	Compression   compression.Algorithm // default export compression
	ProfileMemory bool                  // sample memory after every exported batch
}

// DefaultProcessorConfig returns the configuration used when none is given.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		BatchSize:   config.DefaultBatchSize,
		ExportDir:   "exports",
		Format:      export.FormatJSON,
		Compression: compression.None,
	}
}

// ProcessorConfigFrom converts the export section of a configuration.
func ProcessorConfigFrom(cfg config.ExportConfig) (*ProcessorConfig, error) {
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	algo, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConfig, "invalid export.compression")
	}
	return &ProcessorConfig{
		BatchSize:     cfg.BatchSize,
		ExportDir:     cfg.Dir,
		Format:        format,
		Compression:   algo,
		ProfileMemory: cfg.ProfileMemory,
	}, nil
}

// Processor runs tender operations against one store adapter. Every call
// reads the store afresh; nothing is cached between calls.
type Processor struct {
	adapter   store.Adapter
	config    *ProcessorConfig
	publisher Publisher
	logger    *zap.Logger
}

// NewProcessor creates a processor over adapter. A nil config uses
// DefaultProcessorConfig.
func NewProcessor(adapter store.Adapter, cfg *ProcessorConfig, log *zap.Logger) *Processor {
	if cfg == nil {
		cfg = DefaultProcessorConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		adapter: adapter,
		config:  cfg,
		logger:  log.With(zap.String("backend", adapter.Name())),
	}
}

// SetPublisher uploads every successful export through p.
func (p *Processor) SetPublisher(pub Publisher) {
	p.publisher = pub
}

// Adapter returns the underlying store.
func (p *Processor) Adapter() store.Adapter { return p.adapter }

// ExportRequest overrides the configured export settings for one call.
// Zero values fall back to the processor configuration.
type ExportRequest struct {
	Format      export.Format
	Compression compression.Algorithm
	Name        string
	// Publish uploads the artifact when a publisher is set
	Publish bool
}

// ExportResult describes a committed export.
type ExportResult struct {
	*export.Result
	// URI is set when the artifact was published
	URI string `json:"uri,omitempty"`
	// PeakMemory is set when memory profiling is enabled
	PeakMemory *performance.Usage `json:"peak_memory,omitempty"`
}

// Export streams the whole store into a new artifact.
func (p *Processor) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	format := req.Format
	if format == "" {
		format = p.config.Format
	}
	algo := req.Compression
	if algo == "" {
		algo = p.config.Compression
	}

	cur, err := p.cursor()
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, p.logger)
	opts := export.Options{
		Dir:         p.config.ExportDir,
		Name:        req.Name,
		Format:      format,
		Compression: algo,
		Logger:      log,
	}

	var probe *performance.MemoryProbe
	if p.config.ProfileMemory {
		probe = performance.NewMemoryProbe(log)
		opts.Observer = probe
	}

	res, err := export.Run(ctx, cur, opts)
	if err != nil {
		return nil, err
	}
	out := &ExportResult{Result: res}

	if probe != nil {
		probe.Report()
		peak := probe.Peak()
		out.PeakMemory = &peak
	}

	if req.Publish {
		if p.publisher == nil {
			return out, tendererrors.New(tendererrors.ErrorTypeConfig, "publishing requested but no publisher is configured").
				WithDetail("path", res.Path)
		}
		uri, err := p.publisher.Publish(ctx, res.Path)
		if err != nil {
			return out, err
		}
		out.URI = uri
	}
	return out, nil
}

// Statistics returns a fresh snapshot of the store.
func (p *Processor) Statistics(ctx context.Context) (*models.Snapshot, error) {
	return stats.Compute(ctx, p.adapter,
		stats.WithBatchSize(p.config.BatchSize),
		stats.WithLogger(logger.WithContext(ctx, p.logger)))
}

// SearchResult holds ranked matches and any dropped filter parameters.
type SearchResult struct {
	Records  []models.Record `json:"records"`
	Total    int             `json:"total"`
	Warnings []query.Warning `json:"warnings,omitempty"`
}

// Search materializes the store, applies the filter parameters and ranks the
// matches by keyword score and deadline. A positive limit truncates the result
// after ranking.
func (p *Processor) Search(ctx context.Context, params map[string]string, keywords string, limit int) (*SearchResult, error) {
	filter, warnings := query.ParseFilter(params)
	for _, w := range warnings {
		p.logger.Warn("Ignoring malformed filter",
			zap.String("param", w.Param),
			zap.String("value", w.Value),
			zap.String("reason", w.Message))
	}

	cur, err := p.cursor()
	if err != nil {
		return nil, err
	}
	matched := []models.Record{}
	for batch, err := range cur.All(ctx) {
		if err != nil {
			return nil, err
		}
		matched = append(matched, filter.Apply(batch.Records)...)
	}

	ranked := query.Rank(matched, keywords)
	total := len(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return &SearchResult{Records: ranked, Total: total, Warnings: warnings}, nil
}

// Get returns the record with the given tender ID, asking the store directly
// when it supports lookups and scanning otherwise.
func (p *Processor) Get(ctx context.Context, id string) (*models.Record, error) {
	if f, ok := p.adapter.(store.Finder); ok {
		return f.FindByID(ctx, id)
	}

	cur, err := p.cursor()
	if err != nil {
		return nil, err
	}
	for batch, err := range cur.All(ctx) {
		if err != nil {
			return nil, err
		}
		for i := range batch.Records {
			if batch.Records[i].ID == id {
				r := batch.Records[i]
				return &r, nil
			}
		}
	}
	return nil, tendererrors.Newf(tendererrors.ErrorTypeNotFound, "tender %q not found", id)
}

// Load streams a JSON array of records from r into the store in batches and
// returns the number of records inserted.
func (p *Processor) Load(ctx context.Context, r io.Reader) (int, error) {
	w, ok := p.adapter.(store.Writer)
	if !ok {
		return 0, tendererrors.Newf(tendererrors.ErrorTypeValidation, "%s store does not accept inserts", p.adapter.Name())
	}
	if s, ok := p.adapter.(SchemaEnsurer); ok {
		if err := s.EnsureSchema(ctx); err != nil {
			return 0, err
		}
	}

	n, err := store.DecodeJSON(r, p.config.BatchSize, func(batch []models.Record) error {
		return w.Insert(ctx, batch)
	})
	if err != nil {
		return n, err
	}
	p.logger.Info("Loaded records", zap.Int("records", n))
	return n, nil
}

func (p *Processor) cursor() (*cursor.Cursor, error) {
	return cursor.New(p.adapter,
		cursor.WithBatchSize(p.config.BatchSize),
		cursor.WithLogger(p.logger))
}
