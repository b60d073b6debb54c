// Package export streams the batches of a cursor into a file artifact.
//
// Records are written as soon as their batch arrives, so memory is bounded
// by one batch plus encoder buffers regardless of dataset size. The output
// file is built under a temporary name in the destination directory and
// renamed into place only once it is complete; a failed or cancelled export
// leaves nothing at the final path.
//
// Supported formats:
//   - json: a single JSON array
//   - jsonl: one JSON object per line
//   - xlsx: a workbook with a Batch_N sheet per batch and a Summary sheet
//   - avro: an Avro object container file with one block per batch
package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/linkedin/goavro/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/compression"
	"github.com/ajitpratap0/tenderflow/pkg/cursor"
	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/observability"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// Format is an export file format.
type Format string

const (
	FormatJSON      Format = "json"
	FormatJSONLines Format = "jsonl"
	FormatWorkbook  Format = "xlsx"
	FormatAvro      Format = "avro"
)

// ParseFormat resolves a format name. "excel" and "ndjson" are accepted aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONLines, nil
	case "xlsx", "excel":
		return FormatWorkbook, nil
	case "avro":
		return FormatAvro, nil
	}
	return "", tendererrors.Newf(tendererrors.ErrorTypeValidation, "unsupported export format %q", name)
}

// Extension returns the file suffix for f.
func (f Format) Extension() string { return "." + string(f) }

// Observer is notified after each batch has been written.
type Observer interface {
	ObserveBatch(batch models.Batch)
}

// Options configures an export.
type Options struct {
	// Dir is the destination directory. It is created when missing.
	Dir string
	// Name is the file name. Without one, tenders_export_<timestamp> is used.
	// The format and compression extensions are appended when absent.
	Name        string
	Format      Format
	Compression compression.Algorithm
	Observer    Observer
	Logger      *zap.Logger
	// Clock returns the export timestamp; time.Now when nil
	Clock func() time.Time
}

// Summary describes a finished export. The workbook writes it to its
// Summary sheet.
type Summary struct {
	Batches    int
	Records    int
	ExportedAt time.Time
}

// Result describes a committed artifact.
type Result struct {
	Path        string        `json:"path"`
	Format      Format        `json:"format"`
	Compression string        `json:"compression"`
	Batches     int           `json:"batches"`
	Records     int           `json:"records"`
	Bytes       int64         `json:"bytes"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

type sink interface {
	WriteBatch(batch models.Batch) error
	Finish(sum Summary) error
}

// Run drains cur into a new artifact and returns its description.
func Run(ctx context.Context, cur *cursor.Cursor, opts Options) (result *Result, err error) {
	if cur == nil {
		return nil, tendererrors.New(tendererrors.ErrorTypeValidation, "export requires a cursor")
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if opts.Compression == "" {
		opts.Compression = compression.None
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}

	blockCodec, err := validateCompression(opts.Format, opts.Compression)
	if err != nil {
		return nil, err
	}

	started := opts.Clock()
	name, err := fileName(opts, started)
	if err != nil {
		return nil, err
	}

	log := opts.Logger.With(zap.String("format", string(opts.Format)), zap.String("file", name))
	ctx, span := observability.StartSpan(ctx, "export.run",
		attribute.String("format", string(opts.Format)),
		attribute.String("compression", string(opts.Compression)),
		attribute.Int("batch_size", cur.BatchSize()))
	timer := metrics.NewTimer()

	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.ExportDuration.WithLabelValues(string(opts.Format), status).Observe(timer.Stop().Seconds())
		span.End(err)
	}()

	art, err := createArtifact(opts.Dir, name)
	if err != nil {
		return nil, err
	}
	defer art.abort()

	var body io.WriteCloser = nopCloser{art.Writer()}
	if opts.Format == FormatJSON || opts.Format == FormatJSONLines {
		body, err = compression.NewWriter(art.Writer(), opts.Compression, compression.Default)
		if err != nil {
			return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeValidation, "failed to create compressor")
		}
	}

	out, err := newSink(opts.Format, body, blockCodec)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to start export")
	}

	log.Info("Starting export", zap.String("dir", opts.Dir), zap.Int("batch_size", cur.BatchSize()))

	sum := Summary{}
	for batch, ferr := range cur.All(ctx) {
		if ferr != nil {
			metrics.ExportRecords.WithLabelValues(string(opts.Format), "failure").Add(float64(sum.Records))
			log.Error("Export aborted", zap.Int("batches_written", sum.Batches), zap.Error(ferr))
			return nil, ferr
		}
		if werr := out.WriteBatch(batch); werr != nil {
			return nil, tendererrors.Wrap(werr, tendererrors.ErrorTypeIO, "failed to write batch").
				WithDetail("ordinal", batch.Ordinal)
		}

		sum.Batches++
		sum.Records += batch.Len()
		metrics.ExportBatches.WithLabelValues(string(opts.Format)).Inc()
		span.AddEvent("batch", attribute.Int("ordinal", batch.Ordinal), attribute.Int("records", batch.Len()))
		if opts.Observer != nil {
			opts.Observer.ObserveBatch(batch)
		}
		log.Debug("Wrote batch", zap.Int("ordinal", batch.Ordinal), zap.Int("records", batch.Len()))
	}

	sum.ExportedAt = opts.Clock()
	if err := out.Finish(sum); err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to finalize export")
	}
	if err := body.Close(); err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to flush compressor")
	}
	if err := art.commit(); err != nil {
		return nil, err
	}

	result = &Result{
		Path:        art.final,
		Format:      opts.Format,
		Compression: string(opts.Compression),
		Batches:     sum.Batches,
		Records:     sum.Records,
		Bytes:       art.Bytes(),
		StartedAt:   started,
		Duration:    opts.Clock().Sub(started),
	}
	metrics.ExportRecords.WithLabelValues(string(opts.Format), "success").Add(float64(sum.Records))
	span.SetAttribute("records", sum.Records)
	log.Info("Export complete",
		zap.String("path", result.Path),
		zap.Int("batches", result.Batches),
		zap.Int("records", result.Records),
		zap.Int64("bytes", result.Bytes))
	return result, nil
}

func newSink(format Format, w io.Writer, blockCodec string) (sink, error) {
	switch format {
	case FormatJSON:
		return newJSONSink(w, true)
	case FormatJSONLines:
		return newJSONSink(w, false)
	case FormatWorkbook:
		return newWorkbookSink(w)
	case FormatAvro:
		return newAvroSink(w, blockCodec)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// validateCompression checks the algorithm fits the format. Workbooks are
// already zip archives; Avro compresses its own blocks with deflate or snappy.
func validateCompression(format Format, algo compression.Algorithm) (string, error) {
	switch format {
	case FormatJSON, FormatJSONLines:
		if _, err := compression.ParseAlgorithm(string(algo)); err != nil {
			return "", tendererrors.Wrap(err, tendererrors.ErrorTypeValidation, "invalid compression")
		}
		return "", nil
	case FormatWorkbook:
		if algo != compression.None {
			return "", tendererrors.Newf(tendererrors.ErrorTypeValidation, "%s exports cannot be compressed", format)
		}
		return "", nil
	case FormatAvro:
		switch algo {
		case compression.None:
			return goavro.CompressionNullLabel, nil
		case compression.Deflate:
			return goavro.CompressionDeflateLabel, nil
		case compression.Snappy:
			return goavro.CompressionSnappyLabel, nil
		}
		return "", tendererrors.Newf(tendererrors.ErrorTypeValidation, "avro exports support deflate or snappy compression, not %s", algo)
	}
	return "", tendererrors.Newf(tendererrors.ErrorTypeValidation, "unsupported export format %q", format)
}

func fileName(opts Options, now time.Time) (string, error) {
	name := opts.Name
	if name == "" {
		name = "tenders_export_" + now.Format("20060102_150405")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", tendererrors.Newf(tendererrors.ErrorTypeValidation, "export name %q must be a plain file name", name)
	}

	ext := opts.Format.Extension()
	if opts.Format == FormatJSON || opts.Format == FormatJSONLines {
		ext += opts.Compression.Extension()
	}
	if !strings.HasSuffix(name, ext) {
		name = strings.TrimSuffix(name, opts.Format.Extension()) + ext
	}
	return name, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
