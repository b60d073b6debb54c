// Package performance samples process memory while an export runs, so the
// bounded-memory behavior of batch streaming can be observed on real data.
package performance

import (
	"os"
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// Usage is one memory sample.
type Usage struct {
	RSS       uint64
	HeapInuse uint64
}

// MemoryProbe records peak memory after every observed batch.
type MemoryProbe struct {
	mu      sync.Mutex
	proc    *process.Process
	logger  *zap.Logger
	samples int
	peak    Usage
	first   Usage
}

// NewMemoryProbe creates a probe for the current process. RSS is reported
// as zero where the platform does not expose it.
func NewMemoryProbe(logger *zap.Logger) *MemoryProbe {
	if logger == nil {
		logger = zap.NewNop()
	}
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		logger.Debug("Process memory unavailable", zap.Error(err))
		proc = nil
	}
	return &MemoryProbe{proc: proc, logger: logger}
}

// Sample reads current memory usage.
func (p *MemoryProbe) Sample() Usage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	u := Usage{HeapInuse: ms.HeapInuse}
	if p.proc != nil {
		if info, err := p.proc.MemoryInfo(); err == nil {
			u.RSS = info.RSS
		}
	}
	return u
}

// ObserveBatch samples memory after a batch has been written.
func (p *MemoryProbe) ObserveBatch(batch models.Batch) {
	u := p.Sample()

	p.mu.Lock()
	if p.samples == 0 {
		p.first = u
	}
	p.samples++
	p.peak.RSS = max(p.peak.RSS, u.RSS)
	p.peak.HeapInuse = max(p.peak.HeapInuse, u.HeapInuse)
	p.mu.Unlock()

	p.logger.Debug("Batch memory",
		zap.Int("ordinal", batch.Ordinal),
		zap.Int("records", batch.Len()),
		zap.Uint64("rss_bytes", u.RSS),
		zap.Uint64("heap_inuse_bytes", u.HeapInuse))
}

// Samples returns the number of batches observed.
func (p *MemoryProbe) Samples() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samples
}

// Peak returns the highest values sampled.
func (p *MemoryProbe) Peak() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak
}

// Report logs the peak and growth since the first sample and publishes the
// peak to the tenderflow_export_peak_memory_bytes gauge.
func (p *MemoryProbe) Report() {
	p.mu.Lock()
	peak, first, samples := p.peak, p.first, p.samples
	p.mu.Unlock()

	metrics.PeakMemory.WithLabelValues("rss").Set(float64(peak.RSS))
	metrics.PeakMemory.WithLabelValues("heap").Set(float64(peak.HeapInuse))

	fields := []zap.Field{
		zap.Int("samples", samples),
		zap.Uint64("peak_rss_bytes", peak.RSS),
		zap.Uint64("peak_heap_inuse_bytes", peak.HeapInuse),
		zap.Int64("heap_growth_bytes", int64(peak.HeapInuse)-int64(first.HeapInuse)), //nolint:gosec
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
		fields = append(fields, zap.Float64("peak_rss_percent", float64(peak.RSS)/float64(vm.Total)*100))
	}
	p.logger.Info("Export memory profile", fields...)
}
