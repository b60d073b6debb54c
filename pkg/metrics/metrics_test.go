package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(5 * time.Millisecond)
	first := timer.Stop()
	assert.GreaterOrEqual(t, first, 5*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), first)
}

func TestExportRecords(t *testing.T) {
	before := testutil.ToFloat64(ExportRecords.WithLabelValues("json", "success"))
	ExportRecords.WithLabelValues("json", "success").Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(ExportRecords.WithLabelValues("json", "success")))
}

func TestWriteTextfile(t *testing.T) {
	StatsRequests.WithLabelValues("memory", "scan").Inc()

	path := filepath.Join(t.TempDir(), "tenderflow.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tenderflow_stats_requests_total")
}
