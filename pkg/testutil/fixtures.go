package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	jsonpool "github.com/ajitpratap0/tenderflow/pkg/json"
	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// Day parses a YYYY-MM-DD date as a naive UTC midnight.
func Day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// Tenders returns three tenders across two cities and two categories:
//
//	T1 Delhi Jal Board  IT Services       Delhi   500000  2025-11-20
//	T2 AIIMS            Medical Supplies  Delhi   250000  2025-10-05
//	T3 Mumbai Metro     IT Services       Mumbai  100000  2025-12-01
func Tenders() []models.Record {
	return []models.Record{
		{ID: "T1", Organization: "Delhi Jal Board", Category: "IT Services", Location: "Delhi",
			Value: 500000, Deadline: Day("2025-11-20"), Description: "Software maintenance", Link: "https://example.org/t1"},
		{ID: "T2", Organization: "AIIMS", Category: "Medical Supplies", Location: "Delhi",
			Value: 250000, Deadline: Day("2025-10-05"), Description: "Medical equipment procurement", Link: "https://example.org/t2"},
		{ID: "T3", Organization: "Mumbai Metro", Category: "IT Services", Location: "Mumbai",
			Value: 100000, Deadline: Day("2025-12-01"), Description: "Network upgrade", Link: "https://example.org/t3"},
	}
}

var (
	orgs       = []string{"Delhi Jal Board", "AIIMS", "Mumbai Metro", "Indian Railways", "NHAI"}
	categories = []string{"IT Services", "Medical Supplies", "Construction", "Consulting"}
	locations  = []string{"Delhi", "Mumbai", "Chennai", "Kolkata", "Pune", "Jaipur"}
)

// GenerateTenders builds n deterministic tenders with IDs G00000, G00001, ...
func GenerateTenders(n int) []models.Record {
	out := make([]models.Record, n)
	base := Day("2025-01-01")
	for i := range out {
		out[i] = models.Record{
			ID:           fmt.Sprintf("G%05d", i),
			Organization: orgs[i%len(orgs)],
			Category:     categories[i%len(categories)],
			Location:     locations[i%len(locations)],
			Value:        float64(1000 * (i + 1)),
			Deadline:     base.AddDate(0, 0, i%365),
			Description:  fmt.Sprintf("Generated tender %d", i),
			Link:         fmt.Sprintf("https://example.org/g/%d", i),
		}
	}
	return out
}

// WriteSeedFile writes records as a JSON array into a temp dir and returns its path.
func WriteSeedFile(t *testing.T, records []models.Record) string {
	t.Helper()

	data, err := jsonpool.Marshal(records)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tenders.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
