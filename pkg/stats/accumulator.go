package stats

import (
	"github.com/ajitpratap0/tenderflow/pkg/models"
)

// Accumulator folds batches into running statistics. It holds one set entry
// per distinct organization, category and location, never the records.
type Accumulator struct {
	count         int64
	sum, min, max float64
	organizations map[string]struct{}
	categories    map[string]struct{}
	locations     map[string]struct{}
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		organizations: make(map[string]struct{}),
		categories:    make(map[string]struct{}),
		locations:     make(map[string]struct{}),
	}
}

// Add folds every record of batch.
func (a *Accumulator) Add(batch models.Batch) {
	for i := range batch.Records {
		a.AddRecord(batch.Records[i])
	}
}

// AddRecord folds a single record.
func (a *Accumulator) AddRecord(r models.Record) {
	if a.count == 0 || r.Value < a.min {
		a.min = r.Value
	}
	if a.count == 0 || r.Value > a.max {
		a.max = r.Value
	}
	a.count++
	a.sum += r.Value
	a.organizations[r.Organization] = struct{}{}
	a.categories[r.Category] = struct{}{}
	a.locations[r.Location] = struct{}{}
}

// Count returns the number of records folded so far.
func (a *Accumulator) Count() int64 { return a.count }

// Snapshot returns the statistics of everything added. With no records the
// snapshot is zeroed and the mean is 0.
func (a *Accumulator) Snapshot() *models.Snapshot {
	if a.count == 0 {
		return models.EmptySnapshot()
	}
	return &models.Snapshot{
		TotalRecords:        a.count,
		UniqueOrganizations: int64(len(a.organizations)),
		UniqueCategories:    int64(len(a.categories)),
		UniqueLocations:     int64(len(a.locations)),
		MaxTenderValue:      a.max,
		MinTenderValue:      a.min,
		AvgTenderValue:      a.sum / float64(a.count),
		Fields:              models.FieldNames(),
	}
}
