package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
	"github.com/ajitpratap0/tenderflow/pkg/testutil"
)

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func mustFilter(t *testing.T, params map[string]string) Filter {
	t.Helper()
	f, warnings := ParseFilter(params)
	require.Empty(t, warnings)
	return f
}

func TestFilter_Apply(t *testing.T) {
	records := testutil.Tenders()

	tests := []struct {
		name   string
		params map[string]string
		want   []string
	}{
		{"no filters", nil, []string{"T1", "T2", "T3"}},
		{"location", map[string]string{"location": "Delhi"}, []string{"T1", "T2"}},
		{"location and category", map[string]string{"location": "Delhi", "category": "IT Services"}, []string{"T1"}},
		{"organization case-insensitive", map[string]string{"organization": "aiims"}, []string{"T2"}},
		{"category substring", map[string]string{"category": "services"}, []string{"T1", "T3"}},
		{"min value inclusive", map[string]string{"min_value": "250000"}, []string{"T1", "T2"}},
		{"max value inclusive", map[string]string{"max_value": "250000"}, []string{"T2", "T3"}},
		{"value range", map[string]string{"min_value": "200000", "max_value": "300000"}, []string{"T2"}},
		{"deadline from inclusive", map[string]string{"deadline_from": "2025-11-20"}, []string{"T1", "T3"}},
		{"deadline to inclusive", map[string]string{"deadline_to": "2025-11-20"}, []string{"T1", "T2"}},
		{"deadline window", map[string]string{"deadline_from": "2025-10-06", "deadline_to": "2025-11-30T23:59:59"}, []string{"T1"}},
		{"no match", map[string]string{"location": "Chennai"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustFilter(t, tt.params).Apply(records)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilter_Conjunction(t *testing.T) {
	records := testutil.GenerateTenders(200)

	both := mustFilter(t, map[string]string{"location": "Delhi", "category": "IT Services"}).Apply(records)
	chained := mustFilter(t, map[string]string{"category": "IT Services"}).
		Apply(mustFilter(t, map[string]string{"location": "Delhi"}).Apply(records))

	assert.NotEmpty(t, both)
	assert.Equal(t, both, chained)
}

func TestParseFilter_MalformedValuesAreSkipped(t *testing.T) {
	f, warnings := ParseFilter(map[string]string{
		"location":      "Delhi",
		"min_value":     "lots",
		"max_value":     "NaN",
		"deadline_from": "20/11/2025",
		"deadline_to":   "2025-12-01",
	})

	require.Len(t, warnings, 3)
	assert.Equal(t, ParamMinValue, warnings[0].Param)
	assert.Equal(t, ParamMaxValue, warnings[1].Param)
	assert.Equal(t, ParamDeadlineFrom, warnings[2].Param)
	assert.Equal(t, "20/11/2025", warnings[2].Value)
	assert.True(t, tendererrors.IsType(warnings[2].Err(), tendererrors.ErrorTypeMalformedFilter))

	assert.Nil(t, f.MinValue)
	assert.Nil(t, f.MaxValue)
	assert.Nil(t, f.DeadlineFrom)
	require.NotNil(t, f.DeadlineTo)
	assert.Equal(t, []string{"T1", "T2"}, ids(f.Apply(testutil.Tenders())))
}

func TestParseFilter_IgnoresUnknownAndBlank(t *testing.T) {
	f, warnings := ParseFilter(map[string]string{"colour": "red", "organization": "  ", "min_value": ""})
	assert.Empty(t, warnings)
	assert.True(t, f.IsZero())
}

func TestParseFilter_DeadlineWithOffset(t *testing.T) {
	f := mustFilter(t, map[string]string{"deadline_to": "2025-10-05T05:30:00+05:30"})
	require.NotNil(t, f.DeadlineTo)
	assert.Equal(t, testutil.Day("2025-10-05"), *f.DeadlineTo)
	assert.Equal(t, []string{"T2"}, ids(f.Apply(testutil.Tenders())))
}

func TestRank_ByDeadline(t *testing.T) {
	ranked := Rank(testutil.Tenders(), "")
	assert.Equal(t, []string{"T2", "T1", "T3"}, ids(ranked))
}

func TestRank_KeywordBeatsDeadline(t *testing.T) {
	records := testutil.Tenders()
	// move the medical tender to the latest deadline
	records[1].Deadline = testutil.Day("2026-06-30")

	ranked := Rank(records, "Medical")
	assert.Equal(t, []string{"T2", "T1", "T3"}, ids(ranked))
}

func TestRank_ScoreCountsDistinctTerms(t *testing.T) {
	records := testutil.Tenders()

	ranked := Rank(records, "delhi delhi mumbai network")
	// T3 matches mumbai and network, T1 and T2 match delhi once
	assert.Equal(t, []string{"T3", "T2", "T1"}, ids(ranked))
	assert.Equal(t, 2, Score(records[2], Terms("delhi delhi mumbai network")))
	assert.Equal(t, 1, Score(records[0], Terms("delhi delhi mumbai network")))
}

func TestRank_StableForEqualKeys(t *testing.T) {
	records := []models.Record{
		{ID: "A", Deadline: testutil.Day("2025-01-01")},
		{ID: "B", Deadline: testutil.Day("2025-01-01")},
		{ID: "C", Deadline: testutil.Day("2024-01-01")},
	}
	assert.Equal(t, []string{"C", "A", "B"}, ids(Rank(records, "")))
	assert.Equal(t, []string{"A", "B", "C"}, ids(records))
}

func TestSearch(t *testing.T) {
	f := mustFilter(t, map[string]string{"location": "delhi"})
	got := Search(testutil.Tenders(), f, "software")
	assert.Equal(t, []string{"T1", "T2"}, ids(got))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"it", "services"}, Terms("  IT services it "))
	assert.Empty(t, Terms("   "))
}
