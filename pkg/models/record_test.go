package models

import (
	"math"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Normalize(t *testing.T) {
	r := Record{Organization: "PWD", Value: math.NaN()}
	r.Normalize()

	assert.Equal(t, DefaultID, r.ID)
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, DefaultLocation, r.Location)
	assert.Equal(t, 0.0, r.Value)
	assert.Equal(t, DefaultDeadline, r.Deadline)
	assert.Equal(t, "PWD", r.Organization)
}

func TestRecord_NormalizeStripsZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	r := Record{ID: "T1", Deadline: time.Date(2025, 11, 20, 5, 30, 0, 0, ist)}
	r.Normalize()

	assert.Equal(t, time.UTC, r.Deadline.Location())
	assert.Equal(t, "2025-11-20T00:00:00", FormatTimestamp(r.Deadline))
}

func TestRecord_JSON(t *testing.T) {
	r := Record{
		ID:           "T1",
		Organization: "Delhi Jal Board",
		Category:     "IT Services",
		Location:     "Delhi",
		Value:        500000,
		Deadline:     time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC),
		Description:  "Software maintenance",
		Link:         "https://example.org/t1",
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"deadline":"2025-11-20T00:00:00"`)
	assert.Contains(t, string(data), `"tender_id":"T1"`)

	var decoded Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r, decoded)
}

func TestRecord_UnmarshalBadDeadline(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`{"tender_id":"T1","deadline":"next week"}`), &r)
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-11-20", time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)},
		{"2025-11-20T10:15:00", time.Date(2025, 11, 20, 10, 15, 0, 0, time.UTC)},
		{"2025-11-20 10:15:00", time.Date(2025, 11, 20, 10, 15, 0, 0, time.UTC)},
		{"2025-11-20T10:15:00+05:30", time.Date(2025, 11, 20, 4, 45, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimestamp("20/11/2025")
	assert.Error(t, err)
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t, []string{
		"tender_id", "organization", "category", "location",
		"value", "deadline", "description", "link",
	}, FieldNames())
}

func TestEmptySnapshot_JSON(t *testing.T) {
	data, err := json.Marshal(EmptySnapshot())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fields":[]`)
	assert.Contains(t, string(data), `"avg_tender_value":0`)
}
