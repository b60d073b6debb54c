// Package models defines the tender record, the batch a cursor yields and the
// statistics snapshot.
//
// Deadlines are timezone-naive. They are held as UTC wall-clock times and
// serialized without a zone suffix (2025-11-20T00:00:00).
package models

import (
	"math"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// TimestampLayout is the ISO-8601 layout used when a deadline is serialized.
const TimestampLayout = "2006-01-02T15:04:05"

// Defaults applied by Normalize to fields the source did not supply.
const (
	DefaultID       = "UNKNOWN"
	DefaultCategory = "General"
	DefaultLocation = "India"
)

// DefaultDeadline is the deadline assigned to records that have none.
var DefaultDeadline = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)

// Record is one normalized procurement tender.
type Record struct {
	ID           string    `json:"tender_id" bson:"tender_id"`
	Organization string    `json:"organization" bson:"organization"`
	Category     string    `json:"category" bson:"category"`
	Location     string    `json:"location" bson:"location"`
	Value        float64   `json:"value" bson:"value"`
	Deadline     time.Time `json:"deadline" bson:"deadline"`
	Description  string    `json:"description" bson:"description"`
	Link         string    `json:"link" bson:"link"`
}

// Normalize fills absent fields with their explicit defaults and strips the
// zone from the deadline. It is applied by every store adapter.
func (r *Record) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		r.ID = DefaultID
	}
	if strings.TrimSpace(r.Category) == "" {
		r.Category = DefaultCategory
	}
	if strings.TrimSpace(r.Location) == "" {
		r.Location = DefaultLocation
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) || r.Value < 0 {
		r.Value = 0
	}
	if r.Deadline.IsZero() {
		r.Deadline = DefaultDeadline
	} else {
		r.Deadline = Naive(r.Deadline)
	}
}

// recordJSON is the wire form of Record with the deadline as a naive ISO string.
type recordJSON struct {
	ID           string  `json:"tender_id"`
	Organization string  `json:"organization"`
	Category     string  `json:"category"`
	Location     string  `json:"location"`
	Value        float64 `json:"value"`
	Deadline     string  `json:"deadline"`
	Description  string  `json:"description"`
	Link         string  `json:"link"`
}

// MarshalJSON encodes the deadline in TimestampLayout.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		ID:           r.ID,
		Organization: r.Organization,
		Category:     r.Category,
		Location:     r.Location,
		Value:        r.Value,
		Deadline:     FormatTimestamp(r.Deadline),
		Description:  r.Description,
		Link:         r.Link,
	})
}

// UnmarshalJSON accepts any layout understood by ParseTimestamp for the
// deadline. An empty deadline decodes to the zero time.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var deadline time.Time
	if raw.Deadline != "" {
		t, err := ParseTimestamp(raw.Deadline)
		if err != nil {
			return err
		}
		deadline = t
	}

	*r = Record{
		ID:           raw.ID,
		Organization: raw.Organization,
		Category:     raw.Category,
		Location:     raw.Location,
		Value:        raw.Value,
		Deadline:     deadline,
		Description:  raw.Description,
		Link:         raw.Link,
	}
	return nil
}

// Naive converts t to a UTC wall-clock time.
func Naive(t time.Time) time.Time {
	return t.UTC()
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return Naive(t).Format(TimestampLayout)
}
