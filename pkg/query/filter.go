// Package query filters and ranks materialized tender records.
//
// Everything here is a pure function of its inputs. Filters combine
// conjunctively; a parameter that cannot be parsed is dropped and reported
// as a Warning instead of failing the request.
package query

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/tenderflow/pkg/models"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// Recognized filter parameter names.
const (
	ParamOrganization = "organization"
	ParamCategory     = "category"
	ParamLocation     = "location"
	ParamMinValue     = "min_value"
	ParamMaxValue     = "max_value"
	ParamDeadlineFrom = "deadline_from"
	ParamDeadlineTo   = "deadline_to"
)

// Params lists the recognized parameter names in a fixed order.
var Params = []string{
	ParamOrganization,
	ParamCategory,
	ParamLocation,
	ParamMinValue,
	ParamMaxValue,
	ParamDeadlineFrom,
	ParamDeadlineTo,
}

// Filter holds the active predicates. Empty strings and nil bounds impose no
// constraint. Text filters match case-insensitive substrings; bounds are
// inclusive.
type Filter struct {
	Organization string
	Category     string
	Location     string
	MinValue     *float64
	MaxValue     *float64
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

// Warning reports a filter parameter that was dropped.
type Warning struct {
	Param   string `json:"param"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Err returns the warning as a malformed_filter error.
func (w Warning) Err() *tendererrors.Error {
	return tendererrors.New(tendererrors.ErrorTypeMalformedFilter, w.Message).
		WithDetail("param", w.Param).
		WithDetail("value", w.Value)
}

// ParseFilter builds a Filter from named parameters. Unknown names are
// ignored. Malformed numbers and dates skip that one predicate and add a
// Warning. A date-only deadline_to means midnight of that day.
func ParseFilter(params map[string]string) (Filter, []Warning) {
	var (
		f        Filter
		warnings []Warning
	)

	text := func(name string) string { return strings.TrimSpace(params[name]) }
	f.Organization = text(ParamOrganization)
	f.Category = text(ParamCategory)
	f.Location = text(ParamLocation)

	number := func(name string) *float64 {
		raw := text(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			warnings = append(warnings, Warning{Param: name, Value: raw, Message: "not a finite number"})
			return nil
		}
		return &v
	}
	f.MinValue = number(ParamMinValue)
	f.MaxValue = number(ParamMaxValue)

	date := func(name string) *time.Time {
		raw := text(name)
		if raw == "" {
			return nil
		}
		t, err := models.ParseTimestamp(raw)
		if err != nil {
			warnings = append(warnings, Warning{Param: name, Value: raw, Message: "not an ISO-8601 date"})
			return nil
		}
		return &t
	}
	f.DeadlineFrom = date(ParamDeadlineFrom)
	f.DeadlineTo = date(ParamDeadlineTo)

	return f, warnings
}

// IsZero reports whether f imposes no constraint.
func (f Filter) IsZero() bool {
	return f.Organization == "" && f.Category == "" && f.Location == "" &&
		f.MinValue == nil && f.MaxValue == nil &&
		f.DeadlineFrom == nil && f.DeadlineTo == nil
}

// Match reports whether r satisfies every active predicate.
func (f Filter) Match(r models.Record) bool {
	if !containsFold(r.Organization, f.Organization) ||
		!containsFold(r.Category, f.Category) ||
		!containsFold(r.Location, f.Location) {
		return false
	}
	if f.MinValue != nil && r.Value < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && r.Value > *f.MaxValue {
		return false
	}
	if f.DeadlineFrom != nil && r.Deadline.Before(*f.DeadlineFrom) {
		return false
	}
	if f.DeadlineTo != nil && r.Deadline.After(*f.DeadlineTo) {
		return false
	}
	return true
}

// Apply returns the records matching f in their original order.
func (f Filter) Apply(records []models.Record) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
