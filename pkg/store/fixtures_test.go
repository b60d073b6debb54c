package store

import (
	"time"

	"github.com/ajitpratap0/tenderflow/pkg/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// tenderFixture mirrors three tenders across two cities and categories.
func tenderFixture() []models.Record {
	return []models.Record{
		{ID: "T1", Organization: "Delhi Jal Board", Category: "IT Services", Location: "Delhi",
			Value: 500000, Deadline: day("2025-11-20"), Description: "Software maintenance", Link: "https://example.org/t1"},
		{ID: "T2", Organization: "AIIMS", Category: "Medical Supplies", Location: "Delhi",
			Value: 250000, Deadline: day("2025-10-05"), Description: "Medical equipment procurement", Link: "https://example.org/t2"},
		{ID: "T3", Organization: "Mumbai Metro", Category: "IT Services", Location: "Mumbai",
			Value: 100000, Deadline: day("2025-12-01"), Description: "Network upgrade", Link: "https://example.org/t3"},
	}
}
