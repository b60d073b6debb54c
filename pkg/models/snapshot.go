package models

// Snapshot summarizes a dataset. The zero value describes an empty dataset.
type Snapshot struct {
	TotalRecords        int64    `json:"total_records"`
	UniqueOrganizations int64    `json:"unique_organizations"`
	UniqueCategories    int64    `json:"unique_categories"`
	UniqueLocations     int64    `json:"unique_locations"`
	MaxTenderValue      float64  `json:"max_tender_value"`
	MinTenderValue      float64  `json:"min_tender_value"`
	AvgTenderValue      float64  `json:"avg_tender_value"`
	Fields              []string `json:"fields"`
}

// EmptySnapshot returns the snapshot of a dataset with no records.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Fields: []string{}}
}
