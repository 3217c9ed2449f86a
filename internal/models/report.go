package models

import "time"

// PropertyStats is the base aggregate supplied by the repository.
type PropertyStats struct {
	Total     int64   `json:"total"`
	Available int64   `json:"available"`
	Rented    int64   `json:"rented"`
	AvgPrice  float64 `json:"avg_price"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
}

// PropertyStatistics is the full statistics payload assembled by the
// service layer: the base aggregate plus the two derived figures.
type PropertyStatistics struct {
	PropertyStats
	ByType map[string]int64 `json:"total_types"`
	Recent int64            `json:"recent_properties"`
}

// PropertyReport bundles every listing with the statistics aggregate.
// It is the structured form of the admin report; the JSON and CSV
// encodings are derived from it.
type PropertyReport struct {
	GeneratedAt     time.Time           `json:"generated_at"`
	TotalProperties int                 `json:"total_properties"`
	Statistics      *PropertyStatistics `json:"statistics"`
	Properties      []Property          `json:"properties"`
}
