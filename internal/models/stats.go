// internal/models/stats.go
package models

import "hiring-pipeline/internal/pipeline/stage"

// ConversionRate is one stage-to-stage conversion, in whole percent.
// Rate is 0 by convention when no application reached the From stage.
type ConversionRate struct {
	From     stage.Stage `json:"from"`
	To       stage.Stage `json:"to"`
	Eligible int         `json:"eligible"`
	Advanced int         `json:"advanced"`
	Rate     int         `json:"rate"`
}

// PipelineStats is the derived, never-stored analytics snapshot.
// CountByStage always sums to Total.
type PipelineStats struct {
	Total           int                     `json:"total"`
	CountByStage    map[stage.Stage]int     `json:"countByStage"`
	ConversionRates []ConversionRate        `json:"conversionRates"`
	AvgDaysInStage  map[stage.Stage]float64 `json:"avgDaysInStage"`
}
