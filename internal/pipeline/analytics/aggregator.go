// internal/pipeline/analytics/aggregator.go

// Package analytics derives pipeline statistics from application snapshots.
// Stats are computed, never stored: the aggregator holds no state of its
// own and a crash mid-computation loses nothing.
package analytics

import (
	"math"
	"time"

	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/stage"
)

const hoursPerDay = 24.0

// ComputeStats computes the full statistics snapshot from a set of
// applications. Pure function: the inputs are read-only snapshots and now
// closes the open dwell interval of each application's current stage.
func ComputeStats(apps []*models.Application, now time.Time) models.PipelineStats {
	stats := models.PipelineStats{
		Total:          len(apps),
		CountByStage:   make(map[stage.Stage]int, len(stage.All())),
		AvgDaysInStage: make(map[stage.Stage]float64),
	}
	for _, st := range stage.All() {
		stats.CountByStage[st] = 0
	}

	// reached[st] counts applications whose timeline shows an entry into st.
	// Rejected applications still count toward every stage they reached
	// before rejection.
	reached := make(map[stage.Stage]int)
	dwellTotal := make(map[stage.Stage]time.Duration)
	dwellCount := make(map[stage.Stage]int)

	for _, app := range apps {
		stats.CountByStage[app.CurrentStage]++

		entries := stageEntries(app)
		for _, e := range entries {
			reached[e.stage]++
		}

		for i, e := range entries {
			if stage.IsTerminal(e.stage) {
				continue
			}
			if i+1 < len(entries) {
				dwellTotal[e.stage] += entries[i+1].at.Sub(e.at)
			} else {
				// Still in this stage: the interval is open, close it at now.
				dwellTotal[e.stage] += now.Sub(e.at)
			}
			dwellCount[e.stage]++
		}
	}

	path := stage.LinearPath()
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		rate := models.ConversionRate{
			From:     from,
			To:       to,
			Eligible: reached[from],
			Advanced: reached[to],
		}
		if rate.Eligible > 0 {
			rate.Rate = int(math.Round(float64(rate.Advanced) / float64(rate.Eligible) * 100))
		}
		stats.ConversionRates = append(stats.ConversionRates, rate)
	}

	for st, total := range dwellTotal {
		stats.AvgDaysInStage[st] = total.Hours() / hoursPerDay / float64(dwellCount[st])
	}

	return stats
}

type stageEntry struct {
	stage stage.Stage
	at    time.Time
}

// stageEntries extracts the ordered stage-entry events from the timeline:
// the first event per stage, in insertion order. Amendment events repeat
// their stage and are skipped.
func stageEntries(app *models.Application) []stageEntry {
	seen := make(map[stage.Stage]bool, len(app.Timeline))
	var out []stageEntry
	for _, ev := range app.Timeline {
		if seen[ev.Stage] {
			continue
		}
		seen[ev.Stage] = true
		out = append(out, stageEntry{stage: ev.Stage, at: ev.Timestamp})
	}
	return out
}
