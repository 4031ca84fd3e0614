// internal/models/application.go
package models

import (
	"time"

	"hiring-pipeline/internal/pipeline/stage"
)

// Application is the aggregate root of the hiring pipeline. It is mutated
// exclusively through the transition engine and never physically deleted by
// this subsystem.
//
// Invariants:
//   - StageData holds an entry for CurrentStage and every earlier linear
//     stage (skipped stages are impossible by construction). When rejected,
//     entries exist up to the stage rejected from.
//   - Rejection is non-nil iff CurrentStage == rejected.
//   - Timeline is append-only, ordered by Seq.
type Application struct {
	ID           string           `json:"id"`
	CandidateID  string           `json:"candidateId"`
	JobID        string           `json:"jobId"`
	CurrentStage stage.Stage      `json:"currentStage"`
	StageData    StageDataMap     `json:"stageData"`
	Rejection    *RejectionRecord `json:"rejection,omitempty"`
	Timeline     []TimelineEvent  `json:"timeline"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	// Version increments on every committed mutation; the Postgres store
	// uses it for optimistic concurrency.
	Version int `json:"version"`
}

// Clone returns a deep copy so concurrent readers never observe a partially
// applied mutation.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	cp := *a
	cp.StageData = a.StageData.Clone()
	cp.Rejection = a.Rejection.Clone()
	cp.Timeline = append([]TimelineEvent(nil), a.Timeline...)
	return &cp
}

// PayloadFor returns the payload for st, if the application has entered it.
func (a *Application) PayloadFor(st stage.Stage) (StagePayload, bool) {
	p, ok := a.StageData[st]
	return p, ok
}

// ReachedStages lists the linear stages this application has entered, in
// order. Derived from StageData, which only ever grows.
func (a *Application) ReachedStages() []stage.Stage {
	var out []stage.Stage
	for _, st := range stage.LinearPath() {
		if _, ok := a.StageData[st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// NextSeq returns the sequence number for the next timeline event.
func (a *Application) NextSeq() int {
	return len(a.Timeline)
}
