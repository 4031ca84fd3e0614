// internal/models/timeline.go
package models

import (
	"time"

	"hiring-pipeline/internal/pipeline/stage"
)

// ActorKind distinguishes system-driven events from human actions.
type ActorKind string

const (
	ActorKindSystem ActorKind = "system"
	ActorKindHuman  ActorKind = "human"
)

// Actor identifies who performed an operation.
type Actor struct {
	ID   string    `json:"id"`
	Kind ActorKind `json:"kind"`
}

// SystemActor is the actor recorded for automated transitions.
var SystemActor = Actor{ID: "pipeline", Kind: ActorKindSystem}

// TimelineEvent is one immutable entry in an application's audit timeline.
// Seq is the insertion-order tiebreak for events sharing a timestamp; the
// timeline is never re-sorted by any other key.
type TimelineEvent struct {
	ID          string      `json:"id"`
	Seq         int         `json:"seq"`
	Stage       stage.Stage `json:"stage"`
	Timestamp   time.Time   `json:"timestamp"`
	Description string      `json:"description"`
	Actor       Actor       `json:"actor"`
	Automated   bool        `json:"automated"`
}
