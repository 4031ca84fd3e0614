// internal/pipeline/engine/engine.go

// Package engine implements the transition engine: the one place that
// validates and applies stage transitions and payload amendments. Every
// mutation of an application flows through here.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	pipelineerrors "hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/stage"
	"hiring-pipeline/internal/pipeline/store"
	"hiring-pipeline/pkg/registry"
)

// Engine validates and applies transitions against the record store. All
// mutations of one application are serialized by the store's update scope,
// so "set stage + insert payload + append timeline event" commits as a unit.
type Engine struct {
	store    store.Store
	registry *registry.StageRegistry
	logger   logger.Logger

	// Injectable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// New creates a transition engine.
func New(st store.Store, reg *registry.StageRegistry, log logger.Logger) *Engine {
	return &Engine{
		store:    st,
		registry: reg,
		logger:   log.WithFields(map[string]interface{}{"component": "transition-engine"}),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// WithClock overrides the engine clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CreateApplication creates a new application at the applied stage with its
// initial assessment assignments and a single synthetic timeline entry.
func (e *Engine) CreateApplication(ctx context.Context, candidateID, jobID string, applied models.AppliedPayload, actor models.Actor) (*models.Application, error) {
	now := e.now()
	app := &models.Application{
		ID:           e.newID(),
		CandidateID:  candidateID,
		JobID:        jobID,
		CurrentStage: stage.Applied,
		StageData: models.StageDataMap{
			stage.Applied: applied.Clone(),
		},
		Timeline: []models.TimelineEvent{{
			ID:          e.newID(),
			Seq:         0,
			Stage:       stage.Applied,
			Timestamp:   now,
			Description: "application submitted",
			Actor:       actor,
			Automated:   actor.Kind == models.ActorKindSystem,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := e.store.Create(ctx, app); err != nil {
		e.logger.WithError(err).Error("create application failed", map[string]interface{}{
			"candidateId": candidateID,
			"jobId":       jobID,
		})
		return nil, err
	}

	e.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"candidateId":   candidateID,
		"jobId":         jobID,
	})
	return app.Clone(), nil
}

// GetApplication returns a snapshot of the application.
func (e *Engine) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	return e.store.Get(ctx, id)
}

// Transition moves the application to target, constructing the stage's
// initial payload from patch plus carried-over defaults. Exactly one
// timeline event is appended per committed transition.
func (e *Engine) Transition(ctx context.Context, id string, target stage.Stage, patch models.PayloadPatch, actor models.Actor) (*models.Application, error) {
	start := time.Now()
	automated := actor.Kind == models.ActorKindSystem

	updated, err := e.store.Update(ctx, id, func(app *models.Application) error {
		if target == app.CurrentStage {
			return pipelineerrors.NewAlreadyInStage(string(target))
		}
		if !stage.CanTransition(app.CurrentStage, target) {
			return pipelineerrors.NewIllegalTransition(string(app.CurrentStage), string(target))
		}

		now := e.now()
		if target == stage.Rejected {
			if err := e.registry.ValidatePatch(string(stage.Rejected), patch); err != nil {
				return pipelineerrors.NewIncompleteRejection(err.Error())
			}
			rec, err := e.buildRejection(app, patch, actor, now)
			if err != nil {
				return err
			}
			app.Rejection = rec
			e.appendEvent(app, stage.Rejected, now, actor, automated,
				fmt.Sprintf("application rejected from %s: %s", rec.RejectedAt, rec.ReasonCode))
		} else {
			if err := e.validatePatch(target, patch); err != nil {
				return err
			}
			payload, err := e.buildEntryPayload(target, patch, now)
			if err != nil {
				return err
			}
			app.StageData[target] = payload
			e.appendEvent(app, target, now, actor, automated,
				fmt.Sprintf("advanced from %s to %s", app.CurrentStage, target))
		}

		app.CurrentStage = target
		app.UpdatedAt = now
		return nil
	})

	if err != nil {
		metrics.TransitionsFailed.WithLabelValues(string(target), string(pipelineerrors.CodeOf(err))).Inc()
		e.logger.WithError(err).Warn("transition rejected", map[string]interface{}{
			"applicationId": id,
			"targetStage":   string(target),
		})
		return nil, err
	}

	metrics.TransitionsCompleted.WithLabelValues(string(target), strconv.FormatBool(automated)).Inc()
	metrics.TransitionDuration.WithLabelValues(string(target)).Observe(time.Since(start).Seconds())
	e.logger.Info("transition committed", map[string]interface{}{
		"applicationId": id,
		"targetStage":   string(target),
		"actor":         actor.ID,
		"automated":     automated,
	})
	return updated, nil
}

// UpdatePayload amends fields within the current stage's payload without
// changing the stage pointer. List fields append, scalar fields fill; a
// previous stage's payload is never touched.
func (e *Engine) UpdatePayload(ctx context.Context, id string, st stage.Stage, patch models.PayloadPatch, actor models.Actor) (*models.Application, error) {
	updated, err := e.store.Update(ctx, id, func(app *models.Application) error {
		if app.CurrentStage == stage.Rejected {
			return pipelineerrors.NewIllegalTransition(string(stage.Rejected), string(st))
		}
		if st != app.CurrentStage {
			return pipelineerrors.NewIllegalTransition(string(app.CurrentStage), string(st))
		}
		if err := e.validatePatch(st, patch); err != nil {
			return err
		}

		payload, ok := app.StageData[st]
		if !ok {
			// Unreachable when the stage-data invariant holds.
			return pipelineerrors.NewIncompletePayload(string(st), "payload")
		}

		now := e.now()
		if err := applyAmendment(payload, patch); err != nil {
			return err
		}
		e.appendEvent(app, st, now, actor, actor.Kind == models.ActorKindSystem,
			fmt.Sprintf("%s payload updated", st))
		app.UpdatedAt = now
		return nil
	})

	if err != nil {
		e.logger.WithError(err).Warn("payload amendment rejected", map[string]interface{}{
			"applicationId": id,
			"stage":         string(st),
		})
		return nil, err
	}

	metrics.PayloadAmendments.WithLabelValues(string(st)).Inc()
	e.logger.Info("payload amended", map[string]interface{}{
		"applicationId": id,
		"stage":         string(st),
		"actor":         actor.ID,
	})
	return updated, nil
}

func (e *Engine) appendEvent(app *models.Application, st stage.Stage, ts time.Time, actor models.Actor, automated bool, description string) {
	app.Timeline = append(app.Timeline, models.TimelineEvent{
		ID:          e.newID(),
		Seq:         app.NextSeq(),
		Stage:       st,
		Timestamp:   ts,
		Description: description,
		Actor:       actor,
		Automated:   automated,
	})
}

// validatePatch runs the registry's structural schema check and maps
// violations into the payload error taxonomy.
func (e *Engine) validatePatch(target stage.Stage, patch models.PayloadPatch) error {
	if err := e.registry.ValidatePatch(string(target), patch); err != nil {
		return pipelineerrors.NewIncompletePayload(string(target), err.Error())
	}
	return nil
}

// buildRejection assembles the complete rejection record. Reason and
// feedback are both mandatory: a rejection without feedback is not
// actionable for the candidate.
func (e *Engine) buildRejection(app *models.Application, patch models.PayloadPatch, actor models.Actor, now time.Time) (*models.RejectionRecord, error) {
	reason := patchString(patch, "reasonCode")
	feedback := patchString(patch, "feedback")
	if reason == "" {
		return nil, pipelineerrors.NewIncompleteRejection("reasonCode is required")
	}
	if feedback == "" {
		return nil, pipelineerrors.NewIncompleteRejection("feedback is required")
	}
	return &models.RejectionRecord{
		RejectedAt: app.CurrentStage,
		Timestamp:  now,
		ReasonCode: reason,
		Feedback:   feedback,
		Actor:      actor,
	}, nil
}

// buildEntryPayload constructs the initial payload for entering target.
// Validation is deliberately stage-specific: each stage names its own
// mandatory fields and carried-over defaults.
func (e *Engine) buildEntryPayload(target stage.Stage, patch models.PayloadPatch, now time.Time) (models.StagePayload, error) {
	payload, err := models.NewPayloadFor(target)
	if err != nil {
		return nil, pipelineerrors.NewIllegalTransition("", string(target))
	}
	if err := decodePatch(patch, payload); err != nil {
		return nil, pipelineerrors.NewIncompletePayload(string(target), err.Error())
	}

	switch p := payload.(type) {
	case *models.QualifiedPayload:
		if p.QualifiedAt.IsZero() {
			p.QualifiedAt = now
		}

	case *models.InterviewPayload:
		if p.Interviewer == "" {
			return nil, pipelineerrors.NewIncompletePayload(string(target), "interviewer")
		}
		if p.Date == "" {
			return nil, pipelineerrors.NewIncompletePayload(string(target), "date")
		}
		if p.Modality == "" {
			p.Modality = models.ModalityOnsite
		}

	case *models.FinalReviewPayload:
		p.StartedAt = now

	case *models.PassedPayload:
		if p.CompanyContact == "" {
			return nil, pipelineerrors.NewIncompletePayload(string(target), "companyContact")
		}
		p.PassedAt = now
		if p.HandoverStatus == "" {
			p.HandoverStatus = models.HandoverPending
		}
	}

	return payload, nil
}

// applyAmendment merges a patch into the current stage's payload with
// append-only semantics: list fields grow, scalars fill in.
func applyAmendment(payload models.StagePayload, patch models.PayloadPatch) error {
	switch p := payload.(type) {
	case *models.AppliedPayload:
		p.AssignedTests = append(p.AssignedTests, patchStrings(patch, "assignedTests")...)
		p.AssignedCaseStudies = append(p.AssignedCaseStudies, patchStrings(patch, "assignedCaseStudies")...)

	case *models.QualifiedPayload:
		if v, ok := patchBool(patch, "testsCompleted"); ok {
			p.TestsCompleted = v
		}
		if v, ok := patchBool(patch, "caseStudySubmitted"); ok {
			p.CaseStudySubmitted = v
		}
		var extra struct {
			TestScores []models.TestScore `json:"testScores"`
		}
		if err := decodePatch(patch, &extra); err != nil {
			return err
		}
		p.TestScores = append(p.TestScores, extra.TestScores...)

	case *models.InterviewPayload:
		if v := patchString(patch, "date"); v != "" {
			p.Date = v
		}
		if v := patchString(patch, "time"); v != "" {
			p.Time = v
		}
		if v := patchString(patch, "modality"); v != "" {
			p.Modality = v
		}
		if v := patchString(patch, "interviewer"); v != "" {
			p.Interviewer = v
		}
		if v, ok := patchBool(patch, "completed"); ok {
			p.Completed = v
		}
		if v := patchString(patch, "notes"); v != "" {
			if p.Notes == "" {
				p.Notes = v
			} else {
				p.Notes = p.Notes + "\n" + v
			}
		}

	case *models.FinalReviewPayload:
		p.ReviewerNotes = append(p.ReviewerNotes, patchStrings(patch, "reviewerNotes")...)
		if v, ok := patchNumber(patch, "finalScore"); ok {
			p.FinalScore = &v
		}
		if v := patchString(patch, "recommendation"); v != "" {
			p.Recommendation = v
		}

	case *models.PassedPayload:
		if v := patchString(patch, "handoverStatus"); v != "" {
			p.HandoverStatus = v
		}
		if v := patchString(patch, "companyContact"); v != "" {
			p.CompanyContact = v
		}
		p.NextSteps = append(p.NextSteps, patchStrings(patch, "nextSteps")...)
	}

	return nil
}

// decodePatch round-trips the untyped patch through JSON into a typed
// shape. The registry already guaranteed the structure.
func decodePatch(patch models.PayloadPatch, into interface{}) error {
	if len(patch) == 0 {
		return nil
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}

func patchString(patch models.PayloadPatch, key string) string {
	if v, ok := patch[key].(string); ok {
		return v
	}
	return ""
}

func patchBool(patch models.PayloadPatch, key string) (bool, bool) {
	v, ok := patch[key].(bool)
	return v, ok
}

func patchNumber(patch models.PayloadPatch, key string) (float64, bool) {
	switch v := patch[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func patchStrings(patch models.PayloadPatch, key string) []string {
	raw, ok := patch[key].([]interface{})
	if !ok {
		// Typed callers may pass []string directly.
		if typed, ok := patch[key].([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
