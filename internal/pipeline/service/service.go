// internal/pipeline/service/service.go

// Package service composes the transition engine, the qualification
// evaluator, and the analytics service into the pipeline's operation
// surface.
package service

import (
	"context"

	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/common/metrics"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/analytics"
	"hiring-pipeline/internal/pipeline/engine"
	"hiring-pipeline/internal/pipeline/qualify"
	"hiring-pipeline/internal/pipeline/stage"
	"hiring-pipeline/internal/pipeline/store"
)

// PipelineService is the single entry point callers use to operate the
// hiring pipeline.
type PipelineService struct {
	engine    *engine.Engine
	evaluator *qualify.Evaluator
	analytics *analytics.Service
	store     store.Store
	logger    logger.Logger
}

// New wires the pipeline service from its parts.
func New(eng *engine.Engine, ev *qualify.Evaluator, an *analytics.Service, st store.Store, log logger.Logger) *PipelineService {
	return &PipelineService{
		engine:    eng,
		evaluator: ev,
		analytics: an,
		store:     st,
		logger:    log.WithFields(map[string]interface{}{"component": "pipeline-service"}),
	}
}

// CreateApplication registers a new application at the applied stage.
func (s *PipelineService) CreateApplication(ctx context.Context, candidateID, jobID string, applied models.AppliedPayload, actor models.Actor) (*models.Application, error) {
	app, err := s.engine.CreateApplication(ctx, candidateID, jobID, applied, actor)
	if err != nil {
		return nil, err
	}
	s.refreshStageGauges(ctx)
	return app, nil
}

// GetApplication returns a read-only snapshot of one application.
func (s *PipelineService) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	return s.engine.GetApplication(ctx, id)
}

// ListApplications returns snapshots of every application.
func (s *PipelineService) ListApplications(ctx context.Context) ([]*models.Application, error) {
	return s.store.List(ctx)
}

// Timeline returns the application's audit timeline in insertion order.
func (s *PipelineService) Timeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	return s.store.EventsFor(ctx, id)
}

// Transition moves the application to the target stage.
func (s *PipelineService) Transition(ctx context.Context, id string, target stage.Stage, patch models.PayloadPatch, actor models.Actor) (*models.Application, error) {
	app, err := s.engine.Transition(ctx, id, target, patch, actor)
	if err != nil {
		return nil, err
	}
	s.refreshStageGauges(ctx)
	return app, nil
}

// UpdatePayload amends the current stage's payload.
func (s *PipelineService) UpdatePayload(ctx context.Context, id string, st stage.Stage, patch models.PayloadPatch, actor models.Actor) (*models.Application, error) {
	return s.engine.UpdatePayload(ctx, id, st, patch, actor)
}

// EvaluateQualification checks assessment completeness and, when the
// decision recommends advancing and autoAdvance is set, commits the
// qualified transition as the system actor. The decision is returned either
// way so callers can report missing items to the candidate.
func (s *PipelineService) EvaluateQualification(ctx context.Context, id string, results qualify.AssessmentResults, autoAdvance bool) (qualify.AutoAdvanceDecision, *models.Application, error) {
	app, err := s.engine.GetApplication(ctx, id)
	if err != nil {
		return qualify.AutoAdvanceDecision{}, nil, err
	}

	decision := s.evaluator.Evaluate(app, results)
	if !decision.Advance || !autoAdvance {
		return decision, app, nil
	}

	advanced, err := s.Transition(ctx, id, stage.Qualified, decision.Patch(), models.SystemActor)
	if err != nil {
		return decision, nil, err
	}
	return decision, advanced, nil
}

// Stats returns the current pipeline statistics snapshot.
func (s *PipelineService) Stats(ctx context.Context) (*models.PipelineStats, error) {
	return s.analytics.Stats(ctx)
}

// refreshStageGauges recomputes the per-stage application gauge after a
// mutation. Failures only log: the gauge is observability, not state.
func (s *PipelineService) refreshStageGauges(ctx context.Context) {
	apps, err := s.store.List(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("stage gauge refresh failed", nil)
		return
	}

	counts := make(map[stage.Stage]int)
	for _, app := range apps {
		counts[app.CurrentStage]++
	}
	for _, st := range stage.All() {
		metrics.ApplicationsByStage.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}
