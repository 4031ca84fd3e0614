// test/e2e/e2e_test.go

// End-to-end exercise of the pipeline service against the in-memory store:
// a full walk from applied to passed, a rejection path, and the derived
// statistics over both.
package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineerrors "hiring-pipeline/internal/common/errors"
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/analytics"
	"hiring-pipeline/internal/pipeline/engine"
	"hiring-pipeline/internal/pipeline/qualify"
	"hiring-pipeline/internal/pipeline/service"
	"hiring-pipeline/internal/pipeline/store"
	"hiring-pipeline/pkg/registry"
)

var recruiter = models.Actor{ID: "recruiter-1", Kind: models.ActorKindHuman}

func newPipeline(t *testing.T) *service.PipelineService {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	st := store.NewMemoryStore()
	return service.New(
		engine.New(st, reg, log),
		qualify.NewEvaluator(log),
		analytics.NewService(st, nil, 0, log),
		st,
		log,
	)
}

func TestFullHiringFlow(t *testing.T) {
	ctx := context.Background()
	svc := newPipeline(t)

	app, err := svc.CreateApplication(ctx, "cand-1", "job-1", models.AppliedPayload{
		AssignedTests:       []string{"go-basics", "system-design"},
		AssignedCaseStudies: []string{"pricing"},
	}, recruiter)
	require.NoError(t, err)

	// Candidate finishes everything; the evaluator advances automatically.
	results := qualify.AssessmentResults{
		TestResults: []qualify.TestResult{
			{TestName: "go-basics", Score: 84, MaxScore: 100},
			{TestName: "system-design", Score: 71, MaxScore: 100},
		},
		CaseStudyResults: []qualify.CaseStudyResult{{CaseStudyID: "pricing", Submitted: true}},
	}
	decision, current, err := svc.EvaluateQualification(ctx, app.ID, results, true)
	require.NoError(t, err)
	require.True(t, decision.Advance)
	require.Equal(t, "qualified", string(current.CurrentStage))

	// Schedule and complete the interview.
	current, err = svc.Transition(ctx, app.ID, "interview", models.PayloadPatch{
		"interviewer": "dana",
		"date":        "2026-09-01",
		"time":        "14:00",
		"modality":    "remote",
	}, recruiter)
	require.NoError(t, err)

	current, err = svc.UpdatePayload(ctx, app.ID, "interview", models.PayloadPatch{
		"completed": true,
		"notes":     "clear communicator, strong on concurrency",
	}, recruiter)
	require.NoError(t, err)

	// Final review accumulates notes across reviewers.
	current, err = svc.Transition(ctx, app.ID, "final_review", nil, recruiter)
	require.NoError(t, err)
	current, err = svc.UpdatePayload(ctx, app.ID, "final_review", models.PayloadPatch{
		"reviewerNotes":  []interface{}{"hire"},
		"finalScore":     88.0,
		"recommendation": "advance",
	}, recruiter)
	require.NoError(t, err)

	current, err = svc.Transition(ctx, app.ID, "passed", models.PayloadPatch{
		"companyContact": "hr@acme.example",
	}, recruiter)
	require.NoError(t, err)

	// Handover wraps up after the terminal transition.
	current, err = svc.UpdatePayload(ctx, app.ID, "passed", models.PayloadPatch{
		"handoverStatus": "completed",
		"nextSteps":      []interface{}{"contract signed"},
	}, recruiter)
	require.NoError(t, err)

	// The record carries every stage's payload and the full audit trail.
	assert.Len(t, current.StageData, 5)
	events, err := svc.Timeline(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, events, 8)
	for i, ev := range events {
		assert.Equal(t, i, ev.Seq)
		if i > 0 {
			assert.False(t, ev.Timestamp.Before(events[i-1].Timestamp))
		}
	}

	// Terminal means terminal.
	_, err = svc.Transition(ctx, app.ID, "rejected", models.PayloadPatch{
		"reasonCode": "late", "feedback": "n/a",
	}, recruiter)
	assert.Equal(t, pipelineerrors.ErrCodeIllegalTransition, pipelineerrors.CodeOf(err))
}

func TestRejectionFlowAndStats(t *testing.T) {
	ctx := context.Background()
	svc := newPipeline(t)

	hired, err := svc.CreateApplication(ctx, "cand-1", "job-1", models.AppliedPayload{}, recruiter)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, hired.ID, "qualified", models.PayloadPatch{
		"testsCompleted": true, "caseStudySubmitted": true,
	}, recruiter)
	require.NoError(t, err)

	rejected, err := svc.CreateApplication(ctx, "cand-2", "job-1", models.AppliedPayload{}, recruiter)
	require.NoError(t, err)
	rejectedApp, err := svc.Transition(ctx, rejected.ID, "rejected", models.PayloadPatch{
		"reasonCode": "missing_experience",
		"feedback":   "role requires production Go experience",
	}, recruiter)
	require.NoError(t, err)

	require.NotNil(t, rejectedApp.Rejection)
	assert.Equal(t, "applied", string(rejectedApp.Rejection.RejectedAt))
	assert.Equal(t, recruiter, rejectedApp.Rejection.Actor)
	assert.WithinDuration(t, time.Now().UTC(), rejectedApp.Rejection.Timestamp, time.Minute)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.CountByStage["qualified"])
	assert.Equal(t, 1, stats.CountByStage["rejected"])

	// Both applications reached applied; one advanced.
	first := stats.ConversionRates[0]
	assert.Equal(t, 2, first.Eligible)
	assert.Equal(t, 1, first.Advanced)
	assert.Equal(t, 50, first.Rate)
}
