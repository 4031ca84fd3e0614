// internal/models/application_test.go
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hiring-pipeline/internal/pipeline/stage"
)

func sampleApplication() *Application {
	score := 91.5
	return &Application{
		ID:           "app-1",
		CandidateID:  "cand-1",
		JobID:        "job-1",
		CurrentStage: stage.FinalReview,
		StageData: StageDataMap{
			stage.Applied: &AppliedPayload{
				AssignedTests:       []string{"go-basics"},
				AssignedCaseStudies: []string{"pricing"},
			},
			stage.Qualified: &QualifiedPayload{
				TestsCompleted:     true,
				TestScores:         []TestScore{{TestName: "go-basics", Score: 80, MaxScore: 100}},
				CaseStudySubmitted: true,
				QualifiedAt:        time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
			},
			stage.Interview: &InterviewPayload{
				Date: "2026-08-05", Interviewer: "dana", Modality: ModalityRemote, Completed: true,
			},
			stage.FinalReview: &FinalReviewPayload{
				StartedAt:     time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC),
				ReviewerNotes: []string{"solid"},
				FinalScore:    &score,
			},
		},
		Timeline: []TimelineEvent{
			{ID: "e0", Seq: 0, Stage: stage.Applied, Timestamp: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "e1", Seq: 1, Stage: stage.Qualified, Timestamp: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)},
		},
		CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC),
		Version:   3,
	}
}

func TestApplicationClone(t *testing.T) {
	app := sampleApplication()
	clone := app.Clone()

	require.Equal(t, app, clone)

	// Mutating the clone must never leak back into the original.
	clone.CurrentStage = stage.Passed
	clone.Timeline = append(clone.Timeline, TimelineEvent{Seq: 2})
	clone.StageData[stage.Applied].(*AppliedPayload).AssignedTests[0] = "changed"
	*clone.StageData[stage.FinalReview].(*FinalReviewPayload).FinalScore = 1

	assert.Equal(t, stage.FinalReview, app.CurrentStage)
	assert.Len(t, app.Timeline, 2)
	assert.Equal(t, "go-basics", app.StageData[stage.Applied].(*AppliedPayload).AssignedTests[0])
	assert.Equal(t, 91.5, *app.StageData[stage.FinalReview].(*FinalReviewPayload).FinalScore)
}

// Stage data is a tagged union keyed by stage name, so decoding has to pick
// the right concrete type per key.
func TestStageDataMapJSON(t *testing.T) {
	app := sampleApplication()

	data, err := json.Marshal(app.StageData)
	require.NoError(t, err)

	var decoded StageDataMap
	require.NoError(t, json.Unmarshal(data, &decoded))

	q, ok := decoded[stage.Qualified].(*QualifiedPayload)
	require.True(t, ok)
	assert.Equal(t, 80.0, q.TestScores[0].Score)

	iv, ok := decoded[stage.Interview].(*InterviewPayload)
	require.True(t, ok)
	assert.Equal(t, "dana", iv.Interviewer)
}

func TestStageDataMapRejectsUnknownStage(t *testing.T) {
	var decoded StageDataMap
	err := json.Unmarshal([]byte(`{"screening": {}}`), &decoded)
	assert.Error(t, err)
}

func TestReachedStages(t *testing.T) {
	app := sampleApplication()
	assert.Equal(t,
		[]stage.Stage{stage.Applied, stage.Qualified, stage.Interview, stage.FinalReview},
		app.ReachedStages())
}

func TestNextSeq(t *testing.T) {
	app := sampleApplication()
	assert.Equal(t, 2, app.NextSeq())
	assert.Equal(t, 0, (&Application{}).NextSeq())
}

func TestRejectionRecordClone(t *testing.T) {
	var nilRec *RejectionRecord
	assert.Nil(t, nilRec.Clone())

	rec := &RejectionRecord{RejectedAt: stage.Interview, ReasonCode: "failed_interview"}
	clone := rec.Clone()
	clone.ReasonCode = "other"
	assert.Equal(t, "failed_interview", rec.ReasonCode)
}
