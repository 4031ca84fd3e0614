// internal/models/payloads.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"hiring-pipeline/internal/pipeline/stage"
)

// PayloadPatch is the untyped patch a caller submits with a transition or
// amendment. The engine decodes it stage-specifically; the registry rejects
// malformed shapes first.
type PayloadPatch map[string]interface{}

// StagePayload is the tagged union of per-stage data. Exactly one shape
// exists per stage; a payload can never be present for a stage the
// application has not reached.
type StagePayload interface {
	// PayloadStage identifies which stage the payload belongs to.
	PayloadStage() stage.Stage
	// Clone returns a deep copy so snapshot reads never alias store state.
	Clone() StagePayload
}

// Interview modality values.
const (
	ModalityOnsite = "onsite"
	ModalityRemote = "remote"
	ModalityPhone  = "phone"
)

// Final-review recommendation values. Advisory only — a reject
// recommendation never forces a rejected transition.
const (
	RecommendationAdvance = "advance"
	RecommendationReject  = "reject"
)

// Handover status values for passed applications.
const (
	HandoverPending   = "pending"
	HandoverCompleted = "completed"
)

// TestScore records one assessment result verbatim.
type TestScore struct {
	TestName string  `json:"testName"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
}

// AppliedPayload holds the assessment assignments made at application time.
type AppliedPayload struct {
	AssignedTests       []string `json:"assignedTests"`
	AssignedCaseStudies []string `json:"assignedCaseStudies"`
}

func (p *AppliedPayload) PayloadStage() stage.Stage { return stage.Applied }

func (p *AppliedPayload) Clone() StagePayload {
	cp := *p
	cp.AssignedTests = append([]string(nil), p.AssignedTests...)
	cp.AssignedCaseStudies = append([]string(nil), p.AssignedCaseStudies...)
	return &cp
}

// QualifiedPayload records the assessment outcome that gated qualification.
type QualifiedPayload struct {
	TestsCompleted     bool        `json:"testsCompleted"`
	TestScores         []TestScore `json:"testScores"`
	CaseStudySubmitted bool        `json:"caseStudySubmitted"`
	QualifiedAt        time.Time   `json:"qualifiedAt"`
}

func (p *QualifiedPayload) PayloadStage() stage.Stage { return stage.Qualified }

func (p *QualifiedPayload) Clone() StagePayload {
	cp := *p
	cp.TestScores = append([]TestScore(nil), p.TestScores...)
	return &cp
}

// InterviewPayload holds interview scheduling and outcome data. Notes are
// typically attached after completion via UpdatePayload.
type InterviewPayload struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Modality    string `json:"modality"`
	Interviewer string `json:"interviewer"`
	Completed   bool   `json:"completed"`
	Notes       string `json:"notes,omitempty"`
}

func (p *InterviewPayload) PayloadStage() stage.Stage { return stage.Interview }

func (p *InterviewPayload) Clone() StagePayload {
	cp := *p
	return &cp
}

// FinalReviewPayload accumulates reviewer notes and the optional final
// verdict.
type FinalReviewPayload struct {
	StartedAt      time.Time `json:"startedAt"`
	ReviewerNotes  []string  `json:"reviewerNotes"`
	FinalScore     *float64  `json:"finalScore,omitempty"`     // 0-100
	Recommendation string    `json:"recommendation,omitempty"` // advance | reject
}

func (p *FinalReviewPayload) PayloadStage() stage.Stage { return stage.FinalReview }

func (p *FinalReviewPayload) Clone() StagePayload {
	cp := *p
	cp.ReviewerNotes = append([]string(nil), p.ReviewerNotes...)
	if p.FinalScore != nil {
		score := *p.FinalScore
		cp.FinalScore = &score
	}
	return &cp
}

// PassedPayload carries the handover to the hiring company.
type PassedPayload struct {
	PassedAt       time.Time `json:"passedAt"`
	HandoverStatus string    `json:"handoverStatus"` // pending | completed
	CompanyContact string    `json:"companyContact"`
	NextSteps      []string  `json:"nextSteps"`
}

func (p *PassedPayload) PayloadStage() stage.Stage { return stage.Passed }

func (p *PassedPayload) Clone() StagePayload {
	cp := *p
	cp.NextSteps = append([]string(nil), p.NextSteps...)
	return &cp
}

// RejectionRecord exists iff the application is in the rejected stage.
// RejectedAt names the real, non-terminal stage the application was
// rejected from.
type RejectionRecord struct {
	RejectedAt stage.Stage `json:"rejectedAt"`
	Timestamp  time.Time   `json:"timestamp"`
	ReasonCode string      `json:"reasonCode"`
	Feedback   string      `json:"feedback"`
	Actor      Actor       `json:"actor"`
}

// Clone returns a copy of the record.
func (r *RejectionRecord) Clone() *RejectionRecord {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// StageDataMap keys each entered stage to its payload. Payloads are created
// on stage entry and are append-only thereafter.
type StageDataMap map[stage.Stage]StagePayload

// Clone deep-copies the map and every payload in it.
func (m StageDataMap) Clone() StageDataMap {
	if m == nil {
		return nil
	}
	out := make(StageDataMap, len(m))
	for st, p := range m {
		out[st] = p.Clone()
	}
	return out
}

// UnmarshalJSON decodes the stage-keyed union into concrete payload types.
// Marshalling needs no custom code: map keys are stage names and each
// payload marshals by its own shape.
func (m *StageDataMap) UnmarshalJSON(data []byte) error {
	var raw map[stage.Stage]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(StageDataMap, len(raw))
	for st, msg := range raw {
		payload, err := NewPayloadFor(st)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(msg, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", st, err)
		}
		out[st] = payload
	}
	*m = out
	return nil
}

// NewPayloadFor returns a zero payload of the shape belonging to st.
// Rejected has no stage payload; its data lives in the RejectionRecord.
func NewPayloadFor(st stage.Stage) (StagePayload, error) {
	switch st {
	case stage.Applied:
		return &AppliedPayload{}, nil
	case stage.Qualified:
		return &QualifiedPayload{}, nil
	case stage.Interview:
		return &InterviewPayload{}, nil
	case stage.FinalReview:
		return &FinalReviewPayload{}, nil
	case stage.Passed:
		return &PassedPayload{}, nil
	default:
		return nil, fmt.Errorf("stage %q has no payload shape", st)
	}
}
