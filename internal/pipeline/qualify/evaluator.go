// internal/pipeline/qualify/evaluator.go

// Package qualify implements the advisory qualification evaluator. It
// answers one question: has the candidate completed everything assigned at
// application time? The answer is a recommendation; committing the
// transition stays with the caller.
package qualify

import (
	"hiring-pipeline/internal/common/logger"
	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/pipeline/stage"
)

// TestResult is one scored assessment.
type TestResult struct {
	TestName string  `json:"testName"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
}

// CaseStudyResult is one case study submission marker.
type CaseStudyResult struct {
	CaseStudyID string `json:"caseStudyId"`
	Submitted   bool   `json:"submitted"`
}

// AssessmentResults carries everything the candidate has handed in so far.
type AssessmentResults struct {
	TestResults      []TestResult      `json:"testResults"`
	CaseStudyResults []CaseStudyResult `json:"caseStudyResults"`
}

// AutoAdvanceDecision is the evaluator's verdict. Advance is true iff every
// assigned test has a score and every assigned case study is submitted.
// There is no score threshold: completion gates advancement, quality is
// judged later by humans.
type AutoAdvanceDecision struct {
	ApplicationID      string       `json:"applicationId"`
	Advance            bool         `json:"advance"`
	MissingTests       []string     `json:"missingTests,omitempty"`
	MissingCaseStudies []string     `json:"missingCaseStudies,omitempty"`
	Scores             []TestResult `json:"scores,omitempty"`
}

// Patch builds the qualified-stage payload patch for an advancing decision.
// Scores are recorded verbatim, exactly as submitted.
func (d AutoAdvanceDecision) Patch() models.PayloadPatch {
	scores := make([]interface{}, 0, len(d.Scores))
	for _, s := range d.Scores {
		scores = append(scores, map[string]interface{}{
			"testName": s.TestName,
			"score":    s.Score,
			"maxScore": s.MaxScore,
		})
	}
	return models.PayloadPatch{
		"testsCompleted":     true,
		"caseStudySubmitted": true,
		"testScores":         scores,
	}
}

// Evaluator checks assessment completeness against the application's
// assigned work.
type Evaluator struct {
	logger logger.Logger
}

// NewEvaluator creates a qualification evaluator.
func NewEvaluator(log logger.Logger) *Evaluator {
	return &Evaluator{
		logger: log.WithFields(map[string]interface{}{"component": "qualification-evaluator"}),
	}
}

// Evaluate compares submitted results against the assignments recorded in
// the applied payload. It never mutates the application: the decision is
// advisory and the caller decides whether to act on it.
func (e *Evaluator) Evaluate(app *models.Application, results AssessmentResults) AutoAdvanceDecision {
	decision := AutoAdvanceDecision{ApplicationID: app.ID}

	applied, ok := app.StageData[stage.Applied].(*models.AppliedPayload)
	if !ok {
		// No assignment record means nothing can be verified as complete.
		decision.Advance = false
		return decision
	}

	scored := make(map[string]TestResult, len(results.TestResults))
	for _, r := range results.TestResults {
		scored[r.TestName] = r
	}
	submitted := make(map[string]bool, len(results.CaseStudyResults))
	for _, r := range results.CaseStudyResults {
		if r.Submitted {
			submitted[r.CaseStudyID] = true
		}
	}

	for _, name := range applied.AssignedTests {
		r, ok := scored[name]
		if !ok {
			decision.MissingTests = append(decision.MissingTests, name)
			continue
		}
		decision.Scores = append(decision.Scores, r)
	}
	for _, id := range applied.AssignedCaseStudies {
		if !submitted[id] {
			decision.MissingCaseStudies = append(decision.MissingCaseStudies, id)
		}
	}

	decision.Advance = len(decision.MissingTests) == 0 && len(decision.MissingCaseStudies) == 0

	e.logger.Debug("qualification evaluated", map[string]interface{}{
		"applicationId":      app.ID,
		"advance":            decision.Advance,
		"missingTests":       decision.MissingTests,
		"missingCaseStudies": decision.MissingCaseStudies,
	})
	return decision
}
