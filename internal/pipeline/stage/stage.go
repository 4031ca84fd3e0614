// internal/pipeline/stage/stage.go

// Package stage defines the fixed hiring pipeline stage sequence and the
// legal-transition table.
//
// Stage graph:
//
//	applied ──► qualified ──► interview ──► final_review ──► passed
//	   │            │             │              │
//	   └────────────┴─────────────┴──────────────┴──► rejected
//
// passed and rejected are terminal — no outgoing transitions.
package stage

import "fmt"

// Stage is one discrete phase of the hiring pipeline.
type Stage string

const (
	Applied     Stage = "applied"
	Qualified   Stage = "qualified"
	Interview   Stage = "interview"
	FinalReview Stage = "final_review"
	Passed      Stage = "passed"
	Rejected    Stage = "rejected"
)

// linearPath is the totally ordered advancement path. Rejected sits outside
// the order as an absorbing state.
var linearPath = []Stage{Applied, Qualified, Interview, FinalReview, Passed}

// ordinals maps each linear-path stage to its position. Rejected has no
// ordinal.
var ordinals = map[Stage]int{
	Applied:     0,
	Qualified:   1,
	Interview:   2,
	FinalReview: 3,
	Passed:      4,
}

// legalNext lists every allowed (from → to) pair. The table is fixed at
// compile time: changing the hiring process is a deploy, not a runtime
// operation, because payload shapes are coupled 1:1 to stage identity.
var legalNext = map[Stage][]Stage{
	Applied:     {Qualified, Rejected},
	Qualified:   {Interview, Rejected},
	Interview:   {FinalReview, Rejected},
	FinalReview: {Passed, Rejected},
	// Passed and Rejected are terminal — no outgoing transitions.
}

// Parse converts a raw string to a Stage, returning an error for unknown
// values.
func Parse(s string) (Stage, error) {
	st := Stage(s)
	switch st {
	case Applied, Qualified, Interview, FinalReview, Passed, Rejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown pipeline stage %q", s)
}

// LinearPath returns the ordered advancement path, applied through passed.
func LinearPath() []Stage {
	out := make([]Stage, len(linearPath))
	copy(out, linearPath)
	return out
}

// All returns every stage including the rejected terminal.
func All() []Stage {
	return append(LinearPath(), Rejected)
}

// Ordinal returns the position of s on the linear path. Rejected and unknown
// stages report ok=false.
func Ordinal(s Stage) (int, bool) {
	ord, ok := ordinals[s]
	return ord, ok
}

// Before reports whether a comes strictly earlier than b on the linear path.
func Before(a, b Stage) bool {
	oa, oka := ordinals[a]
	ob, okb := ordinals[b]
	return oka && okb && oa < ob
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Stage) bool {
	return s == Passed || s == Rejected
}

// Next returns the single next stage on the linear path, if any.
func Next(s Stage) (Stage, bool) {
	ord, ok := ordinals[s]
	if !ok || ord+1 >= len(linearPath) {
		return "", false
	}
	return linearPath[ord+1], true
}

// LegalNextStages returns the set of stages reachable from current in one
// transition. Empty for terminal stages.
func LegalNextStages(current Stage) []Stage {
	allowed, ok := legalNext[current]
	if !ok {
		return nil
	}
	out := make([]Stage, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether moving from → to is permitted by the state
// machine.
func CanTransition(from, to Stage) bool {
	for _, s := range legalNext[from] {
		if s == to {
			return true
		}
	}
	return false
}
