// Package language applies the detected-language penalty and the
// route-specific transcription-confidence tolerance to content scores.
package language

import "fmt"

// Guard decides whether a non-target-language detection penalizes the
// content score. The penalty is strict and non-graduated: even a
// moderate-confidence detection of a wrong language means the interview
// did not proceed in the required language.
type Guard struct {
	target          string
	confidenceFloor float64
	penaltyFactor   float64
}

// Verdict is the guard's outcome for one answer.
type Verdict struct {
	Penalized bool
	Factor    float64 // multiplicative factor applied to content when penalized
	Warning   string
}

// NewGuard constructs a Guard for the target interview language.
// confidenceFloor (default 0.2) and penaltyFactor (default 0.5) are
// tunable policy, not derived invariants.
func NewGuard(target string, confidenceFloor, penaltyFactor float64) *Guard {
	return &Guard{target: target, confidenceFloor: confidenceFloor, penaltyFactor: penaltyFactor}
}

// Inspect examines a detected language code and its confidence. Codes
// are compared on their primary subtag, so "en-US" matches target "en".
func (g *Guard) Inspect(code string, confidence float64) Verdict {
	if code == "" || primarySubtag(code) == g.target {
		return Verdict{Factor: 1}
	}
	if confidence <= g.confidenceFloor {
		// Detection too uncertain to act on.
		return Verdict{Factor: 1}
	}
	return Verdict{
		Penalized: true,
		Factor:    g.penaltyFactor,
		Warning:   fmt.Sprintf("non-%s language detected (%s, confidence %.2f); content score penalized", g.target, code, confidence),
	}
}

func primarySubtag(code string) string {
	for i := 0; i < len(code); i++ {
		if code[i] == '-' || code[i] == '_' {
			return code[:i]
		}
	}
	return code
}

// lowContentBar: the tolerance only fires when the content score is
// already poor enough that garbled transcription could plausibly be the
// cause rather than the answer itself.
const lowContentBar = 40.0

// ToleranceAdjuster implements the route-gated transcription-confidence
// tolerance: very low STT confidence may itself be depressing the
// content score, so a fixed boost compensates once.
type ToleranceAdjuster struct {
	confidenceFloor float64
	boost           float64
}

// NewToleranceAdjuster constructs the adjuster. confidenceFloor default
// 0.5, boost default 1.25.
func NewToleranceAdjuster(confidenceFloor, boost float64) *ToleranceAdjuster {
	return &ToleranceAdjuster{confidenceFloor: confidenceFloor, boost: boost}
}

// Adjust returns the possibly-boosted content score and whether the
// boost fired. It never stacks: callers invoke it exactly once per
// answer, and the returned flag is recorded in diagnostics.
func (a *ToleranceAdjuster) Adjust(content float64, transcriptionConfidence *float64) (float64, bool) {
	if transcriptionConfidence == nil {
		return content, false
	}
	if *transcriptionConfidence >= a.confidenceFloor || content >= lowContentBar {
		return content, false
	}
	return content * a.boost, true
}
