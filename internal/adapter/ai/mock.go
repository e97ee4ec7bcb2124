package ai

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/pkg/textx"
)

// MockClient is a deterministic reasoning client for dev and tests.
// Scores derive from answer length plus a stable per-answer jitter, so
// repeated runs over the same transcript produce identical results.
type MockClient struct{}

// NewMock constructs the deterministic mock client.
func NewMock() *MockClient { return &MockClient{} }

// ScoreAnswer grades deterministically from answer substance.
func (m *MockClient) ScoreAnswer(_ context.Context, sub domain.AnswerSubmission) (domain.ReasoningAnswerResult, error) {
	rc, _ := domain.RubricFor(sub.Route)
	wc := textx.WordCount(sub.Answer)

	content := 40 + wc
	if content > 86 {
		content = 86
	}
	content += jitter(sub.Answer, 0, 6)

	rubric := make(map[string]int, len(rc.Dimensions))
	for i, d := range rc.Dimensions {
		rubric[d.Name] = domain.RoundScore(float64(content + jitter(sub.Answer, i+1, 9) - 4))
	}

	return domain.ReasoningAnswerResult{
		ContentScore:    domain.RoundScore(float64(content)),
		Rubric:          rubric,
		Summary:         fmt.Sprintf("Answer addresses the question with %d words of detail.", wc),
		RedFlags:        []string{},
		Recommendations: []string{"Add concrete figures and named sources where possible."},
	}, nil
}

// FinalEvaluation derives a report from the per-answer scores when
// present, otherwise from transcript length.
func (m *MockClient) FinalEvaluation(_ context.Context, req domain.FinalEvaluationRequest) (domain.FinalReport, error) {
	rc, _ := domain.RubricFor(req.Route)

	base := 55
	if n := len(req.PerAnswerScores); n > 0 {
		sum := 0
		for _, s := range req.PerAnswerScores {
			sum += s.Overall
		}
		base = sum / n
	} else if len(req.ConversationHistory) > 0 {
		words := 0
		for _, t := range req.ConversationHistory {
			words += textx.WordCount(t.Answer)
		}
		base = domain.RoundScore(float64(45 + words/len(req.ConversationHistory)))
	}

	dims := make(map[string]int, len(rc.Dimensions))
	for i, d := range rc.Dimensions {
		dims[d.Name] = domain.RoundScore(float64(base + jitter(req.StudentProfile+d.Name, i, 7) - 3))
	}

	return domain.FinalReport{
		Decision:        rc.Decide(base, dims),
		Overall:         domain.RoundScore(float64(base)),
		Dimensions:      dims,
		Summary:         fmt.Sprintf("Mock evaluation over %d answers for the %s route.", len(req.ConversationHistory), rc.DisplayName),
		Strengths:       []string{"consistent answers across the interview"},
		Weaknesses:      []string{"limited concrete evidence in places"},
		Recommendations: []string{"Prepare exact figures for funding and costs."},
	}, nil
}

// jitter returns a stable value in [0,mod) derived from the input text.
func jitter(s string, salt, mod int) int {
	h := sha1.Sum([]byte(fmt.Sprintf("%d:%s", salt, s)))
	return int(binary.BigEndian.Uint32(h[:4]) % uint32(mod))
}
