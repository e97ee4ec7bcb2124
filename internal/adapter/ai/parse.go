package ai

import (
	"encoding/json"
	"fmt"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
)

// parseAnswerResult validates and clamps the reasoning service's
// per-answer JSON. Schema violations return domain.ErrSchemaInvalid so
// the aggregator falls back to heuristics.
func parseAnswerResult(raw string) (domain.ReasoningAnswerResult, error) {
	var payload struct {
		ContentScore    float64            `json:"content_score"`
		Rubric          map[string]float64 `json:"rubric"`
		Summary         string             `json:"summary"`
		RedFlags        []string           `json:"red_flags"`
		Recommendations []string           `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &payload); err != nil {
		return domain.ReasoningAnswerResult{}, fmt.Errorf("%w: answer result: %v", domain.ErrSchemaInvalid, err)
	}
	if payload.Summary == "" {
		return domain.ReasoningAnswerResult{}, fmt.Errorf("%w: answer result missing summary", domain.ErrSchemaInvalid)
	}

	rubric := make(map[string]int, len(payload.Rubric))
	for k, v := range payload.Rubric {
		rubric[k] = domain.RoundScore(v)
	}
	return domain.ReasoningAnswerResult{
		ContentScore:    domain.RoundScore(payload.ContentScore),
		Rubric:          rubric,
		Summary:         payload.Summary,
		RedFlags:        emptyIfNil(payload.RedFlags),
		Recommendations: emptyIfNil(payload.Recommendations),
	}, nil
}

// parseFinalReport validates and clamps the whole-interview JSON. The
// decision field is parsed but not trusted: the decision engine
// recomputes it from the route thresholds.
func parseFinalReport(raw string) (domain.FinalReport, error) {
	var payload struct {
		Decision        string             `json:"decision"`
		Overall         float64            `json:"overall"`
		Dimensions      map[string]float64 `json:"dimensions"`
		Summary         string             `json:"summary"`
		Strengths       []string           `json:"strengths"`
		Weaknesses      []string           `json:"weaknesses"`
		Recommendations []string           `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &payload); err != nil {
		return domain.FinalReport{}, fmt.Errorf("%w: final report: %v", domain.ErrSchemaInvalid, err)
	}
	if payload.Summary == "" || len(payload.Dimensions) == 0 {
		return domain.FinalReport{}, fmt.Errorf("%w: final report missing summary or dimensions", domain.ErrSchemaInvalid)
	}

	dims := make(map[string]int, len(payload.Dimensions))
	for k, v := range payload.Dimensions {
		dims[k] = domain.RoundScore(v)
	}
	return domain.FinalReport{
		Decision:        domain.Decision(payload.Decision),
		Overall:         domain.RoundScore(payload.Overall),
		Dimensions:      dims,
		Summary:         payload.Summary,
		Strengths:       emptyIfNil(payload.Strengths),
		Weaknesses:      emptyIfNil(payload.Weaknesses),
		Recommendations: emptyIfNil(payload.Recommendations),
	}, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
