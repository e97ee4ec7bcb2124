package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
)

func TestCleanJSON_StripsFencesAndProse(t *testing.T) {
	t.Parallel()
	raw := "Here is the evaluation:\n```json\n{\"content_score\": 72, \"summary\": \"ok\",}\n```"
	cleaned := CleanJSON(raw)
	assert.Equal(t, `{"content_score": 72, "summary": "ok"}`, cleaned)
}

func TestCleanJSON_BracesInsideStrings(t *testing.T) {
	t.Parallel()
	raw := `{"summary": "uses {braces} and \"quotes\"", "content_score": 50}`
	assert.Equal(t, raw, CleanJSON(raw))
}

func TestParseAnswerResult_ClampsScores(t *testing.T) {
	t.Parallel()
	res, err := parseAnswerResult(`{
		"content_score": 140,
		"rubric": {"course_fit": -5, "financial_requirement": 88.6},
		"summary": "strong on funding",
		"red_flags": ["vague accommodation plan"]
	}`)
	require.NoError(t, err)
	assert.Equal(t, 100, res.ContentScore)
	assert.Equal(t, 0, res.Rubric["course_fit"])
	assert.Equal(t, 89, res.Rubric["financial_requirement"])
	assert.NotNil(t, res.Recommendations)
}

func TestParseAnswerResult_RejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := parseAnswerResult("I cannot evaluate this answer, sorry.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaInvalid))

	_, err = parseAnswerResult(`{"content_score": 50}`) // missing summary
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaInvalid))
}

func TestParseFinalReport_ClampsAndKeepsDimensions(t *testing.T) {
	t.Parallel()
	rep, err := parseFinalReport("```json\n" + `{
		"decision": "accepted",
		"overall": 81.4,
		"dimensions": {"course_fit": 85, "financial_requirement": 112},
		"summary": "credible overall",
		"strengths": ["funding"],
		"weaknesses": [],
		"recommendations": ["rehearse accommodation costs"]
	}` + "\n```")
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAccepted, rep.Decision)
	assert.Equal(t, 81, rep.Overall)
	assert.Equal(t, 100, rep.Dimensions["financial_requirement"])
}

func TestParseFinalReport_RequiresDimensions(t *testing.T) {
	t.Parallel()
	_, err := parseFinalReport(`{"decision": "accepted", "overall": 80, "summary": "x"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaInvalid))
}

func TestMockClient_Deterministic(t *testing.T) {
	t.Parallel()
	m := NewMock()
	sub := domain.AnswerSubmission{
		Route:    "uk_student",
		Question: "How will you fund your studies?",
		Answer:   "My parents will fund the first year and I hold a part scholarship covering the rest.",
	}
	a, err := m.ScoreAnswer(context.Background(), sub)
	require.NoError(t, err)
	b, err := m.ScoreAnswer(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a.ContentScore, 0)
	assert.LessOrEqual(t, a.ContentScore, 100)
	assert.Len(t, a.Rubric, 5)
}
