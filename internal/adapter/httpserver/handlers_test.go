package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/config"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/heuristic"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/language"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/relevance"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/usecase"
)

type stubReasoning struct {
	answer    domain.ReasoningAnswerResult
	answerErr error
	final     domain.FinalReport
	finalErr  error
}

func (s stubReasoning) ScoreAnswer(_ context.Context, _ domain.AnswerSubmission) (domain.ReasoningAnswerResult, error) {
	return s.answer, s.answerErr
}

func (s stubReasoning) FinalEvaluation(_ context.Context, _ domain.FinalEvaluationRequest) (domain.FinalReport, error) {
	return s.final, s.finalErr
}

type stubStore struct {
	records map[string][]domain.ScoreRecord
	err     error
}

func (s *stubStore) AppendScore(_ context.Context, sessionID string, rec domain.ScoreRecord) error {
	if s.records == nil {
		s.records = map[string][]domain.ScoreRecord{}
	}
	s.records[sessionID] = append(s.records[sessionID], rec)
	return nil
}

func (s *stubStore) ListScores(_ context.Context, sessionID string) ([]domain.ScoreRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[sessionID], nil
}

func (s *stubStore) SaveMemory(_ context.Context, _ string, _ domain.SessionMemory) error {
	return nil
}

func (s *stubStore) GetMemory(_ context.Context, _ string) (domain.SessionMemory, error) {
	return domain.SessionMemory{}, domain.ErrNotFound
}

func newTestServer(r domain.ReasoningClient, store domain.ScoreStore) *Server {
	scores := usecase.NewScoreService(r, store,
		relevance.New(0.1),
		heuristic.New(heuristic.Options{MinAnswerWords: 10, MissingBodyScore: 25}),
		language.NewGuard("en", 0.2, 0.5),
		language.NewToleranceAdjuster(0.5, 1.25),
	)
	final := usecase.NewFinalService(r, store)
	return NewServer(config.Config{}, scores, final, store, nil, nil)
}

func doJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestScoreHandler_Success(t *testing.T) {
	srv := newTestServer(stubReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 78, Summary: "solid"}}, nil)

	body := `{
		"question": "Why did you choose this university and this major program?",
		"answer": "I chose this university because its program in computer science matches my major and I plan to research machine learning with a professor there.",
		"body_language": {"posture": 80, "gestures": 75, "expressions": 70, "overall_score": 76},
		"language_code": "en",
		"language_confidence": 0.97,
		"route": "us_f1"
	}`
	rec := doJSON(t, srv.ScoreHandler(), body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp scoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 78, resp.Score.ContentScore)
	assert.InDelta(t, 1.0, resp.Score.Weights.Sum(), 1e-9)
	assert.True(t, resp.Diagnostics.ReasoningUsed)
	assert.GreaterOrEqual(t, resp.Score.Overall, 0)
	assert.LessOrEqual(t, resp.Score.Overall, 100)
}

func TestScoreHandler_EmptyAnswerZeroedBreakdown(t *testing.T) {
	srv := newTestServer(stubReasoning{}, nil)

	rec := doJSON(t, srv.ScoreHandler(), `{"question": "Who is your sponsor?", "answer": ""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
	details, ok := env.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, details["overall"])
	assert.NotEmpty(t, details["recommendations"])
}

func TestScoreHandler_InvalidJSON(t *testing.T) {
	srv := newTestServer(stubReasoning{}, nil)
	rec := doJSON(t, srv.ScoreHandler(), `{"question": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreHandler_ValidationFailure(t *testing.T) {
	srv := newTestServer(stubReasoning{}, nil)
	rec := doJSON(t, srv.ScoreHandler(), `{"question": "q", "answer": "a", "language_confidence": 2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
	assert.NotNil(t, env.Error.Details)
}

func TestFinalEvaluationHandler_AlwaysAnswers(t *testing.T) {
	// Degraded reasoning must still yield a 200 with a verdict.
	srv := newTestServer(stubReasoning{finalErr: domain.ErrUpstreamFailure}, nil)

	rec := doJSON(t, srv.FinalEvaluationHandler(), `{
		"route": "us_f1",
		"per_answer_scores": [
			{"content_score": 70, "speech_score": 70, "body_score": 70, "overall": 70,
			 "weights": {"content": 0.6, "speech": 0.2, "body": 0.2},
			 "red_flags": [], "recommendations": []}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep domain.FinalReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, domain.DecisionBorderline, rep.Decision)
	assert.NotEmpty(t, rep.Summary)
	assert.NotEmpty(t, rep.Dimensions)
}

func TestFinalEvaluationHandler_InvalidJSON(t *testing.T) {
	srv := newTestServer(stubReasoning{}, nil)
	rec := doJSON(t, srv.FinalEvaluationHandler(), `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionScoresHandler(t *testing.T) {
	store := &stubStore{records: map[string][]domain.ScoreRecord{
		"sess-1": {
			{ID: "a", QuestionIndex: 0, Question: "q1", CreatedAt: time.Now().UTC()},
			{ID: "b", QuestionIndex: 1, Question: "q2", CreatedAt: time.Now().UTC()},
		},
	}}
	srv := newTestServer(stubReasoning{}, store)

	r := chi.NewRouter()
	r.Get("/v1/sessions/{id}/scores", srv.SessionScoresHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/scores", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionScoresResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Len(t, resp.Scores, 2)

	// Unknown sessions return an empty history, not an error.
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/nobody/scores", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Scores)
}

func TestReadyzHandler(t *testing.T) {
	srv := newTestServer(stubReasoning{}, nil)
	srv.RedisCheck = func(context.Context) error { return nil }
	srv.ReasoningCheck = func(context.Context) error { return nil }

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ReadyzHandler()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.RedisCheck = func(context.Context) error { return fmt.Errorf("connection refused") }
	rec = httptest.NewRecorder()
	srv.ReadyzHandler()(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
