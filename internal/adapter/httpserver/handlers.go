package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/config"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg            config.Config
	Scores         usecase.ScoreService
	Final          usecase.FinalService
	Store          domain.ScoreStore
	RedisCheck     func(ctx context.Context) error
	ReasoningCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, scores usecase.ScoreService, final usecase.FinalService, store domain.ScoreStore, redisCheck, reasoningCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Scores: scores, Final: final, Store: store, RedisCheck: redisCheck, ReasoningCheck: reasoningCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type bodyLanguageDTO struct {
	Posture      float64 `json:"posture" validate:"gte=0,lte=100"`
	Gestures     float64 `json:"gestures" validate:"gte=0,lte=100"`
	Expressions  float64 `json:"expressions" validate:"gte=0,lte=100"`
	OverallScore float64 `json:"overall_score" validate:"gte=0,lte=100"`
}

type turnDTO struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type memoryFactDTO struct {
	Topic         string `json:"topic"`
	Claim         string `json:"claim"`
	QuestionIndex int    `json:"question_index"`
}

type memoryDTO struct {
	Facts []memoryFactDTO `json:"facts"`
}

type scoreRequest struct {
	Question                string           `json:"question" validate:"required"`
	Answer                  string           `json:"answer"`
	BodyLanguage            *bodyLanguageDTO `json:"body_language"`
	TranscriptionConfidence *float64         `json:"transcription_confidence" validate:"omitempty,gte=0,lte=1"`
	LanguageCode            string           `json:"language_code"`
	LanguageConfidence      float64          `json:"language_confidence" validate:"gte=0,lte=1"`
	Route                   string           `json:"route"`
	StudentProfile          string           `json:"student_profile"`
	ConversationHistory     []turnDTO        `json:"conversation_history"`
	Memory                  *memoryDTO       `json:"memory"`
	SessionID               string           `json:"session_id"`
}

func (req scoreRequest) toDomain() domain.AnswerSubmission {
	sub := domain.AnswerSubmission{
		Question:                req.Question,
		Answer:                  req.Answer,
		TranscriptionConfidence: req.TranscriptionConfidence,
		LanguageCode:            req.LanguageCode,
		LanguageConfidence:      req.LanguageConfidence,
		Route:                   req.Route,
		StudentProfile:          req.StudentProfile,
		SessionID:               req.SessionID,
	}
	if req.BodyLanguage != nil {
		sub.BodyLanguage = &domain.BodyLanguageScore{
			Posture:      req.BodyLanguage.Posture,
			Gestures:     req.BodyLanguage.Gestures,
			Expressions:  req.BodyLanguage.Expressions,
			OverallScore: req.BodyLanguage.OverallScore,
		}
	}
	for _, t := range req.ConversationHistory {
		sub.ConversationHistory = append(sub.ConversationHistory, domain.Turn{Question: t.Question, Answer: t.Answer})
	}
	if req.Memory != nil {
		for _, f := range req.Memory.Facts {
			sub.Memory.Facts = append(sub.Memory.Facts, domain.MemoryFact{
				Topic: f.Topic, Claim: f.Claim, QuestionIndex: f.QuestionIndex,
			})
		}
	}
	return sub
}

type scoreResponse struct {
	Score           domain.PerAnswerScore   `json:"score"`
	Relevance       domain.RelevanceResult  `json:"relevance"`
	LanguageWarning string                  `json:"language_warning,omitempty"`
	Diagnostics     domain.ScoreDiagnostics `json:"diagnostics"`
}

// ScoreHandler evaluates one interview answer.
func (s *Server) ScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), validationDetails(err))
			return
		}

		eval, err := s.Scores.Score(r.Context(), req.toDomain())
		if errors.Is(err, domain.ErrInvalidArgument) {
			// Empty or placeholder answers get a zeroed breakdown so the
			// client can still render a result card.
			writeError(w, r, err, map[string]any{
				"content_score": 0,
				"speech_score":  0,
				"body_score":    0,
				"overall":       0,
				"recommendations": []string{
					"Provide an actual answer to the question.",
					"Aim for at least a few full sentences.",
				},
			})
			return
		}
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, scoreResponse{
			Score:           eval.Score,
			Relevance:       eval.Relevance,
			LanguageWarning: eval.LanguageWarning,
			Diagnostics:     eval.Diagnostics,
		})
	}
}

type finalRequest struct {
	Route               string                  `json:"route"`
	StudentProfile      string                  `json:"student_profile"`
	ConversationHistory []turnDTO               `json:"conversation_history"`
	PerAnswerScores     []domain.PerAnswerScore `json:"per_answer_scores"`
	SessionID           string                  `json:"session_id"`
}

// FinalEvaluationHandler produces the end-of-interview verdict. Apart
// from malformed JSON it always answers 200: the decision engine
// degrades internally rather than failing a finished interview.
func (s *Server) FinalEvaluationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req finalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		dreq := domain.FinalEvaluationRequest{
			Route:           req.Route,
			StudentProfile:  req.StudentProfile,
			PerAnswerScores: req.PerAnswerScores,
			SessionID:       req.SessionID,
		}
		for _, t := range req.ConversationHistory {
			dreq.ConversationHistory = append(dreq.ConversationHistory, domain.Turn{Question: t.Question, Answer: t.Answer})
		}
		writeJSON(w, http.StatusOK, s.Final.Finalize(r.Context(), dreq))
	}
}

type sessionScoresResponse struct {
	SessionID string               `json:"session_id"`
	Scores    []domain.ScoreRecord `json:"scores"`
}

// SessionScoresHandler returns a session's append-only score history.
func (s *Server) SessionScoresHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Store == nil {
			writeError(w, r, fmt.Errorf("%w: score history is not configured", domain.ErrInternal), nil)
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: session id required", domain.ErrInvalidArgument), nil)
			return
		}
		recs, err := s.Store.ListScores(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if recs == nil {
			recs = []domain.ScoreRecord{}
		}
		writeJSON(w, http.StatusOK, sessionScoresResponse{SessionID: id, Scores: recs})
	}
}

// ReadyzHandler reports dependency readiness.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		for name, check := range map[string]func(context.Context) error{
			"redis":     s.RedisCheck,
			"reasoning": s.ReasoningCheck,
		} {
			if check == nil {
				checks[name] = "not configured"
				continue
			}
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "unavailable"
		}
		writeJSON(w, status, map[string]any{"status": state, "checks": checks})
	}
}

func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return map[string]any{"fields": fields}
}
