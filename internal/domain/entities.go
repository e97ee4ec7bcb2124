// Package domain holds the core entities and ports of the interview
// scoring pipeline. It stays free of third-party imports; adapters and
// usecases bring their own stacks.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrSchemaInvalid   = errors.New("schema invalid")
	ErrInternal        = errors.New("internal error")
)

// BodyLanguageScore is the bounded posture/engagement record produced by
// the computer-vision subsystem. The pipeline only reads OverallScore;
// absence of the whole record is a first-class case (weight is zeroed,
// never defaulted to a generous mid score).
type BodyLanguageScore struct {
	Posture      float64 `json:"posture"`
	Gestures     float64 `json:"gestures"`
	Expressions  float64 `json:"expressions"`
	OverallScore float64 `json:"overall_score"`
}

// Turn is one question/answer exchange of the interview transcript.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MemoryFact is a single claim extracted from an earlier answer
// (e.g. named sponsor, funding amount). Facts are only forwarded to the
// reasoning service so it can flag contradictions.
type MemoryFact struct {
	Topic         string `json:"topic"`
	Claim         string `json:"claim"`
	QuestionIndex int    `json:"question_index"`
}

// SessionMemory accumulates facts across one interview session. It is
// owned by the caller, grows monotonically, and is read-only here.
type SessionMemory struct {
	Facts []MemoryFact `json:"facts"`
}

// AnswerSubmission is the per-answer scoring input. Transient; built
// per request by the caller.
type AnswerSubmission struct {
	Question                string
	Answer                  string
	BodyLanguage            *BodyLanguageScore
	TranscriptionConfidence *float64 // [0,1], nil when the STT layer gave none
	LanguageCode            string
	LanguageConfidence      float64 // [0,1]
	Route                   string
	StudentProfile          string
	ConversationHistory     []Turn
	Memory                  SessionMemory
	SessionID               string
}

// RelevanceResult is the outcome of the question/answer term-overlap
// check. Derived, recomputed on every call.
type RelevanceResult struct {
	Score        float64  `json:"score"`   // [0,100]
	Overlap      float64  `json:"overlap"` // [0,1]
	FoundTerms   []string `json:"found_terms"`
	MissingTerms []string `json:"missing_terms"`
	Penalty      float64  `json:"penalty"` // >= 0, subtracted on the heuristic path only
	IsOffTopic   bool     `json:"is_off_topic"`
	Warning      string   `json:"warning,omitempty"`
}

// Weights is the category blend for one route. Sum must be 1.
type Weights struct {
	Content float64 `json:"content"`
	Speech  float64 `json:"speech"`
	Body    float64 `json:"body"`
}

// Sum returns the total mass of the blend.
func (w Weights) Sum() float64 { return w.Content + w.Speech + w.Body }

// PerAnswerScore is the immutable result for one answer. Appended in
// question order to the session's history and never mutated afterward.
type PerAnswerScore struct {
	ContentScore    int            `json:"content_score"`
	SpeechScore     int            `json:"speech_score"`
	BodyScore       int            `json:"body_score"`
	Overall         int            `json:"overall"`
	Weights         Weights        `json:"weights"`
	Rubric          map[string]int `json:"rubric,omitempty"` // reasoning-service dimension scores
	Summary         string         `json:"summary,omitempty"`
	RedFlags        []string       `json:"red_flags"`
	Recommendations []string       `json:"recommendations"`
}

// ScoreDiagnostics records which adjustments fired, for auditability.
type ScoreDiagnostics struct {
	ReasoningUsed             bool    `json:"reasoning_used"`
	HeuristicContent          float64 `json:"heuristic_content"`
	HeuristicSpeech           float64 `json:"heuristic_speech"`
	HeuristicBody             float64 `json:"heuristic_body"`
	RelevancePenaltyApplied   bool    `json:"relevance_penalty_applied"`
	LanguagePenaltyApplied    bool    `json:"language_penalty_applied"`
	TranscriptionBoostApplied bool    `json:"transcription_boost_applied"`
	WeightsRedistributed      bool    `json:"weights_redistributed"`
	DegenerateInput           string  `json:"degenerate_input,omitempty"` // "", "too_short", "off_topic"
}

// AnswerEvaluation is the full per-answer response: score plus the
// relevance check and diagnostics surrounding it.
type AnswerEvaluation struct {
	Score           PerAnswerScore
	Relevance       RelevanceResult
	LanguageWarning string
	Diagnostics     ScoreDiagnostics
}

// Decision is the final verdict over one interview.
type Decision string

// Final decisions.
const (
	DecisionAccepted   Decision = "accepted"
	DecisionRejected   Decision = "rejected"
	DecisionBorderline Decision = "borderline"
)

// FinalReport is created exactly once per interview, at session end.
type FinalReport struct {
	Decision        Decision       `json:"decision"`
	Overall         int            `json:"overall"`
	Dimensions      map[string]int `json:"dimensions"`
	Summary         string         `json:"summary"`
	Strengths       []string       `json:"strengths"`
	Weaknesses      []string       `json:"weaknesses"`
	Recommendations []string       `json:"recommendations"`
}

// FinalEvaluationRequest carries everything the decision engine needs.
// PerAnswerScores may be empty; the engine then loads the session's
// stored history, or degrades to transcript keyword heuristics.
type FinalEvaluationRequest struct {
	Route               string
	StudentProfile      string
	ConversationHistory []Turn
	PerAnswerScores     []PerAnswerScore
	SessionID           string
}

// ReasoningAnswerResult is what the reasoning service returns for a
// single answer, already parsed and clamped by the adapter.
type ReasoningAnswerResult struct {
	ContentScore    int
	Rubric          map[string]int
	Summary         string
	RedFlags        []string
	Recommendations []string
}

// ReasoningClient is the capability port for the external reasoning
// service. Calls may fail or time out; callers never retry — a single
// failed attempt falls back to heuristics within the same request.
type ReasoningClient interface {
	ScoreAnswer(ctx context.Context, sub AnswerSubmission) (ReasoningAnswerResult, error)
	FinalEvaluation(ctx context.Context, req FinalEvaluationRequest) (FinalReport, error)
}

// ScoreRecord is one persisted entry of a session's score history.
type ScoreRecord struct {
	ID            string         `json:"id"`
	QuestionIndex int            `json:"question_index"`
	Question      string         `json:"question"`
	Score         PerAnswerScore `json:"score"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ScoreStore persists the append-only per-session score history and the
// latest session-memory snapshot. Order equals append order.
type ScoreStore interface {
	AppendScore(ctx context.Context, sessionID string, rec ScoreRecord) error
	ListScores(ctx context.Context, sessionID string) ([]ScoreRecord, error)
	SaveMemory(ctx context.Context, sessionID string, mem SessionMemory) error
	GetMemory(ctx context.Context, sessionID string) (SessionMemory, error)
}
