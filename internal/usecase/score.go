// Package usecase contains the application services: per-answer score
// aggregation and the final decision engine.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/heuristic"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/language"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/relevance"
)

// Caps for degenerate inputs. Off-topic answers are a content failure
// regardless of delivery quality, so content is capped hard and speech
// may not exceed a middling score.
const (
	offTopicContentCap = 15.0
	offTopicSpeechCap  = 50.0
)

// ScoreService is the per-answer aggregator: it merges the relevance
// check, the deterministic heuristics, the language guard, and the
// reasoning service's judgment into one bounded PerAnswerScore.
type ScoreService struct {
	Reasoning domain.ReasoningClient
	Store     domain.ScoreStore // optional; nil disables history persistence
	Relevance *relevance.Checker
	Heuristic *heuristic.Scorer
	Language  *language.Guard
	Tolerance *language.ToleranceAdjuster
}

// NewScoreService constructs a ScoreService with its dependencies.
func NewScoreService(reasoning domain.ReasoningClient, store domain.ScoreStore, rel *relevance.Checker, heur *heuristic.Scorer, guard *language.Guard, tol *language.ToleranceAdjuster) ScoreService {
	return ScoreService{Reasoning: reasoning, Store: store, Relevance: rel, Heuristic: heur, Language: guard, Tolerance: tol}
}

// Score evaluates one answer. Empty or placeholder answers return
// domain.ErrInvalidArgument; every other input — however poor — yields
// a bounded evaluation. Degenerate inputs never reach the reasoning
// service: they are capped locally, which both saves spend and keeps a
// lenient upstream from rewarding garbage.
func (s ScoreService) Score(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerEvaluation, error) {
	rc, known := domain.RubricFor(sub.Route)
	if !known {
		slog.Warn("unknown route, using default rubric",
			slog.String("route", sub.Route),
			slog.String("default", domain.DefaultRoute))
	}

	h := s.Heuristic.Score(sub.Answer, sub.BodyLanguage, sub.TranscriptionConfidence)
	if h.Empty {
		return domain.AnswerEvaluation{}, fmt.Errorf("%w: answer is empty or a placeholder", domain.ErrInvalidArgument)
	}

	rel := s.Relevance.Check(sub.Question, sub.Answer)

	diag := domain.ScoreDiagnostics{
		HeuristicContent: h.Content,
		HeuristicSpeech:  h.Speech,
		HeuristicBody:    h.Body,
	}

	weights := rc.Weights
	if h.BodyMissing {
		weights = domain.Redistribute(weights, domain.CategoryBody)
		diag.WeightsRedistributed = true
	}

	var (
		content   float64
		rubricMap map[string]int
		summary   string
		redFlags  = []string{}
		recs      = []string{}
	)
	speech := h.Speech
	body := h.Body

	switch {
	case h.TooShort:
		diag.DegenerateInput = "too_short"
		content, speech = 0, 0
		redFlags = append(redFlags, h.Notes...)
	case rel.IsOffTopic:
		diag.DegenerateInput = "off_topic"
		content = math.Min(offTopicContentCap, rel.Score)
		speech = math.Min(offTopicSpeechCap, h.Speech)
		redFlags = append(redFlags, "off-topic answer: "+rel.Warning)
	default:
		res, err := s.Reasoning.ScoreAnswer(ctx, sub)
		if err != nil {
			// The keyword-overlap penalty stands in for the semantic
			// judgment we could not get; it is never applied on top of
			// a successful reasoning score.
			observability.FallbackTotal.WithLabelValues("answer").Inc()
			slog.Warn("reasoning service unavailable, scoring heuristically",
				slog.String("route", rc.Route),
				slog.Any("error", err))
			content = h.Content - rel.Penalty
			diag.RelevancePenaltyApplied = rel.Penalty > 0
		} else {
			diag.ReasoningUsed = true
			content = float64(res.ContentScore)
			rubricMap = res.Rubric
			summary = res.Summary
			redFlags = append(redFlags, res.RedFlags...)
			recs = append(recs, res.Recommendations...)
		}
	}

	var langWarning string
	if v := s.Language.Inspect(sub.LanguageCode, sub.LanguageConfidence); v.Penalized {
		content *= v.Factor
		diag.LanguagePenaltyApplied = true
		langWarning = v.Warning
		redFlags = append(redFlags, "non-target language detected")
	}

	if rc.TranscriptionTolerance {
		if boosted, applied := s.Tolerance.Adjust(content, sub.TranscriptionConfidence); applied {
			content = boosted
			diag.TranscriptionBoostApplied = true
			slog.Info("transcription tolerance boost applied",
				slog.String("route", rc.Route),
				slog.Float64("content", content))
		}
	}

	score := domain.PerAnswerScore{
		ContentScore:    domain.RoundScore(content),
		SpeechScore:     domain.RoundScore(speech),
		BodyScore:       domain.RoundScore(body),
		Overall:         domain.RoundScore(weights.Content*domain.ClampScore(content) + weights.Speech*domain.ClampScore(speech) + weights.Body*domain.ClampScore(body)),
		Weights:         weights,
		Rubric:          rubricMap,
		Summary:         summary,
		RedFlags:        redFlags,
		Recommendations: recs,
	}
	observability.AnswerOverallScore.Observe(float64(score.Overall))

	s.persist(ctx, sub, score)

	return domain.AnswerEvaluation{
		Score:           score,
		Relevance:       rel,
		LanguageWarning: langWarning,
		Diagnostics:     diag,
	}, nil
}

// persist appends the score to the session history, best-effort: a
// storage hiccup must not fail a scored answer.
func (s ScoreService) persist(ctx context.Context, sub domain.AnswerSubmission, score domain.PerAnswerScore) {
	if s.Store == nil || sub.SessionID == "" {
		return
	}
	rec := domain.ScoreRecord{
		ID:            ulid.Make().String(),
		QuestionIndex: len(sub.ConversationHistory),
		Question:      sub.Question,
		Score:         score,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Store.AppendScore(ctx, sub.SessionID, rec); err != nil {
		slog.Warn("failed to persist per-answer score",
			slog.String("session_id", sub.SessionID),
			slog.Any("error", err))
	}
	if len(sub.Memory.Facts) > 0 {
		if err := s.Store.SaveMemory(ctx, sub.SessionID, sub.Memory); err != nil {
			slog.Warn("failed to persist session memory",
				slog.String("session_id", sub.SessionID),
				slog.Any("error", err))
		}
	}
}
