package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/observability"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/pkg/textx"
)

// FinalService turns a completed interview into a FinalReport. It
// prefers the reasoning service; on any failure it degrades to the
// per-answer score history (tier 1) and then to transcript keyword
// statistics (tier 2). Finalization never fails a completed interview:
// the worst case is a clearly-labeled conservative borderline result.
type FinalService struct {
	Reasoning domain.ReasoningClient
	Store     domain.ScoreStore // optional
}

// NewFinalService constructs a FinalService.
func NewFinalService(reasoning domain.ReasoningClient, store domain.ScoreStore) FinalService {
	return FinalService{Reasoning: reasoning, Store: store}
}

// moneyRe detects concrete funding or cost figures in a transcript.
var moneyRe = regexp.MustCompile(`(?i)[$£€]\s?\d[\d,]*|\b\d[\d,]*\s?(?:dollars|pounds|usd|gbp|euros?)\b`)

// Finalize produces the interview's one FinalReport. It returns no
// error by contract; all failure modes degrade internally.
func (s FinalService) Finalize(ctx context.Context, req domain.FinalEvaluationRequest) (report domain.FinalReport) {
	rc, known := domain.RubricFor(req.Route)
	if !known {
		slog.Warn("unknown route in final evaluation, using default rubric",
			slog.String("route", req.Route))
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("final evaluation panicked, returning conservative result",
				slog.String("route", rc.Route), slog.Any("recover", r))
			observability.FallbackTotal.WithLabelValues("final_conservative").Inc()
			report = conservativeReport(rc)
		}
		observability.FinalDecisionsTotal.WithLabelValues(rc.Route, string(report.Decision)).Inc()
	}()

	if len(req.PerAnswerScores) == 0 && s.Store != nil && req.SessionID != "" {
		recs, err := s.Store.ListScores(ctx, req.SessionID)
		if err != nil {
			slog.Warn("failed to load stored score history",
				slog.String("session_id", req.SessionID), slog.Any("error", err))
		}
		for _, r := range recs {
			req.PerAnswerScores = append(req.PerAnswerScores, r.Score)
		}
	}

	rep, err := s.Reasoning.FinalEvaluation(ctx, req)
	if err == nil {
		return normalizeReport(rc, rep)
	}
	slog.Warn("reasoning service unavailable for final evaluation, degrading",
		slog.String("route", rc.Route), slog.Any("error", err))

	if len(req.PerAnswerScores) > 0 {
		observability.FallbackTotal.WithLabelValues("final_tier1").Inc()
		return averageScoresReport(rc, req.PerAnswerScores)
	}
	observability.FallbackTotal.WithLabelValues("final_tier2").Inc()
	return transcriptKeywordReport(rc, req.ConversationHistory)
}

// normalizeReport clamps a reasoning-service report onto the rubric:
// dimensions the service skipped inherit the overall score, and the
// decision is recomputed from the route thresholds rather than trusted.
func normalizeReport(rc domain.RubricConfig, rep domain.FinalReport) domain.FinalReport {
	if rep.Dimensions == nil {
		rep.Dimensions = map[string]int{}
	}
	for _, d := range rc.Dimensions {
		if _, ok := rep.Dimensions[d.Name]; !ok {
			rep.Dimensions[d.Name] = rep.Overall
		}
	}
	rep.Decision = rc.Decide(rep.Overall, rep.Dimensions)
	return rep
}

// averageScoresReport is the tier-1 fallback: the per-answer scores are
// already penalized and bounded, so their averages are trusted over any
// re-derivation from raw text.
func averageScoresReport(rc domain.RubricConfig, scores []domain.PerAnswerScore) domain.FinalReport {
	var sumOverall, sumContent, sumSpeech, sumBody float64
	flagCounts := map[string]int{}
	for _, s := range scores {
		sumOverall += float64(s.Overall)
		sumContent += float64(s.ContentScore)
		sumSpeech += float64(s.SpeechScore)
		sumBody += float64(s.BodyScore)
		for _, f := range s.RedFlags {
			flagCounts[f]++
		}
	}
	n := float64(len(scores))
	avg := map[domain.Category]float64{
		domain.CategoryContent: sumContent / n,
		domain.CategorySpeech:  sumSpeech / n,
		domain.CategoryBody:    sumBody / n,
	}

	dims := make(map[string]int, len(rc.Dimensions))
	for _, d := range rc.Dimensions {
		dims[d.Name] = domain.RoundScore(avg[d.Source])
	}
	overall := domain.RoundScore(sumOverall / n)

	weaknesses := topFlags(flagCounts, 3)
	strengths := []string{}
	if avg[domain.CategoryContent] >= 70 {
		strengths = append(strengths, "substantive, relevant answers across the interview")
	}
	if avg[domain.CategorySpeech] >= 70 {
		strengths = append(strengths, "clear and fluent delivery")
	}
	recs := make([]string, 0, len(weaknesses))
	for _, w := range weaknesses {
		recs = append(recs, "Address recurring concern: "+w)
	}
	if len(recs) == 0 {
		recs = append(recs, "Keep answers specific; quote exact figures where asked.")
	}

	return domain.FinalReport{
		Decision:   rc.Decide(overall, dims),
		Overall:    overall,
		Dimensions: dims,
		Summary: fmt.Sprintf("Evaluated from %d per-answer scores (reasoning service unavailable). "+
			"Average performance %d/100 across the %s rubric.", len(scores), overall, rc.DisplayName),
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		Recommendations: recs,
	}
}

// transcriptKeywordReport is the tier-2 fallback for the degenerate
// case of no score history at all: keyword-group and figure detectors
// over the concatenated transcript, blended with answer length. Lower
// confidence by construction; the summary says so.
func transcriptKeywordReport(rc domain.RubricConfig, history []domain.Turn) domain.FinalReport {
	if len(history) == 0 {
		return conservativeReport(rc)
	}

	var b strings.Builder
	totalWords := 0
	for _, t := range history {
		b.WriteString(strings.ToLower(t.Answer))
		b.WriteString("\n")
		totalWords += textx.WordCount(t.Answer)
	}
	transcript := b.String()
	avgWords := totalWords / len(history)

	lengthBonus := float64(avgWords) / 8
	if lengthBonus > 10 {
		lengthBonus = 10
	}
	hasFigures := moneyRe.MatchString(transcript)

	dims := make(map[string]int, len(rc.Dimensions))
	total := 0
	for _, d := range rc.Dimensions {
		score := 40.0 + lengthBonus
		for _, group := range rc.KeywordGroups[d.Name] {
			for _, term := range group {
				if strings.Contains(transcript, term) {
					score += 12
					break
				}
			}
		}
		if hasFigures && strings.Contains(d.Name, "financial") {
			score += 8
		}
		if score > 85 {
			score = 85
		}
		dims[d.Name] = domain.RoundScore(score)
		total += dims[d.Name]
	}
	overall := domain.RoundScore(float64(total) / float64(len(rc.Dimensions)))

	return domain.FinalReport{
		Decision:   rc.Decide(overall, dims),
		Overall:    overall,
		Dimensions: dims,
		Summary: fmt.Sprintf("Keyword-based estimate over %d answers (no per-answer scores and no "+
			"reasoning service available); treat with lower confidence.", len(history)),
		Strengths:       []string{},
		Weaknesses:      []string{"evaluation derived from transcript keywords only"},
		Recommendations: []string{"Re-run the evaluation when the reasoning service is available."},
	}
}

// conservativeReport is the terminal safety net: a completed interview
// always gets a report, never an error.
func conservativeReport(rc domain.RubricConfig) domain.FinalReport {
	dims := make(map[string]int, len(rc.Dimensions))
	for _, d := range rc.Dimensions {
		dims[d.Name] = 50
	}
	return domain.FinalReport{
		Decision:   domain.DecisionBorderline,
		Overall:    50,
		Dimensions: dims,
		Summary: "The evaluation could not be completed reliably; this is a conservative " +
			"placeholder verdict, not a judgment of the interview itself.",
		Strengths:       []string{},
		Weaknesses:      []string{"evaluation pipeline degraded"},
		Recommendations: []string{"Repeat the mock interview to obtain a full evaluation."},
	}
}

func topFlags(counts map[string]int, n int) []string {
	type kv struct {
		flag  string
		count int
	}
	items := make([]kv, 0, len(counts))
	for f, c := range counts {
		items = append(items, kv{f, c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].count != items[j].count {
			return items[i].count > items[j].count
		}
		return items[i].flag < items[j].flag
	})
	out := []string{}
	for i := 0; i < len(items) && i < n; i++ {
		out = append(out, items[i].flag)
	}
	return out
}
