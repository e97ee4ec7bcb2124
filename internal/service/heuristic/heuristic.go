// Package heuristic computes deterministic content/speech/body
// sub-scores from a transcript without any external service. It is the
// always-available fallback behind the reasoning service and the sole
// authority on degenerate inputs (empty, placeholder, too short).
package heuristic

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/pkg/textx"
)

// placeholders are throwaway non-answers treated the same as empty input.
var placeholders = map[string]bool{
	"n/a": true, "na": true, "idk": true, "none": true,
	"no answer": true, "nothing": true, "-": true, ".": true,
}

var fillerWords = map[string]bool{
	"um": true, "uh": true, "er": true, "hmm": true,
	"like": true, "basically": true, "actually": true,
}

// Options tunes the scorer; values come from config, not constants.
type Options struct {
	// MinAnswerWords is the floor below which content and speech are
	// forced to zero so one-word answers cannot score non-trivially.
	MinAnswerWords int
	// MissingBodyScore is assigned when telemetry is absent. Kept low so
	// a broken camera is never rewarded; the aggregator additionally
	// zeroes the body weight.
	MissingBodyScore float64
}

// Result carries the three category sub-scores plus the facts the
// aggregator needs for short-circuiting and weight redistribution.
type Result struct {
	Content float64
	Speech  float64
	Body    float64

	WordCount   int
	Empty       bool
	TooShort    bool
	BodyMissing bool
	Notes       []string
}

// Scorer is a pure transcript scorer. Safe for concurrent use.
type Scorer struct {
	opts Options
}

// New constructs a Scorer.
func New(opts Options) *Scorer {
	if opts.MinAnswerWords <= 0 {
		opts.MinAnswerWords = 10
	}
	return &Scorer{opts: opts}
}

// Score evaluates one transcript. body may be nil; transcription
// confidence may be nil when the STT layer reported none.
func (s *Scorer) Score(transcript string, body *domain.BodyLanguageScore, transcriptionConfidence *float64) Result {
	res := Result{}

	res.Body, res.BodyMissing = s.bodyScore(body)
	if res.BodyMissing {
		res.Notes = append(res.Notes, "body-language telemetry missing; weight excluded from blend")
	}

	clean := textx.SanitizeText(transcript)
	words := textx.Words(clean)
	res.WordCount = len(words)

	if res.WordCount == 0 || placeholders[strings.ToLower(clean)] {
		res.Empty = true
		res.Notes = append(res.Notes, "no answer provided")
		return res
	}
	if res.WordCount < s.opts.MinAnswerWords {
		res.TooShort = true
		res.Notes = append(res.Notes,
			fmt.Sprintf("insufficient answer length: %d words (minimum %d)", res.WordCount, s.opts.MinAnswerWords))
		return res
	}

	res.Content = s.contentScore(words)
	res.Speech = s.speechScore(words, transcriptionConfidence, &res.Notes)
	return res
}

// contentScore rewards substance up to a plateau: length dominates, a
// small bonus for numeric specifics (amounts, dates, figures).
func (s *Scorer) contentScore(words []string) float64 {
	base := 35 + float64(len(words))*0.9
	if base > 80 {
		base = 80
	}
	specifics := 0
	for _, w := range words {
		if strings.IndexFunc(w, isDigit) >= 0 {
			specifics++
		}
	}
	if specifics > 0 {
		base += 5
	}
	if specifics > 2 {
		base += 5
	}
	return domain.ClampScore(base)
}

// speechScore rates delivery: filler density drags it down, moderate
// length helps, and low transcription confidence shades it since the
// words themselves are uncertain.
func (s *Scorer) speechScore(words []string, confidence *float64, notes *[]string) float64 {
	fillers := 0
	for _, w := range words {
		if fillerWords[w] {
			fillers++
		}
	}
	fillerRatio := float64(fillers) / float64(len(words))

	score := 70.0
	score -= fillerRatio * 120
	if n := len(words); n >= 30 && n <= 220 {
		score += 10
	}
	if confidence != nil {
		score *= 0.75 + 0.25**confidence
		if *confidence < 0.5 {
			*notes = append(*notes, fmt.Sprintf("low transcription confidence (%.2f); speech score shaded", *confidence))
		}
	}
	return domain.ClampScore(score)
}

func (s *Scorer) bodyScore(body *domain.BodyLanguageScore) (score float64, missing bool) {
	if body == nil {
		return domain.ClampScore(s.opts.MissingBodyScore), true
	}
	return domain.ClampScore(body.OverallScore), false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
