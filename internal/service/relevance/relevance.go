// Package relevance estimates how topical an answer is for its question.
//
// The check is a pure stopword-filtered term-overlap computation with no
// external calls; it exists to catch gamed or off-topic answers before
// any reasoning-service spend.
package relevance

import (
	"fmt"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/pkg/textx"
)

// maxPenalty is the largest content deduction relevance can cause on the
// heuristic scoring path.
const maxPenalty = 30.0

var stopwords = map[string]bool{
	"a": true, "about": true, "an": true, "and": true, "any": true,
	"are": true, "as": true, "at": true, "be": true, "been": true,
	"but": true, "by": true, "can": true, "could": true, "did": true,
	"do": true, "does": true, "for": true, "from": true, "had": true,
	"has": true, "have": true, "how": true, "if": true, "in": true,
	"is": true, "it": true, "its": true, "me": true, "more": true,
	"much": true, "my": true, "of": true, "on": true, "or": true,
	"our": true, "please": true, "so": true, "tell": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true, "to": true,
	"us": true, "was": true, "we": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
}

// Checker flags answers whose term overlap with the question falls
// below the off-topic floor.
type Checker struct {
	offTopicFloor float64
}

// New constructs a Checker. offTopicFloor is the overlap fraction below
// which an answer counts as off-topic (tunable policy, default 0.1).
func New(offTopicFloor float64) *Checker {
	return &Checker{offTopicFloor: offTopicFloor}
}

// Check computes the overlap between the question's salient terms and
// the answer. Empty inputs are guarded upstream; a question with no
// salient terms yields full overlap rather than punishing the answer.
func (c *Checker) Check(question, answer string) domain.RelevanceResult {
	terms := salientTerms(question)
	if len(terms) == 0 {
		return domain.RelevanceResult{Score: 100, Overlap: 1, FoundTerms: []string{}, MissingTerms: []string{}}
	}

	answerSet := map[string]bool{}
	for _, w := range textx.Words(answer) {
		answerSet[w] = true
	}

	found := make([]string, 0, len(terms))
	missing := make([]string, 0, len(terms))
	for _, t := range terms {
		if answerSet[t] || answerSet[t+"s"] || answerSet[trimPlural(t)] {
			found = append(found, t)
		} else {
			missing = append(missing, t)
		}
	}

	overlap := float64(len(found)) / float64(len(terms))
	res := domain.RelevanceResult{
		Score:        domain.ClampScore(overlap * 100),
		Overlap:      overlap,
		FoundTerms:   found,
		MissingTerms: missing,
		Penalty:      (1 - overlap) * maxPenalty,
		IsOffTopic:   overlap < c.offTopicFloor,
	}
	if res.IsOffTopic {
		res.Warning = fmt.Sprintf("answer does not address the question (term overlap %.0f%%)", overlap*100)
	}
	return res
}

// salientTerms extracts the question's unique subject terms: lowercase
// words, stopwords and very short tokens removed, original order kept.
func salientTerms(question string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, w := range textx.Words(question) {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

func trimPlural(t string) string {
	if len(t) > 3 && t[len(t)-1] == 's' {
		return t[:len(t)-1]
	}
	return t
}
