package ai

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
)

const answerSystemPrompt = `You are a senior visa officer grading one spoken interview answer. ` +
	`You are strict about substance: vague or memorized-sounding answers score low. ` +
	`Respond with ONLY valid JSON. No reasoning, explanations, or chain-of-thought.`

const finalSystemPrompt = `You are a senior visa officer deciding a full mock interview. ` +
	`Grade every rubric dimension independently; one weak dimension matters even when the rest are strong. ` +
	`Respond with ONLY valid JSON. No reasoning, explanations, or chain-of-thought.`

// buildAnswerPrompt renders the per-answer scoring prompt. Conversation
// history is budgeted with the token counter, newest turns kept, and
// session-memory facts are included so contradictions can be flagged.
func buildAnswerPrompt(sub domain.AnswerSubmission, rc domain.RubricConfig, counter *tokencount.Counter, model string, historyBudget int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Interview route: %s\n", rc.DisplayName)
	if sub.StudentProfile != "" {
		fmt.Fprintf(&b, "Applicant profile: %s\n", sub.StudentProfile)
	}

	if len(sub.Memory.Facts) > 0 {
		b.WriteString("\nClaims the applicant made earlier (flag any contradiction):\n")
		for _, f := range sub.Memory.Facts {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Topic, f.Claim)
		}
	}

	if len(sub.ConversationHistory) > 0 {
		turns := make([]string, 0, len(sub.ConversationHistory))
		for _, t := range sub.ConversationHistory {
			turns = append(turns, fmt.Sprintf("Q: %s\nA: %s", t.Question, t.Answer))
		}
		b.WriteString("\nEarlier exchanges:\n")
		for _, t := range counter.FitTurns(model, turns, historyBudget) {
			b.WriteString(t)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nCurrent question: %s\n", sub.Question)
	fmt.Fprintf(&b, "Applicant's answer: %s\n", sub.Answer)

	b.WriteString("\nRed flags to check for:\n")
	for _, rf := range rc.RedFlagChecklist {
		fmt.Fprintf(&b, "- %s\n", rf)
	}

	b.WriteString("\nScore the answer's content on each rubric dimension (0-100):\n")
	for _, d := range rc.Dimensions {
		fmt.Fprintf(&b, "- %s\n", d.Name)
	}

	b.WriteString(`
Respond with ONLY this JSON structure:
{
  "content_score": 0-100,
  "rubric": {` + dimensionSchema(rc) + `},
  "summary": "one or two sentences on the answer",
  "red_flags": ["named concern", ...],
  "recommendations": ["actionable improvement", ...]
}
`)
	return b.String()
}

// buildFinalPrompt renders the whole-interview decision prompt: the
// full transcript, the per-answer scores already computed, and the
// route rubric with its red-flag checklist.
func buildFinalPrompt(req domain.FinalEvaluationRequest, rc domain.RubricConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Interview route: %s\n", rc.DisplayName)
	if req.StudentProfile != "" {
		fmt.Fprintf(&b, "Applicant profile: %s\n", req.StudentProfile)
	}

	b.WriteString("\nFull transcript:\n")
	for i, t := range req.ConversationHistory {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, t.Question, i+1, t.Answer)
	}

	if len(req.PerAnswerScores) > 0 {
		b.WriteString("\nPer-answer scores already computed (content/speech/body/overall):\n")
		for i, s := range req.PerAnswerScores {
			fmt.Fprintf(&b, "- answer %d: %d/%d/%d/%d", i+1, s.ContentScore, s.SpeechScore, s.BodyScore, s.Overall)
			if len(s.RedFlags) > 0 {
				fmt.Fprintf(&b, " flags: %s", strings.Join(s.RedFlags, "; "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRed flags to check for:\n")
	for _, rf := range rc.RedFlagChecklist {
		fmt.Fprintf(&b, "- %s\n", rf)
	}

	b.WriteString("\nGrade each dimension independently (0-100); every dimension must clear a high bar for acceptance:\n")
	for _, d := range rc.Dimensions {
		fmt.Fprintf(&b, "- %s\n", d.Name)
	}

	b.WriteString(`
Respond with ONLY this JSON structure:
{
  "decision": "accepted" | "rejected" | "borderline",
  "overall": 0-100,
  "dimensions": {` + dimensionSchema(rc) + `},
  "summary": "3-5 sentence holistic assessment",
  "strengths": ["...", ...],
  "weaknesses": ["...", ...],
  "recommendations": ["...", ...]
}
`)
	return b.String()
}

func dimensionSchema(rc domain.RubricConfig) string {
	parts := make([]string, 0, len(rc.Dimensions))
	for _, d := range rc.Dimensions {
		parts = append(parts, fmt.Sprintf("%q: 0-100", d.Name))
	}
	return strings.Join(parts, ", ")
}
