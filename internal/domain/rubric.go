package domain

import "math"

// Category names one component of the per-answer blend.
type Category string

// Blend categories.
const (
	CategoryContent Category = "content"
	CategorySpeech  Category = "speech"
	CategoryBody    Category = "body"
)

// Dimension is one axis of the final, route-specific rubric. Source
// names the per-answer category that approximates it when the decision
// engine has to fall back to averaged per-answer scores.
type Dimension struct {
	Name   string
	Source Category
}

// RubricConfig is the route-specific scoring variant: category weights,
// final-report dimensions, and the asymmetric decision thresholds.
// Acceptance gates on the weakest dimension, not just the mean.
type RubricConfig struct {
	Route       string
	DisplayName string
	Weights     Weights
	Dimensions  []Dimension

	// Decision thresholds. Accept requires Overall >= AcceptOverall AND
	// every dimension >= AcceptDimensionBar. Reject fires when
	// Overall < RejectOverall OR any dimension < RejectDimensionFloor.
	AcceptOverall        int
	AcceptDimensionBar   int
	RejectOverall        int
	RejectDimensionFloor int

	// TranscriptionTolerance enables the low-confidence content boost
	// for this route (§ transcription-confidence tolerance).
	TranscriptionTolerance bool

	RedFlagChecklist []string

	// KeywordGroups back the tier-2 transcript heuristic: per dimension,
	// term groups whose presence raises that dimension's score.
	KeywordGroups map[string][][]string
}

// DefaultRoute is used when a request names a route without a rubric.
const DefaultRoute = "us_f1"

var rubrics = map[string]RubricConfig{
	"us_f1": {
		Route:       "us_f1",
		DisplayName: "US F-1 student visa",
		Weights:     Weights{Content: 0.6, Speech: 0.2, Body: 0.2},
		Dimensions: []Dimension{
			{Name: "academic_intent", Source: CategoryContent},
			{Name: "financial_capacity", Source: CategoryContent},
			{Name: "home_ties", Source: CategoryContent},
			{Name: "communication", Source: CategorySpeech},
			{Name: "credibility", Source: CategoryBody},
		},
		AcceptOverall:        75,
		AcceptDimensionBar:   70,
		RejectOverall:        60,
		RejectDimensionFloor: 50,
		RedFlagChecklist: []string{
			"immigrant intent signals",
			"no credible funding source",
			"vague academic plans",
			"contradicts earlier answers",
		},
		KeywordGroups: map[string][][]string{
			"academic_intent": {
				{"major", "degree", "program", "course"},
				{"university", "college", "campus"},
				{"research", "career", "professor"},
			},
			"financial_capacity": {
				{"sponsor", "father", "mother", "parents"},
				{"tuition", "fees", "funds", "savings"},
				{"bank", "statement", "loan", "scholarship"},
			},
			"home_ties": {
				{"return", "come back", "home country"},
				{"family", "property", "business"},
			},
			"communication": {
				{"because", "therefore", "for example"},
			},
			"credibility": {
				{"plan", "after graduation", "intend"},
			},
		},
	},
	"uk_student": {
		Route:       "uk_student",
		DisplayName: "UK student visa",
		Weights:     Weights{Content: 0.6, Speech: 0.2, Body: 0.2},
		Dimensions: []Dimension{
			{Name: "course_fit", Source: CategoryContent},
			{Name: "financial_requirement", Source: CategoryContent},
			{Name: "accommodation", Source: CategoryContent},
			{Name: "compliance_credibility", Source: CategorySpeech},
			{Name: "post_study_intent", Source: CategoryContent},
		},
		AcceptOverall:        75,
		AcceptDimensionBar:   70,
		RejectOverall:        60,
		RejectDimensionFloor: 50,
		// UK STT pipeline quality is uneven across accents; tolerate low
		// transcription confidence on this route.
		TranscriptionTolerance: true,
		RedFlagChecklist: []string{
			"cannot explain the 28-day bank balance rule",
			"no maintenance funds plan",
			"accommodation not arranged or unrealistic costs",
			"course choice unrelated to background",
			"contradicts earlier answers",
		},
		KeywordGroups: map[string][][]string{
			"course_fit": {
				{"module", "modules", "curriculum", "syllabus"},
				{"dissertation", "semester", "lecturer"},
				{"career", "background", "experience"},
			},
			"financial_requirement": {
				{"maintenance", "28 days", "28-day", "bank balance"},
				{"tuition", "deposit", "cas"},
				{"sponsor", "savings", "loan"},
			},
			"accommodation": {
				{"accommodation", "halls", "rent", "flat"},
				{"per month", "per week", "deposit"},
			},
			"compliance_credibility": {
				{"attendance", "visa conditions", "rules"},
			},
			"post_study_intent": {
				{"return", "graduate route", "after my course"},
			},
		},
	},
}

// RubricFor returns the rubric registered for route. The second result
// is false when the route is unknown; callers then fall back to
// DefaultRoute so /score stays available for routes whose rubric has
// not shipped yet.
func RubricFor(route string) (RubricConfig, bool) {
	rc, ok := rubrics[route]
	if !ok {
		return rubrics[DefaultRoute], false
	}
	return rc, true
}

// Routes lists the registered route keys.
func Routes() []string {
	out := make([]string, 0, len(rubrics))
	for k := range rubrics {
		out = append(out, k)
	}
	return out
}

// Redistribute zeroes the missing categories and spreads their mass
// over the remaining ones in proportion to their configured weights, so
// absent telemetry is excluded rather than penalized twice. Pure; safe
// to test independently of any scoring logic.
func Redistribute(w Weights, missing ...Category) Weights {
	gone := map[Category]bool{}
	for _, c := range missing {
		gone[c] = true
	}
	freed := 0.0
	if gone[CategoryContent] {
		freed += w.Content
		w.Content = 0
	}
	if gone[CategorySpeech] {
		freed += w.Speech
		w.Speech = 0
	}
	if gone[CategoryBody] {
		freed += w.Body
		w.Body = 0
	}
	remaining := w.Sum()
	if freed == 0 || remaining == 0 {
		return w
	}
	w.Content += freed * (w.Content / remaining)
	w.Speech += freed * (w.Speech / remaining)
	w.Body += freed * (w.Body / remaining)
	return w
}

// ClampScore bounds a score to [0,100].
func ClampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// RoundScore bounds a score to [0,100] and rounds to an integer. Every
// externally visible score goes through this.
func RoundScore(v float64) int {
	return int(math.Round(ClampScore(v)))
}

// Decide applies the route's asymmetric thresholds to an overall score
// and its dimension scores. The weakest dimension gates acceptance: a
// strong average never masks one disqualifying weakness.
func (rc RubricConfig) Decide(overall int, dims map[string]int) Decision {
	worst := 100
	for _, d := range rc.Dimensions {
		if v, ok := dims[d.Name]; ok && v < worst {
			worst = v
		}
	}
	switch {
	case overall >= rc.AcceptOverall && worst >= rc.AcceptDimensionBar:
		return DecisionAccepted
	case overall < rc.RejectOverall || worst < rc.RejectDimensionFloor:
		return DecisionRejected
	default:
		return DecisionBorderline
	}
}
