package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/heuristic"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/language"
	"github.com/fairyhunter13/visa-interview-evaluator/internal/service/relevance"
)

type fakeReasoning struct {
	answer      domain.ReasoningAnswerResult
	answerErr   error
	final       domain.FinalReport
	finalErr    error
	panicking   bool
	answerCalls int
	finalCalls  int
}

func (f *fakeReasoning) ScoreAnswer(_ context.Context, _ domain.AnswerSubmission) (domain.ReasoningAnswerResult, error) {
	f.answerCalls++
	if f.panicking {
		panic("scripted panic")
	}
	return f.answer, f.answerErr
}

func (f *fakeReasoning) FinalEvaluation(_ context.Context, _ domain.FinalEvaluationRequest) (domain.FinalReport, error) {
	f.finalCalls++
	if f.panicking {
		panic("scripted panic")
	}
	return f.final, f.finalErr
}

type fakeStore struct {
	appended []domain.ScoreRecord
	records  map[string][]domain.ScoreRecord
	memories map[string]domain.SessionMemory
	listErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[string][]domain.ScoreRecord{},
		memories: map[string]domain.SessionMemory{},
	}
}

func (f *fakeStore) AppendScore(_ context.Context, sessionID string, rec domain.ScoreRecord) error {
	f.appended = append(f.appended, rec)
	f.records[sessionID] = append(f.records[sessionID], rec)
	return nil
}

func (f *fakeStore) ListScores(_ context.Context, sessionID string) ([]domain.ScoreRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records[sessionID], nil
}

func (f *fakeStore) SaveMemory(_ context.Context, sessionID string, mem domain.SessionMemory) error {
	f.memories[sessionID] = mem
	return nil
}

func (f *fakeStore) GetMemory(_ context.Context, sessionID string) (domain.SessionMemory, error) {
	mem, ok := f.memories[sessionID]
	if !ok {
		return domain.SessionMemory{}, domain.ErrNotFound
	}
	return mem, nil
}

func newScoreService(r domain.ReasoningClient, store domain.ScoreStore) ScoreService {
	return NewScoreService(r, store,
		relevance.New(0.1),
		heuristic.New(heuristic.Options{MinAnswerWords: 10, MissingBodyScore: 25}),
		language.NewGuard("en", 0.2, 0.5),
		language.NewToleranceAdjuster(0.5, 1.25),
	)
}

func fptr(v float64) *float64 { return &v }

const goodQuestion = "Why did you choose this university and this major program?"

const goodAnswer = "I chose this university because its program in computer science matches " +
	"my major and I plan to research machine learning with a professor there."

func goodSubmission() domain.AnswerSubmission {
	return domain.AnswerSubmission{
		Question:           goodQuestion,
		Answer:             goodAnswer,
		BodyLanguage:       &domain.BodyLanguageScore{OverallScore: 80},
		LanguageCode:       "en",
		LanguageConfidence: 0.95,
		Route:              "us_f1",
	}
}

func TestScore_WeightsAlwaysSumToOne(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 70, Summary: "solid"}}
	svc := newScoreService(r, nil)

	eval, err := svc.Score(context.Background(), goodSubmission())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, eval.Score.Weights.Sum(), 1e-9)

	sub := goodSubmission()
	sub.BodyLanguage = nil
	eval, err = svc.Score(context.Background(), sub)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, eval.Score.Weights.Sum(), 1e-9)
}

func TestScore_MissingBodyRedistributesWeight(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 70, Summary: "solid"}}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.BodyLanguage = nil
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	assert.True(t, eval.Diagnostics.WeightsRedistributed)
	assert.Zero(t, eval.Score.Weights.Body)
	assert.InDelta(t, 0.75, eval.Score.Weights.Content, 1e-9)
	assert.InDelta(t, 0.25, eval.Score.Weights.Speech, 1e-9)
}

func TestScore_EmptyAnswerRejected(t *testing.T) {
	r := &fakeReasoning{}
	svc := newScoreService(r, nil)

	for _, answer := range []string{"", "   ", "n/a", "idk", "."} {
		sub := goodSubmission()
		sub.Answer = answer
		_, err := svc.Score(context.Background(), sub)
		require.Error(t, err, "answer %q", answer)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	}
	assert.Zero(t, r.answerCalls, "degenerate input must not reach the reasoning service")
}

func TestScore_OneWordAnswerZeroesContentAndSpeech(t *testing.T) {
	r := &fakeReasoning{}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.Answer = "yes"
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, "too_short", eval.Diagnostics.DegenerateInput)
	assert.Zero(t, eval.Score.ContentScore)
	assert.Zero(t, eval.Score.SpeechScore)
	// Body is the only surviving component of the blend.
	want := domain.RoundScore(eval.Score.Weights.Body * 80)
	assert.Equal(t, want, eval.Score.Overall)
	assert.NotEmpty(t, eval.Score.RedFlags)
	assert.Zero(t, r.answerCalls)
}

func TestScore_OffTopicAnswerCapped(t *testing.T) {
	r := &fakeReasoning{}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.Answer = "The weather has been wonderful lately and I enjoy painting landscapes during long quiet afternoons outside."
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	assert.True(t, eval.Relevance.IsOffTopic)
	assert.Equal(t, "off_topic", eval.Diagnostics.DegenerateInput)
	assert.LessOrEqual(t, eval.Score.ContentScore, 15)
	assert.LessOrEqual(t, eval.Score.SpeechScore, 50)
	assert.Zero(t, r.answerCalls)
}

func TestScore_ReasoningSuccessSkipsRelevancePenalty(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{
		ContentScore: 82,
		Rubric:       map[string]int{"academic_intent": 85},
		Summary:      "well grounded academic plan",
	}}
	svc := newScoreService(r, nil)

	eval, err := svc.Score(context.Background(), goodSubmission())
	require.NoError(t, err)

	assert.True(t, eval.Diagnostics.ReasoningUsed)
	assert.False(t, eval.Diagnostics.RelevancePenaltyApplied)
	assert.Equal(t, 82, eval.Score.ContentScore)
	assert.Equal(t, "well grounded academic plan", eval.Score.Summary)
	assert.Equal(t, 1, r.answerCalls)
}

func TestScore_ReasoningFailureFallsBackWithPenalty(t *testing.T) {
	r := &fakeReasoning{answerErr: domain.ErrUpstreamFailure}
	svc := newScoreService(r, nil)

	eval, err := svc.Score(context.Background(), goodSubmission())
	require.NoError(t, err)

	assert.False(t, eval.Diagnostics.ReasoningUsed)
	assert.Greater(t, eval.Relevance.Penalty, 0.0)
	assert.True(t, eval.Diagnostics.RelevancePenaltyApplied)
	want := domain.RoundScore(eval.Diagnostics.HeuristicContent - eval.Relevance.Penalty)
	assert.Equal(t, want, eval.Score.ContentScore)
	assert.Equal(t, 1, r.answerCalls, "one attempt, no retries")
}

func TestScore_NonTargetLanguageHalvesContent(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 80, Summary: "fluent"}}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.LanguageCode = "hi"
	sub.LanguageConfidence = 0.9
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	assert.True(t, eval.Diagnostics.LanguagePenaltyApplied)
	assert.Equal(t, 40, eval.Score.ContentScore)
	assert.NotEmpty(t, eval.LanguageWarning)
	assert.Contains(t, eval.Score.RedFlags, "non-target language detected")
}

func TestScore_RegionalVariantIsNotPenalized(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 80, Summary: "fluent"}}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.LanguageCode = "en-US"
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	assert.False(t, eval.Diagnostics.LanguagePenaltyApplied)
	assert.Equal(t, 80, eval.Score.ContentScore)
}

func TestScore_TranscriptionToleranceIsRouteGated(t *testing.T) {
	mk := func(route string) (domain.AnswerEvaluation, error) {
		r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 35, Summary: "thin"}}
		svc := newScoreService(r, nil)
		sub := goodSubmission()
		sub.Route = route
		sub.TranscriptionConfidence = fptr(0.3)
		return svc.Score(context.Background(), sub)
	}

	eval, err := mk("uk_student")
	require.NoError(t, err)
	assert.True(t, eval.Diagnostics.TranscriptionBoostApplied)
	assert.Equal(t, 44, eval.Score.ContentScore) // 35 * 1.25 rounded

	eval, err = mk("us_f1")
	require.NoError(t, err)
	assert.False(t, eval.Diagnostics.TranscriptionBoostApplied)
	assert.Equal(t, 35, eval.Score.ContentScore)
}

func TestScore_UnknownRouteFallsBackToDefault(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 70, Summary: "ok"}}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.Route = "mars_colony"
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, eval.Score.Weights.Sum(), 1e-9)
	assert.False(t, eval.Diagnostics.TranscriptionBoostApplied)
}

func TestScore_PersistsHistoryAndMemory(t *testing.T) {
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 70, Summary: "ok"}}
	store := newFakeStore()
	svc := newScoreService(r, store)

	sub := goodSubmission()
	sub.SessionID = "sess-1"
	sub.ConversationHistory = []domain.Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}}
	sub.Memory = domain.SessionMemory{Facts: []domain.MemoryFact{
		{Topic: "sponsor", Claim: "father pays tuition", QuestionIndex: 0},
	}}

	_, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	require.Len(t, store.appended, 1)
	assert.Equal(t, 2, store.appended[0].QuestionIndex)
	assert.Equal(t, goodQuestion, store.appended[0].Question)
	assert.Len(t, store.memories["sess-1"].Facts, 1)
}

func TestScore_AllScoresBounded(t *testing.T) {
	// An absurdly generous upstream result must still come out bounded.
	r := &fakeReasoning{answer: domain.ReasoningAnswerResult{ContentScore: 100, Summary: "perfect"}}
	svc := newScoreService(r, nil)

	sub := goodSubmission()
	sub.BodyLanguage = &domain.BodyLanguageScore{OverallScore: 100}
	eval, err := svc.Score(context.Background(), sub)
	require.NoError(t, err)

	for name, v := range map[string]int{
		"content": eval.Score.ContentScore,
		"speech":  eval.Score.SpeechScore,
		"body":    eval.Score.BodyScore,
		"overall": eval.Score.Overall,
	} {
		assert.GreaterOrEqual(t, v, 0, name)
		assert.LessOrEqual(t, v, 100, name)
	}
}
