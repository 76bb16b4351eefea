package tutor

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/selfexplain/internal/catalog"
	"github.com/ashureev/selfexplain/internal/domain"
	"github.com/ashureev/selfexplain/internal/judge"
	"github.com/ashureev/selfexplain/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	conceptName  = "Correlation"
	referenceAns = "Correlation measures the strength and direction of association between two variables; it does not imply causation."
	explanation  = "correlation shows how two variables move together"
)

type fakeEvaluator struct {
	tier  domain.Tier
	calls int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _, _ string) judge.Result {
	f.calls++
	return judge.Result{Tier: f.tier, Score: 0.5, Method: "embedding"}
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

type fakeNarrator struct {
	url string
	err error
}

func (f *fakeNarrator) FeedbackAudio(_ context.Context, _, _ string) (string, error) {
	return f.url, f.err
}

type fakeTurnLogger struct {
	recs []*domain.InteractionRecord
}

func (f *fakeTurnLogger) Log(rec *domain.InteractionRecord) {
	f.recs = append(f.recs, rec)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]domain.Concept{
		{Name: conceptName, ReferenceAnswer: referenceAns},
		{Name: "Regression", ReferenceAnswer: "Regression fits a line describing how one variable changes with another."},
	})
	require.NoError(t, err)
	return cat
}

func newTestService(t *testing.T, tier domain.Tier, provider llm.Provider) (*Service, *fakeEvaluator) {
	t.Helper()
	ev := &fakeEvaluator{tier: tier}
	svc := NewService(Deps{
		Catalog:  testCatalog(t),
		Judge:    ev,
		Composer: NewComposer(provider, 200, 0.7),
	})
	return svc, ev
}

func TestFirstAttemptIncrementsAndWithholdsAnswer(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: "Good start, think about direction too."})
	svc, _ := newTestService(t, domain.TierMedium, provider)
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)

	assert.Equal(t, "Good start, think about direction too.", res.Response)
	assert.Equal(t, 1, res.AttemptCount)
	assert.Equal(t, 2, res.AttemptsRemaining)
	assert.False(t, res.ShouldAdvance)

	require.Len(t, provider.Calls, 1)
	assert.Contains(t, provider.Calls[0].System, "Do not provide the golden answer")
	assert.NotContains(t, provider.Calls[0].System, "final attempt")
	assert.Contains(t, provider.Calls[0].Messages[0].Content, "first attempt")
}

func TestHighConfidenceExhaustsConceptImmediately(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: "Exactly right, move on!"})
	svc, _ := newTestService(t, domain.TierHigh, provider)
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)

	assert.Equal(t, domain.MaxAttempts, res.AttemptCount)
	assert.True(t, res.ShouldAdvance)
	assert.Equal(t, "Regression", res.NextConcept)
	assert.Equal(t, 1, session.TrueAttempts[domain.Key(conceptName)])
}

func TestTerminalAttemptRequestsReveal(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: "hint one"},
		llm.MockResponse{Content: "hint two"},
		llm.MockResponse{Content: "here is the full picture"},
	)
	svc, _ := newTestService(t, domain.TierLow, provider)
	session := domain.NewSession("s1")

	var res *TurnResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
		require.NoError(t, err)
	}

	assert.Equal(t, domain.MaxAttempts, res.AttemptCount)
	assert.True(t, res.ShouldAdvance)

	require.Len(t, provider.Calls, 3)
	assert.NotContains(t, provider.Calls[0].System, "final attempt")
	assert.NotContains(t, provider.Calls[1].System, "final attempt")
	assert.Contains(t, provider.Calls[2].System, "final attempt")
}

func TestFillerDoesNotCountAsAttempt(t *testing.T) {
	provider := llm.NewMockProvider()
	svc, ev := newTestService(t, domain.TierHigh, provider)
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: "idk"})
	require.NoError(t, err)

	assert.Equal(t, domain.TierFiller, res.Tier)
	assert.Equal(t, 0, res.AttemptCount)
	assert.Equal(t, 3, res.AttemptsRemaining)
	assert.NotContains(t, res.Response, referenceAns)
	assert.Zero(t, ev.calls, "filler must not be scored")
	assert.Zero(t, provider.CallCount(), "filler must not reach the model")
}

func TestFillerWithNoAttemptsLeftRevealsAnswer(t *testing.T) {
	provider := llm.NewMockProvider()
	svc, _ := newTestService(t, domain.TierHigh, provider)
	session := domain.NewSession("s1")
	session.Advance(conceptName, true)

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: "idk"})
	require.NoError(t, err)

	assert.Contains(t, res.Response, referenceAns)
	assert.True(t, res.ShouldAdvance)
	assert.Equal(t, "Regression", res.NextConcept)
	assert.Zero(t, provider.CallCount())
}

func TestMetaQuestionReportsRemainingTries(t *testing.T) {
	provider := llm.NewMockProvider()
	svc, ev := newTestService(t, domain.TierHigh, provider)
	session := domain.NewSession("s1")
	session.Advance(conceptName, false)

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: "how many tries do I get?"})
	require.NoError(t, err)

	assert.Equal(t, domain.TierMeta, res.Tier)
	assert.Contains(t, res.Response, "2 tries")
	assert.Equal(t, 1, res.AttemptCount, "meta question must not consume an attempt")
	assert.NotContains(t, res.Response, referenceAns)
	assert.Zero(t, ev.calls)
}

func TestNonEnglishInputAsksForEnglish(t *testing.T) {
	provider := llm.NewMockProvider()
	svc, ev := newTestService(t, domain.TierHigh, provider)
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{
		Concept: conceptName,
		Text:    "la correlación mide la fuerza entre dos variables",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TierNonEnglish, res.Tier)
	assert.Contains(t, res.Response, "English")
	assert.Equal(t, 0, res.AttemptCount)
	assert.Zero(t, ev.calls)
}

func TestExhaustedConceptIsNotRescored(t *testing.T) {
	provider := llm.NewMockProvider()
	svc, ev := newTestService(t, domain.TierHigh, provider)
	session := domain.NewSession("s1")
	session.Advance(conceptName, true)

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)

	assert.Contains(t, res.Response, "move on")
	assert.True(t, res.ShouldAdvance)
	assert.Zero(t, ev.calls, "exhausted concept must not be re-scored")
	assert.Zero(t, provider.CallCount())
}

func TestGenerationFailureStillCountsAttempt(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	svc, _ := newTestService(t, domain.TierMedium, provider)
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)

	assert.Equal(t, 1, res.AttemptCount, "a scored turn counts even when generation fails")
	assert.NotEmpty(t, res.Response)
	assert.NotContains(t, res.Response, referenceAns, "fallback must not reveal the answer early")
}

func TestGenerationFailureOnTerminalAttemptRevealsAnswer(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: "hint one"},
		llm.MockResponse{Content: "hint two"},
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
	)
	svc, _ := newTestService(t, domain.TierLow, provider)
	session := domain.NewSession("s1")

	var res *TurnResult
	var err error
	for i := 0; i < 3; i++ {
		res, err = svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
		require.NoError(t, err)
	}

	assert.Contains(t, res.Response, referenceAns, "terminal fallback must still deliver the answer")
	assert.True(t, res.ShouldAdvance)
}

func TestTranscriptionFailureLeavesSessionUntouched(t *testing.T) {
	provider := llm.NewMockProvider()
	ev := &fakeEvaluator{tier: domain.TierHigh}
	svc := NewService(Deps{
		Catalog:     testCatalog(t),
		Judge:       ev,
		Composer:    NewComposer(provider, 200, 0.7),
		Transcriber: &fakeTranscriber{err: errors.New("whisper down")},
	})
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{
		Concept:       conceptName,
		Audio:         []byte{1, 2, 3},
		AudioFilename: "clip.webm",
	})
	require.NoError(t, err)

	assert.Contains(t, res.Response, "audio")
	assert.Equal(t, 0, res.AttemptCount)
	assert.Empty(t, session.History[domain.Key(conceptName)])
	assert.Zero(t, ev.calls)
}

func TestAudioInputIsTranscribedAndScored(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: "Nice, that covers it."})
	ev := &fakeEvaluator{tier: domain.TierHigh}
	svc := NewService(Deps{
		Catalog:     testCatalog(t),
		Judge:       ev,
		Composer:    NewComposer(provider, 200, 0.7),
		Transcriber: &fakeTranscriber{text: explanation},
	})
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{
		Concept:       conceptName,
		Audio:         []byte{1, 2, 3},
		AudioFilename: "clip.webm",
	})
	require.NoError(t, err)

	assert.Equal(t, explanation, res.Transcript)
	assert.Equal(t, 1, ev.calls)
	assert.Equal(t, domain.MaxAttempts, res.AttemptCount)
}

func TestUnknownConceptFailsWithoutMutation(t *testing.T) {
	svc, ev := newTestService(t, domain.TierHigh, llm.NewMockProvider())
	session := domain.NewSession("s1")

	_, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: "Entropy", Text: explanation})
	require.ErrorIs(t, err, catalog.ErrUnknownConcept)
	assert.Empty(t, session.AttemptCounts)
	assert.Zero(t, ev.calls)
}

func TestSelectConceptResetsAttempts(t *testing.T) {
	svc, _ := newTestService(t, domain.TierHigh, llm.NewMockProvider())
	session := domain.NewSession("s1")
	session.Advance(conceptName, true)

	concept, err := svc.SelectConcept(context.Background(), session, "correlation")
	require.NoError(t, err)

	assert.Equal(t, conceptName, concept.Name)
	assert.Equal(t, 0, session.AttemptCount(conceptName))
	assert.Equal(t, 0, session.TrueAttempts[domain.Key(conceptName)])
}

func TestSelectConceptLogsSystemEvent(t *testing.T) {
	log := &fakeTurnLogger{}
	svc := NewService(Deps{
		Catalog:  testCatalog(t),
		Judge:    &fakeEvaluator{tier: domain.TierHigh},
		Composer: NewComposer(llm.NewMockProvider(), 200, 0.7),
		Log:      log,
	})
	session := domain.NewSession("s1")

	_, err := svc.SelectConcept(context.Background(), session, conceptName)
	require.NoError(t, err)

	require.Len(t, log.recs, 1)
	assert.Equal(t, domain.SpeakerSystem, log.recs[0].Speaker)
	assert.Equal(t, conceptName, log.recs[0].Concept)
	assert.Equal(t, domain.TrialOne, log.recs[0].Trial)
}

func TestSetTrialResetsProgress(t *testing.T) {
	log := &fakeTurnLogger{}
	svc := NewService(Deps{
		Catalog:  testCatalog(t),
		Judge:    &fakeEvaluator{tier: domain.TierHigh},
		Composer: NewComposer(llm.NewMockProvider(), 200, 0.7),
		Log:      log,
	})
	session := domain.NewSession("s1")
	session.Advance(conceptName, false)
	session.RecordTurn(conceptName, explanation, "feedback")

	require.NoError(t, svc.SetTrial(context.Background(), session, domain.TrialTwo))

	assert.Equal(t, domain.TrialTwo, session.TrialType)
	assert.Equal(t, 0, session.AttemptCount(conceptName))
	assert.Empty(t, session.TrueAttempts)
	assert.Empty(t, session.History)

	require.Len(t, log.recs, 1)
	assert.Equal(t, domain.SpeakerSystem, log.recs[0].Speaker)
	assert.Equal(t, domain.TrialTwo, log.recs[0].Trial)
}

func TestSetTrialRejectsUnknownPhase(t *testing.T) {
	svc, _ := newTestService(t, domain.TierHigh, llm.NewMockProvider())
	session := domain.NewSession("s1")
	session.Advance(conceptName, false)

	err := svc.SetTrial(context.Background(), session, "Trial_3")
	require.ErrorIs(t, err, ErrInvalidTrial)

	assert.Equal(t, domain.TrialOne, session.TrialType)
	assert.Equal(t, 1, session.AttemptCount(conceptName), "failed switch must not reset progress")
}

func TestTurnRecordsCarryTrial(t *testing.T) {
	log := &fakeTurnLogger{}
	svc := NewService(Deps{
		Catalog:  testCatalog(t),
		Judge:    &fakeEvaluator{tier: domain.TierMedium},
		Composer: NewComposer(llm.NewMockProvider(llm.MockResponse{Content: "Keep going."}), 200, 0.7),
		Log:      log,
	})
	session := domain.NewSession("s1")
	require.NoError(t, svc.SetTrial(context.Background(), session, domain.TrialTwo))

	_, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)

	require.Len(t, log.recs, 3)
	for _, rec := range log.recs {
		assert.Equal(t, domain.TrialTwo, rec.Trial)
	}
	assert.Equal(t, domain.SpeakerUser, log.recs[1].Speaker)
	assert.Equal(t, domain.SpeakerAI, log.recs[2].Speaker)
}

func TestNarratorAttachesAudioURL(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: "Well done."})
	svc := NewService(Deps{
		Catalog:  testCatalog(t),
		Judge:    &fakeEvaluator{tier: domain.TierHigh},
		Composer: NewComposer(provider, 200, 0.7),
		Narrator: &fakeNarrator{url: "/uploads/feedback_abc.mp3"},
	})
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/feedback_abc.mp3", res.AudioURL)
}

func TestNarratorFailureIsNonFatal(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: "Well done."})
	svc := NewService(Deps{
		Catalog:  testCatalog(t),
		Judge:    &fakeEvaluator{tier: domain.TierHigh},
		Composer: NewComposer(provider, 200, 0.7),
		Narrator: &fakeNarrator{err: errors.New("tts down")},
	})
	session := domain.NewSession("s1")

	res, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)
	assert.Equal(t, "Well done.", res.Response)
	assert.Empty(t, res.AudioURL)
}

func TestHistoryFlowsIntoNextPrompt(t *testing.T) {
	provider := llm.NewMockProvider(
		llm.MockResponse{Content: "Think about direction."},
		llm.MockResponse{Content: "Closer now."},
	)
	svc, _ := newTestService(t, domain.TierMedium, provider)
	session := domain.NewSession("s1")

	_, err := svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: explanation})
	require.NoError(t, err)
	_, err = svc.HandleTurn(context.Background(), session, TurnInput{Concept: conceptName, Text: "it also has a direction"})
	require.NoError(t, err)

	require.Len(t, provider.Calls, 2)
	assert.NotContains(t, provider.Calls[0].Messages[0].Content, "Recent conversation")
	second := provider.Calls[1].Messages[0].Content
	assert.Contains(t, second, "Recent conversation")
	assert.Contains(t, second, "Think about direction.")
}
