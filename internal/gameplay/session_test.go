package gameplay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"promptdojo/internal/gateway"
	"promptdojo/internal/levels"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	genErr   error
	scoreErr error
	score    int
	prompts  []string
}

func (f *fakeGateway) GenerateImage(_ context.Context, prompt string) (gateway.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.genErr != nil {
		return gateway.Image{}, &gateway.GenerationError{Prompt: prompt, Err: f.genErr}
	}
	return gateway.Image{Data: []byte("img:" + prompt), MIMEType: "image/png"}, nil
}

func (f *fakeGateway) ScoreSimilarity(_ context.Context, _, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scoreErr != nil {
		return 0, &gateway.ScoringError{Err: f.scoreErr}
	}
	return f.score, nil
}

func ramenLevel() levels.Level {
	return levels.Level{
		ID:           1,
		Title:        "Objects",
		Difficulty:   levels.DifficultyEasy,
		MasterPrompt: "A delicious bowl of steaming ramen noodles",
		LearningGoal: "Naming objects",
	}
}

func readySession(t *testing.T, gw gateway.Gateway) *Session {
	t.Helper()
	s := New(ramenLevel())
	require.NoError(t, s.Initialize(context.Background(), gw))
	require.Equal(t, StatusIdle, s.Status())
	return s
}

func TestInitializeLoadsReferenceFromMasterPrompt(t *testing.T) {
	gw := &fakeGateway{}
	s := New(ramenLevel())
	assert.Equal(t, StatusInitializing, s.Status())
	s.SetPrompt("a bowl of ramen")
	assert.False(t, s.CanSubmit(), "submission refused while initializing")

	require.NoError(t, s.Initialize(context.Background(), gw))
	require.NotNil(t, s.ReferenceImage())
	assert.Equal(t, []string{"A delicious bowl of steaming ramen noodles"}, gw.prompts)
	assert.True(t, s.CanSubmit())

	_, err := s.BeginInit()
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
}

func TestInitFailureDisablesSubmission(t *testing.T) {
	gw := &fakeGateway{genErr: errors.New("provider down")}
	s := New(ramenLevel())
	err := s.Initialize(context.Background(), gw)

	var genErr *gateway.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, StatusError, s.Status())
	assert.Nil(t, s.ReferenceImage())
	assert.Equal(t, MsgContentFailed, s.ErrorMessage())

	s.SetPrompt("a bowl of ramen")
	assert.False(t, s.CanSubmit())
	_, err = s.BeginAttempt()
	assert.ErrorIs(t, err, ErrCannotSubmit)
}

func TestBlankPromptIsRefused(t *testing.T) {
	s := readySession(t, &fakeGateway{})
	s.SetPrompt("   \t ")
	assert.False(t, s.CanSubmit())
	_, err := s.BeginAttempt()
	assert.ErrorIs(t, err, ErrCannotSubmit)
}

func TestSubmitScoresAndPasses(t *testing.T) {
	gw := &fakeGateway{score: 85}
	s := readySession(t, gw)
	s.SetPrompt("  a bowl of ramen ")
	require.NoError(t, s.Submit(context.Background(), gw))

	score, ok := s.Score()
	require.True(t, ok)
	assert.Equal(t, 85, score)
	assert.True(t, s.Passed())
	require.NotNil(t, s.UserImage())
	assert.Equal(t, "img:a bowl of ramen", string(s.UserImage().Data))

	c, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, Completion{LevelID: 1, Score: 85}, c)
}

func TestScoreIsClamped(t *testing.T) {
	for raw, want := range map[int]int{-5: 0, 140: 100} {
		gw := &fakeGateway{score: raw}
		s := readySession(t, gw)
		s.SetPrompt("ramen")
		require.NoError(t, s.Submit(context.Background(), gw))
		got, _ := s.Score()
		assert.Equal(t, want, got, "raw score %d", raw)
	}
}

func TestBelowThresholdCannotFinish(t *testing.T) {
	gw := &fakeGateway{score: 69}
	s := readySession(t, gw)
	s.SetPrompt("noodles")
	require.NoError(t, s.Submit(context.Background(), gw))
	assert.False(t, s.Passed())
	_, err := s.Finish()
	assert.ErrorIs(t, err, ErrNotPassed)

	// Resubmission overwrites the previous attempt.
	gw.score = 70
	s.SetPrompt("steaming ramen noodles")
	require.NoError(t, s.Submit(context.Background(), gw))
	assert.True(t, s.Passed())
	assert.Equal(t, 2, s.Attempts())
}

func TestNoResubmitWhileGenerating(t *testing.T) {
	s := readySession(t, &fakeGateway{})
	s.SetPrompt("ramen")
	_, err := s.BeginAttempt()
	require.NoError(t, err)
	assert.Equal(t, StatusGenerating, s.Status())
	assert.False(t, s.CanSubmit())
	assert.False(t, s.CanFinish())
	_, err = s.BeginAttempt()
	assert.ErrorIs(t, err, ErrCannotSubmit)
}

func TestGenerationFailureKeepsPreviousPair(t *testing.T) {
	gw := &fakeGateway{score: 90}
	s := readySession(t, gw)
	s.SetPrompt("first")
	require.NoError(t, s.Submit(context.Background(), gw))

	gw.genErr = errors.New("timeout")
	s.SetPrompt("second")
	err := s.Submit(context.Background(), gw)
	var genErr *gateway.GenerationError
	require.ErrorAs(t, err, &genErr)

	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, MsgGenerationFailed, s.ErrorMessage())
	assert.Equal(t, "img:first", string(s.UserImage().Data))
	score, ok := s.Score()
	assert.True(t, ok)
	assert.Equal(t, 90, score)

	// Manual retry is allowed from the error state.
	gw.genErr = nil
	assert.True(t, s.CanSubmit())
	require.NoError(t, s.Submit(context.Background(), gw))
	assert.Equal(t, StatusIdle, s.Status())
	assert.Empty(t, s.ErrorMessage())
}

func TestScoringFailureClearsScore(t *testing.T) {
	gw := &fakeGateway{score: 90}
	s := readySession(t, gw)
	s.SetPrompt("first")
	require.NoError(t, s.Submit(context.Background(), gw))

	gw.scoreErr = errors.New("bad json")
	s.SetPrompt("second")
	err := s.Submit(context.Background(), gw)
	var scoreErr *gateway.ScoringError
	require.ErrorAs(t, err, &scoreErr)

	assert.Equal(t, "img:second", string(s.UserImage().Data))
	_, ok := s.Score()
	assert.False(t, ok, "score must not outlive the image it was computed for")
	assert.False(t, s.Passed())
	assert.Equal(t, MsgScoringFailed, s.ErrorMessage())
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	gw := &fakeGateway{score: 88}
	s := readySession(t, gw)

	s.SetPrompt("one")
	first, err := s.BeginAttempt()
	require.NoError(t, err)
	firstResult := RunAttempt(context.Background(), gw, first)

	// Result from another session.
	other := firstResult
	other.SessionID = "someone-else"
	assert.False(t, s.ApplyAttempt(other))
	assert.Equal(t, StatusGenerating, s.Status())

	assert.True(t, s.ApplyAttempt(firstResult))
	// Applying the same result twice is a no-op.
	assert.False(t, s.ApplyAttempt(firstResult))

	s.SetPrompt("two")
	second, err := s.BeginAttempt()
	require.NoError(t, err)
	assert.False(t, s.ApplyAttempt(firstResult), "superseded attempt")
	assert.True(t, s.ApplyAttempt(RunAttempt(context.Background(), gw, second)))
	assert.Equal(t, "img:two", string(s.UserImage().Data))
}

func TestInitResultForOtherSessionIsDiscarded(t *testing.T) {
	gw := &fakeGateway{}
	old := New(ramenLevel())
	oldReq, err := old.BeginInit()
	require.NoError(t, err)

	fresh := New(ramenLevel())
	_, err = fresh.BeginInit()
	require.NoError(t, err)
	assert.False(t, fresh.ApplyInit(RunInit(context.Background(), gw, oldReq)))
	assert.Equal(t, StatusInitializing, fresh.Status())
}
