package game

import (
	"testing"

	"promptdojo/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atLevelSelect(t *testing.T, p state.Progress) State {
	t.Helper()
	s, err := Start(New(p, 5))
	require.NoError(t, err)
	return s
}

func TestNewStartsOnLanding(t *testing.T) {
	s := New(state.DefaultProgress(), 5)
	assert.Equal(t, ScreenLanding, s.Screen)
	assert.Equal(t, 1, s.Progress.UnlockedLevel)
}

func TestSelectLevelGuard(t *testing.T) {
	p := state.Progress{UnlockedLevel: 2, CompletedLevels: []int{1}, Scores: map[int]int{1: 80}}
	for id := 1; id <= 5; id++ {
		s := atLevelSelect(t, p)
		next, err := SelectLevel(s, id)
		if id <= 2 {
			require.NoError(t, err, "level %d", id)
			assert.Equal(t, ScreenGameplay, next.Screen)
			assert.Equal(t, id, next.CurrentLevel)
			continue
		}
		assert.ErrorIs(t, err, ErrLevelLocked, "level %d", id)
		assert.Equal(t, s, next, "rejected transition must leave state unchanged")
	}

	s := atLevelSelect(t, p)
	_, err := SelectLevel(s, 9)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestRamenScenario(t *testing.T) {
	s, err := SelectLevel(atLevelSelect(t, state.DefaultProgress()), 1)
	require.NoError(t, err)
	s, err = CompleteLevel(s, 1, 85)
	require.NoError(t, err)

	assert.Equal(t, ScreenLevelSelect, s.Screen)
	assert.Equal(t, 2, s.Progress.UnlockedLevel)
	assert.Equal(t, []int{1}, s.Progress.CompletedLevels)
	assert.Equal(t, map[int]int{1: 85}, s.Progress.Scores)
}

func TestFinalLevelGoesToReflection(t *testing.T) {
	p := state.Progress{UnlockedLevel: 5, CompletedLevels: []int{1, 2, 3, 4}, Scores: map[int]int{1: 80, 2: 75, 3: 90, 4: 70}}
	s, err := SelectLevel(atLevelSelect(t, p), 5)
	require.NoError(t, err)
	s, err = CompleteLevel(s, 5, 72)
	require.NoError(t, err)

	assert.Equal(t, ScreenReflection, s.Screen)
	assert.Equal(t, 5, s.Progress.UnlockedLevel)
	assert.Contains(t, s.Progress.CompletedLevels, 5)
	assert.Equal(t, 72, s.Progress.Scores[5])
}

func TestCompleteLevelRequiresCurrentLevel(t *testing.T) {
	s, err := SelectLevel(atLevelSelect(t, state.DefaultProgress()), 1)
	require.NoError(t, err)
	next, err := CompleteLevel(s, 2, 99)
	assert.Error(t, err)
	assert.Equal(t, s, next)
}

func TestBackReturnsToLevelSelect(t *testing.T) {
	s, err := SelectLevel(atLevelSelect(t, state.DefaultProgress()), 1)
	require.NoError(t, err)
	s, err = Back(s)
	require.NoError(t, err)
	assert.Equal(t, ScreenLevelSelect, s.Screen)
	assert.Equal(t, state.DefaultProgress(), s.Progress)
}

func TestInvalidTransitions(t *testing.T) {
	landing := New(state.DefaultProgress(), 5)
	_, err := Back(landing)
	var te *TransitionError
	assert.ErrorAs(t, err, &te)
	_, err = SelectLevel(landing, 1)
	assert.ErrorAs(t, err, &te)
	_, err = Restart(landing)
	assert.ErrorAs(t, err, &te)

	sel := atLevelSelect(t, state.DefaultProgress())
	_, err = Start(sel)
	assert.ErrorAs(t, err, &te)
	_, err = CompleteLevel(sel, 1, 90)
	assert.ErrorAs(t, err, &te)
}

func TestResetFromAnyScreen(t *testing.T) {
	p := state.Progress{UnlockedLevel: 4, CompletedLevels: []int{1, 2, 3}, Scores: map[int]int{1: 90, 2: 80, 3: 70}}
	screens := []State{
		New(p, 5),
		atLevelSelect(t, p),
	}
	playing, err := SelectLevel(atLevelSelect(t, p), 3)
	require.NoError(t, err)
	screens = append(screens, playing, State{Screen: ScreenReflection, MaxLevel: 5, Progress: p})

	for _, s := range screens {
		got := Reset(s)
		assert.Equal(t, ScreenLanding, got.Screen, "from %s", s.Screen)
		assert.Equal(t, state.DefaultProgress(), got.Progress)
	}
}

func TestRestartFromReflection(t *testing.T) {
	s := State{Screen: ScreenReflection, MaxLevel: 5, Progress: state.Progress{UnlockedLevel: 5, CompletedLevels: []int{1, 2, 3, 4, 5}, Scores: map[int]int{5: 100}}}
	got, err := Restart(s)
	require.NoError(t, err)
	assert.Equal(t, ScreenLanding, got.Screen)
	assert.Equal(t, state.DefaultProgress(), got.Progress)
}

func TestHomeKeepsProgress(t *testing.T) {
	p := state.Progress{UnlockedLevel: 2, CompletedLevels: []int{1}, Scores: map[int]int{1: 85}}
	s, err := SelectLevel(atLevelSelect(t, p), 2)
	require.NoError(t, err)
	got := Home(s)
	assert.Equal(t, ScreenLanding, got.Screen)
	assert.Equal(t, p, got.Progress)
}

func TestFinalAccuracy(t *testing.T) {
	p := state.Progress{Scores: map[int]int{1: 85, 2: 70, 3: 90, 4: 71, 5: 72}}
	assert.Equal(t, 78, FinalAccuracy(p, 5))
	assert.Equal(t, 17, FinalAccuracy(state.Progress{Scores: map[int]int{1: 85}}, 5))
	assert.Equal(t, 0, FinalAccuracy(p, 0))
}
