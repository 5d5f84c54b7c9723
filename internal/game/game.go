// Package game holds the screen state machine. Transitions are pure: each
// takes a State and returns the next one, or an error and the input unchanged.
package game

import (
	"errors"
	"fmt"

	"promptdojo/internal/state"
)

type Screen int

const (
	ScreenLanding Screen = iota
	ScreenLevelSelect
	ScreenGameplay
	ScreenReflection
)

func (s Screen) String() string {
	switch s {
	case ScreenLanding:
		return "landing"
	case ScreenLevelSelect:
		return "level_select"
	case ScreenGameplay:
		return "gameplay"
	case ScreenReflection:
		return "reflection"
	default:
		return fmt.Sprintf("Screen(%d)", int(s))
	}
}

var (
	ErrLevelLocked  = errors.New("level is locked")
	ErrUnknownLevel = errors.New("unknown level")
)

// TransitionError reports an event that is not valid on the current screen.
type TransitionError struct {
	Event string
	From  Screen
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %s", e.Event, e.From)
}

type State struct {
	Screen       Screen
	CurrentLevel int
	MaxLevel     int
	Progress     state.Progress
}

// New returns the initial state: Landing with the loaded progress.
func New(progress state.Progress, maxLevel int) State {
	return State{Screen: ScreenLanding, MaxLevel: maxLevel, Progress: progress.Clone()}
}

func Start(s State) (State, error) {
	if s.Screen != ScreenLanding {
		return s, &TransitionError{Event: "start", From: s.Screen}
	}
	s.Screen = ScreenLevelSelect
	return s, nil
}

func SelectLevel(s State, id int) (State, error) {
	if s.Screen != ScreenLevelSelect {
		return s, &TransitionError{Event: "select level", From: s.Screen}
	}
	if id < 1 || id > s.MaxLevel {
		return s, fmt.Errorf("select level %d: %w", id, ErrUnknownLevel)
	}
	if !s.Progress.IsUnlocked(id) {
		return s, fmt.Errorf("select level %d: %w", id, ErrLevelLocked)
	}
	s.Screen = ScreenGameplay
	s.CurrentLevel = id
	return s, nil
}

// Back leaves Gameplay without recording anything.
func Back(s State) (State, error) {
	if s.Screen != ScreenGameplay {
		return s, &TransitionError{Event: "go back", From: s.Screen}
	}
	s.Screen = ScreenLevelSelect
	s.CurrentLevel = 0
	return s, nil
}

// CompleteLevel records a finished level. The final level leads to
// Reflection, every other level back to LevelSelect.
func CompleteLevel(s State, id, score int) (State, error) {
	if s.Screen != ScreenGameplay {
		return s, &TransitionError{Event: "complete level", From: s.Screen}
	}
	if id != s.CurrentLevel {
		return s, fmt.Errorf("complete level %d while playing %d: %w", id, s.CurrentLevel, ErrUnknownLevel)
	}
	s.Progress = s.Progress.WithCompletion(id, score, s.MaxLevel)
	s.CurrentLevel = 0
	if id == s.MaxLevel {
		s.Screen = ScreenReflection
	} else {
		s.Screen = ScreenLevelSelect
	}
	return s, nil
}

// Restart is the Reflection screen's "play again": progress is reset.
func Restart(s State) (State, error) {
	if s.Screen != ScreenReflection {
		return s, &TransitionError{Event: "restart", From: s.Screen}
	}
	return Reset(s), nil
}

// Reset wipes progress from any screen.
func Reset(s State) State {
	return State{Screen: ScreenLanding, MaxLevel: s.MaxLevel, Progress: state.DefaultProgress()}
}

// Home returns to Landing and keeps progress.
func Home(s State) State {
	s.Screen = ScreenLanding
	s.CurrentLevel = 0
	return s
}

// FinalAccuracy averages stored scores over every level of the catalog, so
// unplayed levels count as zero.
func FinalAccuracy(p state.Progress, levelCount int) int {
	if levelCount <= 0 {
		return 0
	}
	sum := 0
	for _, v := range p.Scores {
		sum += v
	}
	return int(float64(sum)/float64(levelCount) + 0.5)
}
