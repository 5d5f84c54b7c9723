// Package gameplay runs one entry into a level: load the reference image,
// take prompt attempts and decide when the level may be finished.
//
// A Session is not safe for concurrent use. Gateway calls run outside of it
// (RunInit, RunAttempt) and their results are folded back in with ApplyInit
// and ApplyAttempt, which drop anything that no longer belongs to the session.
package gameplay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promptdojo/internal/gateway"
	"promptdojo/internal/levels"
	"promptdojo/internal/state"

	"github.com/google/uuid"
)

// PassThreshold is the lowest score that lets a level be finished.
const PassThreshold = 70

const (
	MsgContentFailed    = "Failed to load level content. Go back and try again."
	MsgGenerationFailed = "Oops! The AI hit a snag. Try a different prompt."
	MsgScoringFailed    = "Your image is ready but it could not be scored. Submit again."
)

var (
	ErrCannotSubmit  = errors.New("prompt cannot be submitted now")
	ErrAlreadyLoaded = errors.New("session already initialized")
	ErrNotPassed     = fmt.Errorf("score below %d%%", PassThreshold)
)

type Status int

const (
	StatusInitializing Status = iota
	StatusIdle
	StatusGenerating
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusIdle:
		return "idle"
	case StatusGenerating:
		return "generating"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type Session struct {
	ID    string
	Level levels.Level

	status    Status
	started   bool
	reference *gateway.Image
	prompt    string
	userImage *gateway.Image
	score     *int
	errMsg    string
	lastErr   error
	seq       uint64
	attempts  int
}

type Completion struct {
	LevelID int
	Score   int
}

type InitResult struct {
	SessionID string
	Image     gateway.Image
	Err       error
}

type Attempt struct {
	SessionID string
	Seq       uint64
	Prompt    string
	Reference string
}

type AttemptResult struct {
	SessionID string
	Seq       uint64
	Prompt    string
	// Image is set whenever generation succeeded, even if scoring then failed.
	Image *gateway.Image
	Score int
	Err   error
}

func New(level levels.Level) *Session {
	return &Session{ID: uuid.NewString(), Level: level, status: StatusInitializing}
}

func (s *Session) Status() Status        { return s.status }
func (s *Session) Prompt() string        { return s.prompt }
func (s *Session) ErrorMessage() string  { return s.errMsg }
func (s *Session) LastError() error      { return s.lastErr }
func (s *Session) Attempts() int         { return s.attempts }
func (s *Session) SetPrompt(text string) { s.prompt = text }

func (s *Session) ReferenceImage() *gateway.Image { return s.reference }
func (s *Session) UserImage() *gateway.Image      { return s.userImage }

// Score returns the match score of the latest scored attempt.
func (s *Session) Score() (int, bool) {
	if s.score == nil {
		return 0, false
	}
	return *s.score, true
}

type InitRequest struct {
	SessionID    string
	MasterPrompt string
}

// BeginInit marks the reference load as started. It succeeds once per session.
func (s *Session) BeginInit() (InitRequest, error) {
	if s.started {
		return InitRequest{}, ErrAlreadyLoaded
	}
	s.started = true
	s.status = StatusInitializing
	return InitRequest{SessionID: s.ID, MasterPrompt: s.Level.MasterPrompt}, nil
}

// RunInit generates the reference image from the level's master prompt.
func RunInit(ctx context.Context, gw gateway.Gateway, req InitRequest) InitResult {
	img, err := gw.GenerateImage(ctx, req.MasterPrompt)
	if err == nil && img.Empty() {
		err = &gateway.GenerationError{Prompt: req.MasterPrompt, Err: errors.New("empty image")}
	}
	return InitResult{SessionID: req.SessionID, Image: img, Err: err}
}

// ApplyInit folds a reference load result into the session. It reports false
// when the result was discarded.
func (s *Session) ApplyInit(r InitResult) bool {
	if r.SessionID != s.ID || s.status != StatusInitializing {
		return false
	}
	if r.Err != nil {
		s.status = StatusError
		s.errMsg = MsgContentFailed
		s.lastErr = r.Err
		return true
	}
	img := r.Image
	s.reference = &img
	s.status = StatusIdle
	return true
}

// Initialize loads the reference image synchronously.
func (s *Session) Initialize(ctx context.Context, gw gateway.Gateway) error {
	req, err := s.BeginInit()
	if err != nil {
		return err
	}
	s.ApplyInit(RunInit(ctx, gw, req))
	return s.lastErr
}

// CanSubmit reports whether the current prompt may be sent.
func (s *Session) CanSubmit() bool {
	if s.reference == nil {
		return false
	}
	if s.status != StatusIdle && s.status != StatusError {
		return false
	}
	return strings.TrimSpace(s.prompt) != ""
}

// BeginAttempt moves the session to Generating and returns the work to run.
func (s *Session) BeginAttempt() (Attempt, error) {
	if !s.CanSubmit() {
		return Attempt{}, ErrCannotSubmit
	}
	s.seq++
	s.attempts++
	s.status = StatusGenerating
	s.errMsg = ""
	return Attempt{
		SessionID: s.ID,
		Seq:       s.seq,
		Prompt:    strings.TrimSpace(s.prompt),
		Reference: s.Level.MasterPrompt,
	}, nil
}

// RunAttempt generates the player's image and then scores their prompt.
// Scoring is skipped when generation fails.
func RunAttempt(ctx context.Context, gw gateway.Gateway, a Attempt) AttemptResult {
	out := AttemptResult{SessionID: a.SessionID, Seq: a.Seq, Prompt: a.Prompt}
	img, err := gw.GenerateImage(ctx, a.Prompt)
	if err == nil && img.Empty() {
		err = &gateway.GenerationError{Prompt: a.Prompt, Err: errors.New("empty image")}
	}
	if err != nil {
		out.Err = err
		return out
	}
	out.Image = &img
	score, err := gw.ScoreSimilarity(ctx, a.Prompt, a.Reference)
	if err != nil {
		out.Err = err
		return out
	}
	out.Score = state.ClampScore(score)
	return out
}

// ApplyAttempt folds an attempt result into the session. Results from another
// session or a superseded attempt are discarded and false is returned.
func (s *Session) ApplyAttempt(r AttemptResult) bool {
	if r.SessionID != s.ID || r.Seq != s.seq || s.status != StatusGenerating {
		return false
	}
	if r.Err != nil {
		s.status = StatusError
		s.lastErr = r.Err
		if r.Image != nil {
			// The new image has no score of its own yet.
			s.userImage = r.Image
			s.score = nil
			s.errMsg = MsgScoringFailed
		} else {
			s.errMsg = MsgGenerationFailed
		}
		return true
	}
	score := state.ClampScore(r.Score)
	s.userImage = r.Image
	s.score = &score
	s.status = StatusIdle
	s.errMsg = ""
	s.lastErr = nil
	return true
}

// Submit runs one attempt synchronously.
func (s *Session) Submit(ctx context.Context, gw gateway.Gateway) error {
	a, err := s.BeginAttempt()
	if err != nil {
		return err
	}
	s.ApplyAttempt(RunAttempt(ctx, gw, a))
	if s.status == StatusError {
		return s.lastErr
	}
	return nil
}

// Passed reports whether the latest score clears PassThreshold.
func (s *Session) Passed() bool {
	score, ok := s.Score()
	return ok && score >= PassThreshold
}

// CanFinish is Passed while no attempt is in flight.
func (s *Session) CanFinish() bool {
	return s.Passed() && s.status != StatusGenerating
}

// Finish reports the completion for the controller.
func (s *Session) Finish() (Completion, error) {
	if !s.CanFinish() {
		return Completion{}, ErrNotPassed
	}
	score, _ := s.Score()
	return Completion{LevelID: s.Level.ID, Score: score}, nil
}
