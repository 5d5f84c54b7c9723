package state

import (
	"context"
	"time"
)

// Store persists the progress record.
//
// Load never fails the caller: a missing record yields DefaultProgress and a
// nil error, an unreadable one yields DefaultProgress and a
// *PersistenceReadError describing what was discarded.
type Store interface {
	Load(ctx context.Context) (Progress, error)
	Save(ctx context.Context, p Progress) error
	Reset(ctx context.Context) (Progress, error)
}

// Recorder keeps play statistics next to the progress record. They never feed
// back into gating or scores.
type Recorder interface {
	StartLevelRun(ctx context.Context, run LevelRun) (int64, error)
	RecordAttempt(ctx context.Context, runID int64, score int, passed bool) error
	GetSummary(ctx context.Context) (Summary, error)
	GetLastRun(ctx context.Context) (*LastRun, error)
}

type LevelRun struct {
	SessionID string
	LevelID   int
	StartTS   time.Time
}

type Summary struct {
	LevelRuns int
	Attempts  int
	Passes    int
	BestScore int
}

type LastRun struct {
	LevelID    int
	StartTS    time.Time
	LastScore  int
	LastPassed bool
	Attempts   int
}
