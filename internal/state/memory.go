package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps progress and run statistics in process memory. It backs
// ephemeral play and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	progress *Progress
	runs     []memoryRun
}

type memoryRun struct {
	run      LevelRun
	attempts []memoryAttempt
}

type memoryAttempt struct {
	score  int
	passed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.progress == nil {
		return DefaultProgress(), nil
	}
	return m.progress.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, p Progress) error {
	cp := p.Normalize()
	m.mu.Lock()
	m.progress = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Reset(ctx context.Context) (Progress, error) {
	p := DefaultProgress()
	return p, m.Save(ctx, p)
}

func (m *MemoryStore) StartLevelRun(_ context.Context, run LevelRun) (int64, error) {
	if run.StartTS.IsZero() {
		run.StartTS = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, memoryRun{run: run})
	return int64(len(m.runs)), nil
}

func (m *MemoryStore) RecordAttempt(_ context.Context, runID int64, score int, passed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if runID < 1 || int(runID) > len(m.runs) {
		return nil
	}
	r := &m.runs[runID-1]
	r.attempts = append(r.attempts, memoryAttempt{score: ClampScore(score), passed: passed})
	return nil
}

func (m *MemoryStore) GetSummary(_ context.Context) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Summary{LevelRuns: len(m.runs)}
	for _, r := range m.runs {
		for _, a := range r.attempts {
			out.Attempts++
			if a.passed {
				out.Passes++
			}
			out.BestScore = max(out.BestScore, a.score)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetLastRun(_ context.Context) (*LastRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	r := m.runs[len(m.runs)-1]
	out := &LastRun{LevelID: r.run.LevelID, StartTS: r.run.StartTS, Attempts: len(r.attempts)}
	if n := len(r.attempts); n > 0 {
		out.LastScore = r.attempts[n-1].score
		out.LastPassed = r.attempts[n-1].passed
	}
	return out, nil
}
