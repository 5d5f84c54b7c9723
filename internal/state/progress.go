package state

import (
	"encoding/json"
	"fmt"
	"slices"
)

// ProgressKey is the key the progress record is stored under.
const ProgressKey = "say_what_you_see_progress"

// Progress is the persisted game progress record. It is always read and
// written whole.
type Progress struct {
	UnlockedLevel   int         `json:"unlockedLevel"`
	CompletedLevels []int       `json:"completedLevels"`
	Scores          map[int]int `json:"scores"`
}

// PersistenceReadError reports a stored record that could not be read. The
// store recovers by returning DefaultProgress alongside it.
type PersistenceReadError struct {
	Err error
}

func (e *PersistenceReadError) Error() string {
	return fmt.Sprintf("read progress: %v", e.Err)
}

func (e *PersistenceReadError) Unwrap() error { return e.Err }

func DefaultProgress() Progress {
	return Progress{
		UnlockedLevel:   1,
		CompletedLevels: []int{},
		Scores:          map[int]int{},
	}
}

func (p Progress) Clone() Progress {
	out := Progress{
		UnlockedLevel:   p.UnlockedLevel,
		CompletedLevels: append([]int{}, p.CompletedLevels...),
		Scores:          make(map[int]int, len(p.Scores)),
	}
	for k, v := range p.Scores {
		out.Scores[k] = v
	}
	return out
}

// IsUnlocked reports whether the level with the given id is playable.
func (p Progress) IsUnlocked(id int) bool {
	return id >= 1 && id <= p.UnlockedLevel
}

func (p Progress) IsCompleted(id int) bool {
	return slices.Contains(p.CompletedLevels, id)
}

// Score returns the stored score for a level and whether one exists.
func (p Progress) Score(id int) (int, bool) {
	s, ok := p.Scores[id]
	return s, ok
}

// WithCompletion applies a level completion and returns the updated record.
// The receiver is not modified.
func (p Progress) WithCompletion(id, score, maxLevelID int) Progress {
	out := p.Clone()
	if id != maxLevelID && id+1 > out.UnlockedLevel {
		out.UnlockedLevel = id + 1
	}
	if !out.IsCompleted(id) {
		out.CompletedLevels = append(out.CompletedLevels, id)
		slices.Sort(out.CompletedLevels)
	}
	out.Scores[id] = ClampScore(score)
	return out
}

// Normalize repairs shape problems a decoded record may carry.
func (p Progress) Normalize() Progress {
	out := p.Clone()
	if out.UnlockedLevel < 1 {
		out.UnlockedLevel = 1
	}
	slices.Sort(out.CompletedLevels)
	out.CompletedLevels = slices.Compact(out.CompletedLevels)
	return out
}

// Validate checks the record against a catalog whose ids run 1..maxLevel.
func (p Progress) Validate(maxLevel int) error {
	if p.UnlockedLevel < 1 || p.UnlockedLevel > maxLevel {
		return fmt.Errorf("unlocked level %d outside 1..%d", p.UnlockedLevel, maxLevel)
	}
	for _, id := range p.CompletedLevels {
		if id < 1 || id > maxLevel {
			return fmt.Errorf("completed level %d outside 1..%d", id, maxLevel)
		}
	}
	for id, score := range p.Scores {
		if id < 1 || id > maxLevel {
			return fmt.Errorf("score for unknown level %d", id)
		}
		if score < 0 || score > 100 {
			return fmt.Errorf("score %d for level %d outside 0..100", score, id)
		}
	}
	return nil
}

// ClampScore bounds a similarity score to [0,100].
func ClampScore(score int) int {
	return max(0, min(100, score))
}

// EncodeProgress renders the record in its persisted JSON shape.
func EncodeProgress(p Progress) ([]byte, error) {
	p = p.Normalize()
	return json.Marshal(p)
}

// DecodeProgress parses a persisted record. Malformed input is an error; the
// caller decides how to recover.
func DecodeProgress(raw []byte) (Progress, error) {
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return Progress{}, fmt.Errorf("decode progress: %w", err)
	}
	for id, score := range p.Scores {
		if score < 0 || score > 100 {
			return Progress{}, fmt.Errorf("decode progress: score %d for level %d out of range", score, id)
		}
	}
	return p.Normalize(), nil
}
