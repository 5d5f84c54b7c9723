package state

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestSQLiteLoadMissingReturnsDefault(t *testing.T) {
	store := newTestSQLite(t)
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultProgress()) {
		t.Fatalf("expected default progress, got %+v", got)
	}
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	want := Progress{UnlockedLevel: 3, CompletedLevels: []int{1, 2}, Scores: map[int]int{1: 85, 2: 71}}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
	}

	// The record is stored whole under its key in the persisted JSON shape.
	raw, ok, err := store.getSetting(ctx, ProgressKey)
	if err != nil || !ok {
		t.Fatalf("expected stored record, ok=%v err=%v", ok, err)
	}
	if raw != `{"unlockedLevel":3,"completedLevels":[1,2],"scores":{"1":85,"2":71}}` {
		t.Fatalf("unexpected stored json: %s", raw)
	}
}

func TestSQLiteCorruptRecordFallsBackToDefault(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	if err := store.SaveSettings(ctx, map[string]string{ProgressKey: "{not json"}); err != nil {
		t.Fatalf("seed corrupt record: %v", err)
	}
	got, err := store.Load(ctx)
	var readErr *PersistenceReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected PersistenceReadError, got %v", err)
	}
	if !reflect.DeepEqual(got, DefaultProgress()) {
		t.Fatalf("expected default progress, got %+v", got)
	}
}

func TestSQLiteReset(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	if err := store.Save(ctx, Progress{UnlockedLevel: 5, CompletedLevels: []int{1, 2, 3, 4}, Scores: map[int]int{4: 90}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultProgress()) {
		t.Fatalf("expected default after reset, got %+v", got)
	}
}

func TestSQLiteSettingsExcludeProgress(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	if err := store.Save(ctx, DefaultProgress()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveSettings(ctx, map[string]string{"ui.style_variant": "cozy_clean"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if len(got) != 1 || got["ui.style_variant"] != "cozy_clean" {
		t.Fatalf("unexpected settings: %#v", got)
	}
}

func TestSQLiteRunsAndSummary(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	last, err := store.GetLastRun(ctx)
	if err != nil || last != nil {
		t.Fatalf("expected no last run, got %+v err=%v", last, err)
	}

	runID, err := store.StartLevelRun(ctx, LevelRun{SessionID: "s1", LevelID: 2, StartTS: time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.RecordAttempt(ctx, runID, 40, false); err != nil {
		t.Fatalf("record attempt: %v", err)
	}
	if err := store.RecordAttempt(ctx, runID, 140, true); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	summary, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.LevelRuns != 1 || summary.Attempts != 2 || summary.Passes != 1 || summary.BestScore != 100 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	last, err = store.GetLastRun(ctx)
	if err != nil || last == nil {
		t.Fatalf("expected last run, got %+v err=%v", last, err)
	}
	if last.LevelID != 2 || last.Attempts != 2 || !last.LastPassed || last.LastScore != 100 {
		t.Fatalf("unexpected last run: %+v", last)
	}
	if !last.StartTS.Equal(time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start ts: %v", last.StartTS)
	}
}
