package state

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryStoreSaveIsolatedFromCaller(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	p := Progress{UnlockedLevel: 2, CompletedLevels: []int{1}, Scores: map[int]int{1: 85}}
	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Scores[1] = 10
	got, _ := store.Load(ctx)
	if got.Scores[1] != 85 {
		t.Fatalf("stored record aliased caller map: %+v", got)
	}
	got.CompletedLevels[0] = 9
	again, _ := store.Load(ctx)
	if !reflect.DeepEqual(again.CompletedLevels, []int{1}) {
		t.Fatalf("loaded record aliased store slice: %+v", again)
	}
}

func TestMemoryStoreRuns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id, _ := store.StartLevelRun(ctx, LevelRun{SessionID: "a", LevelID: 1})
	_ = store.RecordAttempt(ctx, id, 55, false)
	_ = store.RecordAttempt(ctx, id, 82, true)
	summary, _ := store.GetSummary(ctx)
	if summary.LevelRuns != 1 || summary.Attempts != 2 || summary.Passes != 1 || summary.BestScore != 82 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	last, _ := store.GetLastRun(ctx)
	if last == nil || last.LastScore != 82 || !last.LastPassed {
		t.Fatalf("unexpected last run: %+v", last)
	}
}
