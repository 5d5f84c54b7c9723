package state

import (
	"reflect"
	"testing"
)

func TestWithCompletionUnlocksNextLevel(t *testing.T) {
	start := DefaultProgress()
	got := start.WithCompletion(1, 85, 5)
	want := Progress{UnlockedLevel: 2, CompletedLevels: []int{1}, Scores: map[int]int{1: 85}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %+v got %+v", want, got)
	}
	if !reflect.DeepEqual(start, DefaultProgress()) {
		t.Fatalf("receiver was mutated: %+v", start)
	}
}

func TestWithCompletionFinalLevelKeepsUnlocked(t *testing.T) {
	start := Progress{UnlockedLevel: 5, CompletedLevels: []int{1, 2, 3, 4}, Scores: map[int]int{1: 80}}
	got := start.WithCompletion(5, 72, 5)
	if got.UnlockedLevel != 5 {
		t.Fatalf("expected unlocked level to stay 5, got %d", got.UnlockedLevel)
	}
	if !reflect.DeepEqual(got.CompletedLevels, []int{1, 2, 3, 4, 5}) {
		t.Fatalf("unexpected completed levels: %v", got.CompletedLevels)
	}
	if got.Scores[5] != 72 {
		t.Fatalf("expected score 72, got %d", got.Scores[5])
	}
}

func TestWithCompletionReplayKeepsHigherUnlockAndLastScore(t *testing.T) {
	start := Progress{UnlockedLevel: 4, CompletedLevels: []int{1, 2, 3}, Scores: map[int]int{1: 95}}
	got := start.WithCompletion(1, 71, 5)
	if got.UnlockedLevel != 4 {
		t.Fatalf("replaying level 1 must not lower unlocked level, got %d", got.UnlockedLevel)
	}
	if !reflect.DeepEqual(got.CompletedLevels, []int{1, 2, 3}) {
		t.Fatalf("completed levels should not duplicate: %v", got.CompletedLevels)
	}
	if got.Scores[1] != 71 {
		t.Fatalf("last attempt should win, got %d", got.Scores[1])
	}
}

func TestClampScore(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 70: 70, 100: 100, 140: 100}
	for in, want := range cases {
		if got := ClampScore(in); got != want {
			t.Fatalf("ClampScore(%d)=%d want %d", in, got, want)
		}
	}
}

func TestDecodeProgressNormalizes(t *testing.T) {
	got, err := DecodeProgress([]byte(`{"unlockedLevel":0,"completedLevels":[2,1,2],"scores":{"1":90}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Progress{UnlockedLevel: 1, CompletedLevels: []int{1, 2}, Scores: map[int]int{1: 90}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %+v got %+v", want, got)
	}
}

func TestDecodeProgressRejectsMalformed(t *testing.T) {
	inputs := []string{
		`nope`,
		`{"unlockedLevel":"two"}`,
		`{"unlockedLevel":1,"completedLevels":[],"scores":{"1":150}}`,
	}
	for _, in := range inputs {
		if _, err := DecodeProgress([]byte(in)); err == nil {
			t.Fatalf("expected error decoding %q", in)
		}
	}
}

func TestValidateAgainstCatalog(t *testing.T) {
	if err := DefaultProgress().Validate(5); err != nil {
		t.Fatalf("default should validate: %v", err)
	}
	bad := []Progress{
		{UnlockedLevel: 6, CompletedLevels: []int{}, Scores: map[int]int{}},
		{UnlockedLevel: 2, CompletedLevels: []int{9}, Scores: map[int]int{}},
		{UnlockedLevel: 2, CompletedLevels: []int{1}, Scores: map[int]int{7: 50}},
	}
	for _, p := range bad {
		if err := p.Validate(5); err == nil {
			t.Fatalf("expected validation error for %+v", p)
		}
	}
}
