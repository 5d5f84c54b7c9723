package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingStore struct {
	MemoryStore
	mu    sync.Mutex
	saved []int
	gate  chan struct{}
	fail  error
}

func (r *recordingStore) Save(ctx context.Context, p Progress) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.saved = append(r.saved, p.UnlockedLevel)
	r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	return r.MemoryStore.Save(ctx, p)
}

func (r *recordingStore) savedLevels() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.saved...)
}

func TestAsyncWriterFlushWritesLatest(t *testing.T) {
	store := &recordingStore{}
	w := NewAsyncWriter(store, nil)
	defer func() { _ = w.Close(context.Background()) }()

	for i := 1; i <= 5; i++ {
		w.Submit(Progress{UnlockedLevel: i})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	got, _ := store.Load(context.Background())
	if got.UnlockedLevel != 5 {
		t.Fatalf("expected latest submission persisted, got %d", got.UnlockedLevel)
	}
	saved := store.savedLevels()
	for i := 1; i < len(saved); i++ {
		if saved[i] < saved[i-1] {
			t.Fatalf("saves applied out of order: %v", saved)
		}
	}
}

func TestAsyncWriterCoalescesWhileBusy(t *testing.T) {
	store := &recordingStore{gate: make(chan struct{})}
	w := NewAsyncWriter(store, nil)

	w.Submit(Progress{UnlockedLevel: 1})
	// Let the first save start and block on the gate.
	time.Sleep(20 * time.Millisecond)
	w.Submit(Progress{UnlockedLevel: 2})
	w.Submit(Progress{UnlockedLevel: 3})
	close(store.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	saved := store.savedLevels()
	if len(saved) != 2 || saved[0] != 1 || saved[1] != 3 {
		t.Fatalf("expected saves [1 3], got %v", saved)
	}
}

func TestAsyncWriterReportsErrors(t *testing.T) {
	boom := errors.New("disk full")
	store := &recordingStore{fail: boom}
	var (
		mu   sync.Mutex
		seen error
	)
	w := NewAsyncWriter(store, func(err error) {
		mu.Lock()
		seen = err
		mu.Unlock()
	})
	w.Submit(DefaultProgress())
	if err := w.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(seen, boom) {
		t.Fatalf("expected error callback with %v, got %v", boom, seen)
	}
}

func TestAsyncWriterDropsAfterClose(t *testing.T) {
	store := &recordingStore{}
	w := NewAsyncWriter(store, nil)
	if err := w.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	w.Submit(Progress{UnlockedLevel: 4})
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
	if got := store.savedLevels(); len(got) != 0 {
		t.Fatalf("expected no saves after close, got %v", got)
	}
}
