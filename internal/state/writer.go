package state

import (
	"context"
	"sync"
	"time"
)

// AsyncWriter applies progress saves off the caller's goroutine. Saves are
// applied in submission order; when several are queued only the newest is
// written.
type AsyncWriter struct {
	store   Store
	onError func(error)
	timeout time.Duration

	mu      sync.Mutex
	pending *Progress
	queued  uint64
	written uint64
	changed chan struct{}
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func NewAsyncWriter(store Store, onError func(error)) *AsyncWriter {
	w := &AsyncWriter{
		store:   store,
		onError: onError,
		timeout: 5 * time.Second,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Submit queues p for writing and returns immediately. Submissions after
// Close are dropped.
func (w *AsyncWriter) Submit(p Progress) {
	cp := p.Clone()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = &cp
	w.queued++
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every submission made before the call is written.
func (w *AsyncWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.queued
	w.mu.Unlock()
	for {
		w.mu.Lock()
		if w.written >= target {
			w.mu.Unlock()
			return nil
		}
		ch := w.changed
		w.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close writes anything still pending and stops the writer.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	close(w.quit)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *AsyncWriter) drain() {
	for {
		w.mu.Lock()
		p, seq := w.pending, w.queued
		w.pending = nil
		w.mu.Unlock()
		if p == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.store.Save(ctx, *p)
		cancel()
		if err != nil && w.onError != nil {
			w.onError(err)
		}

		w.mu.Lock()
		w.written = seq
		close(w.changed)
		w.changed = make(chan struct{})
		w.mu.Unlock()
	}
}
