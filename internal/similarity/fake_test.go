package similarity

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	mu    sync.Mutex
	waits []time.Duration
	c     chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (t *fakeTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.waits = append(t.waits, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time {
	return t.c
}

func (t *fakeTimer) Waits() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.waits...)
}

var _ backoff.Timer = (*fakeTimer)(nil)

// scriptedBackend returns the scripted results in order and repeats the last one.
type scriptedBackend struct {
	mu      sync.Mutex
	results []scripted
	calls   int
	before  func(call int)
}

type scripted struct {
	values []float64
	err    error
}

func (b *scriptedBackend) Name() string  { return "scripted" }
func (b *scriptedBackend) Model() string { return "test-model" }

func (b *scriptedBackend) Similarity(_ context.Context, _ string, _ []string) ([]float64, error) {
	b.mu.Lock()
	call := b.calls
	b.calls++
	b.mu.Unlock()

	if b.before != nil {
		b.before(call)
	}

	if call >= len(b.results) {
		call = len(b.results) - 1
	}
	return b.results[call].values, b.results[call].err
}

func (b *scriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
