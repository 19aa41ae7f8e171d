package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// --- Fakes / Mocks ---

type fakeSweeper struct {
	mu    sync.Mutex
	count int
	err   error
	calls int
}

func (fs *fakeSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls++
	if fs.err != nil {
		return 0, fs.err
	}
	return fs.count, nil
}

func (fs *fakeSweeper) callCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.calls
}

type fakeRecorder struct {
	mu       sync.Mutex
	counters map[string]int64
	observed map[string][]int64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{counters: make(map[string]int64), observed: make(map[string][]int64)}
}

func (fr *fakeRecorder) Inc(name string, delta int64) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.counters[name] += delta
}

func (fr *fakeRecorder) Observe(name string, value int64) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.observed[name] = append(fr.observed[name], value)
}

func TestJanitorCycleSuccess(t *testing.T) {
	fs := &fakeSweeper{count: 3}
	j := New(fs, Config{Interval: time.Hour, Logger: slog.Default()})
	j.runCycle(context.Background())
	mv := j.MetricsSnapshot()
	if mv.Deleted != 3 || mv.Cycles != 1 {
		t.Fatalf("unexpected metrics %+v", mv)
	}
	if fs.callCount() != 1 {
		t.Fatalf("expected one sweep, got %d", fs.calls)
	}
}

func TestJanitorCycleSweepError(t *testing.T) {
	fs := &fakeSweeper{err: errors.New("boom")}
	j := New(fs, Config{Interval: time.Hour, Logger: slog.Default()})
	j.runCycle(context.Background())
	mv := j.MetricsSnapshot()
	if mv.Deleted != 0 || mv.Cycles != 1 {
		t.Fatalf("metrics after error %+v", mv)
	}
}

func TestJanitorReportsToRecorder(t *testing.T) {
	fs := &fakeSweeper{count: 5}
	fr := newFakeRecorder()
	j := New(fs, Config{Interval: time.Hour, Recorder: fr})
	j.runCycle(context.Background())
	j.runCycle(context.Background())

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.counters[counterSwept] != 10 {
		t.Errorf("swept counter = %d, want 10", fr.counters[counterSwept])
	}
	if len(fr.observed[summaryCycle]) != 2 {
		t.Errorf("observations = %d, want 2", len(fr.observed[summaryCycle]))
	}
}

func TestJanitorStartStop(t *testing.T) {
	fs := &fakeSweeper{count: 1}
	j := New(fs, Config{Interval: time.Second})
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Start is idempotent.
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for fs.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	j.Stop()
	if fs.callCount() == 0 {
		t.Fatal("janitor never swept")
	}

	// No new cycles after Stop.
	after := fs.callCount()
	time.Sleep(1100 * time.Millisecond)
	if fs.callCount() != after {
		t.Errorf("sweep ran after stop: %d -> %d", after, fs.callCount())
	}
}

func TestJanitorDefaultInterval(t *testing.T) {
	j := New(&fakeSweeper{}, Config{})
	if j.cfg.Interval != time.Minute {
		t.Errorf("default interval = %v, want 1m", j.cfg.Interval)
	}
}
