package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helioserve/internal/platform/store"
)

type fakeCH struct {
	mu   sync.Mutex
	rows map[string]int
	fail bool
}

func (f *fakeCH) Insert(_ context.Context, table string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("down")
	}
	if f.rows == nil {
		f.rows = map[string]int{}
	}
	f.rows[table] += len(data.([][]any))
	return nil
}
func (f *fakeCH) Exec(context.Context, string, ...any) error { return nil }
func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("unsupported")
}
func (f *fakeCH) Close() error { return nil }

func (f *fakeCH) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[table]
}

func TestDisabledBufferDropsRows(t *testing.T) {
	b := New(nil, "render_events", Options{})
	b.Add(context.Background(), "tile", 1)
	if b.Enabled() || b.Pending() != 0 {
		t.Fatalf("disabled buffer should not hold rows")
	}
	b.Flush(context.Background())
	b.Run(context.Background())
}

func TestFlushOnSize(t *testing.T) {
	ch := &fakeCH{}
	b := New(ch, "movie_frames", Options{MaxRows: 2, FlushEvery: time.Hour})
	ctx := context.Background()

	b.Add(ctx, "a")
	if ch.count("movie_frames") != 0 || b.Pending() != 1 {
		t.Fatalf("flushed too early")
	}
	b.Add(ctx, "b")
	if ch.count("movie_frames") != 2 || b.Pending() != 0 {
		t.Fatalf("size flush: sent=%d pending=%d", ch.count("movie_frames"), b.Pending())
	}
}

func TestRunFinalFlush(t *testing.T) {
	ch := &fakeCH{}
	b := New(ch, "render_events", Options{FlushEvery: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	b.Add(ctx, "tile")

	done := make(chan struct{})
	go func() { b.Run(ctx); close(done) }()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if ch.count("render_events") != 1 {
		t.Fatalf("final flush missing")
	}
}

func TestFailedFlushDropsBatch(t *testing.T) {
	ch := &fakeCH{fail: true}
	b := New(ch, "render_events", Options{})
	b.Add(context.Background(), "tile")
	b.Flush(context.Background())
	if b.Pending() != 0 {
		t.Fatalf("failed batch should be dropped")
	}
}
