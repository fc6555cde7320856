// Package telemetry buffers event rows and ships them to a clickhouse table in batches
package telemetry

import (
	"context"
	"sync"
	"time"

	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/store"
)

// Options tunes a Buffer
type Options struct {
	// MaxRows triggers a flush once reached (default 256)
	MaxRows int
	// FlushEvery is the Run ticker period (default 2s)
	FlushEvery time.Duration
}

// Buffer collects rows for one table
// A Buffer without a clickhouse seam accepts rows and drops them
type Buffer struct {
	ch    store.Clickhouse
	table string
	opt   Options

	mu   sync.Mutex
	rows [][]any
}

// New returns a Buffer for table, ch may be nil
func New(ch store.Clickhouse, table string, opt Options) *Buffer {
	if opt.MaxRows <= 0 {
		opt.MaxRows = 256
	}
	if opt.FlushEvery <= 0 {
		opt.FlushEvery = 2 * time.Second
	}
	return &Buffer{ch: ch, table: table, opt: opt}
}

// Enabled reports whether rows go anywhere
func (b *Buffer) Enabled() bool { return b != nil && b.ch != nil }

// Add appends one row in table column order, flushing inline when the buffer is full
func (b *Buffer) Add(ctx context.Context, row ...any) {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	b.rows = append(b.rows, row)
	full := len(b.rows) >= b.opt.MaxRows
	b.mu.Unlock()
	if full {
		b.Flush(ctx)
	}
}

// Pending returns the number of buffered rows
func (b *Buffer) Pending() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Flush sends buffered rows, failures are logged and the batch is dropped
func (b *Buffer) Flush(ctx context.Context) {
	if !b.Enabled() {
		return
	}
	b.mu.Lock()
	rows := b.rows
	b.rows = nil
	b.mu.Unlock()
	if len(rows) == 0 {
		return
	}
	if err := b.ch.Insert(ctx, b.table, rows); err != nil {
		logger.C(ctx).Warn().Err(err).Str("table", b.table).Int("rows", len(rows)).Msg("telemetry flush failed")
	}
}

// Run flushes on a ticker until ctx ends, then performs a final flush
func (b *Buffer) Run(ctx context.Context) {
	if !b.Enabled() {
		return
	}
	t := time.NewTicker(b.opt.FlushEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			b.Flush(fctx)
			cancel()
			return
		case <-t.C:
			b.Flush(ctx)
		}
	}
}
