package store

import (
	"context"
	"errors"

	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/store/ch"
)

// chConn is the subset of *ch.CH the adapter needs
type chConn interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

// newCHAdapter is called by openers.go to wrap an existing *ch.CH
// and return the store.Clickhouse seam
func newCHAdapter(c chConn, log logger.Logger, logSQL bool) Clickhouse {
	return &clickhouseAdapter{inner: c, log: log, logSQL: logSQL}
}

// clickhouseAdapter adapts *ch.CH to the store.Clickhouse interface
type clickhouseAdapter struct {
	inner  chConn
	log    logger.Logger
	logSQL bool
}

var _ Clickhouse = (*clickhouseAdapter)(nil)

// Insert accepts [][]any rows in table column order
func (a *clickhouseAdapter) Insert(ctx context.Context, table string, data any) error {
	rows, ok := data.([][]any)
	if !ok {
		return errors.New("store: unsupported CH insert shape (want [][]any)")
	}
	if a.logSQL {
		a.log.Debug().Str("component", "ch").Str("table", table).Int("rows", len(rows)).Msg("ch insert")
	}
	return a.inner.Insert(ctx, table, rows)
}

// Exec runs DDL or statements without results
func (a *clickhouseAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	if a.logSQL {
		a.log.Debug().Str("component", "ch").Str("sql", sql).Msg("ch exec")
	}
	return a.inner.Exec(ctx, sql, args...)
}

func (a *clickhouseAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if a.logSQL {
		a.log.Debug().Str("component", "ch").Str("sql", sql).Msg("ch query")
	}
	r, err := a.inner.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &chRows{r: r}, nil
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

// Ping verifies connectivity with ClickHouse
func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil clickhouse adapter")
	}
	return a.inner.Ping(ctx)
}

// chRows wraps driver rows as store.Rows
type chRows struct{ r ch.Rows }

func (r *chRows) Next() bool             { return r.r.Next() }
func (r *chRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r *chRows) Err() error             { return r.r.Err() }
func (r *chRows) Close()                 { _ = r.r.Close() }
func (r *chRows) Columns() []string      { return r.r.Columns() }
