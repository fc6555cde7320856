package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"helioserve/internal/platform/config"
	perr "helioserve/internal/platform/errors"
	"helioserve/internal/platform/logger"
	"helioserve/internal/platform/store/ch"
)

// fakeTx satisfies TxRunner and optionally Pinger
type fakeTx struct {
	pingErr error
	tag     fakeTag
	rows    *fakeRows
}

func (f *fakeTx) Tx(ctx context.Context, fn func(q RowQuerier) error) error { return fn(f) }
func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return f.tag, nil
}
func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return f.rows, nil
}
func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row { return nil }
func (f *fakeTx) Ping(context.Context) error                               { return f.pingErr }

type fakeTag int64

func (t fakeTag) String() string      { return "UPDATE" }
func (t fakeTag) RowsAffected() int64 { return int64(t) }

type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool        { r.i++; return r.i <= len(r.data) }
func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return nil }
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	for i := range dest {
		*(dest[i].(*int64)) = row[i].(int64)
	}
	return nil
}

// fakeCH satisfies chConn
type fakeCH struct {
	pingErr  error
	inserted map[string]int
	execs    []string
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if f.inserted == nil {
		f.inserted = map[string]int{}
	}
	f.inserted[table] += len(rows)
	return nil
}
func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}
func (f *fakeCH) Query(context.Context, string, ...any) (ch.Rows, error) { return nil, errors.New("no") }
func (f *fakeCH) Ping(context.Context) error                             { return f.pingErr }
func (f *fakeCH) Close() error                                           { return nil }

func TestGuard(t *testing.T) {
	t.Parallel()

	var nilStore *Store
	if err := nilStore.Guard(context.Background()); err == nil {
		t.Fatalf("nil store should return error")
	}
	if err := (&Store{}).Guard(context.Background()); err != nil {
		t.Fatalf("no seams: %v", err)
	}
	if err := (&Store{PG: &fakeTx{}}).Guard(context.Background()); err != nil {
		t.Fatalf("pg ok: %v", err)
	}

	s := &Store{
		PG: &fakeTx{pingErr: errors.New("boom")},
		CH: newCHAdapter(&fakeCH{pingErr: errors.New("down")}, *logger.Get(), false),
	}
	err := s.Guard(context.Background())
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if !strings.Contains(err.Error(), "pg: boom") || !strings.Contains(err.Error(), "ch: down") {
		t.Fatalf("unexpected guard error %q", err.Error())
	}
}

func TestCHAdapterInsertShape(t *testing.T) {
	t.Parallel()

	inner := &fakeCH{}
	a := newCHAdapter(inner, *logger.Get(), true)
	if err := a.Insert(context.Background(), "render_events", []map[string]any{{}}); err == nil {
		t.Fatalf("expected shape error")
	}
	rows := [][]any{{"tile", int64(3)}, {"composite", int64(4)}}
	if err := a.Insert(context.Background(), "render_events", rows); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inner.inserted["render_events"] != 2 {
		t.Fatalf("inserted = %v", inner.inserted)
	}
}

func TestExecOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if err := ExecOne(ctx, &fakeTx{tag: 1}, "UPDATE movie_jobs SET state='failed'"); err != nil {
		t.Fatalf("one row: %v", err)
	}
	if err := ExecOne(ctx, &fakeTx{tag: 0}, "UPDATE movie_jobs SET state='failed'"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("zero rows should be not found, got %v", err)
	}
	if err := ExecOne(ctx, &fakeTx{tag: 3}, "UPDATE movie_jobs SET state='failed'"); err == nil {
		t.Fatalf("three rows should error")
	}
}

func TestOneAndMany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	scan := func(r Row) (int64, error) {
		var v int64
		err := r.Scan(&v)
		return v, err
	}

	got, err := Many(ctx, &fakeTx{rows: &fakeRows{data: [][]any{{int64(1)}, {int64(2)}}}}, scan, "SELECT id")
	if err != nil || len(got) != 2 || got[1] != 2 {
		t.Fatalf("Many = %v, %v", got, err)
	}

	if _, err := One(ctx, &fakeTx{rows: &fakeRows{}}, scan, "SELECT id"); !errors.Is(err, perr.ErrNotFound) {
		t.Fatalf("One on empty = %v", err)
	}
	if _, err := One(ctx, &fakeTx{rows: &fakeRows{data: [][]any{{int64(1)}, {int64(2)}}}}, scan, "SELECT id"); err == nil {
		t.Fatalf("One with two rows should error")
	}
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	inner := &fakeCH{}
	s := &Store{PG: &fakeTx{tag: 0}, CH: newCHAdapter(inner, *logger.Get(), false)}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(inner.execs) != 2 {
		t.Fatalf("ch statements = %d, want 2", len(inner.execs))
	}
	if !strings.HasPrefix(inner.execs[0], "CREATE TABLE IF NOT EXISTS render_events") {
		t.Fatalf("first ch statement = %q", inner.execs[0])
	}

	pg, err := statements("postgres.sql")
	if err != nil {
		t.Fatalf("statements: %v", err)
	}
	want := []string{
		"CREATE TABLE IF NOT EXISTS data_sources",
		"CREATE TABLE IF NOT EXISTS images",
		"CREATE TABLE IF NOT EXISTS movie_jobs",
		"CREATE INDEX IF NOT EXISTS movie_jobs_queue_idx",
	}
	if len(pg) != len(want) {
		t.Fatalf("pg statements = %d, want %d", len(pg), len(want))
	}
	for i, prefix := range want {
		if !strings.HasPrefix(strings.TrimSpace(pg[i]), prefix) {
			t.Fatalf("pg statement %d = %q, want prefix %q", i, pg[i], prefix)
		}
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_ENABLED", "true")
	t.Setenv("SERVICE_PGSQL_URL", "postgres://helio@localhost/helio")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "8")

	c := FromConfig(config.New(), "movies")
	if !c.PG.Enabled || c.PG.URL != "postgres://helio@localhost/helio" || c.PG.MaxConns != 8 {
		t.Fatalf("pg %+v", c.PG)
	}
	if c.CH.Enabled || c.CH.ClientTag != "movies" {
		t.Fatalf("ch %+v", c.CH)
	}
}
