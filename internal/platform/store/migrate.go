package store

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// statements splits an embedded schema file on semicolons, dropping empties
func statements(name string) ([]string, error) {
	b, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range strings.Split(string(b), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// MigratePG applies the idempotent catalog and movie job schema in one transaction
func MigratePG(ctx context.Context, db TxRunner) error {
	stmts, err := statements("postgres.sql")
	if err != nil {
		return err
	}
	return db.Tx(ctx, func(q RowQuerier) error {
		for i, s := range stmts {
			if _, err := q.Exec(ctx, s); err != nil {
				return fmt.Errorf("pg migrate statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// MigrateCH creates the telemetry tables when missing
func MigrateCH(ctx context.Context, c Clickhouse) error {
	stmts, err := statements("clickhouse.sql")
	if err != nil {
		return err
	}
	for i, s := range stmts {
		if err := c.Exec(ctx, s); err != nil {
			return fmt.Errorf("ch migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Migrate applies the schema of every enabled backend
func (s *Store) Migrate(ctx context.Context) error {
	if s.PG != nil {
		if err := MigratePG(ctx, s.PG); err != nil {
			return err
		}
	}
	if s.CH != nil {
		if err := MigrateCH(ctx, s.CH); err != nil {
			return err
		}
	}
	return nil
}
