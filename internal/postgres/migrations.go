package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one embedded schema change
type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations ordered by version
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		body, err := migrationFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(e.Name(), ".sql"),
			SQL:     string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrate applies every embedded migration that has not been recorded yet and
// returns the versions it applied. Each migration runs in its own transaction.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     TEXT PRIMARY KEY,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, WrapError(err, "failed to create schema_migrations")
	}

	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range migrations {
		m := m
		err := db.WithTx(ctx, func(ctx context.Context) error {
			q := db.GetQuerier(ctx)

			var exists bool
			if err := q.GetContext(ctx, &exists,
				`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version); err != nil {
				return WrapError(err, "failed to read schema_migrations")
			}
			if exists {
				return nil
			}

			if _, err := q.ExecContext(ctx, m.SQL); err != nil {
				return WrapError(err, "failed to apply migration "+m.Version)
			}
			if _, err := q.ExecContext(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
				return WrapError(err, "failed to record migration "+m.Version)
			}
			applied = append(applied, m.Version)
			db.logger.Infow("applied migration", "version", m.Version)
			return nil
		})
		if err != nil {
			return applied, err
		}
	}
	return applied, nil
}
