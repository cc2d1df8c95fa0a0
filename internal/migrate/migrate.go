// Package migrate applies embedded SQL migrations that create the store's collections.
package migrate

import (
	"context"
	"database/sql"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"

	"github.com/and161185/sahaay-store/migrations"
)

// Runner applies migrations against a DSN.
type Runner struct {
	dsn  string
	fsys fs.FS
}

// New returns a Runner over the embedded migrations.
func New(dsn string) *Runner { return &Runner{dsn: dsn, fsys: migrations.FS} }

// Up runs all pending migrations and returns the versions applied by this call.
// A Postgres session lock keeps concurrent runners from racing on the version table.
func (r *Runner) Up(ctx context.Context) ([]int64, error) {
	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, r.fsys, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, err
	}
	applied := make([]int64, 0, len(results))
	for _, res := range results {
		if res.Source != nil {
			applied = append(applied, res.Source.Version)
		}
	}
	return applied, nil
}
