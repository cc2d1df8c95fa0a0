// Package provision idempotently prepares the emergency store: collections first,
// then their secondary indexes, then (optionally) demo fixtures.
package provision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/and161185/sahaay-store/internal/clock"
	"github.com/and161185/sahaay-store/internal/errs"
	"github.com/and161185/sahaay-store/internal/repository/postgres"
	"github.com/and161185/sahaay-store/internal/schema"
)

// schemaLockKey is the advisory lock taken while indexes are reconciled.
const schemaLockKey int64 = 0x5341_4841_4159

// Migrator creates the collections.
type Migrator interface {
	// Up applies pending migrations and returns the versions it applied.
	Up(ctx context.Context) ([]int64, error)
}

// Provisioner reconciles a store with the schema catalog.
type Provisioner struct {
	db       *postgres.DB
	migrator Migrator
	clock    clock.Clock
	log      *zap.Logger
	catalog  []schema.Collection
}

// New constructs a Provisioner over an explicit store handle.
func New(db *postgres.DB, m Migrator, c clock.Clock, log *zap.Logger) *Provisioner {
	if c == nil {
		c = clock.System
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Provisioner{db: db, migrator: m, clock: c, log: log, catalog: schema.Catalog()}
}

// IndexOutcome tells what EnsureSchema did with one index.
type IndexOutcome string

const (
	IndexCreated  IndexOutcome = "created"
	IndexExisting IndexOutcome = "existing"
)

// IndexReport is the result for one catalog index.
type IndexReport struct {
	Index   schema.Index
	Outcome IndexOutcome
}

// CollectionReport is the result for one collection.
type CollectionReport struct {
	Name    string
	Indexes []IndexReport
}

// Report summarises an EnsureSchema run.
type Report struct {
	Migrations  []int64
	Collections []CollectionReport
}

// Count returns how many indexes ended with the given outcome.
func (r Report) Count(o IndexOutcome) int {
	n := 0
	for _, c := range r.Collections {
		for _, ix := range c.Indexes {
			if ix.Outcome == o {
				n++
			}
		}
	}
	return n
}

// EnsureSchema makes sure every collection and index of the catalog exists.
// It is safe to run repeatedly and concurrently; an index that exists under a
// catalog name with a different definition aborts the run with errs.ErrIndexConflict.
func (p *Provisioner) EnsureSchema(ctx context.Context) (Report, error) {
	if err := p.db.Pool.Ping(ctx); err != nil {
		return Report{}, fmt.Errorf("%w: %w", errs.ErrUnavailable, err)
	}

	versions, err := p.migrator.Up(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("migrate collections: %w", err)
	}
	p.log.Info("collections migrated", zap.Int64s("applied", versions))

	for _, c := range p.catalog {
		if err := p.checkCollection(ctx, c.Name); err != nil {
			return Report{}, err
		}
		p.log.Info("collection ready", zap.String("table", c.Name))
	}

	rep := Report{Migrations: versions}
	err = p.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return fmt.Errorf("acquire schema lock: %w", err)
		}
		rep.Collections = rep.Collections[:0]
		for _, c := range p.catalog {
			cr := CollectionReport{Name: c.Name}
			for _, want := range c.Indexes {
				outcome, err := ensureIndex(ctx, tx, want)
				if err != nil {
					return err
				}
				p.log.Info("index ready",
					zap.String("table", want.Table),
					zap.String("index", want.Name),
					zap.String("outcome", string(outcome)),
				)
				cr.Indexes = append(cr.Indexes, IndexReport{Index: want, Outcome: outcome})
			}
			rep.Collections = append(rep.Collections, cr)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (p *Provisioner) checkCollection(ctx context.Context, name string) error {
	var exists bool
	if err := p.db.Pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists); err != nil {
		return fmt.Errorf("inspect collection %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("%w: collection %s missing after migrations", errs.ErrSchemaDrift, name)
	}
	return nil
}
