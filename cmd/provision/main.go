// Command sahaay-provision prepares the Sahaay emergency store: it creates the
// collections and their indexes, optionally seeds demo fixtures, and prints a summary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/sahaay-store/internal/clock"
	"github.com/and161185/sahaay-store/internal/config"
	"github.com/and161185/sahaay-store/internal/logger"
	"github.com/and161185/sahaay-store/internal/migrate"
	"github.com/and161185/sahaay-store/internal/provision"
	"github.com/and161185/sahaay-store/internal/repository/postgres"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "provision failed:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args, ".env")
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("dsn", cfg.Database.Redacted()),
		zap.Bool("seed", cfg.Seed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	dsn := cfg.Database.DSN()
	db, err := postgres.New(ctx, dsn)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return err
	}
	defer db.Close()

	p := provision.New(db, migrate.New(dsn), clock.System, log)

	rep, err := p.EnsureSchema(ctx)
	if err != nil {
		log.Error("ensure schema", zap.Error(err))
		return err
	}

	var seed *provision.SeedReport
	if cfg.Seed {
		sr, err := p.EnsureSeedData(ctx)
		if err != nil {
			log.Error("ensure seed data", zap.Error(err))
			return err
		}
		seed = &sr
	}

	sum, err := p.Stats(ctx)
	if err != nil {
		log.Error("stats", zap.Error(err))
		return err
	}
	if err := provision.WriteReport(os.Stdout, rep, seed, sum); err != nil {
		return err
	}
	log.Info("done",
		zap.Int("indexesCreated", rep.Count(provision.IndexCreated)),
		zap.Int("indexesExisting", rep.Count(provision.IndexExisting)),
	)
	return nil
}
