// Package server wires the daemon's components together.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vmunix/skipd/internal/analyze"
	"github.com/vmunix/skipd/internal/config"
	"github.com/vmunix/skipd/internal/controller"
	"github.com/vmunix/skipd/internal/detect"
	"github.com/vmunix/skipd/internal/engine"
	"github.com/vmunix/skipd/internal/events"
	"github.com/vmunix/skipd/internal/fingerprint"
	"github.com/vmunix/skipd/internal/guard"
	"github.com/vmunix/skipd/internal/marker"
	"github.com/vmunix/skipd/internal/mediaserver"
	"github.com/vmunix/skipd/internal/migrations"
	"github.com/vmunix/skipd/internal/monitor"
)

// eventRetention bounds the audit log; anything older is pruned daily.
const eventRetention = 30 * 24 * time.Hour

// Runner owns the daemon lifecycle: storage, detectors, the decision
// engine and the notification monitor.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run starts all components and blocks until the context is cancelled.
// On shutdown the notification stream closes first, the engine drains
// its in-flight work, and the fingerprint index is flushed if dirty.
func (r *Runner) Run(ctx context.Context) error {
	cfg := r.cfg

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	index := fingerprint.New(cfg.Fingerprints.Path)
	if err := index.Load(); err != nil {
		return fmt.Errorf("load fingerprint index: %w", err)
	}
	defer func() {
		if err := index.Save(); err != nil {
			r.logger.Error("flushing fingerprint index failed", "error", err)
		}
	}()

	eventLog := events.NewEventLog(db)
	bus := events.NewBus(eventLog, r.logger.With("component", "bus"))
	defer bus.Close()

	store := marker.NewStore(db)
	plex := mediaserver.NewPlexClient(cfg.Server.URL, cfg.Server.Token, r.logger)

	matcher := detect.NewChromaprintMatcher(cfg.Tools.FpcalcPath, index, 0.85, r.logger)
	heuristic := detect.NewFFmpegHeuristic(cfg.Tools.FFmpegPath, r.logger)
	recap := detect.NewSubtitleRecapDetector(
		detect.NewFFmpegSubtitleSource(cfg.Tools.FFmpegPath),
		cfg.TV.RecapPhrases, 0.93, cfg.TV.CheckIntroWindowSec, r.logger)

	pipeline := analyze.NewPipeline(store, bus,
		analyze.NewFFmpegExtractor(cfg.Tools.FFmpegPath, ""),
		matcher, heuristic, nil, recap,
		analyze.Config{
			ThemeWindowSec:    cfg.TV.CheckForThemeSec,
			CreditsTailSec:    cfg.TV.CheckCreditsSec,
			CreditsMaxSamples: 60,
			StepTimeout:       time.Duration(cfg.Workers.DetectorTimeoutSec) * time.Second,
		}, r.logger)

	ctrl := controller.New(plex, plex, plex, bus,
		cfg.General.Users, cfg.General.Clients, r.logger)

	guards := guard.NewRegistry()
	eng := engine.New(store, plex, ctrl, pipeline, guards, bus, engine.Config{
		Mode:             cfg.General.Mode,
		LookaheadSec:     cfg.General.LookaheadSec,
		IgnoreIntroItems: cfg.General.IgnoreIntroItems,
		IgnoreOutroItems: cfg.General.IgnoreOutroItems,
		TV: engine.KindPolicy{
			ProcessRecentlyAdded: cfg.TV.ProcessRecentlyAdded,
			ProcessDeleted:       cfg.TV.ProcessDeleted,
			CheckCredits:         cfg.TV.CheckCredits,
			CreditsAction:        cfg.TV.CheckCreditsAction,
			CreditsDelaySec:      cfg.TV.CreditsDelaySec,
			PlayNext:             cfg.TV.PlayNext,
		},
		Movie: engine.KindPolicy{
			ProcessRecentlyAdded: cfg.Movie.ProcessRecentlyAdded,
			ProcessDeleted:       cfg.Movie.ProcessDeleted,
			CheckCredits:         cfg.Movie.CheckCredits,
			CreditsAction:        cfg.Movie.CheckCreditsAction,
			CreditsDelaySec:      cfg.Movie.CreditsDelaySec,
		},
		PoolSize:       cfg.Workers.PoolSize,
		CommandTimeout: time.Duration(cfg.Workers.CommandTimeoutSec) * time.Second,
	}, r.logger)

	mon := monitor.New(monitor.NewWebsocketDialer(cfg.Server.URL, cfg.Server.Token, r.logger), bus, r.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mon.Run(ctx) })
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return r.pruneLoop(ctx, eventLog) })

	r.logger.Info("skipd started",
		"server", cfg.Server.URL, "mode", cfg.General.Mode, "db", cfg.Database.Path)
	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runner) pruneLoop(ctx context.Context, log *events.EventLog) error {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := log.Prune(eventRetention)
			if err != nil {
				r.logger.Error("pruning event log failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("pruned old events", "count", n)
			}
		}
	}
}
