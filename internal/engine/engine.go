// Package engine makes the skip decisions. It watches playback progress
// events, triggers analysis for unknown items and dispatches seek/stop
// commands exactly once per session segment.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/skipd/internal/controller"
	"github.com/vmunix/skipd/internal/events"
	"github.com/vmunix/skipd/internal/guard"
	"github.com/vmunix/skipd/internal/marker"
	"github.com/vmunix/skipd/internal/mediaserver"
)

// Mode selects the intro policy.
const (
	ModeSkipOnlyTheme = "skip_only_theme"
	ModeSkipIfRecap   = "skip_if_recap"
)

// Credits actions.
const (
	CreditsActionNone = "none"
	CreditsActionSeek = "seek"
	CreditsActionStop = "stop"
)

// Sessions that vanish without a stopped notification (player crash,
// feed reconnect) are forgotten after this long without a progress tick,
// releasing their guards.
const (
	sessionTTL           = 30 * time.Minute
	sessionPruneInterval = 5 * time.Minute
)

// KindPolicy is the per-content-kind behavior toggles.
type KindPolicy struct {
	ProcessRecentlyAdded bool
	ProcessDeleted       bool
	CheckCredits         bool
	CreditsAction        string
	CreditsDelaySec      int64
	PlayNext             bool
}

// Config tunes the decision engine.
type Config struct {
	Mode             string
	LookaheadSec     int64
	IgnoreIntroItems []int64
	IgnoreOutroItems []int64
	TV               KindPolicy
	Movie            KindPolicy
	PoolSize         int
	CommandTimeout   time.Duration
}

// Analyzer runs the detection pipeline for one item.
type Analyzer interface {
	Analyze(ctx context.Context, item *mediaserver.MediaItem) error
}

// Dispatcher delivers a command to a player.
type Dispatcher interface {
	Act(ctx context.Context, req controller.Request) error
}

// Engine consumes bus events and turns marker knowledge into player
// commands. All decisions happen on one goroutine; analysis and command
// delivery run in the background so a slow detector or player never
// stalls the event loop.
type Engine struct {
	store      *marker.Store
	client     mediaserver.Client
	dispatcher Dispatcher
	analyzer   Analyzer
	guards     *guard.Registry
	bus        *events.Bus
	cfg        Config
	logger     *slog.Logger

	ignoreIntro map[int64]struct{}
	ignoreOutro map[int64]struct{}

	// sessions maps session key to the item it was last seen playing.
	sessions map[int64]sessionState

	pool     *errgroup.Group
	poolCtx  context.Context
	dispatch sync.WaitGroup
}

// New creates an engine.
func New(store *marker.Store, client mediaserver.Client,
	dispatcher Dispatcher, analyzer Analyzer, guards *guard.Registry,
	bus *events.Bus, cfg Config, logger *slog.Logger) *Engine {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSkipOnlyTheme
	}
	return &Engine{
		store:       store,
		client:      client,
		dispatcher:  dispatcher,
		analyzer:    analyzer,
		guards:      guards,
		bus:         bus,
		cfg:         cfg,
		logger:      logger.With("component", "engine"),
		ignoreIntro: toIDSet(cfg.IgnoreIntroItems),
		ignoreOutro: toIDSet(cfg.IgnoreOutroItems),
		sessions:    make(map[int64]sessionState),
	}
}

type sessionState struct {
	itemID   int64
	lastSeen time.Time
}

func toIDSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Run processes events until ctx is cancelled, then waits for in-flight
// analyses and dispatches to finish.
func (e *Engine) Run(ctx context.Context) error {
	e.pool, e.poolCtx = errgroup.WithContext(context.WithoutCancel(ctx))
	e.pool.SetLimit(e.cfg.PoolSize)

	progress := e.bus.Subscribe(events.EventPlaybackProgress, 256)
	added := e.bus.Subscribe(events.EventLibraryItemAdded, 64)
	removed := e.bus.Subscribe(events.EventLibraryItemRemoved, 64)
	defer func() {
		e.bus.Unsubscribe(progress)
		e.bus.Unsubscribe(added)
		e.bus.Unsubscribe(removed)
	}()

	prune := time.NewTicker(sessionPruneInterval)
	defer prune.Stop()

	e.logger.Info("decision engine started", "mode", e.cfg.Mode, "lookahead_sec", e.cfg.LookaheadSec)
	for {
		select {
		case <-ctx.Done():
			e.dispatch.Wait()
			err := e.pool.Wait()
			e.logger.Info("decision engine stopped")
			if err != nil {
				return err
			}
			return ctx.Err()
		case ev, ok := <-progress:
			if !ok {
				return nil
			}
			if p, ok := ev.(*events.PlaybackProgress); ok {
				e.handleProgress(ctx, p)
			}
		case ev, ok := <-added:
			if !ok {
				return nil
			}
			if a, ok := ev.(*events.LibraryItemAdded); ok {
				e.handleAdded(a)
			}
		case ev, ok := <-removed:
			if !ok {
				return nil
			}
			if r, ok := ev.(*events.LibraryItemRemoved); ok {
				e.handleRemoved(r)
			}
		case <-prune.C:
			e.pruneSessions(time.Now())
		}
	}
}

// pruneSessions forgets sessions with no progress tick for sessionTTL
// and releases their guards. Runs on the event loop.
func (e *Engine) pruneSessions(now time.Time) {
	for key, s := range e.sessions {
		if now.Sub(s.lastSeen) >= sessionTTL {
			e.guards.ClearSession(key)
			delete(e.sessions, key)
			e.logger.Debug("pruned stale session", "session_key", key, "item_id", s.itemID)
		}
	}
}

func (e *Engine) policyFor(kind marker.Kind) KindPolicy {
	if kind == marker.KindMovie {
		return e.cfg.Movie
	}
	return e.cfg.TV
}

func (e *Engine) handleProgress(ctx context.Context, p *events.PlaybackProgress) {
	if s, seen := e.sessions[p.SessionKey]; seen && s.itemID != p.ItemID {
		// Session moved to a new item; its guards belong to the old one.
		e.guards.ClearSession(p.SessionKey)
	}
	e.sessions[p.SessionKey] = sessionState{itemID: p.ItemID, lastSeen: time.Now()}

	if p.State == "stopped" {
		e.guards.ClearSession(p.SessionKey)
		delete(e.sessions, p.SessionKey)
		return
	}
	if p.State != "playing" {
		return
	}

	rec, err := e.store.Get(p.ItemID)
	if errors.Is(err, marker.ErrNotFound) {
		e.enqueueAnalysis(p.ItemID)
		return
	}
	if err != nil {
		e.logger.Error("marker lookup failed", "item_id", p.ItemID, "error", err)
		return
	}

	if e.evalCredits(p, rec) {
		return
	}
	switch e.cfg.Mode {
	case ModeSkipIfRecap:
		e.evalRecap(p, rec)
	default:
		e.evalTheme(p, rec)
	}
}

// evalCredits fires the configured credits action once the session plays
// into the credits window (with lookahead). Returns true when an action
// was dispatched so intro policies are not evaluated on the same tick.
func (e *Engine) evalCredits(p *events.PlaybackProgress, rec *marker.Record) bool {
	policy := e.policyFor(rec.Kind)
	if !policy.CheckCredits || policy.CreditsAction == CreditsActionNone || policy.CreditsAction == "" {
		return false
	}
	if _, ignored := e.ignoreOutro[rec.ItemID]; ignored {
		return false
	}
	start, _, ok := rec.CreditsWindow()
	if !ok {
		return false
	}
	trigger := start + policy.CreditsDelaySec
	if p.OffsetSec+e.cfg.LookaheadSec < trigger {
		return false
	}
	if !e.guards.TryAcquireCredits(p.SessionKey) {
		return false
	}

	req := controller.Request{
		SessionKey:  p.SessionKey,
		ItemID:      p.ItemID,
		RequestedAt: p.ReceivedAt,
	}
	switch policy.CreditsAction {
	case CreditsActionStop:
		req.Action = controller.ActionStop
		req.PlayNext = policy.PlayNext && rec.Kind == marker.KindEpisode
	case CreditsActionSeek:
		// Seeking to the very end makes players show their own
		// up-next countdown instead of rolling full credits.
		req.Action = controller.ActionSeek
		req.TargetSec = rec.DurationSec()
		req.RequestedAt = time.Time{} // absolute target, no compensation
	default:
		e.guards.ReleaseCredits(p.SessionKey)
		return false
	}

	e.send(req, func() { e.guards.ReleaseCredits(p.SessionKey) })
	return true
}

// evalTheme seeks past the title sequence while the session is strictly
// inside the theme window.
func (e *Engine) evalTheme(p *events.PlaybackProgress, rec *marker.Record) {
	if _, ignored := e.ignoreIntro[rec.ItemID]; ignored {
		return
	}
	start, end, ok := rec.ThemeWindow()
	if !ok {
		return
	}
	at := p.OffsetSec + e.cfg.LookaheadSec
	if at <= start || at >= end {
		return
	}
	if !e.guards.TryAcquireJump(p.SessionKey) {
		return
	}
	e.send(controller.Request{
		SessionKey:  p.SessionKey,
		ItemID:      p.ItemID,
		Action:      controller.ActionSeek,
		TargetSec:   end,
		RequestedAt: p.ReceivedAt,
	}, func() { e.guards.ReleaseJump(p.SessionKey) })
}

// evalRecap jumps straight to the reconciled resume point, but only for
// episodes known to open with a recap.
func (e *Engine) evalRecap(p *events.PlaybackProgress, rec *marker.Record) {
	if _, ignored := e.ignoreIntro[rec.ItemID]; ignored {
		return
	}
	if rec.Kind != marker.KindEpisode || rec.HasRecap == nil || !*rec.HasRecap {
		return
	}
	best := rec.BestTime()
	if best == marker.NotFound {
		return
	}
	if p.OffsetSec+e.cfg.LookaheadSec >= best {
		return
	}
	if !e.guards.TryAcquireJump(p.SessionKey) {
		return
	}
	e.send(controller.Request{
		SessionKey:  p.SessionKey,
		ItemID:      p.ItemID,
		Action:      controller.ActionSeek,
		TargetSec:   best,
		RequestedAt: p.ReceivedAt,
	}, func() { e.guards.ReleaseJump(p.SessionKey) })
}

// send delivers the request off the event loop. onFail releases the
// guard so a later tick can retry.
func (e *Engine) send(req controller.Request, onFail func()) {
	e.dispatch.Add(1)
	go func() {
		defer e.dispatch.Done()
		ctx, cancel := context.WithTimeout(e.poolCtx, e.cfg.CommandTimeout)
		defer cancel()
		if err := e.dispatcher.Act(ctx, req); err != nil {
			e.logger.Error("command dispatch failed",
				"session_key", req.SessionKey, "action", req.Action, "error", err)
			onFail()
		}
	}()
}

// enqueueAnalysis schedules a pipeline run for an item with no marker
// record. TryGo never blocks; when the pool is saturated the item is
// simply retried on a later tick.
func (e *Engine) enqueueAnalysis(itemID int64) {
	if e.analyzer == nil {
		return
	}
	if !e.guards.TryAcquireAnalysis(itemID) {
		return
	}
	started := e.pool.TryGo(func() error {
		defer e.guards.ReleaseAnalysis(itemID)
		e.runAnalysis(itemID, false)
		return nil
	})
	if !started {
		e.guards.ReleaseAnalysis(itemID)
		e.logger.Warn("analysis pool saturated, deferring item", "item_id", itemID)
	}
}

func (e *Engine) runAnalysis(itemID int64, gateRecentlyAdded bool) {
	item, err := e.client.FetchItem(e.poolCtx, itemID)
	if err != nil {
		e.logger.Error("fetching item for analysis failed", "item_id", itemID, "error", err)
		return
	}
	if gateRecentlyAdded && !e.policyFor(item.Kind).ProcessRecentlyAdded {
		e.logger.Debug("recently added processing disabled for kind", "item_id", itemID, "kind", item.Kind)
		return
	}
	if err := e.analyzer.Analyze(e.poolCtx, item); err != nil {
		e.logger.Error("analysis failed", "item_id", itemID, "error", err)
	}
}

func (e *Engine) handleAdded(a *events.LibraryItemAdded) {
	if e.analyzer == nil {
		return
	}
	if !e.guards.TryAcquireAnalysis(a.ItemID) {
		return
	}
	started := e.pool.TryGo(func() error {
		defer e.guards.ReleaseAnalysis(a.ItemID)
		e.runAnalysis(a.ItemID, true)
		return nil
	})
	if !started {
		e.guards.ReleaseAnalysis(a.ItemID)
		e.logger.Warn("analysis pool saturated, skipping recently added item", "item_id", a.ItemID)
	}
}

func (e *Engine) handleRemoved(r *events.LibraryItemRemoved) {
	rec, err := e.store.Get(r.ItemID)
	if errors.Is(err, marker.ErrNotFound) {
		return
	}
	if err != nil {
		e.logger.Error("marker lookup failed", "item_id", r.ItemID, "error", err)
		return
	}
	if !e.policyFor(rec.Kind).ProcessDeleted {
		return
	}
	if err := e.store.Delete(r.ItemID); err != nil {
		e.logger.Error("deleting markers failed", "item_id", r.ItemID, "error", err)
		return
	}
	e.logger.Info("markers removed with library item", "item_id", r.ItemID, "kind", rec.Kind)
}
