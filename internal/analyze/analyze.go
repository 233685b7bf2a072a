// Package analyze runs the marker detection pipeline for one media item
// and records the result.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vmunix/skipd/internal/detect"
	"github.com/vmunix/skipd/internal/events"
	"github.com/vmunix/skipd/internal/marker"
	"github.com/vmunix/skipd/internal/mediaserver"
)

var commandContext = exec.CommandContext

// ClipExtractor produces a temporary audio clip of the first
// durationSec seconds of a media file, suitable for fingerprinting.
type ClipExtractor interface {
	Extract(ctx context.Context, src string, durationSec int64) (path string, cleanup func(), err error)
}

// Config bounds the pipeline's search windows and step budget.
type Config struct {
	ThemeWindowSec    int64         // leading seconds searched for the theme
	CreditsTailSec    int64         // trailing seconds searched for credits
	CreditsMaxSamples int           // frame samples the credits detector may take
	StepTimeout       time.Duration // per detection step
}

// DefaultConfig mirrors the windows that work for typical TV content.
func DefaultConfig() Config {
	return Config{
		ThemeWindowSec:    600,
		CreditsTailSec:    600,
		CreditsMaxSamples: 60,
		StepTimeout:       2 * time.Minute,
	}
}

// Pipeline drives the detectors over one item and upserts the outcome.
// Every step is best effort: a failing or timed-out detector degrades
// its fields to the searched-but-not-found sentinel instead of failing
// the run. Re-running the pipeline is safe; operator corrections are
// preserved by the store.
type Pipeline struct {
	store     *marker.Store
	bus       *events.Bus
	clips     ClipExtractor
	matcher   detect.AudioFingerprintMatcher
	heuristic detect.OffsetHeuristicDetector
	credits   detect.CreditsTextDetector
	recap     detect.RecapDetector
	cfg       Config
	logger    *slog.Logger
}

// NewPipeline wires the detectors together. Any detector may be nil, in
// which case its step is skipped and its fields stay unsearched.
func NewPipeline(store *marker.Store, bus *events.Bus, clips ClipExtractor,
	matcher detect.AudioFingerprintMatcher, heuristic detect.OffsetHeuristicDetector,
	credits detect.CreditsTextDetector, recap detect.RecapDetector,
	cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		bus:       bus,
		clips:     clips,
		matcher:   matcher,
		heuristic: heuristic,
		credits:   credits,
		recap:     recap,
		cfg:       cfg,
		logger:    logger.With("component", "analyze"),
	}
}

// Analyze detects markers for the item and stores them. The returned
// error covers storage failures only; detector failures are logged,
// degrade their fields and do not abort the run.
func (p *Pipeline) Analyze(ctx context.Context, item *mediaserver.MediaItem) error {
	jobID := uuid.NewString()
	logger := p.logger.With("job_id", jobID, "item_id", item.ID)
	logger.Info("analysis started", "title", item.Title, "kind", item.Kind)
	start := time.Now()

	rec := p.detect(ctx, item, logger)

	if err := p.store.Upsert(rec); err != nil {
		p.publish(ctx, &events.AnalysisFailed{
			BaseEvent: events.NewBaseEvent(events.EventAnalysisFailed, events.EntityItem, item.ID),
			ItemID:    item.ID,
			JobID:     jobID,
			Reason:    err.Error(),
		})
		return fmt.Errorf("storing markers for item %d: %w", item.ID, err)
	}

	logger.Info("analysis finished", "duration", time.Since(start))
	p.publish(ctx, &events.AnalysisCompleted{
		BaseEvent: events.NewBaseEvent(events.EventAnalysisCompleted, events.EntityItem, item.ID),
		ItemID:    item.ID,
		JobID:     jobID,
	})
	return nil
}

func (p *Pipeline) detect(ctx context.Context, item *mediaserver.MediaItem, logger *slog.Logger) *marker.Record {
	rec := &marker.Record{
		ItemID:        item.ID,
		Kind:          item.Kind,
		Title:         item.Title,
		ShowTitle:     item.ShowTitle,
		ParentID:      item.ParentID,
		GrandparentID: item.GrandparentID,
		DurationMS:    item.DurationMS,
		Location:      item.Location,
		UpdatedAt:     time.Now(),
	}

	var clipPath string
	cleanup := func() {}
	// The clip only feeds the theme matcher, which never runs for movies.
	if p.clips != nil && item.Kind == marker.KindEpisode && item.Location != "" {
		var err error
		clipPath, cleanup, err = p.clips.Extract(ctx, item.Location, p.cfg.ThemeWindowSec)
		if err != nil {
			logger.Warn("clip extraction failed", "error", err)
			clipPath = ""
		}
	}
	defer cleanup()

	if item.Kind == marker.KindEpisode {
		p.detectTheme(ctx, item, rec, clipPath, logger)
		p.detectRecap(ctx, item, rec, logger)
	}
	p.detectHeuristic(ctx, item, rec, logger)
	p.detectCredits(ctx, item, rec, logger)
	return rec
}

func (p *Pipeline) detectTheme(ctx context.Context, item *mediaserver.MediaItem, rec *marker.Record, clipPath string, logger *slog.Logger) {
	if p.matcher == nil || item.GrandparentID == nil || clipPath == "" {
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()

	start, end, ok, err := p.matcher.Match(stepCtx, clipPath, *item.GrandparentID)
	if err != nil {
		logger.Warn("theme match failed", "error", err)
		start, end, ok = marker.NotFound, marker.NotFound, false
	}
	if !ok {
		start, end = marker.NotFound, marker.NotFound
	}
	rec.ThemeStart, rec.ThemeEnd = &start, &end
}

func (p *Pipeline) detectHeuristic(ctx context.Context, item *mediaserver.MediaItem, rec *marker.Record, logger *slog.Logger) {
	if p.heuristic == nil || item.Location == "" {
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()

	_, end, ok, err := p.heuristic.Find(stepCtx, item.Location, p.cfg.ThemeWindowSec)
	if err != nil {
		logger.Warn("offset heuristic failed", "error", err)
		ok = false
	}
	if !ok {
		end = marker.NotFound
	}
	rec.HeuristicEnd = &end
}

func (p *Pipeline) detectCredits(ctx context.Context, item *mediaserver.MediaItem, rec *marker.Record, logger *slog.Logger) {
	if p.credits == nil || item.Location == "" || item.DurationMS == 0 {
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()

	offset := item.DurationMS/1000 - p.cfg.CreditsTailSec
	if offset < 0 {
		offset = 0
	}
	start, end, ok, err := p.credits.Scan(stepCtx, item.Location, offset, p.cfg.CreditsMaxSamples)
	if err != nil {
		logger.Warn("credits scan failed", "error", err)
		ok = false
	}
	if !ok {
		start, end = marker.NotFound, marker.NotFound
	}
	rec.CreditsStart, rec.CreditsEnd = &start, &end
}

func (p *Pipeline) detectRecap(ctx context.Context, item *mediaserver.MediaItem, rec *marker.Record, logger *slog.Logger) {
	if p.recap == nil || item.Location == "" {
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, p.cfg.StepTimeout)
	defer cancel()

	hasRecap, err := p.recap.Check(stepCtx, item, item.Location)
	if err != nil {
		logger.Warn("recap check failed", "error", err)
		return
	}
	rec.HasRecap = hasRecap
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, e); err != nil {
		p.logger.Warn("publishing analysis event", "error", err)
	}
}

// FFmpegExtractor produces mono 11kHz WAV clips with ffmpeg, the format
// fpcalc handles fastest.
type FFmpegExtractor struct {
	ffmpegPath string
	tmpDir     string
}

// NewFFmpegExtractor creates an extractor writing clips under tmpDir
// (os.TempDir when empty).
func NewFFmpegExtractor(ffmpegPath, tmpDir string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath, tmpDir: tmpDir}
}

func (e *FFmpegExtractor) Extract(ctx context.Context, src string, durationSec int64) (string, func(), error) {
	out := filepath.Join(e.tmpDir, fmt.Sprintf("skipd-clip-%s.wav", uuid.NewString()))
	cmd := commandContext(ctx, e.ffmpegPath,
		"-hide_banner", "-nostats", "-y",
		"-t", strconv.FormatInt(durationSec, 10),
		"-i", src,
		"-vn", "-sn",
		"-acodec", "pcm_s16le", "-ar", "11025", "-ac", "1",
		out,
	)
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		return "", func() {}, fmt.Errorf("extracting clip from %s: %w", src, err)
	}
	return out, func() { os.Remove(out) }, nil
}
