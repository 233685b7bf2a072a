package analyze

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/skipd/internal/events"
	"github.com/vmunix/skipd/internal/marker"
	"github.com/vmunix/skipd/internal/mediaserver"
	"github.com/vmunix/skipd/internal/migrations"
)

func setupStore(t *testing.T) *marker.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return marker.NewStore(db)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v int64) *int64 { return &v }

type stubExtractor struct {
	err   error
	calls *int
}

func (s stubExtractor) Extract(context.Context, string, int64) (string, func(), error) {
	if s.calls != nil {
		*s.calls++
	}
	if s.err != nil {
		return "", func() {}, s.err
	}
	return "/tmp/clip.wav", func() {}, nil
}

type stubMatcher struct {
	start, end int64
	ok         bool
	err        error
}

func (s stubMatcher) Match(context.Context, string, int64) (int64, int64, bool, error) {
	return s.start, s.end, s.ok, s.err
}

type stubHeuristic struct {
	end int64
	ok  bool
	err error
}

func (s stubHeuristic) Find(context.Context, string, int64) (int64, int64, bool, error) {
	return 0, s.end, s.ok, s.err
}

type stubCredits struct {
	start, end int64
	ok         bool
	err        error
}

func (s stubCredits) Scan(context.Context, string, int64, int) (int64, int64, bool, error) {
	return s.start, s.end, s.ok, s.err
}

type stubRecap struct {
	result *bool
	err    error
}

func (s stubRecap) Check(context.Context, *mediaserver.MediaItem, string) (*bool, error) {
	return s.result, s.err
}

func testItem() *mediaserver.MediaItem {
	show := int64(80)
	season := int64(90)
	return &mediaserver.MediaItem{
		ID:            100,
		Kind:          marker.KindEpisode,
		Title:         "Pilot",
		ShowTitle:     "Dexter",
		ParentID:      &season,
		GrandparentID: &show,
		DurationMS:    3370000,
		Location:      "/media/dexter/s01e01.mkv",
	}
}

func TestPipeline_FullDetection(t *testing.T) {
	store := setupStore(t)
	yes := true
	p := NewPipeline(store, nil, stubExtractor{},
		stubMatcher{start: 35, end: 120, ok: true},
		stubHeuristic{end: 118, ok: true},
		stubCredits{start: 3100, end: 3360, ok: true},
		stubRecap{result: &yes},
		DefaultConfig(), testLogger())

	if err := p.Analyze(context.Background(), testItem()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	rec, err := store.Get(100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ThemeStart == nil || *rec.ThemeStart != 35 || *rec.ThemeEnd != 120 {
		t.Errorf("theme = %v..%v", rec.ThemeStart, rec.ThemeEnd)
	}
	if rec.HeuristicEnd == nil || *rec.HeuristicEnd != 118 {
		t.Errorf("heuristic end = %v", rec.HeuristicEnd)
	}
	if rec.CreditsStart == nil || *rec.CreditsStart != 3100 {
		t.Errorf("credits start = %v", rec.CreditsStart)
	}
	if rec.HasRecap == nil || !*rec.HasRecap {
		t.Errorf("has recap = %v", rec.HasRecap)
	}
}

func TestPipeline_DetectorFailureDegradesToNotFound(t *testing.T) {
	store := setupStore(t)
	boom := errors.New("fpcalc exploded")
	p := NewPipeline(store, nil, stubExtractor{},
		stubMatcher{err: boom},
		stubHeuristic{err: boom},
		stubCredits{ok: false},
		stubRecap{err: boom},
		DefaultConfig(), testLogger())

	if err := p.Analyze(context.Background(), testItem()); err != nil {
		t.Fatalf("Analyze should not fail on detector errors: %v", err)
	}

	rec, err := store.Get(100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ThemeEnd == nil || *rec.ThemeEnd != marker.NotFound {
		t.Errorf("theme end = %v, want NotFound sentinel", rec.ThemeEnd)
	}
	if rec.HeuristicEnd == nil || *rec.HeuristicEnd != marker.NotFound {
		t.Errorf("heuristic end = %v, want NotFound sentinel", rec.HeuristicEnd)
	}
	if rec.CreditsStart == nil || *rec.CreditsStart != marker.NotFound {
		t.Errorf("credits start = %v, want NotFound sentinel", rec.CreditsStart)
	}
	if rec.HasRecap != nil {
		t.Errorf("has recap = %v, want nil when the check cannot run", *rec.HasRecap)
	}
	if rec.BestTime() != marker.NotFound {
		t.Errorf("BestTime = %d, want NotFound", rec.BestTime())
	}
}

func TestPipeline_ClipExtractionFailureSkipsThemeOnly(t *testing.T) {
	store := setupStore(t)
	p := NewPipeline(store, nil, stubExtractor{err: errors.New("disk full")},
		stubMatcher{start: 35, end: 120, ok: true},
		stubHeuristic{end: 118, ok: true},
		nil, nil,
		DefaultConfig(), testLogger())

	if err := p.Analyze(context.Background(), testItem()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	rec, err := store.Get(100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ThemeEnd != nil {
		t.Errorf("theme end = %v, want nil when the clip never existed", *rec.ThemeEnd)
	}
	if rec.HeuristicEnd == nil || *rec.HeuristicEnd != 118 {
		t.Errorf("heuristic end = %v, heuristic runs on the original file", rec.HeuristicEnd)
	}
}

func TestPipeline_RerunPreservesCorrections(t *testing.T) {
	store := setupStore(t)
	p := NewPipeline(store, nil, stubExtractor{},
		stubMatcher{start: 35, end: 120, ok: true},
		stubHeuristic{end: 118, ok: true},
		nil, nil,
		DefaultConfig(), testLogger())

	if err := p.Analyze(context.Background(), testItem()); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	if err := store.SetCorrected(100, marker.FieldThemeEnd, 125); err != nil {
		t.Fatalf("SetCorrected: %v", err)
	}
	if err := p.Analyze(context.Background(), testItem()); err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	rec, err := store.Get(100)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.CorrectThemeEnd == nil || *rec.CorrectThemeEnd != 125 {
		t.Errorf("correction lost on re-analysis: %v", rec.CorrectThemeEnd)
	}
	if rec.BestTime() != 125 {
		t.Errorf("BestTime = %d, want the corrected 125", rec.BestTime())
	}
}

func TestPipeline_MovieSkipsThemeAndRecap(t *testing.T) {
	store := setupStore(t)
	extractions := 0
	p := NewPipeline(store, nil, stubExtractor{calls: &extractions},
		stubMatcher{start: 35, end: 120, ok: true},
		stubHeuristic{end: 300, ok: true},
		stubCredits{start: 6000, end: 6500, ok: true},
		stubRecap{result: ptr2(true)},
		DefaultConfig(), testLogger())

	movie := &mediaserver.MediaItem{
		ID:         200,
		Kind:       marker.KindMovie,
		Title:      "Heat",
		DurationMS: 10200000,
		Location:   "/media/heat.mkv",
	}
	if err := p.Analyze(context.Background(), movie); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	rec, err := store.Get(200)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ThemeStart != nil || rec.HasRecap != nil {
		t.Errorf("movies must not get theme/recap fields: %v %v", rec.ThemeStart, rec.HasRecap)
	}
	if rec.CreditsStart == nil || *rec.CreditsStart != 6000 {
		t.Errorf("credits start = %v", rec.CreditsStart)
	}
	if extractions != 0 {
		t.Errorf("clip extracted %d times for a movie, nothing consumes it", extractions)
	}
}

func TestPipeline_PublishesCompletionEvent(t *testing.T) {
	store := setupStore(t)
	bus := events.NewBus(nil, testLogger())
	defer bus.Close()

	ch := bus.Subscribe(events.EventAnalysisCompleted, 4)
	p := NewPipeline(store, bus, stubExtractor{},
		nil, stubHeuristic{end: 118, ok: true}, nil, nil,
		DefaultConfig(), testLogger())

	if err := p.Analyze(context.Background(), testItem()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	select {
	case e := <-ch:
		done, ok := e.(*events.AnalysisCompleted)
		if !ok || done.ItemID != 100 {
			t.Errorf("unexpected event %#v", e)
		}
		if done.JobID == "" {
			t.Error("completion event should carry the job id")
		}
	case <-time.After(time.Second):
		t.Fatal("no completion event published")
	}
}

func ptr2(b bool) *bool { return &b }
