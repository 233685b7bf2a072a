package events

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/skipd/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func TestEventLog_AppendAndForItem(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	e := &AnalysisCompleted{
		BaseEvent: NewBaseEvent(EventAnalysisCompleted, EntityItem, 100),
		ItemID:    100,
		JobID:     "job-1",
	}
	id, err := log.Append(e)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == 0 {
		t.Error("Append should return a non-zero id")
	}

	got, err := log.ForItem(100)
	if err != nil {
		t.Fatalf("ForItem: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].EventType != EventAnalysisCompleted {
		t.Errorf("EventType = %q, want %q", got[0].EventType, EventAnalysisCompleted)
	}
}

func TestEventLog_RecentNewestFirst(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	for i := int64(1); i <= 3; i++ {
		_, err := log.Append(&AnalysisCompleted{
			BaseEvent: NewBaseEvent(EventAnalysisCompleted, EntityItem, i),
			ItemID:    i,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := log.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].EntityID != 3 || got[1].EntityID != 2 {
		t.Errorf("Recent order = [%d, %d], want [3, 2]", got[0].EntityID, got[1].EntityID)
	}
}

func TestEventLog_Prune(t *testing.T) {
	log := NewEventLog(setupTestDB(t))

	old := &AnalysisCompleted{BaseEvent: BaseEvent{
		Type:      EventAnalysisCompleted,
		Entity:    EntityItem,
		ID:        1,
		Timestamp: time.Now().Add(-48 * time.Hour),
	}}
	fresh := &AnalysisCompleted{BaseEvent: NewBaseEvent(EventAnalysisCompleted, EntityItem, 2)}
	if _, err := log.Append(old); err != nil {
		t.Fatalf("Append old: %v", err)
	}
	if _, err := log.Append(fresh); err != nil {
		t.Fatalf("Append fresh: %v", err)
	}

	n, err := log.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d events, want 1", n)
	}
}

func TestBus_PersistsThroughLog(t *testing.T) {
	log := NewEventLog(setupTestDB(t))
	bus := NewBus(log, nil)
	defer bus.Close()

	e := &CommandDispatched{
		BaseEvent:  NewBaseEvent(EventCommandDispatched, EntitySession, 9),
		SessionKey: 9,
		ItemID:     100,
		Action:     "stop",
		TargetSec:  1400,
	}
	if err := bus.Publish(context.Background(), e); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := log.Recent(1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].EventType != EventCommandDispatched {
		t.Fatalf("event not persisted via bus: %+v", got)
	}
}

func TestBus_DoesNotPersistProgressTicks(t *testing.T) {
	log := NewEventLog(setupTestDB(t))
	bus := NewBus(log, nil)
	defer bus.Close()

	if err := bus.Publish(context.Background(), &PlaybackProgress{
		BaseEvent:  NewBaseEvent(EventPlaybackProgress, EntitySession, 9),
		SessionKey: 9,
		ItemID:     100,
		State:      "playing",
		OffsetSec:  30,
		ReceivedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := log.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("progress tick should not reach the audit log, got %+v", got)
	}
}
