package events

import (
	"context"
	"testing"
	"time"
)

func progressEvent(sessionKey, itemID, offset int64) *PlaybackProgress {
	return &PlaybackProgress{
		BaseEvent:  NewBaseEvent(EventPlaybackProgress, EntitySession, sessionKey),
		SessionKey: sessionKey,
		ItemID:     itemID,
		State:      "playing",
		OffsetSec:  offset,
		ReceivedAt: time.Now(),
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	ch := bus.Subscribe(EventPlaybackProgress, 10)

	if err := bus.Publish(context.Background(), progressEvent(1, 100, 42)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case e := <-ch:
		pe, ok := e.(*PlaybackProgress)
		if !ok {
			t.Fatalf("got %T, want *PlaybackProgress", e)
		}
		if pe.OffsetSec != 42 {
			t.Errorf("OffsetSec = %d, want 42", pe.OffsetSec)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	progressCh := bus.Subscribe(EventPlaybackProgress, 10)
	addedCh := bus.Subscribe(EventLibraryItemAdded, 10)

	added := &LibraryItemAdded{
		BaseEvent: NewBaseEvent(EventLibraryItemAdded, EntityItem, 100),
		ItemID:    100,
		Kind:      "episode",
	}
	if err := bus.Publish(context.Background(), added); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-addedCh:
	case <-time.After(time.Second):
		t.Fatal("library subscriber did not receive event")
	}

	select {
	case e := <-progressCh:
		t.Fatalf("progress subscriber received unrelated event %T", e)
	default:
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	all := bus.SubscribeAll(10)

	_ = bus.Publish(context.Background(), progressEvent(1, 100, 10))
	_ = bus.Publish(context.Background(), &LibraryItemRemoved{
		BaseEvent: NewBaseEvent(EventLibraryItemRemoved, EntityItem, 100),
		ItemID:    100,
	})

	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatalf("all-subscriber received %d events, want 2", i)
		}
	}
}

func TestBus_FullSubscriberDropsEvent(t *testing.T) {
	bus := NewBus(nil, nil)
	defer bus.Close()

	ch := bus.Subscribe(EventPlaybackProgress, 1)

	// Second publish must not block even though the buffer is full.
	done := make(chan struct{})
	go func() {
		_ = bus.Publish(context.Background(), progressEvent(1, 100, 1))
		_ = bus.Publish(context.Background(), progressEvent(1, 100, 2))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	<-ch
	select {
	case e := <-ch:
		t.Fatalf("expected second event dropped, got %v", e)
	default:
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(nil, nil)
	ch := bus.Subscribe(EventPlaybackProgress, 1)

	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}
	if err := bus.Publish(context.Background(), progressEvent(1, 100, 1)); err != nil {
		t.Errorf("Publish after close should be a no-op, got %v", err)
	}
}
