// Package monitor follows the media server's notification stream and
// republishes playback and library changes on the internal event bus.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vmunix/skipd/internal/events"
)

// librarySource is the notification identifier for library items; other
// sources (plugins, butler tasks) are noise for us.
const librarySource = "com.plexapp.plugins.library"

// Timeline states the server reports for library entries.
const (
	timelineStateReady   = 5
	timelineStateDeleted = 9
)

// Metadata types carried on timeline entries.
const (
	metadataTypeMovie   = 1
	metadataTypeEpisode = 4
)

// kindFor maps a timeline metadata type to the marker kind name. Other
// types (shows, seasons, tracks) have no markers and map to "".
func kindFor(metadataType int) string {
	switch metadataType {
	case metadataTypeMovie:
		return "movie"
	case metadataTypeEpisode:
		return "episode"
	default:
		return ""
	}
}

// Notification is one decoded message from the server's stream.
type Notification struct {
	Type     string
	Playing  []PlayingEntry
	Timeline []TimelineEntry
}

// PlayingEntry describes a playback state change.
type PlayingEntry struct {
	SessionKey int64
	ItemID     int64
	State      string
	OffsetMS   int64
}

// TimelineEntry describes a library change.
type TimelineEntry struct {
	ItemID     int64
	Type       int // server metadata type: 1 movie, 4 episode
	Identifier string
	State      int
	Title      string
}

// Feed is one open notification stream.
type Feed interface {
	// Next blocks for the next notification. Returns an error when the
	// stream breaks; the monitor reconnects.
	Next() (*Notification, error)
	Close() error
}

// Dialer opens notification streams.
type Dialer interface {
	Dial(ctx context.Context) (Feed, error)
}

// Monitor keeps a notification stream open and translates its messages
// into bus events. Connection loss is handled with capped exponential
// backoff; the monitor only stops when its context is cancelled.
type Monitor struct {
	dialer Dialer
	bus    *events.Bus
	logger *slog.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// New creates a monitor publishing to bus.
func New(dialer Dialer, bus *events.Bus, logger *slog.Logger) *Monitor {
	return &Monitor{
		dialer:         dialer,
		bus:            bus,
		logger:         logger.With("component", "monitor"),
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
}

// Run connects and pumps notifications until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	backoff := m.initialBackoff
	for {
		feed, err := m.dialer.Dial(ctx)
		if err != nil {
			m.logger.Warn("connecting to notification stream failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, m.maxBackoff)
			continue
		}

		m.logger.Info("notification stream connected")
		backoff = m.initialBackoff
		err = m.pump(ctx, feed)
		_ = feed.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warn("notification stream broke", "error", err)
		}
	}
}

func (m *Monitor) pump(ctx context.Context, feed Feed) error {
	// Next has no context; close the feed on cancellation to unblock it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = feed.Close()
		case <-done:
		}
	}()

	for {
		n, err := feed.Next()
		if err != nil {
			return err
		}
		m.handle(ctx, n)
	}
}

func (m *Monitor) handle(ctx context.Context, n *Notification) {
	switch n.Type {
	case "playing":
		for _, p := range n.Playing {
			m.publish(ctx, &events.PlaybackProgress{
				BaseEvent:  events.NewBaseEvent(events.EventPlaybackProgress, events.EntitySession, p.SessionKey),
				SessionKey: p.SessionKey,
				ItemID:     p.ItemID,
				State:      p.State,
				OffsetSec:  p.OffsetMS / 1000,
				ReceivedAt: time.Now(),
			})
		}
	case "timeline":
		for _, t := range n.Timeline {
			if t.Identifier != librarySource {
				continue
			}
			switch t.State {
			case timelineStateReady:
				m.publish(ctx, &events.LibraryItemAdded{
					BaseEvent: events.NewBaseEvent(events.EventLibraryItemAdded, events.EntityItem, t.ItemID),
					ItemID:    t.ItemID,
					Kind:      kindFor(t.Type),
					Title:     t.Title,
				})
			case timelineStateDeleted:
				m.publish(ctx, &events.LibraryItemRemoved{
					BaseEvent: events.NewBaseEvent(events.EventLibraryItemRemoved, events.EntityItem, t.ItemID),
					ItemID:    t.ItemID,
					Kind:      kindFor(t.Type),
					Title:     t.Title,
				})
			}
		}
	}
}

func (m *Monitor) publish(ctx context.Context, e events.Event) {
	if err := m.bus.Publish(ctx, e); err != nil {
		m.logger.Warn("publishing notification event", "error", err)
	}
}
