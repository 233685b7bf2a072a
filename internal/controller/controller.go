// Package controller turns skip decisions into player commands.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmunix/skipd/internal/events"
	"github.com/vmunix/skipd/internal/mediaserver"
)

// Action is a playback command kind.
type Action string

const (
	ActionSeek Action = "seek"
	ActionStop Action = "stop"
)

// Request describes one command to deliver to a player.
type Request struct {
	SessionKey int64
	ItemID     int64
	Action     Action
	TargetSec  int64

	// RequestedAt is when the decision was made. The controller adds
	// the time spent between decision and transmission to the seek
	// target, so playback does not land behind where it already is.
	// Zero means the target is absolute.
	RequestedAt time.Time

	// PlayNext asks a stop to be followed by starting the next episode.
	PlayNext bool
}

// Controller resolves the live session behind a request and delivers
// the command, preferring a direct player connection and falling back
// to the server relay once when the direct path fails at the transport
// level.
type Controller struct {
	client         mediaserver.Client
	resolver       mediaserver.ControlResolver
	next           mediaserver.NextResolver // may be nil
	bus            *events.Bus
	allowedUsers   map[string]struct{}
	allowedClients map[string]struct{}
	now            func() time.Time
	logger         *slog.Logger
}

// New creates a controller. Empty allow lists permit everyone; a
// non-empty list makes the controller silently ignore sessions from
// anyone not on it. A nil next resolver disables play-next.
func New(client mediaserver.Client, resolver mediaserver.ControlResolver, next mediaserver.NextResolver,
	bus *events.Bus, allowedUsers, allowedClients []string, logger *slog.Logger) *Controller {
	return &Controller{
		client:         client,
		resolver:       resolver,
		next:           next,
		bus:            bus,
		allowedUsers:   toSet(allowedUsers),
		allowedClients: toSet(allowedClients),
		now:            time.Now,
		logger:         logger.With("component", "controller"),
	}
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

func (c *Controller) allowed(s mediaserver.Session) bool {
	if c.allowedUsers != nil {
		if _, ok := c.allowedUsers[strings.ToLower(s.Username)]; !ok {
			return false
		}
	}
	if c.allowedClients != nil {
		_, byTitle := c.allowedClients[strings.ToLower(s.Player.Title)]
		_, byID := c.allowedClients[strings.ToLower(s.Player.MachineID)]
		if !byTitle && !byID {
			return false
		}
	}
	return true
}

// Act executes the request against the session's player. A session that
// has already ended, one filtered out by the allow lists, or a seek with
// no usable target returns nil without touching any player.
func (c *Controller) Act(ctx context.Context, req Request) error {
	if req.Action == ActionSeek && req.TargetSec < 0 {
		c.logger.Debug("no usable seek target, ignoring",
			"session_key", req.SessionKey, "item_id", req.ItemID)
		return nil
	}

	session, err := c.findSession(ctx, req.SessionKey)
	if err != nil {
		return err
	}
	if session == nil {
		c.logger.Debug("session gone before dispatch", "session_key", req.SessionKey)
		return nil
	}
	if !c.allowed(*session) {
		c.logger.Debug("session not on allow list, ignoring",
			"session_key", req.SessionKey, "user", session.Username, "player", session.Player.Title)
		return nil
	}

	err = c.deliver(ctx, req, session.Player, false)
	if errors.Is(err, mediaserver.ErrTransport) {
		c.logger.Warn("direct control failed, retrying through server",
			"session_key", req.SessionKey, "player", session.Player.MachineID, "error", err)
		err = c.deliver(ctx, req, session.Player, true)
	}
	if err != nil {
		return fmt.Errorf("dispatching %s to session %d: %w", req.Action, req.SessionKey, err)
	}

	c.publish(ctx, req)
	return nil
}

func (c *Controller) findSession(ctx context.Context, key int64) (*mediaserver.Session, error) {
	sessions, err := c.client.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	for i := range sessions {
		if sessions[i].Key == key {
			return &sessions[i], nil
		}
	}
	return nil, nil
}

func (c *Controller) deliver(ctx context.Context, req Request, player mediaserver.Player, proxied bool) error {
	ctl, err := c.resolver.Resolve(ctx, player, proxied)
	if err != nil {
		return err
	}

	switch req.Action {
	case ActionSeek:
		target := c.compensate(req)
		c.logger.Info("seeking past skippable segment",
			"session_key", req.SessionKey, "item_id", req.ItemID,
			"target_sec", target, "proxied", proxied)
		return ctl.Seek(ctx, target*1000)
	case ActionStop:
		c.logger.Info("stopping playback",
			"session_key", req.SessionKey, "item_id", req.ItemID, "proxied", proxied)
		if err := ctl.Stop(ctx); err != nil {
			return err
		}
		if req.PlayNext && c.next != nil {
			// Starting the next episode is best effort; the stop
			// already succeeded and must not be reported as failed.
			c.playNext(ctx, ctl, req)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}
}

func (c *Controller) playNext(ctx context.Context, ctl mediaserver.PlayerControl, req Request) {
	nextID, err := c.next.NextEpisode(ctx, req.ItemID)
	if err != nil {
		if !errors.Is(err, mediaserver.ErrNotFound) {
			c.logger.Warn("resolving next episode failed",
				"session_key", req.SessionKey, "item_id", req.ItemID, "error", err)
		}
		return
	}
	if err := ctl.Play(ctx, nextID); err != nil {
		c.logger.Warn("starting next episode failed",
			"session_key", req.SessionKey, "next_item_id", nextID, "error", err)
	}
}

// compensate shifts the seek target by the decision-to-transmission
// delay so the player lands where playback would actually be.
func (c *Controller) compensate(req Request) int64 {
	if req.RequestedAt.IsZero() {
		return req.TargetSec
	}
	elapsed := c.now().Sub(req.RequestedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return req.TargetSec + int64(elapsed.Round(time.Second)/time.Second)
}

func (c *Controller) publish(ctx context.Context, req Request) {
	if c.bus == nil {
		return
	}
	e := &events.CommandDispatched{
		BaseEvent:  events.NewBaseEvent(events.EventCommandDispatched, events.EntitySession, req.SessionKey),
		SessionKey: req.SessionKey,
		ItemID:     req.ItemID,
		Action:     string(req.Action),
		TargetSec:  req.TargetSec,
	}
	if err := c.bus.Publish(ctx, e); err != nil {
		c.logger.Warn("publishing command event", "error", err)
	}
}
