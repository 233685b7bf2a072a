// Package mediaserver defines the media server and remote player
// surfaces the daemon talks to, plus the Plex implementation.
package mediaserver

import (
	"context"
	"errors"

	"github.com/vmunix/skipd/internal/marker"
)

// ErrTransport marks network-level failures talking to a player or the
// server. The controller falls back to the server-proxied control path
// when a direct connection fails with this.
var ErrTransport = errors.New("transport failure")

// ErrNotFound indicates the server has no such item, session or player.
var ErrNotFound = errors.New("not found")

// MediaItem is an episode or movie as the server describes it. The
// parent/grandparent ids are only set for episodes.
type MediaItem struct {
	ID            int64
	Kind          marker.Kind
	Title         string
	ShowTitle     string
	ParentID      *int64 // season
	GrandparentID *int64 // show
	DurationMS    int64
	Location      string
}

// Session is a live playback session on the server.
type Session struct {
	Key      int64
	ItemID   int64
	State    string
	OffsetMS int64
	Username string
	Player   Player
}

// Player identifies a controllable remote client.
type Player struct {
	MachineID string
	Title     string
	Address   string
	Port      int
	Product   string
	Local     bool
}

// Client is the read side of the media server.
type Client interface {
	// FetchItem returns the item's metadata. Returns ErrNotFound when
	// the id is unknown.
	FetchItem(ctx context.Context, id int64) (*MediaItem, error)

	// Sessions returns the sessions currently playing.
	Sessions(ctx context.Context) ([]Session, error)

	// Players returns the controllable clients the server knows about.
	Players(ctx context.Context) ([]Player, error)
}

// PlayerControl issues playback commands to one player.
type PlayerControl interface {
	// Seek moves playback to an absolute offset in milliseconds.
	Seek(ctx context.Context, offsetMS int64) error

	// Stop halts playback.
	Stop(ctx context.Context) error

	// Play starts playback of a library item from the beginning.
	Play(ctx context.Context, itemID int64) error
}

// ControlResolver turns a player into a control channel. With proxied
// set, commands are relayed through the server instead of a direct
// connection to the player - some clients are unreachable directly.
type ControlResolver interface {
	Resolve(ctx context.Context, p Player, proxied bool) (PlayerControl, error)
}

// NextResolver finds the episode that follows a given one in its show.
type NextResolver interface {
	// NextEpisode returns the id of the next episode. Returns
	// ErrNotFound when the item is the last episode or not an episode.
	NextEpisode(ctx context.Context, itemID int64) (int64, error)
}
