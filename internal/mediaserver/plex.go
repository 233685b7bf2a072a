package mediaserver

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/skipd/internal/marker"
)

const clientIdentifier = "skipd"

// PlexClient talks to a Plex Media Server over its XML HTTP API.
type PlexClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewPlexClient creates a client for the server at baseURL.
func NewPlexClient(baseURL, token string, logger *slog.Logger) *PlexClient {
	return &PlexClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With("component", "plex"),
	}
}

type mediaContainer struct {
	XMLName xml.Name    `xml:"MediaContainer"`
	Size    int         `xml:"size,attr"`
	Videos  []videoElem `xml:"Video"`
	Servers []serverElem `xml:"Server"`
}

type videoElem struct {
	RatingKey            string     `xml:"ratingKey,attr"`
	SessionKey           string     `xml:"sessionKey,attr"`
	Type                 string     `xml:"type,attr"`
	Title                string     `xml:"title,attr"`
	GrandparentTitle     string     `xml:"grandparentTitle,attr"`
	ParentRatingKey      string     `xml:"parentRatingKey,attr"`
	GrandparentRatingKey string     `xml:"grandparentRatingKey,attr"`
	Duration             int64      `xml:"duration,attr"`
	ViewOffset           int64      `xml:"viewOffset,attr"`
	User                 userElem   `xml:"User"`
	Player               playerElem `xml:"Player"`
	Media                []struct {
		Parts []struct {
			File string `xml:"file,attr"`
		} `xml:"Part"`
	} `xml:"Media"`
}

type userElem struct {
	Title string `xml:"title,attr"`
}

type playerElem struct {
	MachineIdentifier string `xml:"machineIdentifier,attr"`
	Title             string `xml:"title,attr"`
	Address           string `xml:"address,attr"`
	Port              int    `xml:"port,attr"`
	Product           string `xml:"product,attr"`
	State             string `xml:"state,attr"`
	Local             string `xml:"local,attr"`
}

type serverElem struct {
	Name              string `xml:"name,attr"`
	Address           string `xml:"address,attr"`
	Port              int    `xml:"port,attr"`
	MachineIdentifier string `xml:"machineIdentifier,attr"`
	Product           string `xml:"product,attr"`
}

func (c *PlexClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/xml")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	c.logger.Debug("plex request", "path", path, "duration", time.Since(start))
	return nil
}

// FetchItem returns the metadata for one library item.
func (c *PlexClient) FetchItem(ctx context.Context, id int64) (*MediaItem, error) {
	var mc mediaContainer
	if err := c.get(ctx, fmt.Sprintf("/library/metadata/%d", id), &mc); err != nil {
		return nil, err
	}
	if len(mc.Videos) == 0 {
		return nil, ErrNotFound
	}
	item := itemFromVideo(mc.Videos[0])
	return &item, nil
}

// Sessions returns the playback sessions the server reports.
func (c *PlexClient) Sessions(ctx context.Context) ([]Session, error) {
	var mc mediaContainer
	if err := c.get(ctx, "/status/sessions", &mc); err != nil {
		return nil, err
	}
	sessions := make([]Session, 0, len(mc.Videos))
	for _, v := range mc.Videos {
		key, err := strconv.ParseInt(v.SessionKey, 10, 64)
		if err != nil {
			continue
		}
		itemID, err := strconv.ParseInt(v.RatingKey, 10, 64)
		if err != nil {
			continue
		}
		sessions = append(sessions, Session{
			Key:      key,
			ItemID:   itemID,
			State:    v.Player.State,
			OffsetMS: v.ViewOffset,
			Username: v.User.Title,
			Player:   playerFromElem(v.Player),
		})
	}
	return sessions, nil
}

// Players returns the remote clients registered with the server.
func (c *PlexClient) Players(ctx context.Context) ([]Player, error) {
	var mc mediaContainer
	if err := c.get(ctx, "/clients", &mc); err != nil {
		return nil, err
	}
	players := make([]Player, 0, len(mc.Servers))
	for _, s := range mc.Servers {
		players = append(players, Player{
			MachineID: s.MachineIdentifier,
			Title:     s.Name,
			Address:   s.Address,
			Port:      s.Port,
			Product:   s.Product,
			Local:     true,
		})
	}
	return players, nil
}

// NextEpisode walks the show's episode listing and returns the entry
// after the given one.
func (c *PlexClient) NextEpisode(ctx context.Context, itemID int64) (int64, error) {
	item, err := c.FetchItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	if item.Kind != marker.KindEpisode || item.GrandparentID == nil {
		return 0, ErrNotFound
	}

	var mc mediaContainer
	if err := c.get(ctx, fmt.Sprintf("/library/metadata/%d/allLeaves", *item.GrandparentID), &mc); err != nil {
		return 0, err
	}
	for i, v := range mc.Videos {
		id, err := strconv.ParseInt(v.RatingKey, 10, 64)
		if err != nil || id != itemID {
			continue
		}
		if i+1 >= len(mc.Videos) {
			return 0, ErrNotFound
		}
		next, err := strconv.ParseInt(mc.Videos[i+1].RatingKey, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad rating key %q: %w", mc.Videos[i+1].RatingKey, err)
		}
		return next, nil
	}
	return 0, ErrNotFound
}

// Resolve returns a control channel for the player. Direct controls hit
// the player's own HTTP endpoint; proxied controls relay through the
// server, which works for clients behind NAT or with remote control
// disabled on their local port.
func (c *PlexClient) Resolve(_ context.Context, p Player, proxied bool) (PlayerControl, error) {
	if proxied {
		return &plexControl{
			base:    c.baseURL,
			token:   c.token,
			target:  p.MachineID,
			http:    c.http,
			logger:  c.logger,
			proxied: true,
		}, nil
	}
	if p.Address == "" {
		return nil, fmt.Errorf("player %s has no address: %w", p.MachineID, ErrTransport)
	}
	port := p.Port
	if port == 0 {
		port = 32500
	}
	return &plexControl{
		base:   fmt.Sprintf("http://%s:%d", p.Address, port),
		token:  c.token,
		target: p.MachineID,
		http:   c.http,
		logger: c.logger,
	}, nil
}

// plexControl sends playback commands to one player, either directly or
// through the server's /player relay.
type plexControl struct {
	base    string
	token   string
	target  string
	http    *http.Client
	logger  *slog.Logger
	proxied bool
}

func (pc *plexControl) command(ctx context.Context, path string, params url.Values) error {
	u := pc.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Plex-Token", pc.token)
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("X-Plex-Target-Client-Identifier", pc.target)

	resp, err := pc.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	pc.logger.Debug("player command", "path", path, "target", pc.target, "proxied", pc.proxied)
	return nil
}

func (pc *plexControl) Seek(ctx context.Context, offsetMS int64) error {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offsetMS, 10))
	params.Set("type", "video")
	return pc.command(ctx, "/player/playback/seekTo", params)
}

func (pc *plexControl) Stop(ctx context.Context) error {
	params := url.Values{}
	params.Set("type", "video")
	return pc.command(ctx, "/player/playback/stop", params)
}

func (pc *plexControl) Play(ctx context.Context, itemID int64) error {
	params := url.Values{}
	params.Set("key", fmt.Sprintf("/library/metadata/%d", itemID))
	params.Set("offset", "0")
	params.Set("machineIdentifier", pc.target)
	return pc.command(ctx, "/player/playback/playMedia", params)
}

func itemFromVideo(v videoElem) MediaItem {
	item := MediaItem{
		Title:      v.Title,
		ShowTitle:  v.GrandparentTitle,
		DurationMS: v.Duration,
	}
	item.ID, _ = strconv.ParseInt(v.RatingKey, 10, 64)
	if v.Type == "episode" {
		item.Kind = marker.KindEpisode
	} else {
		item.Kind = marker.KindMovie
	}
	if id, err := strconv.ParseInt(v.ParentRatingKey, 10, 64); err == nil {
		item.ParentID = &id
	}
	if id, err := strconv.ParseInt(v.GrandparentRatingKey, 10, 64); err == nil {
		item.GrandparentID = &id
	}
	if len(v.Media) > 0 && len(v.Media[0].Parts) > 0 {
		item.Location = v.Media[0].Parts[0].File
	}
	return item
}

func playerFromElem(p playerElem) Player {
	return Player{
		MachineID: p.MachineIdentifier,
		Title:     p.Title,
		Address:   p.Address,
		Port:      p.Port,
		Product:   p.Product,
		Local:     p.Local == "1",
	}
}
