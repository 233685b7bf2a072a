package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/websocket"
)

// WebsocketDialer connects to the Plex notification websocket.
type WebsocketDialer struct {
	serverURL string
	token     string
	logger    *slog.Logger
}

// NewWebsocketDialer creates a dialer for the server at serverURL
// (http or https; the scheme is rewritten for the websocket).
func NewWebsocketDialer(serverURL, token string, logger *slog.Logger) *WebsocketDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebsocketDialer{
		serverURL: strings.TrimRight(serverURL, "/"),
		token:     token,
		logger:    logger.With("component", "monitor"),
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context) (Feed, error) {
	wsURL := strings.Replace(d.serverURL, "http", "ws", 1) +
		"/:/websockets/notifications?X-Plex-Token=" + url.QueryEscape(d.token)

	cfg, err := websocket.NewConfig(wsURL, d.serverURL)
	if err != nil {
		return nil, fmt.Errorf("building websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialing notification websocket: %w", err)
	}
	return &websocketFeed{conn: conn, logger: d.logger}, nil
}

type websocketFeed struct {
	conn   *websocket.Conn
	logger *slog.Logger
}

// notificationMessage is the wire envelope the server sends.
type notificationMessage struct {
	Container struct {
		Type    string `json:"type"`
		Playing []struct {
			SessionKey string `json:"sessionKey"`
			RatingKey  string `json:"ratingKey"`
			State      string `json:"state"`
			ViewOffset int64  `json:"viewOffset"`
		} `json:"PlaySessionStateNotification"`
		Timeline []struct {
			ItemID     int64  `json:"itemID"`
			Type       int    `json:"type"`
			Identifier string `json:"identifier"`
			State      int    `json:"state"`
			Title      string `json:"title"`
		} `json:"TimelineEntry"`
	} `json:"NotificationContainer"`
}

// Next reads frames until one decodes. A frame that is not valid JSON is
// logged and dropped rather than treated as a broken stream, so a single
// garbled message does not cost a reconnect.
func (f *websocketFeed) Next() (*Notification, error) {
	for {
		var raw []byte
		if err := websocket.Message.Receive(f.conn, &raw); err != nil {
			return nil, fmt.Errorf("reading notification: %w", err)
		}

		var msg notificationMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			f.logger.Warn("dropping malformed notification frame", "error", err)
			continue
		}

		n := &Notification{Type: msg.Container.Type}
		for _, p := range msg.Container.Playing {
			sessionKey, err := strconv.ParseInt(p.SessionKey, 10, 64)
			if err != nil {
				continue
			}
			itemID, err := strconv.ParseInt(p.RatingKey, 10, 64)
			if err != nil {
				continue
			}
			n.Playing = append(n.Playing, PlayingEntry{
				SessionKey: sessionKey,
				ItemID:     itemID,
				State:      p.State,
				OffsetMS:   p.ViewOffset,
			})
		}
		for _, t := range msg.Container.Timeline {
			n.Timeline = append(n.Timeline, TimelineEntry{
				ItemID:     t.ItemID,
				Type:       t.Type,
				Identifier: t.Identifier,
				State:      t.State,
				Title:      t.Title,
			})
		}
		return n, nil
	}
}

func (f *websocketFeed) Close() error {
	return f.conn.Close()
}
