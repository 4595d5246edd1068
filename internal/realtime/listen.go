package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	applog "idlely/internal/log"
)

// Incoming is a message received by Listen.
type Incoming struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Listen connects to the realtime endpoint of the backend at baseURL and calls
// handle for every message until ctx is cancelled or the connection drops.
func Listen(ctx context.Context, baseURL, apiKey, token string, handle func(Incoming)) error {
	endpoint, err := socketURL(baseURL)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("apikey", apiKey)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("realtime: dial %s: %w", endpoint, err)
	}
	defer ws.Close()
	applog.Debug(ctx, "realtime connected", "endpoint", endpoint)

	stop := context.AfterFunc(ctx, func() {
		_ = ws.Close()
	})
	defer stop()

	for {
		var msg Incoming
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("realtime: read: %w", err)
		}
		handle(msg)
	}
}

func socketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", fmt.Errorf("realtime: parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path += "/realtime"
	return u.String(), nil
}
