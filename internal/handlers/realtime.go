package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	applog "idlely/internal/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// sessionUIDFromRequest loads the session named by the bearer token or the
// session cookie without going through the session middleware, whose
// response writer cannot be hijacked.
func sessionUIDFromRequest(ctx context.Context, r *http.Request) (string, bool) {
	if sessionManager == nil {
		return "", false
	}
	token, ok := bearerToken(r)
	if !ok {
		cookie, err := r.Cookie(sessionManager.Cookie.Name)
		if err != nil || cookie.Value == "" {
			return "", false
		}
		token = cookie.Value
	}

	loaded, err := sessionManager.Load(ctx, token)
	if err != nil {
		applog.Warn(ctx, "failed to load realtime session", "error", err)
		return "", false
	}
	if !sessionManager.GetBool(loaded, sessionAuthenticatedKey) {
		return "", false
	}
	uid := sessionManager.GetString(loaded, sessionUserUIDKey)
	return uid, uid != ""
}

// Realtime upgrades the connection and streams settings changes for the
// signed-in user until the client disconnects.
func Realtime(w http.ResponseWriter, r *http.Request) {
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "realtime not available")
		return
	}
	uid, ok := sessionUIDFromRequest(r.Context(), r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Debug(r.Context(), "realtime upgrade failed", "user", uid, "error", err)
		return
	}
	unregister := hub.Register(uid, ws)
	defer unregister()
	applog.Debug(r.Context(), "realtime listener connected", "user", uid)

	// Drain client frames so control messages are processed and closes are seen.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			applog.Debug(r.Context(), "realtime listener disconnected", "user", uid, "error", err)
			return
		}
	}
}
