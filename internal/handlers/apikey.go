package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	applog "idlely/internal/log"
)

// RequireAPIKey rejects requests that do not carry the project key in the
// apikey header. With no key configured every request passes.
func RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if projectAPIKey != "" {
			presented := r.Header.Get("apikey")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(projectAPIKey)) != 1 {
				applog.Debug(r.Context(), "rejecting request with bad api key", "path", r.URL.Path, "present", presented != "")
				writeError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// BearerSession lets clients without a cookie jar present the session token
// as a bearer token. It must run before the session manager loads the session.
func BearerSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionManager != nil {
			if token, ok := bearerToken(r); ok {
				if _, err := r.Cookie(sessionManager.Cookie.Name); err != nil {
					r = r.Clone(r.Context())
					r.AddCookie(&http.Cookie{Name: sessionManager.Cookie.Name, Value: token})
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
