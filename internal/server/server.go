package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"idlely/internal/handlers"
	applog "idlely/internal/log"
	"idlely/internal/ratelimit"
	"idlely/internal/realtime"
)

const (
	defaultSessionLifetime = 12 * time.Hour
	defaultCookieName      = "idlely_session"
	defaultActivationRate  = 1.0 / 12
	defaultActivationBurst = 5
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr       string
	Session    SessionConfig
	Database   *gorm.DB
	APIKey     string
	Activation ActivationConfig
}

// SessionConfig controls session behavior for the HTTP server.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// ActivationConfig throttles premium activation per account.
type ActivationConfig struct {
	RatePerSecond float64
	Burst         int
}

// Server wraps an http.Server together with the realtime hub and the
// activation limiter it owns.
type Server struct {
	config     Config
	httpServer *http.Server
	hub        *realtime.Hub
	limiter    *ratelimit.Keyed
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	applog.Debug(context.Background(), "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionCookie", cfg.Session.CookieName,
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(context.Background(), "session lifetime not provided, using default")
		sessionCfg.Lifetime = defaultSessionLifetime
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(context.Background(), "session cookie name not provided, using default")
		sessionCfg.CookieName = defaultCookieName
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure

	applog.Debug(context.Background(), "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	activation := cfg.Activation
	if activation.RatePerSecond <= 0 {
		activation.RatePerSecond = defaultActivationRate
	}
	if activation.Burst <= 0 {
		activation.Burst = defaultActivationBurst
	}

	hub := realtime.NewHub()
	limiter := ratelimit.New(activation.RatePerSecond, activation.Burst)

	handlers.Configure(sessionManager, cfg.Database)
	handlers.ConfigureRealtime(hub)
	handlers.ConfigureActivationLimiter(limiter)
	handlers.ConfigureAPIKey(cfg.APIKey)

	applog.Debug(context.Background(), "handler dependencies configured",
		"apiKeyRequired", strings.TrimSpace(cfg.APIKey) != "",
		"activationRate", activation.RatePerSecond,
		"activationBurst", activation.Burst,
	)

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           newRouter(sessionManager),
			ReadHeaderTimeout: 5 * time.Second,
		},
		hub:     hub,
		limiter: limiter,
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout, then drops
// realtime listeners, which Shutdown does not track.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	s.limiter.Stop()
	return err
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	applog.Debug(context.Background(), "server handler requested")
	return s.httpServer.Handler
}
