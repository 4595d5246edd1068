package server

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"idlely/internal/handlers"
	applog "idlely/internal/log"
)

// newRouter wires the backend routes. The realtime endpoint sits outside the
// session middleware because it hijacks the connection; it loads the session
// itself.
func newRouter(sessionManager *scs.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	applog.Debug(context.Background(), "registering http routes")

	r.Get("/healthz", handlers.Health)

	sessions := func(r chi.Router) {
		r.Use(handlers.BearerSession)
		if sessionManager != nil {
			r.Use(sessionManager.LoadAndSave)
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(handlers.RequireAPIKey)

		r.Get("/realtime", handlers.Realtime)

		r.Group(func(r chi.Router) {
			sessions(r)

			r.Route("/auth/v1", func(r chi.Router) {
				r.Post("/signup", handlers.Signup)
				r.Post("/token", handlers.Token)
				r.Post("/logout", handlers.Logout)
			})

			r.Group(func(r chi.Router) {
				r.Use(handlers.RequireAuthentication)
				r.Get("/rest/v1/customization_settings", handlers.CustomizationSettings)
				r.Get("/rest/v1/user_subscriptions", handlers.UserSubscriptions)
				r.Post("/functions/v1/update-customization", handlers.UpdateCustomization)
				r.Post("/functions/v1/activate-premium", handlers.ActivatePremium)
			})
		})
	})

	// Browser routes carry the session cookie but no project key.
	r.Route("/app", func(r chi.Router) {
		sessions(r)
		r.Use(handlers.RequireAuthentication)
		r.Get("/theme", handlers.Theme)
		r.Post("/preferences", handlers.UpdatePreferences)
	})

	applog.Debug(context.Background(), "http routes registered")
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := applog.With(r.Context(), "requestID", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		applog.Debug(ctx, "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
