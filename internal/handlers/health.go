package handlers

import (
	"context"
	"net/http"
	"time"

	applog "idlely/internal/log"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Health reports readiness. The database is pinged when one is configured;
// a failed ping answers 503.
func Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: databaseState(r.Context()),
		Time:     nowFunc().UTC(),
	}
	status := http.StatusOK
	if resp.Database == "unreachable" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}

func databaseState(ctx context.Context) string {
	if database == nil {
		return "unconfigured"
	}
	sqlDB, err := database.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		applog.Error(ctx, "health check database ping failed", "error", err)
		return "unreachable"
	}
	return "ok"
}
