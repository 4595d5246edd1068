package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthWithoutDatabase(t *testing.T) {
	original := database
	database = nil
	t.Cleanup(func() { database = original })

	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "unconfigured", resp.Database)
	assert.False(t, resp.Time.IsZero())
}

func TestHealthPingsDatabase(t *testing.T) {
	conn, cleanup := withTestDatabase(t)
	t.Cleanup(cleanup)

	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeHealth(t, w).Database)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeHealth(t, w)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.Database)
}
