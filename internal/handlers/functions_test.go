package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlely/internal/customization"
	"idlely/internal/entitlement"
	"idlely/internal/ratelimit"
	"idlely/models"
)

func decodeFunction(t *testing.T, w *httptest.ResponseRecorder, data any) functionResponse {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *functionError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return functionResponse{Success: envelope.Success, Error: envelope.Error}
}

func functionBody(t *testing.T, payload any) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func withFixedClock(t *testing.T, now time.Time) {
	t.Helper()
	original := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = original })
}

func seedKey(t *testing.T, code string, days int) {
	t.Helper()
	require.NoError(t, database.Create(&models.ActivationKey{Code: code, DurationDays: days}).Error)
}

func TestCustomizationSettingsScopedToCaller(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	user := seedUser(t, "owner@example.com", "password123")

	tests := []struct {
		name   string
		uid    string
		query  string
		status int
		rows   int
	}{
		{"own record", user.UID, "?user_id=eq." + user.UID + "&select=*", http.StatusOK, 1},
		{"implicit filter", user.UID, "", http.StatusOK, 1},
		{"other user", user.UID, "?user_id=eq.someone-else", http.StatusForbidden, 0},
		{"bad operator", user.UID, "?user_id=like." + user.UID, http.StatusBadRequest, 0},
		{"signed out", "", "", http.StatusUnauthorized, 0},
		{"no record", "uid-without-rows", "", http.StatusOK, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			CustomizationSettings(w, authedRequest(t, sm, http.MethodGet, "/rest/v1/customization_settings"+tt.query, nil, tt.uid))
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var rows []customization.Settings
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
			require.Len(t, rows, tt.rows)
			if tt.rows > 0 {
				assert.Equal(t, user.UID, rows[0].UserID)
				assert.Equal(t, customization.Defaults().PrimaryColor, rows[0].PrimaryColor)
				assert.False(t, rows[0].IsPremium)
			}
		})
	}
}

func TestUpdateCustomization(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	user := seedUser(t, "owner@example.com", "password123")

	next := customization.Defaults()
	next.PrimaryColor = "#ff0000"
	next.ThemeMode = customization.ThemeDark
	next.WidgetLayout = map[string]any{"clock": map[string]any{"x": float64(1)}}

	w := httptest.NewRecorder()
	UpdateCustomization(w, authedRequest(t, sm, http.MethodPost, "/functions/v1/update-customization",
		functionBody(t, map[string]any{"userId": user.UID, "settings": next}), user.UID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var saved customization.Settings
	resp := decodeFunction(t, w, &saved)
	assert.True(t, resp.Success)
	assert.Equal(t, "#ff0000", saved.PrimaryColor)
	assert.Equal(t, user.UID, saved.UserID)

	stored, found, err := loadSettings(t.Context(), user.UID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, customization.ThemeDark, stored.ThemeMode)
	assert.Equal(t, next.WidgetLayout, stored.WidgetLayout)

	var count int64
	require.NoError(t, database.Model(&models.CustomizationRecord{}).Where("user_uid = ?", user.UID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "update must replace, not append")
}

func TestUpdateCustomizationRejections(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	user := seedUser(t, "owner@example.com", "password123")

	tests := []struct {
		name   string
		uid    string
		body   string
		status int
	}{
		{"signed out", "", `{"userId":"x","settings":{}}`, http.StatusUnauthorized},
		{"other user", user.UID, `{"userId":"someone-else","settings":{}}`, http.StatusForbidden},
		{"missing settings", user.UID, `{"userId":"` + user.UID + `"}`, http.StatusBadRequest},
		{"malformed", user.UID, `{"userId":`, http.StatusBadRequest},
		{"invalid color", user.UID, `{"userId":"` + user.UID + `","settings":{"primary_color":"red"}}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			UpdateCustomization(w, authedRequest(t, sm, http.MethodPost, "/functions/v1/update-customization", []byte(tt.body), tt.uid))
			require.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decodeFunction(t, w, nil)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
		})
	}

	w := httptest.NewRecorder()
	UpdateCustomization(w, authedRequest(t, sm, http.MethodPost, "/functions/v1/update-customization",
		[]byte(`{"userId":"`+user.UID+`","settings":{"primary_color":"red"}}`), user.UID))
	resp := decodeFunction(t, w, nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Fields, "primary_color")
}

func TestActivatePremium(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	user := seedUser(t, "owner@example.com", "password123")
	other := seedUser(t, "other@example.com", "password123")
	seedKey(t, "IDL-MONTH", 30)

	activate := func(uid, key string) (*httptest.ResponseRecorder, functionResponse, activationData) {
		w := httptest.NewRecorder()
		ActivatePremium(w, authedRequest(t, sm, http.MethodPost, "/functions/v1/activate-premium",
			functionBody(t, map[string]string{"referenceKey": key, "userId": uid}), uid))
		var data activationData
		return w, decodeFunction(t, w, &data), data
	}

	w, resp, _ := activate(user.UID, "nope")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, msgInvalidKey, resp.Error.Message)

	w, resp, data := activate(user.UID, " idl-month ")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, entitlement.MsgActivated, data.Message)
	require.NotNil(t, data.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 30).Unix(), *data.ExpiresAt)

	w, resp, _ = activate(other.UID, "IDL-MONTH")
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, msgKeyAlreadyUsed, resp.Error.Message)

	sub, found, err := loadSubscription(t.Context(), user.UID)
	require.NoError(t, err)
	require.True(t, found)
	info := sub.Info(now)
	assert.True(t, info.Entitled())
	assert.Equal(t, "IDL-MONTH", info.ReferenceKey)

	settings, _, err := loadSettings(t.Context(), user.UID)
	require.NoError(t, err)
	assert.True(t, settings.IsPremium)
}

func TestActivatePremiumExtendsRunningPeriod(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	user := seedUser(t, "owner@example.com", "password123")
	seedKey(t, "FIRST", 30)
	seedKey(t, "SECOND", 30)

	for _, key := range []string{"FIRST", "SECOND"} {
		w := httptest.NewRecorder()
		ActivatePremium(w, authedRequest(t, sm, http.MethodPost, "/functions/v1/activate-premium",
			functionBody(t, map[string]string{"referenceKey": key, "userId": user.UID}), user.UID))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	sub, _, err := loadSubscription(t.Context(), user.UID)
	require.NoError(t, err)
	require.NotNil(t, sub.ExpiresAt)
	assert.True(t, sub.ExpiresAt.Equal(now.AddDate(0, 0, 60)), "got %s", sub.ExpiresAt)
}

func TestActivatePremiumGuards(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)
	original := activationLimiter
	ConfigureActivationLimiter(limiter)
	t.Cleanup(func() { activationLimiter = original })

	user := seedUser(t, "owner@example.com", "password123")

	call := func(uid, bodyUID, key string) (*httptest.ResponseRecorder, functionResponse) {
		w := httptest.NewRecorder()
		ActivatePremium(w, authedRequest(t, sm, http.MethodPost, "/functions/v1/activate-premium",
			functionBody(t, map[string]string{"referenceKey": key, "userId": bodyUID}), uid))
		return w, decodeFunction(t, w, nil)
	}

	w, resp := call("", "", "KEY")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, entitlement.MsgSignInRequired, resp.Error.Message)

	w, _ = call(user.UID, "someone-else", "KEY")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = call(user.UID, user.UID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, entitlement.MsgKeyRequired, resp.Error.Message)

	w, _ = call(user.UID, user.UID, "UNKNOWN")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = call(user.UID, user.UID, "UNKNOWN")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, msgTooManyAttempts, resp.Error.Message)
}

func TestUserSubscriptionsReportsLapse(t *testing.T) {
	sm, smCleanup := withTestSessionManager(t)
	t.Cleanup(smCleanup)
	_, dbCleanup := withTestDatabase(t)
	t.Cleanup(dbCleanup)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withFixedClock(t, now)

	user := seedUser(t, "owner@example.com", "password123")
	expired := now.Add(-time.Hour)
	require.NoError(t, database.Model(&models.Subscription{}).Where("user_uid = ?", user.UID).Updates(map[string]any{
		"tier":       customization.TierPremium,
		"status":     customization.StatusActive,
		"expires_at": expired,
	}).Error)

	w := httptest.NewRecorder()
	UserSubscriptions(w, authedRequest(t, sm, http.MethodGet, "/rest/v1/user_subscriptions?user_id=eq."+user.UID, nil, user.UID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rows []customization.SubscriptionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, customization.StatusExpired, rows[0].Status)
	assert.False(t, rows[0].Entitled())
	assert.True(t, strings.Contains(w.Body.String(), `"user_id":"`+user.UID+`"`))

	var stored models.Subscription
	require.NoError(t, database.Where("user_uid = ?", user.UID).First(&stored).Error)
	assert.Equal(t, customization.StatusExpired, stored.Status)
}

func TestRequireAPIKey(t *testing.T) {
	original := projectAPIKey
	t.Cleanup(func() { projectAPIKey = original })

	handler := RequireAPIKey(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ConfigureAPIKey("")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code, "no key configured")

	ConfigureAPIKey(" project-key ")
	tests := []struct {
		name   string
		key    string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "other", http.StatusUnauthorized},
		{"valid", "project-key", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set("apikey", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"", "", false},
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tt.header)
		got, ok := bearerToken(req)
		assert.Equal(t, tt.want, got, tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
	}
}
