package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idlely/internal/customization"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "anon-key"})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"})
	require.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
}

func TestFetchSettingsSendsFilterAndAPIKey(t *testing.T) {
	stored := customization.Defaults()
	stored.UserID = "user-1"
	stored.PrimaryColor = "#0891b2"

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/customization_settings", r.URL.Path)
		assert.Equal(t, "eq.user-1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]customization.Settings{stored})
	})
	client.SetAccessToken("tok")

	got, err := client.FetchSettings(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestFetchSettingsFillsMissingColumnsWithDefaults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"user_id":"user-1","theme_mode":"dark"}]`))
	})

	got, err := client.FetchSettings(context.Background(), "user-1")
	require.NoError(t, err)

	want := customization.Defaults()
	want.UserID = "user-1"
	want.ThemeMode = customization.ThemeDark
	assert.Equal(t, want, got)
}

func TestFetchSettingsEmptyIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	_, err := client.FetchSettings(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetchSubscriptionUsesFirstRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/user_subscriptions", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"subscription_tier":"premium","subscription_status":"active"},
			{"subscription_tier":"free","subscription_status":"inactive"}
		]`))
	})

	got, err := client.FetchSubscription(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, got.Entitled())
}

func TestStatusErrorCarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"user mismatch"}`))
	})

	_, err := client.FetchSubscription(context.Background(), "user-1")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "user mismatch", statusErr.Message)
	assert.Contains(t, err.Error(), "fetch subscription")
}

func TestUpdateSettingsPostsEnvelope(t *testing.T) {
	settings := customization.Defaults()
	settings.ThemeMode = customization.ThemeDark

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/v1/update-customization", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			UserID   string                 `json:"userId"`
			Settings customization.Settings `json:"settings"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body.UserID)
		assert.Equal(t, customization.ThemeDark, body.Settings.ThemeMode)
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	})

	require.NoError(t, client.UpdateSettings(context.Background(), "user-1", settings))
}

func TestUpdateSettingsUnsuccessfulEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"nope"}}`))
	})

	err := client.UpdateSettings(context.Background(), "user-1", customization.Defaults())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "nope", statusErr.Message)
}

func TestActivatePremium(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Activation
		wantErr bool
	}{
		{"success", http.StatusOK, `{"success":true,"data":{"message":"Premium activated"}}`, Activation{Success: true, Message: "Premium activated"}, false},
		{"rejected", http.StatusBadRequest, `{"success":false,"error":{"message":"Invalid reference key"}}`, Activation{Message: "Invalid reference key"}, false},
		{"unexplained", http.StatusBadGateway, `<html>bad gateway</html>`, Activation{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "KEY-1", body["referenceKey"])
				assert.Equal(t, "user-1", body["userId"])
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.ActivatePremium(context.Background(), "user-1", "KEY-1")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignInStoresToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			var creds credentials
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, "ada@example.com", creds.Email)
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_at":1900000000,"user":{"id":"uid-1","email":"ada@example.com"}}`))
		case "/auth/v1/logout":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	session, err := client.SignIn(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", session.User.ID)
	assert.True(t, session.User.SignedIn())
	assert.Equal(t, int64(1900000000), session.ExpiresAt.Unix())
	assert.Equal(t, "tok", client.AccessToken())

	require.NoError(t, client.SignOut(context.Background()))
	assert.Empty(t, client.AccessToken())
}

func TestSignInRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
	})

	_, err := client.SignIn(context.Background(), "ada@example.com", "wrong")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "invalid credentials", statusErr.Message)
	assert.Empty(t, client.AccessToken())
}

func TestOversizedResponseIsRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[" + strings.Repeat(" ", maxBody) + "]"))
	})

	_, err := client.FetchSettings(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestTransportFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.FetchSettings(context.Background(), "user-1")
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
