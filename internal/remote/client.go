// Package remote is the HTTP client for the hosted customization backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"idlely/internal/customization"
	"idlely/internal/identity"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
	maxBody        = 1 << 20
)

var (
	// ErrNotFound is returned when the backend holds no record for the user.
	ErrNotFound = errors.New("remote: record not found")
	// ErrResponseTooLarge is returned when a response body exceeds 1 MiB.
	ErrResponseTooLarge = errors.New("remote: response too large")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("remote: %s returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Config describes how the backend client should be initialised.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks JSON to the backend. Every call carries the apikey header and,
// once signed in, the session bearer token.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient builds a Client for the backend at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("remote: api key must not be empty")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// SetAccessToken installs the bearer token used for user-scoped calls.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// AccessToken returns the bearer token currently in use.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type sessionResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r sessionResponse) session() identity.Session {
	s := identity.Session{
		User:        identity.Account(r.User.ID, r.User.Email),
		AccessToken: r.AccessToken,
	}
	if r.ExpiresAt > 0 {
		s.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	}
	return s
}

// SignIn exchanges email and password for a session and starts using its token.
func (c *Client) SignIn(ctx context.Context, email, password string) (identity.Session, error) {
	return c.authenticate(ctx, "sign in", "/auth/v1/token", credentials{Email: email, Password: password})
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (identity.Session, error) {
	return c.authenticate(ctx, "sign up", "/auth/v1/signup", credentials{Email: email, Password: password, Name: name})
}

func (c *Client) authenticate(ctx context.Context, op, path string, creds credentials) (identity.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, op, http.MethodPost, path, nil, creds, &resp); err != nil {
		return identity.Session{}, err
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		return identity.Session{}, fmt.Errorf("remote: %s: incomplete session in response", op)
	}
	c.SetAccessToken(resp.AccessToken)
	return resp.session(), nil
}

// SignOut ends the backend session and forgets the token locally even when
// the backend call fails.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.SetAccessToken("")
	if c.AccessToken() == "" {
		return nil
	}
	return c.do(ctx, "sign out", http.MethodPost, "/auth/v1/logout", nil, nil, nil)
}

func userFilter(userID string) url.Values {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("select", "*")
	return q
}

// FetchSettings returns the stored settings record for userID, or ErrNotFound.
// Columns missing from the record keep their default values.
func (c *Client) FetchSettings(ctx context.Context, userID string) (customization.Settings, error) {
	var records []json.RawMessage
	if err := c.do(ctx, "fetch settings", http.MethodGet, "/rest/v1/customization_settings", userFilter(userID), nil, &records); err != nil {
		return customization.Settings{}, err
	}
	if len(records) == 0 {
		return customization.Settings{}, ErrNotFound
	}
	settings := customization.Defaults()
	if err := json.Unmarshal(records[0], &settings); err != nil {
		return customization.Settings{}, fmt.Errorf("remote: fetch settings: decode record: %w", err)
	}
	return settings, nil
}

// FetchSubscription returns the first subscription record for userID, or ErrNotFound.
func (c *Client) FetchSubscription(ctx context.Context, userID string) (customization.SubscriptionInfo, error) {
	var records []customization.SubscriptionInfo
	if err := c.do(ctx, "fetch subscription", http.MethodGet, "/rest/v1/user_subscriptions", userFilter(userID), nil, &records); err != nil {
		return customization.SubscriptionInfo{}, err
	}
	if len(records) == 0 {
		return customization.SubscriptionInfo{}, ErrNotFound
	}
	return records[0], nil
}

type updateRequest struct {
	UserID   string                 `json:"userId"`
	Settings customization.Settings `json:"settings"`
}

// UpdateSettings replaces the stored settings record for userID.
func (c *Client) UpdateSettings(ctx context.Context, userID string, settings customization.Settings) error {
	var envelope functionResponse
	if err := c.do(ctx, "update settings", http.MethodPost, "/functions/v1/update-customization", nil, updateRequest{UserID: userID, Settings: settings}, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return &StatusError{Op: "update settings", StatusCode: http.StatusOK, Message: envelope.errorMessage()}
	}
	return nil
}

type activateRequest struct {
	ReferenceKey string `json:"referenceKey"`
	UserID       string `json:"userId"`
}

// Activation is the backend's answer to an activation request.
type Activation struct {
	Success bool
	Message string
}

// ActivatePremium redeems a reference key for userID. A rejection the backend
// explains is returned as an unsuccessful Activation; transport failures and
// unexplained statuses are errors.
func (c *Client) ActivatePremium(ctx context.Context, userID, referenceKey string) (Activation, error) {
	status, body, err := c.send(ctx, http.MethodPost, "/functions/v1/activate-premium", nil, activateRequest{ReferenceKey: referenceKey, UserID: userID})
	if err != nil {
		return Activation{}, fmt.Errorf("remote: activate premium: %w", err)
	}

	var envelope functionResponse
	if decodeErr := json.Unmarshal(body, &envelope); decodeErr != nil {
		if status >= http.StatusMultipleChoices {
			return Activation{}, &StatusError{Op: "activate premium", StatusCode: status}
		}
		return Activation{}, fmt.Errorf("remote: activate premium: decode response: %w", decodeErr)
	}
	if envelope.Success && status < http.StatusMultipleChoices {
		return Activation{Success: true, Message: envelope.dataMessage()}, nil
	}
	return Activation{Message: envelope.errorMessage()}, nil
}

type functionResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r functionResponse) dataMessage() string {
	var data struct {
		Message string `json:"message"`
	}
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &data) != nil {
		return ""
	}
	return data.Message
}

func (r functionResponse) errorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	status, body, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return fmt.Errorf("remote: %s: %w", op, err)
	}
	if status >= http.StatusMultipleChoices {
		return &StatusError{Op: op, StatusCode: status, Message: errorText(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("remote: %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, in any) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxBody {
		return resp.StatusCode, nil, ErrResponseTooLarge
	}
	return resp.StatusCode, body, nil
}

func errorText(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		switch e := envelope.Error.(type) {
		case string:
			return e
		case map[string]any:
			if msg, ok := e["message"].(string); ok {
				return msg
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
