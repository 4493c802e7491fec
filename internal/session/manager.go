// Package session owns the authenticated identity: the bearer token and the
// current user profile, persisted to the credential store and mirrored in
// memory. Storage and memory are always updated together.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"
)

// ErrProfileUnavailable reports a failed profile fetch during a session
// refresh. The caller purges the whole session in response.
var ErrProfileUnavailable = errors.New("profile unavailable")

// CredentialStore is the durable storage the manager persists to. Missing
// values read as empty; SetUser(nil) deletes the profile; Clear removes
// token and profile together.
type CredentialStore interface {
	Token() (string, error)
	SetToken(token string) error
	User() ([]byte, error)
	SetUser(profile []byte) error
	Clear() error
}

// Result is the outcome of an identity operation. These never surface as
// errors: form-driving callers always get this uniform shape.
type Result struct {
	Success bool
	Error   string
}

// Registration holds the fields the sign-up form collects.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Config holds session manager configuration.
type Config struct {
	BaseURL string
	Store   CredentialStore
	Timeout time.Duration // per-request timeout, default 12s
	Logger  *slog.Logger
}

// Manager maintains the single authoritative identity for the running
// client. Safe for concurrent use.
type Manager struct {
	baseURL string
	store   CredentialStore
	http    *http.Client
	log     *slog.Logger

	mu      sync.RWMutex
	user    map[string]any
	loading bool
	subs    []func(map[string]any)
}

// NewManager creates a session manager in the loading state; call Hydrate to
// resolve the persisted session.
func NewManager(cfg Config) *Manager {
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		baseURL: cfg.BaseURL,
		store:   cfg.Store,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     cfg.Logger,
		loading: true,
	}
}

// Hydrate resolves the persisted session: the stored profile is loaded
// immediately so the caller can render, then refreshed from the server. A
// failed refresh purges token and profile together. The loading flag clears
// on every path. Hydration failures never propagate; the session simply ends
// up anonymous.
func (m *Manager) Hydrate(ctx context.Context) {
	defer m.finishLoading()

	token, err := m.store.Token()
	if err != nil {
		m.log.Warn("read stored token", "error", err)
		return
	}
	if token == "" {
		return
	}

	// Optimistic: surface the persisted profile while the refresh runs.
	if raw, err := m.store.User(); err == nil && len(raw) > 0 {
		var profile map[string]any
		if json.Unmarshal(raw, &profile) == nil {
			m.setUser(profile)
		}
	}

	if tokenExpired(token) {
		m.log.Info("stored token expired, clearing session")
		m.purge()
		return
	}

	if _, err := m.RefreshUser(ctx, token); err != nil {
		m.log.Warn("session refresh failed, clearing session", "error", err)
		m.purge()
	}
}

// RefreshUser fetches the profile for the effective token (override or
// stored) and persists it. With no token available the profile is purged and
// (nil, nil) returned. A failed profile fetch returns ErrProfileUnavailable.
func (m *Manager) RefreshUser(ctx context.Context, tokenOverride string) (map[string]any, error) {
	token := tokenOverride
	if token == "" {
		stored, err := m.store.Token()
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		token = stored
	}
	if token == "" {
		if err := m.store.SetUser(nil); err != nil {
			m.log.Warn("delete stored profile", "error", err)
		}
		m.setUser(nil)
		return nil, nil
	}

	profile, err := m.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := m.store.SetUser(raw); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	m.setUser(profile)
	return profile, nil
}

// Login authenticates with the server, persists the returned access token,
// and loads the profile. Failures come back as a Result, never an error; the
// message is the server's error field, then message, then a generic fallback.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Result{Error: "Login failed"}
	}

	resp, err := m.postJSON(ctx, m.baseURL+"/api/v1/auth/login", payload)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: apiError(resp.Body, "Login failed")}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Error: "Login failed"}
	}

	if err := m.store.SetToken(body.AccessToken); err != nil {
		return Result{Error: err.Error()}
	}
	if _, err := m.RefreshUser(ctx, body.AccessToken); err != nil {
		return Result{Error: err.Error()}
	}

	m.log.Info("login succeeded", "email", email)
	return Result{Success: true}
}

// Register creates the account and, on success, logs in with the same
// credentials to establish a session.
func (m *Manager) Register(ctx context.Context, reg Registration) Result {
	payload, err := json.Marshal(map[string]string{
		"first_name": reg.FirstName,
		"last_name":  reg.LastName,
		"email":      reg.Email,
		"password":   reg.Password,
	})
	if err != nil {
		return Result{Error: "Registration failed"}
	}

	resp, err := m.postJSON(ctx, m.baseURL+"/api/v1/users/", payload)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: apiError(resp.Body, "Registration failed")}
	}
	io.Copy(io.Discard, resp.Body)

	return m.Login(ctx, reg.Email, reg.Password)
}

// Logout purges token and profile from storage and memory.
func (m *Manager) Logout() {
	m.purge()
	m.log.Info("logged out")
}

// User returns the current profile, or nil when anonymous.
func (m *Manager) User() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.user)
}

// Loading reports whether session resolution is still in progress.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// IsAuthenticated reports whether a profile is loaded in memory. A stored
// token alone does not count: if the profile refresh failed, the session is
// anonymous.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Subscribe registers fn to be called with the new profile (nil on logout)
// whenever the identity changes.
func (m *Manager) Subscribe(fn func(map[string]any)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *Manager) fetchProfile(ctx context.Context, token string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/v1/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrProfileUnavailable, resp.StatusCode)
	}

	var profile map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

func (m *Manager) postJSON(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	return resp, nil
}

// purge clears storage and memory together so they cannot drift.
func (m *Manager) purge() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("clear credentials", "error", err)
	}
	m.setUser(nil)
}

func (m *Manager) setUser(profile map[string]any) {
	m.mu.Lock()
	m.user = profile
	subs := append([](func(map[string]any))(nil), m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(profile)
	}
}

func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

// apiError extracts the server's failure message from an error body,
// checking the error field, then message, else the fallback.
func apiError(r io.Reader, fallback string) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return fallback
}
