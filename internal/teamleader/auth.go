package teamleader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viaacode/teamleader2db/internal/domain"
	"github.com/viaacode/teamleader2db/internal/logger"
	"github.com/viaacode/teamleader2db/internal/metrics"
)

// TokenStore persists the single credential row.
type TokenStore interface {
	Read(ctx context.Context) (domain.Credential, error)
	Save(ctx context.Context, cred domain.Credential) error
	Count(ctx context.Context) (int64, error)
	Reset(ctx context.Context) error
}

// AuthConfig carries the OAuth2 client settings and the optional seed
// credential used when the token table is still empty.
type AuthConfig struct {
	AuthURI      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Seed         domain.Credential
}

// CallbackResult reports whether an authorization callback was accepted.
type CallbackResult struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// AuthManager owns the OAuth2 token lifecycle: seeding or loading the
// persisted credential at startup, exchanging an authorization code for
// tokens, refreshing the access token when the API rejects it, and logging
// a consent link whenever a grant fails so an operator can re-authorize.
//
// The credential is a single mutable cell guarded by a mutex: a refresh
// triggered by one caller's 401 is visible to every other caller.
type AuthManager struct {
	mu    sync.Mutex
	cfg   AuthConfig
	cred  domain.Credential
	state string
	store TokenStore
	httpc *http.Client
}

// NewAuthManager creates a new AuthManager. The opaque state token guarding
// the callback is fixed for the lifetime of the process.
func NewAuthManager(cfg AuthConfig, store TokenStore) *AuthManager {
	return &AuthManager{
		cfg:   cfg,
		state: uuid.NewString(),
		store: store,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

// Initialize seeds the token store from configuration when it is empty,
// otherwise loads the persisted credential. Storage errors are fatal.
func (m *AuthManager) Initialize(ctx context.Context) error {
	log := logger.FromContext(ctx)

	count, err := m.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect token store: %w", err)
	}

	if count == 0 {
		if err := m.store.Save(ctx, m.cfg.Seed); err != nil {
			return fmt.Errorf("failed to seed token store: %w", err)
		}
		m.setCredential(m.cfg.Seed)
		log.Info("Seeded token store from configuration")
	} else {
		cred, err := m.store.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		m.setCredential(cred)
		log.Info("Loaded credentials from token store")
	}

	if m.AccessToken() == "" {
		log.Warn("No access token available, authorize via consent link", "link", m.AuthorizationLink())
	}
	return nil
}

// AuthorizationLink builds the human-facing consent URL. Pure function of
// configuration and the process state token.
func (m *AuthManager) AuthorizationLink() string {
	params := url.Values{}
	params.Set("client_id", m.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", m.cfg.RedirectURI)
	params.Set("state", m.state)
	return m.cfg.AuthURI + "/oauth2/authorize?" + params.Encode()
}

// AccessToken returns the current bearer token.
func (m *AuthManager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred.AuthToken
}

// Credential returns a copy of the current credential set.
func (m *AuthManager) Credential() domain.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

func (m *AuthManager) setCredential(cred domain.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cred = cred
}

// HandleCallback validates the opaque state token from the OAuth2 redirect
// and, on match, stores the authorization code and exchanges it for tokens.
// A state mismatch is rejected without any side effect.
func (m *AuthManager) HandleCallback(ctx context.Context, code, state string) CallbackResult {
	if state != m.state {
		logger.FromContext(ctx).Warn("Rejected authorization callback with invalid state")
		return CallbackResult{Accepted: false, Reason: "invalid state token"}
	}

	m.mu.Lock()
	m.cred.Code = code
	m.mu.Unlock()

	if err := m.ExchangeCode(ctx); err != nil {
		return CallbackResult{Accepted: false, Reason: err.Error()}
	}
	return CallbackResult{Accepted: true}
}

// ExchangeCode performs the authorization-code grant with the stored code.
// A rejected grant is an operator-visible condition, not a program fault:
// it logs the consent link and leaves the credential unchanged.
func (m *AuthManager) ExchangeCode(ctx context.Context) error {
	m.mu.Lock()
	code := m.cred.Code
	m.mu.Unlock()

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("redirect_uri", m.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")

	return m.tokenGrant(ctx, "code exchange", form)
}

// RefreshAccessToken performs the refresh-token grant. Called reactively
// whenever a downstream API call reports a 401. Same failure handling as
// ExchangeCode; callers are free to ignore the returned error and let the
// request-level fallback take over.
func (m *AuthManager) RefreshAccessToken(ctx context.Context) error {
	m.mu.Lock()
	refreshToken := m.cred.RefreshToken
	m.mu.Unlock()

	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("redirect_uri", m.cfg.RedirectURI)
	form.Set("grant_type", "refresh_token")

	err := m.tokenGrant(ctx, "token refresh", form)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
	} else {
		metrics.TokenRefreshes.WithLabelValues("success").Inc()
	}
	return err
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (m *AuthManager) tokenGrant(ctx context.Context, grant string, form url.Values) error {
	log := logger.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.AuthURI+"/oauth2/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", grant, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpc.Do(req)
	if err != nil {
		log.Warn("Grant request failed, re-authorize via consent link",
			"grant", grant, "error", err, "link", m.AuthorizationLink())
		return fmt.Errorf("%s request failed: %w", grant, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("Grant rejected, re-authorize via consent link",
			"grant", grant, "status", resp.StatusCode, "body", string(body), "link", m.AuthorizationLink())
		return fmt.Errorf("%s rejected with status %d", grant, resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", grant, err)
	}

	m.mu.Lock()
	m.cred.AuthToken = tokens.AccessToken
	m.cred.RefreshToken = tokens.RefreshToken
	cred := m.cred
	m.mu.Unlock()

	if err := m.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	log.Info("Stored new tokens", "grant", grant)
	return nil
}
