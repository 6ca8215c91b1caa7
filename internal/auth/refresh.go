package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
	"golang.org/x/oauth2"

	"github.com/modelyard/myd/internal/config"
	"github.com/modelyard/myd/internal/errdefs"
)

const (
	requestTimeout = 60 * time.Second
	wellKnownPath  = "/.well-known/openid-configuration"

	grantRefresh        = "refresh_token"
	grantTokenExchange  = "urn:ietf:params:oauth:grant-type:token-exchange"
	subjectTokenTypePAT = "urn:ietf:params:oauth:token-type:pat"
	tokenScope          = "credentials"

	// maxFallbackAttempts bounds the reload-and-retry cycle after a failed
	// refresh. Credentials rotated out-of-process on every re-read would
	// otherwise keep the loop alive forever.
	maxFallbackAttempts = 2
)

// tokenFields maps provider token-response fields to the credential keys
// they are persisted under.
var tokenFields = map[string]string{
	"access_token":          config.KeyAccessToken,
	"refresh_token":         config.KeyRefreshToken,
	"client_id":             config.KeyClientID,
	"issuer":                config.KeyIssuer,
	"token_endpoint":        config.KeyTokenEndpoint,
	"oauth2_token_endpoint": config.KeyTokenEndpoint,
}

// Service runs OAuth2-style refresh and token-exchange flows against the
// issuer's token endpoint and persists the results to the file origin.
//
// Refresh mutates shared credential state, so the whole
// evaluate-reload-retry cycle is serialized: a mutex covers goroutines in
// this process, a file lock covers sibling processes. Concurrent 401s then
// collapse into a single token-file rewrite.
type Service struct {
	creds      *config.Credentials
	httpClient *http.Client
	lockPath   string
	warnf      func(format string, args ...any)

	mu        sync.Mutex
	triedEnv  bool
	lastToken *oauth2.Token
}

// NewService creates a refresh service bound to a credential store.
func NewService(creds *config.Credentials) *Service {
	_ = os.MkdirAll(config.CacheDir(), 0700)
	return &Service{
		creds:      creds,
		httpClient: &http.Client{Timeout: requestTimeout},
		lockPath:   filepath.Join(config.CacheDir(), "refresh.lock"),
		warnf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}
}

// Refresh performs exactly one refresh or token-exchange flow, persists
// the new credentials and returns the issued token so callers can inspect
// its expiry. It fails if the current auth type is terminal.
func (s *Service) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

// Token returns the last token issued by a refresh in this process, or nil.
func (s *Service) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastToken
}

// EvaluateRefresh refreshes the session token with the two-level fallback:
// if the first attempt fails, re-read the token file (another process may
// have rotated it) and retry once; then fall back to the process
// environment once. Exhaustion is a non-fatal warning — the caller
// proceeds unauthenticated and the next request surfaces the 401.
// Configuration errors (missing client id, terminal auth type) are fatal
// immediately and never retried.
func (s *Service) EvaluateRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	locked, lockErr := lock.TryLockContext(lockCtx, 100*time.Millisecond)
	cancel()
	if lockErr == nil && locked {
		defer lock.Unlock()
	}

	_, err := s.refreshLocked(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, errdefs.ErrConfiguration) {
		return err
	}

	for attempt := 0; attempt < maxFallbackAttempts; attempt++ {
		if s.creds.FileChangedOnDisk() {
			// Rotated out-of-process: pick up the new file state
			if rerr := s.creds.ReloadFile(); rerr != nil {
				return rerr
			}
			s.creds.UseFile()
		} else if !s.triedEnv {
			// Env credentials are only visible at process start; try
			// them once as the last resort
			s.triedEnv = true
			s.creds.UseEnv()
		} else {
			break
		}

		if _, err = s.refreshLocked(ctx); err == nil {
			return nil
		}
		if errors.Is(err, errdefs.ErrConfiguration) {
			return err
		}
	}

	s.warnf("token refresh failed after retrying with file and env credentials: %v", err)
	return nil
}

// refreshLocked runs one flow against the token endpoint. Caller holds mu.
func (s *Service) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	creds := s.creds.Active()
	authType := Resolve(creds)
	if !authType.Refreshable() {
		return nil, fmt.Errorf("%w: auth type %s does not support refresh", errdefs.ErrConfiguration, authType)
	}

	endpoint, err := s.tokenEndpoint(ctx, creds)
	if err != nil {
		return nil, err
	}

	clientID, ok := creds.Get(config.KeyClientID)
	if !ok {
		return nil, fmt.Errorf("%w: client id not set", errdefs.ErrConfiguration)
	}

	form := url.Values{
		"client_id": {clientID},
		"scope":     {tokenScope},
	}
	switch authType {
	case TypeOAuth2:
		refreshToken, _ := creds.Get(config.KeyRefreshToken)
		form.Set("grant_type", grantRefresh)
		form.Set("refresh_token", refreshToken)
	case TypeExchange:
		pat, _ := creds.Get(config.KeyPersonalAccessToken)
		form.Set("grant_type", grantTokenExchange)
		form.Set("subject_token", pat)
		form.Set("subject_token_type", subjectTokenTypePAT)
	}

	token, fields, err := s.postToken(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}

	// New tokens go to the file origin only, never back to the env
	if err := s.creds.WriteFile(fields); err != nil {
		return nil, err
	}
	s.lastToken = token
	return token, nil
}

// tokenEndpoint returns the pre-configured token endpoint, or discovers it
// from the issuer's well-known OpenID configuration.
func (s *Service) tokenEndpoint(ctx context.Context, creds config.Set) (string, error) {
	if v, ok := creds.Get(config.KeyTokenEndpoint); ok {
		return v, nil
	}
	issuer, ok := creds.Get(config.KeyIssuer)
	if !ok {
		return "", fmt.Errorf("%w: issuer endpoint not set", errdefs.ErrConfiguration)
	}

	discoveryURL := issuer + wellKnownPath
	var endpoint string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return backoff.Permanent(fmt.Errorf("issuer discovery failed: HTTP %d", resp.StatusCode))
		}
		var doc struct {
			TokenEndpoint string `json:"token_endpoint"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to parse issuer configuration: %w", err))
		}
		endpoint = doc.TokenEndpoint
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("%w: %v", errdefs.ErrConnection, err)
	}
	if endpoint == "" {
		return "", fmt.Errorf("%w: issuer configuration has no token_endpoint", errdefs.ErrConfiguration)
	}
	return endpoint, nil
}

// postToken POSTs a form-encoded grant and returns the parsed token plus
// the credential fields to persist.
func (s *Service) postToken(ctx context.Context, endpoint string, form url.Values) (*oauth2.Token, map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: token request failed: %v", errdefs.ErrConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read token response", errdefs.ErrBackend)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("%w: token endpoint returned HTTP %d: %s",
			errdefs.ErrUnauthorized, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse token response: %v", errdefs.ErrBackend, err)
	}

	// Rename provider fields to the store's internal key names
	fields := make(map[string]string)
	for field, key := range tokenFields {
		if v, ok := raw[field].(string); ok && v != "" {
			fields[key] = v
		}
	}
	if fields[config.KeyAccessToken] == "" {
		return nil, nil, fmt.Errorf("%w: token response has no access_token", errdefs.ErrBackend)
	}

	token := &oauth2.Token{
		AccessToken:  fields[config.KeyAccessToken],
		RefreshToken: fields[config.KeyRefreshToken],
		TokenType:    "Bearer",
	}
	if expires, ok := raw["expires_in"].(float64); ok {
		token.Expiry = time.Now().Add(time.Duration(expires) * time.Second)
	}
	return token, fields, nil
}
