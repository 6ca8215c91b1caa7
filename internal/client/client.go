package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/modelyard/myd/internal/auth"
	"github.com/modelyard/myd/internal/config"
	"github.com/modelyard/myd/internal/errdefs"
)

// API level compatibility window. The backend advertises its level in the
// X-Api-Level response header; levels outside the window are unusable.
const (
	LibAPILevel = 10
	MinAPILevel = 5
	MaxAPILevel = 20

	apiLevelHeader = "X-Api-Level"
	requestTimeout = 60 * time.Second
)

// Client is the operation contract shared by the remote backend and the
// local in-memory store. Entities travel as generic JSON-shaped maps; the
// api argument is a path built with ProjectPath or ContextPath.
type Client interface {
	Create(ctx context.Context, api string, obj map[string]any, opts Options) (map[string]any, error)
	Read(ctx context.Context, api string, opts Options) (map[string]any, error)
	ReadFirst(ctx context.Context, api string, opts Options) (map[string]any, error)
	Update(ctx context.Context, api string, obj map[string]any, opts Options) (map[string]any, error)
	Delete(ctx context.Context, api string, opts Options) (map[string]any, error)
	List(ctx context.Context, api string, opts Options) ([]map[string]any, error)
	Search(ctx context.Context, api, query string, filter *SearchFilter, opts Options) ([]map[string]any, error)
	IsLocal() bool
}

// Remote talks to the backend over HTTP, injecting credentials resolved at
// request time and refreshing the session token on 401 at most once per
// call.
type Remote struct {
	endpoint   string
	creds      *config.Credentials
	refresher  *auth.Service
	httpClient *http.Client
	limiter    *rate.Limiter

	warnOnce sync.Once
	warnf    func(format string, args ...any)
}

var _ Client = (*Remote)(nil)

// RemoteOption customizes a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) RemoteOption {
	return func(r *Remote) { r.httpClient = hc }
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(rps float64, burst int) RemoteOption {
	return func(r *Remote) { r.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewRemote builds a client bound to a credential store. A personal access
// token is a bootstrap credential, so it is exchanged for a session token
// before the first request.
func NewRemote(ctx context.Context, creds *config.Credentials, refresher *auth.Service, opts ...RemoteOption) (*Remote, error) {
	r := &Remote{
		creds:      creds,
		refresher:  refresher,
		httpClient: &http.Client{Timeout: requestTimeout},
		warnf: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	r.endpoint = creds.Endpoint()
	if r.endpoint == "" {
		return nil, fmt.Errorf("%w: backend endpoint not set", errdefs.ErrConfiguration)
	}

	if auth.Resolve(creds.Active()) == auth.TypeExchange {
		if err := refresher.EvaluateRefresh(ctx); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IsLocal reports whether the client is backed by the in-memory store.
func (r *Remote) IsLocal() bool { return false }

// Create POSTs a new entity.
func (r *Remote) Create(ctx context.Context, api string, obj map[string]any, opts Options) (map[string]any, error) {
	return r.execute(ctx, http.MethodPost, api, obj, opts)
}

// Read GETs a single entity.
func (r *Remote) Read(ctx context.Context, api string, opts Options) (map[string]any, error) {
	return r.execute(ctx, http.MethodGet, api, nil, opts)
}

// ReadFirst returns the first entity of a listing, typically the latest
// version under a name.
func (r *Remote) ReadFirst(ctx context.Context, api string, opts Options) (map[string]any, error) {
	objects, err := r.List(ctx, api, opts)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("%w: no entities found at %s", errdefs.ErrNotExists, api)
	}
	return objects[0], nil
}

// Update PUTs an entity in place.
func (r *Remote) Update(ctx context.Context, api string, obj map[string]any, opts Options) (map[string]any, error) {
	return r.execute(ctx, http.MethodPut, api, obj, opts)
}

// Delete removes an entity. Backends that answer with a bare boolean get
// normalized to a {"deleted": ...} object.
func (r *Remote) Delete(ctx context.Context, api string, opts Options) (map[string]any, error) {
	return r.execute(ctx, http.MethodDelete, api, nil, opts)
}

// execute runs one logical request. On 401 with a refreshable auth type it
// refreshes the session token and retries exactly once; the refreshed flag
// makes the bound explicit.
func (r *Remote) execute(ctx context.Context, method, api string, obj map[string]any, opts Options) (map[string]any, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var payload []byte
	if obj != nil {
		var err error
		if payload, err = json.Marshal(obj); err != nil {
			return nil, fmt.Errorf("%w: failed to encode entity: %v", errdefs.ErrBadRequest, err)
		}
	}

	refreshed := false
	for {
		req, err := r.newRequest(ctx, method, api, payload, opts)
		if err != nil {
			return nil, err
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, transportError(err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: failed to read response body: %v", errdefs.ErrBackend, readErr)
		}

		if err := r.checkAPILevel(resp); err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			if auth.Resolve(r.creds.Active()).Refreshable() {
				refreshed = true
				if err := r.refresher.EvaluateRefresh(ctx); err != nil {
					return nil, err
				}
				continue
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, apiError(resp.StatusCode, body)
		}
		return parseBody(body)
	}
}

// newRequest builds the HTTP request with auth resolved from the current
// credential snapshot, so a refresh between iterations is picked up.
func (r *Remote) newRequest(ctx context.Context, method, api string, payload []byte, opts Options) (*http.Request, error) {
	target := r.endpoint + api
	if q := opts.query(); q != "" {
		target += "?" + q
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrBadRequest, err)
	}
	opts.applyHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	creds := r.creds.Active()
	switch authType := auth.Resolve(creds); {
	case authType.Bearer():
		if token, ok := creds.Get(config.KeyAccessToken); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	case authType == auth.TypeBasic:
		user, _ := creds.Get(config.KeyUser)
		password, _ := creds.Get(config.KeyPassword)
		req.SetBasicAuth(user, password)
	}
	return req, nil
}

// checkAPILevel validates the backend's advertised API level. Outside the
// supported window is fatal; newer than this library is a one-time warning.
func (r *Remote) checkAPILevel(resp *http.Response) error {
	value := resp.Header.Get(apiLevelHeader)
	if value == "" {
		return nil
	}
	level, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	if level < MinAPILevel || level > MaxAPILevel {
		return fmt.Errorf("%w: backend API level %d outside supported range [%d, %d]",
			errdefs.ErrConfiguration, level, MinAPILevel, MaxAPILevel)
	}
	if level > LibAPILevel {
		r.warnOnce.Do(func() {
			r.warnf("backend API level %d is newer than this client (%d); some features may be unavailable", level, LibAPILevel)
		})
	}
	return nil
}

// parseBody decodes a response body into an entity map. An empty body is a
// valid empty object; a bare boolean is a delete acknowledgment.
func parseBody(body []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", errdefs.ErrBackend, err)
	}
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case bool:
		return map[string]any{"deleted": v}, nil
	default:
		return nil, fmt.Errorf("%w: unexpected response shape %T", errdefs.ErrBackend, value)
	}
}
