// Package restapi is the typed HTTP client for the admin backend. The
// backend is an opaque collaborator: this package only knows its handful of
// endpoints, the response shapes they have shipped over time, and how their
// failures map onto the error taxonomy.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	errs "github.com/motrack/adminkit/internal/errors"
	"github.com/motrack/adminkit/principal"
	"github.com/motrack/adminkit/session"
)

const (
	loginPath       = "/admin-auth/admin-login"
	legacyLoginPath = "/auth/login"
	verifyPath      = "/auth/verify-token"
	profilePath     = "/auth/profile"
	logoutPath      = "/auth/logout"

	// defaultTimeout bounds every request so a hung network call cannot
	// leave the console in "checking authentication" indefinitely.
	defaultTimeout = 30 * time.Second
)

var _ session.API = (*Client)(nil)

// Client talks to the admin backend over HTTP with bearer auth.
type Client struct {
	baseURL       string
	legacyBaseURL string
	httpClient    *http.Client
	log           zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (primarily for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLegacyBaseURL sets a secondary base URL used only as a transport
// fallback for login when the primary is unreachable.
func WithLegacyBaseURL(u string) Option {
	return func(c *Client) { c.legacyBaseURL = strings.TrimRight(u, "/") }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New builds a Client for the given base URL.
func New(baseURL string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[restapi.New] baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse tolerates every shape the backend has shipped: token at the
// top level or under data, principal under user, data.user or data.admin.
type loginResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Token   string               `json:"token"`
	User    *principal.Principal `json:"user"`
	Data    struct {
		Token string               `json:"token"`
		User  *principal.Principal `json:"user"`
		Admin *principal.Principal `json:"admin"`
	} `json:"data"`
}

func (r *loginResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Data.Token
}

func (r *loginResponse) principal() *principal.Principal {
	switch {
	case r.User != nil:
		return r.User
	case r.Data.User != nil:
		return r.Data.User
	default:
		return r.Data.Admin
	}
}

// Login exchanges credentials for a token and principal. When the primary
// endpoint is unreachable it silently retries the legacy endpoint; that is a
// transport fallback, never a credential retry — a rejection from the primary
// is final.
func (c *Client) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Login] marshal request")
	}

	result, err := c.loginOnce(ctx, c.baseURL+loginPath, body)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, errs.ErrNetworkUnavailable) {
		return nil, err
	}

	fallbackBase := c.legacyBaseURL
	if fallbackBase == "" {
		fallbackBase = c.baseURL
	}
	c.log.Warn().Err(err).Msg("primary login endpoint unreachable, trying legacy endpoint")
	return c.loginOnce(ctx, fallbackBase+legacyLoginPath, body)
}

func (c *Client) loginOnce(ctx context.Context, endpoint string, body []byte) (*session.LoginResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.loginOnce] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Generic rejection, no user enumeration.
		io.Copy(io.Discard, resp.Body)
		return nil, errs.ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		io.Copy(io.Discard, resp.Body)
		return nil, errors.Wrapf(errs.ErrServerError, "status %d", resp.StatusCode)
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(errs.ErrServerError, "[Client.loginOnce] malformed response body")
	}
	token := decoded.token()
	p := decoded.principal()
	if token == "" || p == nil {
		return nil, errors.Wrap(errs.ErrServerError, "[Client.loginOnce] response missing token or principal")
	}
	return &session.LoginResult{Token: token, Principal: p}, nil
}

// VerifyToken checks the token against the backend. Any 2xx means valid.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	resp, err := c.bearerRequest(ctx, http.MethodGet, verifyPath, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return statusError(resp.StatusCode)
}

// profileResponse tolerates the principal at the top level, under user or
// under data.
type profileResponse struct {
	principal.Principal
	User *principal.Principal `json:"user"`
	Data *principal.Principal `json:"data"`
}

// Profile fetches the current principal's attributes.
func (c *Client) Profile(ctx context.Context, token string) (*principal.Principal, error) {
	resp, err := c.bearerRequest(ctx, http.MethodGet, profilePath, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, err
	}

	var decoded profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(errs.ErrServerError, "[Client.Profile] malformed response body")
	}
	switch {
	case decoded.User != nil:
		return decoded.User, nil
	case decoded.Data != nil:
		return decoded.Data, nil
	default:
		return &decoded.Principal, nil
	}
}

// Logout tells the backend to invalidate the token. Callers treat this as
// best-effort.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.bearerRequest(ctx, http.MethodPost, logoutPath, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return statusError(resp.StatusCode)
}

// FetchRaw performs an authenticated GET and returns the raw JSON payload.
// The data cache uses it for the list endpoints (users, trips, stations);
// their shape is opaque to this layer.
func (c *Client) FetchRaw(ctx context.Context, token, path string) (json.RawMessage, error) {
	if _, err := url.Parse(path); err != nil || !strings.HasPrefix(path, "/") {
		return nil, errors.Errorf("[Client.FetchRaw] invalid path %q", path)
	}
	resp, err := c.bearerRequest(ctx, http.MethodGet, path, token)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	return json.RawMessage(data), nil
}

func (c *Client) bearerRequest(ctx context.Context, method, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.bearerRequest] build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

// statusError maps an HTTP status onto the error taxonomy. 401 and 403 are
// rejections of the credentials or token; any other non-2xx is a server
// fault.
func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.ErrTokenInvalid
	default:
		return errors.Wrapf(errs.ErrServerError, "status %d", status)
	}
}

// transportError maps a failed round trip (DNS, refused connection, timeout)
// onto ErrNetworkUnavailable.
func transportError(err error) error {
	return errors.Wrap(errs.ErrNetworkUnavailable, err.Error())
}
