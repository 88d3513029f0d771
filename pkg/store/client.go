package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 10 * time.Second

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithHTTPClient replaces the HTTP client used for all store requests.
// Mainly useful in tests.
func WithHTTPClient(hc *http.Client) FactoryOption {
	return func(f *Factory) { f.http = hc }
}

// Factory builds credential-scoped store clients. One Factory is created at
// startup from config; one Client is created per upgrade attempt.
type Factory struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewFactory creates a client factory for the store at baseURL. apiKey is
// the service-level key sent alongside every request; the per-session
// credential is supplied later via New.
func NewFactory(baseURL, apiKey string, opts ...FactoryOption) (*Factory, error) {
	if baseURL == "" {
		return nil, errors.New("store: baseURL must not be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("store: parse baseURL: %w", err)
	}
	f := &Factory{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// New returns a Client scoped to the given credential. The credential is
// attached to every request the client makes; construction itself performs
// no I/O.
func (f *Factory) New(credential string) (*Client, error) {
	if credential == "" {
		return nil, errors.New("store: credential must not be empty")
	}
	return &Client{factory: f, credential: credential}, nil
}

// Ping reports whether the store is reachable. Used by the readiness probe;
// it does not require a session credential.
func (f *Factory) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("store: build ping request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store: ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Client is a store client scoped to one session credential. It is created
// per upgrade attempt, handed to the session on admission, and discarded
// when the session ends.
type Client struct {
	factory    *Factory
	credential string
}

// Credential returns the credential this client is scoped to.
func (c *Client) Credential() string { return c.credential }

// Authenticate validates the client's credential against the store and
// returns the identity behind it. An invalid or expired credential yields an
// error matching [ErrAuthentication]; any other failure is a plain error.
func (c *Client) Authenticate(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/v1/user", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeviceProfile fetches the profile for a registered device.
func (c *Client) DeviceProfile(ctx context.Context, deviceID string) (*DeviceProfile, error) {
	var profile DeviceProfile
	path := "/v1/devices/" + url.PathEscape(deviceID)
	if err := c.get(ctx, path, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// History fetches the most recent exchanges for a conversation session,
// newest last, at most limit entries.
func (c *Client) History(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	var exchanges []Exchange
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/exchanges?limit=" + strconv.Itoa(limit)
	if err := c.get(ctx, path, &exchanges); err != nil {
		return nil, err
	}
	return exchanges, nil
}

// AppendExchange records one conversation turn for a session.
func (c *Client) AppendExchange(ctx context.Context, sessionID string, ex Exchange) error {
	body, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("store: marshal exchange: %w", err)
	}
	path := "/v1/sessions/" + url.PathEscape(sessionID) + "/exchanges"
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.factory.http.Do(req)
	if err != nil {
		return fmt.Errorf("store: append exchange: %w", err)
	}
	defer resp.Body.Close()
	return c.checkStatus(resp)
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.factory.http.Do(req)
	if err != nil {
		return fmt.Errorf("store: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("store: decode %s response: %w", path, err)
	}
	return nil
}

// newRequest builds a request carrying the scoped credential and service key.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.factory.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.credential)
	if c.factory.apiKey != "" {
		req.Header.Set("X-API-Key", c.factory.apiKey)
	}
	return req, nil
}

// checkStatus maps HTTP status codes onto the package error taxonomy.
// 401 and 403 mean the credential was rejected; everything else non-2xx is
// an ordinary store error.
func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrAuthentication, resp.StatusCode)
	default:
		return fmt.Errorf("store: %s %s: unexpected status %d",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
}
