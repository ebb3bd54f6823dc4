package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client performs authenticated requests against one API base URL.
type Client struct {
	http    *http.Client
	auth    Authenticator
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a new transport client for baseURL with the specified authenticator.
func New(baseURL string, auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins path and query onto the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.auth.Apply(req)

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, errors.WrapAPI(c.baseURL, 0, fmt.Errorf("%w: %w", errors.ErrCanceled, err))
		}
		return nil, errors.WrapAPI(c.baseURL, 0, err)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query), nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+path, err)
	}
	return c.Do(req)
}

// SendJSON performs a request with body encoded as JSON.
func (c *Client) SendJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapParse("json", method+" "+path, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, nil), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WrapResource("create", "request", method+" "+path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

// PostForm performs a POST with an application/x-www-form-urlencoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.WrapResource("create", "request", "POST "+path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(req)
}

// readBody drains and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}
	return body, nil
}
