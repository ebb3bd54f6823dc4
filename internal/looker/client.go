// Package looker is a small client for the subset of the Looker REST API
// that lookersync needs: login, running a saved Look, and managing groups
// and user attributes.
package looker

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstation/lookersync/internal/transport"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
)

// Client talks to one Looker instance.
type Client struct {
	transport *transport.Client
	auth      *transport.TokenAuth
	baseURL   string
}

// New creates an unauthenticated client for baseURL, which includes the
// API version path, e.g. https://example.looker.com:19999/api/3.1.
func New(baseURL string, opts ...transport.Option) *Client {
	auth := transport.NewTokenAuth("")
	tc := transport.New(baseURL, auth, opts...)
	return &Client{
		transport: tc,
		auth:      auth,
		baseURL:   tc.BaseURL(),
	}
}

// Connect creates a client and logs in with API client credentials.
func Connect(ctx context.Context, baseURL, clientID, clientSecret string, opts ...transport.Option) (*Client, error) {
	c := New(baseURL, opts...)
	if err := c.Login(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}
	return c, nil
}

// BaseURL returns the instance API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges client credentials for an access token used by all
// subsequent calls.
func (c *Client) Login(ctx context.Context, clientID, clientSecret string) error {
	if clientID == "" || clientSecret == "" {
		return errors.NewAuthenticationError(c.baseURL, "client_credentials", "client id and secret are required", errors.ErrCredentialsRequired)
	}

	resp, err := c.transport.PostForm(ctx, "/login", url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	})
	if err != nil {
		return errors.NewAuthenticationError(c.baseURL, "client_credentials", "login request failed", err)
	}

	var token AccessToken
	if err := transport.DecodeResponse(resp, &token); err != nil {
		return errors.NewAuthenticationError(c.baseURL, "client_credentials", "login rejected", err)
	}
	if token.AccessToken == "" {
		return errors.NewAuthenticationError(c.baseURL, "client_credentials", "login returned no access token", nil)
	}

	c.auth.SetToken(token.AccessToken)
	logging.FromContext(ctx).Debug().
		Str("instance", c.baseURL).
		Int("expires_in", token.ExpiresIn).
		Msg("Authenticated to Looker")
	return nil
}

// Logout invalidates the current access token.
func (c *Client) Logout(ctx context.Context) error {
	if c.auth.Token() == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.transport.URL("/logout", nil), nil)
	if err != nil {
		return errors.WrapResource("create", "request", "DELETE /logout", err)
	}
	resp, err := c.transport.Do(req)
	if err != nil {
		return err
	}
	if err := transport.DecodeResponse(resp, nil); err != nil {
		return err
	}
	c.auth.SetToken("")
	return nil
}

// RunLook runs a saved Look and returns the raw result in the given format
// (txt, csv, json, ...). Formatting and visualization options are disabled
// so values come back exactly as stored.
func (c *Client) RunLook(ctx context.Context, lookID int64, format string) (string, error) {
	id := strconv.FormatInt(lookID, 10)
	query := url.Values{
		"apply_formatting": {"false"},
		"apply_vis":        {"false"},
	}

	resp, err := c.transport.Get(ctx, "/looks/"+id+"/run/"+url.PathEscape(format), query)
	if err != nil {
		return "", errors.WrapResource("run", "look", id, err)
	}
	text, err := transport.ReadText(resp)
	if err != nil {
		return "", errors.WrapResource("run", "look", id, err)
	}
	return text, nil
}

// AllGroups lists every group. fields restricts the returned attributes.
func (c *Client) AllGroups(ctx context.Context, fields string) ([]Group, error) {
	var query url.Values
	if fields != "" {
		query = url.Values{"fields": {fields}}
	}

	resp, err := c.transport.Get(ctx, "/groups", query)
	if err != nil {
		return nil, errors.WrapResource("fetch", "groups", "", err)
	}
	var groups []Group
	if err := transport.DecodeResponse(resp, &groups); err != nil {
		return nil, errors.WrapResource("fetch", "groups", "", err)
	}
	return groups, nil
}

// AllUserAttributes lists every user attribute, including system attributes.
func (c *Client) AllUserAttributes(ctx context.Context) ([]UserAttribute, error) {
	resp, err := c.transport.Get(ctx, "/user_attributes", nil)
	if err != nil {
		return nil, errors.WrapResource("fetch", "user attributes", "", err)
	}
	var attrs []UserAttribute
	if err := transport.DecodeResponse(resp, &attrs); err != nil {
		return nil, errors.WrapResource("fetch", "user attributes", "", err)
	}
	return attrs, nil
}

// CreateUserAttribute creates a user attribute and returns it with its new ID.
func (c *Client) CreateUserAttribute(ctx context.Context, body WriteUserAttribute) (*UserAttribute, error) {
	resp, err := c.transport.SendJSON(ctx, http.MethodPost, "/user_attributes", body)
	if err != nil {
		return nil, errors.WrapResource("create", "user attribute", body.Name, err)
	}
	var created UserAttribute
	if err := transport.DecodeResponse(resp, &created); err != nil {
		return nil, errors.WrapResource("create", "user attribute", body.Name, err)
	}
	return &created, nil
}

// UpdateUserAttribute patches the type and/or default of a user attribute.
func (c *Client) UpdateUserAttribute(ctx context.Context, id ID, body UserAttributeUpdate) (*UserAttribute, error) {
	resp, err := c.transport.SendJSON(ctx, http.MethodPatch, "/user_attributes/"+id.String(), body)
	if err != nil {
		return nil, errors.WrapResource("update", "user attribute", id.String(), err)
	}
	var updated UserAttribute
	if err := transport.DecodeResponse(resp, &updated); err != nil {
		return nil, errors.WrapResource("update", "user attribute", id.String(), err)
	}
	return &updated, nil
}

// CreateGroup creates a group and returns it with its new ID.
func (c *Client) CreateGroup(ctx context.Context, body WriteGroup) (*Group, error) {
	resp, err := c.transport.SendJSON(ctx, http.MethodPost, "/groups", body)
	if err != nil {
		return nil, errors.WrapResource("create", "group", body.Name, err)
	}
	var created Group
	if err := transport.DecodeResponse(resp, &created); err != nil {
		return nil, errors.WrapResource("create", "group", body.Name, err)
	}
	return &created, nil
}

// SetUserAttributeGroupValues replaces every group value of a user
// attribute with values. Groups not listed lose their override.
func (c *Client) SetUserAttributeGroupValues(ctx context.Context, id ID, values []GroupValue) ([]UserAttributeGroupValue, error) {
	if values == nil {
		values = []GroupValue{}
	}
	resp, err := c.transport.SendJSON(ctx, http.MethodPost, "/user_attributes/"+id.String()+"/group_values", values)
	if err != nil {
		return nil, errors.WrapResource("set", "group values", id.String(), err)
	}
	var out []UserAttributeGroupValue
	if err := transport.DecodeResponse(resp, &out); err != nil {
		return nil, errors.WrapResource("set", "group values", id.String(), err)
	}
	return out, nil
}
