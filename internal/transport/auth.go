package transport

import (
	"net/http"
	"sync"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth applies no authentication. New falls back to it when given a nil
// Authenticator.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// TokenAuth sends a Looker access token using the "token" scheme the
// Looker API documents for session tokens.
type TokenAuth struct {
	mu    sync.RWMutex
	token string
}

// NewTokenAuth returns a TokenAuth with an initial token, which may be empty.
func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

// SetToken replaces the token used for subsequent requests.
func (a *TokenAuth) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Token returns the current token.
func (a *TokenAuth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request) {
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
}
