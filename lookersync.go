// Package lookersync keeps the access-control metadata of two Looker
// instances (user attributes, groups and per-group attribute values) in
// line with a single authoritative saved Look.
//
// A run obtains credentials, logs in to the source and production
// instances, reads the metadata table from the source instance, and then
// reconciles each environment in turn. Nothing is ever deleted.
package lookersync

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/internal/looker"
	"github.com/agentstation/lookersync/internal/transport"
	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/dispatch"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
	"github.com/agentstation/lookersync/pkg/metadata"
	"github.com/agentstation/lookersync/pkg/snapshot"
)

// Instance is an authenticated connection to one Looker instance.
type Instance interface {
	dispatch.Client
	metadata.LookRunner
	BaseURL() string
	Logout(ctx context.Context) error
}

// Connector logs in to a Looker instance.
type Connector func(ctx context.Context, creds credentials.Credentials) (Instance, error)

// DefaultConnector returns a Connector backed by the Looker REST API with
// the given request timeout.
func DefaultConnector(timeout time.Duration) Connector {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return func(ctx context.Context, creds credentials.Credentials) (Instance, error) {
		client, err := looker.Connect(ctx, creds.BaseURL, creds.ClientID, creds.ClientSecret,
			transport.WithHTTPClient(&http.Client{Timeout: timeout}))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Session holds the two authenticated instances of a run. The source
// instance hosts the metadata Look and is also the dev environment.
type Session struct {
	Source     Instance
	Production Instance
}

// Connect obtains credentials from provider and logs in to both instances.
// A login failure aborts immediately.
func Connect(ctx context.Context, provider credentials.Provider, connect Connector) (*Session, error) {
	if provider == nil {
		return nil, &errors.ValidationError{Field: "provider", Message: "cannot be nil"}
	}
	if connect == nil {
		connect = DefaultConnector(0)
	}

	logger := logging.FromContext(ctx)
	set, err := provider.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("provider", provider.Name()).Msg("Obtained credentials")

	source, err := connect(logging.WithInstance(ctx, set.Source.BaseURL), set.Source)
	if err != nil {
		return nil, err
	}
	production, err := connect(logging.WithInstance(ctx, set.Production.BaseURL), set.Production)
	if err != nil {
		if logoutErr := source.Logout(ctx); logoutErr != nil {
			logger.Warn().Err(logoutErr).Msg("Failed to log out of source instance")
		}
		return nil, err
	}

	logger.Info().
		Str("source", source.BaseURL()).
		Str("production", production.BaseURL()).
		Msg("Authenticated to Looker instances")
	return &Session{Source: source, Production: production}, nil
}

// Environments returns dev and prod bound to this session's instances.
func (s *Session) Environments() []dispatch.Environment {
	return dispatch.DefaultEnvironments(s.Source, s.Production)
}

// Instance returns the instance serving the named environment.
func (s *Session) Instance(env string) (Instance, error) {
	switch strings.ToLower(env) {
	case constants.EnvironmentDev:
		return s.Source, nil
	case constants.EnvironmentProd:
		return s.Production, nil
	}
	return nil, errors.NewValidationError("environment", env, "unknown environment")
}

// Table reads the metadata table from the source instance.
func (s *Session) Table(ctx context.Context, lookID int64) ([]metadata.Row, error) {
	return metadata.NewReader(s.Source, lookID).Read(ctx)
}

// Snapshot fetches the current state of the named environment.
func (s *Session) Snapshot(ctx context.Context, env string, opts ...snapshot.Option) (*snapshot.Snapshot, error) {
	inst, err := s.Instance(env)
	if err != nil {
		return nil, err
	}
	return snapshot.Fetch(logging.WithEnvironment(ctx, env), inst, opts...)
}

// Close logs out of both instances.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	for _, inst := range []Instance{s.Source, s.Production} {
		if inst == nil {
			continue
		}
		if err := inst.Logout(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
