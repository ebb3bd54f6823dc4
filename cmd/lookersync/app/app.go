// Package app provides the application context and dependency management
// for the lookersync CLI. It centralizes configuration, logging, and the
// Looker session lifecycle.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/lookersync"
	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/pkg/errors"
)

// App represents the lookersync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	// Overrides used by tests; nil selects the configured defaults.
	provider  credentials.Provider
	connector lookersync.Connector

	// Open session, closed on shutdown
	mu      sync.Mutex
	session *lookersync.Session
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Provider returns the credentials provider selected by configuration.
func (a *App) Provider() (credentials.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	switch a.config.Credentials {
	case "", CredentialsFile:
		return credentials.NewFileProvider(a.config.ConfigFile), nil
	case CredentialsEnv:
		return credentials.NewEnvProvider(), nil
	}
	return nil, &errors.ValidationError{
		Field:   "credentials",
		Value:   a.config.Credentials,
		Message: "must be one of: file, env",
	}
}

// syncOptions builds the options shared by every command that talks to Looker.
func (a *App) syncOptions() ([]lookersync.Option, error) {
	provider, err := a.Provider()
	if err != nil {
		return nil, err
	}
	opts := []lookersync.Option{
		lookersync.WithProvider(provider),
		lookersync.WithLookID(a.config.LookID),
	}
	if a.connector != nil {
		opts = append(opts, lookersync.WithConnector(a.connector))
	} else {
		opts = append(opts, lookersync.WithHTTPTimeout(a.config.HTTPTimeout))
	}
	return opts, nil
}

// Session logs in to both instances, reusing an open session.
func (a *App) Session(ctx context.Context) (*lookersync.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}

	provider, err := a.Provider()
	if err != nil {
		return nil, err
	}
	connector := a.connector
	if connector == nil {
		connector = lookersync.DefaultConnector(a.config.HTTPTimeout)
	}
	session, err := lookersync.Connect(ctx, provider, connector)
	if err != nil {
		return nil, err
	}
	a.session = session
	return session, nil
}

// Shutdown logs out of any open session.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Close(ctx)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithProvider overrides the credentials provider.
func WithProvider(p credentials.Provider) Option {
	return func(a *App) error {
		a.provider = p
		return nil
	}
}

// WithConnector overrides how Looker instances are logged in to.
func WithConnector(c lookersync.Connector) Option {
	return func(a *App) error {
		a.connector = c
		return nil
	}
}
