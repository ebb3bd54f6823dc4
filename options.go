package lookersync

import (
	"time"

	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
)

// options configures a sync run.
type options struct {
	provider     credentials.Provider
	connector    Connector
	lookID       int64
	dryRun       bool
	environments []string
	excluded     []string
	now          func() time.Time
}

func defaultOptions() *options {
	return &options{
		provider:  credentials.NewFileProvider(""),
		connector: DefaultConnector(constants.DefaultHTTPTimeout),
		lookID:    constants.MetadataLookID,
		excluded:  constants.ExcludedAttributes(),
		now:       time.Now,
	}
}

// Option is a function that configures a sync run.
type Option func(*options) error

func newOptions(opts ...Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithProvider sets where credentials come from. The default reads
// config.yml from the working directory.
func WithProvider(p credentials.Provider) Option {
	return func(o *options) error {
		if p == nil {
			return &errors.ValidationError{Field: "provider", Message: "cannot be nil"}
		}
		o.provider = p
		return nil
	}
}

// WithConnector replaces how instances are logged in to.
func WithConnector(c Connector) Option {
	return func(o *options) error {
		if c == nil {
			return &errors.ValidationError{Field: "connector", Message: "cannot be nil"}
		}
		o.connector = c
		return nil
	}
}

// WithHTTPTimeout sets the per-request timeout of the default connector.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.connector = DefaultConnector(d)
		return nil
	}
}

// WithLookID sets the saved Look holding the metadata table.
func WithLookID(id int64) Option {
	return func(o *options) error {
		if id <= 0 {
			return errors.NewValidationError("look_id", id, "must be positive")
		}
		o.lookID = id
		return nil
	}
}

// WithDryRun plans changes without writing them.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithEnvironments restricts the run to the named environments.
func WithEnvironments(names ...string) Option {
	return func(o *options) error {
		o.environments = names
		return nil
	}
}

// WithExcluded replaces the attribute names that are never touched.
func WithExcluded(names ...string) Option {
	return func(o *options) error {
		o.excluded = names
		return nil
	}
}

// WithClock sets the clock used for month boundaries.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		o.now = now
		return nil
	}
}
