// Package credentials obtains the Looker API credentials for the source of
// truth (dev) instance and the production instance. The two supported
// strategies, a local YAML file for interactive runs and process
// environment variables for triggered runs, sit behind Provider so the
// rest of lookersync never sees where secrets came from.
package credentials

import (
	"context"
	"fmt"

	"github.com/agentstation/lookersync/pkg/errors"
)

// Credentials for one Looker instance.
type Credentials struct {
	BaseURL      string `json:"base_url" yaml:"host"`
	ClientID     string `json:"client_id" yaml:"token"`
	ClientSecret string `json:"-" yaml:"secret"`
}

// Validate reports the first missing field.
func (c Credentials) Validate(name string) error {
	switch {
	case c.BaseURL == "":
		return errors.NewConfigError("credentials", fmt.Sprintf("%s: base URL is not set", name), errors.ErrCredentialsRequired)
	case c.ClientID == "":
		return errors.NewConfigError("credentials", fmt.Sprintf("%s: client id is not set", name), errors.ErrCredentialsRequired)
	case c.ClientSecret == "":
		return errors.NewConfigError("credentials", fmt.Sprintf("%s: client secret is not set", name), errors.ErrCredentialsRequired)
	}
	return nil
}

// Set holds credentials for both instances. Source is the instance that
// hosts the metadata Look and is also the dev environment.
type Set struct {
	Source     Credentials
	Production Credentials
}

// Validate checks both credential sets.
func (s Set) Validate() error {
	if err := s.Source.Validate("source"); err != nil {
		return err
	}
	return s.Production.Validate("production")
}

// Provider supplies a credential Set.
type Provider interface {
	// Name identifies the strategy in logs.
	Name() string
	Credentials(ctx context.Context) (Set, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Set, error)

// Name implements Provider.
func (f ProviderFunc) Name() string { return "func" }

// Credentials implements Provider.
func (f ProviderFunc) Credentials(ctx context.Context) (Set, error) { return f(ctx) }

// Static returns a Provider that always yields set.
func Static(set Set) Provider {
	return ProviderFunc(func(context.Context) (Set, error) { return set, set.Validate() })
}
