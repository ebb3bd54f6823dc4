package credentials

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/lookersync/pkg/logging"
)

// Environment variable names used by triggered runs.
const (
	EnvSourceHost   = "host_name"
	EnvSourceToken  = "token"
	EnvSourceSecret = "secret"
	EnvProdHost     = "host_name_prod"
	EnvProdToken    = "token_prod"
	EnvProdSecret   = "secret_prod"
)

// EnvProvider reads credentials from process environment variables. Both
// the lower-case names the function runtime is configured with and their
// upper-case forms are accepted; lower-case wins.
type EnvProvider struct {
	// EnvFiles are loaded with godotenv before reading; missing files are ignored.
	EnvFiles []string
}

// NewEnvProvider returns an EnvProvider that also honors .env and .env.local.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{EnvFiles: []string{".env", ".env.local"}}
}

// Name implements Provider.
func (p *EnvProvider) Name() string { return "env" }

// Credentials implements Provider.
func (p *EnvProvider) Credentials(ctx context.Context) (Set, error) {
	for _, f := range p.EnvFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Str("file", f).Msg("Failed to load env file")
			}
		}
	}

	v := viper.New()
	for _, key := range []string{EnvSourceHost, EnvSourceToken, EnvSourceSecret, EnvProdHost, EnvProdToken, EnvProdSecret} {
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(key, key, strings.ToUpper(key))
	}

	set := Set{
		Source: Credentials{
			BaseURL:      v.GetString(EnvSourceHost),
			ClientID:     v.GetString(EnvSourceToken),
			ClientSecret: v.GetString(EnvSourceSecret),
		},
		Production: Credentials{
			BaseURL:      v.GetString(EnvProdHost),
			ClientID:     v.GetString(EnvProdToken),
			ClientSecret: v.GetString(EnvProdSecret),
		},
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}
