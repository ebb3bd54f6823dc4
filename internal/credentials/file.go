package credentials

import (
	"context"
	"os"

	"github.com/spf13/viper"

	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
)

// DefaultFile is the credentials file read in interactive mode.
const DefaultFile = "config.yml"

// FileProvider reads credentials from a YAML file shaped like
//
//	hosts:
//	  devdealerware:
//	    host: https://devdealerware.looker.com:19999/api/3.1
//	    token: <client id>
//	    secret: <client secret>
//	  insights:
//	    host: ...
type FileProvider struct {
	Path       string
	SourceHost string
	ProdHost   string
}

// NewFileProvider returns a FileProvider for path using the default host keys.
func NewFileProvider(path string) *FileProvider {
	if path == "" {
		path = DefaultFile
	}
	return &FileProvider{
		Path:       path,
		SourceHost: constants.HostKeyDev,
		ProdHost:   constants.HostKeyProd,
	}
}

// Name implements Provider.
func (p *FileProvider) Name() string { return "file" }

// Credentials implements Provider.
func (p *FileProvider) Credentials(ctx context.Context) (Set, error) {
	if _, err := os.Stat(p.Path); err != nil {
		return Set{}, errors.NewConfigError("credentials", "credentials file not readable", errors.WrapIO("open", p.Path, err))
	}

	v := viper.New()
	v.SetConfigFile(p.Path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Set{}, errors.NewConfigError("credentials", "cannot parse credentials file", errors.WrapParse("yaml", p.Path, err))
	}

	set := Set{
		Source:     hostCredentials(v, p.SourceHost),
		Production: hostCredentials(v, p.ProdHost),
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}

	logging.FromContext(ctx).Debug().
		Str("path", p.Path).
		Str("source", set.Source.BaseURL).
		Str("production", set.Production.BaseURL).
		Msg("Loaded credentials from file")
	return set, nil
}

func hostCredentials(v *viper.Viper, host string) Credentials {
	sub := v.Sub("hosts." + host)
	if sub == nil {
		return Credentials{}
	}
	return Credentials{
		BaseURL:      sub.GetString("host"),
		ClientID:     sub.GetString("token"),
		ClientSecret: sub.GetString("secret"),
	}
}
