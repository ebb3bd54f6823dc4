package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lookersync"
	"github.com/agentstation/lookersync/internal/credentials"
	"github.com/agentstation/lookersync/internal/looker/lookertest"
	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/dispatch"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
)

const table = "Dealerware OEM Metadata OEM Dealer Grp Name\tDealerware OEM Metadata User Attribute Name\tDealerware OEM Metadata User Attribute Type\tDealerware OEM Metadata User Attribute Default Value\tDealerware OEM Metadata User Attribute Value\tDealerware OEM Metadata URL Dev\tDealerware OEM Metadata URL Prod\n" +
	"Acme\ttier\tstring\tbasic\tgold\thttps://dev.example.com\thttps://prod.example.com\n"

var testCreds = credentials.Set{
	Source:     credentials.Credentials{BaseURL: "https://dev.example.com", ClientID: "a", ClientSecret: "b"},
	Production: credentials.Credentials{BaseURL: "https://prod.example.com", ClientID: "c", ClientSecret: "d"},
}

type fixture struct {
	app  *App
	dev  *lookertest.Fake
	prod *lookertest.Fake
	out  *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{dev: lookertest.New(), prod: lookertest.New(), out: &bytes.Buffer{}}
	for _, f := range []*lookertest.Fake{fx.dev, fx.prod} {
		f.AddAttribute(constants.AttributeFirstOfMonth, "string", "")
		f.AddAttribute(constants.AttributeLastOfMonth, "string", "")
	}
	fx.dev.Table = table

	connector := func(_ context.Context, creds credentials.Credentials) (lookersync.Instance, error) {
		if creds.BaseURL == testCreds.Source.BaseURL {
			return fx.dev, nil
		}
		return fx.prod, nil
	}

	app, err := New("1.0.0", "abc123", "2024-01-01", "test",
		WithLogger(logging.NewNopLogger()),
		WithOutput(fx.out),
		WithProvider(credentials.Static(testCreds)),
		WithConnector(connector),
	)
	require.NoError(t, err)
	fx.app = app
	return fx
}

func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	require.NotNil(t, app.Config())
	assert.EqualValues(t, constants.MetadataLookID, app.Config().LookID)
}

func TestApp_Provider(t *testing.T) {
	app, err := New("dev", "", "", "")
	require.NoError(t, err)

	app.config.Credentials = CredentialsFile
	p, err := app.Provider()
	require.NoError(t, err)
	assert.IsType(t, &credentials.FileProvider{}, p)

	app.config.Credentials = CredentialsEnv
	p, err = app.Provider()
	require.NoError(t, err)
	assert.IsType(t, &credentials.EnvProvider{}, p)

	app.config.Credentials = "vault"
	_, err = app.Provider()
	assert.True(t, errors.IsValidationError(err))
}

func TestApp_SessionReused(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	s1, err := fx.app.Session(ctx)
	require.NoError(t, err)
	s2, err := fx.app.Session(ctx)
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	require.NoError(t, fx.app.Shutdown(ctx))
	s3, err := fx.app.Session(ctx)
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
}

func TestExecute_SyncJSON(t *testing.T) {
	fx := newFixture(t)

	err := fx.app.Execute(context.Background(), []string{"sync", "-o", "json"})
	require.NoError(t, err)

	var report dispatch.Report
	require.NoError(t, json.Unmarshal(fx.out.Bytes(), &report))
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Results, 2)
	assert.Equal(t, constants.EnvironmentDev, report.Results[0].Environment)

	_, ok := fx.prod.Attribute("tier")
	assert.True(t, ok)
}

func TestExecute_RootCommandSyncs(t *testing.T) {
	fx := newFixture(t)

	err := fx.app.Execute(context.Background(), []string{"-o", "table"})
	require.NoError(t, err)
	assert.Contains(t, fx.out.String(), "tier")
	assert.Contains(t, fx.out.String(), "2 environments reconciled")
}

func TestExecute_SyncDryRun(t *testing.T) {
	fx := newFixture(t)

	err := fx.app.Execute(context.Background(), []string{"sync", "--dry-run", "--env", "prod", "-o", "yaml"})
	require.NoError(t, err)
	assert.Contains(t, fx.out.String(), "dry_run: true")
	assert.Empty(t, fx.prod.Writes())
	assert.Empty(t, fx.dev.Writes())
}

func TestExecute_SyncUnknownEnvironment(t *testing.T) {
	fx := newFixture(t)

	err := fx.app.Execute(context.Background(), []string{"sync", "--env", "staging"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestExecute_Table(t *testing.T) {
	fx := newFixture(t)

	err := fx.app.Execute(context.Background(), []string{"table", "-o", "json"})
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(fx.out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "tier", rows[0][constants.ColumnAttributeName])
	assert.Empty(t, fx.dev.Writes())
}

func TestExecute_LookIDFlag(t *testing.T) {
	fx := newFixture(t)

	err := fx.app.Execute(context.Background(), []string{"table", "--look-id", "42", "-o", "json"})
	require.NoError(t, err)
	runs := fx.dev.Calls(lookertest.MethodRunLook)
	require.Len(t, runs, 1)
	assert.EqualValues(t, 42, runs[0].ID)
}

func TestExecute_Snapshot(t *testing.T) {
	fx := newFixture(t)
	fx.prod.AddGroup("Acme")
	fx.prod.AddAttribute("locale", "string", "en")

	err := fx.app.Execute(context.Background(), []string{"snapshot", "prod", "-o", "json"})
	require.NoError(t, err)

	var snap struct {
		Groups     map[string]int64 `json:"groups"`
		Attributes map[string]any   `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(fx.out.Bytes(), &snap))
	assert.Contains(t, snap.Groups, "Acme")
	assert.Contains(t, snap.Attributes, constants.AttributeFirstOfMonth)
	assert.NotContains(t, snap.Attributes, "locale")
}

func TestExecute_SnapshotRequiresEnvironment(t *testing.T) {
	fx := newFixture(t)

	assert.Error(t, fx.app.Execute(context.Background(), []string{"snapshot"}))
	assert.Error(t, fx.app.Execute(context.Background(), []string{"snapshot", "staging"}))
}

func TestExecute_Version(t *testing.T) {
	fx := newFixture(t)

	require.NoError(t, fx.app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, fx.out.String(), "lookersync version 1.0.0")
	assert.Contains(t, fx.out.String(), "commit: abc123")
}

func TestFailureHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "credentials", err: errors.NewConfigError("credentials", "token is not set", errors.ErrCredentialsRequired), want: "host_name"},
		{name: "rate limited", err: errors.NewAPIError("x", 429, "slow down"), want: "rate limit"},
		{name: "unavailable", err: errors.NewSyncError("prod", "snapshot", errors.NewAPIError("x", 502, "bad gateway")), want: "unavailable"},
		{name: "already exists", err: errors.WrapResource("create", "group", "Acme", errors.NewAPIError("x", 409, "dup")), want: "rerun"},
		{name: "not found", err: errors.NewNotFoundError("group", "All Users"), want: "All Users"},
		{name: "invalid", err: errors.NewValidationError("environment", "qa", "unknown environment"), want: "Invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, failureHint(tt.err), tt.want)
		})
	}
	assert.Empty(t, failureHint(context.DeadlineExceeded))
}

func TestExecute_MissingMonthAttributeFails(t *testing.T) {
	fx := newFixture(t)
	// a fresh fake has All Users but no month attributes
	fx.dev = lookertest.New()
	fx.dev.Table = table
	require.NoError(t, WithConnector(func(_ context.Context, creds credentials.Credentials) (lookersync.Instance, error) {
		if creds.BaseURL == testCreds.Source.BaseURL {
			return fx.dev, nil
		}
		return fx.prod, nil
	})(fx.app))

	err := fx.app.Execute(context.Background(), []string{"sync", "-o", "json", "-q"})
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.Classify(err))
}
