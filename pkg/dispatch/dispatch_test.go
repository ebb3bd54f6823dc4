package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/lookersync/internal/looker/lookertest"
	"github.com/agentstation/lookersync/pkg/constants"
	pkgerrors "github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
	"github.com/agentstation/lookersync/pkg/metadata"
	"github.com/agentstation/lookersync/pkg/reconciler"
)

func newInstance() *lookertest.Fake {
	f := lookertest.New()
	f.AddAttribute(constants.AttributeFirstOfMonth, "string", "")
	f.AddAttribute(constants.AttributeLastOfMonth, "string", "")
	return f
}

func newDispatcher(t *testing.T, dryRun bool, opts ...Option) *Dispatcher {
	t.Helper()
	r, err := reconciler.New(
		reconciler.WithClock(func() time.Time { return time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC) }),
		reconciler.WithDryRun(dryRun),
	)
	require.NoError(t, err)
	return New(r, append([]Option{WithDryRun(dryRun)}, opts...)...)
}

var rows = []metadata.Row{
	{
		constants.ColumnGroupName:        "Acme",
		constants.ColumnAttributeName:    "tier",
		constants.ColumnAttributeType:    "string",
		constants.ColumnAttributeDefault: "basic",
		constants.ColumnAttributeValue:   "gold",
		constants.ColumnURLDev:           "https://dev.example.com",
		constants.ColumnURLProd:          "",
	},
	{
		constants.ColumnGroupName:        "Beta",
		constants.ColumnAttributeName:    "region",
		constants.ColumnAttributeType:    "string",
		constants.ColumnAttributeDefault: "us",
		constants.ColumnAttributeValue:   "eu",
		constants.ColumnURLDev:           "https://dev.example.com",
		constants.ColumnURLProd:          "https://prod.example.com",
	},
}

func TestRun(t *testing.T) {
	dev, prod := newInstance(), newInstance()
	d := newDispatcher(t, false)

	ctx := logging.WithRunID(context.Background(), "run-1")
	report, err := d.Run(ctx, rows, DefaultEnvironments(dev, prod))
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "dev", report.Results[0].Environment)
	assert.Equal(t, "prod", report.Results[1].Environment)
	assert.Equal(t, "run-1", report.RunID)
	assert.True(t, report.HasChanges())

	_, ok := dev.Attribute("tier")
	assert.True(t, ok)
	_, ok = prod.Attribute("tier")
	assert.False(t, ok)
	_, ok = prod.Attribute("region")
	assert.True(t, ok)

	devResult, ok := report.Result("dev")
	require.True(t, ok)
	assert.Len(t, devResult.CreatedAttributes, 2)
	assert.Contains(t, report.Summary(), "2 environments reconciled")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	dev, prod := newInstance(), newInstance()
	boom := errors.New("boom")
	dev.FailOn(lookertest.MethodCreateUserAttribute, boom)
	d := newDispatcher(t, false)

	report, err := d.Run(context.Background(), rows, DefaultEnvironments(dev, prod))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var syncErr *pkgerrors.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "dev", syncErr.Environment)
	assert.Equal(t, StepReconcile, syncErr.Step)

	assert.Empty(t, report.Results)
	assert.Empty(t, prod.Calls(), "prod must not be touched after dev fails")
}

func TestRunSnapshotFailure(t *testing.T) {
	dev, prod := newInstance(), newInstance()
	prod.FailOn(lookertest.MethodAllGroups, pkgerrors.NewAPIError("prod", 503, "down"))
	d := newDispatcher(t, false)

	report, err := d.Run(context.Background(), rows, DefaultEnvironments(dev, prod))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInstanceUnavailable(err))

	var syncErr *pkgerrors.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "prod", syncErr.Environment)
	assert.Equal(t, StepSnapshot, syncErr.Step)
	assert.Len(t, report.Results, 1)
}

func TestRunNilClient(t *testing.T) {
	d := newDispatcher(t, false)
	_, err := d.Run(context.Background(), rows, []Environment{{Name: "dev", URLColumn: constants.ColumnURLDev}})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestRunDryRun(t *testing.T) {
	dev, prod := newInstance(), newInstance()
	d := newDispatcher(t, true)

	report, err := d.Run(context.Background(), rows, DefaultEnvironments(dev, prod))
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.True(t, report.HasChanges())
	assert.Empty(t, dev.Writes())
	assert.Empty(t, prod.Writes())
}

func TestFilter(t *testing.T) {
	envs := DefaultEnvironments(newInstance(), newInstance())

	got, err := Filter(envs)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = Filter(envs, "PROD")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, constants.ColumnURLProd, got[0].URLColumn)

	_, err = Filter(envs, "staging")
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestReportEmpty(t *testing.T) {
	r := &Report{}
	assert.False(t, r.HasChanges())
	assert.Equal(t, "No environments reconciled", r.Summary())
	_, ok := r.Result("dev")
	assert.False(t, ok)
}
