// Package dispatch runs one reconciliation pass per Looker environment, in
// order, stopping at the first failure.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
	"github.com/agentstation/lookersync/pkg/metadata"
	"github.com/agentstation/lookersync/pkg/reconciler"
	"github.com/agentstation/lookersync/pkg/snapshot"
)

// Steps named in SyncError.
const (
	StepSnapshot  = "snapshot"
	StepReconcile = "reconcile"
)

// Client reads and writes one Looker environment. *looker.Client
// implements it.
type Client interface {
	snapshot.Source
	reconciler.Client
}

// Environment is one Looker instance to bring in line with the metadata table.
type Environment struct {
	Name string
	// URLColumn is the metadata column that marks rows for this environment.
	URLColumn string
	Client    Client
}

// DefaultEnvironments returns dev and prod, in that order.
func DefaultEnvironments(dev, prod Client) []Environment {
	return []Environment{
		{Name: constants.EnvironmentDev, URLColumn: constants.ColumnURLDev, Client: dev},
		{Name: constants.EnvironmentProd, URLColumn: constants.ColumnURLProd, Client: prod},
	}
}

// Filter returns the environments whose name is in names, keeping order.
// An empty names keeps all of them.
func Filter(envs []Environment, names ...string) ([]Environment, error) {
	if len(names) == 0 {
		return envs, nil
	}
	var out []Environment
	for _, name := range names {
		found := false
		for _, env := range envs {
			if strings.EqualFold(env.Name, name) {
				out = append(out, env)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NewValidationError("environment", name, "unknown environment")
		}
	}
	return out, nil
}

// Report collects the per-environment results of a run.
type Report struct {
	RunID     string               `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	DryRun    bool                 `json:"dry_run" yaml:"dry_run"`
	Results   []*reconciler.Result `json:"results" yaml:"results"`
	StartTime time.Time            `json:"start_time" yaml:"start_time"`
	EndTime   time.Time            `json:"end_time" yaml:"end_time"`
	Duration  time.Duration        `json:"duration" yaml:"duration"`
}

// HasChanges returns true if any environment had structural changes.
func (r *Report) HasChanges() bool {
	for _, res := range r.Results {
		if res.HasChanges() {
			return true
		}
	}
	return false
}

// Result returns the result for the named environment.
func (r *Report) Result(env string) (*reconciler.Result, bool) {
	for _, res := range r.Results {
		if res.Environment == env {
			return res, true
		}
	}
	return nil, false
}

// Summary returns a human-readable summary of the run.
func (r *Report) Summary() string {
	if len(r.Results) == 0 {
		return "No environments reconciled"
	}
	parts := make([]string, len(r.Results))
	for i, res := range r.Results {
		parts[i] = res.Summary()
	}
	return fmt.Sprintf("%d environments reconciled; %s", len(r.Results), strings.Join(parts, "; "))
}

// Dispatcher runs the reconciler against each environment.
type Dispatcher struct {
	reconciler   reconciler.Reconciler
	snapshotOpts []snapshot.Option
	dryRun       bool
	now          func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSnapshotOptions passes options to every snapshot fetch.
func WithSnapshotOptions(opts ...snapshot.Option) Option {
	return func(d *Dispatcher) {
		d.snapshotOpts = append(d.snapshotOpts, opts...)
	}
}

// WithDryRun marks the report as a dry run. The reconciler must be built
// with reconciler.WithDryRun for writes to be skipped.
func WithDryRun(enabled bool) Option {
	return func(d *Dispatcher) {
		d.dryRun = enabled
	}
}

// WithClock sets the clock used for report timing.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New returns a Dispatcher.
func New(r reconciler.Reconciler, opts ...Option) *Dispatcher {
	d := &Dispatcher{reconciler: r, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run performs one pass per environment in order. A failure aborts the run
// and is returned as a *errors.SyncError naming the environment; the report
// holds the results of the environments that completed before it.
func (d *Dispatcher) Run(ctx context.Context, rows []metadata.Row, envs []Environment) (*Report, error) {
	report := &Report{
		RunID:     logging.RunID(ctx),
		DryRun:    d.dryRun,
		StartTime: d.now(),
	}
	defer func() {
		report.EndTime = d.now()
		report.Duration = report.EndTime.Sub(report.StartTime)
	}()

	for _, env := range envs {
		envCtx := logging.WithEnvironment(ctx, env.Name)
		logger := logging.FromContext(envCtx)
		logger.Info().Msg("Reconciling environment")

		if env.Client == nil {
			return report, errors.NewSyncError(env.Name, StepSnapshot,
				&errors.ValidationError{Field: "client", Message: "cannot be nil"})
		}

		snap, err := snapshot.Fetch(envCtx, env.Client, d.snapshotOpts...)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to fetch snapshot")
			return report, errors.NewSyncError(env.Name, StepSnapshot, err)
		}

		result, err := d.reconciler.Reconcile(envCtx, rows, snap, reconciler.Target{
			Name:      env.Name,
			URLColumn: env.URLColumn,
			Client:    env.Client,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Reconciliation failed")
			return report, errors.NewSyncError(env.Name, StepReconcile, err)
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}
