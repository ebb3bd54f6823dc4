package lookersync

import (
	"context"

	"github.com/agentstation/lookersync/pkg/dispatch"
	"github.com/agentstation/lookersync/pkg/logging"
	"github.com/agentstation/lookersync/pkg/reconciler"
	"github.com/agentstation/lookersync/pkg/snapshot"
)

// Sync runs one full synchronization: connect, read the metadata table,
// and reconcile each environment in order.
func Sync(ctx context.Context, opts ...Option) (*dispatch.Report, error) {
	// Step 1: Parse options
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	logger.Info().
		Time("now", o.now()).
		Bool("dry_run", o.dryRun).
		Msg("Sync beginning execution")

	// Step 2: Build the reconciler before touching the network
	rec, err := reconciler.New(
		reconciler.WithClock(o.now),
		reconciler.WithDryRun(o.dryRun),
		reconciler.WithExcluded(o.excluded...),
	)
	if err != nil {
		return nil, err
	}

	// Step 3: Authenticate to both instances
	session, err := Connect(ctx, o.provider, o.connector)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("Failed to log out")
		}
	}()

	// Step 4: Select environments
	envs, err := dispatch.Filter(session.Environments(), o.environments...)
	if err != nil {
		return nil, err
	}

	// Step 5: Read the shared metadata table once
	rows, err := session.Table(ctx, o.lookID)
	if err != nil {
		return nil, err
	}

	// Step 6: Reconcile each environment
	d := dispatch.New(rec,
		dispatch.WithDryRun(o.dryRun),
		dispatch.WithSnapshotOptions(snapshot.WithExcluded(o.excluded...)),
	)
	report, err := d.Run(ctx, rows, envs)
	if err != nil {
		return report, err
	}

	logger.Info().
		Bool("changes", report.HasChanges()).
		Msg(report.Summary())
	return report, nil
}
