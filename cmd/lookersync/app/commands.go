package app

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/lookersync"
	"github.com/agentstation/lookersync/internal/output"
	"github.com/agentstation/lookersync/pkg/logging"
)

// NewSyncCommand creates the sync command.
func (a *App) NewSyncCommand() *cobra.Command {
	var (
		dryRun bool
		envs   []string
	)
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Reconcile attributes and groups on every instance",
		Long: `Sync reads the metadata table and reconciles each environment in order:
dev first, then prod. With --dry-run nothing is written and the report
shows what would change.`,
		Example: `  lookersync sync
  lookersync sync --dry-run -o yaml
  lookersync sync --env prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd.Context(), dryRun, envs)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute changes without writing them")
	cmd.Flags().StringSliceVar(&envs, "env", nil, "environments to reconcile (default all): dev, prod")
	return cmd
}

// runSync performs one sync and prints its report.
func (a *App) runSync(ctx context.Context, dryRun bool, envs []string) error {
	opts, err := a.syncOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		lookersync.WithDryRun(dryRun),
		lookersync.WithEnvironments(envs...),
	)

	report, syncErr := lookersync.Sync(ctx, opts...)
	if report != nil {
		if err := a.print(report, output.ReportData(report)); err != nil {
			return err
		}
		if a.format() == output.FormatTable {
			fmt.Fprintln(a.out, report.Summary())
		}
	}
	return syncErr
}

// NewTableCommand creates the table command.
func (a *App) NewTableCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "table",
		GroupID: "inspect",
		Short:   "Print the metadata table",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.Session(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := session.Table(cmd.Context(), a.config.LookID)
			if err != nil {
				return err
			}
			logging.FromContext(cmd.Context()).Debug().Int("rows", len(rows)).Msg("Read metadata table")
			return a.print(rows, output.RowsData(rows, defaultTableColumns()...))
		},
	}
}

// NewSnapshotCommand creates the snapshot command.
func (a *App) NewSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "snapshot <env>",
		GroupID:   "inspect",
		Short:     "Print the groups and user attributes of one instance",
		Example:   "  lookersync snapshot dev -o json",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"dev", "prod"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.Session(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := session.Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(snap, output.SnapshotData(snap))
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "lookersync version %s\n", a.version)
			fmt.Fprintf(a.out, "commit: %s\n", a.commit)
			fmt.Fprintf(a.out, "built: %s\n", a.date)
			fmt.Fprintf(a.out, "built by: %s\n", a.builtBy)
			fmt.Fprintf(a.out, "go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// format returns the effective output format.
func (a *App) format() output.Format {
	return output.DetectFormat(a.config.Format)
}

// print writes v in the configured format; tables render the given data.
func (a *App) print(v any, table output.Data) error {
	format, err := output.ParseFormat(string(a.format()))
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		return output.NewFormatter(format).Format(a.out, table)
	}
	return output.NewFormatter(format).Format(a.out, v)
}
