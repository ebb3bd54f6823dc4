package app

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentstation/lookersync/pkg/constants"
	"github.com/agentstation/lookersync/pkg/errors"
	"github.com/agentstation/lookersync/pkg/logging"
)

// Execute runs the lookersync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.out)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		a.reportFailure(err)
		return err
	}
	return nil
}

// reportFailure logs the kind of a failed command with a suggested next step.
func (a *App) reportFailure(err error) {
	msg := failureHint(err)
	if msg == "" {
		msg = "Command failed"
	}
	a.logger.Error().
		Err(err).
		Str("kind", errors.Classify(err)).
		Msg(msg)
}

// failureHint suggests a next step for the failures an operator can act on.
func failureHint(err error) string {
	switch {
	case errors.IsCanceled(err):
		return "Interrupted; the run stopped partway and can be rerun safely"
	case errors.IsCredentialsError(err):
		return "Check the hosts section of the config file or the host_name, token and secret variables"
	case errors.IsRateLimited(err):
		return "Looker rate limit reached; rerun later"
	case errors.IsInstanceUnavailable(err):
		return "Looker instance unavailable; rerun later"
	case errors.IsAlreadyExists(err):
		return "An object was created by someone else during the run; rerun to pick it up"
	case errors.IsNotFound(err):
		return "A required group or user attribute is missing; check All Users, first_of_month and last_of_month"
	case errors.IsValidationError(err):
		return "Invalid input; check flags and the metadata table"
	}
	return ""
}

// createRootCommand creates the root cobra command with all subcommands.
// Running the root command without a subcommand performs a full sync.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "lookersync",
		Short:   "Sync Looker user attributes and groups from the metadata Look",
		Version: a.version,
		Long: `lookersync reads the OEM dealer group metadata table from a saved Look
and reconciles user attributes, groups and group-scoped attribute values
on the dev and prod Looker instances to match it.

It also sets the first_of_month and last_of_month attributes to the
current calendar month on every run.`,
		PersistentPreRunE: a.setupCommand,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd.Context(), false, nil)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "inspect",
		Title: "Inspection Commands:",
	})

	// Flags are read back in setupCommand so --config can trigger a reload
	flags := rootCmd.PersistentFlags()
	flags.String("config", a.config.ConfigFile, "config file holding instance credentials and settings")
	flags.String("credentials", a.config.Credentials, "credentials source: file, env")
	flags.Int64("look-id", a.config.LookID, "saved Look holding the metadata table")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("lookersync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// These flags are defined as persistent flags in createRootCommand, so errors indicate programming errors
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")
	configFile := mustGetString(cmd, "config")
	creds := mustGetString(cmd, "credentials")

	if err := a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel, configFile, creds); err != nil {
		return err
	}
	if cmd.Flags().Changed("look-id") {
		lookID, err := cmd.Flags().GetInt64("look-id")
		if err != nil {
			return err
		}
		a.config.LookID = lookID
	}

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithLogger(ctx, a.logger)
	ctx = logging.WithRunID(ctx, uuid.NewString())
	cmd.SetContext(ctx)

	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.NewSyncCommand())

	// Inspection commands
	rootCmd.AddCommand(a.NewTableCommand())
	rootCmd.AddCommand(a.NewSnapshotCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// defaultTableColumns is the column order used when printing the metadata table.
func defaultTableColumns() []string {
	return []string{
		constants.ColumnGroupName,
		constants.ColumnAttributeName,
		constants.ColumnAttributeType,
		constants.ColumnAttributeDefault,
		constants.ColumnAttributeValue,
		constants.ColumnURLDev,
		constants.ColumnURLProd,
	}
}
