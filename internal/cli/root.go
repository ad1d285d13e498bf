// Package cli implements the sorrel command line
package cli

import (
	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/config"
	"github.com/Ramsey-B/sorrel/pkg/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
}

// NewRootCommand creates the root command for the sorrel CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "sorrel",
		Short:         "Merge duplicate records in a document collection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "env files to load before the process environment (default .env)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

// load reads the configuration and builds the service logger
func (o *RootOptions) load() (*config.Config, ectologger.Logger, error) {
	cfg, err := config.Load(o.EnvFiles...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
