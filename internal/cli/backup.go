package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/backup/boltdb"
	"github.com/Ramsey-B/sorrel/pkg/logging"
)

// NewBackupCommand creates the backup command group.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Inspect snapshots of records destroyed by past runs",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "backup database (default BACKUP_BOLT_PATH)")

	open := func() (*boltdb.Storage, error) {
		if path == "" {
			cfg, _, err := rootOpts.load()
			if err != nil {
				return nil, err
			}
			path = cfg.BackupBoltPath
		}
		if path == "" {
			return nil, fmt.Errorf("no backup database configured")
		}
		return boltdb.New(path, logging.Nop())
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List runs with backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			runIDs, err := s.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range runIDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the backup of one run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.ReadBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	})

	return cmd
}
