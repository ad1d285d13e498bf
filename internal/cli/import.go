package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/internal/app"
	"github.com/Ramsey-B/sorrel/internal/repositories/document"
	"github.com/Ramsey-B/sorrel/pkg/store"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "import <documents.json>",
		Short: "Load a JSON array of documents into the Postgres store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := store.ReadDocumentsFile(args[0])
			if err != nil {
				return err
			}

			cfg, logger, err := rootOpts.load()
			if err != nil {
				return err
			}
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			if collection == "" {
				collection = a.Policy().Collection
			}

			db, err := a.ConnectDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			repo := document.NewRepository(db, cfg.StorePageSize, logger)
			if err := repo.Insert(cmd.Context(), collection, docs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents into %s\n", len(docs), collection)
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "target collection (default the policy collection)")
	return cmd
}
