package cmd

import (
	"fmt"

	"github.com/kevinaaaquil/lexireader/library"
	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Move books from the legacy key-value record into the document store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStores(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer st.Close(a.log)

			m := library.NewMigrator(st.kv, st.db)
			books, err := m.Run(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if m.Migrated() {
				fmt.Fprintf(out, "Migrated %d books from %s\n", len(books), library.LegacyBooksKey)
			} else {
				fmt.Fprintf(out, "Nothing to migrate; %d books in the document store\n", len(books))
			}
			return nil
		},
	}
}
