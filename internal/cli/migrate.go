package cli

import (
	"log"

	"storefront/internal/database"

	"github.com/spf13/cobra"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, _, err := openStore()
			if err != nil {
				return err
			}
			defer database.Close(db)
			log.Println("Database schema is up to date")
			return nil
		},
	}
}
