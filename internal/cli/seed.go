package cli

import (
	"storefront/internal/database"
	"storefront/internal/seed"

	"github.com/spf13/cobra"
)

func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo categories, products, accounts and reviews",
		Long: `Load the demo catalog into an empty database.

Creates admin@example.com (password admin123) and user@example.com
(password user123). Does nothing when categories already exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, store, err := openStore()
			if err != nil {
				return err
			}
			defer database.Close(db)
			return seed.Run(cmd.Context(), store)
		},
	}
}
