package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/storage/db"
	"github.com/yeisme/chunkvault/pkg/internal/store"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the file metadata table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()

			client, err := db.New(cmd.Context(), &cfg.DB, db.Options{})
			if err != nil {
				return err
			}
			defer client.Close()

			if err := store.NewMetadataStore(client).AutoMigrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", cfg.DB.GetDBType())

			return nil
		},
	}
)

func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(newListCmd("database", func() []string { return names(db.GetRegisteredDBTypes()) }))
	dbCmd.AddCommand(dbMigrateCmd)
}
