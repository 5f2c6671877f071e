package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database"
)

// migrateCmd runs the schema migration and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Run: func(cmd *cobra.Command, args []string) {
		config.InitConfig()
		cfg := config.Get()

		db, err := database.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		log.Println("Database migrated successfully")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
