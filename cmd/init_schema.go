package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/config"
	"github.com/senjoyee/ewa-mcp/database"
)

// initSchemaCmd drops and recreates the Weaviate classes. All indexed
// documents, chunks and alerts are lost.
var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Recreate the Weaviate schema from scratch",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		logger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
		defer logger.Sync()

		store, err := database.NewWeaviateStore(cfg.WeaviateConfig, logger)
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate: %v", err)
		}
		if err := store.ReInit(cmd.Context()); err != nil {
			log.Fatalf("Failed to recreate schema: %v", err)
		}
		fmt.Println("Schema recreated")
	},
}

func init() {
	rootCmd.AddCommand(initSchemaCmd)
}
