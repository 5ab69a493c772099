package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

// processCmd runs the pipeline once on a local PDF without starting
// the server. Useful for backfills and debugging.
var processCmd = &cobra.Command{
	Use:   "process [pdf file]",
	Short: "Process a single report PDF from disk",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		customerID, _ := cmd.Flags().GetString("customer")
		if customerID == "" {
			log.Fatal("--customer is required")
		}

		app, err := buildApp(cmd.Context(), false)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer app.Close()

		doc, err := app.fileService.ProcessLocalFile(cmd.Context(), customerID, args[0])
		if err != nil {
			log.Fatalf("Processing failed: %v", err)
		}

		fmt.Printf("Processed %s\n", doc.DocID)
		if doc.AlertCount != nil && doc.ChunkCount != nil {
			fmt.Printf("Alerts: %d, Chunks: %d\n", *doc.AlertCount, *doc.ChunkCount)
		}
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("customer", "", "customer the report belongs to")
}
