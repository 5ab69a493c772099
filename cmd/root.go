package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ewa-mcp",
	Short: "EarlyWatch Alert report processing service",
	Long: `Processes SAP EarlyWatch Alert PDF reports into a searchable index.

Each report is converted to markdown, split into section-aware chunks,
scanned for alerts with a vision model and indexed together with its
embeddings into Weaviate.`,
}

// Execute runs the root command. Called once from main.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.yaml", "config file")
}
