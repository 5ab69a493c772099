package cmd

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/handler"
	"github.com/senjoyee/ewa-mcp/middleware"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the report processing server",
	Long:  `Starts an HTTP server that accepts report uploads, answers status polls and streams processing events over a websocket`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := buildApp(cmd.Context(), true)
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer app.Close()

		corsHandler := handler.NewCorsHandler()
		uploadHandler := handler.NewUploadHandler(app.fileService)
		statusHandler := handler.NewStatusHandler(app.store)

		mux := http.NewServeMux()
		mux.Handle("/api/v1/documents/status", statusHandler.HandleStatus())
		mux.HandleFunc("/api/v1/events", app.wsService.HandleEvents)
		mux.Handle("/admin/api/v1/upload",
			middleware.APIKeyMiddleware(app.cfg.AdminAPIKey, uploadHandler.HandleUpload()))

		app.logger.Info("starting server", zap.String("port", app.cfg.Port))
		if err := http.ListenAndServe(":"+app.cfg.Port, corsHandler.CorsMiddleware(mux)); err != nil {
			app.logger.Fatal("server error", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
