package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/docsight/docsight/internal/api"
	apimiddleware "github.com/docsight/docsight/internal/api/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the docsight HTTP API server",
	Long: `Serve exposes the task pipeline over HTTP. One task runs at a time;
concurrent start requests are rejected with 409 Conflict.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := initializeApp(cmd.Context())
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler: setupRouter(app),
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		app.logger.Info("shutting down server...")
	case err := <-serverErr:
		app.logger.Error("server failed", "error", err)
		app.shutdown()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		app.shutdown()
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Give the active task attempt its grace period after the HTTP side is
	// drained.
	app.shutdown()

	app.logger.Info("server shutdown completed")
	return nil
}

// setupRouter creates and configures the application router with all routes
// and middleware.
func setupRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.orchestrator)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", taskHandler.StartTask)
		r.Get("/tasks/current", taskHandler.GetCurrentTask)
		r.Delete("/tasks/current", taskHandler.CancelCurrentTask)
		r.Post("/tasks/current/review", taskHandler.SubmitReview)
		r.Post("/tasks/current/ack", taskHandler.AcknowledgeFailure)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
