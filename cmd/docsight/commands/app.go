package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docsight/docsight/internal/config"
	"github.com/docsight/docsight/internal/events"
	"github.com/docsight/docsight/internal/generation"
	"github.com/docsight/docsight/internal/platform/fitz"
	"github.com/docsight/docsight/internal/platform/gemini"
	"github.com/docsight/docsight/internal/platform/logger"
	"github.com/docsight/docsight/internal/platform/ocrd"
	"github.com/docsight/docsight/internal/prompt"
	"github.com/docsight/docsight/internal/recognition"
	"github.com/docsight/docsight/internal/task"
)

// application holds the wired dependencies shared by all subcommands.
type application struct {
	cfg          *config.Config
	logger       *slog.Logger
	notifier     *events.Notifier
	orchestrator *task.Orchestrator
}

// initializeApp loads configuration, sets up logging, constructs the engine
// adapters, and builds the orchestrator. Engine construction failures are
// tolerated here: the orchestrator rejects tasks needing a missing engine at
// Start, which lets commands that do not need that engine still work.
func initializeApp(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		cfg.Server.LogLevel = "debug"
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	var recognizer recognition.Recognizer
	if client, err := ocrd.NewClient(cfg.OCR, log); err != nil {
		log.Warn("recognition engine unavailable", "error", err)
	} else {
		recognizer = client
	}

	var generator generation.Generator
	if gen, err := gemini.NewGenerator(ctx, log, cfg.Gemini); err != nil {
		log.Warn("generation engine unavailable", "error", err)
	} else {
		generator = gen
	}

	prompts, err := prompt.New()
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt templates: %w", err)
	}

	notifier := events.NewNotifier(log)

	orchestrator, err := task.NewOrchestrator(
		recognizer,
		fitz.NewChecker(),
		generator,
		prompts,
		notifier,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}

	return &application{
		cfg:          cfg,
		logger:       log,
		notifier:     notifier,
		orchestrator: orchestrator,
	}, nil
}

// shutdown gives the active task attempt the configured grace period to
// finish before returning.
func (app *application) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Task.ShutdownGrace)
	defer cancel()

	if err := app.orchestrator.Shutdown(ctx); err != nil {
		app.logger.Warn("orchestrator shutdown did not complete cleanly", "error", err)
	}
}
