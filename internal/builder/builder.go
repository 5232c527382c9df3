package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aiforce/canvas-backend/internal/api"
	canvasapi "github.com/aiforce/canvas-backend/internal/api/canvas"
	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/integration/filestore"
	"github.com/aiforce/canvas-backend/internal/integration/llm"
	"github.com/aiforce/canvas-backend/internal/pkg/validator"
	"github.com/aiforce/canvas-backend/internal/repository"
	"github.com/aiforce/canvas-backend/internal/telegram"
	canvasuc "github.com/aiforce/canvas-backend/internal/usecase/canvas"
	"github.com/jackc/pgx/v5/pgxpool"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	canvasUC := buildCanvasUsecase(cfg, db, logger)

	// Setup API handlers
	canvasHandler := canvasapi.NewHandler(canvasUC, cfg.FileUploadCfg)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(canvasHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. Write timeout is generous because a canvas
	// turn waits on the LLM backend before the response is written.
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (telegram.Bot, *zap.Logger, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	canvasUC := buildCanvasUsecase(cfg, db, logger)

	// Initialize Telegram bot
	bot, err := telegram.NewBot(&cfg.TelegramCfg, canvasUC, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, logger, nil
}

// buildCanvasUsecase wires repositories, connectors and the canvas use case
func buildCanvasUsecase(cfg *config.Config, db *pgxpool.Pool, logger *zap.Logger) *canvasuc.CanvasUsecase {
	// Initialize repositories
	canvasRepo := repository.NewCanvasPostgres(db)
	fieldsRepo := repository.NewFieldsPostgres(db)
	logger.Info("Repositories initialized")

	// Initialize external service connectors (with mock support)
	var llmConnector canvasuc.LLMConnector
	var fileStoreConnector canvasuc.FileStoreConnector

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = llm.NewMockConnector(logger)
		fileStoreConnector = filestore.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		llmConnector = llm.NewConnector(cfg.LLMConnectorCfg, logger)
		fileStoreConnector = filestore.NewConnector(cfg.FileStoreConnectorCfg, logger)
	}

	// Initialize validators
	canvasValidator := validator.NewValidator(cfg.FileUploadCfg)
	logger.Info("Validators initialized")

	historyCache := gocache.New(cfg.HistoryCacheTTL, 2*cfg.HistoryCacheTTL)

	canvasUC := canvasuc.NewUsecase(
		canvasRepo,
		fieldsRepo,
		canvasValidator,
		llmConnector,
		fileStoreConnector,
		historyCache,
		cfg.StrictCanvasValidation,
		logger,
	)
	logger.Info("Use cases initialized",
		zap.Bool("strict_canvas_validation", cfg.StrictCanvasValidation),
	)

	return canvasUC
}
