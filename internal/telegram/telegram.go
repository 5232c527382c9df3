package telegram

import (
	"context"
	"fmt"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/telegram/bot"
	"github.com/aiforce/canvas-backend/internal/telegram/state"
	"go.uber.org/zap"
)

// Bot is the main telegram bot interface
type Bot interface {
	Start(ctx context.Context) error
	Stop() error
}

// NewBot initializes the telegram bot with all dependencies
func NewBot(
	cfg *config.TelegramConfig,
	canvasUC bot.CanvasUsecase,
	logger *zap.Logger,
) (Bot, error) {
	stateManager := state.NewManager()

	b, err := bot.New(cfg, stateManager, canvasUC, logger)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	logger.Info("telegram bot initialized successfully")

	return b, nil
}
