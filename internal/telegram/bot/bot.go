package bot

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/telegram/middleware"
	"github.com/aiforce/canvas-backend/internal/telegram/state"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxDocumentSize = 10 * 1024 * 1024 // 10 MB
	downloadTimeout = 30 * time.Second

	msgWelcome = `👋 I help you build a Business Model Canvas.

Describe your business problem in one message and I will draft a full canvas. Keep sending messages to refine it.

/new - start a fresh canvas
/export - download the canvas (markdown, pdf or docx)
/archive - archive the current canvas
/help - show this help`

	msgNewCanvas  = "🆕 Starting a fresh canvas. Describe your business problem."
	msgNoCanvas   = "No active canvas yet. Just describe your business problem and I will draft one."
	msgGeneric    = "❌ Something went wrong. Please try again."
	msgUnknownCmd = "❌ Unknown command. Use /help."
)

// CanvasUsecase is the part of the canvas usecase the bot needs
type CanvasUsecase interface {
	CreateCanvas(ctx context.Context, ownerID string) (*entity.Canvas, error)
	SendMessage(ctx context.Context, canvasID, message string, files []entity.FileUpload) (*entity.TurnResult, error)
	Archive(ctx context.Context, canvasID string) error
	Export(ctx context.Context, canvasID string, format entity.ExportFormat) ([]byte, string, string, error)
}

var secureHTTPClient = &http.Client{
	Timeout: downloadTimeout,
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Bot represents the Telegram bot
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.TelegramConfig
	stateManager *state.Manager
	canvasUC     CanvasUsecase
	logger       *zap.Logger
	loggingMW    *middleware.LoggingMiddleware
	recoveryMW   *middleware.RecoveryMiddleware
	rateLimitMW  *middleware.RateLimiterMiddleware
	updatesChan  tgbotapi.UpdatesChannel
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// New creates a new Telegram bot
func New(
	cfg *config.TelegramConfig,
	stateManager *state.Manager,
	canvasUC CanvasUsecase,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	bot := &Bot{
		api:          api,
		cfg:          cfg,
		stateManager: stateManager,
		canvasUC:     canvasUC,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}

	bot.loggingMW = middleware.NewLoggingMiddleware(logger)
	bot.recoveryMW = middleware.NewRecoveryMiddleware(logger, api)
	bot.rateLimitMW = middleware.NewRateLimiterMiddleware(
		cfg.RateLimitPerMinute,
		cfg.RateLimitBurst,
		logger,
		api,
	)

	return bot, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout

	updates := b.api.GetUpdatesChan(u)
	b.updatesChan = updates

	ctx = ctxzap.ToContext(ctx, b.logger)

	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	// Wait for all active handlers to complete
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	shutdownTimeout := time.Duration(b.cfg.ShutdownTimeout) * time.Second
	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", shutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update := <-b.updatesChan:
			b.wg.Add(1)
			go func(u tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdateWithMiddleware(u)
			}(update)
		}
	}
}

// handleUpdateWithMiddleware processes update through middleware chain
func (b *Bot) handleUpdateWithMiddleware(update tgbotapi.Update) {
	b.rateLimitMW.Handle(update, func(u tgbotapi.Update) {
		b.loggingMW.Handle(u, func(u2 tgbotapi.Update) {
			b.recoveryMW.Handle(u2, func(u3 tgbotapi.Update) {
				b.handleUpdate(u3)
			})
		})
	})
}

// handleUpdate routes update to the command or chat handler
func (b *Bot) handleUpdate(update tgbotapi.Update) {
	ctx := ctxzap.ToContext(context.Background(), b.logger)

	if update.Message == nil {
		return
	}

	if update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message)
		return
	}

	b.handleChatMessage(ctx, update.Message)
}

// handleCommand handles bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	ctxzap.Info(ctx, "command received",
		zap.String("command", command),
		zap.Int64("user_id", message.From.ID),
	)

	switch command {
	case "start", "help":
		b.sendMessage(message.Chat.ID, msgWelcome)
	case "new":
		b.handleNewCommand(ctx, message)
	case "export":
		b.handleExportCommand(ctx, message)
	case "archive":
		b.handleArchiveCommand(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, msgUnknownCmd)
	}
}

// handleNewCommand drops the current binding so the next message starts a canvas
func (b *Bot) handleNewCommand(_ context.Context, message *tgbotapi.Message) {
	b.stateManager.Clear(message.From.ID)
	b.sendMessage(message.Chat.ID, msgNewCanvas)
}

// handleExportCommand exports the active canvas as a document.
// Format defaults to markdown, "/export pdf" and "/export docx" select others.
func (b *Bot) handleExportCommand(ctx context.Context, message *tgbotapi.Message) {
	canvasID, ok := b.stateManager.ActiveCanvas(message.From.ID)
	if !ok {
		b.sendMessage(message.Chat.ID, msgNoCanvas)
		return
	}

	format := entity.ExportFormat(strings.ToLower(strings.TrimSpace(message.CommandArguments())))
	if format == "" {
		format = entity.FormatMarkdown
	}

	data, _, filename, err := b.canvasUC.Export(ctx, canvasID, format)
	if err != nil {
		ctxzap.Error(ctx, "export failed",
			zap.Error(err),
			zap.String("canvas_id", canvasID),
		)
		switch {
		case errors.Is(err, entity.ErrInvalidParameter):
			b.sendMessage(message.Chat.ID, "❌ Unknown format. Use /export markdown, /export pdf or /export docx.")
		case errors.Is(err, entity.ErrNoCanvasFields):
			b.sendMessage(message.Chat.ID, "The canvas has no content yet. Describe your business problem first.")
		default:
			b.sendMessage(message.Chat.ID, msgGeneric)
		}
		return
	}

	if err := b.sendDocument(message.Chat.ID, filename, data); err != nil {
		ctxzap.Error(ctx, "failed to send exported canvas",
			zap.Error(err),
			zap.String("canvas_id", canvasID),
		)
		b.sendMessage(message.Chat.ID, msgGeneric)
	}
}

// handleArchiveCommand archives the active canvas
func (b *Bot) handleArchiveCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	canvasID, ok := b.stateManager.ActiveCanvas(userID)
	if !ok {
		b.sendMessage(message.Chat.ID, msgNoCanvas)
		return
	}

	if err := b.canvasUC.Archive(ctx, canvasID); err != nil {
		ctxzap.Error(ctx, "archive failed",
			zap.Error(err),
			zap.String("canvas_id", canvasID),
		)
		b.sendMessage(message.Chat.ID, msgGeneric)
		return
	}

	b.stateManager.Clear(userID)
	b.sendMessage(message.Chat.ID, "📦 Canvas archived. Send /new to start another one.")
}

// handleChatMessage routes free-form text (and attached documents) into a canvas turn
func (b *Bot) handleChatMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	text := message.Text
	if text == "" {
		text = message.Caption
	}

	var files []entity.FileUpload
	if message.Document != nil {
		upload, err := b.downloadDocument(ctx, message.Document)
		if err != nil {
			ctxzap.Error(ctx, "failed to download document",
				zap.Error(err),
				zap.Int64("user_id", userID),
			)
			b.sendMessage(chatID, "❌ Could not download the attached file. Send it again or continue without it.")
			return
		}
		files = append(files, *upload)
	}

	canvasID, ok := b.stateManager.ActiveCanvas(userID)
	if !ok {
		canvas, err := b.canvasUC.CreateCanvas(ctx, fmt.Sprintf("tg:%d", userID))
		if err != nil {
			ctxzap.Error(ctx, "failed to create canvas",
				zap.Error(err),
				zap.Int64("user_id", userID),
			)
			b.sendMessage(chatID, msgGeneric)
			return
		}
		canvasID = canvas.ID
		b.stateManager.SetActiveCanvas(userID, canvasID)
	}

	b.sendTyping(chatID)

	turn, err := b.canvasUC.SendMessage(ctx, canvasID, text, files)
	if err != nil {
		ctxzap.Error(ctx, "canvas turn failed",
			zap.Error(err),
			zap.String("canvas_id", canvasID),
			zap.Int64("user_id", userID),
		)
		switch {
		case errors.Is(err, entity.ErrCanvasArchived):
			b.stateManager.Clear(userID)
			b.sendMessage(chatID, "That canvas is archived. Send /new to start a fresh one.")
		case errors.Is(err, entity.ErrInvalidFile),
			errors.Is(err, entity.ErrFileTooLarge),
			errors.Is(err, entity.ErrInvalidExtension),
			errors.Is(err, entity.ErrTooManyFiles),
			errors.Is(err, entity.ErrTotalSizeTooLarge):
			b.sendMessage(chatID, "❌ The attached file was rejected. Allowed: pdf, docx, txt, md up to 10 MB.")
		case errors.Is(err, entity.ErrParseFailure), errors.Is(err, entity.ErrUpstreamFailure):
			b.sendMessage(chatID, "❌ The assistant is unavailable right now. Please try again in a moment.")
		default:
			b.sendMessage(chatID, msgGeneric)
		}
		return
	}

	reply := turn.ChatResponse
	if turn.Canvas != nil {
		reply += "\n\n📋 Canvas updated. Use /export to download it."
	}
	b.sendMessage(chatID, reply)
}

// downloadDocument fetches an attached document from Telegram servers
func (b *Bot) downloadDocument(ctx context.Context, doc *tgbotapi.Document) (*entity.FileUpload, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: doc.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}

	if file.FileSize > maxDocumentSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", file.FileSize, maxDocumentSize)
	}

	fileURL := file.Link(b.api.Token)

	parsedURL, err := url.Parse(fileURL)
	if err != nil {
		return nil, fmt.Errorf("invalid file URL: %w", err)
	}
	if parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("insecure URL scheme: %s (expected https)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := secureHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file data: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxDocumentSize)
	}

	return &entity.FileUpload{
		Filename:    doc.FileName,
		ContentType: doc.MimeType,
		Data:        data,
	}, nil
}

// sendMessage sends a message to chat
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}

// sendDocument sends a document
func (b *Bot) sendDocument(chatID int64, filename string, data []byte) error {
	doc := tgbotapi.FileBytes{
		Name:  filename,
		Bytes: data,
	}

	msg := tgbotapi.NewDocument(chatID, doc)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	return nil
}

// sendTyping shows the typing indicator while a turn is in flight
func (b *Bot) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("failed to send chat action",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}
