package canvas

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/canvasschema"
	"github.com/aiforce/canvas-backend/internal/pkg/dualresponse"
	"github.com/aiforce/canvas-backend/internal/pkg/formatter"
	"github.com/aiforce/canvas-backend/internal/pkg/prompt"
	"github.com/aiforce/canvas-backend/internal/pkg/validator"
	"github.com/aiforce/canvas-backend/internal/repository"
)

// emptyMessageReply is returned without an LLM call when the user sends a
// blank message; the canvas is left untouched.
const emptyMessageReply = "Please provide a valid problem statement or message so I can help with your Business Model Canvas."

// CanvasUsecase implements the conversation state machine: it decides the
// turn type from canvas status, builds the prompt, drives the LLM
// collaborator, and reconciles the parsed result with the store.
type CanvasUsecase struct {
	canvasRepo       repository.CanvasRepository
	fieldsRepo       repository.FieldsRepository
	validator        *validator.Validator
	llmConnector     LLMConnector
	fileStore        FileStoreConnector
	formatterFactory *formatter.Factory
	historyCache     *gocache.Cache
	strictValidation bool
	logger           *zap.Logger
}

// NewUsecase creates a new canvas use case
func NewUsecase(
	canvasRepo repository.CanvasRepository,
	fieldsRepo repository.FieldsRepository,
	validator *validator.Validator,
	llmConnector LLMConnector,
	fileStore FileStoreConnector,
	historyCache *gocache.Cache,
	strictValidation bool,
	logger *zap.Logger,
) *CanvasUsecase {
	return &CanvasUsecase{
		canvasRepo:       canvasRepo,
		fieldsRepo:       fieldsRepo,
		validator:        validator,
		llmConnector:     llmConnector,
		fileStore:        fileStore,
		formatterFactory: formatter.NewFactory(),
		historyCache:     historyCache,
		strictValidation: strictValidation,
		logger:           logger,
	}
}

// CreateCanvas creates an empty canvas in the database
func (uc *CanvasUsecase) CreateCanvas(ctx context.Context, ownerID string) (*entity.Canvas, error) {
	canvas := entity.Canvas{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Status:  entity.CanvasStatusCreated,
	}

	created, err := uc.canvasRepo.Create(ctx, canvas)
	if err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}

	ctxzap.Info(ctx, "canvas created", zap.String("canvas_id", created.ID))
	return created, nil
}

// GetCanvas returns the canvas header
func (uc *CanvasUsecase) GetCanvas(ctx context.Context, canvasID string) (*entity.Canvas, error) {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	return canvas, nil
}

// GetFields returns the stored canvas fields
func (uc *CanvasUsecase) GetFields(ctx context.Context, canvasID string) (*entity.CanvasFields, error) {
	if _, err := uc.canvasRepo.Get(ctx, canvasID); err != nil {
		return nil, fmt.Errorf("get canvas: %w", err)
	}

	fields, err := uc.fieldsRepo.Get(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("get canvas fields: %w", err)
	}
	return fields, nil
}

// ListCanvases returns the owner's DRAFTED canvases, newest first, with the
// stored problem statement attached when fields exist. CREATED canvases have
// no content yet and ARCHIVED ones are hidden until restored.
func (uc *CanvasUsecase) ListCanvases(ctx context.Context, ownerID string, skip, limit int) ([]entity.CanvasListItem, error) {
	canvases, err := uc.canvasRepo.List(ctx, ownerID, entity.CanvasStatusDrafted, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}

	// Initialize as empty slice instead of nil to ensure JSON serialization as [] not null
	items := make([]entity.CanvasListItem, 0, len(canvases))
	for _, canvas := range canvases {
		item := entity.CanvasListItem{
			CanvasID:  canvas.ID,
			Title:     canvas.Title,
			CreatedAt: canvas.CreatedAt,
			UpdatedAt: canvas.UpdatedAt,
		}
		if fields, err := uc.fieldsRepo.Get(ctx, canvas.ID); err == nil {
			item.ProblemStatement = fields.ProblemStatement
		}
		items = append(items, item)
	}

	return items, nil
}

// SendMessage runs one conversation turn: upload attachments, build the
// prompt for the canvas's current state, call the LLM, parse the
// dual-section output, and persist the resulting canvas.
func (uc *CanvasUsecase) SendMessage(ctx context.Context, canvasID, message string, files []entity.FileUpload) (*entity.TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		ctxzap.Info(ctx, "empty message short-circuit", zap.String("canvas_id", canvasID))
		return &entity.TurnResult{ChatResponse: emptyMessageReply}, nil
	}

	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("get canvas: %w", err)
	}

	if canvas.Status == entity.CanvasStatusArchived {
		return nil, fmt.Errorf("%w: wrong action on status '%s'", entity.ErrCanvasArchived, canvas.Status)
	}

	isFirst := canvas.Status == entity.CanvasStatusCreated

	fileIDs, err := uc.uploadFiles(ctx, canvasID, files)
	if err != nil {
		return nil, err
	}

	var currentFields *entity.CanvasFields
	if !isFirst && canvas.ManualOverride {
		currentFields, err = uc.fieldsRepo.Get(ctx, canvasID)
		if err != nil {
			return nil, fmt.Errorf("load manual edit context: %w", err)
		}
	}

	turnReq := &entity.LLMTurnRequest{
		PreviousRef: canvas.ConversationRef,
		FileIDs:     fileIDs,
	}
	if isFirst {
		turnReq.Instructions = prompt.BuildSystem()
		turnReq.Prompt = prompt.BuildInitial(message)
	} else {
		turnReq.Prompt = prompt.BuildRefinement(message, currentFields)
	}

	turnResp, err := uc.llmConnector.SendTurn(ctx, turnReq)
	if err != nil {
		ctxzap.Error(ctx, "LLM turn failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", entity.ErrUpstreamFailure, err)
	}

	chat, candidate, err := dualresponse.Parse(turnResp.RawText)
	if err != nil {
		// Nothing is persisted; the canvas stays in its prior state.
		ctxzap.Error(ctx, "model response parse failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", entity.ErrParseFailure, err)
	}

	valid, reasons := canvasschema.Validate(candidate)
	if !valid {
		ctxzap.Warn(ctx, "canvas failed schema validation",
			zap.String("canvas_id", canvasID),
			zap.Strings("reasons", reasons),
		)
		if uc.strictValidation {
			return nil, fmt.Errorf("%w: %s", entity.ErrInvalidCanvas, strings.Join(reasons, "; "))
		}
	}

	fields := canvasschema.Normalize(candidate)

	if err := uc.persistTurn(ctx, canvas, isFirst, turnResp.ResponseID, fields); err != nil {
		return nil, err
	}

	uc.historyCache.Delete(canvasID)

	ctxzap.Info(ctx, "conversation turn accepted",
		zap.String("canvas_id", canvasID),
		zap.String("conversation_ref", turnResp.ResponseID),
		zap.Bool("first_turn", isFirst),
	)

	return &entity.TurnResult{
		ConversationRef:    turnResp.ResponseID,
		ChatResponse:       chat,
		Canvas:             fields,
		ValidationWarnings: reasons,
	}, nil
}

// SaveManualEdit replaces the stored canvas fields with a direct user edit.
// This is the only path that sets the manual-override flag; the flag makes
// the next LLM turn receive these fields as authoritative context.
func (uc *CanvasUsecase) SaveManualEdit(ctx context.Context, canvasID string, fields *entity.CanvasFields) error {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("get canvas: %w", err)
	}

	if canvas.Status == entity.CanvasStatusArchived {
		return fmt.Errorf("%w: wrong action on status '%s'", entity.ErrCanvasArchived, canvas.Status)
	}

	if err := uc.validator.ValidateManualEdit(fields); err != nil {
		return err
	}

	if err := uc.fieldsRepo.Upsert(ctx, canvasID, fields); err != nil {
		return fmt.Errorf("upsert canvas fields: %w", err)
	}

	if err := uc.canvasRepo.SetManualOverride(ctx, canvasID, true); err != nil {
		return fmt.Errorf("set manual override: %w", err)
	}

	if fields.Title != "" && fields.Title != canvas.Title {
		if err := uc.canvasRepo.UpdateTitle(ctx, canvasID, fields.Title); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
	}

	ctxzap.Info(ctx, "manual edit saved", zap.String("canvas_id", canvasID))
	return nil
}

// Archive soft-deletes a canvas; messages and edits are rejected until it is
// restored.
func (uc *CanvasUsecase) Archive(ctx context.Context, canvasID string) error {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("get canvas: %w", err)
	}

	if canvas.Status == entity.CanvasStatusArchived {
		return fmt.Errorf("%w: wrong action on status '%s'", entity.ErrCanvasArchived, canvas.Status)
	}

	if err := uc.canvasRepo.SetStatus(ctx, canvasID, entity.CanvasStatusArchived); err != nil {
		return fmt.Errorf("archive canvas: %w", err)
	}

	ctxzap.Info(ctx, "canvas archived", zap.String("canvas_id", canvasID))
	return nil
}

// Restore brings an archived canvas back: DRAFTED when fields exist,
// otherwise back to CREATED.
func (uc *CanvasUsecase) Restore(ctx context.Context, canvasID string) error {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("get canvas: %w", err)
	}

	if canvas.Status != entity.CanvasStatusArchived {
		return fmt.Errorf("%w: wrong action on status '%s'", entity.ErrCanvasNotArchived, canvas.Status)
	}

	status := entity.CanvasStatusCreated
	if _, err := uc.fieldsRepo.Get(ctx, canvasID); err == nil {
		status = entity.CanvasStatusDrafted
	}

	if err := uc.canvasRepo.SetStatus(ctx, canvasID, status); err != nil {
		return fmt.Errorf("restore canvas: %w", err)
	}

	ctxzap.Info(ctx, "canvas restored",
		zap.String("canvas_id", canvasID),
		zap.String("status", string(status)),
	)
	return nil
}

// Delete permanently removes the canvas, its fields, and its uploaded files.
func (uc *CanvasUsecase) Delete(ctx context.Context, canvasID string) error {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("get canvas: %w", err)
	}

	// Best-effort provider-side cleanup; the rows are removed regardless.
	for _, fileID := range canvas.FileIDs {
		if err := uc.fileStore.Delete(ctx, fileID); err != nil {
			ctxzap.Warn(ctx, "failed to delete stored file",
				zap.String("file_id", fileID),
				zap.Error(err),
			)
		}
	}

	if err := uc.canvasRepo.Delete(ctx, canvasID); err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}

	uc.historyCache.Delete(canvasID)

	ctxzap.Info(ctx, "canvas deleted", zap.String("canvas_id", canvasID))
	return nil
}

// Export renders the stored canvas in the requested document format and
// returns the bytes together with content type and a download filename.
func (uc *CanvasUsecase) Export(ctx context.Context, canvasID string, format entity.ExportFormat) ([]byte, string, string, error) {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return nil, "", "", fmt.Errorf("get canvas: %w", err)
	}

	fields, err := uc.fieldsRepo.Get(ctx, canvasID)
	if err != nil {
		return nil, "", "", fmt.Errorf("get canvas fields: %w", err)
	}

	f, err := uc.formatterFactory.Create(format)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	data, err := f.Format(fields)
	if err != nil {
		return nil, "", "", fmt.Errorf("format canvas: %w", err)
	}

	filename := exportFilename(canvas, f.FileExtension())

	ctxzap.Info(ctx, "canvas exported",
		zap.String("canvas_id", canvasID),
		zap.String("format", string(format)),
		zap.Int("size", len(data)),
	)
	return data, f.ContentType(), filename, nil
}
