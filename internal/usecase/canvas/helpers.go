package canvas

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/entity"
	pkgValidator "github.com/aiforce/canvas-backend/internal/pkg/validator"
)

// uploadFiles validates the batch, uploads each document to the file store,
// and records the returned refs on the canvas. Uploads happen before prompt
// construction so the file ids can be attached to the turn.
func (uc *CanvasUsecase) uploadFiles(ctx context.Context, canvasID string, files []entity.FileUpload) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	if err := uc.validator.ValidateUpload(files); err != nil {
		return nil, err
	}

	fileIDs := make([]string, 0, len(files))
	for _, file := range files {
		fileID, err := uc.fileStore.Upload(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("%w: upload %s: %v", entity.ErrInvalidFile, file.Filename, err)
		}

		if err := uc.canvasRepo.AppendFileRef(ctx, canvasID, fileID); err != nil {
			return nil, fmt.Errorf("append file ref: %w", err)
		}

		fileIDs = append(fileIDs, fileID)
	}

	ctxzap.Info(ctx, "files uploaded for turn",
		zap.String("canvas_id", canvasID),
		zap.Int("file_count", len(fileIDs)),
	)
	return fileIDs, nil
}

// persistTurn applies an accepted LLM turn to the store: full-row fields
// replace, conversation ref advance, first-turn status transition, title
// sync, and unconditional manual-override clear.
func (uc *CanvasUsecase) persistTurn(
	ctx context.Context,
	canvas *entity.Canvas,
	isFirst bool,
	conversationRef string,
	fields *entity.CanvasFields,
) error {
	if err := uc.fieldsRepo.Upsert(ctx, canvas.ID, fields); err != nil {
		return fmt.Errorf("upsert canvas fields: %w", err)
	}

	if err := uc.canvasRepo.SetConversationRef(ctx, canvas.ID, conversationRef); err != nil {
		return fmt.Errorf("set conversation ref: %w", err)
	}

	if isFirst {
		if err := uc.canvasRepo.SetStatus(ctx, canvas.ID, entity.CanvasStatusDrafted); err != nil {
			return fmt.Errorf("set canvas status: %w", err)
		}
	}

	if fields.Title != "" && fields.Title != canvas.Title {
		if err := uc.canvasRepo.UpdateTitle(ctx, canvas.ID, fields.Title); err != nil {
			return fmt.Errorf("update title: %w", err)
		}
	}

	if err := uc.canvasRepo.SetManualOverride(ctx, canvas.ID, false); err != nil {
		return fmt.Errorf("clear manual override: %w", err)
	}

	return nil
}

func exportFilename(canvas *entity.Canvas, extension string) string {
	base := strings.TrimSpace(canvas.Title)
	if base == "" {
		base = "business-model-canvas"
	}
	return pkgValidator.SanitizeFilename(base) + extension
}
