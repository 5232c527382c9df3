package canvas

import (
	"context"

	"github.com/aiforce/canvas-backend/internal/entity"
)

// CanvasUsecase is the orchestrator surface the HTTP layer depends on.
type CanvasUsecase interface {
	CreateCanvas(ctx context.Context, ownerID string) (*entity.Canvas, error)
	GetCanvas(ctx context.Context, canvasID string) (*entity.Canvas, error)
	GetFields(ctx context.Context, canvasID string) (*entity.CanvasFields, error)
	ListCanvases(ctx context.Context, ownerID string, skip, limit int) ([]entity.CanvasListItem, error)
	SendMessage(ctx context.Context, canvasID, message string, files []entity.FileUpload) (*entity.TurnResult, error)
	SaveManualEdit(ctx context.Context, canvasID string, fields *entity.CanvasFields) error
	GetHistory(ctx context.Context, canvasID string) ([]entity.ConversationMessage, error)
	Archive(ctx context.Context, canvasID string) error
	Restore(ctx context.Context, canvasID string) error
	Delete(ctx context.Context, canvasID string) error
	Export(ctx context.Context, canvasID string, format entity.ExportFormat) ([]byte, string, string, error)
}
