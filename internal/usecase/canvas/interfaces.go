package canvas

import (
	"context"

	"github.com/aiforce/canvas-backend/internal/entity"
)

type LLMConnector interface {
	SendTurn(ctx context.Context, req *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error)
	RetrieveTurn(ctx context.Context, ref string) (*entity.LLMTurnRecord, error)
}

type FileStoreConnector interface {
	Upload(ctx context.Context, file entity.FileUpload) (string, error)
	Delete(ctx context.Context, fileID string) error
}
