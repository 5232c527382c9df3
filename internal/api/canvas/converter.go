package canvas

import (
	"github.com/aiforce/canvas-backend/internal/entity"
)

func toMessageDTO(canvasID string, result *entity.TurnResult) entity.MessageResponse {
	return entity.MessageResponse{
		CanvasID:           canvasID,
		ConversationRef:    result.ConversationRef,
		ChatResponse:       result.ChatResponse,
		CanvasJSON:         result.Canvas,
		ValidationWarnings: result.ValidationWarnings,
	}
}
