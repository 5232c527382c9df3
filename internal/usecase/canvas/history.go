package canvas

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/dualresponse"
	"github.com/aiforce/canvas-backend/internal/pkg/prompt"
)

// GetHistory reconstructs the conversation transcript by walking the
// backward-linked turn chain from the canvas's conversation ref. Assistant
// entries carry only the chat segment of each turn; user entries carry the
// bare message with prompt scaffolding stripped. Results are memoised until
// the next accepted turn.
func (uc *CanvasUsecase) GetHistory(ctx context.Context, canvasID string) ([]entity.ConversationMessage, error) {
	canvas, err := uc.canvasRepo.Get(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("get canvas: %w", err)
	}

	if canvas.ConversationRef == nil || *canvas.ConversationRef == "" {
		return []entity.ConversationMessage{}, nil
	}

	if cached, found := uc.historyCache.Get(canvasID); found {
		if history, ok := cached.([]entity.ConversationMessage); ok {
			return history, nil
		}
	}

	history, err := uc.walkTurnChain(ctx, *canvas.ConversationRef)
	if err != nil {
		return nil, err
	}

	uc.historyCache.Set(canvasID, history, gocache.DefaultExpiration)

	ctxzap.Info(ctx, "conversation history reconstructed",
		zap.String("canvas_id", canvasID),
		zap.Int("message_count", len(history)),
	)
	return history, nil
}

func (uc *CanvasUsecase) walkTurnChain(ctx context.Context, ref string) ([]entity.ConversationMessage, error) {
	// Collected newest-first while walking backwards, reversed at the end.
	var reversed []entity.ConversationMessage

	for ref != "" {
		record, err := uc.llmConnector.RetrieveTurn(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: retrieve turn: %v", entity.ErrUpstreamFailure, err)
		}

		// Only the chat segment ever surfaces. A retrieved turn that fails
		// the dual-section contract contributes an empty assistant entry
		// rather than raw model text, which could embed the canvas JSON.
		assistantContent := ""
		if chat, _, err := dualresponse.Parse(record.RawText); err == nil {
			assistantContent = chat
		} else {
			ctxzap.Warn(ctx, "retrieved turn failed dual-section parse",
				zap.String("turn_ref", ref),
				zap.Error(err),
			)
		}

		reversed = append(reversed,
			entity.ConversationMessage{Role: entity.RoleAssistant, Content: assistantContent},
			entity.ConversationMessage{Role: entity.RoleUser, Content: prompt.ExtractUserMessage(record.UserPrompt)},
		)

		if record.PreviousRef == nil {
			break
		}
		ref = *record.PreviousRef
	}

	history := make([]entity.ConversationMessage, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		history = append(history, reversed[i])
	}
	return history, nil
}
