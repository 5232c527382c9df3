package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/integration/common"
	pkghttp "github.com/aiforce/canvas-backend/pkg/http"
)

// Connector talks to a Responses-style LLM endpoint: each completed turn has
// a server-side id, and a new turn continues the conversation by naming its
// predecessor. No chat transcript is kept client-side.
type Connector struct {
	config    config.LLMConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.LLMConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

type inputContent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

type inputMessage struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type createTurnRequest struct {
	Model              string         `json:"model"`
	PreviousResponseID *string        `json:"previous_response_id,omitempty"`
	Instructions       string         `json:"instructions,omitempty"`
	Input              []inputMessage `json:"input"`
}

type outputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outputItem struct {
	Type    string          `json:"type"`
	Content []outputContent `json:"content"`
}

type turnResponse struct {
	ID                 string       `json:"id"`
	PreviousResponseID *string      `json:"previous_response_id"`
	OutputText         string       `json:"output_text"`
	Output             []outputItem `json:"output"`
}

type inputItemsResponse struct {
	Data []struct {
		Content []inputContent `json:"content"`
	} `json:"data"`
}

// text flattens the response's output items; some deployments also expose a
// pre-joined output_text convenience field, preferred when present.
func (r *turnResponse) text() string {
	if r.OutputText != "" {
		return r.OutputText
	}

	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" {
				sb.WriteString(content.Text)
			}
		}
	}
	return sb.String()
}

// SendTurn executes one conversation turn and returns the raw model text
// together with the new turn id. No retry here: a turn is not idempotent and
// re-sending could double-apply a refinement.
func (c *Connector) SendTurn(ctx context.Context, req *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error) {
	ctxzap.Info(ctx, "sending conversation turn to LLM service",
		zap.Bool("has_previous", req.PreviousRef != nil),
		zap.Int("file_count", len(req.FileIDs)),
	)

	content := make([]inputContent, 0, len(req.FileIDs)+1)
	for _, fileID := range req.FileIDs {
		content = append(content, inputContent{Type: "input_file", FileID: fileID})
	}
	content = append(content, inputContent{Type: "input_text", Text: req.Prompt})

	wireReq := &createTurnRequest{
		Model:              c.config.Deployment,
		PreviousResponseID: req.PreviousRef,
		Instructions:       req.Instructions,
		Input:              []inputMessage{{Role: "user", Content: content}},
	}

	var wireResp turnResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.endpoint(""), wireReq, &wireResp); err != nil {
		return nil, fmt.Errorf("send turn failed: %w", err)
	}

	rawText := wireResp.text()
	if wireResp.ID == "" || rawText == "" {
		return nil, fmt.Errorf("invalid turn response: empty id or output")
	}

	ctxzap.Info(ctx, "conversation turn completed",
		zap.String("response_id", wireResp.ID),
		zap.Int("output_length", len(rawText)),
	)

	return &entity.LLMTurnResponse{ResponseID: wireResp.ID, RawText: rawText}, nil
}

// RetrieveTurn fetches a previously completed turn by id, including the
// wrapped user prompt that produced it. Used when walking the backward chain
// to reconstruct conversation history.
func (c *Connector) RetrieveTurn(ctx context.Context, ref string) (*entity.LLMTurnRecord, error) {
	var wireResp turnResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, c.endpoint("/"+ref), nil, &wireResp); err != nil {
		return nil, fmt.Errorf("retrieve turn %s failed: %w", ref, err)
	}

	var items inputItemsResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, c.endpoint("/"+ref+"/input_items"), nil, &items); err != nil {
		return nil, fmt.Errorf("retrieve turn input %s failed: %w", ref, err)
	}

	var userPrompt string
	if len(items.Data) > 0 {
		for _, content := range items.Data[0].Content {
			if content.Type == "input_text" && content.Text != "" {
				userPrompt = content.Text
			}
		}
	}

	return &entity.LLMTurnRecord{
		ResponseID:  wireResp.ID,
		RawText:     wireResp.text(),
		UserPrompt:  userPrompt,
		PreviousRef: wireResp.PreviousResponseID,
	}, nil
}

func (c *Connector) endpoint(suffix string) string {
	endpoint := c.config.ResponsesEndpoint + suffix
	if c.config.APIVersion != "" {
		endpoint += "?api-version=" + c.config.APIVersion
	}
	return endpoint
}
