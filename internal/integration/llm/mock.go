package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/dualresponse"
	"github.com/aiforce/canvas-backend/internal/pkg/prompt"
)

// MockConnector emulates the Responses-style LLM locally: it keeps the turn
// chain and a canvas per turn in memory and always answers in the
// dual-section format. Used for local development (ENABLE_MOCKS) and tests.
type MockConnector struct {
	logger *zap.Logger

	mu       sync.Mutex
	turns    map[string]*entity.LLMTurnRecord
	canvases map[string]*entity.CanvasFields
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger:   logger,
		turns:    make(map[string]*entity.LLMTurnRecord),
		canvases: make(map[string]*entity.CanvasFields),
	}
}

func (m *MockConnector) SendTurn(ctx context.Context, req *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error) {
	ctxzap.Info(ctx, "[MOCK] sending conversation turn to LLM",
		zap.Bool("has_previous", req.PreviousRef != nil),
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	userMessage := prompt.ExtractUserMessage(req.Prompt)

	var canvas *entity.CanvasFields
	var chat string
	switch {
	case req.PreviousRef == nil:
		canvas = mockInitialCanvas(userMessage)
		chat = "I drafted an initial Business Model Canvas from your problem statement. Review the sections and tell me what to adjust."
	default:
		canvas = m.baseCanvas(req)
		canvas.KPIs = append(canvas.KPIs, entity.KPI{
			Metric: fmt.Sprintf("Refinement follow-up: %s", truncate(userMessage, 48)),
			Target: "TBD",
		})
		chat = "I updated the canvas based on your feedback."
	}

	canvasJSON, err := json.Marshal(canvas)
	if err != nil {
		return nil, fmt.Errorf("mock canvas marshal: %w", err)
	}

	id := "mock-resp-" + uuid.NewString()
	rawText := fmt.Sprintf("%s\n%s\n\n%s\n%s", dualresponse.ChatMarker, chat, dualresponse.CanvasMarker, canvasJSON)

	m.turns[id] = &entity.LLMTurnRecord{
		ResponseID:  id,
		RawText:     rawText,
		UserPrompt:  req.Prompt,
		PreviousRef: req.PreviousRef,
	}
	m.canvases[id] = canvas

	ctxzap.Info(ctx, "[MOCK] conversation turn completed", zap.String("response_id", id))
	return &entity.LLMTurnResponse{ResponseID: id, RawText: rawText}, nil
}

func (m *MockConnector) RetrieveTurn(ctx context.Context, ref string) (*entity.LLMTurnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.turns[ref]
	if !ok {
		return nil, fmt.Errorf("mock turn %s not found", ref)
	}
	return record, nil
}

// baseCanvas picks the starting point for a refinement: a replayed manual
// edit embedded in the prompt wins over the chain's own last canvas.
func (m *MockConnector) baseCanvas(req *entity.LLMTurnRequest) *entity.CanvasFields {
	if replayed := extractReplayedCanvas(req.Prompt); replayed != nil {
		return replayed
	}
	if req.PreviousRef != nil {
		if prev, ok := m.canvases[*req.PreviousRef]; ok {
			clone := *prev
			clone.KPIs = append([]entity.KPI(nil), prev.KPIs...)
			return &clone
		}
	}
	return mockInitialCanvas("refined initiative")
}

func extractReplayedCanvas(promptText string) *entity.CanvasFields {
	_, after, found := strings.Cut(promptText, "CURRENT CANVAS STATE:")
	if !found {
		return nil
	}

	start := strings.Index(after, "{")
	end := strings.LastIndex(after, "}")
	if start < 0 || end <= start {
		return nil
	}

	var fields entity.CanvasFields
	if err := json.Unmarshal([]byte(after[start:end+1]), &fields); err != nil {
		return nil
	}
	return &fields
}

func mockInitialCanvas(statement string) *entity.CanvasFields {
	return &entity.CanvasFields{
		Title:            "Canvas: " + truncate(statement, 60),
		ProblemStatement: statement,
		Objectives:       []string{"Validate the core value proposition with early adopters"},
		KPIs: []entity.KPI{
			{Metric: "Active pilot users", Baseline: "Baseline TBD", Target: "50", MeasurementFrequency: "Weekly"},
		},
		SuccessCriteria: []string{"Pilot retention above 60% after one month"},
		KeyFeatures: []entity.KeyFeature{
			{Feature: "Core workflow", Description: "The minimal end-to-end user journey", Priority: "High"},
		},
		Risks: []entity.Risk{
			{Risk: "Low early adoption", Impact: "High", Probability: "Medium", Mitigation: "Targeted onboarding with the first ten users"},
		},
		Assumptions: []string{"The target audience experiences the stated problem weekly"},
		NonFunctionalRequirements: []entity.NFRequirement{
			{Category: "Reliability", Requirement: "Core workflow available during business hours"},
		},
		UseCases: []entity.UseCase{
			{UseCase: "Complete core workflow", Actor: "End user", Goal: "Solve the stated problem", Description: "The user walks the primary journey end to end"},
		},
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
