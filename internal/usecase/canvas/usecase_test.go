package canvas

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/integration/filestore"
	"github.com/aiforce/canvas-backend/internal/integration/llm"
	"github.com/aiforce/canvas-backend/internal/pkg/validator"
)

// memCanvasRepo is an in-memory CanvasRepository for tests.
type memCanvasRepo struct {
	mu       sync.Mutex
	canvases map[string]*entity.Canvas
}

func newMemCanvasRepo() *memCanvasRepo {
	return &memCanvasRepo{canvases: make(map[string]*entity.Canvas)}
}

func (r *memCanvasRepo) Create(_ context.Context, canvas entity.Canvas) (*entity.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	canvas.CreatedAt = now
	canvas.UpdatedAt = now
	stored := canvas
	r.canvases[canvas.ID] = &stored
	clone := stored
	return &clone, nil
}

func (r *memCanvasRepo) Get(_ context.Context, id string) (*entity.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[id]
	if !ok {
		return nil, entity.ErrCanvasNotFound
	}
	clone := *canvas
	return &clone, nil
}

func (r *memCanvasRepo) List(_ context.Context, ownerID string, status entity.CanvasStatus, _, _ int) ([]*entity.Canvas, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Canvas
	for _, canvas := range r.canvases {
		if canvas.OwnerID == ownerID && canvas.Status == status {
			clone := *canvas
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memCanvasRepo) mutate(id string, fn func(*entity.Canvas)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	canvas, ok := r.canvases[id]
	if !ok {
		return entity.ErrCanvasNotFound
	}
	fn(canvas)
	canvas.UpdatedAt = time.Now()
	return nil
}

func (r *memCanvasRepo) SetStatus(_ context.Context, id string, status entity.CanvasStatus) error {
	return r.mutate(id, func(c *entity.Canvas) { c.Status = status })
}

func (r *memCanvasRepo) SetConversationRef(_ context.Context, id, ref string) error {
	return r.mutate(id, func(c *entity.Canvas) { c.ConversationRef = &ref })
}

func (r *memCanvasRepo) SetManualOverride(_ context.Context, id string, override bool) error {
	return r.mutate(id, func(c *entity.Canvas) { c.ManualOverride = override })
}

func (r *memCanvasRepo) UpdateTitle(_ context.Context, id, title string) error {
	return r.mutate(id, func(c *entity.Canvas) { c.Title = title })
}

func (r *memCanvasRepo) AppendFileRef(_ context.Context, id, fileID string) error {
	return r.mutate(id, func(c *entity.Canvas) { c.FileIDs = append(c.FileIDs, fileID) })
}

func (r *memCanvasRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.canvases[id]; !ok {
		return entity.ErrCanvasNotFound
	}
	delete(r.canvases, id)
	return nil
}

// memFieldsRepo is an in-memory FieldsRepository for tests.
type memFieldsRepo struct {
	mu     sync.Mutex
	fields map[string]*entity.CanvasFields
}

func newMemFieldsRepo() *memFieldsRepo {
	return &memFieldsRepo{fields: make(map[string]*entity.CanvasFields)}
}

func (r *memFieldsRepo) Upsert(_ context.Context, canvasID string, fields *entity.CanvasFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *fields
	r.fields[canvasID] = &clone
	return nil
}

func (r *memFieldsRepo) Get(_ context.Context, canvasID string) (*entity.CanvasFields, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fields, ok := r.fields[canvasID]
	if !ok {
		return nil, entity.ErrNoCanvasFields
	}
	clone := *fields
	return &clone, nil
}

func (r *memFieldsRepo) Delete(_ context.Context, canvasID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fields, canvasID)
	return nil
}

type fixture struct {
	uc         *CanvasUsecase
	canvasRepo *memCanvasRepo
	fieldsRepo *memFieldsRepo
}

func newFixture(t *testing.T, strict bool, llmConn LLMConnector) *fixture {
	t.Helper()

	logger := zap.NewNop()
	canvasRepo := newMemCanvasRepo()
	fieldsRepo := newMemFieldsRepo()
	v := validator.NewValidator(config.FileUploadConfig{
		MaxFileSize:  1 << 20,
		MaxTotalSize: 4 << 20,
		MaxFileCount: 4,
	})

	if llmConn == nil {
		llmConn = llm.NewMockConnector(logger)
	}

	uc := NewUsecase(
		canvasRepo,
		fieldsRepo,
		v,
		llmConn,
		filestore.NewMockConnector(logger),
		gocache.New(time.Minute, 10*time.Minute),
		strict,
		logger,
	)
	return &fixture{uc: uc, canvasRepo: canvasRepo, fieldsRepo: fieldsRepo}
}

func TestSendMessage_FirstTurnDraftsCanvas(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusCreated, canvas.Status)

	result, err := fx.uc.SendMessage(ctx, canvas.ID, "Local gyms lose members to churn", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ConversationRef)
	assert.NotEmpty(t, result.ChatResponse)
	require.NotNil(t, result.Canvas)
	assert.Equal(t, "Local gyms lose members to churn", result.Canvas.ProblemStatement)
	assert.Empty(t, result.ValidationWarnings)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusDrafted, stored.Status)
	require.NotNil(t, stored.ConversationRef)
	assert.Equal(t, result.ConversationRef, *stored.ConversationRef)
	assert.Equal(t, result.Canvas.Title, stored.Title)

	fields, err := fx.fieldsRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Canvas.Title, fields.Title)
}

func TestSendMessage_EmptyMessageShortCircuits(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	result, err := fx.uc.SendMessage(ctx, canvas.ID, "   \n\t ", nil)
	require.NoError(t, err)

	assert.Empty(t, result.ConversationRef)
	assert.Nil(t, result.Canvas)
	assert.Contains(t, result.ChatResponse, "valid problem statement")

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusCreated, stored.Status)
	assert.Nil(t, stored.ConversationRef)
}

func TestSendMessage_CanvasNotFound(t *testing.T) {
	fx := newFixture(t, false, nil)

	_, err := fx.uc.SendMessage(context.Background(), "11111111-1111-1111-1111-111111111111", "hello", nil)
	assert.ErrorIs(t, err, entity.ErrCanvasNotFound)
}

func TestSendMessage_RefinementAdvancesConversationRef(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	first, err := fx.uc.SendMessage(ctx, canvas.ID, "Independent pharmacies lack delivery", nil)
	require.NoError(t, err)

	second, err := fx.uc.SendMessage(ctx, canvas.ID, "Add a KPI for same-day delivery rate", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.ConversationRef, second.ConversationRef)
	require.NotNil(t, second.Canvas)
	assert.Greater(t, len(second.Canvas.KPIs), len(first.Canvas.KPIs))
}

func TestSendMessage_ManualEditReplayedIntoRefinement(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	first, err := fx.uc.SendMessage(ctx, canvas.ID, "Food trucks cannot accept preorders", nil)
	require.NoError(t, err)

	edited := first.Canvas
	edited.Title = "Preorder Platform For Food Trucks"
	require.NoError(t, fx.uc.SaveManualEdit(ctx, canvas.ID, edited))

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.True(t, stored.ManualOverride)

	refined, err := fx.uc.SendMessage(ctx, canvas.ID, "Add an objective about lunch rush throughput", nil)
	require.NoError(t, err)

	// The manual title survives the LLM round-trip and the flag is cleared.
	require.NotNil(t, refined.Canvas)
	assert.Equal(t, "Preorder Platform For Food Trucks", refined.Canvas.Title)

	stored, err = fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.False(t, stored.ManualOverride)
}

// brokenLLM returns output without the dual-section markers.
type brokenLLM struct{}

func (brokenLLM) SendTurn(context.Context, *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error) {
	return &entity.LLMTurnResponse{ResponseID: "resp-broken", RawText: "no markers here"}, nil
}

func (brokenLLM) RetrieveTurn(context.Context, string) (*entity.LLMTurnRecord, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestSendMessage_ParseFailureLeavesCanvasUntouched(t *testing.T) {
	fx := newFixture(t, false, brokenLLM{})
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "A statement", nil)
	assert.ErrorIs(t, err, entity.ErrParseFailure)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusCreated, stored.Status)
	assert.Nil(t, stored.ConversationRef)

	_, err = fx.fieldsRepo.Get(ctx, canvas.ID)
	assert.ErrorIs(t, err, entity.ErrNoCanvasFields)
}

// failingLLM simulates an upstream outage.
type failingLLM struct{}

func (failingLLM) SendTurn(context.Context, *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error) {
	return nil, fmt.Errorf("upstream 503")
}

func (failingLLM) RetrieveTurn(context.Context, string) (*entity.LLMTurnRecord, error) {
	return nil, fmt.Errorf("upstream 503")
}

func TestSendMessage_UpstreamFailure(t *testing.T) {
	fx := newFixture(t, false, failingLLM{})
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "A statement", nil)
	assert.ErrorIs(t, err, entity.ErrUpstreamFailure)
}

// incompleteLLM emits a parseable response whose canvas is missing sections.
type incompleteLLM struct{}

func (incompleteLLM) SendTurn(context.Context, *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error) {
	raw := "---CHAT_RESPONSE---\nHere you go.\n\n---CANVAS_JSON---\n{\"Title\": \"Partial\"}"
	return &entity.LLMTurnResponse{ResponseID: "resp-partial", RawText: raw}, nil
}

func (incompleteLLM) RetrieveTurn(context.Context, string) (*entity.LLMTurnRecord, error) {
	return nil, fmt.Errorf("not implemented")
}

func TestSendMessage_AdvisoryValidationReportsWarnings(t *testing.T) {
	fx := newFixture(t, false, incompleteLLM{})
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	result, err := fx.uc.SendMessage(ctx, canvas.ID, "A statement", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ValidationWarnings)
	require.NotNil(t, result.Canvas)
	assert.Equal(t, "Partial", result.Canvas.Title)

	// Advisory mode still persists the canvas.
	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusDrafted, stored.Status)
}

func TestSendMessage_StrictValidationRejects(t *testing.T) {
	fx := newFixture(t, true, incompleteLLM{})
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "A statement", nil)
	assert.ErrorIs(t, err, entity.ErrInvalidCanvas)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusCreated, stored.Status)
}

func TestSendMessage_FileUploadRecordsRefs(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	files := []entity.FileUpload{
		{Filename: "brief.pdf", Data: []byte("pdf bytes")},
		{Filename: "notes.md", Data: []byte("# notes")},
	}

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Use the attached brief", files)
	require.NoError(t, err)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Len(t, stored.FileIDs, 2)
}

func TestSendMessage_RejectsBadUpload(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "message", []entity.FileUpload{
		{Filename: "virus.exe", Data: []byte("nope")},
	})
	assert.ErrorIs(t, err, entity.ErrInvalidExtension)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.FileIDs)
}

func TestSaveManualEdit_RejectsIncompleteFields(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	err = fx.uc.SaveManualEdit(ctx, canvas.ID, &entity.CanvasFields{Title: "Only a title"})
	assert.ErrorIs(t, err, entity.ErrInvalidCanvas)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.False(t, stored.ManualOverride)
}

func TestGetHistory_ChronologicalAndUnwrapped(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	history, err := fx.uc.GetHistory(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "First statement", nil)
	require.NoError(t, err)
	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Second message", nil)
	require.NoError(t, err)

	history, err = fx.uc.GetHistory(ctx, canvas.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, "First statement", history[0].Content)
	assert.Equal(t, entity.RoleAssistant, history[1].Role)
	assert.NotContains(t, history[1].Content, "---CANVAS_JSON---")
	assert.Equal(t, entity.RoleUser, history[2].Role)
	assert.Equal(t, "Second message", history[2].Content)
	assert.Equal(t, entity.RoleAssistant, history[3].Role)
}

// garbledTurnLLM serves a stored turn whose raw text violates the
// dual-section contract.
type garbledTurnLLM struct{}

func (garbledTurnLLM) SendTurn(context.Context, *entity.LLMTurnRequest) (*entity.LLMTurnResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (garbledTurnLLM) RetrieveTurn(_ context.Context, ref string) (*entity.LLMTurnRecord, error) {
	return &entity.LLMTurnRecord{
		ResponseID: ref,
		RawText:    `Some notes {"Title": "Leaked", "KPIs": []} with no section markers`,
		UserPrompt: "USER PROBLEM STATEMENT: Build something\n\nPlease generate a Business Model Canvas.",
	}, nil
}

func TestGetHistory_GarbledTurnNeverLeaksRawText(t *testing.T) {
	fx := newFixture(t, false, garbledTurnLLM{})
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)
	require.NoError(t, fx.canvasRepo.SetConversationRef(ctx, canvas.ID, "resp-garbled"))

	history, err := fx.uc.GetHistory(ctx, canvas.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, "Build something", history[0].Content)
	assert.Equal(t, entity.RoleAssistant, history[1].Role)
	assert.Empty(t, history[1].Content)
}

func TestArchiveRestoreLifecycle(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Statement", nil)
	require.NoError(t, err)

	require.NoError(t, fx.uc.Archive(ctx, canvas.ID))
	assert.ErrorIs(t, fx.uc.Archive(ctx, canvas.ID), entity.ErrCanvasArchived)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Still there?", nil)
	assert.ErrorIs(t, err, entity.ErrCanvasArchived)

	require.NoError(t, fx.uc.Restore(ctx, canvas.ID))
	assert.ErrorIs(t, fx.uc.Restore(ctx, canvas.ID), entity.ErrCanvasNotArchived)

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusDrafted, stored.Status)
}

func TestRestore_WithoutFieldsReturnsToCreated(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	require.NoError(t, fx.uc.Archive(ctx, canvas.ID))
	require.NoError(t, fx.uc.Restore(ctx, canvas.ID))

	stored, err := fx.canvasRepo.Get(ctx, canvas.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CanvasStatusCreated, stored.Status)
}

func TestDelete_RemovesEverything(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Statement", []entity.FileUpload{
		{Filename: "doc.txt", Data: []byte("text")},
	})
	require.NoError(t, err)

	require.NoError(t, fx.uc.Delete(ctx, canvas.ID))

	_, err = fx.canvasRepo.Get(ctx, canvas.ID)
	assert.ErrorIs(t, err, entity.ErrCanvasNotFound)
}

func TestExport_Markdown(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Statement", nil)
	require.NoError(t, err)

	data, contentType, filename, err := fx.uc.Export(ctx, canvas.ID, entity.FormatMarkdown)
	require.NoError(t, err)

	assert.Contains(t, contentType, "markdown")
	assert.Contains(t, filename, ".md")
	assert.Contains(t, string(data), "## Problem Statement")
}

func TestExport_RequiresFields(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	_, _, _, err = fx.uc.Export(ctx, canvas.ID, entity.FormatMarkdown)
	assert.ErrorIs(t, err, entity.ErrNoCanvasFields)
}

func TestListCanvases_IncludesProblemStatement(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	canvas, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)
	_, err = fx.uc.CreateCanvas(ctx, "owner-2")
	require.NoError(t, err)

	_, err = fx.uc.SendMessage(ctx, canvas.ID, "Owner one's problem", nil)
	require.NoError(t, err)

	items, err := fx.uc.ListCanvases(ctx, "owner-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, canvas.ID, items[0].CanvasID)
	assert.Equal(t, "Owner one's problem", items[0].ProblemStatement)
}

func TestListCanvases_OnlyDrafted(t *testing.T) {
	fx := newFixture(t, false, nil)
	ctx := context.Background()

	drafted, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)
	_, err = fx.uc.SendMessage(ctx, drafted.ID, "Meal delivery for dorms", nil)
	require.NoError(t, err)

	archived, err := fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)
	_, err = fx.uc.SendMessage(ctx, archived.ID, "Bike courier dispatching", nil)
	require.NoError(t, err)
	require.NoError(t, fx.uc.Archive(ctx, archived.ID))

	// Created but never drafted: no content to list yet.
	_, err = fx.uc.CreateCanvas(ctx, "owner-1")
	require.NoError(t, err)

	items, err := fx.uc.ListCanvases(ctx, "owner-1", 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, drafted.ID, items[0].CanvasID)

	// Restoring brings the archived canvas back into the listing.
	require.NoError(t, fx.uc.Restore(ctx, archived.ID))
	items, err = fx.uc.ListCanvases(ctx, "owner-1", 0, 10)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
