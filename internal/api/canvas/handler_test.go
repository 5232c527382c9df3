package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
)

// stubUsecase implements CanvasUsecase with per-test overrides. Calls
// without an override fail loudly.
type stubUsecase struct {
	getFields func(ctx context.Context, canvasID string) (*entity.CanvasFields, error)
	getCanvas func(ctx context.Context, canvasID string) (*entity.Canvas, error)
}

func (s *stubUsecase) CreateCanvas(context.Context, string) (*entity.Canvas, error) {
	return nil, fmt.Errorf("unexpected CreateCanvas call")
}

func (s *stubUsecase) GetCanvas(ctx context.Context, canvasID string) (*entity.Canvas, error) {
	if s.getCanvas == nil {
		return nil, fmt.Errorf("unexpected GetCanvas call")
	}
	return s.getCanvas(ctx, canvasID)
}

func (s *stubUsecase) GetFields(ctx context.Context, canvasID string) (*entity.CanvasFields, error) {
	if s.getFields == nil {
		return nil, fmt.Errorf("unexpected GetFields call")
	}
	return s.getFields(ctx, canvasID)
}

func (s *stubUsecase) ListCanvases(context.Context, string, int, int) ([]entity.CanvasListItem, error) {
	return nil, fmt.Errorf("unexpected ListCanvases call")
}

func (s *stubUsecase) SendMessage(context.Context, string, string, []entity.FileUpload) (*entity.TurnResult, error) {
	return nil, fmt.Errorf("unexpected SendMessage call")
}

func (s *stubUsecase) SaveManualEdit(context.Context, string, *entity.CanvasFields) error {
	return fmt.Errorf("unexpected SaveManualEdit call")
}

func (s *stubUsecase) GetHistory(context.Context, string) ([]entity.ConversationMessage, error) {
	return nil, fmt.Errorf("unexpected GetHistory call")
}

func (s *stubUsecase) Archive(context.Context, string) error {
	return fmt.Errorf("unexpected Archive call")
}

func (s *stubUsecase) Restore(context.Context, string) error {
	return fmt.Errorf("unexpected Restore call")
}

func (s *stubUsecase) Delete(context.Context, string) error {
	return fmt.Errorf("unexpected Delete call")
}

func (s *stubUsecase) Export(context.Context, string, entity.ExportFormat) ([]byte, string, string, error) {
	return nil, "", "", fmt.Errorf("unexpected Export call")
}

func newTestRouter(uc CanvasUsecase) http.Handler {
	h := NewHandler(uc, config.FileUploadConfig{
		MaxFileSize:   1 << 20,
		MaxTotalSize:  4 << 20,
		MaxFileCount:  3,
		MaxUploadSize: 8 << 20,
	})
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func TestGetFields_NotGeneratedYetAnswersOK(t *testing.T) {
	router := newTestRouter(&stubUsecase{
		getFields: func(context.Context, string) (*entity.CanvasFields, error) {
			return nil, fmt.Errorf("get canvas fields: %w", entity.ErrNoCanvasFields)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/canvas/11111111-2222-3333-4444-555555555555/fields", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body entity.CanvasFieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Fields)
	assert.Equal(t, "canvas fields have not been generated yet", body.Message)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", body.CanvasID)
}

func TestGetFields_UnknownCanvasAnswersNotFound(t *testing.T) {
	router := newTestRouter(&stubUsecase{
		getFields: func(context.Context, string) (*entity.CanvasFields, error) {
			return nil, fmt.Errorf("get canvas: %w", entity.ErrCanvasNotFound)
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/canvas/11111111-2222-3333-4444-555555555555/fields", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFields_PopulatedFields(t *testing.T) {
	router := newTestRouter(&stubUsecase{
		getFields: func(context.Context, string) (*entity.CanvasFields, error) {
			return &entity.CanvasFields{Title: "Dorm Eats", ProblemStatement: "Dorm dining is slow"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/canvas/11111111-2222-3333-4444-555555555555/fields", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body entity.CanvasFieldsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Fields)
	assert.Equal(t, "Dorm Eats", body.Fields.Title)
	assert.Empty(t, body.Message)
}
