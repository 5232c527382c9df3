package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/logger"
	"github.com/aiforce/canvas-backend/internal/pkg/response"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Handler struct {
	usecase   CanvasUsecase
	uploadCfg config.FileUploadConfig
}

func NewHandler(usecase CanvasUsecase, uploadCfg config.FileUploadConfig) *Handler {
	return &Handler{
		usecase:   usecase,
		uploadCfg: uploadCfg,
	}
}

type createCanvasRequest struct {
	OwnerID string `json:"owner_id"`
}

// CreateCanvas handles POST /canvas - create an empty canvas
func (h *Handler) CreateCanvas(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateCanvas")

	var req createCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.OwnerID) == "" {
		response.Error(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	canvas, err := h.usecase.CreateCanvas(ctx, req.OwnerID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(w, entity.CreateCanvasResponse{
		CanvasID: canvas.ID,
		Message:  "canvas created",
	})
}

// GetCanvas handles GET /canvas/{id}
func (h *Handler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "GetCanvas"),
	)

	canvas, err := h.usecase.GetCanvas(ctx, canvasID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, canvas)
}

// ListCanvases handles GET /canvas?owner_id=...&skip=0&limit=50
func (h *Handler) ListCanvases(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListCanvases")

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		response.Error(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := h.usecase.ListCanvases(ctx, ownerID, skip, limit)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.CanvasListResponse{Canvases: items})
}

// SendMessage handles POST /canvas/{id}/message - one conversation turn.
// Accepts multipart form data (message + files) or a plain JSON body.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "SendMessage"),
	)

	message, files, err := h.parseTurnRequest(r)
	if err != nil {
		ctxzap.Error(ctx, "failed to parse turn request", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctxzap.Info(ctx, "processing conversation turn",
		zap.Int("message_length", len(message)),
		zap.Int("file_count", len(files)),
	)

	result, err := h.usecase.SendMessage(ctx, canvasID, message, files)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toMessageDTO(canvasID, result))
}

// SaveManualEdit handles PUT /canvas/{id}/fields - direct canvas edit
func (h *Handler) SaveManualEdit(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "SaveManualEdit"),
	)

	var fields entity.CanvasFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.usecase.SaveManualEdit(ctx, canvasID, &fields); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.SaveManualEditResponse{Success: true})
}

// GetFields handles GET /canvas/{id}/fields
func (h *Handler) GetFields(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "GetFields"),
	)

	fields, err := h.usecase.GetFields(ctx, canvasID)
	if err != nil {
		// A canvas that exists but has no accepted turn yet is not an
		// error for this endpoint: answer with empty fields.
		if errors.Is(err, entity.ErrNoCanvasFields) {
			response.Success(w, entity.CanvasFieldsResponse{
				CanvasID: canvasID,
				Message:  "canvas fields have not been generated yet",
			})
			return
		}
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.CanvasFieldsResponse{
		CanvasID: canvasID,
		Fields:   fields,
	})
}

// GetHistory handles GET /canvas/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "GetHistory"),
	)

	history, err := h.usecase.GetHistory(ctx, canvasID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, entity.ConversationHistoryResponse{
		CanvasID: canvasID,
		History:  history,
	})
}

// Archive handles POST /canvas/{id}/archive
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "Archive"),
	)

	if err := h.usecase.Archive(ctx, canvasID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// Restore handles POST /canvas/{id}/restore
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "Restore"),
	)

	if err := h.usecase.Restore(ctx, canvasID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /canvas/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "Delete"),
	)

	if err := h.usecase.Delete(ctx, canvasID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// Export handles GET /canvas/{id}/export?format=markdown|pdf|docx
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	canvasID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("canvas_id", canvasID),
		zap.String("action", "Export"),
	)

	format := entity.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}

	data, contentType, filename, err := h.usecase.Export(ctx, canvasID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// parseTurnRequest reads the message and optional file attachments from
// either a multipart form or a JSON body.
func (h *Handler) parseTurnRequest(r *http.Request) (string, []entity.FileUpload, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, fmt.Errorf("decode json body: %w", err)
		}
		return req.Message, nil, nil
	}

	if err := r.ParseMultipartForm(h.uploadCfg.MaxUploadSize); err != nil {
		return "", nil, fmt.Errorf("parse multipart form: %w", err)
	}

	message := r.FormValue("message")

	var files []entity.FileUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := readUpload(header)
			if err != nil {
				return "", nil, err
			}
			files = append(files, file)
		}
	}

	return message, files, nil
}

func readUpload(header *multipart.FileHeader) (entity.FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return entity.FileUpload{}, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return entity.FileUpload{}, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}

	return entity.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	ctxzap.Error(ctx, "request failed", zap.Error(err))

	switch {
	case errors.Is(err, entity.ErrCanvasNotFound):
		response.Error(w, http.StatusNotFound, "canvas not found")
	case errors.Is(err, entity.ErrInvalidParameter), errors.Is(err, entity.ErrMissingField):
		response.Error(w, http.StatusBadRequest, "invalid parameter")
	case errors.Is(err, entity.ErrCanvasArchived), errors.Is(err, entity.ErrCanvasNotArchived):
		response.Error(w, http.StatusConflict, "invalid canvas state")
	case errors.Is(err, entity.ErrNoCanvasFields):
		response.Error(w, http.StatusNotFound, "canvas has no generated fields yet")
	case errors.Is(err, entity.ErrParseFailure), errors.Is(err, entity.ErrInvalidCanvas):
		response.Error(w, http.StatusUnprocessableEntity, "failed to process message")
	case errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrTooManyFiles),
		errors.Is(err, entity.ErrTotalSizeTooLarge),
		errors.Is(err, entity.ErrInvalidFile):
		response.Error(w, http.StatusUnprocessableEntity, "invalid file upload")
	case errors.Is(err, entity.ErrUpstreamFailure):
		response.Error(w, http.StatusBadGateway, "failed to process message")
	default:
		response.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
