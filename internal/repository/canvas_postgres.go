package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiforce/canvas-backend/internal/entity"
)

// CanvasRepository defines the interface for canvas header persistence
type CanvasRepository interface {
	Create(ctx context.Context, canvas entity.Canvas) (*entity.Canvas, error)
	Get(ctx context.Context, id string) (*entity.Canvas, error)
	List(ctx context.Context, ownerID string, status entity.CanvasStatus, skip, limit int) ([]*entity.Canvas, error)
	SetStatus(ctx context.Context, id string, status entity.CanvasStatus) error
	SetConversationRef(ctx context.Context, id, ref string) error
	SetManualOverride(ctx context.Context, id string, override bool) error
	UpdateTitle(ctx context.Context, id, title string) error
	AppendFileRef(ctx context.Context, id, fileID string) error
	Delete(ctx context.Context, id string) error
}

var _ CanvasRepository = &CanvasPostgres{}

// CanvasPostgres implements CanvasRepository using PostgreSQL
type CanvasPostgres struct {
	db *pgxpool.Pool
}

func NewCanvasPostgres(db *pgxpool.Pool) *CanvasPostgres {
	return &CanvasPostgres{db: db}
}

const canvasColumns = `id, owner_id, title, status, conversation_ref, manual_override, file_ids, created_at, updated_at`

func (r *CanvasPostgres) Create(ctx context.Context, canvas entity.Canvas) (*entity.Canvas, error) {
	canvasID, err := uuid.Parse(canvas.ID)
	if err != nil {
		return nil, fmt.Errorf("parse canvas ID: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO canvases (id, owner_id, title, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+canvasColumns,
		canvasID, canvas.OwnerID, canvas.Title, string(canvas.Status),
	)

	created, err := scanCanvas(row)
	if err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}
	return created, nil
}

func (r *CanvasPostgres) Get(ctx context.Context, id string) (*entity.Canvas, error) {
	canvasID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse canvas ID: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+canvasColumns+`
		FROM canvases
		WHERE id = $1`,
		canvasID,
	)

	canvas, err := scanCanvas(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrCanvasNotFound
		}
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	return canvas, nil
}

func (r *CanvasPostgres) List(ctx context.Context, ownerID string, status entity.CanvasStatus, skip, limit int) ([]*entity.Canvas, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+canvasColumns+`
		FROM canvases
		WHERE owner_id = $1 AND status = $2
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4`,
		ownerID, string(status), int32(limit), int32(skip),
	)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	defer rows.Close()

	var canvases []*entity.Canvas
	for rows.Next() {
		canvas, err := scanCanvas(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canvas: %w", err)
		}
		canvases = append(canvases, canvas)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}

	return canvases, nil
}

func (r *CanvasPostgres) SetStatus(ctx context.Context, id string, status entity.CanvasStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	return r.update(ctx, id, `UPDATE canvases SET status = $2, updated_at = now() WHERE id = $1`, string(status))
}

func (r *CanvasPostgres) SetConversationRef(ctx context.Context, id, ref string) error {
	return r.update(ctx, id, `UPDATE canvases SET conversation_ref = $2, updated_at = now() WHERE id = $1`, ref)
}

func (r *CanvasPostgres) SetManualOverride(ctx context.Context, id string, override bool) error {
	return r.update(ctx, id, `UPDATE canvases SET manual_override = $2, updated_at = now() WHERE id = $1`, override)
}

func (r *CanvasPostgres) UpdateTitle(ctx context.Context, id, title string) error {
	return r.update(ctx, id, `UPDATE canvases SET title = $2, updated_at = now() WHERE id = $1`, title)
}

func (r *CanvasPostgres) AppendFileRef(ctx context.Context, id, fileID string) error {
	return r.update(ctx, id, `UPDATE canvases SET file_ids = array_append(file_ids, $2), updated_at = now() WHERE id = $1`, fileID)
}

func (r *CanvasPostgres) Delete(ctx context.Context, id string) error {
	canvasID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse canvas ID: %w", err)
	}

	// canvas_fields rows go with the canvas via ON DELETE CASCADE
	tag, err := r.db.Exec(ctx, `DELETE FROM canvases WHERE id = $1`, canvasID)
	if err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrCanvasNotFound
	}
	return nil
}

func (r *CanvasPostgres) update(ctx context.Context, id, query string, arg any) error {
	canvasID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse canvas ID: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, canvasID, arg)
	if err != nil {
		return fmt.Errorf("update canvas: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrCanvasNotFound
	}
	return nil
}
