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

// FieldsRepository defines the interface for canvas field persistence.
// Writes are full-row replace; there is no field-level patch.
type FieldsRepository interface {
	Upsert(ctx context.Context, canvasID string, fields *entity.CanvasFields) error
	Get(ctx context.Context, canvasID string) (*entity.CanvasFields, error)
	Delete(ctx context.Context, canvasID string) error
}

var _ FieldsRepository = &FieldsPostgres{}

// FieldsPostgres implements FieldsRepository using PostgreSQL
type FieldsPostgres struct {
	db *pgxpool.Pool
}

func NewFieldsPostgres(db *pgxpool.Pool) *FieldsPostgres {
	return &FieldsPostgres{db: db}
}

func (r *FieldsPostgres) Upsert(ctx context.Context, canvasID string, fields *entity.CanvasFields) error {
	id, err := uuid.Parse(canvasID)
	if err != nil {
		return fmt.Errorf("parse canvas ID: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO canvas_fields (
			canvas_id, title, problem_statement, objectives, kpis,
			success_criteria, key_features, risks, assumptions,
			non_functional_requirements, use_cases, governance,
			relevant_facts, tags, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (canvas_id) DO UPDATE SET
			title = EXCLUDED.title,
			problem_statement = EXCLUDED.problem_statement,
			objectives = EXCLUDED.objectives,
			kpis = EXCLUDED.kpis,
			success_criteria = EXCLUDED.success_criteria,
			key_features = EXCLUDED.key_features,
			risks = EXCLUDED.risks,
			assumptions = EXCLUDED.assumptions,
			non_functional_requirements = EXCLUDED.non_functional_requirements,
			use_cases = EXCLUDED.use_cases,
			governance = EXCLUDED.governance,
			relevant_facts = EXCLUDED.relevant_facts,
			tags = EXCLUDED.tags,
			updated_at = now()`,
		id,
		fields.Title,
		fields.ProblemStatement,
		toTextArray(fields.Objectives),
		orEmptyList(fields.KPIs),
		toTextArray(fields.SuccessCriteria),
		orEmptyList(fields.KeyFeatures),
		orEmptyList(fields.Risks),
		toTextArray(fields.Assumptions),
		orEmptyList(fields.NonFunctionalRequirements),
		orEmptyList(fields.UseCases),
		fields.Governance,
		toTextArray(fields.RelevantFacts),
		toTextArray(fields.Tags),
	)
	if err != nil {
		return fmt.Errorf("upsert canvas fields: %w", err)
	}

	return nil
}

func (r *FieldsPostgres) Get(ctx context.Context, canvasID string) (*entity.CanvasFields, error) {
	id, err := uuid.Parse(canvasID)
	if err != nil {
		return nil, fmt.Errorf("parse canvas ID: %w", err)
	}

	row := r.db.QueryRow(ctx, `
		SELECT title, problem_statement, objectives, kpis,
		       success_criteria, key_features, risks, assumptions,
		       non_functional_requirements, use_cases, governance,
		       relevant_facts, tags
		FROM canvas_fields
		WHERE canvas_id = $1`,
		id,
	)

	fields, err := scanFields(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrNoCanvasFields
		}
		return nil, fmt.Errorf("get canvas fields: %w", err)
	}
	return fields, nil
}

func (r *FieldsPostgres) Delete(ctx context.Context, canvasID string) error {
	id, err := uuid.Parse(canvasID)
	if err != nil {
		return fmt.Errorf("parse canvas ID: %w", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM canvas_fields WHERE canvas_id = $1`, id); err != nil {
		return fmt.Errorf("delete canvas fields: %w", err)
	}
	return nil
}
