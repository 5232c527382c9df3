package repository

import (
	"github.com/jackc/pgx/v5"

	"github.com/aiforce/canvas-backend/internal/entity"
)

func scanCanvas(row pgx.Row) (*entity.Canvas, error) {
	var canvas entity.Canvas
	var status string

	err := row.Scan(
		&canvas.ID,
		&canvas.OwnerID,
		&canvas.Title,
		&status,
		&canvas.ConversationRef,
		&canvas.ManualOverride,
		&canvas.FileIDs,
		&canvas.CreatedAt,
		&canvas.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	canvas.Status = entity.CanvasStatus(status)
	return &canvas, nil
}

func scanFields(row pgx.Row) (*entity.CanvasFields, error) {
	var fields entity.CanvasFields

	err := row.Scan(
		&fields.Title,
		&fields.ProblemStatement,
		&fields.Objectives,
		&fields.KPIs,
		&fields.SuccessCriteria,
		&fields.KeyFeatures,
		&fields.Risks,
		&fields.Assumptions,
		&fields.NonFunctionalRequirements,
		&fields.UseCases,
		&fields.Governance,
		&fields.RelevantFacts,
		&fields.Tags,
	)
	if err != nil {
		return nil, err
	}

	return &fields, nil
}

// toTextArray keeps TEXT[] columns non-null on write.
func toTextArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// orEmptyList keeps JSONB list columns as [] rather than SQL null when the
// Go slice is nil.
func orEmptyList[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
