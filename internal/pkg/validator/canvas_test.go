package validator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
)

func newTestValidator() *Validator {
	return NewValidator(config.FileUploadConfig{
		MaxFileSize:  1 << 20, // 1 MiB
		MaxTotalSize: 2 << 20,
		MaxFileCount: 3,
	})
}

func upload(name string, size int) entity.FileUpload {
	return entity.FileUpload{Filename: name, Data: bytes.Repeat([]byte("a"), size)}
}

func TestValidateUpload_OK(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateUpload([]entity.FileUpload{
		upload("brief.pdf", 1024),
		upload("notes.md", 512),
	})

	assert.NoError(t, err)
}

func TestValidateUpload_NoFilesIsFine(t *testing.T) {
	v := newTestValidator()
	assert.NoError(t, v.ValidateUpload(nil))
}

func TestValidateUpload_RejectsExtension(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateUpload([]entity.FileUpload{upload("malware.exe", 10)})

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalidExtension)
}

func TestValidateUpload_RejectsEmptyFile(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateUpload([]entity.FileUpload{upload("empty.txt", 0)})

	assert.ErrorIs(t, err, entity.ErrInvalidFile)
}

func TestValidateUpload_RejectsOversizedFile(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateUpload([]entity.FileUpload{upload("big.pdf", (1<<20)+1)})

	assert.ErrorIs(t, err, entity.ErrFileTooLarge)
}

func TestValidateUpload_RejectsTooMany(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateUpload([]entity.FileUpload{
		upload("a.txt", 1), upload("b.txt", 1), upload("c.txt", 1), upload("d.txt", 1),
	})

	assert.ErrorIs(t, err, entity.ErrTooManyFiles)
}

func TestValidateUpload_RejectsTotalSize(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateUpload([]entity.FileUpload{
		upload("a.pdf", 1<<20),
		upload("b.pdf", 1<<20),
		upload("c.pdf", 1),
	})

	assert.ErrorIs(t, err, entity.ErrTotalSizeTooLarge)
}

func validEditFields() *entity.CanvasFields {
	return &entity.CanvasFields{
		Title:            "Edited Canvas",
		ProblemStatement: "Manually adjusted problem statement",
		Objectives:       []string{"Ship the pilot"},
		KPIs:             []entity.KPI{{Metric: "Activation rate", Target: "40%"}},
		SuccessCriteria:  []string{"Pilot signed off"},
		KeyFeatures:      []entity.KeyFeature{{Feature: "CSV export"}},
		Risks:            []entity.Risk{{Risk: "Low adoption", Mitigation: "Onboarding sessions"}},
		Assumptions:      []string{"Budget holds through Q4"},
		NonFunctionalRequirements: []entity.NFRequirement{
			{Category: "Security", Requirement: "SSO only"},
		},
		UseCases: []entity.UseCase{{UseCase: "Review canvas", Actor: "Analyst"}},
	}
}

func TestValidateManualEdit_OK(t *testing.T) {
	v := newTestValidator()
	assert.NoError(t, v.ValidateManualEdit(validEditFields()))
}

func TestValidateManualEdit_NilFields(t *testing.T) {
	v := newTestValidator()
	assert.ErrorIs(t, v.ValidateManualEdit(nil), entity.ErrMissingField)
}

func TestValidateManualEdit_MissingSection(t *testing.T) {
	v := newTestValidator()
	fields := validEditFields()
	fields.Risks = nil

	err := v.ValidateManualEdit(fields)

	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalidCanvas)
	assert.Contains(t, err.Error(), "Risks")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_v2.pdf", SanitizeFilename("../secret/report (v2).pdf"))
}
