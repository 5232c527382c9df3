package validator

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aiforce/canvas-backend/internal/config"
	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/canvasschema"
)

var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// Validator validates file uploads and direct canvas edits
type Validator struct {
	cfg config.FileUploadConfig
}

func NewValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload validates a batch of uploaded documents against the
// configured count/size ceilings and the extension allow-list.
func (v *Validator) ValidateUpload(files []entity.FileUpload) error {
	if len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		if _, ok := AllowedExtensions[ext]; !ok {
			return fmt.Errorf("%w: %s (allowed: pdf, docx, txt, md)", entity.ErrInvalidExtension, ext)
		}

		size := int64(len(f.Data))
		if size == 0 {
			return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, f.Filename)
		}
		if size > v.cfg.MaxFileSize {
			return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, f.Filename, size, v.cfg.MaxFileSize)
		}

		totalSize += size
	}

	if totalSize > v.cfg.MaxTotalSize {
		return fmt.Errorf("%w: total size is %d bytes (max %d)", entity.ErrTotalSizeTooLarge, totalSize, v.cfg.MaxTotalSize)
	}

	return nil
}

// ValidateManualEdit is the strict gate for direct field edits. Unlike the
// advisory check on LLM output, a manual edit that fails the canvas contract
// is rejected outright.
func (v *Validator) ValidateManualEdit(fields *entity.CanvasFields) error {
	if fields == nil {
		return fmt.Errorf("%w: canvas fields", entity.ErrMissingField)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidCanvas, err)
	}

	var candidate map[string]any
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidCanvas, err)
	}

	if ok, reasons := canvasschema.Validate(candidate); !ok {
		return fmt.Errorf("%w: %s", entity.ErrInvalidCanvas, strings.Join(reasons, "; "))
	}

	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
