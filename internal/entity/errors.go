package entity

import "errors"

// Domain errors
var (
	// Canvas errors
	ErrCanvasNotFound     = errors.New("canvas not found")
	ErrCanvasArchived     = errors.New("canvas is archived")
	ErrCanvasNotArchived  = errors.New("canvas is not archived")
	ErrNoCanvasFields     = errors.New("canvas fields not yet generated")
	ErrInvalidCanvas      = errors.New("canvas failed schema validation")

	// Turn errors
	ErrEmptyMessage    = errors.New("message is empty")
	ErrParseFailure    = errors.New("failed to parse model response")
	ErrUpstreamFailure = errors.New("failed to process message")

	// File errors
	ErrInvalidFile       = errors.New("invalid file")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyFiles      = errors.New("too many files")
	ErrInvalidExtension  = errors.New("invalid file extension")
	ErrTotalSizeTooLarge = errors.New("total file size too large")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
