package entity

import "time"

type CreateCanvasResponse struct {
	CanvasID string `json:"canvas_id"`
	Message  string `json:"message,omitempty"`
}

type MessageResponse struct {
	CanvasID           string        `json:"canvas_id"`
	ConversationRef    string        `json:"conversation_ref,omitempty"`
	ChatResponse       string        `json:"chat_response"`
	CanvasJSON         *CanvasFields `json:"canvas_json,omitempty"`
	ValidationWarnings []string      `json:"validation_warnings,omitempty"`
}

type SaveManualEditResponse struct {
	Success bool `json:"success"`
}

type ConversationHistoryResponse struct {
	CanvasID string                `json:"canvas_id"`
	History  []ConversationMessage `json:"history"`
}

type CanvasListItem struct {
	CanvasID         string    `json:"canvas_id"`
	Title            string    `json:"title"`
	ProblemStatement string    `json:"problem_statement,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CanvasListResponse struct {
	Canvases []CanvasListItem `json:"canvases"`
}

type CanvasFieldsResponse struct {
	CanvasID string        `json:"canvas_id"`
	Fields   *CanvasFields `json:"fields"`
	Message  string        `json:"message,omitempty"`
}

type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatPDF      ExportFormat = "pdf"
	FormatDOCX     ExportFormat = "docx"
)
