package entity

import (
	"fmt"
	"time"
)

type CanvasStatus string

// Canvas status represents the lifecycle state of a canvas session
const (
	CanvasStatusCreated  CanvasStatus = "CREATED"  // Canvas created, no accepted LLM turn yet
	CanvasStatusDrafted  CanvasStatus = "DRAFTED"  // At least one accepted turn produced canvas fields
	CanvasStatusArchived CanvasStatus = "ARCHIVED" // Soft-deleted by explicit user action
)

func (cs CanvasStatus) Validate() error {
	switch cs {
	case CanvasStatusCreated, CanvasStatusDrafted, CanvasStatusArchived:
		return nil
	default:
		return fmt.Errorf("unknown canvas status: %s", cs)
	}
}

// Canvas is one conversation/document unit. ConversationRef points at the
// latest completed LLM turn; each turn references its predecessor, so the
// whole history is reachable from this single handle.
type Canvas struct {
	ID              string       `json:"canvas_id"`
	OwnerID         string       `json:"owner_id"`
	Title           string       `json:"title"`
	Status          CanvasStatus `json:"status"`
	ConversationRef *string      `json:"conversation_ref,omitempty"`
	ManualOverride  bool         `json:"manual_override"`
	FileIDs         []string     `json:"file_ids,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ConversationMessage is one human-readable history entry: the bare user
// message or the chat segment of an assistant turn, never prompt scaffolding
// or canvas JSON.
type ConversationMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// FileUpload carries the bytes and name of a document attached to a turn.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TurnResult is what one completed (or short-circuited) conversation turn
// returns to the caller.
type TurnResult struct {
	ConversationRef    string        `json:"conversation_ref,omitempty"`
	ChatResponse       string        `json:"chat_response"`
	Canvas             *CanvasFields `json:"canvas_json,omitempty"`
	ValidationWarnings []string      `json:"validation_warnings,omitempty"`
}
