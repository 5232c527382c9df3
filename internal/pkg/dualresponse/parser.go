// Package dualresponse splits raw LLM output in the dual-section format into
// its conversational segment and its canvas JSON candidate.
package dualresponse

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	ChatMarker   = "---CHAT_RESPONSE---"
	CanvasMarker = "---CANVAS_JSON---"

	// snippetLimit bounds the amount of raw model text carried in a
	// ParseError for diagnostics.
	snippetLimit = 512
)


// ParseError reports a response that does not satisfy the dual-section
// contract. Snippet holds raw model text for logging; callers must not expose
// it to end users.
type ParseError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse dual response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse dual response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse splits raw model output into the chat segment and the canvas JSON
// candidate. Both section markers must be present; the JSON segment tolerates
// markdown fences, preambles and trailing commentary around the object.
func Parse(raw string) (string, map[string]any, error) {
	if !strings.Contains(raw, ChatMarker) || !strings.Contains(raw, CanvasMarker) {
		return "", nil, &ParseError{
			Reason:  "dual-section markers missing",
			Snippet: snippet(raw),
		}
	}

	parts := strings.Split(raw, CanvasMarker)
	if len(parts) != 2 {
		return "", nil, &ParseError{
			Reason:  "dual-section markers missing",
			Snippet: snippet(raw),
		}
	}

	chat := parts[0]
	if idx := strings.Index(chat, ChatMarker); idx >= 0 {
		chat = chat[idx+len(ChatMarker):]
	}
	chat = strings.TrimSpace(chat)

	candidate, err := extractJSON(parts[1])
	if err != nil {
		return "", nil, &ParseError{
			Reason:  "malformed canvas JSON",
			Snippet: snippet(parts[1]),
			Err:     err,
		}
	}

	return chat, candidate, nil
}

// extractJSON pulls the first balanced-looking object out of text: wrapping
// fences are trimmed, then everything between the first '{' and the last '}'
// is parsed. The wide slice tolerates commentary the model may emit around
// the object. Fences are only touched at the segment edges so backticks
// inside JSON string values survive.
func extractJSON(text string) (map[string]any, error) {
	text = trimFences(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	var candidate map[string]any
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return candidate, nil
}

// trimFences strips a markdown code fence wrapping the segment, if any.
func trimFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLimit {
		return s[:snippetLimit]
	}
	return s
}
