package dualresponse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedResponse(t *testing.T) {
	raw := `---CHAT_RESPONSE---
I drafted an initial canvas for your meal-delivery idea.

---CANVAS_JSON---
{"Title": "Dorm Eats", "Objectives": ["Increase dorm meal coverage"]}`

	chat, candidate, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "I drafted an initial canvas for your meal-delivery idea.", chat)
	assert.Equal(t, "Dorm Eats", candidate["Title"])
	assert.Len(t, candidate["Objectives"], 1)
}

func TestParseMissingMarkers(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no markers at all", `{"Title": "x"}`},
		{"chat marker only", "---CHAT_RESPONSE---\nhello"},
		{"canvas marker only", "---CANVAS_JSON---\n{\"Title\": \"x\"}"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(tt.raw)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "dual-section markers missing", parseErr.Reason)
		})
	}
}

func TestParseToleratesCodeFences(t *testing.T) {
	fenced := "---CHAT_RESPONSE---\nHere you go.\n---CANVAS_JSON---\n```json\n{\"Title\": \"Fenced\"}\n```"
	plain := "---CHAT_RESPONSE---\nHere you go.\n---CANVAS_JSON---\n{\"Title\": \"Fenced\"}"

	_, fromFenced, err := Parse(fenced)
	require.NoError(t, err)
	_, fromPlain, err := Parse(plain)
	require.NoError(t, err)
	assert.Equal(t, fromPlain, fromFenced)
}

func TestParsePreservesBackticksInsideStringValues(t *testing.T) {
	raw := "---CHAT_RESPONSE---\nNoted.\n---CANVAS_JSON---\n```json\n{\"Title\": \"Docs\", \"Objectives\": [\"Render ```mermaid``` blocks in the docs viewer\"]}\n```"

	_, candidate, err := Parse(raw)
	require.NoError(t, err)
	objectives, ok := candidate["Objectives"].([]any)
	require.True(t, ok)
	require.Len(t, objectives, 1)
	assert.Equal(t, "Render ```mermaid``` blocks in the docs viewer", objectives[0])
}

func TestParseToleratesPreambleAndTrailingCommentary(t *testing.T) {
	raw := "---CHAT_RESPONSE---\nDone.\n---CANVAS_JSON---\nHere is the JSON you asked for:\n{\"Title\": \"Wrapped\", \"Nested\": {\"a\": 1}}\nLet me know if you need changes."

	chat, candidate, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Done.", chat)
	assert.Equal(t, "Wrapped", candidate["Title"])
	nested, ok := candidate["Nested"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, nested["a"])
}

func TestParseMalformedJSON(t *testing.T) {
	raw := "---CHAT_RESPONSE---\nOops.\n---CANVAS_JSON---\n{\"Title\": \"broken\""

	_, _, err := Parse(raw)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "malformed canvas JSON", parseErr.Reason)
	assert.Contains(t, parseErr.Snippet, "broken")
}

func TestParseChatSegmentWithoutChatMarkerPrefix(t *testing.T) {
	// The chat marker may be absent from the leading segment when the model
	// starts talking immediately; the text before the JSON marker is the chat.
	raw := "Some direct reply text ---CHAT_RESPONSE--- actual chat\n---CANVAS_JSON---\n{}"

	chat, _, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "actual chat", chat)
}
