package entity

// LLMTurnRequest is one request/response exchange with the LLM collaborator.
// PreviousRef links the turn into the backward chain; Instructions is only
// set on the first turn of a conversation.
type LLMTurnRequest struct {
	PreviousRef  *string  `json:"previous_response_id,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Prompt       string   `json:"prompt"`
	FileIDs      []string `json:"file_ids,omitempty"`
}

// LLMTurnResponse carries the raw dual-section model output and the new
// conversation reference produced by this turn.
type LLMTurnResponse struct {
	ResponseID string `json:"id"`
	RawText    string `json:"output_text"`
}

// LLMTurnRecord is a previously completed turn, retrieved by reference when
// reconstructing history. UserPrompt is the full wrapped prompt that was sent;
// the bare user message is recovered from it by the prompt package.
type LLMTurnRecord struct {
	ResponseID  string  `json:"id"`
	RawText     string  `json:"output_text"`
	UserPrompt  string  `json:"user_prompt"`
	PreviousRef *string `json:"previous_response_id,omitempty"`
}
