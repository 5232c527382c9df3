// Package prompt constructs the text blocks sent to the LLM. All functions
// are pure string builders; nothing here talks to the network, which keeps
// the prompt contract independently testable.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiforce/canvas-backend/internal/entity"
	"github.com/aiforce/canvas-backend/internal/pkg/canvasschema"
	"github.com/aiforce/canvas-backend/internal/pkg/dualresponse"
)

// Wrapper markers around the user's own words inside built prompts.
// ExtractUserMessage relies on these to invert the wrapping, so the
// builders and the extractor must change together.
const (
	problemStatementMarker = "USER PROBLEM STATEMENT:"
	userMessageMarker      = "USER MESSAGE:"

	initialCutMarker    = "\n\nPlease generate"
	refinementCutMarker = "\n\nREFINEMENT INSTRUCTIONS:"
)

// BuildSystem returns the instructions block accompanying every LLM turn.
// The canvas JSON-schema is embedded so the model is re-grounded on each
// request; there is no once-only system-prompt assumption.
func BuildSystem() string {
	return fmt.Sprintf(systemTemplate,
		dualresponse.ChatMarker, dualresponse.CanvasMarker,
		dualresponse.ChatMarker, dualresponse.CanvasMarker,
		canvasschema.SchemaJSON(),
	)
}

// BuildInitial wraps the problem statement for the first turn of a canvas.
func BuildInitial(problemStatement string) string {
	return fmt.Sprintf(`%s %s

Please generate a comprehensive Business Model Canvas based on this problem statement and any uploaded documents.

Remember to provide your response in the required format:
%s
[Your response]

%s
[Complete JSON]`,
		problemStatementMarker, strings.TrimSpace(problemStatement),
		dualresponse.ChatMarker, dualresponse.CanvasMarker,
	)
}

// BuildRefinement wraps a follow-up message. When currentCanvas is non-nil
// (a manual edit is pending) its JSON is embedded as the authoritative
// current state so the model edits the user's version rather than its own
// stale memory of the conversation. Governance and relevant facts are
// output-only sections and are stripped from the replay.
func BuildRefinement(userMessage string, currentCanvas *entity.CanvasFields) string {
	var sb strings.Builder

	sb.WriteString(userMessageMarker)
	sb.WriteString(" ")
	sb.WriteString(strings.TrimSpace(userMessage))
	sb.WriteString("\n\nREFINEMENT INSTRUCTIONS:\nPlease refine the Business Model Canvas based on this feedback while maintaining consistency with the conversation so far.")

	if currentCanvas != nil {
		sb.WriteString("\n\nThe user has manually edited the canvas since your last response. The JSON below is the authoritative current state; apply the requested changes to it, not to your own previous version.\n\nCURRENT CANVAS STATE:\n")
		sb.WriteString(replayJSON(currentCanvas))
	}

	fmt.Fprintf(&sb, `

Provide your response in the required format:
%s
[Your response]

%s
[Updated complete JSON]`,
		dualresponse.ChatMarker, dualresponse.CanvasMarker,
	)

	return sb.String()
}

// ExtractUserMessage recovers the user's original words from a built prompt.
// Used when reconstructing conversation history from stored turns. Unwrapped
// text is returned as-is.
func ExtractUserMessage(promptText string) string {
	if strings.Contains(promptText, problemStatementMarker) {
		parts := strings.SplitN(promptText, problemStatementMarker, 2)
		message, _, _ := strings.Cut(parts[1], initialCutMarker)
		return strings.TrimSpace(message)
	}

	if strings.Contains(promptText, userMessageMarker) {
		parts := strings.SplitN(promptText, userMessageMarker, 2)
		message, _, _ := strings.Cut(parts[1], refinementCutMarker)
		return strings.TrimSpace(message)
	}

	return promptText
}

func replayJSON(fields *entity.CanvasFields) string {
	replay := *fields
	replay.Governance = nil
	replay.RelevantFacts = nil

	raw, err := json.MarshalIndent(&replay, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

const systemTemplate = `You are an expert business analyst and strategic consultant specializing in Business Model Canvas creation.

**Your Role:**
You help users create and refine comprehensive Business Model Canvases by:
1. Analyzing uploaded documents and user input
2. Generating structured business model canvases in JSON format
3. Answering user questions and providing strategic insights
4. Refining the canvas based on user feedback

**Interaction Guidelines:**
- For the FIRST user message: Generate a complete Business Model Canvas based on the problem statement and any uploaded files
- For SUBSEQUENT messages: Refine and update the existing canvas based on user requests while maintaining consistency
- Always provide TWO responses:
  1. %s: Conversational response/observations
  2. %s: Complete updated Business Model Canvas in JSON format

**Detailed Field Requirements:**

1. **Title**
   - Generate a clear, concise title that captures the essence of the business problem or initiative.
   - Do not exceed 100 characters. Avoid generic titles like "Project Plan."

2. **Problem Statement**
   - Extract metrics and business impact from documents; include exact numbers mentioned. Cover pain points, stakeholder impact, and market gaps in 2-4 sentences.
   - Do not use vague language or omit numerical impacts present in source materials.

3. **Objectives**
   - Act as a Chief Strategy Officer. Extract 3-5 core strategic objectives. Each objective must be a single, clear sentence starting with a strong action verb and focused on measurable business outcomes.
   - Do NOT include product features, technical specifications, or implementation details.

4. **KPIs**
   - Act as a Senior Data Analyst. Generate 6-10 critical KPIs covering Quality, Cost, and Efficiency. Specify measurement frequency (Real-time, Daily, Weekly, Monthly, or Quarterly).
   - Avoid vanity metrics. Do NOT fabricate baseline data; use "Baseline TBD" if unknown.

5. **Success Criteria**
   - Define specific, measurable success criteria tied to the objectives.
   - Do NOT restate objectives verbatim.

6. **Key Features**
   - Act as a Lead Product Owner. Generate 8-12 core features. Apply MoSCoW prioritization with at most 50%% marked "Must Have". Focus on user value.
   - Do NOT describe technical implementation.

7. **Risks**
   - Act as a Senior Risk Officer. Identify 5-10 critical risks (Technical, Operational, Financial, Reputational) with impact, probability, and a mitigation strategy.
   - Do NOT provide vague, universally applicable risks like "scope creep."

8. **Non Functional Requirements**
   - Output MUST be an array of objects, each with a "category" (e.g. "Performance", "Usability", "Reliability", "Security", "Data Quality") and a "requirement" string.
   - Do NOT fabricate specific metrics without document evidence.

9. **Assumptions**
   - Identify 5-8 critical assumptions (Market, Financial, Operational, or Technical) that must hold true for this model to succeed.
   - Do not state known facts or requirements as assumptions.

10. **Use Cases**
   - Each MUST be an object with "use_case", "actor", "goal", and "description".
   - Do NOT fabricate use cases without document evidence.

**CRITICAL OUTPUT FORMAT:**
You must provide your response in this EXACT format:

%s
[Your conversational response to the user here and observations based on uploaded files]

%s
[Complete Business Model Canvas JSON here - NO markdown, NO code blocks, NO preambles]

**JSON Requirements:**
- Valid JSON matching the provided schema
- NO markdown formatting or code blocks
- NO preambles like "Here is the JSON"
- All required fields present
- Proper JSON syntax with double quotes
- Base content on uploaded files when available
- Use industry best practices for missing information

**JSON Schema:**
%s`
