package canvasschema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wellFormedCanvas(t *testing.T) map[string]any {
	t.Helper()

	const raw = `{
		"Title": "Fleet Telemetry Platform",
		"Problem Statement": "Dispatchers lack real-time vehicle visibility",
		"Objectives": ["Reduce idle time by 20%"],
		"KPIs": [{"metric": "Idle hours per vehicle", "baseline": "6", "target": "4.8", "measurement_frequency": "weekly"}],
		"Success Criteria": ["Pilot fleet fully onboarded"],
		"Key Features": [{"feature": "Live map", "description": "Positions refreshed every 10s", "priority": "High"}],
		"Risks": [{"risk": "GPS dead zones", "impact": "Medium", "probability": "High", "mitigation": "Dead-reckoning fallback"}],
		"Assumptions": ["Vehicles carry OBD-II dongles"],
		"Non Functional Requirements": [{"category": "Performance", "requirement": "Ingest 10k events/s"}],
		"Use Cases": [{"use_case": "Track vehicle", "actor": "Dispatcher", "goal": "Locate unit", "description": "Dispatcher opens the live map"}]
	}`

	var candidate map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &candidate))
	return candidate
}

func TestValidate_WellFormed(t *testing.T) {
	ok, reasons := Validate(wellFormedCanvas(t))

	assert.True(t, ok)
	assert.Empty(t, reasons)
}

func TestValidate_NilCandidate(t *testing.T) {
	ok, reasons := Validate(nil)

	assert.False(t, ok)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "null")
}

func TestValidate_MissingRequiredField(t *testing.T) {
	candidate := wellFormedCanvas(t)
	delete(candidate, KeyRisks)

	ok, reasons := Validate(candidate)

	assert.False(t, ok)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], `missing required field: "Risks"`)
}

func TestValidate_SnakeCaseAliasesAccepted(t *testing.T) {
	candidate := wellFormedCanvas(t)
	candidate["problem_statement"] = candidate[KeyProblemStatement]
	delete(candidate, KeyProblemStatement)
	candidate["use_cases"] = candidate[KeyUseCases]
	delete(candidate, KeyUseCases)

	ok, reasons := Validate(candidate)

	assert.True(t, ok)
	assert.Empty(t, reasons)
}

func TestValidate_WrongTypes(t *testing.T) {
	candidate := wellFormedCanvas(t)
	candidate[KeyTitle] = 42.0
	candidate[KeyObjectives] = "not a list"

	ok, reasons := Validate(candidate)

	assert.False(t, ok)
	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "expected string")
	assert.Contains(t, reasons[1], "expected array")
}

func TestValidate_RecordMissingSubKey(t *testing.T) {
	candidate := wellFormedCanvas(t)
	candidate[KeyKPIs] = []any{map[string]any{"metric": "Idle hours"}}

	ok, reasons := Validate(candidate)

	assert.False(t, ok)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], `"KPIs"[0]`)
	assert.Contains(t, reasons[0], `"target"`)
}

func TestValidate_StringEncodedRecordsPass(t *testing.T) {
	candidate := wellFormedCanvas(t)
	candidate[KeyRisks] = []any{`{"risk": "Vendor lock-in", "mitigation": "Abstraction layer"}`}

	ok, reasons := Validate(candidate)

	assert.True(t, ok)
	assert.Empty(t, reasons)
}

func TestSchemaJSON_IsValidJSON(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(SchemaJSON()), &schema))

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.Len(t, required, len(RequiredKeys))
}
