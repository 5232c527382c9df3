// Package canvasschema holds the Business Model Canvas field contract: the
// JSON-schema text embedded into every prompt, the advisory structural
// validator, and the normalizer that folds the model's loosely-shaped output
// into canonical records.
package canvasschema

// Canonical top-level keys of a canvas document.
const (
	KeyTitle            = "Title"
	KeyProblemStatement = "Problem Statement"
	KeyObjectives       = "Objectives"
	KeyKPIs             = "KPIs"
	KeySuccessCriteria  = "Success Criteria"
	KeyKeyFeatures      = "Key Features"
	KeyRisks            = "Risks"
	KeyAssumptions      = "Assumptions"
	KeyNFRs             = "Non Functional Requirements"
	KeyUseCases         = "Use Cases"
	KeyGovernance       = "Governance"
	KeyRelevantFacts    = "Relevant Facts"
	KeyTags             = "Tags"
)

// RequiredKeys are the sections every canvas must carry. Governance,
// relevant facts and tags are output-only extras and stay optional.
var RequiredKeys = []string{
	KeyTitle,
	KeyProblemStatement,
	KeyObjectives,
	KeyKPIs,
	KeySuccessCriteria,
	KeyKeyFeatures,
	KeyRisks,
	KeyAssumptions,
	KeyNFRs,
	KeyUseCases,
}

// stringKeys hold scalar text, listKeys hold arrays (of strings or records).
var (
	stringKeys = []string{KeyTitle, KeyProblemStatement}
	listKeys   = []string{
		KeyObjectives, KeyKPIs, KeySuccessCriteria, KeyKeyFeatures,
		KeyRisks, KeyAssumptions, KeyNFRs, KeyUseCases,
	}
)

// recordSubKeys names the identifying sub-keys of each record-typed list,
// checked best-effort on elements that arrive as native objects.
var recordSubKeys = map[string][]string{
	KeyKPIs:        {"metric", "target"},
	KeyKeyFeatures: {"feature"},
	KeyRisks:       {"risk", "mitigation"},
	KeyUseCases:    {"use_case"},
	KeyNFRs:        {"category", "requirement"},
}

// aliases maps each canonical key to the snake_case form some clients and
// older stored rows use.
var aliases = map[string]string{
	KeyTitle:            "title",
	KeyProblemStatement: "problem_statement",
	KeyObjectives:       "objectives",
	KeyKPIs:             "kpis",
	KeySuccessCriteria:  "success_criteria",
	KeyKeyFeatures:      "key_features",
	KeyRisks:            "risks",
	KeyAssumptions:      "assumptions",
	KeyNFRs:             "non_functional_requirements",
	KeyUseCases:         "use_cases",
	KeyGovernance:       "governance",
	KeyRelevantFacts:    "relevant_facts",
	KeyTags:             "tags",
}

// lookup finds a top-level field by canonical key or its snake_case alias.
func lookup(candidate map[string]any, key string) (any, bool) {
	if v, ok := candidate[key]; ok {
		return v, true
	}
	if alias, ok := aliases[key]; ok {
		if v, ok := candidate[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

// SchemaJSON returns the canvas JSON-schema as text for prompt embedding. The
// model is re-grounded with this schema on every request.
func SchemaJSON() string { return schemaJSON }

const schemaJSON = `{
  "type": "object",
  "properties": {
    "Title": {
      "type": "string",
      "description": "A concise, descriptive title for the business model or project"
    },
    "Problem Statement": {
      "type": "string",
      "description": "Clear articulation of the problem being addressed"
    },
    "Objectives": {
      "type": "array",
      "items": {"type": "string"},
      "description": "List of SMART objectives"
    },
    "KPIs": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "metric": {"type": "string"},
          "baseline": {"type": "string"},
          "target": {"type": "string"},
          "measurement_frequency": {"type": "string"}
        },
        "required": ["metric", "target", "measurement_frequency"]
      },
      "description": "Key Performance Indicators"
    },
    "Success Criteria": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Specific criteria that define project success"
    },
    "Key Features": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "feature": {"type": "string"},
          "description": {"type": "string"},
          "priority": {"type": "string", "enum": ["High", "Medium", "Low"]}
        },
        "required": ["feature", "description", "priority"]
      },
      "description": "Core features with priority levels"
    },
    "Risks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "risk": {"type": "string"},
          "impact": {"type": "string", "enum": ["High", "Medium", "Low"]},
          "probability": {"type": "string", "enum": ["High", "Medium", "Low"]},
          "mitigation": {"type": "string"}
        },
        "required": ["risk", "mitigation"]
      },
      "description": "Identified risks with mitigation strategies"
    },
    "Assumptions": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Key assumptions underlying the business model"
    },
    "Non Functional Requirements": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "category": {"type": "string"},
          "requirement": {"type": "string"}
        },
        "required": ["category", "requirement"]
      },
      "description": "Non-functional requirements as categorized items"
    },
    "Use Cases": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "use_case": {"type": "string"},
          "actor": {"type": "string"},
          "goal": {"type": "string"},
          "description": {"type": "string"}
        },
        "required": ["use_case", "actor", "description"]
      },
      "description": "Primary use cases"
    },
    "Governance": {
      "type": "object",
      "description": "Stakeholders, decision process, compliance and reporting"
    }
  },
  "required": [
    "Title", "Problem Statement", "Objectives", "KPIs",
    "Success Criteria", "Key Features", "Risks", "Assumptions",
    "Non Functional Requirements", "Use Cases"
  ]
}`
