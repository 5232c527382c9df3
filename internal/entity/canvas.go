package entity

// CanvasFields is the structured Business Model Canvas payload, one-to-one
// with a Canvas. JSON tags use the canonical wire keys the LLM is prompted
// to emit; alias handling for snake_case variants lives in the
// canvasschema normalizer, not here.
type CanvasFields struct {
	Title                     string           `json:"Title"`
	ProblemStatement          string           `json:"Problem Statement"`
	Objectives                []string         `json:"Objectives"`
	KPIs                      []KPI            `json:"KPIs"`
	SuccessCriteria           []string         `json:"Success Criteria"`
	KeyFeatures               []KeyFeature     `json:"Key Features"`
	Risks                     []Risk           `json:"Risks"`
	Assumptions               []string         `json:"Assumptions"`
	NonFunctionalRequirements []NFRequirement  `json:"Non Functional Requirements"`
	UseCases                  []UseCase        `json:"Use Cases"`
	Governance                map[string]any   `json:"Governance,omitempty"`
	RelevantFacts             []string         `json:"Relevant Facts,omitempty"`
	Tags                      []string         `json:"Tags,omitempty"`
}

type KPI struct {
	Metric               string `json:"metric"`
	Baseline             string `json:"baseline,omitempty"`
	Target               string `json:"target"`
	MeasurementFrequency string `json:"measurement_frequency,omitempty"`
}

type KeyFeature struct {
	Feature     string `json:"feature"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Risk keeps impact/probability optional: older canvases carry only
// risk+mitigation pairs.
type Risk struct {
	Risk        string `json:"risk"`
	Impact      string `json:"impact,omitempty"`
	Probability string `json:"probability,omitempty"`
	Mitigation  string `json:"mitigation"`
}

type UseCase struct {
	UseCase     string `json:"use_case"`
	Actor       string `json:"actor,omitempty"`
	Goal        string `json:"goal,omitempty"`
	Description string `json:"description,omitempty"`
}

// NFRequirement is the canonical flat shape for non-functional requirements.
// Bucket-shaped input (named category lists) is folded into these records
// during normalization.
type NFRequirement struct {
	Category    string `json:"category"`
	Requirement string `json:"requirement"`
}
