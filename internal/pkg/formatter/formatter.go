package formatter

import (
	"fmt"
	"strings"

	"github.com/aiforce/canvas-backend/internal/entity"
)

const fallbackTitle = "Business Model Canvas"

type Formatter interface {
	Format(fields *entity.CanvasFields) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ExportFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// section is one rendered canvas block shared by all output formats.
type section struct {
	Heading string
	Lines   []string
}

func documentTitle(fields *entity.CanvasFields) string {
	if strings.TrimSpace(fields.Title) != "" {
		return fields.Title
	}
	return fallbackTitle
}

// renderSections flattens canvas fields into heading+lines blocks in
// canonical section order. Empty sections are omitted.
func renderSections(fields *entity.CanvasFields) []section {
	var sections []section

	add := func(heading string, lines []string) {
		if len(lines) > 0 {
			sections = append(sections, section{Heading: heading, Lines: lines})
		}
	}

	if strings.TrimSpace(fields.ProblemStatement) != "" {
		add("Problem Statement", []string{fields.ProblemStatement})
	}
	add("Objectives", fields.Objectives)

	var kpis []string
	for _, kpi := range fields.KPIs {
		line := kpi.Metric
		if kpi.Baseline != "" {
			line += fmt.Sprintf(" (baseline: %s)", kpi.Baseline)
		}
		if kpi.Target != "" {
			line += fmt.Sprintf(" — target: %s", kpi.Target)
		}
		if kpi.MeasurementFrequency != "" {
			line += fmt.Sprintf(", measured %s", strings.ToLower(kpi.MeasurementFrequency))
		}
		kpis = append(kpis, line)
	}
	add("KPIs", kpis)

	add("Success Criteria", fields.SuccessCriteria)

	var features []string
	for _, feature := range fields.KeyFeatures {
		line := feature.Feature
		if feature.Priority != "" {
			line += fmt.Sprintf(" [%s]", feature.Priority)
		}
		if feature.Description != "" {
			line += ": " + feature.Description
		}
		features = append(features, line)
	}
	add("Key Features", features)

	var risks []string
	for _, risk := range fields.Risks {
		line := risk.Risk
		if risk.Impact != "" || risk.Probability != "" {
			line += fmt.Sprintf(" (impact: %s, probability: %s)", orDash(risk.Impact), orDash(risk.Probability))
		}
		if risk.Mitigation != "" {
			line += ". Mitigation: " + risk.Mitigation
		}
		risks = append(risks, line)
	}
	add("Risks", risks)

	add("Assumptions", fields.Assumptions)

	var nfrs []string
	for _, nfr := range fields.NonFunctionalRequirements {
		if nfr.Category != "" {
			nfrs = append(nfrs, fmt.Sprintf("%s: %s", nfr.Category, nfr.Requirement))
		} else {
			nfrs = append(nfrs, nfr.Requirement)
		}
	}
	add("Non Functional Requirements", nfrs)

	var useCases []string
	for _, uc := range fields.UseCases {
		line := uc.UseCase
		if uc.Actor != "" {
			line += fmt.Sprintf(" (actor: %s)", uc.Actor)
		}
		if uc.Goal != "" {
			line += " — " + uc.Goal
		}
		if uc.Description != "" {
			line += ". " + uc.Description
		}
		useCases = append(useCases, line)
	}
	add("Use Cases", useCases)

	add("Relevant Facts", fields.RelevantFacts)
	if len(fields.Tags) > 0 {
		add("Tags", []string{strings.Join(fields.Tags, ", ")})
	}

	return sections
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
