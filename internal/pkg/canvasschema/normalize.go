package canvasschema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aiforce/canvas-backend/internal/entity"
)

// Normalize folds a validated (or advisory-failed) candidate into the
// canonical CanvasFields shape. The model and older stored rows disagree on
// shapes: record-list items arrive either as native objects or as
// JSON-encoded strings, and non-functional requirements arrive either as
// flat category/requirement records or as named buckets of string lists.
// This is the single place those variants are reconciled; the rest of the
// system only ever sees the canonical shape. Normalize is best-effort and
// never fails: unrecognizable elements degrade to their primary text field.
func Normalize(candidate map[string]any) *entity.CanvasFields {
	fields := &entity.CanvasFields{
		Title:            flexString(value(candidate, KeyTitle)),
		ProblemStatement: flexString(value(candidate, KeyProblemStatement)),
		Objectives:       stringList(value(candidate, KeyObjectives)),
		SuccessCriteria:  stringList(value(candidate, KeySuccessCriteria)),
		Assumptions:      stringList(value(candidate, KeyAssumptions)),
		RelevantFacts:    stringList(value(candidate, KeyRelevantFacts)),
		Tags:             stringList(value(candidate, KeyTags)),
	}

	fields.KPIs = decodeRecords(value(candidate, KeyKPIs), func(s string) entity.KPI {
		return entity.KPI{Metric: s}
	})
	fields.KeyFeatures = decodeRecords(value(candidate, KeyKeyFeatures), func(s string) entity.KeyFeature {
		return entity.KeyFeature{Feature: s}
	})
	fields.Risks = decodeRecords(value(candidate, KeyRisks), func(s string) entity.Risk {
		return entity.Risk{Risk: s}
	})
	fields.UseCases = decodeRecords(value(candidate, KeyUseCases), func(s string) entity.UseCase {
		return entity.UseCase{UseCase: s}
	})
	fields.NonFunctionalRequirements = normalizeNFRs(value(candidate, KeyNFRs))
	fields.Governance = normalizeGovernance(value(candidate, KeyGovernance))

	return fields
}

func value(candidate map[string]any, key string) any {
	v, _ := lookup(candidate, key)
	return v
}

// flexString renders scalars the model sometimes emits as numbers or booleans
// back into strings; anything structured falls back to its JSON text.
func flexString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil
		}
		// Scalar where a list was expected: wrap it.
		return []string{flexString(v)}
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		out = append(out, flexString(elem))
	}
	return out
}

// decodeRecords decodes a record-typed list whose elements may be native
// objects or JSON-encoded strings. Plain-text elements become a record via
// fromString so no accepted content is dropped.
func decodeRecords[T any](v any, fromString func(string) T) []T {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]T, 0, len(list))
	for _, elem := range list {
		switch val := elem.(type) {
		case map[string]any:
			if record, ok := remarshal[T](val); ok {
				out = append(out, record)
			}
		case string:
			trimmed := strings.TrimSpace(val)
			if strings.HasPrefix(trimmed, "{") {
				var record T
				if err := json.Unmarshal([]byte(trimmed), &record); err == nil {
					out = append(out, record)
					continue
				}
			}
			if trimmed != "" {
				out = append(out, fromString(trimmed))
			}
		}
	}
	return out
}

func remarshal[T any](m map[string]any) (T, bool) {
	var record T
	raw, err := json.Marshal(m)
	if err != nil {
		return record, false
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return record, false
	}
	return record, true
}

// normalizeNFRs accepts all observed shapes of the non-functional
// requirements section and folds them into flat category/requirement records:
// a flat record list, a single bucket object of category -> []requirement,
// or a list containing a mix of both.
func normalizeNFRs(v any) []entity.NFRequirement {
	switch val := v.(type) {
	case map[string]any:
		return foldBuckets(val)
	case []any:
		var out []entity.NFRequirement
		for _, elem := range val {
			switch item := elem.(type) {
			case map[string]any:
				if _, hasReq := item["requirement"]; hasReq {
					if record, ok := remarshal[entity.NFRequirement](item); ok {
						out = append(out, record)
					}
					continue
				}
				out = append(out, foldBuckets(item)...)
			case string:
				trimmed := strings.TrimSpace(item)
				if strings.HasPrefix(trimmed, "{") {
					var record entity.NFRequirement
					if err := json.Unmarshal([]byte(trimmed), &record); err == nil && record.Requirement != "" {
						out = append(out, record)
						continue
					}
				}
				if trimmed != "" {
					out = append(out, entity.NFRequirement{Category: "General", Requirement: trimmed})
				}
			}
		}
		return out
	default:
		return nil
	}
}

func foldBuckets(buckets map[string]any) []entity.NFRequirement {
	categories := make([]string, 0, len(buckets))
	for category := range buckets {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var out []entity.NFRequirement
	for _, category := range categories {
		for _, req := range stringList(buckets[category]) {
			out = append(out, entity.NFRequirement{Category: category, Requirement: req})
		}
	}
	return out
}

func normalizeGovernance(v any) map[string]any {
	switch val := v.(type) {
	case map[string]any:
		return val
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(val), &m); err == nil {
			return m
		}
		return nil
	default:
		return nil
	}
}
