package canvasschema

import "fmt"

// Validate checks a candidate canvas against the required-field/type
// contract. It returns (true, nil) for a well-formed canvas, otherwise
// (false, reasons) where each reason names the offending field and the
// defect. Validation never rejects unknown extra keys and never panics;
// whether a failed validation blocks anything is the caller's policy.
func Validate(candidate map[string]any) (bool, []string) {
	if candidate == nil {
		return false, []string{"candidate canvas is null"}
	}

	var reasons []string

	for _, key := range RequiredKeys {
		if _, ok := lookup(candidate, key); !ok {
			reasons = append(reasons, fmt.Sprintf("missing required field: %q", key))
		}
	}

	for _, key := range stringKeys {
		v, ok := lookup(candidate, key)
		if !ok || v == nil {
			continue
		}
		if _, isString := v.(string); !isString {
			reasons = append(reasons, fmt.Sprintf("field %q: wrong type: expected string", key))
		}
	}

	for _, key := range listKeys {
		v, ok := lookup(candidate, key)
		if !ok {
			continue
		}
		list, isList := v.([]any)
		if !isList {
			reasons = append(reasons, fmt.Sprintf("field %q: wrong type: expected array", key))
			continue
		}
		reasons = append(reasons, validateRecords(key, list)...)
	}

	if v, ok := lookup(candidate, KeyGovernance); ok && v != nil {
		if _, isObject := v.(map[string]any); !isObject {
			reasons = append(reasons, fmt.Sprintf("field %q: wrong type: expected object", KeyGovernance))
		}
	}

	return len(reasons) == 0, reasons
}

// validateRecords applies the best-effort sub-key check to list elements that
// are already native objects. String-encoded elements are left alone here;
// the normalizer decodes them.
func validateRecords(key string, list []any) []string {
	subKeys, isRecordList := recordSubKeys[key]
	if !isRecordList {
		return nil
	}

	var reasons []string
	for i, elem := range list {
		record, isObject := elem.(map[string]any)
		if !isObject {
			continue
		}
		for _, sub := range subKeys {
			if _, ok := record[sub]; !ok {
				reasons = append(reasons, fmt.Sprintf("field %q[%d]: missing sub-key %q", key, i, sub))
			}
		}
	}
	return reasons
}
