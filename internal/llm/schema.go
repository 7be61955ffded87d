package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonschema "github.com/tangerg-labs/autoscholar/internal/jsonschema"
)

// schemaKeys are the property names that, if found alone in a parsed
// response, indicate the model echoed the schema definition rather than
// filling it in (spec §4.7's "schema-as-content" defense).
var schemaKeys = map[string]struct{}{
	"properties": {}, "type": {}, "required": {}, "$schema": {}, "$defs": {},
}

// buildSchemaPreamble renders v's JSON schema into the same kind of
// "RESPONSE FORMAT" instruction the original backend hand-rolled from
// Pydantic's model_json_schema(): required fields, a field-by-field
// structure sketch, and a line calling out nested object fields.
func buildSchemaPreamble(v any) (string, error) {
	schema, err := jsonschema.MapDefSchemaOf(v)
	if err != nil {
		return "", fmt.Errorf("llm: generate schema preamble: %w", err)
	}

	defs, _ := schema["$defs"].(map[string]any)
	properties, _ := schema["properties"].(map[string]any)
	required := stringSlice(schema["required"])

	lines := make([]string, 0, len(required))
	for _, field := range required {
		propSchema, _ := properties[field].(map[string]any)
		lines = append(lines, fmt.Sprintf(`  "%s": <%s>`, field, resolveType(propSchema, defs)))
	}
	structure := "{\n" + strings.Join(lines, ",\n") + "\n}"

	var nestedHints []string
	defNames := make([]string, 0, len(defs))
	for name := range defs {
		defNames = append(defNames, name)
	}
	sort.Strings(defNames)
	for _, name := range defNames {
		def, _ := defs[name].(map[string]any)
		defRequired := stringSlice(def["required"])
		if len(defRequired) > 0 {
			nestedHints = append(nestedHints, fmt.Sprintf("%s: use fields %v", name, defRequired))
		}
	}

	preamble := fmt.Sprintf(
		"RESPONSE FORMAT: Return a JSON object with YOUR ACTUAL CONTENT.\nRequired fields: %v\nStructure:\n%s",
		required, structure,
	)
	if len(nestedHints) > 0 {
		preamble += "\nNested object fields: " + strings.Join(nestedHints, "; ")
	}
	preamble += "\nIMPORTANT: Fill in actual values, NOT the schema definition."
	return preamble, nil
}

func resolveType(propSchema map[string]any, defs map[string]any) string {
	if ref, ok := propSchema["$ref"].(string); ok {
		parts := strings.Split(ref, "/")
		name := parts[len(parts)-1]
		def, _ := defs[name].(map[string]any)
		required := stringSlice(def["required"])
		if len(required) > 0 {
			quoted := make([]string, len(required))
			for i, f := range required {
				quoted[i] = `"` + f + `"`
			}
			return "object with fields: " + strings.Join(quoted, ", ")
		}
		return name
	}
	if t, _ := propSchema["type"].(string); t == "array" {
		items, _ := propSchema["items"].(map[string]any)
		return "array of " + resolveType(items, defs)
	}
	if t, ok := propSchema["type"].(string); ok {
		return t
	}
	return "unknown"
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// decodeStructured applies the three post-parse defenses of spec §4.7 and
// unmarshals the surviving content into target.
func decodeStructured(raw string, target any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ErrEmptyContent
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		if looksTruncated(trimmed) {
			return fmt.Errorf("%w: %v", ErrLikelyTruncated, err)
		}
		return fmt.Errorf("llm: invalid JSON response: %w", err)
	}

	actualKeys := make([]string, 0, len(parsed))
	for k := range parsed {
		if _, isSchemaKey := schemaKeys[k]; !isSchemaKey {
			actualKeys = append(actualKeys, k)
		}
	}

	_, hasProperties := parsed["properties"]
	if hasProperties && len(actualKeys) == 0 {
		return ErrSchemaAsContent
	}
	if hasProperties && len(actualKeys) > 0 {
		for k := range schemaKeys {
			delete(parsed, k)
		}
		reencoded, err := json.Marshal(parsed)
		if err != nil {
			return fmt.Errorf("llm: re-encode stripped content: %w", err)
		}
		trimmed = string(reencoded)
	}

	if err := json.Unmarshal([]byte(trimmed), target); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// looksTruncated is a heuristic for "the model ran out of max_tokens
// mid-object": the content doesn't end in a closing brace/bracket.
func looksTruncated(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last != '}' && last != ']'
}
