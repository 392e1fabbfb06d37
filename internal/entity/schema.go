package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joseph-ayodele/meddocs/constants"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildRecordJSONSchema returns the JSON-Schema a StructuredRecord must satisfy before persistence.
func BuildRecordJSONSchema() map[string]any {
	roles := make([]string, 0, 3)
	for _, r := range constants.AvailableRoles() {
		roles = append(roles, string(r))
	}

	entry := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":       map[string]any{"type": "string", "minLength": 2},
			"name":       map[string]any{"type": "string", "minLength": 1},
			"text":       map[string]any{"type": "string"},
			"translated": map[string]any{"type": "boolean"},
		},
		"required": []string{"code", "name", "text", "translated"},
	}
	nonEmpty := map[string]any{"type": "string", "minLength": 1}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_type": map[string]any{
				"type": "string",
				"enum": constants.AsStringSlice(),
			},
			"original_language": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code": map[string]any{"type": "string", "minLength": 2},
					"name": nonEmpty,
				},
				"required": []string{"code", "name"},
			},
			"translations":        perRole(roles, entry),
			"summaries":           perRole(roles, nonEmpty),
			"formatted":           perRole(roles, nonEmpty),
			"available_languages": map[string]any{"type": "array", "items": map[string]any{"enum": roles}, "minItems": len(roles)},
			"summary_strategy":    map[string]any{"type": "string", "enum": []string{string(constants.StrategyRuleBased), string(constants.StrategyGenerative)}},
		},
		"required": []string{"document_type", "original_language", "translations", "summaries", "formatted", "available_languages"},
	}
}

func perRole(roles []string, item map[string]any) map[string]any {
	props := make(map[string]any, len(roles))
	for _, r := range roles {
		props[r] = item
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   roles,
	}
}

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		recordSchema, recordSchemaErr = compileSchema(BuildRecordJSONSchema())
	})
	return recordSchema, recordSchemaErr
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("record.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateRecord checks that every language role is populated and every summary is non-empty.
func ValidateRecord(rec *StructuredRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return ValidateJSON(data)
}

// ValidateJSON validates raw record JSON against the record schema.
func ValidateJSON(data []byte) error {
	schema, err := compiledRecordSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
