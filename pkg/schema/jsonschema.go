package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"cityquest-mcp-service/pkg/errors"
)

// JSONSchema renders the shape as an object JSON Schema
func (s Shape) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s))
	required := make([]string, 0, len(s))
	for _, p := range s {
		properties[p.Name] = p.Field.JSONSchema()
		if !p.Field.IsOptional {
			required = append(required, p.Name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// JSONSchema renders a single field
func (f Field) JSONSchema() map[string]any {
	out := map[string]any{"type": f.Kind.String()}
	if f.Description != "" {
		out["description"] = f.Description
	}
	if f.MinLength != nil {
		out["minLength"] = *f.MinLength
	}
	if f.MaxLength != nil {
		out["maxLength"] = *f.MaxLength
	}
	if f.Minimum != nil {
		out["minimum"] = *f.Minimum
	}
	if f.Maximum != nil {
		out["maximum"] = *f.Maximum
	}
	if f.ItemLimit != nil {
		out["maxItems"] = *f.ItemLimit
	}
	if f.Format != "" {
		out["format"] = f.Format
	}
	if len(f.Enum) > 0 {
		out["enum"] = append([]string(nil), f.Enum...)
	}
	if f.Items != nil {
		out["items"] = f.Items.JSONSchema()
	}
	return out
}

// Conforms checks a builder payload against the output shape
func Conforms(shape Shape, payload map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(shape.JSONSchema()),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return errors.NewBuilderError(errors.ErrCodeOutputNonConforms, "Output schema validation failed", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]errors.FieldViolation, 0, len(result.Errors()))
	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, errors.FieldViolation{
			Field:      desc.Field(),
			Constraint: desc.Type(),
			Message:    desc.Description(),
		})
		messages = append(messages, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.NewBuilderError(
		errors.ErrCodeOutputNonConforms,
		"Structured content does not match the output schema",
		nil,
	).WithDetails(strings.Join(messages, "; ")).WithViolations(violations...)
}
