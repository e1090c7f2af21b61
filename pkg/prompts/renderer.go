package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"cityquest-mcp-service/pkg/schema"
	"cityquest-mcp-service/pkg/tools"
)

// ToolResolver finds registered widget tools by catalog name
type ToolResolver interface {
	QualifiedName(name string) string
	GetTool(name string) (*tools.RegisteredTool, error)
}

// TemplateRenderer handles template variable substitution and tool references
type TemplateRenderer struct {
	tools ToolResolver
}

// NewTemplateRenderer creates a renderer. Tool references stay unexpanded
// until a resolver is set.
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

// SetToolResolver sets the registry used to expand {{tool:name}} references
func (tr *TemplateRenderer) SetToolResolver(resolver ToolResolver) {
	tr.tools = resolver
}

var (
	// variablePattern matches {{variableName}} for substitution
	variablePattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)\}\}`)
	// toolPattern matches {{tool:tool-name}} for tool reference embedding
	toolPattern = regexp.MustCompile(`\{\{tool:([a-z0-9-]+)\}\}`)
)

// RenderTemplate performs variable substitution on a template string.
// Placeholders without a value are left as-is.
func (tr *TemplateRenderer) RenderTemplate(template string, args map[string]any) (string, error) {
	return variablePattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholder[2 : len(placeholder)-2]
		value, exists := args[name]
		if !exists || value == nil {
			return placeholder
		}
		return fmt.Sprintf("%v", value)
	}), nil
}

// EmbedTools expands {{tool:name}} references into the registered tool's
// version-qualified name, description and parameters. Without a resolver
// references fall back to the bare catalog name.
func (tr *TemplateRenderer) EmbedTools(template string) (string, error) {
	var resolveErr error

	result := toolPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := toolPattern.FindStringSubmatch(placeholder)[1]
		if tr.tools == nil {
			return fmt.Sprintf("the %s tool", name)
		}

		tool, err := tr.tools.GetTool(tr.tools.QualifiedName(name))
		if err != nil {
			if resolveErr == nil {
				resolveErr = fmt.Errorf("failed to resolve tool reference %s: %w", name, err)
			}
			return placeholder
		}
		return buildToolReference(tool)
	})

	if resolveErr != nil {
		return "", resolveErr
	}
	return result, nil
}

// buildToolReference formats a tool into an expanded reference with description and parameters
func buildToolReference(tool *tools.RegisteredTool) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Tool: %s\n", tool.Name))
	builder.WriteString(fmt.Sprintf("Description: %s\n", tool.Definition.Description))

	if len(tool.Definition.InputSchema) == 0 {
		return builder.String()
	}

	builder.WriteString("Parameters:\n")
	for _, prop := range tool.Definition.InputSchema {
		requiredStr := " (required)"
		if prop.Field.IsOptional {
			requiredStr = " (optional)"
		}

		line := fmt.Sprintf("  - %s%s: %s", prop.Name, requiredStr, prop.Field.Description)
		if constraints := formatParameterConstraints(prop.Field); constraints != "" {
			line += " " + constraints
		}
		builder.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	return builder.String()
}

// formatParameterConstraints summarizes a field's constraints
func formatParameterConstraints(field schema.Field) string {
	var constraints []string

	if field.MaxLength != nil {
		constraints = append(constraints, fmt.Sprintf("max %d chars", *field.MaxLength))
	}
	if field.MinLength != nil {
		constraints = append(constraints, fmt.Sprintf("min %d chars", *field.MinLength))
	}
	if field.Maximum != nil {
		constraints = append(constraints, fmt.Sprintf("max %g", *field.Maximum))
	}
	if field.Minimum != nil {
		constraints = append(constraints, fmt.Sprintf("min %g", *field.Minimum))
	}
	if field.ItemLimit != nil {
		constraints = append(constraints, fmt.Sprintf("up to %d items", *field.ItemLimit))
	}
	if len(field.Enum) > 0 {
		constraints = append(constraints, fmt.Sprintf("one of: %s", strings.Join(field.Enum, ", ")))
	}

	if len(constraints) > 0 {
		return "(" + strings.Join(constraints, ", ") + ")"
	}
	return ""
}
