// Package widgets declares the CityQuest widget catalog: tool definitions
// pairing input and output contracts with an HTML template supplier and a
// structured-content builder.
package widgets

import (
	"fmt"
	"strings"

	"cityquest-mcp-service/pkg/schema"
)

// ToolDefinition describes one invocable widget tool.
// Definitions are built once and never mutated.
type ToolDefinition struct {
	Name            string
	Title           string
	Description     string
	InvokingMessage string
	InvokedMessage  string
	ResultMessage   string

	InputSchema  schema.Shape
	OutputSchema schema.Shape

	// HTML materializes the widget markup. Called once at registration.
	HTML func() (string, error)

	// Build computes the structured payload from validated arguments
	Build func(args map[string]any) (map[string]any, error)

	WidgetAccessible       bool
	ResultCanProduceWidget bool
	WidgetPrefersBorder    bool
}

// Catalog is the ordered list of widget definitions
type Catalog []ToolDefinition

// Names returns the base names in catalog order
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, def := range c {
		names[i] = def.Name
	}
	return names
}

// Lookup returns the definition with the given base name
func (c Catalog) Lookup(name string) (ToolDefinition, bool) {
	for _, def := range c {
		if def.Name == name {
			return def, true
		}
	}
	return ToolDefinition{}, false
}

// Validate rejects catalogs with missing or duplicate names, missing
// suppliers or builders, and shapes with repeated property names
func (c Catalog) Validate() error {
	seen := make(map[string]bool, len(c))
	var problems []string
	for i, def := range c {
		if def.Name == "" {
			problems = append(problems, fmt.Sprintf("entry %d has no name", i))
			continue
		}
		if seen[def.Name] {
			problems = append(problems, fmt.Sprintf("duplicate tool name %q", def.Name))
		}
		seen[def.Name] = true

		if def.HTML == nil {
			problems = append(problems, fmt.Sprintf("%s has no HTML supplier", def.Name))
		}
		if def.Build == nil {
			problems = append(problems, fmt.Sprintf("%s has no builder", def.Name))
		}
		if dups := def.InputSchema.Duplicates(); len(dups) > 0 {
			problems = append(problems, fmt.Sprintf("%s input repeats %s", def.Name, strings.Join(dups, ", ")))
		}
		if dups := def.OutputSchema.Duplicates(); len(dups) > 0 {
			problems = append(problems, fmt.Sprintf("%s output repeats %s", def.Name, strings.Join(dups, ", ")))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(problems, "; "))
	}
	return nil
}
