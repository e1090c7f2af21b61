package prompts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"

	"cityquest-mcp-service/internal/models"
	"cityquest-mcp-service/pkg/errors"
)

// PromptDefinition represents the internal structure of a prompt loaded from JSON
type PromptDefinition struct {
	Name        string               `json:"name"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Arguments   []ArgumentDefinition `json:"arguments,omitempty"`
	Derived     []DerivedVariable    `json:"derived,omitempty"`
	Messages    []MessageTemplate    `json:"messages"`
}

// ArgumentDefinition represents an argument that a prompt accepts
type ArgumentDefinition struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	MaxLength   int      `json:"maxLength,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// DerivedVariable is a template variable whose value is looked up from
// another argument's value
type DerivedVariable struct {
	Name    string            `json:"name"`
	From    string            `json:"from"`
	Values  map[string]string `json:"values"`
	Default string            `json:"default,omitempty"`
}

// MessageTemplate represents a message template in the prompt
type MessageTemplate struct {
	Role    string          `json:"role"`
	Content ContentTemplate `json:"content"`
}

// ContentTemplate represents the content of a message template
type ContentTemplate struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	// promptNamePattern validates prompt names (lowercase alphanumeric and hyphens only)
	promptNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// LoadFromFile loads a prompt definition from a JSON file
func LoadFromFile(path string) (*PromptDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return parseDefinition(data)
}

// LoadFromFS loads a prompt definition from a file in fsys
func LoadFromFS(fsys fs.FS, name string) (*PromptDefinition, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return parseDefinition(data)
}

func parseDefinition(data []byte) (*PromptDefinition, error) {
	var def PromptDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse prompt JSON: %w", err)
	}
	return &def, nil
}

// ToMCPPrompt converts the internal definition to the MCP protocol format
func (pd *PromptDefinition) ToMCPPrompt() models.MCPPrompt {
	args := make([]models.MCPPromptArgument, len(pd.Arguments))
	for i, arg := range pd.Arguments {
		args[i] = models.MCPPromptArgument{
			Name:        arg.Name,
			Description: arg.Description,
			Required:    arg.Required,
		}
	}

	return models.MCPPrompt{
		Name:        pd.Name,
		Title:       pd.Title,
		Description: pd.Description,
		Arguments:   args,
	}
}

// Argument looks up an argument definition by name
func (pd *PromptDefinition) Argument(name string) (*ArgumentDefinition, bool) {
	for i := range pd.Arguments {
		if pd.Arguments[i].Name == name {
			return &pd.Arguments[i], true
		}
	}
	return nil, false
}

// Validate checks the structural integrity of the prompt definition
func (pd *PromptDefinition) Validate() error {
	if pd.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if !promptNamePattern.MatchString(pd.Name) {
		return fmt.Errorf("prompt name must match pattern ^[a-z0-9-]+$, got: %s", pd.Name)
	}

	if len(pd.Messages) == 0 {
		return fmt.Errorf("prompt must have at least one message")
	}

	for i, msg := range pd.Messages {
		if msg.Role == "" {
			return fmt.Errorf("message %d: role is required", i)
		}
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			return fmt.Errorf("message %d: role must be 'user' or 'assistant', got: %s", i, msg.Role)
		}
		if msg.Content.Type != "text" {
			return fmt.Errorf("message %d: content type must be 'text', got: %q", i, msg.Content.Type)
		}
		if msg.Content.Text == "" {
			return fmt.Errorf("message %d: content text is required", i)
		}
	}

	names := make(map[string]bool)
	for i, arg := range pd.Arguments {
		if arg.Name == "" {
			return fmt.Errorf("argument %d: name is required", i)
		}
		if names[arg.Name] {
			return fmt.Errorf("duplicate argument name: %s", arg.Name)
		}
		names[arg.Name] = true

		if arg.MaxLength < 0 {
			return fmt.Errorf("argument %s: maxLength must be non-negative", arg.Name)
		}
		for _, value := range arg.Enum {
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("argument %s: enum values must not be empty", arg.Name)
			}
		}
	}

	for _, derived := range pd.Derived {
		if derived.Name == "" {
			return fmt.Errorf("derived variable name is required")
		}
		if names[derived.Name] {
			return fmt.Errorf("derived variable %s shadows an argument or another derived variable", derived.Name)
		}
		source, ok := pd.Argument(derived.From)
		if !ok {
			return fmt.Errorf("derived variable %s: unknown source argument %q", derived.Name, derived.From)
		}
		for _, value := range source.Enum {
			if _, ok := derived.Values[value]; !ok && derived.Default == "" {
				return fmt.Errorf("derived variable %s: no value for %s=%s", derived.Name, source.Name, value)
			}
		}
		names[derived.Name] = true
	}

	return nil
}

// ValidateArguments checks user-provided arguments against the definition.
// Every offending argument is reported as a field violation.
func (pd *PromptDefinition) ValidateArguments(args map[string]interface{}) error {
	var violations []errors.FieldViolation

	for _, argDef := range pd.Arguments {
		if !argDef.Required {
			continue
		}
		value, exists := args[argDef.Name]
		if !exists || value == nil {
			violations = append(violations, errors.FieldViolation{
				Field:      argDef.Name,
				Constraint: "required",
				Message:    fmt.Sprintf("required argument missing: %s", argDef.Name),
			})
		}
	}

	for _, name := range sortedKeys(args) {
		value := args[name]
		if value == nil {
			continue
		}

		argDef, ok := pd.Argument(name)
		if !ok {
			violations = append(violations, errors.FieldViolation{
				Field:      name,
				Constraint: "unknown",
				Message:    fmt.Sprintf("unknown argument: %s", name),
			})
			continue
		}

		if argDef.MaxLength == 0 && len(argDef.Enum) == 0 {
			continue
		}
		strValue, ok := value.(string)
		if !ok {
			violations = append(violations, errors.FieldViolation{
				Field:      name,
				Constraint: "type",
				Message:    fmt.Sprintf("argument %s: expected string value", name),
			})
			continue
		}
		if argDef.MaxLength > 0 && len(strValue) > argDef.MaxLength {
			violations = append(violations, errors.FieldViolation{
				Field:      name,
				Constraint: "maxLength",
				Message:    fmt.Sprintf("argument %s: value exceeds maximum length of %d characters", name, argDef.MaxLength),
			})
		}
		if len(argDef.Enum) > 0 && !slices.Contains(argDef.Enum, strValue) {
			violations = append(violations, errors.FieldViolation{
				Field:      name,
				Constraint: "enum",
				Message:    fmt.Sprintf("argument %s: must be one of %s", name, strings.Join(argDef.Enum, ", ")),
			})
		}
	}

	if len(violations) == 0 {
		return nil
	}

	fields := make([]string, len(violations))
	for i, v := range violations {
		fields[i] = v.Field
	}
	return errors.NewValidationError(
		errors.ErrCodeInvalidArguments,
		fmt.Sprintf("Invalid prompt arguments: %s", strings.Join(fields, ", ")),
		nil,
	).WithContext("prompt", pd.Name).WithViolations(violations...)
}

// Variables returns the template variables for a validated argument set:
// the arguments themselves plus every derived variable.
func (pd *PromptDefinition) Variables(args map[string]interface{}) map[string]interface{} {
	vars := make(map[string]interface{}, len(args)+len(pd.Derived))
	for k, v := range args {
		vars[k] = v
	}
	for _, derived := range pd.Derived {
		source := fmt.Sprintf("%v", args[derived.From])
		if value, ok := derived.Values[source]; ok {
			vars[derived.Name] = value
		} else {
			vars[derived.Name] = derived.Default
		}
	}
	return vars
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
