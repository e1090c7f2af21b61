package tools

import (
	"cityquest-mcp-service/pkg/widgets"
)

// Widget metadata keys understood by the ChatGPT apps adapter
const (
	MetaOutputTemplate         = "openai/outputTemplate"
	MetaWidgetDomain           = "openai/widgetDomain"
	MetaToolInvoking           = "openai/toolInvocation/invoking"
	MetaToolInvoked            = "openai/toolInvocation/invoked"
	MetaResultCanProduceWidget = "openai/resultCanProduceWidget"
	MetaWidgetAccessible       = "openai/widgetAccessible"
	MetaWidgetDescription      = "openai/widgetDescription"
	MetaWidgetCSP              = "openai/widgetCSP"
	MetaWidgetPrefersBorder    = "openai/widgetPrefersBorder"

	// MetaInitialRenderData carries the initial render envelope on an
	// embedded UI resource
	MetaInitialRenderData = "mcpui.dev/ui-initial-render-data"
)

// Annotations are the capability hints published with every tool
type Annotations struct {
	ReadOnlyHint  bool `json:"readOnlyHint"`
	OpenWorldHint bool `json:"openWorldHint"`
}

// RegisteredTool is a catalog entry attached under its version-qualified name
type RegisteredTool struct {
	Name        string
	URI         string
	Definition  widgets.ToolDefinition
	Meta        map[string]any
	Annotations Annotations
}

// Resource is a materialized widget template
type Resource struct {
	URI         string         `json:"uri"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	MimeType    string         `json:"mimeType"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitialRenderData lets a rendered widget hydrate without a second fetch
type InitialRenderData struct {
	ToolInput  map[string]any `json:"toolInput"`
	ToolOutput map[string]any `json:"toolOutput"`
}

// UIResource references the widget resource from an invocation result
type UIResource struct {
	URI               string            `json:"uri"`
	MimeType          string            `json:"mimeType"`
	Text              string            `json:"text"`
	InitialRenderData InitialRenderData `json:"initialRenderData"`
}

// InvocationResult is returned by a successful tool invocation
type InvocationResult struct {
	Text              string         `json:"text"`
	StructuredContent map[string]any `json:"structuredContent"`
	UIResource        UIResource     `json:"uiResource"`
}

// RegistrationFailure records a catalog entry skipped at registration
type RegistrationFailure struct {
	Name string
	Err  error
}

// RegistrationReport summarizes RegisterAll
type RegistrationReport struct {
	Registered []string
	Failed     []RegistrationFailure
}
