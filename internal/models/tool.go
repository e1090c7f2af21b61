package models

// MCPTool represents a tool definition in MCP protocol
type MCPTool struct {
	Name         string                 `json:"name"`
	Title        string                 `json:"title,omitempty"`
	Description  string                 `json:"description,omitempty"`
	InputSchema  map[string]any `json:"inputSchema"`
	OutputSchema map[string]any `json:"outputSchema,omitempty"`
	Annotations  *MCPToolAnnotations    `json:"annotations,omitempty"`
	Meta         map[string]any         `json:"_meta,omitempty"`
}

// MCPToolAnnotations are behavior hints for clients
type MCPToolAnnotations struct {
	ReadOnlyHint  bool `json:"readOnlyHint"`
	OpenWorldHint bool `json:"openWorldHint"`
}

// MCPToolsListResult represents the result of tools/list
type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolsCallParams represents parameters for tools/call
type MCPToolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// MCPToolsCallResult represents the result of tools/call
type MCPToolsCallResult struct {
	Content           []MCPToolContent       `json:"content"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
	IsError           bool                   `json:"isError,omitempty"`
	Meta              map[string]any         `json:"_meta,omitempty"`
}

// Content block types
const (
	ContentTypeText     = "text"
	ContentTypeResource = "resource"
)

// MCPToolContent represents tool execution result content.
// Text blocks set Text; resource blocks embed Resource.
type MCPToolContent struct {
	Type     string              `json:"type"`
	Text     string              `json:"text,omitempty"`
	Resource *MCPResourceContent `json:"resource,omitempty"`
}

// MCPToolCapabilities represents tool-related capabilities
type MCPToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}
