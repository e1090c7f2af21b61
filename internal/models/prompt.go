package models

// Prompt message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MCPPromptCapabilities advertises prompts. ListChanged is set when a
// prompt directory is watched.
type MCPPromptCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// MCPPrompt is a prompts/list entry
type MCPPrompt struct {
	Name        string              `json:"name"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Arguments   []MCPPromptArgument `json:"arguments,omitempty"`
}

// MCPPromptArgument declares one prompt argument
type MCPPromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// MCPPromptsListResult answers prompts/list
type MCPPromptsListResult struct {
	Prompts []MCPPrompt `json:"prompts"`
}

// MCPPromptsGetParams selects a prompt and supplies its arguments. MCP
// clients send argument values as strings.
type MCPPromptsGetParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// MCPPromptsGetResult answers prompts/get with the rendered messages
type MCPPromptsGetResult struct {
	Description string             `json:"description,omitempty"`
	Messages    []MCPPromptMessage `json:"messages"`
}

// MCPPromptMessage is one rendered message
type MCPPromptMessage struct {
	Role    string           `json:"role"`
	Content MCPPromptContent `json:"content"`
}

// MCPPromptContent is the text body of a prompt message
type MCPPromptContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
