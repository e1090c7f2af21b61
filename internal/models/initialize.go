package models

// MCPServerInfo identifies the server in the initialize result
type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPClientInfo identifies the connecting client
type MCPClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPCapabilities lists the feature groups the server offers. A nil group
// is omitted, which tells the client the methods are unavailable.
type MCPCapabilities struct {
	Resources  *MCPResourceCapabilities   `json:"resources,omitempty"`
	Prompts    *MCPPromptCapabilities     `json:"prompts,omitempty"`
	Tools      *MCPToolCapabilities       `json:"tools,omitempty"`
	Completion *MCPCompletionCapabilities `json:"completion,omitempty"`
}

// MCPInitializeParams are sent by the client on initialize
type MCPInitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      MCPClientInfo  `json:"clientInfo"`
}

// MCPInitializeResult answers initialize
type MCPInitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    MCPCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo   `json:"serverInfo"`
}
