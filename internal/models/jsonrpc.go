// Package models holds the MCP wire types exchanged over JSON-RPC 2.0.
package models

import "strings"

// JSONRPCVersion is the only protocol version accepted in the envelope
const JSONRPCVersion = "2.0"

// Method names dispatched by the server
const (
	MethodInitialize         = "initialize"
	MethodInitialized        = "notifications/initialized"
	MethodPing               = "ping"
	MethodToolsList          = "tools/list"
	MethodToolsCall          = "tools/call"
	MethodResourcesList      = "resources/list"
	MethodResourcesRead      = "resources/read"
	MethodPromptsList        = "prompts/list"
	MethodPromptsGet         = "prompts/get"
	MethodCompletionComplete = "completion/complete"
	MethodServerPerformance  = "server/performance"
)

const notificationPrefix = "notifications/"

// MCPMessage is one JSON-RPC 2.0 request, notification or response.
// Result and Error are mutually exclusive on responses.
type MCPMessage struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Method  string    `json:"method,omitempty"`
	Params  any       `json:"params,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError is the error member of a JSON-RPC response
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewResult builds a success response
func NewResult(id any, result any) *MCPMessage {
	return &MCPMessage{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

// NewErrorResponse builds an error response
func NewErrorResponse(id any, err *MCPError) *MCPMessage {
	return &MCPMessage{JSONRPC: JSONRPCVersion, ID: id, Error: err}
}

// IsNotification reports whether the message is a notification, which
// never gets a reply
func (m *MCPMessage) IsNotification() bool {
	return m.ID == nil && strings.HasPrefix(m.Method, notificationPrefix)
}
