package server

import (
	"context"

	"cityquest-mcp-service/internal/models"
	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/tools"
)

// handleToolsList handles the tools/list method
func (s *MCPServer) handleToolsList(message *models.MCPMessage) *models.MCPMessage {
	if resp := s.requireReady(message); resp != nil {
		return resp
	}

	registered := s.registry.ListTools()
	mcpTools := make([]models.MCPTool, 0, len(registered))
	for _, tool := range registered {
		mcpTools = append(mcpTools, toMCPTool(tool))
	}

	return models.NewResult(message.ID, models.MCPToolsListResult{Tools: mcpTools})
}

// toMCPTool converts a registered widget tool to its wire form
func toMCPTool(tool *tools.RegisteredTool) models.MCPTool {
	mcpTool := models.MCPTool{
		Name:        tool.Name,
		Title:       tool.Definition.Title,
		Description: tool.Definition.Description,
		InputSchema: tool.Definition.InputSchema.JSONSchema(),
		Annotations: &models.MCPToolAnnotations{
			ReadOnlyHint:  tool.Annotations.ReadOnlyHint,
			OpenWorldHint: tool.Annotations.OpenWorldHint,
		},
		Meta: tool.Meta,
	}
	if len(tool.Definition.OutputSchema) > 0 {
		mcpTool.OutputSchema = tool.Definition.OutputSchema.JSONSchema()
	}
	return mcpTool
}

// handleToolsCall handles the tools/call method. Failures are returned as
// JSON-RPC errors; a result is only produced for a complete invocation.
func (s *MCPServer) handleToolsCall(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	if resp := s.requireReady(message); resp != nil {
		return resp
	}

	var params models.MCPToolsCallParams
	if resp := s.decodeParams(message, &params); resp != nil {
		return resp
	}

	if params.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	result, err := s.registry.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.WithError(err).WithContext("tool", params.Name).Warn("Tool invocation failed")
		return s.createErrorResponseFromError(message.ID, err)
	}

	return models.NewResult(message.ID, toCallResult(result))
}

// toCallResult packages an invocation as a text acknowledgment followed by
// the embedded widget resource carrying its initial render data
func toCallResult(result *tools.InvocationResult) models.MCPToolsCallResult {
	return models.MCPToolsCallResult{
		Content: []models.MCPToolContent{
			{
				Type: models.ContentTypeText,
				Text: result.Text,
			},
			{
				Type: models.ContentTypeResource,
				Resource: &models.MCPResourceContent{
					URI:      result.UIResource.URI,
					MimeType: result.UIResource.MimeType,
					Text:     result.UIResource.Text,
					Meta: map[string]any{
						tools.MetaInitialRenderData: result.UIResource.InitialRenderData,
					},
				},
			},
		},
		StructuredContent: result.StructuredContent,
	}
}
