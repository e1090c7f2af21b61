package server

import (
	"encoding/json"
	"runtime"
	"strings"
	"time"

	"cityquest-mcp-service/internal/models"
	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/errors"
)

// handleInitialize handles the MCP initialize method
func (s *MCPServer) handleInitialize(message *models.MCPMessage) *models.MCPMessage {
	result := models.MCPInitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.serverInfo,
	}

	return models.NewResult(message.ID, result)
}

// handleInitialized handles the notifications/initialized method
func (s *MCPServer) handleInitialized(message *models.MCPMessage) *models.MCPMessage {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("MCP client initialized")
	return nil // No response for notifications
}

// handlePing answers a liveness check with an empty result
func (s *MCPServer) handlePing(message *models.MCPMessage) *models.MCPMessage {
	return models.NewResult(message.ID, map[string]interface{}{})
}

// handleResourcesList handles the resources/list method
func (s *MCPServer) handleResourcesList(message *models.MCPMessage) *models.MCPMessage {
	if resp := s.requireReady(message); resp != nil {
		return resp
	}

	stored := s.registry.ListResources()
	resources := make([]models.MCPResource, 0, len(stored))
	for _, resource := range stored {
		resources = append(resources, models.MCPResource{
			URI:         resource.URI,
			Name:        resource.Name,
			Description: resource.Description,
			MimeType:    resource.MimeType,
			Meta:        resource.Metadata,
		})
	}

	return models.NewResult(message.ID, models.MCPResourcesListResult{Resources: resources})
}

// handleResourcesRead handles the resources/read method
func (s *MCPServer) handleResourcesRead(message *models.MCPMessage) *models.MCPMessage {
	if resp := s.requireReady(message); resp != nil {
		return resp
	}

	var params models.MCPResourcesReadParams
	if resp := s.decodeParams(message, &params); resp != nil {
		return resp
	}

	if params.URI == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: uri", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	if !strings.HasPrefix(params.URI, config.WidgetURIScheme) || !strings.HasSuffix(params.URI, config.WidgetURISuffix) {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			config.URIFormatError, nil).WithContext("uri", params.URI)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	resource, err := s.registry.FetchResource(params.URI)
	if err != nil {
		return s.createErrorResponseFromError(message.ID, err)
	}

	result := models.MCPResourcesReadResult{
		Contents: []models.MCPResourceContent{{
			URI:      resource.URI,
			MimeType: resource.MimeType,
			Text:     resource.Text,
			Meta:     resource.Metadata,
		}},
	}

	return models.NewResult(message.ID, result)
}

// handlePromptsList handles the prompts/list method
func (s *MCPServer) handlePromptsList(message *models.MCPMessage) *models.MCPMessage {
	if s.promptManager == nil {
		return s.createErrorResponse(message.ID, errors.MCPCodeMethodNotFound, "Method not found")
	}

	return models.NewResult(message.ID, models.MCPPromptsListResult{Prompts: s.promptManager.ListPrompts()})
}

// handlePromptsGet handles the prompts/get method
func (s *MCPServer) handlePromptsGet(message *models.MCPMessage) *models.MCPMessage {
	if s.promptManager == nil {
		return s.createErrorResponse(message.ID, errors.MCPCodeMethodNotFound, "Method not found")
	}

	var params models.MCPPromptsGetParams
	if resp := s.decodeParams(message, &params); resp != nil {
		return resp
	}

	if params.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	result, err := s.promptManager.RenderPrompt(params.Name, params.Arguments)
	if err != nil {
		return s.createErrorResponseFromError(message.ID, err)
	}

	return models.NewResult(message.ID, result)
}

// handleCompletionComplete handles the completion/complete method
func (s *MCPServer) handleCompletionComplete(message *models.MCPMessage) *models.MCPMessage {
	if s.promptManager == nil {
		return s.createErrorResponse(message.ID, errors.MCPCodeMethodNotFound, "Method not found")
	}

	var params models.MCPCompletionCompleteParams
	if resp := s.decodeParams(message, &params); resp != nil {
		return resp
	}

	if params.Ref.Type != models.RefTypePrompt {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Invalid reference type", nil).
			WithContext("ref_type", params.Ref.Type).
			WithContext("expected", models.RefTypePrompt)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}
	if params.Ref.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: ref.name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}
	if params.Argument.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: argument.name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	values, err := s.promptManager.CompleteArgument(params.Ref.Name, params.Argument.Name, params.Argument.Value)
	if err != nil {
		return s.createErrorResponseFromError(message.ID, err)
	}

	return models.NewResult(message.ID, models.MCPCompletionResult{
		Completion: models.MCPCompletion{
			Values: values,
			Total:  len(values),
		},
	})
}

// handlePerformanceMetrics handles requests for server performance metrics
func (s *MCPServer) handlePerformanceMetrics(message *models.MCPMessage) *models.MCPMessage {
	s.mu.RLock()
	initialized := s.initialized
	s.mu.RUnlock()

	serverMetrics := map[string]interface{}{
		"server_info":   s.serverInfo,
		"initialized":   initialized,
		"ready":         s.isReady(),
		"goroutines":    runtime.NumGoroutine(),
		"memory_stats":  getMemoryStats(),
		"logging_stats": s.loggingManager.GetStats(),
		"timestamp":     time.Now().Format(time.RFC3339),
	}
	if s.registry != nil {
		serverMetrics["tool_metrics"] = s.registry.GetPerformanceMetrics()
	}
	if s.promptManager != nil {
		serverMetrics["prompt_metrics"] = s.promptManager.GetPerformanceMetrics()
	}
	if s.games != nil {
		stats := s.games.BreakerStats()
		serverMetrics["game_store"] = map[string]interface{}{
			"breaker_state": stats.State,
			"failures":      stats.FailureCount,
			"healthy":       stats.IsHealthy(),
		}
	}

	return models.NewResult(message.ID, serverMetrics)
}

// decodeParams decodes message params into target. A non-nil return is the
// error response to send.
func (s *MCPServer) decodeParams(message *models.MCPMessage, target interface{}) *models.MCPMessage {
	if message.Params == nil {
		return nil
	}
	paramsBytes, err := json.Marshal(message.Params)
	if err != nil {
		return s.createErrorResponse(message.ID, errors.MCPCodeInvalidParams, "Invalid parameters")
	}
	if err := json.Unmarshal(paramsBytes, target); err != nil {
		return s.createErrorResponse(message.ID, errors.MCPCodeInvalidParams, "Invalid parameters format")
	}
	return nil
}

// requireReady rejects catalog requests that arrive before registration
func (s *MCPServer) requireReady(message *models.MCPMessage) *models.MCPMessage {
	if s.registry != nil && s.isReady() {
		return nil
	}
	structuredErr := errors.NewSystemError(errors.ErrCodeNotInitialized,
		"Widget catalog not registered", nil)
	return s.createStructuredErrorResponse(message.ID, structuredErr)
}

// createErrorResponse creates a protocol-level error response
func (s *MCPServer) createErrorResponse(id any, code int, message string) *models.MCPMessage {
	return models.NewErrorResponse(id, &models.MCPError{Code: code, Message: message})
}

func (s *MCPServer) createStructuredErrorResponse(id any, structuredErr *errors.StructuredError) *models.MCPMessage {
	return models.NewErrorResponse(id, structuredErr.ToMCPError())
}

// createErrorResponseFromError maps any error onto the wire. Unstructured
// errors are reported as internal errors.
func (s *MCPServer) createErrorResponseFromError(id any, err error) *models.MCPMessage {
	if structuredErr, ok := errors.As(err); ok {
		return s.createStructuredErrorResponse(id, structuredErr)
	}
	structuredErr := errors.NewSystemError(errors.ErrCodeInternal, "Internal error", err)
	return s.createStructuredErrorResponse(id, structuredErr)
}

// getMemoryStats returns current memory statistics
func getMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"alloc_bytes":       m.Alloc,
		"total_alloc_bytes": m.TotalAlloc,
		"sys_bytes":         m.Sys,
		"num_gc":            m.NumGC,
		"gc_cpu_fraction":   m.GCCPUFraction,
	}
}
