package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"cityquest-mcp-service/internal/models"
	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/games"
	"cityquest-mcp-service/pkg/logging"
	"cityquest-mcp-service/pkg/monitor"
	"cityquest-mcp-service/pkg/prompts"
	"cityquest-mcp-service/pkg/tools"
	"cityquest-mcp-service/pkg/widgets"
)

const (
	// ServerName is reported in the initialize handshake
	ServerName = "cityquest-mcp-service"
	// ServerVersion is reported in the initialize handshake
	ServerVersion = "1.0.0"
	// ProtocolVersion is the MCP revision this server speaks
	ProtocolVersion = "2025-06-18"

	// maxMessageSize bounds one newline-delimited stdio message
	maxMessageSize = 4 * 1024 * 1024
)

// Components are the collaborators an MCPServer serves. Registry and Catalog
// are required; Prompts, Games and Monitor are optional.
type Components struct {
	Registry       *tools.Registry
	Catalog        widgets.Catalog
	Prompts        *prompts.PromptManager
	Games          *games.Service
	Monitor        *monitor.FileSystemMonitor
	LoggingManager *logging.LoggingManager
}

// MCPServer represents the main MCP server
type MCPServer struct {
	serverInfo   models.MCPServerInfo
	capabilities models.MCPCapabilities
	initialized  bool
	ready        bool

	registry      *tools.Registry
	catalog       widgets.Catalog
	promptManager *prompts.PromptManager
	games         *games.Service
	monitor       *monitor.FileSystemMonitor

	// Logging
	loggingManager *logging.LoggingManager
	logger         *logging.StructuredLogger

	// HTTP transport
	router     http.Handler
	routerOnce sync.Once
	httpServer *http.Server

	// Synchronization
	mu       sync.RWMutex
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(components Components) *MCPServer {
	loggingManager := components.LoggingManager
	if loggingManager == nil {
		loggingManager = logging.NewLoggingManager()
	}
	loggingManager.SetGlobalContext("service", ServerName)
	loggingManager.SetGlobalContext("version", ServerVersion)

	capabilities := models.MCPCapabilities{
		Tools: &models.MCPToolCapabilities{
			ListChanged: false,
		},
		Resources: &models.MCPResourceCapabilities{
			Subscribe:   false,
			ListChanged: false,
		},
	}
	if components.Prompts != nil {
		capabilities.Prompts = &models.MCPPromptCapabilities{ListChanged: false}
		capabilities.Completion = &models.MCPCompletionCapabilities{ArgumentCompletions: true}
	}

	return &MCPServer{
		serverInfo: models.MCPServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		capabilities:   capabilities,
		registry:       components.Registry,
		catalog:        components.Catalog,
		promptManager:  components.Prompts,
		games:          components.Games,
		monitor:        components.Monitor,
		loggingManager: loggingManager,
		logger:         loggingManager.GetLogger("server"),
	}
}

// Initialize registers the widget catalog and loads prompts. It runs once;
// later calls return the first result. Transports must not accept requests
// before it returns.
func (s *MCPServer) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *MCPServer) initialize(ctx context.Context) error {
	startTime := time.Now()

	s.loggingManager.LogStartupSequence("server_start", map[string]interface{}{
		"phase": "initialization",
	}, 0, true)

	if s.registry == nil {
		return errors.NewSystemError(errors.ErrCodeInitializationFailed, "Widget registry is not configured", nil)
	}

	regStart := time.Now()
	report, err := s.registry.RegisterAll(ctx, s.catalog)
	if err != nil {
		s.loggingManager.LogStartupSequence("widget_registration", map[string]interface{}{
			"error": err.Error(),
		}, time.Since(regStart), false)
		return err
	}
	s.loggingManager.LogStartupSequence("widget_registration", map[string]interface{}{
		"registered": len(report.Registered),
		"failed":     len(report.Failed),
		"base_url":   s.registry.BaseURL(),
	}, time.Since(regStart), len(report.Failed) == 0)

	if s.promptManager != nil {
		promptStart := time.Now()
		if err := s.initializePromptsSystem(); err != nil {
			s.loggingManager.LogStartupSequence("prompts_init", map[string]interface{}{
				"error": err.Error(),
			}, time.Since(promptStart), false)
			s.logger.WithError(err).Warn("Failed to initialize prompts system")
		} else {
			s.loggingManager.LogStartupSequence("prompts_init", map[string]interface{}{},
				time.Since(promptStart), true)
		}
	}

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	s.loggingManager.LogStartupSequence("server_ready", map[string]interface{}{
		"total_startup_time_ms": time.Since(startTime).Milliseconds(),
	}, time.Since(startTime), true)
	return nil
}

// initializePromptsSystem loads prompts and sets up hot reload
func (s *MCPServer) initializePromptsSystem() error {
	s.promptManager.SetToolResolver(s.registry)

	if err := s.promptManager.LoadPrompts(); err != nil {
		return err
	}

	if s.monitor != nil {
		if err := s.promptManager.StartWatching(); err != nil {
			// Prompts keep working without hot reload.
			s.logger.WithError(err).Warn("Failed to start prompts directory monitoring")
		}
	}
	return nil
}

// Start initializes the server and serves JSON-RPC over stdin/stdout
func (s *MCPServer) Start(ctx context.Context) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	s.logger.Info("CityQuest MCP service listening on stdio")
	return s.ServeStdio(ctx, os.Stdin, os.Stdout)
}

// ServeStdio processes newline-delimited JSON-RPC messages until reader is
// exhausted or ctx is cancelled
func (s *MCPServer) ServeStdio(ctx context.Context, reader io.Reader, writer io.Writer) error {
	return s.processMessages(ctx, reader, writer)
}

// Shutdown gracefully shuts down the MCP server
func (s *MCPServer) Shutdown(ctx context.Context) error {
	shutdownStart := time.Now()
	s.loggingManager.LogShutdownSequence("shutdown_start", map[string]interface{}{}, 0, true)

	var firstErr error

	s.mu.RLock()
	httpServer := s.httpServer
	s.mu.RUnlock()
	if httpServer != nil {
		httpStart := time.Now()
		if err := httpServer.Shutdown(ctx); err != nil {
			s.loggingManager.LogShutdownSequence("http_stop", map[string]interface{}{
				"error": err.Error(),
			}, time.Since(httpStart), false)
			firstErr = err
		} else {
			s.loggingManager.LogShutdownSequence("http_stop", map[string]interface{}{},
				time.Since(httpStart), true)
		}
	}

	if s.monitor != nil {
		monitorStart := time.Now()
		if err := s.monitor.StopWatching(); err != nil {
			s.loggingManager.LogShutdownSequence("monitor_stop", map[string]interface{}{
				"error": err.Error(),
			}, time.Since(monitorStart), false)
			s.logger.WithError(err).Error("Error stopping file monitor")
		} else {
			s.loggingManager.LogShutdownSequence("monitor_stop", map[string]interface{}{},
				time.Since(monitorStart), true)
		}
	}

	if s.games != nil {
		if err := s.games.Close(); err != nil {
			s.logger.WithError(err).Error("Error closing game store")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.loggingManager.LogShutdownSequence("shutdown_complete", map[string]interface{}{
		"total_shutdown_time_ms": time.Since(shutdownStart).Milliseconds(),
	}, time.Since(shutdownStart), firstErr == nil)

	s.logger.Info("CityQuest MCP service shutdown completed")
	return firstErr
}

// processMessages handles the JSON-RPC message processing loop. Each line
// is one message; a malformed line is answered with a parse error.
func (s *MCPServer) processMessages(ctx context.Context, reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	encoder := json.NewEncoder(writer)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}

			var message models.MCPMessage
			var response *models.MCPMessage
			if err := json.Unmarshal(line, &message); err != nil {
				s.logger.WithError(err).Warn("Error decoding message")
				response = s.createErrorResponse(nil, errors.MCPCodeParseError, "Parse error")
			} else {
				response = s.handleMessage(ctx, &message)
			}

			if response != nil {
				s.writeMu.Lock()
				err := encoder.Encode(response)
				s.writeMu.Unlock()
				if err != nil {
					s.logger.WithError(err).Error("Error encoding response")
					return err
				}
			}
		}
	}
}

// HandleMessage processes individual MCP messages (exported for testing)
func (s *MCPServer) HandleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	return s.handleMessage(ctx, message)
}

// handleMessage processes individual MCP messages
func (s *MCPServer) handleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	startTime := time.Now()
	var response *models.MCPMessage
	var success = true
	var errorMsg string

	defer func() {
		duration := time.Since(startTime)
		s.loggingManager.LogMCPRequest(message.Method, message.ID, duration, success, errorMsg)
	}()

	if message.JSONRPC != models.JSONRPCVersion {
		success = false
		errorMsg = "Invalid Request"
		return s.createErrorResponse(message.ID, errors.MCPCodeInvalidRequest, "Invalid Request")
	}

	switch message.Method {
	case models.MethodInitialize:
		response = s.handleInitialize(message)
	case models.MethodInitialized:
		response = s.handleInitialized(message)
	case models.MethodPing:
		response = s.handlePing(message)
	case models.MethodToolsList:
		response = s.handleToolsList(message)
	case models.MethodToolsCall:
		response = s.handleToolsCall(ctx, message)
	case models.MethodResourcesList:
		response = s.handleResourcesList(message)
	case models.MethodResourcesRead:
		response = s.handleResourcesRead(message)
	case models.MethodPromptsList:
		response = s.handlePromptsList(message)
	case models.MethodPromptsGet:
		response = s.handlePromptsGet(message)
	case models.MethodCompletionComplete:
		response = s.handleCompletionComplete(message)
	case models.MethodServerPerformance:
		response = s.handlePerformanceMetrics(message)
	default:
		if message.IsNotification() {
			// Unknown notifications are dropped without a reply.
			return nil
		}
		success = false
		errorMsg = "Method not found"
		response = s.createErrorResponse(message.ID, errors.MCPCodeMethodNotFound, "Method not found")
	}

	// Check if response contains an error
	if response != nil && response.Error != nil {
		success = false
		errorMsg = response.Error.Message
	}

	return response
}

// isReady reports whether Initialize has completed
func (s *MCPServer) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
