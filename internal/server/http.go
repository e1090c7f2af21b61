package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cityquest-mcp-service/internal/models"
	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/games"
)

// maxBodyBytes bounds one HTTP request body
const maxBodyBytes = 1 << 20

// Manifest is the discovery document served on GET /mcp
type Manifest struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Description  string               `json:"description"`
	Capabilities ManifestCapabilities `json:"capabilities"`
}

// ManifestCapabilities lists the MCP features the HTTP endpoint offers
type ManifestCapabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
}

var manifest = Manifest{
	Name:        "chatgpt-app",
	Version:     "1.0.0",
	Description: "MCP server for ChatGPT integration",
	Capabilities: ManifestCapabilities{
		Tools:     true,
		Resources: true,
	},
}

// errorBody is the JSON error envelope of the REST routes
type errorBody struct {
	Status     string                  `json:"status"`
	Code       string                  `json:"code"`
	Message    string                  `json:"message"`
	Violations []errors.FieldViolation `json:"violations,omitempty"`
}

// Handler returns the HTTP transport
func (s *MCPServer) Handler() http.Handler {
	s.routerOnce.Do(func() {
		s.router = s.routes()
	})
	return s.router
}

// ServeHTTP makes MCPServer an http.Handler
func (s *MCPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

func (s *MCPServer) routes() http.Handler {
	logger := s.loggingManager.GetLogger("http")

	r := chi.NewRouter()
	r.Use(Recovery(logger))
	r.Use(RequestID)
	r.Use(RequestLogging(logger))
	r.Use(CORS)

	r.Get("/healthz", s.handleHealth)

	r.Route("/mcp", func(r chi.Router) {
		r.Get("/", s.handleManifest)
		r.Post("/", s.handleMCPPost)
	})

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", s.handleCreateGame)
		r.Get("/{id}", s.handleGetGame)
		r.Post("/{id}/prompt", s.handleSendPrompt)
	})

	return r
}

// ListenAndServe serves the HTTP transport on cfg.Addr until ctx is done,
// then shuts it down within cfg.ShutdownTimeout
func (s *MCPServer) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.WithContext("addr", cfg.Addr).Info("CityQuest MCP service listening on HTTP")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("HTTP graceful shutdown initiated")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *MCPServer) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manifest)
}

// handleMCPPost serves one JSON-RPC message per request. Notifications are
// acknowledged with 202 and no body.
func (s *MCPServer) handleMCPPost(w http.ResponseWriter, r *http.Request) {
	var message models.MCPMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&message); err != nil {
		s.logger.WithError(err).Warn("Error decoding HTTP message")
		writeJSON(w, http.StatusBadRequest, s.createErrorResponse(nil, errors.MCPCodeParseError, "Parse error"))
		return
	}

	response := s.handleMessage(r.Context(), &message)
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *MCPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status": "ok",
		"ready":  s.isReady(),
	}
	if !s.isReady() {
		status = http.StatusServiceUnavailable
		body["status"] = "starting"
	} else {
		body["tools"] = len(s.registry.ListTools())
	}
	if s.games != nil {
		body["game_store_healthy"] = s.games.BreakerStats().IsHealthy()
	}
	writeJSON(w, status, body)
}

func (s *MCPServer) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	if !s.requireGames(w) {
		return
	}

	var input games.CreateGameInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidParams, "request body must be a JSON object")
		return
	}

	game, err := s.games.CreateGame(r.Context(), input)
	if err != nil {
		writeStructuredError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (s *MCPServer) handleGetGame(w http.ResponseWriter, r *http.Request) {
	if !s.requireGames(w) {
		return
	}

	game, err := s.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStructuredError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (s *MCPServer) handleSendPrompt(w http.ResponseWriter, r *http.Request) {
	if !s.requireGames(w) {
		return
	}

	id := chi.URLParam(r, "id")
	prompt, err := s.games.SendPrompt(r.Context(), id)
	if err != nil {
		writeStructuredError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id,
		"prompt": prompt,
	})
}

func (s *MCPServer) requireGames(w http.ResponseWriter) bool {
	if s.games != nil {
		return true
	}
	writeError(w, http.StatusServiceUnavailable, errors.ErrCodeStoreUnavailable, "game ledger is not configured")
	return false
}

// httpStatus maps an error category onto an HTTP status
func httpStatus(err error) int {
	structuredErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch structuredErr.Category {
	case errors.ErrorCategoryValidation:
		return http.StatusBadRequest
	case errors.ErrorCategoryNotFound:
		return http.StatusNotFound
	case errors.ErrorCategoryStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeStructuredError(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	structuredErr, ok := errors.As(err)
	if !ok {
		writeError(w, status, errors.ErrCodeInternal, "internal server error")
		return
	}
	writeJSON(w, status, errorBody{
		Status:     "error",
		Code:       structuredErr.Code,
		Message:    structuredErr.Message,
		Violations: structuredErr.Violations,
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Status: "error", Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", config.MimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
