package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cityquest-mcp-service/internal/models"
	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/logging"
	"cityquest-mcp-service/pkg/monitor"
)

//go:embed definitions/*.json
var builtinDefinitions embed.FS

const builtinDir = "definitions"

// reloadDebounce delays a reload until a burst of prompt file edits settles
const reloadDebounce = 500 * time.Millisecond

// MaxCompletionValues caps the values returned for one completion request
const MaxCompletionValues = 100

// PromptManager manages the lifecycle of prompt definitions. Built-in
// definitions are always loaded; files in promptsDir override them by name.
type PromptManager struct {
	registry      map[string]*PromptDefinition
	promptsDir    string
	monitor       *monitor.FileSystemMonitor
	renderer      *TemplateRenderer
	mu            sync.RWMutex
	logger        *logging.StructuredLogger
	debounceTimer *time.Timer

	stats PromptStats
}

// PromptStats tracks performance metrics for prompt operations
type PromptStats struct {
	TotalInvocations  int64
	FailedInvocations int64
	InvocationsByName map[string]int64
	TotalRenderTimeMs int64
	RenderTimeByName  map[string]int64
	Completions       int64
	mu                sync.RWMutex
}

// NewPromptManager creates a new prompt manager. promptsDir and monitor may
// be empty/nil when only the built-in prompts are served.
func NewPromptManager(promptsDir string, monitor *monitor.FileSystemMonitor, logger *logging.StructuredLogger) *PromptManager {
	if logger == nil {
		logger = logging.NewStructuredLogger("prompt_manager")
	}
	return &PromptManager{
		registry:   make(map[string]*PromptDefinition),
		promptsDir: promptsDir,
		monitor:    monitor,
		renderer:   NewTemplateRenderer(),
		logger:     logger,
		stats: PromptStats{
			InvocationsByName: make(map[string]int64),
			RenderTimeByName:  make(map[string]int64),
		},
	}
}

// SetToolResolver lets prompts reference registered widget tools
func (pm *PromptManager) SetToolResolver(resolver ToolResolver) {
	pm.renderer.SetToolResolver(resolver)
}

// LoadPrompts loads the built-in definitions, then every JSON definition in
// the prompts directory. Invalid files are logged and skipped.
func (pm *PromptManager) LoadPrompts() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	registry := make(map[string]*PromptDefinition)

	builtin, err := fs.ReadDir(builtinDefinitions, builtinDir)
	if err != nil {
		return fmt.Errorf("failed to read built-in prompts: %w", err)
	}
	for _, entry := range builtin {
		def, err := LoadFromFS(builtinDefinitions, path.Join(builtinDir, entry.Name()))
		if err != nil {
			return err
		}
		if err := def.Validate(); err != nil {
			return fmt.Errorf("built-in prompt %s: %w", entry.Name(), err)
		}
		registry[def.Name] = def
	}

	loadedCount, errorCount := 0, 0
	if pm.promptsDir != "" {
		entries, err := os.ReadDir(pm.promptsDir)
		switch {
		case os.IsNotExist(err):
			pm.logger.WithContext("prompts_dir", pm.promptsDir).
				Warn("Prompts directory does not exist, serving built-in prompts only")
		case err != nil:
			return fmt.Errorf("failed to read prompts directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != config.JSONExtension {
				continue
			}

			filePath := filepath.Join(pm.promptsDir, entry.Name())
			def, err := pm.loadPromptFile(filePath)
			if err != nil {
				pm.logger.WithError(err).
					WithContext("file", filePath).
					Error("Failed to load prompt definition, skipping")
				errorCount++
				continue
			}
			registry[def.Name] = def
			loadedCount++
		}
	}

	pm.registry = registry
	pm.logger.WithContext("builtin", len(builtin)).
		WithContext("loaded", loadedCount).
		WithContext("errors", errorCount).
		WithContext("total", len(pm.registry)).
		Info("Prompt definitions loaded")

	return nil
}

func (pm *PromptManager) loadPromptFile(filePath string) (*PromptDefinition, error) {
	def, err := LoadFromFile(filePath)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	pm.logger.WithContext("prompt_name", def.Name).
		WithContext("file", filepath.Base(filePath)).
		Debug("Prompt definition loaded")
	return def, nil
}

// GetPrompt retrieves a prompt definition by name
func (pm *PromptManager) GetPrompt(name string) (*PromptDefinition, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	prompt, exists := pm.registry[name]
	if !exists {
		return nil, errors.NewNotFoundError(
			errors.ErrCodePromptNotFound,
			fmt.Sprintf("Prompt not found: %s", name),
			nil,
		).WithContext("prompt", name)
	}
	return prompt, nil
}

// ListPrompts returns all available prompts sorted alphabetically by name
func (pm *PromptManager) ListPrompts() []models.MCPPrompt {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	prompts := make([]models.MCPPrompt, 0, len(pm.registry))
	for _, def := range pm.registry {
		prompts = append(prompts, def.ToMCPPrompt())
	}
	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].Name < prompts[j].Name
	})
	return prompts
}

// RenderPrompt validates arguments, substitutes variables and expands tool references
func (pm *PromptManager) RenderPrompt(name string, arguments map[string]interface{}) (result *models.MCPPromptsGetResult, err error) {
	startTime := time.Now()
	defer func() {
		pm.stats.record(name, time.Since(startTime), err == nil)
	}()

	logger := pm.logger.WithContext("prompt_name", name)
	logger.LogArguments("Prompt invocation started", arguments)

	fail := func(err error, message string) (*models.MCPPromptsGetResult, error) {
		logger.WithError(err).
			WithContext("duration_ms", time.Since(startTime).Milliseconds()).
			Error(message)
		return nil, err
	}

	prompt, err := pm.GetPrompt(name)
	if err != nil {
		return fail(err, "Failed to get prompt definition")
	}

	if err := prompt.ValidateArguments(arguments); err != nil {
		return fail(err, "Prompt argument validation failed")
	}

	vars := prompt.Variables(arguments)
	messages := make([]models.MCPPromptMessage, 0, len(prompt.Messages))

	for i, msgTemplate := range prompt.Messages {
		// Tool references expand before argument substitution so argument
		// values are never interpreted as references.
		withTools, err := pm.renderer.EmbedTools(msgTemplate.Content.Text)
		if err != nil {
			return fail(errors.NewSystemError(
				errors.ErrCodePromptRenderFailed,
				fmt.Sprintf("Failed to expand tool references in message %d", i),
				err,
			), "Failed to embed tools in prompt")
		}

		finalText, err := pm.renderer.RenderTemplate(withTools, vars)
		if err != nil {
			return fail(fmt.Errorf("failed to render message %d: %w", i, err), "Failed to render prompt template")
		}

		messages = append(messages, models.MCPPromptMessage{
			Role: msgTemplate.Role,
			Content: models.MCPPromptContent{
				Type: msgTemplate.Content.Type,
				Text: finalText,
			},
		})
	}

	logger.WithContext("message_count", len(messages)).
		WithContext("duration_ms", time.Since(startTime).Milliseconds()).
		Info("Prompt rendered successfully")

	return &models.MCPPromptsGetResult{
		Description: prompt.Description,
		Messages:    messages,
	}, nil
}

// CompleteArgument suggests values for a prompt argument with an enum,
// filtered by a case-insensitive prefix
func (pm *PromptManager) CompleteArgument(promptName, argName, prefix string) ([]string, error) {
	prompt, err := pm.GetPrompt(promptName)
	if err != nil {
		return nil, err
	}

	pm.stats.mu.Lock()
	pm.stats.Completions++
	pm.stats.mu.Unlock()

	arg, ok := prompt.Argument(argName)
	if !ok {
		return nil, errors.NewValidationError(
			errors.ErrCodeInvalidParams,
			fmt.Sprintf("Unknown argument %s for prompt %s", argName, promptName),
			nil,
		).WithViolations(errors.FieldViolation{Field: argName, Constraint: "unknown", Message: "unknown argument"})
	}

	lowered := strings.ToLower(prefix)
	values := make([]string, 0, len(arg.Enum))
	for _, value := range arg.Enum {
		if strings.HasPrefix(strings.ToLower(value), lowered) {
			values = append(values, value)
		}
		if len(values) == MaxCompletionValues {
			break
		}
	}
	return values, nil
}

// ReloadPrompts refreshes the prompt registry by reloading all definitions
func (pm *PromptManager) ReloadPrompts() error {
	pm.logger.Info("Reloading prompt definitions")

	if err := pm.LoadPrompts(); err != nil {
		pm.logger.WithError(err).Error("Failed to reload prompts")
		return err
	}

	pm.mu.RLock()
	total := len(pm.registry)
	pm.mu.RUnlock()
	pm.logger.WithContext("total_prompts", total).Info("Prompts reloaded successfully")
	return nil
}

// StartWatching reloads prompts whenever a JSON file in the prompts directory changes
func (pm *PromptManager) StartWatching() error {
	if pm.promptsDir == "" || pm.monitor == nil {
		return nil
	}
	if _, err := os.Stat(pm.promptsDir); os.IsNotExist(err) {
		pm.logger.WithContext("prompts_dir", pm.promptsDir).
			Warn("Prompts directory does not exist, skipping file system monitoring")
		return nil
	}

	if err := pm.monitor.WatchDirectory(pm.promptsDir, pm.handleFileEvent); err != nil {
		return fmt.Errorf("failed to watch prompts directory: %w", err)
	}

	pm.logger.WithContext("prompts_dir", pm.promptsDir).
		Info("Started watching prompts directory for changes")
	return nil
}

func (pm *PromptManager) handleFileEvent(event monitor.FileEvent) {
	if filepath.Ext(event.Path) != config.JSONExtension {
		return
	}

	pm.logger.WithContext("event_type", event.Type).
		WithContext("file", filepath.Base(event.Path)).
		Debug("Prompt file event detected")

	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.debounceTimer != nil {
		pm.debounceTimer.Stop()
	}
	pm.debounceTimer = time.AfterFunc(reloadDebounce, func() {
		_ = pm.ReloadPrompts()
	})
}

func (ps *PromptStats) record(name string, duration time.Duration, ok bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.TotalInvocations++
	ps.InvocationsByName[name]++
	if !ok {
		ps.FailedInvocations++
	}
	ps.TotalRenderTimeMs += duration.Milliseconds()
	ps.RenderTimeByName[name] += duration.Milliseconds()
}

// GetPerformanceMetrics returns performance metrics for prompt operations
func (pm *PromptManager) GetPerformanceMetrics() map[string]interface{} {
	pm.mu.RLock()
	totalPrompts := len(pm.registry)
	pm.mu.RUnlock()

	pm.stats.mu.RLock()
	defer pm.stats.mu.RUnlock()

	var avgRenderTime float64
	successfulInvocations := pm.stats.TotalInvocations - pm.stats.FailedInvocations
	if successfulInvocations > 0 {
		avgRenderTime = float64(pm.stats.TotalRenderTimeMs) / float64(successfulInvocations)
	}

	invocationsByName := make(map[string]int64, len(pm.stats.InvocationsByName))
	for name, count := range pm.stats.InvocationsByName {
		invocationsByName[name] = count
	}

	return map[string]interface{}{
		"total_prompts_loaded":   totalPrompts,
		"total_invocations":      pm.stats.TotalInvocations,
		"successful_invocations": successfulInvocations,
		"failed_invocations":     pm.stats.FailedInvocations,
		"invocations_by_name":    invocationsByName,
		"avg_render_time_ms":     avgRenderTime,
		"total_render_time_ms":   pm.stats.TotalRenderTimeMs,
		"completions":            pm.stats.Completions,
	}
}
