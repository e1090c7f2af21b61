package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"cityquest-mcp-service/pkg/baseurl"
	"cityquest-mcp-service/pkg/config"
	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/logging"
	"cityquest-mcp-service/pkg/widgets"
)

const instrumentationName = "cityquest-mcp-service/pkg/tools"

// Registry attaches the widget catalog as MCP tools and resources and
// dispatches invocations. Registration happens once; afterwards the tool and
// resource maps are read-only.
type Registry struct {
	buildID  string
	baseURL  string
	origin   string
	executor *Executor
	logger   *logging.StructuredLogger
	mu       sync.RWMutex

	registered    bool
	toolOrder     []string
	tools         map[string]*RegisteredTool
	resourceOrder []string
	resources     map[string]*Resource

	// Performance metrics
	stats       ToolStats
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

// ToolStats tracks performance metrics for tool invocations
type ToolStats struct {
	TotalInvocations     int64
	FailedInvocations    int64
	InvocationsByName    map[string]int64
	TotalExecutionTimeMs int64
	ExecutionTimeByName  map[string]int64
	mu                   sync.RWMutex
}

// Option customizes a Registry
type Option func(*registryOptions)

type registryOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider sets the tracer provider used for invocation spans
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *registryOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for invocation counters
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *registryOptions) { o.meterProvider = mp }
}

// NewRegistry creates an empty registry for one build identifier and base URL
func NewRegistry(buildID, baseURL string, logger *logging.StructuredLogger, opts ...Option) *Registry {
	options := registryOptions{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	base := baseurl.Normalize(baseURL)
	r := &Registry{
		buildID:   buildID,
		baseURL:   base,
		origin:    baseurl.Origin(base),
		executor:  NewExecutor(options.tracerProvider.Tracer(instrumentationName), logger),
		logger:    logger,
		tools:     make(map[string]*RegisteredTool),
		resources: make(map[string]*Resource),
		stats: ToolStats{
			InvocationsByName:   make(map[string]int64),
			ExecutionTimeByName: make(map[string]int64),
		},
	}

	meter := options.meterProvider.Meter(instrumentationName)
	var err error
	if r.invocations, err = meter.Int64Counter("widget.invocations",
		metric.WithDescription("Number of widget tool invocations"),
		metric.WithUnit("1"),
	); err != nil {
		logger.WithError(err).Warn("Failed to create invocation counter")
	}
	if r.duration, err = meter.Float64Histogram("widget.invocation.duration",
		metric.WithDescription("Widget tool invocation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		logger.WithError(err).Warn("Failed to create invocation histogram")
	}

	return r
}

// QualifiedName returns the version-qualified tool name for a base name
func (r *Registry) QualifiedName(name string) string {
	return fmt.Sprintf("%s-%s", name, r.buildID)
}

// BaseURL returns the normalized base URL the registry publishes
func (r *Registry) BaseURL() string {
	return r.baseURL
}

// IsRegistered reports whether RegisterAll has run
func (r *Registry) IsRegistered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registered
}

// RegisterAll materializes every catalog entry's HTML once and attaches its
// resource and tool, in catalog order. An entry whose HTML supplier fails is
// logged, reported and skipped. RegisterAll may only run once.
func (r *Registry) RegisterAll(ctx context.Context, catalog widgets.Catalog) (RegistrationReport, error) {
	var report RegistrationReport

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		return report, errors.NewRegistrationError(
			errors.ErrCodeAlreadyRegistered,
			"Widget catalog is already registered",
			nil,
		)
	}
	if err := catalog.Validate(); err != nil {
		return report, errors.NewRegistrationError(errors.ErrCodeDuplicateTool, "Widget catalog is invalid", err)
	}
	r.registered = true

	for _, def := range catalog {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := r.QualifiedName(def.Name)
		uri := config.WidgetURI(name)
		logger := r.logger.WithContext("tool", name).WithContext("uri", uri)

		html, err := def.HTML()
		if err != nil {
			regErr := errors.NewRegistrationError(
				errors.ErrCodeTemplateFailed,
				fmt.Sprintf("Failed to materialize widget HTML for %s", def.Name),
				err,
			).WithContext("tool", def.Name)
			logger.WithError(regErr).Error("Widget registration skipped")
			report.Failed = append(report.Failed, RegistrationFailure{Name: def.Name, Err: regErr})
			continue
		}

		r.resources[uri] = &Resource{
			URI:         uri,
			Name:        name,
			Description: def.Description,
			MimeType:    config.MimeTypeHTML,
			Text:        html,
			Metadata:    r.resourceMetadata(def),
		}
		r.resourceOrder = append(r.resourceOrder, uri)

		r.tools[name] = &RegisteredTool{
			Name:        name,
			URI:         uri,
			Definition:  def,
			Meta:        r.toolMeta(def, uri),
			Annotations: Annotations{ReadOnlyHint: true, OpenWorldHint: false},
		}
		r.toolOrder = append(r.toolOrder, name)

		if def.Description == "" {
			logger.Warn("Tool registered without description")
		}
		logger.Info("Tool registered")
		report.Registered = append(report.Registered, name)
	}

	return report, nil
}

func (r *Registry) resourceMetadata(def widgets.ToolDefinition) map[string]any {
	metadata := map[string]any{
		MetaWidgetDescription: def.Description,
		MetaWidgetCSP: map[string]any{
			"connect_domains":  []string{},
			"resource_domains": []string{r.origin},
		},
	}
	if def.WidgetPrefersBorder {
		metadata[MetaWidgetPrefersBorder] = true
	}
	return metadata
}

func (r *Registry) toolMeta(def widgets.ToolDefinition, uri string) map[string]any {
	meta := map[string]any{
		MetaOutputTemplate: uri,
		MetaWidgetDomain:   r.origin,
		MetaToolInvoking:   def.InvokingMessage,
		MetaToolInvoked:    def.InvokedMessage,
	}
	if def.ResultCanProduceWidget {
		meta[MetaResultCanProduceWidget] = true
	}
	if def.WidgetAccessible {
		meta[MetaWidgetAccessible] = true
	}
	return meta
}

// GetTool retrieves a registered tool by version-qualified name
func (r *Registry) GetTool(name string) (*RegisteredTool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, errors.NewNotFoundError(
			errors.ErrCodeToolNotFound,
			fmt.Sprintf("Tool not found: %s", name),
			nil,
		).WithContext("tool", name)
	}
	return tool, nil
}

// ListTools returns the registered tools in catalog order
func (r *Registry) ListTools() []*RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*RegisteredTool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// ListResources returns the materialized resources in catalog order
func (r *Registry) ListResources() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resources := make([]Resource, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		resources = append(resources, *r.resources[uri])
	}
	return resources
}

// FetchResource returns the stored markup for a widget URI
func (r *Registry) FetchResource(uri string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resource, exists := r.resources[uri]
	if !exists {
		return nil, errors.NewNotFoundError(
			errors.ErrCodeResourceNotFound,
			fmt.Sprintf("Resource not found: %s", uri),
			nil,
		).WithContext("uri", uri)
	}
	copied := *resource
	return &copied, nil
}

// unknownToolKey buckets calls to unregistered names so caller-supplied
// names never become stats keys or metric attributes
const unknownToolKey = "unknown"

// Invoke runs a registered tool and packages its payload with the widget
// resource and the initial render envelope
func (r *Registry) Invoke(ctx context.Context, name string, arguments map[string]any) (*InvocationResult, error) {
	startTime := time.Now()

	tool, err := r.GetTool(name)
	if err != nil {
		r.recordFailure(ctx, unknownToolKey)
		return nil, err
	}

	if arguments == nil {
		arguments = map[string]any{}
	}

	payload, err := r.executor.Execute(ctx, tool, arguments)
	executionTime := time.Since(startTime)
	if err != nil {
		r.recordFailure(ctx, name)
		return nil, err
	}
	r.recordSuccess(ctx, name, executionTime)

	resource, err := r.FetchResource(tool.URI)
	if err != nil {
		return nil, err
	}

	return &InvocationResult{
		Text:              tool.Definition.ResultMessage,
		StructuredContent: payload,
		UIResource: UIResource{
			URI:      resource.URI,
			MimeType: resource.MimeType,
			Text:     resource.Text,
			InitialRenderData: InitialRenderData{
				ToolInput:  arguments,
				ToolOutput: payload,
			},
		},
	}, nil
}

// GetPerformanceMetrics returns current performance metrics
func (r *Registry) GetPerformanceMetrics() map[string]interface{} {
	r.stats.mu.RLock()
	defer r.stats.mu.RUnlock()

	invocationsByName := make(map[string]int64, len(r.stats.InvocationsByName))
	for name, count := range r.stats.InvocationsByName {
		invocationsByName[name] = count
	}

	executionTimeByName := make(map[string]int64, len(r.stats.ExecutionTimeByName))
	for name, ms := range r.stats.ExecutionTimeByName {
		executionTimeByName[name] = ms
	}

	r.mu.RLock()
	registeredTools := len(r.tools)
	registeredResources := len(r.resources)
	r.mu.RUnlock()

	return map[string]interface{}{
		"total_invocations":       r.stats.TotalInvocations,
		"failed_invocations":      r.stats.FailedInvocations,
		"invocations_by_name":     invocationsByName,
		"total_execution_time_ms": r.stats.TotalExecutionTimeMs,
		"execution_time_by_name":  executionTimeByName,
		"registered_tools":        registeredTools,
		"registered_resources":    registeredResources,
	}
}

func (r *Registry) recordSuccess(ctx context.Context, toolName string, elapsed time.Duration) {
	r.stats.mu.Lock()
	r.stats.TotalInvocations++
	r.stats.InvocationsByName[toolName]++
	r.stats.TotalExecutionTimeMs += elapsed.Milliseconds()
	r.stats.ExecutionTimeByName[toolName] += elapsed.Milliseconds()
	r.stats.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("widget.tool", toolName), attribute.Bool("success", true))
	if r.invocations != nil {
		r.invocations.Add(ctx, 1, attrs)
	}
	if r.duration != nil {
		r.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func (r *Registry) recordFailure(ctx context.Context, toolName string) {
	r.stats.mu.Lock()
	r.stats.TotalInvocations++
	r.stats.FailedInvocations++
	r.stats.InvocationsByName[toolName]++
	r.stats.mu.Unlock()

	if r.invocations != nil {
		r.invocations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("widget.tool", toolName),
			attribute.Bool("success", false),
		))
	}
}
