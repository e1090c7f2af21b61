// Package tools registers the widget catalog and dispatches tool invocations.
//
// Every invocation runs through the Executor, which:
// - validates arguments against the tool's input shape
// - runs the structured-content builder inside a trace span
// - converts builder panics into builder errors
// - checks the payload against the output shape
package tools

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/logging"
	"cityquest-mcp-service/pkg/schema"
)

// Executor validates arguments and runs builders
type Executor struct {
	tracer trace.Tracer
	logger *logging.StructuredLogger
}

// NewExecutor creates an Executor
func NewExecutor(tracer trace.Tracer, logger *logging.StructuredLogger) *Executor {
	return &Executor{tracer: tracer, logger: logger}
}

// Execute validates arguments, builds the structured payload and checks it
// against the output shape
func (e *Executor) Execute(ctx context.Context, tool *RegisteredTool, arguments map[string]any) (map[string]any, error) {
	_, span := e.tracer.Start(ctx, "widget.invoke", trace.WithAttributes(
		attribute.String("widget.tool", tool.Name),
		attribute.String("widget.uri", tool.URI),
	))
	defer span.End()

	logger := e.logger.WithContext("tool", tool.Name)

	if err := tool.Definition.InputSchema.Validate(arguments); err != nil {
		logger.WithError(err).Warn("Tool argument validation failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid arguments")
		return nil, err
	}

	logger.LogArguments("Executing tool", arguments)

	payload, err := e.build(tool, arguments)
	if err != nil {
		logger.WithError(err).Error("Tool execution failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "builder failed")
		return nil, err
	}

	if err := schema.Conforms(tool.Definition.OutputSchema, payload); err != nil {
		logger.WithError(err).Error("Tool output does not match its schema")
		span.RecordError(err)
		span.SetStatus(codes.Error, "output schema mismatch")
		return nil, err
	}

	span.SetAttributes(attribute.Int("widget.output_fields", len(payload)))
	span.SetStatus(codes.Ok, "")
	logger.Debug("Tool execution completed")
	return payload, nil
}

func (e *Executor) build(tool *RegisteredTool, arguments map[string]any) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = errors.NewBuilderError(
				errors.ErrCodeBuilderPanic,
				fmt.Sprintf("Builder for %s panicked", tool.Name),
				fmt.Errorf("%v", r),
			).WithContext("tool", tool.Name)
		}
	}()

	payload, err = tool.Definition.Build(arguments)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewBuilderError(
			errors.ErrCodeBuilderFailed,
			fmt.Sprintf("Builder for %s failed", tool.Name),
			err,
		).WithContext("tool", tool.Name)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
