package tools

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityquest-mcp-service/pkg/errors"
	"cityquest-mcp-service/pkg/logging"
	"cityquest-mcp-service/pkg/schema"
	"cityquest-mcp-service/pkg/widgets"
)

const testBuildID = "20260501"

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	logger := logging.NewStructuredLoggerWithWriter("tools-test", io.Discard)
	return NewRegistry(testBuildID, "https://cityquest.app", logger, opts...)
}

func testCatalog() widgets.Catalog {
	return widgets.NewCatalog(widgets.CatalogOptions{
		BaseURL: "https://cityquest.app",
		Clock:   func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) },
	})
}

func registeredRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	registry := newTestRegistry(t, opts...)
	report, err := registry.RegisterAll(context.Background(), testCatalog())
	require.NoError(t, err)
	require.Empty(t, report.Failed)
	return registry
}

func TestRegisterAll(t *testing.T) {
	t.Run("Registers every entry in catalog order", func(t *testing.T) {
		registry := newTestRegistry(t)
		report, err := registry.RegisterAll(context.Background(), testCatalog())
		require.NoError(t, err)

		expected := []string{
			"start-cityquest-20260501",
			"update-score-20260501",
			"video-summary-20260501",
			"calculator-20260501",
		}
		assert.Equal(t, expected, report.Registered)

		tools := registry.ListTools()
		require.Len(t, tools, 4)
		for i, tool := range tools {
			assert.Equal(t, expected[i], tool.Name)
			assert.Equal(t, "ui://widget/"+expected[i]+".html", tool.URI)
		}

		resources := registry.ListResources()
		require.Len(t, resources, 4)
		assert.Equal(t, "ui://widget/start-cityquest-20260501.html", resources[0].URI)
		assert.True(t, registry.IsRegistered())
	})

	t.Run("Tool metadata and annotations", func(t *testing.T) {
		registry := registeredRegistry(t)
		tool, err := registry.GetTool("update-score-20260501")
		require.NoError(t, err)

		assert.Equal(t, map[string]any{
			MetaOutputTemplate:         "ui://widget/update-score-20260501.html",
			MetaWidgetDomain:           "https://cityquest.app",
			MetaToolInvoking:           "Syncing your guild ledger...",
			MetaToolInvoked:            "Score beacon synced.",
			MetaResultCanProduceWidget: true,
			MetaWidgetAccessible:       true,
		}, tool.Meta)
		assert.Equal(t, Annotations{ReadOnlyHint: true, OpenWorldHint: false}, tool.Annotations)
	})

	t.Run("Resource metadata", func(t *testing.T) {
		registry := registeredRegistry(t)
		resource, err := registry.FetchResource("ui://widget/video-summary-20260501.html")
		require.NoError(t, err)

		assert.Equal(t, "text/html", resource.MimeType)
		assert.Contains(t, resource.Text, "CityQuest Video Summary")
		assert.Equal(t, "Embed a mission recording with a written recap, highlights, and follow-up action.", resource.Metadata[MetaWidgetDescription])
		assert.Equal(t, map[string]any{
			"connect_domains":  []string{},
			"resource_domains": []string{"https://cityquest.app"},
		}, resource.Metadata[MetaWidgetCSP])
		assert.NotContains(t, resource.Metadata, MetaWidgetPrefersBorder)
	})

	t.Run("Border preference is published when set", func(t *testing.T) {
		catalog := testCatalog()
		catalog[3].WidgetPrefersBorder = true

		registry := newTestRegistry(t)
		_, err := registry.RegisterAll(context.Background(), catalog)
		require.NoError(t, err)

		resource, err := registry.FetchResource("ui://widget/calculator-20260501.html")
		require.NoError(t, err)
		assert.Equal(t, true, resource.Metadata[MetaWidgetPrefersBorder])
	})

	t.Run("Failing HTML supplier skips only that entry", func(t *testing.T) {
		catalog := testCatalog()
		catalog[1].HTML = func() (string, error) { return "", fmt.Errorf("template exploded") }

		registry := newTestRegistry(t)
		report, err := registry.RegisterAll(context.Background(), catalog)
		require.NoError(t, err)

		require.Len(t, report.Failed, 1)
		assert.Equal(t, "update-score", report.Failed[0].Name)
		assert.True(t, errors.IsCategory(report.Failed[0].Err, errors.ErrorCategoryRegistration))
		assert.Len(t, report.Registered, 3)

		_, err = registry.GetTool("update-score-20260501")
		assert.True(t, errors.IsCategory(err, errors.ErrorCategoryNotFound))
		_, err = registry.FetchResource("ui://widget/update-score-20260501.html")
		assert.Error(t, err)

		for _, name := range []string{"start-cityquest", "video-summary", "calculator"} {
			_, err := registry.GetTool(name + "-20260501")
			assert.NoError(t, err, name)
			_, err = registry.FetchResource("ui://widget/" + name + "-20260501.html")
			assert.NoError(t, err, name)
		}
	})

	t.Run("HTML is materialized once", func(t *testing.T) {
		calls := 0
		catalog := testCatalog()
		catalog[3].HTML = func() (string, error) {
			calls++
			return fmt.Sprintf("<div>render %d</div>", calls), nil
		}

		registry := newTestRegistry(t)
		_, err := registry.RegisterAll(context.Background(), catalog)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			result, err := registry.Invoke(context.Background(), "calculator-20260501", nil)
			require.NoError(t, err)
			assert.Equal(t, "<div>render 1</div>", result.UIResource.Text)
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("Second registration is rejected", func(t *testing.T) {
		registry := registeredRegistry(t)
		_, err := registry.RegisterAll(context.Background(), testCatalog())
		se, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeAlreadyRegistered, se.Code)
		assert.Len(t, registry.ListTools(), 4)
	})

	t.Run("Duplicate base names are rejected", func(t *testing.T) {
		catalog := testCatalog()
		catalog = append(catalog, catalog[0])

		registry := newTestRegistry(t)
		_, err := registry.RegisterAll(context.Background(), catalog)
		assert.True(t, errors.IsCategory(err, errors.ErrorCategoryRegistration))
		assert.Empty(t, registry.ListTools())
		assert.False(t, registry.IsRegistered())
	})

	t.Run("Cancelled context stops registration", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		registry := newTestRegistry(t)
		_, err := registry.RegisterAll(ctx, testCatalog())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestInvoke(t *testing.T) {
	registry := registeredRegistry(t)
	ctx := context.Background()

	t.Run("Score scenario", func(t *testing.T) {
		args := map[string]any{
			"playerName":         "  Rae  ",
			"score":              float64(120),
			"progressPercentage": float64(140),
			"badges":             []any{"a", "b", "c", "d", "e", "f", "g"},
		}
		result, err := registry.Invoke(ctx, "update-score-20260501", args)
		require.NoError(t, err)

		assert.Equal(t, "The score tracker has been updated.", result.Text)
		assert.Equal(t, map[string]any{
			"playerName":         "Rae",
			"score":              120.0,
			"progressPercentage": 100.0,
			"badges":             []string{"a", "b", "c", "d", "e", "f"},
			"lastCheckpoint":     "Awaiting new intel.",
			"status":             "Score beacon updated",
			"updatedAt":          "2026-05-01T09:30:00.000Z",
		}, result.StructuredContent)

		assert.Equal(t, "ui://widget/update-score-20260501.html", result.UIResource.URI)
		assert.Equal(t, "text/html", result.UIResource.MimeType)
		assert.Contains(t, result.UIResource.Text, "Score Beacon")
		assert.Equal(t, args, result.UIResource.InitialRenderData.ToolInput)
		assert.Equal(t, result.StructuredContent, result.UIResource.InitialRenderData.ToolOutput)
	})

	t.Run("Start console", func(t *testing.T) {
		result, err := registry.Invoke(ctx, "start-cityquest-20260501", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "Your adventure console is open and ready.", result.Text)
		assert.Equal(t, "https://cityquest.app/greeting", result.StructuredContent["adventureUrl"])
	})

	t.Run("Unknown tool", func(t *testing.T) {
		_, err := registry.Invoke(ctx, "update-score", map[string]any{})
		se, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeToolNotFound, se.Code)
	})

	t.Run("Invalid arguments list offending fields", func(t *testing.T) {
		_, err := registry.Invoke(ctx, "video-summary-20260501", map[string]any{"title": "", "videoUrl": "nope"})
		se, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorCategoryValidation, se.Category)

		fields := make([]string, 0, len(se.Violations))
		for _, v := range se.Violations {
			fields = append(fields, v.Field)
		}
		assert.Equal(t, []string{"title", "videoUrl", "summary"}, fields)
	})

	t.Run("Backslash URL is rejected as input", func(t *testing.T) {
		_, err := registry.Invoke(ctx, "video-summary-20260501", map[string]any{
			"title":    "T",
			"summary":  "S",
			"videoUrl": "https://example.com/a\\b",
		})
		se, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrorCategoryValidation, se.Category)
		require.Len(t, se.Violations, 1)
		assert.Equal(t, "videoUrl", se.Violations[0].Field)
	})

	t.Run("Encoded video id keeps the output conforming", func(t *testing.T) {
		result, err := registry.Invoke(ctx, "video-summary-20260501", map[string]any{
			"title":    "T",
			"summary":  "S",
			"videoUrl": "https://www.youtube.com/watch?v=a%5Cb",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://www.youtube.com/embed/a%5Cb", result.StructuredContent["embedUrl"])
	})

	t.Run("Unknown resource", func(t *testing.T) {
		_, err := registry.FetchResource("ui://widget/missing.html")
		se, ok := errors.As(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeResourceNotFound, se.Code)
	})
}

func TestInvokeBuilderFailures(t *testing.T) {
	ctx := context.Background()
	catalog := widgets.Catalog{
		{
			Name:         "panicky",
			HTML:         func() (string, error) { return "<div></div>", nil },
			Build:        func(map[string]any) (map[string]any, error) { panic("boom") },
			InputSchema:  schema.Shape{},
			OutputSchema: schema.Shape{},
		},
		{
			Name:         "failing",
			HTML:         func() (string, error) { return "<div></div>", nil },
			Build:        func(map[string]any) (map[string]any, error) { return nil, fmt.Errorf("bad input") },
			OutputSchema: schema.Shape{},
		},
		{
			Name:         "drifting",
			HTML:         func() (string, error) { return "<div></div>", nil },
			Build:        func(map[string]any) (map[string]any, error) { return map[string]any{"status": 7}, nil },
			OutputSchema: schema.Shape{schema.Prop("status", schema.String())},
		},
	}

	registry := newTestRegistry(t)
	_, err := registry.RegisterAll(ctx, catalog)
	require.NoError(t, err)

	tests := []struct {
		tool string
		code string
	}{
		{"panicky", errors.ErrCodeBuilderPanic},
		{"failing", errors.ErrCodeBuilderFailed},
		{"drifting", errors.ErrCodeOutputNonConforms},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			_, err := registry.Invoke(ctx, tt.tool+"-"+testBuildID, nil)
			se, ok := errors.As(err)
			require.True(t, ok, "expected structured error, got %v", err)
			assert.Equal(t, errors.ErrorCategoryBuilder, se.Category)
			assert.Equal(t, tt.code, se.Code)
		})
	}
}

func TestPerformanceMetrics(t *testing.T) {
	registry := registeredRegistry(t)
	ctx := context.Background()

	_, err := registry.Invoke(ctx, "calculator-20260501", map[string]any{"display": "0"})
	require.NoError(t, err)
	_, err = registry.Invoke(ctx, "calculator-20260501", map[string]any{"operation": "%"})
	require.Error(t, err)
	_, _ = registry.Invoke(ctx, "missing", nil)

	metrics := registry.GetPerformanceMetrics()
	assert.Equal(t, int64(3), metrics["total_invocations"])
	assert.Equal(t, int64(2), metrics["failed_invocations"])
	byName := metrics["invocations_by_name"].(map[string]int64)
	assert.Equal(t, int64(2), byName["calculator-20260501"])
	assert.Equal(t, int64(1), byName[unknownToolKey])
	assert.NotContains(t, byName, "missing")
	assert.Equal(t, 4, metrics["registered_tools"])
}

func TestPerformanceMetricsUnknownNamesStayBounded(t *testing.T) {
	registry := registeredRegistry(t)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := registry.Invoke(ctx, fmt.Sprintf("bogus-%d", i), nil)
		require.Error(t, err)
	}

	metrics := registry.GetPerformanceMetrics()
	byName := metrics["invocations_by_name"].(map[string]int64)
	assert.Len(t, byName, 1)
	assert.Equal(t, int64(1000), byName[unknownToolKey])
	assert.Equal(t, int64(1000), metrics["failed_invocations"])
}
