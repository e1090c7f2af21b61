package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityquest-mcp-service/pkg/errors"
)

var scoreShape = Shape{
	Prop("playerName", String().MinLen(1).Describe("Name of the player")),
	Prop("score", Number()),
	Prop("progressPercentage", Number().Min(0).Max(100).AdvisoryOnly().Optional()),
	Prop("badges", ArrayOf(String()).MaxItems(6).AdvisoryOnly().Optional()),
	Prop("mode", Enum("tour", "foodie", "race").Optional()),
	Prop("link", String().URL().Optional()),
	Prop("strictCount", Integer().Max(3).Optional()),
}

func violationFields(t *testing.T, err error) []string {
	t.Helper()
	se, ok := errors.As(err)
	require.True(t, ok, "expected structured error, got %v", err)
	assert.Equal(t, errors.ErrorCategoryValidation, se.Category)
	fields := make([]string, 0, len(se.Violations))
	for _, v := range se.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

func TestShapeValidate(t *testing.T) {
	t.Run("Valid arguments", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{
			"playerName": "Rae",
			"score":      float64(120),
			"badges":     []any{"a", "b"},
			"mode":       "race",
			"link":       "https://cityquest.app/greeting",
			"unknownKey": true,
		})
		assert.NoError(t, err)
	})

	t.Run("Collects every violation", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{
			"playerName": "",
			"mode":       "sprint",
			"link":       "not a url",
		})
		assert.Equal(t, []string{"playerName", "score", "mode", "link"}, violationFields(t, err))
	})

	t.Run("Advisory constraints are not enforced", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{
			"playerName":         "Rae",
			"score":              120,
			"progressPercentage": 140.0,
			"badges":             []string{"a", "b", "c", "d", "e", "f", "g"},
		})
		assert.NoError(t, err)
	})

	t.Run("Enforced numeric bounds", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{"playerName": "Rae", "score": 1, "strictCount": 4})
		assert.Equal(t, []string{"strictCount"}, violationFields(t, err))

		err = scoreShape.Validate(map[string]any{"playerName": "Rae", "score": 1, "strictCount": 1.5})
		assert.Equal(t, []string{"strictCount"}, violationFields(t, err))
	})

	t.Run("Type mismatches", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{
			"playerName": 7,
			"score":      "120",
			"badges":     []any{"ok", 3},
		})
		assert.Equal(t, []string{"playerName", "score", "badges[1]"}, violationFields(t, err))
	})

	t.Run("NaN is not a number", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{"playerName": "Rae", "score": math.NaN()})
		assert.Equal(t, []string{"score"}, violationFields(t, err))
	})

	t.Run("Null counts as absent", func(t *testing.T) {
		err := scoreShape.Validate(map[string]any{"playerName": "Rae", "score": 3, "badges": nil})
		assert.NoError(t, err)
	})
}

func TestShapeJSONSchema(t *testing.T) {
	rendered := scoreShape.JSONSchema()
	assert.Equal(t, "object", rendered["type"])
	assert.Equal(t, []string{"playerName", "score"}, rendered["required"])

	properties := rendered["properties"].(map[string]any)
	badges := properties["badges"].(map[string]any)
	assert.Equal(t, "array", badges["type"])
	assert.Equal(t, 6, badges["maxItems"])
	assert.Equal(t, map[string]any{"type": "string"}, badges["items"])

	mode := properties["mode"].(map[string]any)
	assert.Equal(t, []string{"tour", "foodie", "race"}, mode["enum"])

	_, err := json.Marshal(rendered)
	assert.NoError(t, err)
}

func TestConforms(t *testing.T) {
	output := Shape{
		Prop("status", String()),
		Prop("adventureUrl", String().URL()),
		Prop("badges", ArrayOf(String()).Optional()),
	}

	t.Run("Conforming payload", func(t *testing.T) {
		err := Conforms(output, map[string]any{
			"status":       "ready",
			"adventureUrl": "http://localhost:3000/greeting",
			"badges":       []string{"Scout"},
		})
		assert.NoError(t, err)
	})

	t.Run("Missing and mistyped fields", func(t *testing.T) {
		err := Conforms(output, map[string]any{"adventureUrl": 12})
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.ErrorCategoryBuilder))

		se, _ := errors.As(err)
		assert.Equal(t, errors.ErrCodeOutputNonConforms, se.Code)
		assert.NotEmpty(t, se.Violations)
	})
}

func TestURLFormatAgreesWithConforms(t *testing.T) {
	shape := Shape{Prop("link", String().URL())}

	tests := []struct {
		input string
		valid bool
	}{
		{"https://cityquest.app/greeting", true},
		{"mailto:guild@cityquest.app", true},
		{"https://example.com/a%5Cb", true},
		{"https://example.com/a\\b", false},
		{"/relative/path", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			args := map[string]any{"link": tt.input}
			assert.Equal(t, tt.valid, IsAbsoluteURL(tt.input))
			assert.Equal(t, tt.valid, shape.Validate(args) == nil)
			if tt.valid {
				assert.NoError(t, Conforms(shape, args))
			}
		})
	}
}

func TestShapeHelpers(t *testing.T) {
	shape := Shape{Prop("a", String()), Prop("b", Number()), Prop("a", Boolean())}
	assert.Equal(t, []string{"a", "b", "a"}, shape.Names())
	assert.Equal(t, []string{"a"}, shape.Duplicates())

	field, ok := shape.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, KindNumber, field.Kind)
}
