package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"

	"cityquest-mcp-service/pkg/errors"
)

// Validate checks args against the shape and reports every offending field.
// Unknown keys are ignored and nil values count as absent.
func (s Shape) Validate(args map[string]any) error {
	var violations []errors.FieldViolation
	for _, p := range s {
		value, present := args[p.Name]
		if !present || value == nil {
			if !p.Field.IsOptional {
				violations = append(violations, errors.FieldViolation{
					Field:      p.Name,
					Constraint: "required",
					Message:    fmt.Sprintf("%s is required", p.Name),
				})
			}
			continue
		}
		violations = append(violations, p.Field.check(p.Name, value)...)
	}

	if len(violations) == 0 {
		return nil
	}

	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return errors.NewValidationError(
		errors.ErrCodeInvalidArguments,
		fmt.Sprintf("Invalid arguments: %s", strings.Join(fields, ", ")),
		nil,
	).WithViolations(violations...)
}

func (f Field) check(name string, value any) []errors.FieldViolation {
	violation := func(constraint, format string, a ...any) []errors.FieldViolation {
		return []errors.FieldViolation{{
			Field:      name,
			Constraint: constraint,
			Message:    fmt.Sprintf(format, a...),
		}}
	}

	switch f.Kind {
	case KindString, KindEnum:
		str, ok := value.(string)
		if !ok {
			return violation("type", "%s must be a string", name)
		}
		if f.Kind == KindEnum {
			for _, allowed := range f.Enum {
				if str == allowed {
					return nil
				}
			}
			return violation("enum", "%s must be one of %s", name, strings.Join(f.Enum, ", "))
		}
		if f.Format == FormatURI && !IsAbsoluteURL(str) {
			return violation("format", "%s must be a valid URL", name)
		}
		if f.Advisory {
			return nil
		}
		length := utf8.RuneCountInString(str)
		if f.MinLength != nil && length < *f.MinLength {
			return violation("minLength", "%s must be at least %d characters", name, *f.MinLength)
		}
		if f.MaxLength != nil && length > *f.MaxLength {
			return violation("maxLength", "%s must be at most %d characters", name, *f.MaxLength)
		}

	case KindNumber, KindInteger:
		number, ok := ToFloat(value)
		if !ok {
			return violation("type", "%s must be a %s", name, f.Kind)
		}
		if f.Kind == KindInteger && number != math.Trunc(number) {
			return violation("type", "%s must be an integer", name)
		}
		if f.Advisory {
			return nil
		}
		if f.Minimum != nil && number < *f.Minimum {
			return violation("minimum", "%s must be >= %v", name, *f.Minimum)
		}
		if f.Maximum != nil && number > *f.Maximum {
			return violation("maximum", "%s must be <= %v", name, *f.Maximum)
		}

	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return violation("type", "%s must be a boolean", name)
		}

	case KindObject:
		if _, ok := value.(map[string]any); !ok {
			return violation("type", "%s must be an object", name)
		}

	case KindArray:
		items, ok := ToSlice(value)
		if !ok {
			return violation("type", "%s must be an array", name)
		}
		if !f.Advisory && f.ItemLimit != nil && len(items) > *f.ItemLimit {
			return violation("maxItems", "%s must have at most %d items", name, *f.ItemLimit)
		}
		if f.Items == nil {
			return nil
		}
		var out []errors.FieldViolation
		for i, item := range items {
			itemName := fmt.Sprintf("%s[%d]", name, i)
			if item == nil {
				out = append(out, errors.FieldViolation{Field: itemName, Constraint: "type", Message: itemName + " must not be null"})
				continue
			}
			out = append(out, f.Items.check(itemName, item)...)
		}
		return out
	}
	return nil
}

// ToFloat converts JSON and Go numeric values to float64. NaN is rejected.
func ToFloat(value any) (float64, bool) {
	var number float64
	switch v := value.(type) {
	case float64:
		number = v
	case float32:
		number = float64(v)
	case int:
		number = float64(v)
	case int32:
		number = float64(v)
	case int64:
		number = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		number = parsed
	default:
		return 0, false
	}
	if math.IsNaN(number) {
		return 0, false
	}
	return number, true
}

// ToSlice converts []any and []string to []any
func ToSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// IsAbsoluteURL reports whether s is a URL with a scheme and a host or
// opaque part. It must accept nothing the "uri" format of Conforms rejects.
func IsAbsoluteURL(s string) bool {
	if !gojsonschema.FormatCheckers.IsFormat(FormatURI, s) {
		return false
	}
	parsed, err := url.Parse(s)
	if err != nil || parsed.Scheme == "" {
		return false
	}
	return parsed.Host != "" || parsed.Opaque != ""
}
