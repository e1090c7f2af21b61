package content

import "cityquest-mcp-service/pkg/schema"

// String returns the string argument under key and whether it was present
func String(args map[string]any, key string) (string, bool) {
	value, ok := args[key].(string)
	return value, ok
}

// Float returns the numeric argument under key
func Float(args map[string]any, key string) (float64, bool) {
	value, present := args[key]
	if !present {
		return 0, false
	}
	return schema.ToFloat(value)
}

// Strings returns the string elements of the array argument under key.
// Non-string elements are skipped.
func Strings(args map[string]any, key string) []string {
	items, ok := schema.ToSlice(args[key])
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bool returns the boolean argument under key
func Bool(args map[string]any, key string) (bool, bool) {
	value, ok := args[key].(bool)
	return value, ok
}
