package baseurl

import (
	"strings"
	"testing"
)

func mapEnv(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		override string
		expected string
	}{
		{"No signals", nil, "", Fallback},
		{"Override wins", map[string]string{"MCP_WIDGET_BASE_URL": "https://env.example.com"}, "https://override.example.com///", "https://override.example.com/"},
		{"Explicit priority order", map[string]string{"PUBLIC_BASE_URL": "https://public.example.com", "VITE_APP_BASE_URL": "https://vite.example.com"}, "", "https://public.example.com/"},
		{"Explicit beats development", map[string]string{"VITE_APP_BASE_URL": "https://app.example.com/", "NODE_ENV": "development"}, "", "https://app.example.com/"},
		{"Development mode", map[string]string{"NODE_ENV": "Development", "VERCEL_URL": "preview.vercel.app"}, "", Fallback},
		{"First mode variable decides", map[string]string{"NODE_ENV": "production", "MODE": "development", "VERCEL_URL": "preview.vercel.app"}, "", "https://preview.vercel.app/"},
		{"DEV flag", map[string]string{"DEV": "TRUE", "HOST": "https://host.example.com"}, "", Fallback},
		{"DEV flag shadows VITE_DEV", map[string]string{"DEV": "false", "VITE_DEV": "true", "HOST": "https://host.example.com"}, "", "https://host.example.com/"},
		{"Vercel production", map[string]string{"VERCEL_ENV": "production", "VERCEL_PROJECT_PRODUCTION_URL": "cityquest.app", "VERCEL_URL": "preview.vercel.app"}, "", "https://cityquest.app/"},
		{"Vercel branch", map[string]string{"VERCEL_ENV": "preview", "VERCEL_BRANCH_URL": "branch.vercel.app", "VERCEL_URL": "preview.vercel.app"}, "", "https://branch.vercel.app/"},
		{"Vercel host keeps scheme", map[string]string{"VERCEL_URL": "HTTP://plain.example.com"}, "", "HTTP://plain.example.com/"},
		{"HOST before URL", map[string]string{"HOST": "https://host.example.com", "URL": "https://url.example.com"}, "", "https://host.example.com/"},
		{"URL fallback", map[string]string{"URL": "https://url.example.com/"}, "", "https://url.example.com/"},
		{"Empty HOST falls back", map[string]string{"HOST": "  "}, "", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(mapEnv(tt.env), tt.override); got != tt.expected {
				t.Errorf("Resolve() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResolveAlwaysEndsWithOneSlash(t *testing.T) {
	candidates := []string{"", "/", "//", "https://a.example.com", "https://a.example.com////", " https://b.example.com/path/ "}
	for _, candidate := range candidates {
		for _, key := range []string{"", "MCP_WIDGET_BASE_URL", "HOST", "VERCEL_URL"} {
			env := map[string]string{}
			if key != "" {
				env[key] = candidate
			}
			got := Resolve(mapEnv(env), "")
			if got == "" || !strings.HasSuffix(got, "/") || strings.HasSuffix(got, "//") {
				t.Errorf("Resolve with %s=%q returned %q", key, candidate, got)
			}
		}
	}
}

func TestResolveNilLookup(t *testing.T) {
	if got := Resolve(nil, ""); got != Fallback {
		t.Errorf("Expected fallback for nil lookup, got %q", got)
	}
}

func TestOrigin(t *testing.T) {
	tests := map[string]string{
		"https://cityquest.app/":          "https://cityquest.app",
		"http://localhost:3000/greeting/": "http://localhost:3000",
		"not a url":                       "http://localhost:3000",
	}
	for input, expected := range tests {
		if got := Origin(input); got != expected {
			t.Errorf("Origin(%q) = %q, want %q", input, got, expected)
		}
	}
}
