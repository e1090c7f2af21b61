// Package baseurl resolves the externally reachable base URL of the running
// instance from an explicit override, environment variables or hosting
// provider metadata.
package baseurl

import (
	"net/url"
	"os"
	"strings"
)

// Fallback is returned when no signal yields a usable base URL
const Fallback = "http://localhost:3000/"

// Lookup reads one environment variable. It matches os.LookupEnv.
type Lookup func(key string) (string, bool)

var explicitKeys = []string{
	"MCP_WIDGET_BASE_URL",
	"PUBLIC_BASE_URL",
	"VITE_PUBLIC_BASE_URL",
	"VITE_APP_BASE_URL",
}

var modeKeys = []string{
	"NODE_ENV",
	"MODE",
	"VITE_NODE_ENV",
	"VITE_MODE",
	"APP_ENV",
	"ENVIRONMENT",
}

// ResolveFromEnvironment resolves the base URL from the process environment
func ResolveFromEnvironment(override string) string {
	return Resolve(os.LookupEnv, override)
}

// Resolve returns an absolute URL ending in exactly one slash. The first
// matching signal wins: override, explicit base URL variables, development
// mode, hosting provider hostnames, then HOST/URL.
func Resolve(env Lookup, override string) string {
	if env == nil {
		env = func(string) (string, bool) { return "", false }
	}

	if strings.TrimSpace(override) != "" {
		return Normalize(override)
	}

	if explicit := firstNonEmpty(env, explicitKeys...); explicit != "" {
		return Normalize(explicit)
	}

	if IsDevelopment(env) {
		return Fallback
	}

	var host string
	if get(env, "VERCEL_ENV") == "production" {
		host = get(env, "VERCEL_PROJECT_PRODUCTION_URL")
	} else {
		host = firstNonEmpty(env, "VERCEL_BRANCH_URL", "VERCEL_URL")
	}
	if host != "" {
		if !hasHTTPScheme(host) {
			host = "https://" + host
		}
		return Normalize(host)
	}

	if value, ok := env("HOST"); ok {
		return Normalize(value)
	}
	if value, ok := env("URL"); ok {
		return Normalize(value)
	}
	return Fallback
}

// IsDevelopment reports whether the environment declares development mode
func IsDevelopment(env Lookup) bool {
	if mode := firstNonEmpty(env, modeKeys...); strings.EqualFold(mode, "development") {
		return true
	}

	flag, ok := env("DEV")
	if !ok {
		flag, ok = env("VITE_DEV")
	}
	return ok && strings.EqualFold(strings.TrimSpace(flag), "true")
}

// Normalize trims the value, strips trailing slashes and appends exactly one
func Normalize(value string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return Fallback
	}
	return trimmed + "/"
}

// Origin returns scheme://host of a base URL, used for widget CSP domains
func Origin(base string) string {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimSuffix(Fallback, "/")
	}
	return parsed.Scheme + "://" + parsed.Host
}

func get(env Lookup, key string) string {
	value, _ := env(key)
	return value
}

func firstNonEmpty(env Lookup, keys ...string) string {
	for _, key := range keys {
		if value := get(env, key); value != "" {
			return value
		}
	}
	return ""
}

func hasHTTPScheme(host string) bool {
	lower := strings.ToLower(host)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
