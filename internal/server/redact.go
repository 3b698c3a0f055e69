package server

import "strings"

const (
	redactionMarker = "***REDACTED***"
	maxRedactDepth  = 20
)

// secretKeywords are substrings of mapping keys whose values are never
// rendered back to a client.
var secretKeywords = []string{"key", "token", "secret", "password", "credential", "sid"}

// Redact walks a structured config value and replaces any mapping value
// whose key looks sensitive with a fixed marker. Nesting is followed up
// to a fixed depth; anything deeper is returned as-is rather than
// recursed into, which bounds work on pathological inputs. The input is
// never mutated.
func Redact(value any) any {
	return redact(value, 0)
}

func redact(value any, depth int) any {
	if depth >= maxRedactDepth {
		return value
	}
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if isSecretKey(k) {
				out[k] = redactionMarker
				continue
			}
			out[k] = redact(item, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redact(item, depth+1)
		}
		return out
	default:
		return value
	}
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range secretKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RedactConfig is the map-preserving form of Redact for top-level agent
// settings.
func RedactConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return redact(cfg, 0).(map[string]any)
}
