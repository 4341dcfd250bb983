package logger

import "strings"

// RedactedValue replaces any value whose key is considered sensitive.
const RedactedValue = "[REDACTED]"

// DefaultSensitiveKeys is the baseline set of key names that must never reach
// a log sink with their value intact. New secret-bearing fields get added
// here, in one place.
var DefaultSensitiveKeys = []string{
	"api_key",
	"apikey",
	"token",
	"github_token",
	"access_token",
	"id_token",
	"authorization",
	"client_secret",
	"password",
	"secret",
	"bearer",
}

// Redactor scrubs key/value metadata before it is logged. The zero value is
// not usable; construct with NewRedactor.
type Redactor struct {
	keys map[string]struct{}
}

// NewRedactor builds a Redactor over the given sensitive key names. With no
// arguments it uses DefaultSensitiveKeys.
func NewRedactor(keys ...string) *Redactor {
	if len(keys) == 0 {
		keys = DefaultSensitiveKeys
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[normalizeKey(k)] = struct{}{}
	}
	return &Redactor{keys: set}
}

// IsSensitive reports whether a key's value must be scrubbed. Matching is
// case-insensitive and treats '-' and '_' as equivalent.
func (r *Redactor) IsSensitive(key string) bool {
	_, ok := r.keys[normalizeKey(key)]
	return ok
}

// Redact returns a scrubbed copy of the map. The input is never mutated.
func (r *Redactor) Redact(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if r.IsSensitive(k) {
			out[k] = RedactedValue
			continue
		}
		out[k] = v
	}
	return out
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}
