package automation

import (
	"time"

	"github.com/spf13/cast"
)

// Spec is a tagged record: a JSON object with a "type" field plus
// kind-specific fields. Triggers, conditions and actions are all Specs.
type Spec map[string]any

// Type returns the kind tag.
func (s Spec) Type() string {
	return cast.ToString(s["type"])
}

// Has reports whether key is present and non-nil.
func (s Spec) Has(key string) bool {
	v, ok := s[key]
	return ok && v != nil
}

// String returns key as a string, or "" when absent.
func (s Spec) String(key string) string {
	return cast.ToString(s[key])
}

// StringOr returns key as a string, or def when absent or empty.
func (s Spec) StringOr(key, def string) string {
	if v := s.String(key); v != "" {
		return v
	}
	return def
}

// Int returns key as an int, or def when absent or not numeric.
func (s Spec) Int(key string, def int) int {
	if !s.Has(key) {
		return def
	}
	v, err := cast.ToIntE(s[key])
	if err != nil {
		return def
	}
	return v
}

// Float returns key as a float64 and whether it was present and numeric.
func (s Spec) Float(key string) (float64, bool) {
	if !s.Has(key) {
		return 0, false
	}
	v, err := cast.ToFloat64E(s[key])
	if err != nil {
		return 0, false
	}
	return v, true
}

// Bool returns key as a bool, or def when absent.
func (s Spec) Bool(key string, def bool) bool {
	if !s.Has(key) {
		return def
	}
	v, err := cast.ToBoolE(s[key])
	if err != nil {
		return def
	}
	return v
}

// Strings returns key as a string slice. A single string becomes a
// one-element slice.
func (s Spec) Strings(key string) []string {
	if !s.Has(key) {
		return nil
	}
	if str, ok := s[key].(string); ok {
		return []string{str}
	}
	return cast.ToStringSlice(s[key])
}

// Duration returns key as a duration. Strings use time.ParseDuration
// syntax ("30s", "5m"); bare numbers are milliseconds.
func (s Spec) Duration(key string, def time.Duration) time.Duration {
	if !s.Has(key) {
		return def
	}
	switch v := s[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return def
		}
		return d
	case time.Duration:
		return v
	}
	ms, err := cast.ToFloat64E(s[key])
	if err != nil {
		return def
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Map returns key as a nested map, or nil.
func (s Spec) Map(key string) map[string]any {
	m, ok := s[key].(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// Clone returns a deep copy.
func (s Spec) Clone() Spec {
	if s == nil {
		return nil
	}
	return Spec(deepCopyMap(s))
}
