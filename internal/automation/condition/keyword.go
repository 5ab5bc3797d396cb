package condition

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Match modes.
const (
	MatchContains   = "contains"
	MatchEquals     = "equals"
	MatchStartsWith = "starts_with"
	MatchEndsWith   = "ends_with"
	MatchRegex      = "regex"
)

// Keyword compares one field of the execution context against a value.
//
// Spec: {"type":"keyword","match":"contains","value":"deploy","field":"body.message",
// "case_sensitive":false}
//
// field defaults to "text" and may be a dotted path. A missing field reads
// as the empty string.
type Keyword struct{}

// Evaluate applies the match mode.
func (Keyword) Evaluate(_ context.Context, spec automation.Spec, ec automation.ExecutionContext) (bool, error) {
	field := spec.StringOr("field", "text")
	raw, _ := ec.Lookup(field)
	text := cast.ToString(raw)
	value := spec.String("value")
	caseSensitive := spec.Bool("case_sensitive", false)
	mode := spec.StringOr("match", MatchContains)

	if mode == MatchRegex {
		pattern := value
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
		}
		return re.MatchString(text), nil
	}

	if !caseSensitive {
		text = strings.ToLower(text)
		value = strings.ToLower(value)
	}

	switch mode {
	case MatchContains:
		return strings.Contains(text, value), nil
	case MatchEquals:
		return text == value, nil
	case MatchStartsWith:
		return strings.HasPrefix(text, value), nil
	case MatchEndsWith:
		return strings.HasSuffix(text, value), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownMatch, mode)
}
