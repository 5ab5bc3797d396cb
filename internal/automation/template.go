package automation

import (
	"encoding/json"
	"regexp"

	"github.com/spf13/cast"
)

var placeholder = regexp.MustCompile(`\$\{\s*([A-Za-z0-9_.\-]+)\s*\}`)

// Expand replaces ${name} placeholders with values from vars. Dotted names
// walk nested maps. Missing values expand to "". Maps and slices are
// rendered as JSON.
//
//	automation.Expand("git commit -m '${message}'", ec.Vars())
func Expand(s string, vars map[string]any) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := lookupPath(vars, name)
		if !ok || v == nil {
			return ""
		}
		return stringify(v)
	})
}

func stringify(v any) string {
	switch v.(type) {
	case map[string]any, Spec, []any, []string:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return cast.ToString(v)
}
