package automation

import (
	"strings"
	"time"
)

// Automation binds one trigger to ordered conditions and actions.
type Automation struct {
	// Identity (immutable once created)
	ID   string `json:"id"`
	Name string `json:"name"`

	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`

	// Trigger is the tagged trigger record, e.g. {"type":"schedule","cron":"0 * * * *"}.
	Trigger Spec `json:"trigger"`

	// Conditions are ANDed in order; Actions run sequentially in order.
	Conditions []Spec `json:"conditions"`
	Actions    []Spec `json:"actions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy. The registry hands out copies so
// callers cannot mutate cached definitions.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}
	cpy := *a
	cpy.Trigger = a.Trigger.Clone()
	cpy.Conditions = cloneSpecs(a.Conditions)
	cpy.Actions = cloneSpecs(a.Actions)
	return &cpy
}

func cloneSpecs(specs []Spec) []Spec {
	if specs == nil {
		return nil
	}
	out := make([]Spec, len(specs))
	for i, s := range specs {
		out[i] = s.Clone()
	}
	return out
}

// ExecutionContext is the uniform payload a trigger hands to a run.
type ExecutionContext struct {
	// Trigger is the kind that fired: schedule, webhook, file_change,
	// email, calendar, system, mqtt or manual.
	Trigger   string         `json:"trigger"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Vars flattens the context for templates, keyword and expression
// conditions and scripts: Data keys plus "trigger" and "timestamp".
func (ec ExecutionContext) Vars() map[string]any {
	vars := make(map[string]any, len(ec.Data)+2)
	for k, v := range ec.Data {
		vars[k] = v
	}
	vars["trigger"] = ec.Trigger
	vars["timestamp"] = ec.Timestamp.Format(time.RFC3339)
	return vars
}

// Lookup resolves a dotted path ("body.user.name") against Vars.
func (ec ExecutionContext) Lookup(path string) (any, bool) {
	return lookupPath(ec.Vars(), path)
}

func lookupPath(vars map[string]any, path string) (any, bool) {
	var cur any = vars
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Spec:
		return m, true
	}
	return nil, false
}

// Skip reasons reported in Result.Reason.
const (
	ReasonDisabled         = "disabled"
	ReasonRunning          = "running"
	ReasonConditionsNotMet = "conditions_not_met"
)

// Result is the outcome of Engine.Run.
type Result struct {
	RunID      string        `json:"run_id,omitempty"`
	Success    bool          `json:"success,omitempty"`
	Skipped    bool          `json:"skipped,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms,omitempty"`
	Results    []any         `json:"results,omitempty"`
}

func skipped(reason string) *Result {
	return &Result{Skipped: true, Reason: reason}
}

// RunStatus is the persisted outcome of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunSkipped   RunStatus = "skipped"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the history entry for a run that passed the disabled and
// running guards.
type RunRecord struct {
	ID           string    `json:"id"`
	AutomationID string    `json:"automation_id"`
	Trigger      string    `json:"trigger"`
	Status       RunStatus `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	ActionCount  int       `json:"action_count"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMS   int64     `json:"duration_ms"`
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case Spec:
		return Spec(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
