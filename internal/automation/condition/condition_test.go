package condition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

func ctxWith(data map[string]any) automation.ExecutionContext {
	return automation.ExecutionContext{
		Trigger:   "webhook",
		Timestamp: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), // Monday
		Data:      data,
	}
}

// ─── Keyword ────────────────────────────────────────────────────────────────

func TestKeyword(t *testing.T) {
	ec := ctxWith(map[string]any{
		"text": "Hello World",
		"body": map[string]any{"ref": "refs/heads/main"},
	})

	tests := []struct {
		name string
		spec automation.Spec
		want bool
	}{
		{"contains match", automation.Spec{"match": "contains", "value": "world"}, true},
		{"contains no match", automation.Spec{"match": "contains", "value": "foo"}, false},
		{"default mode is contains", automation.Spec{"value": "hello"}, true},
		{"case sensitive miss", automation.Spec{"match": "contains", "value": "world", "case_sensitive": true}, false},
		{"equals", automation.Spec{"match": "equals", "value": "hello world"}, true},
		{"starts_with", automation.Spec{"match": "starts_with", "value": "hello"}, true},
		{"ends_with", automation.Spec{"match": "ends_with", "value": "WORLD"}, true},
		{"regex", automation.Spec{"match": "regex", "value": `^hello\s+w`}, true},
		{"dotted field", automation.Spec{"match": "ends_with", "value": "/main", "field": "body.ref"}, true},
		{"missing field", automation.Spec{"match": "contains", "value": "x", "field": "nope"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Keyword{}.Evaluate(context.Background(), tt.spec, ec)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyword_Errors(t *testing.T) {
	ec := ctxWith(map[string]any{"text": "x"})

	if _, err := (Keyword{}).Evaluate(context.Background(), automation.Spec{"match": "fuzzy", "value": "x"}, ec); !errors.Is(err, ErrUnknownMatch) {
		t.Errorf("unknown mode error = %v, want ErrUnknownMatch", err)
	}
	if _, err := (Keyword{}).Evaluate(context.Background(), automation.Spec{"match": "regex", "value": "("}, ec); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("bad regex error = %v, want ErrInvalidPattern", err)
	}
}

// ─── Expression ─────────────────────────────────────────────────────────────

func TestExpression(t *testing.T) {
	cond := NewExpression()
	ec := ctxWith(map[string]any{
		"body":  map[string]any{"ref": "main", "commits": []any{"a", "b"}},
		"count": 3,
	})

	tests := []struct {
		expr string
		want bool
	}{
		{`trigger == "webhook"`, true},
		{`body.ref == "main" && count > 2`, true},
		{`len(body.commits) == 3`, false},
		{`missing == nil`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := cond.Evaluate(context.Background(), automation.Spec{"expression": tt.expr}, ec)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}

	if n := len(cond.programs); n != len(tests) {
		t.Errorf("cached programs = %d, want %d", n, len(tests))
	}
}

func TestExpression_Invalid(t *testing.T) {
	cond := NewExpression()
	ec := ctxWith(nil)

	for _, src := range []string{"", "trigger ==", `"not a bool"`} {
		if _, err := cond.Evaluate(context.Background(), automation.Spec{"expression": src}, ec); !errors.Is(err, ErrInvalidExpression) {
			t.Errorf("Evaluate(%q) error = %v, want ErrInvalidExpression", src, err)
		}
	}
}

// ─── Time Window ────────────────────────────────────────────────────────────

func TestTimeWindow(t *testing.T) {
	at := func(day, hour, minute int) automation.ExecutionContext {
		// 2026-03-02 is a Monday.
		return automation.ExecutionContext{Timestamp: time.Date(2026, 3, 2+day, hour, minute, 0, 0, time.UTC)}
	}

	tests := []struct {
		name string
		spec automation.Spec
		ec   automation.ExecutionContext
		want bool
	}{
		{"inside", automation.Spec{"start": "09:00", "end": "17:00"}, at(0, 9, 30), true},
		{"start inclusive", automation.Spec{"start": "09:00", "end": "17:00"}, at(0, 9, 0), true},
		{"end exclusive", automation.Spec{"start": "09:00", "end": "17:00"}, at(0, 17, 0), false},
		{"wrap late", automation.Spec{"start": "22:00", "end": "06:00"}, at(0, 23, 15), true},
		{"wrap early", automation.Spec{"start": "22:00", "end": "06:00"}, at(1, 5, 59), true},
		{"wrap outside", automation.Spec{"start": "22:00", "end": "06:00"}, at(0, 12, 0), false},
		{"day filter hit", automation.Spec{"start": "09:00", "end": "17:00", "days": []any{"mon"}}, at(0, 10, 0), true},
		{"day filter miss", automation.Spec{"start": "09:00", "end": "17:00", "days": []any{"tue", "wed"}}, at(0, 10, 0), false},
		{"wrap uses opening day", automation.Spec{"start": "22:00", "end": "06:00", "days": []any{"monday"}}, at(1, 2, 0), true},
		{"timezone", automation.Spec{"start": "09:00", "end": "10:00", "timezone": "America/New_York"}, at(0, 14, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TimeWindow{}.Evaluate(context.Background(), tt.spec, tt.ec)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeWindow_Invalid(t *testing.T) {
	ec := automation.ExecutionContext{Timestamp: time.Now()}
	specs := []automation.Spec{
		{"start": "9am", "end": "17:00"},
		{"start": "09:00"},
		{"start": "09:00", "end": "17:00", "days": []any{"someday"}},
	}
	for _, spec := range specs {
		if _, err := (TimeWindow{}).Evaluate(context.Background(), spec, ec); !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("Evaluate(%v) error = %v, want ErrInvalidWindow", spec, err)
		}
	}
}

// ─── Engine Integration ─────────────────────────────────────────────────────

func TestRegister_KeywordGatesRun(t *testing.T) {
	engine := automation.NewEngine(nil)
	defer engine.Close() //nolint:errcheck // test cleanup
	Register(engine.Types())
	engine.Types().RegisterTrigger("manual", automation.TriggerFunc(
		func(context.Context, *automation.Automation, automation.FireFunc) (automation.Binding, error) {
			return automation.BindingFunc(func() error { return nil }), nil
		}))
	engine.Types().RegisterAction("noop", automation.ActionFunc(
		func(context.Context, automation.Spec, automation.ExecutionContext, automation.Handle) (any, error) {
			return "ran", nil
		}))

	ctx := context.Background()
	a := &automation.Automation{
		ID:         "kw",
		Name:       "Keyword gate",
		Enabled:    true,
		Trigger:    automation.Spec{"type": "manual"},
		Conditions: []automation.Spec{{"type": "keyword", "match": "contains", "value": "world"}},
		Actions:    []automation.Spec{{"type": "noop"}},
	}
	if err := engine.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	res, err := engine.Run(ctx, "kw", automation.ExecutionContext{Trigger: "manual", Data: map[string]any{"text": "hello world"}})
	if err != nil || !res.Success {
		t.Errorf("matching Run() = %+v, %v; want success", res, err)
	}

	res, err = engine.Run(ctx, "kw", automation.ExecutionContext{Trigger: "manual", Data: map[string]any{"text": "foo"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Skipped || res.Reason != automation.ReasonConditionsNotMet {
		t.Errorf("non-matching Run() = %+v, want conditions_not_met", res)
	}
}
