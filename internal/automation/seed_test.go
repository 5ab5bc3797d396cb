package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testSeed = `
automations:
  - id: greet
    name: Greet
    enabled: true
    trigger: {type: fake}
    conditions:
      - {type: flag, ok: true}
    actions:
      - {type: echo, text: "hi ${name}"}
  - id: broken
    name: Broken
    enabled: true
    trigger: {type: nope}
`

func TestLoadSeedAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "automations.yaml")
	if err := os.WriteFile(path, []byte(testSeed), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	defs, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("LoadSeed() len = %d, want 2", len(defs))
	}
	if defs[0].Trigger.Type() != "fake" || defs[0].Actions[0].String("text") != "hi ${name}" {
		t.Errorf("first definition = %+v", defs[0])
	}

	e, _, _ := newTestEngine(t)
	applied, err := e.Apply(context.Background(), defs)
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
	if !errors.Is(err, ErrUnknownTrigger) {
		t.Errorf("Apply() error = %v, want ErrUnknownTrigger", err)
	}
	if !e.IsBound("greet") {
		t.Error("greet not bound")
	}
	if broken, err := e.Get("broken"); err != nil || broken.Enabled {
		t.Errorf("broken = %+v, %v; want stored disabled", broken, err)
	}

	res, err := e.Run(context.Background(), "greet", ExecutionContext{Trigger: "manual", Data: map[string]any{"name": "seed"}})
	if err != nil || res.Results[0] != "hi seed" {
		t.Errorf("Run() = %+v, %v", res, err)
	}
}

func TestLoadSeed_Errors(t *testing.T) {
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadSeed(missing) expected error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("automations: [unclosed"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadSeed(path); err == nil {
		t.Error("LoadSeed(bad) expected error")
	}
}
