package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of a definitions file:
//
//	automations:
//	  - id: nightly-notes
//	    name: Commit notes nightly
//	    enabled: true
//	    trigger: {type: schedule, cron: "0 2 * * *"}
//	    actions:
//	      - {type: git, path: /srv/notes, add: true, commit: "nightly ${timestamp}"}
type seedFile struct {
	Automations []Automation `yaml:"automations"`
}

// LoadSeed reads automation definitions from a YAML file.
func LoadSeed(path string) ([]Automation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return f.Automations, nil
}

// Apply saves each definition through the engine. Every definition is
// attempted; failures are joined into the returned error.
func (e *Engine) Apply(ctx context.Context, defs []Automation) (int, error) {
	var errs []error
	applied := 0
	for i := range defs {
		a := defs[i]
		if err := e.Save(ctx, &a); err != nil {
			errs = append(errs, fmt.Errorf("automation %q: %w", a.ID, err))
			continue
		}
		applied++
	}
	return applied, errors.Join(errs...)
}
