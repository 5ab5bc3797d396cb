package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Git runs add, commit and push against a working tree. Only the steps
// present run, always in that order.
//
// Spec: {"type":"git","path":"/srv/notes","add":true,"commit":"sync ${timestamp}",
// "push":{"remote":"origin","branch":"main"}}
//
// add is true (everything) or a list of paths. commit is a message or
// {"message": ...}. push is true or {"remote","branch"}. A commit with
// nothing staged is reported, not failed.
type Git struct {
	Runner *Runner
}

// Execute runs the configured steps.
func (g *Git) Execute(ctx context.Context, spec automation.Spec, ec automation.ExecutionContext, h automation.Handle) (any, error) {
	vars := ec.Vars()
	dir := automation.Expand(spec.String("path"), vars)
	if dir == "" {
		return nil, fmt.Errorf("%w: path", ErrMissingField)
	}
	timeout := spec.Duration("timeout", 0)
	results := map[string]any{}

	if spec.Has("add") && !isFalse(spec["add"]) {
		args := []string{"add", "-A"}
		if !isTrue(spec["add"]) {
			args = []string{"add", "--"}
			for _, f := range spec.Strings("add") {
				args = append(args, automation.Expand(f, vars))
			}
		}
		res, err := g.Runner.Run(ctx, dir, timeout, "git", args...)
		if err != nil {
			return nil, fmt.Errorf("git add: %w", err)
		}
		results["add"] = res.Map()
	}

	if spec.Has("commit") {
		message := spec.String("commit")
		if m := spec.Map("commit"); m != nil {
			message = automation.Spec(m).String("message")
		}
		message = automation.Expand(message, vars)
		if message == "" {
			return nil, fmt.Errorf("%w: commit message", ErrMissingField)
		}

		res, err := g.Runner.Run(ctx, dir, timeout, "git", "commit", "-m", message)
		switch {
		case err != nil && nothingToCommit(res):
			results["commit"] = map[string]any{"skipped": true, "reason": "nothing to commit"}
		case err != nil:
			return nil, fmt.Errorf("git commit: %w", err)
		default:
			results["commit"] = res.Map()
		}
	}

	if spec.Has("push") && !isFalse(spec["push"]) {
		args := []string{"push"}
		if m := spec.Map("push"); m != nil {
			p := automation.Spec(m)
			if remote := p.String("remote"); remote != "" {
				args = append(args, remote)
				if branch := p.String("branch"); branch != "" {
					args = append(args, branch)
				}
			}
		}
		res, err := g.Runner.Run(ctx, dir, timeout, "git", args...)
		if err != nil {
			return nil, fmt.Errorf("git push: %w", err)
		}
		results["push"] = res.Map()
	}

	h.Logger().Debug("git action completed", "path", dir, "steps", len(results))
	return results, nil
}

func nothingToCommit(res CommandResult) bool {
	out := res.Stdout + res.Stderr
	return strings.Contains(out, "nothing to commit") || strings.Contains(out, "no changes added to commit")
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func isFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}
