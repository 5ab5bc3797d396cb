package action

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Shell runs a command through the shell.
//
// Spec: {"type":"shell","command":"make deploy REF=${body.ref}","cwd":"/srv/app","timeout":"2m"}
//
// The result is {stdout, stderr, exit_code}; a non-zero exit fails the run.
type Shell struct {
	Runner *Runner
}

// Execute runs the command.
func (s *Shell) Execute(ctx context.Context, spec automation.Spec, ec automation.ExecutionContext, h automation.Handle) (any, error) {
	vars := ec.Vars()
	command := automation.Expand(spec.String("command"), vars)
	if command == "" {
		return nil, fmt.Errorf("%w: command", ErrMissingField)
	}
	cwd := automation.Expand(spec.String("cwd"), vars)

	res, err := s.Runner.Sh(ctx, cwd, spec.Duration("timeout", 0), command)
	if err != nil {
		return nil, err
	}
	h.Logger().Debug("shell action completed", "command", command, "exit_code", res.ExitCode)
	return res.Map(), nil
}
