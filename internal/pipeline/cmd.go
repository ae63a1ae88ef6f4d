package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner is the interface for executing an external command line and
// capturing its output.
type Runner interface {

	// Run executes the named program with args, returning captured stdout.
	// On a nonzero exit the error includes the captured stderr.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// NewRunner creates a new subprocess runner, returning a pointer to the
// concrete implementation.
func NewRunner() Runner {
	return &runner{}
}

var _ Runner = (*runner)(nil)

// runner is the concrete implementation of the Runner interface.
type runner struct{}

// Run is the concrete implementation of the interface method which executes
// the named program and captures its output.
func (r *runner) Run(ctx context.Context, name string, args ...string) (string, error) {

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("command '%s' failed: %v: %s", name, err, stderr.String())
	}

	return stdout.String(), nil
}
