package build

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// Executor runs one external command to completion. A non-nil error
// means the command could not be started or exited unsuccessfully.
type Executor interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecExecutor runs commands with os/exec. Output streams default to the
// parent's and the environment is inherited when Env is nil.
type ExecExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    []string
}

// Run implements Executor.
func (e ExecExecutor) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = e.Env
	cmd.Stdin = nil
	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}
