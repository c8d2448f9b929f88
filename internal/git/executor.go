package git

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/testresultlog/gitarchive/internal/errors"
)

// CommandExecutor defines an interface for executing commands
type CommandExecutor interface {
	// Execute runs a command and returns an error if it exited non-zero
	Execute(ctx context.Context, cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command and returns its captured stdout
	ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(ctx context.Context, cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.NewGitError(gitOperation(cmd.Args), commandArgs(cmd.Args), err,
			strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput
func (e *ExecExecutor) ExecuteWithOutput(ctx context.Context, cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.NewGitError(gitOperation(cmd.Args), commandArgs(cmd.Args), err,
			strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// gitOperation extracts the subcommand name from a git argv, skipping the
// binary itself and any global flags with their values.
func gitOperation(args []string) string {
	if len(args) < 2 {
		return ""
	}
	skipNext := false
	for _, a := range args[1:] {
		if skipNext {
			skipNext = false
			continue
		}
		switch {
		case a == "-C" || a == "-c":
			skipNext = true
		case strings.HasPrefix(a, "-"):
			// global flag, e.g. --git-dir=...
		default:
			return a
		}
	}
	return ""
}

// commandArgs returns the argv without the leading binary name.
func commandArgs(args []string) []string {
	if len(args) < 2 {
		return nil
	}
	return args[1:]
}
