// Package executor provides the os/exec-backed ProcessExecutor implementation
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"

	"github.com/appforge/appforge/internal/interfaces"
)

// CommandExecutor runs external processes on the local host
type CommandExecutor struct {
	logger hclog.Logger
}

// NewCommandExecutor creates a process executor with subprocess-level logging
func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "appforge.exec",
			Level:  hclog.LevelFromString(os.Getenv("APPFORGE_LOG_LEVEL")),
			Output: os.Stderr,
		}),
	}
}

// Execute runs a single command and captures its output. The returned error is
// non-nil when the command could not start, the context was canceled, or the
// process exited non-zero without AllowNonZeroExit; in the last case the
// result is still returned so callers can inspect the exit code and output.
func (e *CommandExecutor) Execute(ctx context.Context, req interfaces.ExecRequest) (*interfaces.ExecResult, error) {
	cmd := exec.CommandContext(ctx, req.Command, req.Args...) // #nosec G204 - command comes from trusted configuration
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("executing command", "command", req.Command, "args", req.Args, "dir", req.Dir)

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("command canceled: %w", ctx.Err())
		case errors.As(err, &exitErr):
			result := &interfaces.ExecResult{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
			e.logger.Debug("command exited non-zero", "command", req.Command, "exit_code", result.ExitCode)
			if req.AllowNonZeroExit {
				return result, nil
			}
			return result, fmt.Errorf("command %s exited with code %d", req.Command, result.ExitCode)
		default:
			// Start failure; preserves exec.ErrNotFound for callers that
			// distinguish a missing binary.
			e.logger.Error("command failed to start", "command", req.Command, "error", err)
			return nil, fmt.Errorf("failed to start command %s: %w", req.Command, err)
		}
	}

	return &interfaces.ExecResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// Ensure CommandExecutor implements interfaces.ProcessExecutor
var _ interfaces.ProcessExecutor = (*CommandExecutor)(nil)
