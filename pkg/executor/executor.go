// Package executor runs external commands such as ffmpeg and ffprobe.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs a command and returns its stdout.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
}

// CommandExecutor implements Executor with os/exec.
type CommandExecutor struct{}

// New returns a CommandExecutor.
func New() *CommandExecutor {
	return &CommandExecutor{}
}

// Execute runs name with args. A failing command's stderr is folded into the returned error.
func (e *CommandExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("command %q failed: %w: %s", name, err, msg)
		}
		return "", fmt.Errorf("command %q failed: %w", name, err)
	}
	return stdout.String(), nil
}

var _ Executor = (*CommandExecutor)(nil)
