package actor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultToolTimeout bounds a tool run when the context sets no timeout.
const DefaultToolTimeout = 10 * time.Minute

// ErrToolNotFound is returned by RunTool for unknown tools.
var ErrToolNotFound = errors.New("tool not found")

// ToolResult is the captured outcome of a tool run.
type ToolResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunTool runs the executable called name from the actor's tool
// directories. The tool inherits the process environment plus
// TROUPE_CURRENT_ACTOR and runs in the first actor file directory when there
// is one. A non-zero exit is returned as an error along with the result.
func (c *Context) RunTool(ctx context.Context, name string, args ...string) (ToolResult, error) {
	path := c.GetToolPath(name)
	if path == "" {
		return ToolResult{}, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}

	timeout := c.ToolTimeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(toolCtx, path, args...) //nolint:gosec // tools ship with the actor
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if len(c.Paths.ActorFiles) > 0 {
		if info, err := os.Stat(c.Paths.ActorFiles[0]); err == nil && info.IsDir() {
			cmd.Dir = c.Paths.ActorFiles[0]
		}
	}

	cmd.Env = append(os.Environ(), CurrentActorEnv+"="+c.reg.Name)

	start := time.Now()
	err := cmd.Run()
	res := ToolResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		err = fmt.Errorf("tool %s exited with code %d: %w", name, res.ExitCode, err)
	default:
		err = fmt.Errorf("running tool %s: %w", name, err)
	}
	c.Log.Debug("ran tool", "tool", name, "exit_code", res.ExitCode, "duration", time.Since(start))
	return res, err
}
