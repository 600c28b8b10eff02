package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/alfredjeanlab/troupe/internal/actor"
	"github.com/alfredjeanlab/troupe/internal/logging"
	"github.com/alfredjeanlab/troupe/internal/messaging"
)

// ChildCommand is the hidden subcommand a host binary must route to
// ServeChild.
const ChildCommand = "__actor"

// Child process descriptors. The parent passes them through ExtraFiles, so
// they are 3 and 4 in the child.
const (
	resultFD  = 3
	requestFD = 4
)

// Launcher returns the unstarted command of an actor child process. The
// command must end up calling ServeChild.
type Launcher func(ctx context.Context) (*exec.Cmd, error)

// SelfLauncher re-executes the running binary with ChildCommand.
func SelfLauncher(ctx context.Context) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return exec.Command(exe, ChildCommand), nil
}

type mode string

const (
	modeInspect mode = "inspect"
	modeRun     mode = "run"
)

// request is sent to the child on its request descriptor.
type request struct {
	Mode       mode            `json:"mode"`
	Definition definitionState `json:"definition"`
	Run        *runParams      `json:"run,omitempty"`
}

type runParams struct {
	ExecutionID string           `json:"execution_id"`
	Actor       string           `json:"actor"`
	Args        []any            `json:"args,omitempty"`
	Logging     logging.Spec     `json:"logging"`
	Messaging   *messaging.State `json:"messaging,omitempty"`
	Config      string           `json:"config,omitempty"`
	ToolTimeout time.Duration    `json:"tool_timeout,omitempty"`
	CommonFiles []string         `json:"common_files,omitempty"`
	CommonTools []string         `json:"common_tools,omitempty"`
}

// outcome is the single value a successful child writes on its result
// descriptor.
type outcome struct {
	Actors    []actor.Metadata `json:"actors,omitempty"`
	Messaging *messaging.State `json:"messaging,omitempty"`
}

// spawn runs one child for req. It returns after the child has exited; the
// outcome is nil when the child reported none.
func (d *ActorDefinition) spawn(ctx context.Context, req request) (*outcome, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("actor process not started: %w", err)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("encode actor request: %w", err)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd, err := d.launcher(ctx)
	if err != nil {
		return nil, 0, err
	}
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, 0, fmt.Errorf("request pipe: %w", err)
	}
	resR, resW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return nil, 0, fmt.Errorf("result pipe: %w", err)
	}
	defer resR.Close()

	cmd.ExtraFiles = []*os.File{resW, reqR}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	interactive := false
	if cmd.Stdin == nil {
		if _, err := os.Stdin.Stat(); err == nil {
			cmd.Stdin = os.Stdin
			interactive = term.IsTerminal(int(os.Stdin.Fd()))
		}
	}
	// A child in its own process group cannot read the terminal, so only
	// detach it when stdin is not one.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: !interactive}

	err = cmd.Start()
	resW.Close()
	reqR.Close()
	if err != nil {
		reqW.Close()
		return nil, 0, fmt.Errorf("start actor process: %w", err)
	}

	go func() {
		defer reqW.Close()
		if _, err := reqW.Write(payload); err != nil {
			d.log.Debug("actor process: write request", "err", err)
		}
	}()

	results := make(chan *outcome, 1)
	go func() {
		var out outcome
		if err := json.NewDecoder(resR).Decode(&out); err != nil {
			results <- nil
			return
		}
		results <- &out
	}()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if interactive {
			cmd.Process.Kill()
		} else {
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, -1, fmt.Errorf("actor process cancelled: %w", ctx.Err())
	case err = <-done:
	}

	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, 0, fmt.Errorf("wait for actor process: %w", err)
		}
		code = exitErr.ExitCode()
	}
	return <-results, code, nil
}
