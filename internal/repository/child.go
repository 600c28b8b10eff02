package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alfredjeanlab/troupe/internal/actor"
	"github.com/alfredjeanlab/troupe/internal/logging"
	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/model"
)

// ServeChild is the body of an actor child process. It reads one request,
// inspects or runs the actor it names and writes one outcome. The return
// value is the process exit code; failures write no outcome and explain
// themselves on stderr.
func ServeChild() int {
	syscall.CloseOnExec(resultFD)
	syscall.CloseOnExec(requestFD)
	reqF := os.NewFile(requestFD, "troupe-request")
	resF := os.NewFile(resultFD, "troupe-result")
	if reqF == nil || resF == nil {
		fmt.Fprintln(os.Stderr, "troupe: not started as an actor process")
		return 2
	}
	defer resF.Close()

	var req request
	dec := json.NewDecoder(reqF)
	dec.UseNumber()
	err := dec.Decode(&req)
	reqF.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "troupe: read request: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var out *outcome
	switch req.Mode {
	case modeInspect:
		out, err = inspect(req.Definition)
	case modeRun:
		if req.Run == nil {
			err = errors.New("run request without parameters")
			break
		}
		out, err = runActor(ctx, req.Definition, *req.Run)
	default:
		err = fmt.Errorf("unknown request mode %q", req.Mode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "troupe: %v\n", err)
		return 1
	}
	if err := json.NewEncoder(resF).Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "troupe: write outcome: %v\n", err)
		return 1
	}
	return 0
}

func inspect(state definitionState) (*outcome, error) {
	def := definitionFromState(state, WithLogger(logging.New(os.Stderr, logging.DefaultSpec())))
	regs, err := def.Load()
	if err != nil {
		return nil, err
	}
	out := &outcome{}
	for _, r := range regs {
		meta, err := actor.MetadataOf(r)
		if err != nil {
			return nil, err
		}
		out.Actors = append(out.Actors, meta)
	}
	return out, nil
}

func runActor(ctx context.Context, state definitionState, p runParams) (*outcome, error) {
	log := logging.New(os.Stderr, p.Logging).With("execution_id", p.ExecutionID)
	def := definitionFromState(state, WithLogger(log))

	var m *messaging.InProcess
	if p.Messaging != nil {
		m = messaging.FromState(*p.Messaging, messaging.WithLogger(log), messaging.WithOutput(os.Stdout))
	}
	var config *model.Schema
	if p.Config != "" {
		s, err := model.Resolve(p.Config)
		if err != nil {
			return nil, fmt.Errorf("configuration model: %w", err)
		}
		config = s
	}

	full := def.FullPath()
	err := def.WithInjectedContext(SharedNamespace, func(inj *Injection) error {
		r, err := findRegistration(def.matchingRegistrations(), p.Actor)
		if err != nil {
			return err
		}
		if r.New == nil {
			return fmt.Errorf("actor %s: New: %w", r.Name, actor.ErrMissingAttribute)
		}
		c, err := actor.NewContext(r, m, log, config)
		if err != nil {
			return err
		}
		c.Args = p.Args
		c.Libraries = inj.Libraries()
		c.Paths = actor.Paths{
			ActorFiles:  absolute(full, def.Files()),
			CommonFiles: p.CommonFiles,
			ActorTools:  absolute(full, def.Tools()),
			CommonTools: p.CommonTools,
		}
		if p.ToolTimeout > 0 {
			c.ToolTimeout = p.ToolTimeout
		}
		return actor.Run(ctx, r.New(), c)
	})
	if err != nil {
		return nil, err
	}
	out := &outcome{}
	if m != nil {
		s := m.Snapshot()
		out.Messaging = &s
	}
	return out, nil
}

func findRegistration(regs []actor.Registration, name string) (actor.Registration, error) {
	for _, r := range regs {
		if r.Name == name || r.ClassName == name {
			return r, nil
		}
	}
	return actor.Registration{}, fmt.Errorf("actor %s is not registered in this directory", name)
}
