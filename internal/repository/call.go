package repository

import (
	"context"
	"time"

	"github.com/alfredjeanlab/troupe/internal/events"
	"github.com/alfredjeanlab/troupe/internal/idgen"
	"github.com/alfredjeanlab/troupe/internal/logging"
	"github.com/alfredjeanlab/troupe/internal/messaging"
	"github.com/alfredjeanlab/troupe/internal/model"
)

// CallOptions are the collaborators handed to a running actor. Each crosses
// the process boundary by value.
type CallOptions struct {
	// Logging describes the logger the actor logs through. The zero value
	// means logging.DefaultSpec.
	Logging logging.Spec
	// Messaging is merged with what the actor produced once it finished.
	Messaging *messaging.InProcess
	// Config selects the configuration message handed to the actor. The
	// schema must be registered in the child as well.
	Config      *model.Schema
	ToolTimeout time.Duration
	CommonFiles []string
	CommonTools []string
}

// ActorCallContext runs one actor in an isolated process.
type ActorCallContext struct {
	def  *ActorDefinition
	opts CallOptions
}

// Call returns a call context for the actor of d.
func (d *ActorDefinition) Call(opts CallOptions) *ActorCallContext {
	if opts.Logging.Level == "" && opts.Logging.Format == "" {
		opts.Logging = logging.DefaultSpec()
	}
	return &ActorCallContext{def: d, opts: opts}
}

// Run executes the actor with args and blocks until its process exited. A
// process that exits non-zero fails with a *RuntimeError. args cross to the
// child as JSON, so they must be encodable and arrive in decoded form (see
// actor.Context.Args).
func (c *ActorCallContext) Run(ctx context.Context, args ...any) error {
	d := c.def
	meta, err := d.Discover(ctx)
	if err != nil {
		return err
	}

	id := idgen.ExecutionID()
	params := runParams{
		ExecutionID: id,
		Actor:       meta.Name,
		Args:        args,
		Logging:     c.opts.Logging,
		ToolTimeout: c.opts.ToolTimeout,
		CommonFiles: c.opts.CommonFiles,
		CommonTools: c.opts.CommonTools,
	}
	var base messaging.State
	if c.opts.Messaging != nil {
		base = c.opts.Messaging.Snapshot()
		params.Messaging = &base
	}
	if c.opts.Config != nil {
		params.Config = c.opts.Config.Name()
	}

	log := d.log.With("actor", meta.Name, "execution_id", id)
	d.publish(ctx, events.TopicRunStarted, events.RunStarted{ExecutionID: id, Actor: meta.Name, Directory: d.directory})
	log.Info("run: starting actor")
	start := time.Now()

	out, code, err := d.spawn(ctx, request{Mode: modeRun, Definition: d.state(), Run: &params})
	var runErr *RuntimeError
	switch {
	case err != nil:
		runErr = &RuntimeError{Actor: meta.Name, ExitCode: code, Err: err}
	case code != 0:
		runErr = &RuntimeError{Actor: meta.Name, ExitCode: code}
	case out == nil:
		runErr = &RuntimeError{Actor: meta.Name}
	}
	if runErr != nil {
		log.Error("run: actor failed", "exit_code", runErr.ExitCode, "err", runErr)
		d.publish(ctx, events.TopicRunFailed, events.RunFailed{ExecutionID: id, Actor: meta.Name, ExitCode: runErr.ExitCode, Error: runErr.Error()})
		return runErr
	}

	finished := events.RunFinished{ExecutionID: id, Actor: meta.Name, Duration: time.Since(start)}
	if c.opts.Messaging != nil && out.Messaging != nil {
		c.opts.Messaging.Merge(ctx, base, *out.Messaging)
		finished.Produced = len(out.Messaging.Produced) - len(base.Produced)
		finished.Errors = len(out.Messaging.Errors) - len(base.Errors)
	}
	log.Info("run: actor finished", "duration", finished.Duration, "produced", finished.Produced, "errors", finished.Errors)
	d.publish(ctx, events.TopicRunFinished, finished)
	return nil
}

func (d *ActorDefinition) publish(ctx context.Context, topic string, event any) {
	if err := d.pub.Publish(ctx, topic, event); err != nil {
		d.log.Warn("publish event", "topic", topic, "err", err)
	}
}
