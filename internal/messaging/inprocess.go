package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/troupe/internal/events"
	"github.com/alfredjeanlab/troupe/internal/model"
)

// InProcess keeps messages in memory for one execution. When stored, every
// produced message and error is also published on the event bus.
type InProcess struct {
	mu       sync.Mutex
	env      Envelope
	stored   bool
	pub      events.Publisher
	out      io.Writer
	log      *slog.Logger
	data     []Message
	produced []Message
	errors   []Message
	answers  Answers
}

// Option configures an InProcess.
type Option func(*InProcess)

// WithEnvelope sets the phase, context and hostname recorded on messages.
func WithEnvelope(env Envelope) Option {
	return func(m *InProcess) { m.env = env }
}

// WithPublisher publishes stored messages on pub.
func WithPublisher(pub events.Publisher) Option {
	return func(m *InProcess) { m.pub = pub }
}

// WithOutput sets where ShowMessage writes; os.Stdout by default.
func WithOutput(w io.Writer) Option {
	return func(m *InProcess) { m.out = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *InProcess) { m.log = l }
}

// WithAnswers preloads dialog answers.
func WithAnswers(a Answers) Option {
	return func(m *InProcess) { m.answers = a.clone() }
}

// Stored controls whether produced messages are published.
func Stored(stored bool) Option {
	return func(m *InProcess) { m.stored = stored }
}

// New returns an empty, stored InProcess messaging.
func New(opts ...Option) *InProcess {
	m := &InProcess{
		stored:  true,
		pub:     &events.NoopPublisher{},
		out:     os.Stdout,
		log:     slog.Default(),
		answers: Answers{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Stored reports whether produced messages are published.
func (m *InProcess) Stored() bool { return m.stored }

// Envelope returns the attributes recorded on messages.
func (m *InProcess) Envelope() Envelope { return m.env }

// Feed makes inst available to consumers without publishing it.
func (m *InProcess) Feed(actor string, inst *model.Instance) (Message, error) {
	msg, err := NewMessage(m.env, actor, inst)
	if err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	m.data = append(m.data, msg)
	m.mu.Unlock()
	return msg, nil
}

// Produce records inst as a new message of actor.
func (m *InProcess) Produce(ctx context.Context, actor string, inst *model.Instance) (Message, error) {
	msg, err := NewMessage(m.env, actor, inst)
	if err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	m.produced = append(m.produced, msg)
	m.mu.Unlock()
	m.publishMessage(ctx, msg)
	return msg, nil
}

// ReportError records an error of actor. Unknown severities fall back to
// SeverityError. details, when non-nil, are stored JSON encoded.
func (m *InProcess) ReportError(ctx context.Context, actor, message string, severity Severity, details map[string]any) (Message, error) {
	if !severity.Valid() {
		m.log.Warn("messaging: unknown severity, falling back to error", "severity", severity)
		severity = SeverityError
	}
	var encoded any
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return Message{}, fmt.Errorf("encoding error details: %w", err)
		}
		encoded = string(raw)
	}
	inst, err := ErrorModel.New(map[string]any{
		"message":  message,
		"actor":    actor,
		"severity": string(severity),
		"details":  encoded,
		"time":     time.Now().UTC(),
	})
	if err != nil {
		return Message{}, err
	}
	msg, err := NewMessage(m.env, actor, inst)
	if err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
	m.publishError(ctx, msg, severity, message)
	return msg, nil
}

// Consume returns the fed and produced messages whose type is one of
// schemas, decoded. Without schemas every message is returned, decoded with
// the registered schema of its type.
func (m *InProcess) Consume(schemas ...*model.Schema) ([]*model.Instance, error) {
	lookup := make(map[string]*model.Schema, len(schemas))
	for _, s := range schemas {
		if s == ErrorModel {
			return nil, ErrCannotConsumeErrors
		}
		lookup[s.Name()] = s
	}

	m.mu.Lock()
	all := make([]Message, 0, len(m.data)+len(m.produced))
	all = append(all, m.data...)
	all = append(all, m.produced...)
	m.mu.Unlock()

	var out []*model.Instance
	for _, msg := range all {
		s, ok := lookup[msg.Type]
		if len(schemas) == 0 {
			s, ok = model.Lookup(msg.Type)
		}
		if !ok {
			continue
		}
		inst, err := msg.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("consuming message %s: %w", msg.ID, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

// ShowMessage displays text to the user.
func (m *InProcess) ShowMessage(text string) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := io.WriteString(m.out, text); err != nil {
		m.log.Warn("messaging: show message", "err", err)
	}
}

// RequestAnswers returns the answers to d: stored answers for its scope,
// then component defaults. Questions left unanswered are shown to the user
// and omitted from the result.
func (m *InProcess) RequestAnswers(d Dialog) map[string]any {
	m.mu.Lock()
	answers, missing := m.answers.resolve(d)
	m.mu.Unlock()
	if len(missing) > 0 {
		title := d.Title
		if title == "" {
			title = d.Scope
		}
		m.ShowMessage(fmt.Sprintf("%s: no answer recorded for %s", title, strings.Join(missing, ", ")))
	}
	return answers
}

// Messages returns the messages produced so far.
func (m *InProcess) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.produced...)
}

// Errors returns the errors reported so far.
func (m *InProcess) Errors() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.errors...)
}

func (m *InProcess) publishMessage(ctx context.Context, msg Message) {
	if !m.stored {
		return
	}
	event := events.MessageProduced{
		ID:      msg.ID,
		Type:    msg.Type,
		Actor:   msg.Actor,
		Topic:   msg.Topic,
		Context: msg.Context,
		Data:    json.RawMessage(msg.Message.Data),
	}
	if err := m.pub.Publish(ctx, events.TopicMessageProduced, event); err != nil {
		m.log.Warn("messaging: publish message", "type", msg.Type, "err", err)
	}
}

func (m *InProcess) publishError(ctx context.Context, msg Message, severity Severity, text string) {
	if !m.stored {
		return
	}
	event := events.ErrorReported{
		Actor:    msg.Actor,
		Severity: string(severity),
		Message:  text,
		Context:  msg.Context,
	}
	if err := m.pub.Publish(ctx, events.TopicErrorReported, event); err != nil {
		m.log.Warn("messaging: publish error", "actor", msg.Actor, "err", err)
	}
}
