package messaging

import "context"

// State is the by-value form of an InProcess, handed to an actor child
// process and returned from it.
type State struct {
	Envelope Envelope  `json:"envelope"`
	Stored   bool      `json:"stored"`
	Data     []Message `json:"data,omitempty"`
	Produced []Message `json:"produced,omitempty"`
	Errors   []Message `json:"errors,omitempty"`
	Answers  Answers   `json:"answers,omitempty"`
}

// Snapshot captures the current contents.
func (m *InProcess) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Envelope: m.env,
		Stored:   m.stored,
		Data:     append([]Message(nil), m.data...),
		Produced: append([]Message(nil), m.produced...),
		Errors:   append([]Message(nil), m.errors...),
		Answers:  m.answers.clone(),
	}
}

// FromState rebuilds an InProcess from a snapshot. opts apply after the
// state, so a child can replace the publisher or output.
func FromState(s State, opts ...Option) *InProcess {
	base := []Option{WithEnvelope(s.Envelope), Stored(s.Stored), WithAnswers(s.Answers)}
	m := New(append(base, opts...)...)
	m.data = append(m.data, s.Data...)
	m.produced = append(m.produced, s.Produced...)
	m.errors = append(m.errors, s.Errors...)
	return m
}

// Merge adds the messages and errors a child produced beyond base, and
// publishes them.
func (m *InProcess) Merge(ctx context.Context, base, child State) {
	produced := newSince(base.Produced, child.Produced)
	errs := newSince(base.Errors, child.Errors)

	m.mu.Lock()
	m.produced = append(m.produced, produced...)
	m.errors = append(m.errors, errs...)
	m.mu.Unlock()

	for _, msg := range produced {
		m.publishMessage(ctx, msg)
	}
	for _, msg := range errs {
		severity, text := describeError(msg)
		m.publishError(ctx, msg, severity, text)
	}
}

func newSince(base, child []Message) []Message {
	seen := make(map[string]struct{}, len(base))
	for _, msg := range base {
		seen[msg.ID] = struct{}{}
	}
	var out []Message
	for _, msg := range child {
		if _, ok := seen[msg.ID]; !ok {
			out = append(out, msg)
		}
	}
	return out
}

func describeError(msg Message) (Severity, string) {
	inst, err := msg.Decode(ErrorModel)
	if err != nil {
		return SeverityError, ""
	}
	severity, _ := inst.Get("severity").Interface().(string)
	text, _ := inst.Get("message").Interface().(string)
	return Severity(severity), text
}
