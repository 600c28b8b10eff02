// Package messaging carries the messages actors produce and consume during
// one execution, together with reported errors and dialog answers.
package messaging

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alfredjeanlab/troupe/internal/idgen"
	"github.com/alfredjeanlab/troupe/internal/model"
)

const (
	// DefaultPhase is recorded on messages produced outside of a workflow.
	DefaultPhase = "NON-WORKFLOW-EXECUTION"
	// DefaultContext is recorded when no execution ID was assigned.
	DefaultContext = "TESTING-CONTEXT"
)

// Message is the envelope around one produced model instance.
type Message struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Actor    string  `json:"actor"`
	Topic    string  `json:"topic"`
	Stamp    string  `json:"stamp"`
	Phase    string  `json:"phase"`
	Context  string  `json:"context"`
	Hostname string  `json:"hostname"`
	Message  Payload `json:"message"`
}

// Payload is the canonical JSON encoding of the instance and its SHA-256.
type Payload struct {
	Data string `json:"data"`
	Hash string `json:"hash"`
}

// Envelope fills the attributes shared by all messages of an execution.
type Envelope struct {
	Phase    string
	Context  string
	Hostname string
}

var (
	hostnameOnce sync.Once
	hostname     string
)

func localHostname() string {
	hostnameOnce.Do(func() {
		hostname, _ = os.Hostname()
	})
	return hostname
}

// NewMessage wraps inst. Map keys are sorted by encoding/json, so equal
// instances always hash equally.
func NewMessage(env Envelope, actor string, inst *model.Instance) (Message, error) {
	data, err := inst.Dump()
	if err != nil {
		return Message{}, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s: %w", inst.Schema().Name(), err)
	}
	id, err := idgen.MessageID()
	if err != nil {
		return Message{}, err
	}
	sum := sha256.Sum256(raw)
	msg := Message{
		ID:       id,
		Type:     inst.Schema().Name(),
		Actor:    actor,
		Topic:    inst.Schema().Topic(),
		Stamp:    time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
		Phase:    orDefault(env.Phase, DefaultPhase),
		Context:  orDefault(env.Context, DefaultContext),
		Hostname: orDefault(env.Hostname, localHostname()),
		Message:  Payload{Data: string(raw), Hash: hex.EncodeToString(sum[:])},
	}
	return msg, nil
}

// Decode rebuilds the instance carried by m using schema.
func (m Message) Decode(schema *model.Schema) (*model.Instance, error) {
	if schema.Name() != m.Type {
		return nil, fmt.Errorf("message %s is of type %s, not %s", m.ID, m.Type, schema.Name())
	}
	return schema.Decode([]byte(m.Message.Data))
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
