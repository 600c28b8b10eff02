package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNoopPublisher(t *testing.T) {
	pub := &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicRunStarted, RunStarted{Actor: "a"}); err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestPublishersImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
}

func TestConnect_EmptyURL(t *testing.T) {
	pub, err := Connect("")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, ok := pub.(*NoopPublisher); !ok {
		t.Fatalf("Connect(\"\") = %T, want *NoopPublisher", pub)
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := Connect(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicActorDiscovered, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	event := ActorDiscovered{Directory: "actors/scan", Name: "scan", ClassName: "Scanner", Tags: []string{"FactsPhase"}}
	if err := pub.Publish(context.Background(), TopicActorDiscovered, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	pub.(*NATSPublisher).conn.Flush()

	select {
	case msg := <-ch:
		var got ActorDiscovered
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Name != "scan" || got.ClassName != "Scanner" {
			t.Errorf("got %+v, want name=scan class_name=Scanner", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestNATSPublisher_RunLifecycle(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe(TopicAll, ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	nc.Flush()

	for _, tc := range []struct {
		topic string
		event any
	}{
		{TopicRunStarted, RunStarted{ExecutionID: "e1", Actor: "scan"}},
		{TopicMessageProduced, MessageProduced{ID: "msg-1", Type: "Facts", Data: json.RawMessage(`{"a":1}`)}},
		{TopicErrorReported, ErrorReported{Actor: "scan", Severity: "error", Message: "boom"}},
		{TopicRunFinished, RunFinished{ExecutionID: "e1", Actor: "scan", Produced: 1}},
	} {
		if err := pub.Publish(context.Background(), tc.topic, tc.event); err != nil {
			t.Fatalf("Publish(%s): %v", tc.topic, err)
		}
	}
	pub.conn.Flush()

	var subjects []string
	for i := 0; i < 4; i++ {
		select {
		case msg := <-ch:
			subjects = append(subjects, msg.Subject)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	if subjects[0] != TopicRunStarted || subjects[3] != TopicRunFinished {
		t.Errorf("subjects = %v, want run.started first and run.finished last", subjects)
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, TopicRunFailed, RunFailed{Actor: "a"}); err == nil {
		t.Error("expected error publishing with a canceled context")
	}
}

func TestNATSPublisher_Close(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}

	if err := pub.Publish(context.Background(), TopicRunStarted, RunStarted{}); err == nil {
		t.Error("expected error publishing after close")
	}
}
