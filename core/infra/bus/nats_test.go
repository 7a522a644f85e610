package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestInitJetStreamEnabled(t *testing.T) {
	t.Setenv(envUseJetStream, "")
	if initJetStreamEnabled() {
		t.Fatalf("expected jetstream disabled by default")
	}
	for _, val := range []string{"1", "true", "yes", "y", "on"} {
		t.Setenv(envUseJetStream, val)
		if !initJetStreamEnabled() {
			t.Fatalf("expected jetstream enabled for %s", val)
		}
	}
	t.Setenv(envUseJetStream, "no")
	if initJetStreamEnabled() {
		t.Fatalf("expected jetstream disabled for no")
	}
}

func TestIsDurableSubject(t *testing.T) {
	cases := map[string]bool{
		SubjectScored:      true,
		SubjectScore:       false,
		"oracle.v1.other":  false,
		"sys.ping":         false,
	}
	for subject, expect := range cases {
		if got := isDurableSubject(subject); got != expect {
			t.Fatalf("subject %s expected durable=%v got=%v", subject, expect, got)
		}
	}
}

func TestComputeMsgID(t *testing.T) {
	if got := computeMsgID(SubjectScored, "req-1"); got != "oracle.v1.scored:req-1" {
		t.Fatalf("unexpected msg id: %s", got)
	}
	if computeMsgID(SubjectScored, "  ") != "" {
		t.Fatalf("expected empty msg id for blank id")
	}
}

func TestRequestCallbackReplies(t *testing.T) {
	var gotSubject string
	var gotData []byte
	respond := func(subject string, data []byte) error {
		gotSubject = subject
		gotData = data
		return nil
	}
	handler := func(ctx context.Context, data []byte) []byte {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("expected handler deadline")
		}
		return append([]byte("echo:"), data...)
	}
	cb := requestCallback(handler, time.Second, respond)
	cb(&nats.Msg{Subject: SubjectScore, Reply: "_INBOX.abc", Data: []byte("ping")})
	if gotSubject != "_INBOX.abc" || string(gotData) != "echo:ping" {
		t.Fatalf("unexpected reply %s %q", gotSubject, gotData)
	}
}

func TestRequestCallbackWithoutReply(t *testing.T) {
	called := false
	cb := requestCallback(func(context.Context, []byte) []byte {
		called = true
		return nil
	}, time.Second, func(string, []byte) error { return nil })
	cb(&nats.Msg{Subject: SubjectScore, Data: []byte("x")})
	if called {
		t.Fatalf("handler should not run without reply subject")
	}
}

func TestNatsBusPublishErrors(t *testing.T) {
	var nilBus *NatsBus
	if err := nilBus.PublishJSON(SubjectScored, "", map[string]int{}); !errors.Is(err, errNilBus) {
		t.Fatalf("expected nil bus error, got %v", err)
	}
	bus := &NatsBus{nc: &nats.Conn{}}
	if err := bus.PublishJSON("", "", map[string]int{}); !errors.Is(err, errEmptyTopic) {
		t.Fatalf("expected empty topic error, got %v", err)
	}
	if err := bus.PublishJSON(SubjectScored, "", func() {}); err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestNatsBusSubscribeErrors(t *testing.T) {
	var nilBus *NatsBus
	if err := nilBus.Subscribe(SubjectScored, "", func([]byte) error { return nil }); !errors.Is(err, errNilBus) {
		t.Fatalf("expected nil bus error, got %v", err)
	}
	bus := &NatsBus{nc: &nats.Conn{}}
	if err := bus.Subscribe("", "", func([]byte) error { return nil }); !errors.Is(err, errEmptyTopic) {
		t.Fatalf("expected empty topic error, got %v", err)
	}
	if err := bus.Subscribe(SubjectScored, "", nil); !errors.Is(err, errNilHandler) {
		t.Fatalf("expected nil handler error, got %v", err)
	}
	if err := bus.ServeRequests(SubjectScore, QueueOracle, nil); !errors.Is(err, errNilHandler) {
		t.Fatalf("expected nil handler error, got %v", err)
	}
	if _, err := nilBus.Request(context.Background(), SubjectScore, nil); !errors.Is(err, errNilBus) {
		t.Fatalf("expected nil bus error, got %v", err)
	}
}

func TestNatsBusStatusDefaults(t *testing.T) {
	var nilBus *NatsBus
	if nilBus.IsConnected() {
		t.Fatalf("expected disconnected nil bus")
	}
	if status := nilBus.Status(); status != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN status, got %s", status)
	}
	if url := nilBus.ConnectedURL(); url != "" {
		t.Fatalf("expected empty url, got %s", url)
	}
}
