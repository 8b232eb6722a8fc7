package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"amora/internal/envelope"
	"amora/internal/topic"
	"amora/internal/transport"
	"amora/internal/transport/faketransport"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *faketransport.Adapter, chan transport.Message, topic.Namespace) {
	t.Helper()
	broker := faketransport.NewBroker()

	devAdapter := faketransport.New(broker)
	if err := devAdapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect device adapter: %v", err)
	}

	ns := topic.Namespace{Prefix: topic.DefaultPrefix, DeviceID: "test-device"}
	d := New(devAdapter, ns, 2, zerolog.Nop(), nil)

	listener := faketransport.New(broker)
	if err := listener.Connect(context.Background()); err != nil {
		t.Fatalf("connect listener: %v", err)
	}
	responses := make(chan transport.Message, 8)
	listener.OnMessage(func(m transport.Message) { responses <- m })
	if err := listener.Subscribe(ns.Responses(), 1); err != nil {
		t.Fatalf("subscribe responses: %v", err)
	}

	return d, devAdapter, responses, ns
}

func awaitResponse(t *testing.T, ch chan transport.Message) envelope.ResponseEnvelope {
	t.Helper()
	select {
	case msg := <-ch:
		resp, err := envelope.DecodeResponse(msg.Payload)
		if err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
	return envelope.ResponseEnvelope{}
}

func TestDispatcherHandleSucceedsExactlyOneResponse(t *testing.T) {
	d, _, responses, _ := newTestDispatcher(t)
	d.Register("ping", func(params json.RawMessage) (bool, string, interface{}) {
		return true, "pong", map[string]string{"reply": "pong"}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	cmdID := envelope.NewCommandID()
	payload, err := envelope.EncodeCommand(envelope.CommandEnvelope{Command: "ping", CommandID: cmdID, Timestamp: envelope.NowTimestamp()})
	if err != nil {
		t.Fatalf("encode command: %v", err)
	}

	d.Handle(payload)

	resp := awaitResponse(t, responses)
	if resp.CommandID != cmdID {
		t.Fatalf("commandId = %q, want %q", resp.CommandID, cmdID)
	}
	if !resp.Result {
		t.Fatalf("expected result=true, got message %q", resp.Message)
	}

	select {
	case extra := <-responses:
		t.Fatalf("unexpected second response: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcherUnknownCommandGetsFailureResponse(t *testing.T) {
	d, _, responses, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	cmdID := envelope.NewCommandID()
	payload, _ := envelope.EncodeCommand(envelope.CommandEnvelope{Command: "doesNotExist", CommandID: cmdID, Timestamp: envelope.NowTimestamp()})
	d.Handle(payload)

	resp := awaitResponse(t, responses)
	if resp.Result {
		t.Fatal("expected result=false for unknown command")
	}
}

func TestDispatcherHandlerPanicYieldsFailureResponse(t *testing.T) {
	d, _, responses, _ := newTestDispatcher(t)
	d.Register("explode", func(params json.RawMessage) (bool, string, interface{}) {
		panic("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	cmdID := envelope.NewCommandID()
	payload, _ := envelope.EncodeCommand(envelope.CommandEnvelope{Command: "explode", CommandID: cmdID, Timestamp: envelope.NowTimestamp()})
	d.Handle(payload)

	resp := awaitResponse(t, responses)
	if resp.Result {
		t.Fatal("expected result=false after handler panic")
	}
	if resp.CommandID != cmdID {
		t.Fatalf("commandId = %q, want %q", resp.CommandID, cmdID)
	}
}

func TestDispatcherMalformedCommandDropsWithFailureResponse(t *testing.T) {
	d, _, responses, _ := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	d.Handle([]byte(`{"not":"a command"}`))

	resp := awaitResponse(t, responses)
	if resp.Result {
		t.Fatal("expected result=false for malformed command")
	}
}
