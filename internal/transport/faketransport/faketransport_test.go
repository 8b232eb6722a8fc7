package faketransport

import (
	"context"
	"testing"
	"time"

	"amora/internal/transport"
)

func TestRetainedMessageReplayedToNewSubscriber(t *testing.T) {
	broker := NewBroker()
	publisher := New(broker)
	_ = publisher.Connect(context.Background())
	if err := publisher.Publish("amora/devices/d1/state", []byte(`{"state":"playing"}`), 1, true); err != nil {
		t.Fatalf("publish: %v", err)
	}

	subscriber := New(broker)
	_ = subscriber.Connect(context.Background())
	received := make(chan transport.Message, 1)
	subscriber.OnMessage(func(m transport.Message) { received <- m })
	if err := subscriber.Subscribe("amora/devices/d1/state", 1); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Payload) != `{"state":"playing"}` {
			t.Fatalf("payload = %s, want retained value", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("retained value was not replayed on subscribe")
	}
}

func TestCloseUngracefullyDeliversLastWill(t *testing.T) {
	broker := NewBroker()
	device := NewWithLastWill(broker, "amora/devices/d1/connection", []byte(`{"status":"offline"}`), true)
	_ = device.Connect(context.Background())

	watcher := New(broker)
	_ = watcher.Connect(context.Background())
	received := make(chan transport.Message, 1)
	watcher.OnMessage(func(m transport.Message) { received <- m })
	if err := watcher.Subscribe("amora/devices/d1/connection", 1); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	device.CloseUngracefully()

	select {
	case msg := <-received:
		if string(msg.Payload) != `{"status":"offline"}` {
			t.Fatalf("payload = %s, want last-will payload", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("last-will was not delivered on ungraceful close")
	}

	if device.State() != transport.Disconnected {
		t.Fatalf("state = %v, want Disconnected", device.State())
	}
}

func TestPublishRejectedWhenNotConnected(t *testing.T) {
	broker := NewBroker()
	adapter := New(broker)
	if err := adapter.Publish("x", []byte("y"), 0, false); err == nil {
		t.Fatal("expected error publishing while not connected")
	}
}
