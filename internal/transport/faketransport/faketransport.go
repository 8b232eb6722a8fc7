// Package faketransport is an in-memory transport.Transport used by tests.
// Two fakes wired to the same *Broker behave like two sessions talking
// through one real broker, including retained-message replay on subscribe.
package faketransport

import (
	"context"
	"sync"

	"amora/internal/errs"
	"amora/internal/transport"
)

// Broker is the shared in-memory bus. Construct it with NewBroker; the zero
// value has no maps and is not usable.
type Broker struct {
	mu        sync.Mutex
	retained  map[string][]byte
	listeners map[string][]*Adapter
}

func NewBroker() *Broker {
	return &Broker{
		retained:  make(map[string][]byte),
		listeners: make(map[string][]*Adapter),
	}
}

// Adapter is one client's view of a Broker.
type Adapter struct {
	broker *Broker

	mu            sync.Mutex
	connected     bool
	subs          map[string]bool
	msgHandler    transport.MessageHandler
	stateHandlers []transport.StateHandler

	lastWillTopic   string
	lastWillPayload []byte
	lastWillRetain  bool
}

func New(broker *Broker) *Adapter {
	return &Adapter{broker: broker, subs: make(map[string]bool)}
}

// NewWithLastWill configures a last-will published on ungraceful Close, for
// tests that exercise last-will delivery explicitly via CloseUngracefully.
func NewWithLastWill(broker *Broker, topic string, payload []byte, retain bool) *Adapter {
	a := New(broker)
	a.lastWillTopic = topic
	a.lastWillPayload = payload
	a.lastWillRetain = retain
	return a
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	a.notifyState(transport.Connected)
	return nil
}

func (a *Adapter) Disconnect() {
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()
	a.notifyState(transport.Disconnected)
}

// CloseUngracefully simulates the process dying without calling Disconnect:
// the broker itself delivers the configured last-will, the way a real MQTT
// broker would on behalf of a dead client.
func (a *Adapter) CloseUngracefully() {
	a.mu.Lock()
	a.connected = false
	topic, payload, retain := a.lastWillTopic, a.lastWillPayload, a.lastWillRetain
	a.mu.Unlock()

	if topic != "" {
		a.broker.publish(topic, payload, retain)
	}
	a.notifyState(transport.Disconnected)
}

func (a *Adapter) notifyState(s transport.ConnectionState) {
	a.mu.Lock()
	handlers := append([]transport.StateHandler(nil), a.stateHandlers...)
	a.mu.Unlock()
	for _, h := range handlers {
		h(s)
	}
}

func (a *Adapter) State() transport.ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return transport.Connected
	}
	return transport.Disconnected
}

func (a *Adapter) OnMessage(handler transport.MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgHandler = handler
}

func (a *Adapter) OnConnectionState(handler transport.StateHandler) {
	a.mu.Lock()
	a.stateHandlers = append(a.stateHandlers, handler)
	a.mu.Unlock()
}

func (a *Adapter) Subscribe(topic string, qos int) error {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return errs.ErrNotConnected
	}
	a.subs[topic] = true
	handler := a.msgHandler
	a.mu.Unlock()

	a.broker.addListener(topic, a)

	if handler != nil {
		if retained, ok := a.broker.retainedValue(topic); ok {
			handler(transport.Message{Topic: topic, Payload: retained})
		}
	}
	return nil
}

func (a *Adapter) Unsubscribe(topic string) error {
	a.mu.Lock()
	delete(a.subs, topic)
	a.mu.Unlock()
	a.broker.removeListener(topic, a)
	return nil
}

func (a *Adapter) Publish(topic string, payload []byte, qos int, retain bool) error {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return errs.ErrNotConnected
	}
	a.broker.publish(topic, payload, retain)
	return nil
}

func (a *Adapter) deliver(topic string, payload []byte) {
	a.mu.Lock()
	handler := a.msgHandler
	a.mu.Unlock()
	if handler != nil {
		handler(transport.Message{Topic: topic, Payload: payload})
	}
}

func (b *Broker) addListener(topic string, a *Adapter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[topic] = append(b.listeners[topic], a)
}

func (b *Broker) removeListener(topic string, a *Adapter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[topic]
	for i, l := range ls {
		if l == a {
			b.listeners[topic] = append(ls[:i], ls[i+1:]...)
			break
		}
	}
}

func (b *Broker) retainedValue(topic string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.retained[topic]
	return v, ok
}

func (b *Broker) publish(topic string, payload []byte, retain bool) {
	b.mu.Lock()
	if retain {
		b.retained[topic] = payload
	}
	listeners := append([]*Adapter(nil), b.listeners[topic]...)
	b.mu.Unlock()

	for _, l := range listeners {
		l.deliver(topic, payload)
	}
}
