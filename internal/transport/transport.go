// Package transport defines the transport adapter contract: a typed
// wrapper around a publish/subscribe broker with at-least-once QoS 1
// delivery, retained messages, and a last-will message.
package transport

import "context"

// ConnectionState is the transport's observable connection lifecycle state.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	ConnError
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnError:
		return "error"
	default:
		return "unknown"
	}
}

// Options enumerates the transport's full connection option set.
type Options struct {
	BrokerURL string
	Port      int
	ClientID  string

	Username string
	Password string

	UseTLS   bool
	CAPath   string
	CertPath string
	KeyPath  string

	KeepAliveSeconds int
	CleanSession     bool

	ReconnectOnFailure       bool
	MaxReconnectDelaySeconds int

	DefaultQoS int

	LastWillTopic   string
	LastWillPayload []byte
	LastWillQoS     int
	LastWillRetain  bool

	// ConnectTimeoutSeconds bounds the single connect attempt before
	// ErrTransportUnavailable is returned.
	ConnectTimeoutSeconds int
}

// Message is one inbound delivery.
type Message struct {
	Topic   string
	Payload []byte
}

// MessageHandler receives every inbound message regardless of topic; callers
// dispatch by topic.Parse(msg.Topic) themselves.
type MessageHandler func(Message)

// StateHandler is invoked on every connection-state transition.
type StateHandler func(ConnectionState)

// Transport is the capability the bridge and the client session consume. A
// single Transport instance is shared read-only among the dispatcher,
// publisher, and session — only the owner of a given topic publishes to it.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()

	Subscribe(topic string, qos int) error
	Unsubscribe(topic string) error

	// Publish rejects with ErrNotConnected when not connected; it never
	// queues for later delivery.
	Publish(topic string, payload []byte, qos int, retain bool) error

	OnMessage(handler MessageHandler)
	OnConnectionState(handler StateHandler)

	State() ConnectionState
}
