package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"amora/internal/errs"
)

// NatsAdapter is the C3 Transport implementation backed by
// github.com/nats-io/nats.go, grounded on go-server/pkg/nats.Client's
// connection-event wiring and reconnect handlers.
//
// NATS core has no broker-side retained-message or last-will delivery, so
// both are emulated at this layer: retained publishes are mirrored into a
// JetStream key-value bucket and replayed to new subscribers before live
// delivery resumes, and the last-will payload is published by this process
// itself on a graceful Disconnect. A process that dies without calling
// Disconnect will not have its last-will delivered — that requires a broker
// with native LWT support (e.g. MQTT), which is outside what nats.go offers.
// This limitation is recorded in DESIGN.md.
type NatsAdapter struct {
	opts Options
	log  zerolog.Logger

	mu            sync.Mutex
	conn          *nats.Conn
	js            nats.JetStreamContext
	kv            nats.KeyValue
	subs          map[string]*nats.Subscription
	state         ConnectionState
	msgHandler    MessageHandler
	stateHandlers []StateHandler
}

const retainedBucket = "amora_retained"

// NewNatsAdapter constructs an adapter; Connect must be called before use.
func NewNatsAdapter(opts Options, log zerolog.Logger) *NatsAdapter {
	return &NatsAdapter{
		opts:  opts,
		log:   log,
		subs:  make(map[string]*nats.Subscription),
		state: Disconnected,
	}
}

func (a *NatsAdapter) setState(s ConnectionState) {
	a.mu.Lock()
	a.state = s
	handlers := append([]StateHandler(nil), a.stateHandlers...)
	a.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}

func (a *NatsAdapter) State() ConnectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *NatsAdapter) OnMessage(handler MessageHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgHandler = handler
}

func (a *NatsAdapter) OnConnectionState(handler StateHandler) {
	a.mu.Lock()
	a.stateHandlers = append(a.stateHandlers, handler)
	a.mu.Unlock()
}

func buildTLSConfig(o Options) (*tls.Config, error) {
	cfg := &tls.Config{}

	if o.CAPath != "" {
		pem, err := os.ReadFile(o.CAPath)
		if err != nil {
			return nil, fmt.Errorf("transport: read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: CA file %q has no usable certificates", o.CAPath)
		}
		cfg.RootCAs = pool
	}

	if o.CertPath != "" && o.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(o.CertPath, o.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("transport: load client cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// reconnectDelay implements exponential backoff: min(base·2^k,
// maxReconnectDelaySeconds) with small jitter.
func reconnectDelay(maxSeconds int) func(attempts int) time.Duration {
	const base = 500 * time.Millisecond
	max := time.Duration(maxSeconds) * time.Second
	if max <= 0 {
		max = 30 * time.Second
	}
	return func(attempts int) time.Duration {
		if attempts < 1 {
			attempts = 1
		}
		backoff := base * time.Duration(math.Pow(2, float64(attempts-1)))
		if backoff > max {
			backoff = max
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/10 + 1)))
		return backoff + jitter
	}
}

func (a *NatsAdapter) Connect(ctx context.Context) error {
	a.setState(Connecting)

	natsOpts := []nats.Option{
		nats.Name(a.opts.ClientID),
		nats.PingInterval(time.Duration(a.opts.KeepAliveSeconds) * time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ConnectHandler(func(c *nats.Conn) {
			a.log.Info().Str("url", c.ConnectedUrl()).Msg("transport connected")
			a.setState(Connected)
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			a.log.Warn().Err(err).Msg("transport disconnected")
			a.setState(Disconnected)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			a.log.Info().Msg("transport reconnected")
			a.replayRetainedOnReconnect()
			a.setState(Connected)
		}),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			a.log.Error().Err(err).Msg("transport error")
			a.setState(ConnError)
		}),
	}

	if a.opts.ReconnectOnFailure {
		natsOpts = append(natsOpts,
			nats.MaxReconnects(-1),
			nats.CustomReconnectDelay(reconnectDelay(a.opts.MaxReconnectDelaySeconds)),
		)
	} else {
		natsOpts = append(natsOpts, nats.MaxReconnects(0))
	}

	if a.opts.Username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(a.opts.Username, a.opts.Password))
	}

	if a.opts.UseTLS {
		tlsCfg, err := buildTLSConfig(a.opts)
		if err != nil {
			a.setState(ConnError)
			return fmt.Errorf("%w: %s", errs.ErrTransportUnavailable, err)
		}
		natsOpts = append(natsOpts, nats.Secure(tlsCfg))
	}

	timeout := time.Duration(a.opts.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	natsOpts = append(natsOpts, nats.Timeout(timeout))

	url := fmt.Sprintf("%s:%d", a.opts.BrokerURL, a.opts.Port)
	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		a.setState(ConnError)
		return fmt.Errorf("%w: %s", errs.ErrTransportUnavailable, err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()

	if js, err := conn.JetStream(); err == nil {
		a.mu.Lock()
		a.js = js
		a.mu.Unlock()
		a.ensureRetainedBucket()
	} else {
		a.log.Warn().Err(err).Msg("jetstream unavailable, retained-message emulation disabled")
	}

	return nil
}

func (a *NatsAdapter) ensureRetainedBucket() {
	kv, err := a.js.KeyValue(retainedBucket)
	if err != nil {
		kv, err = a.js.CreateKeyValue(&nats.KeyValueConfig{Bucket: retainedBucket})
		if err != nil {
			a.log.Warn().Err(err).Msg("retained-message bucket unavailable")
			return
		}
	}
	a.mu.Lock()
	a.kv = kv
	a.mu.Unlock()
}

func retainedKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

func (a *NatsAdapter) Disconnect() {
	a.mu.Lock()
	conn := a.conn
	lastWillTopic := a.opts.LastWillTopic
	lastWillPayload := a.opts.LastWillPayload
	lastWillRetain := a.opts.LastWillRetain
	a.mu.Unlock()

	if conn != nil && conn.IsConnected() && lastWillTopic != "" {
		_ = a.Publish(lastWillTopic, lastWillPayload, a.opts.LastWillQoS, lastWillRetain)
	}

	if conn != nil {
		conn.Close()
	}
	a.setState(Disconnected)
}

func (a *NatsAdapter) Subscribe(topic string, qos int) error {
	a.mu.Lock()
	conn := a.conn
	kv := a.kv
	a.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		return errs.ErrNotConnected
	}

	sub, err := conn.Subscribe(topic, func(msg *nats.Msg) {
		a.mu.Lock()
		handler := a.msgHandler
		a.mu.Unlock()
		if handler != nil {
			handler(Message{Topic: msg.Subject, Payload: msg.Data})
		}
	})
	if err != nil {
		return fmt.Errorf("transport: subscribe %q: %w", topic, err)
	}

	a.mu.Lock()
	a.subs[topic] = sub
	handler := a.msgHandler
	a.mu.Unlock()

	// Deliver the retained value, if any, before live messages — a fresh
	// subscriber must see the last known state/connection envelope first.
	if kv != nil && handler != nil {
		if entry, err := kv.Get(retainedKey(topic)); err == nil {
			handler(Message{Topic: topic, Payload: entry.Value()})
		}
	}

	return nil
}

func (a *NatsAdapter) Unsubscribe(topic string) error {
	a.mu.Lock()
	sub, ok := a.subs[topic]
	delete(a.subs, topic)
	a.mu.Unlock()

	if !ok {
		return nil
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("transport: unsubscribe %q: %w", topic, err)
	}
	return nil
}

// replayRetainedOnReconnect re-delivers the current retained value for every
// still-active subscription after a reconnect. nats.go itself transparently
// re-establishes the underlying subscriptions on the new connection — calling
// Subscribe again here would open a second live subscription per topic and
// double-deliver every subsequent message. Retained values are not replayed
// by the library's own reconnect logic, so this only re-runs that part.
func (a *NatsAdapter) replayRetainedOnReconnect() {
	a.mu.Lock()
	topics := make([]string, 0, len(a.subs))
	for t := range a.subs {
		topics = append(topics, t)
	}
	kv := a.kv
	handler := a.msgHandler
	a.mu.Unlock()

	if kv == nil || handler == nil {
		return
	}

	for _, t := range topics {
		entry, err := kv.Get(retainedKey(t))
		if err != nil {
			continue
		}
		handler(Message{Topic: t, Payload: entry.Value()})
	}
}

func (a *NatsAdapter) Publish(topic string, payload []byte, qos int, retain bool) error {
	a.mu.Lock()
	conn := a.conn
	kv := a.kv
	a.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		return errs.ErrNotConnected
	}

	if err := conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("transport: publish %q: %w", topic, err)
	}

	if retain && kv != nil {
		if _, err := kv.Put(retainedKey(topic), payload); err != nil {
			a.log.Warn().Err(err).Str("topic", topic).Msg("retained-message store failed")
		}
	}

	return nil
}
