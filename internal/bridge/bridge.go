// Package bridge implements the device-side lifecycle and supervision
// component that wires the player, transport, dispatcher, and publisher
// together and owns startup/shutdown ordering.
package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"amora/internal/dispatcher"
	"amora/internal/envelope"
	"amora/internal/metrics"
	"amora/internal/player"
	"amora/internal/publisher"
	"amora/internal/topic"
	"amora/internal/transport"
)

// Config is the subset of device wiring bridge.New needs beyond the
// transport's own Options, which the caller constructs and connects through.
type Config struct {
	Namespace      topic.Namespace
	WorkerCount    int
	Intervals      publisher.Intervals
	RateLimitHz    float64 // 0 disables the inbound command rate limit
	RateLimitBurst int
}

// Bridge owns one device's session: a single player, a single transport
// connection, and the dispatcher/publisher pair that ride on top of it.
type Bridge struct {
	cfg       Config
	player    player.Player
	transport transport.Transport
	dispatch  *dispatcher.Dispatcher
	publish   *publisher.Publisher
	log       zerolog.Logger
	metrics   *metrics.Registry

	cancel context.CancelFunc
}

// New wires the dispatcher and publisher against t, but does not connect or
// start anything — call Run for that.
func New(cfg Config, p player.Player, t transport.Transport, log zerolog.Logger, reg *metrics.Registry) *Bridge {
	d := dispatcher.New(t, cfg.Namespace, cfg.WorkerCount, log, reg)
	if cfg.RateLimitHz > 0 {
		d.SetRateLimit(cfg.RateLimitHz, cfg.RateLimitBurst)
	}
	dispatcher.RegisterStandardHandlers(d, p)

	pub := publisher.New(p, t, cfg.Namespace, cfg.Intervals, log, reg)

	b := &Bridge{
		cfg:       cfg,
		player:    p,
		transport: t,
		dispatch:  d,
		publish:   pub,
		log:       log,
		metrics:   reg,
	}

	t.OnMessage(b.route)
	t.OnConnectionState(b.onConnectionState)

	return b
}

// Dispatcher exposes the underlying dispatcher so callers may register
// extension commands before Run.
func (b *Bridge) Dispatcher() *dispatcher.Dispatcher { return b.dispatch }

// route is the transport's single MessageHandler. It parses the topic and
// only the commands topic is meaningful inbound — state, responses, and
// connection are outbound-only from this side.
func (b *Bridge) route(msg transport.Message) {
	parsed, err := topic.Parse(msg.Topic)
	if err != nil {
		b.log.Warn().Err(err).Str("topic", msg.Topic).Msg("dropping message on unrecognized topic")
		return
	}
	if parsed.DeviceID != b.cfg.Namespace.DeviceID || parsed.Kind != topic.KindCommands {
		return
	}
	b.dispatch.Handle(msg.Payload)
}

func (b *Bridge) onConnectionState(s transport.ConnectionState) {
	if b.metrics != nil {
		b.metrics.ConnectionState.Set(float64(s))
		if s == transport.Connected {
			b.metrics.ReconnectsTotal.Inc()
		}
	}
}

// Run connects the transport, subscribes to the commands topic, publishes
// the initial retained online Connection envelope, and starts the dispatcher
// worker pool and status publisher. It blocks until ctx is cancelled, then
// runs the shutdown sequence: publish offline, stop the publisher and
// dispatcher, and disconnect (which also emits the last-will payload on a
// graceful path).
func (b *Bridge) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	if err := b.transport.Connect(runCtx); err != nil {
		cancel()
		return fmt.Errorf("bridge: connect: %w", err)
	}

	if err := b.transport.Subscribe(b.cfg.Namespace.Commands(), 1); err != nil {
		cancel()
		return fmt.Errorf("bridge: subscribe commands: %w", err)
	}

	if err := b.publishConnection(envelope.ConnectionOnline); err != nil {
		b.log.Warn().Err(err).Msg("initial online announcement failed")
	}

	b.dispatch.Start(runCtx)
	go b.publish.Run(runCtx)

	<-runCtx.Done()

	if err := b.publishConnection(envelope.ConnectionOffline); err != nil {
		b.log.Warn().Err(err).Msg("offline announcement failed")
	}
	b.dispatch.Stop()
	b.transport.Disconnect()

	return nil
}

// Stop cancels the context Run is blocked on, beginning the shutdown
// sequence described on Run.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bridge) publishConnection(status envelope.ConnectionStatus) error {
	payload, err := envelope.EncodeConnection(envelope.ConnectionEnvelope{
		Status:    status,
		Timestamp: envelope.NowTimestamp(),
	})
	if err != nil {
		return err
	}
	return b.transport.Publish(b.cfg.Namespace.Connection(), payload, 1, true)
}
