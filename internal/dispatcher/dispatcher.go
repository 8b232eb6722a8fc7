// Package dispatcher routes inbound Command envelopes to registered
// handlers and publishes the matching Response envelopes.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"amora/internal/envelope"
	"amora/internal/errs"
	"amora/internal/metrics"
	"amora/internal/topic"
	"amora/internal/transport"
)

// HandlerFunc executes one command and returns (result, message, data) for
// the Response envelope. Handlers must tolerate duplicate deliveries of the
// same commandId — the dispatcher does not deduplicate.
type HandlerFunc func(params json.RawMessage) (result bool, message string, data interface{})

// Dispatcher routes Command envelopes arriving on a device's commands topic
// to registered handlers and publishes the matching Response.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	transport transport.Transport
	responses string

	pool    *WorkerPool
	limiter *rate.Limiter // optional; nil disables rate limiting

	log     zerolog.Logger
	metrics *metrics.Registry
}

// New constructs a Dispatcher publishing responses into ns's responses
// topic, running handlers on a bounded pool of workerCount goroutines.
func New(t transport.Transport, ns topic.Namespace, workerCount int, log zerolog.Logger, reg *metrics.Registry) *Dispatcher {
	return &Dispatcher{
		handlers:  make(map[string]HandlerFunc),
		transport: t,
		responses: ns.Responses(),
		pool:      NewWorkerPool(workerCount),
		log:       log,
		metrics:   reg,
	}
}

// SetRateLimit enables a per-dispatcher inbound command rate limit. A
// command that exceeds the limit still receives exactly one Response
// (result=false), preserving the one-response-or-timeout invariant.
func (d *Dispatcher) SetRateLimit(perSecond float64, burst int) {
	d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Register adds or replaces the handler for command.
func (d *Dispatcher) Register(command string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[command] = h
}

func (d *Dispatcher) lookup(command string) (HandlerFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[command]
	return h, ok
}

// Start launches the worker pool. ctx cancellation drains in-flight tasks.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

// Stop waits for in-flight worker-pool tasks to finish after ctx passed to
// Start is cancelled.
func (d *Dispatcher) Stop() {
	d.pool.Stop()
}

// Handle decodes raw as a Command envelope and routes it. It is the single
// entry point the bridge's transport message router calls for messages
// arriving on the commands topic.
func (d *Dispatcher) Handle(raw []byte) {
	cmd, err := envelope.DecodeCommand(raw)
	if err != nil {
		d.log.Warn().Err(err).Msg("dropping malformed command")
		d.recordResult("fail")
		d.publishResponse(envelope.ResponseEnvelope{
			CommandID: "",
			Result:    false,
			Message:   "malformed command",
			Timestamp: envelope.NowTimestamp(),
		})
		return
	}

	if d.limiter != nil && !d.limiter.Allow() {
		d.recordResult("fail")
		d.publishResponse(envelope.ResponseEnvelope{
			CommandID: cmd.CommandID,
			Result:    false,
			Message:   "rate limited",
			Timestamp: envelope.NowTimestamp(),
		})
		return
	}

	handler, ok := d.lookup(cmd.Command)
	if !ok {
		d.recordResult("fail")
		d.publishResponse(envelope.ResponseEnvelope{
			CommandID: cmd.CommandID,
			Result:    false,
			Message:   "unknown command",
			Timestamp: envelope.NowTimestamp(),
		})
		return
	}

	d.pool.Submit(func() {
		d.invoke(cmd, handler)
	})
}

func (d *Dispatcher) invoke(cmd envelope.CommandEnvelope, handler HandlerFunc) {
	result, message, data := d.safeInvoke(handler, cmd.Params)

	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		} else {
			d.log.Error().Err(err).Str("command", cmd.Command).Msg("failed to marshal handler data")
		}
	}

	if result {
		d.recordResult("ok")
	} else {
		d.recordResult("fail")
	}

	d.publishResponse(envelope.ResponseEnvelope{
		CommandID: cmd.CommandID,
		Result:    result,
		Message:   message,
		Data:      raw,
		Timestamp: envelope.NowTimestamp(),
	})
}

// safeInvoke recovers from a handler panic and translates it into
// (false, error string, nil) rather than letting it crash the worker.
func (d *Dispatcher) safeInvoke(handler HandlerFunc, params json.RawMessage) (result bool, message string, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("handler panicked")
			result = false
			message = fmt.Sprintf("%s: %v", errs.ErrHandlerFailure, r)
			data = nil
		}
	}()
	return handler(params)
}

func (d *Dispatcher) publishResponse(resp envelope.ResponseEnvelope) {
	payload, err := envelope.EncodeResponse(resp)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to encode response")
		return
	}
	if err := d.transport.Publish(d.responses, payload, 1, false); err != nil {
		d.log.Error().Err(err).Str("commandId", resp.CommandID).Msg("failed to publish response")
	}
}

func (d *Dispatcher) recordResult(result string) {
	if d.metrics != nil {
		d.metrics.CommandsTotal.WithLabelValues(result).Inc()
	}
}
