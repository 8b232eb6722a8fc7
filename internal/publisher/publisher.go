// Package publisher polls the player capability, detects change, and
// publishes coalesced state updates plus periodic full refreshes. It runs
// on a single logical timer with three threshold comparisons rather than
// two overlapping timers, so at most one publish happens per tick.
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"amora/internal/envelope"
	"amora/internal/metrics"
	"amora/internal/player"
	"amora/internal/topic"
	"amora/internal/transport"
)

// Intervals bundles the publisher's three tunables.
type Intervals struct {
	PositionUpdate time.Duration
	Update         time.Duration
	FullUpdate     time.Duration
}

// DefaultIntervals returns the publisher's documented defaults.
func DefaultIntervals() Intervals {
	return Intervals{
		PositionUpdate: time.Second,
		Update:         time.Second,
		FullUpdate:     5 * time.Second,
	}
}

// Publisher periodically samples player state and publishes it as retained
// State envelopes.
type Publisher struct {
	player    player.Player
	transport transport.Transport
	stateTop  string
	intervals Intervals
	log       zerolog.Logger
	metrics   *metrics.Registry

	mu            sync.Mutex
	last          envelope.PlayerState
	haveLast      bool
	lastPublished time.Time
}

// New constructs a Publisher that polls p and publishes to ns's state topic.
func New(p player.Player, t transport.Transport, ns topic.Namespace, intervals Intervals, log zerolog.Logger, reg *metrics.Registry) *Publisher {
	return &Publisher{
		player:    p,
		transport: t,
		stateTop:  ns.State(),
		intervals: intervals,
		log:       log,
		metrics:   reg,
	}
}

// tickInterval is the single logical timer's resolution: the finer of the
// two sub-full-refresh intervals, so neither can be starved.
func (p *Publisher) tickInterval() time.Duration {
	d := p.intervals.PositionUpdate
	if p.intervals.Update < d {
		d = p.intervals.Update
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Run polls and publishes until ctx is cancelled. It publishes one initial
// full state before entering the tick loop.
func (p *Publisher) Run(ctx context.Context) {
	p.tick() // initial full publish

	ticker := time.NewTicker(p.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Publisher) tick() {
	if p.transport.State() != transport.Connected {
		// No backlog is retained; the retained last state on the broker
		// stays correct until LWT/offline is delivered.
		return
	}

	st, err := p.player.GetStatus()
	if err != nil {
		p.log.Warn().Err(err).Msg("status poll failed, skipping tick")
		if p.metrics != nil {
			p.metrics.PublishSkipped.Inc()
		}
		return
	}
	st.Clamp()

	p.mu.Lock()
	prev := p.last
	haveLast := p.haveLast
	lastPublished := p.lastPublished
	p.mu.Unlock()

	trigger := p.decideTrigger(prev, st, haveLast, lastPublished)
	if trigger == "" {
		return
	}

	if err := p.publish(st); err != nil {
		p.log.Error().Err(err).Msg("state publish failed")
		return
	}

	p.mu.Lock()
	p.last = st
	p.haveLast = true
	p.lastPublished = time.Now()
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.PublishesTotal.WithLabelValues(trigger).Inc()
	}
}

// decideTrigger evaluates the immediate full-state triggers, the
// position-only trigger, and the periodic refresh trigger, coalesced into
// at most one decision per tick.
func (p *Publisher) decideTrigger(prev, cur envelope.PlayerState, haveLast bool, lastPublished time.Time) string {
	if !haveLast {
		return "startup"
	}

	if immediateChangeTrigger(prev, cur) {
		return "full"
	}

	since := time.Since(lastPublished)
	if cur.State == envelope.StatePlaying && since >= p.intervals.PositionUpdate {
		return "position"
	}
	if since >= p.intervals.FullUpdate {
		return "refresh"
	}
	return ""
}

func immediateChangeTrigger(prev, cur envelope.PlayerState) bool {
	if prev.State != cur.State {
		return true
	}
	if songFile(prev.CurrentSong) != songFile(cur.CurrentSong) {
		return true
	}
	if prev.Volume != cur.Volume {
		return true
	}
	if prev.Repeat != cur.Repeat || prev.Random != cur.Random {
		return true
	}
	if prev.Playlist != cur.Playlist {
		return true
	}
	return false
}

func songFile(s *envelope.SongMeta) string {
	if s == nil {
		return ""
	}
	return s.File
}

func (p *Publisher) publish(st envelope.PlayerState) error {
	payload, err := envelope.EncodeState(envelope.StateEnvelope{
		PlayerState: st,
		Timestamp:   envelope.NowTimestamp(),
	})
	if err != nil {
		return err
	}
	return p.transport.Publish(p.stateTop, payload, 1, true)
}
