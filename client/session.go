// Package client implements the client-side session that maintains cached
// player state and playlists, correlates commands with responses, and fires
// change events to registered observers.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"amora/internal/envelope"
	"amora/internal/errs"
	"amora/internal/player"
	"amora/internal/topic"
	"amora/internal/transport"
)

// DefaultCommandTimeout is used when Config.CommandTimeoutSeconds is unset.
const DefaultCommandTimeout = 10 * time.Second

// Config bundles the session's transport options and its own tunables.
type Config struct {
	Transport             transport.Options
	TopicPrefix           string
	DeviceID              string
	CommandTimeoutSeconds int
}

func (c Config) namespace() topic.Namespace {
	prefix := c.TopicPrefix
	if prefix == "" {
		prefix = topic.DefaultPrefix
	}
	return topic.Namespace{Prefix: prefix, DeviceID: c.DeviceID}
}

func (c Config) commandTimeout() time.Duration {
	if c.CommandTimeoutSeconds <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

type pendingEntry struct {
	future     *Future
	enqueuedAt time.Time
}

// Session tracks one device namespace.
type Session struct {
	transport      transport.Transport
	ns             topic.Namespace
	commandTimeout time.Duration
	log            zerolog.Logger

	obs observers

	mu              sync.Mutex
	connStatus      transport.ConnectionState
	lastState       *envelope.PlayerState
	playlists       []player.Playlist
	pending         map[string]*pendingEntry
	hadFirstConnect bool

	sweepCancel context.CancelFunc
}

// New constructs a Session bound to t. t must not already have message or
// connection-state handlers registered elsewhere — Session installs its own.
func New(cfg Config, t transport.Transport, log zerolog.Logger) *Session {
	s := &Session{
		transport:      t,
		ns:             cfg.namespace(),
		commandTimeout: cfg.commandTimeout(),
		log:            log,
		connStatus:     transport.Disconnected,
		pending:        make(map[string]*pendingEntry),
	}
	t.OnMessage(s.route)
	t.OnConnectionState(s.onConnectionState)
	return s
}

// Connect opens the transport, subscribes to this device's state and
// responses topics, and primes the cached state with getStatus.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.transport.Connect(ctx); err != nil {
		return err
	}
	return s.subscribeAndPrime(ctx)
}

func (s *Session) subscribeAndPrime(ctx context.Context) error {
	if err := s.transport.Subscribe(s.ns.State(), 1); err != nil {
		return fmt.Errorf("client: subscribe state: %w", err)
	}
	if err := s.transport.Subscribe(s.ns.Responses(), 1); err != nil {
		return fmt.Errorf("client: subscribe responses: %w", err)
	}

	s.mu.Lock()
	if s.sweepCancel == nil {
		sweepCtx, cancel := context.WithCancel(context.Background())
		s.sweepCancel = cancel
		go s.sweepLoop(sweepCtx)
	}
	s.hadFirstConnect = true
	s.mu.Unlock()

	if _, err := s.GetStatus(ctx); err != nil {
		s.log.Warn().Err(err).Msg("initial getStatus priming failed")
	}
	return nil
}

// Disconnect rejects every pending command with ErrDisconnected, stops the
// timeout sweep, and closes the transport.
func (s *Session) Disconnect() {
	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[string]*pendingEntry)
	if s.sweepCancel != nil {
		s.sweepCancel()
		s.sweepCancel = nil
	}
	s.mu.Unlock()

	for _, e := range pending {
		e.future.reject(errs.ErrDisconnected)
	}

	s.transport.Disconnect()
}

// GetConnectionStatus returns the last-observed transport connection state.
func (s *Session) GetConnectionStatus() transport.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connStatus
}

// GetCachedPlayerState returns the cached player state, taken from whichever
// came last of a State envelope or a getStatus response, if any.
func (s *Session) GetCachedPlayerState() (envelope.PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastState == nil {
		return envelope.PlayerState{}, false
	}
	return *s.lastState, true
}

// GetCachedPlaylists returns the last getPlaylists response, if any.
func (s *Session) GetCachedPlaylists() []player.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]player.Playlist(nil), s.playlists...)
}

// OnStateChange, OnPositionChange, OnVolumeChange, OnPlaylistChange,
// OnConnectionChange, OnCommandResponse, and OnError register observers for
// the session's event kinds.
func (s *Session) OnStateChange(f StateChangeFunc)           { s.obs.onStateChange(f) }
func (s *Session) OnPositionChange(f PositionChangeFunc)     { s.obs.onPositionChange(f) }
func (s *Session) OnVolumeChange(f VolumeChangeFunc)         { s.obs.onVolumeChange(f) }
func (s *Session) OnPlaylistChange(f PlaylistChangeFunc)     { s.obs.onPlaylistChange(f) }
func (s *Session) OnConnectionChange(f ConnectionChangeFunc) { s.obs.onConnectionChange(f) }
func (s *Session) OnCommandResponse(f CommandResponseFunc)   { s.obs.onCommandResponse(f) }
func (s *Session) OnError(f ErrorFunc)                       { s.obs.onError(f) }

// issue generates a commandId, records the pending entry, publishes the
// Command envelope, then awaits the Response (or Timeout/Disconnected) via
// Wait.
func (s *Session) issue(ctx context.Context, command string, params interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrInvalidArgument, err)
		}
		raw = b
	}

	commandID := envelope.NewCommandID()
	fut := newFuture()

	s.mu.Lock()
	s.pending[commandID] = &pendingEntry{future: fut, enqueuedAt: time.Now()}
	s.mu.Unlock()

	payload, err := envelope.EncodeCommand(envelope.CommandEnvelope{
		Command:   command,
		CommandID: commandID,
		Params:    raw,
		Timestamp: envelope.NowTimestamp(),
	})
	if err != nil {
		s.dropPending(commandID)
		return nil, fmt.Errorf("%w: %s", errs.ErrMalformedMessage, err)
	}

	if err := s.transport.Publish(s.ns.Commands(), payload, 1, false); err != nil {
		s.dropPending(commandID)
		return nil, err
	}

	return fut.Wait(ctx)
}

func (s *Session) dropPending(commandID string) {
	s.mu.Lock()
	delete(s.pending, commandID)
	s.mu.Unlock()
}

// sweepLoop rejects pending commands older than commandTimeout at 1 Hz.
func (s *Session) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepTimeouts()
		}
	}
}

func (s *Session) sweepTimeouts() {
	now := time.Now()

	s.mu.Lock()
	var expired []*pendingEntry
	for id, e := range s.pending {
		if now.Sub(e.enqueuedAt) >= s.commandTimeout {
			expired = append(expired, e)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.future.reject(errs.ErrTimeout)
	}
}

// route is the transport's single MessageHandler.
func (s *Session) route(msg transport.Message) {
	parsed, err := topic.Parse(msg.Topic)
	if err != nil || parsed.DeviceID != s.ns.DeviceID {
		return
	}

	switch parsed.Kind {
	case topic.KindState:
		s.handleState(msg.Payload)
	case topic.KindResponses:
		s.handleResponse(msg.Payload)
	case topic.KindConnection:
		s.handleConnection(msg.Payload)
	}
}

func (s *Session) handleState(payload []byte) {
	st, err := envelope.DecodeState(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed state envelope")
		return
	}

	s.mu.Lock()
	prev := s.lastState
	next := st.PlayerState
	s.lastState = &next
	s.mu.Unlock()

	if prev == nil || prev.State != next.State {
		s.obs.emitStateChange(next)
	}
	if prev != nil && positionChanged(prev, &next) {
		s.obs.emitPositionChange(currentPosition(next))
	}
	if prev == nil || prev.Volume != next.Volume {
		s.obs.emitVolumeChange(next.Volume)
	}
}

// positionChanged reports whether playback position moved between prev and
// next, treating the song appearing or disappearing as a change even when
// both report position 0 — otherwise starting playback at the very start of
// a track would never fire a positionChange event. prev is never nil here;
// the initial prime (no prior state) never counts as a change.
func positionChanged(prev, next *envelope.PlayerState) bool {
	if (prev.CurrentSong == nil) != (next.CurrentSong == nil) {
		return true
	}
	return currentPosition(*prev) != currentPosition(*next)
}

func currentPosition(st envelope.PlayerState) float64 {
	if st.CurrentSong == nil {
		return 0
	}
	return st.CurrentSong.PositionSeconds
}

func (s *Session) handleResponse(payload []byte) {
	resp, err := envelope.DecodeResponse(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed response envelope")
		return
	}

	s.mu.Lock()
	entry, ok := s.pending[resp.CommandID]
	if ok {
		delete(s.pending, resp.CommandID)
	}
	s.mu.Unlock()

	if ok {
		if resp.Result {
			entry.future.resolve(resp.Data)
		} else {
			entry.future.reject(fmt.Errorf("%w: %s", errs.ErrHandlerFailure, resp.Message))
		}
	}

	s.obs.emitCommandResponse(resp)
	s.refreshPlaylistsIfPresent(resp.Data)
}

func (s *Session) refreshPlaylistsIfPresent(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	var body struct {
		Playlists *[]player.Playlist `json:"playlists"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Playlists == nil {
		return
	}

	s.mu.Lock()
	s.playlists = *body.Playlists
	s.mu.Unlock()

	s.obs.emitPlaylistChange(*body.Playlists)
}

// handleConnection only validates a Connection envelope, logging and dropping
// a malformed one; its status is not compared with anything or cached. The
// session's connection status comes solely from the transport's own
// connection-state callback.
func (s *Session) handleConnection(payload []byte) {
	if _, err := envelope.DecodeConnection(payload); err != nil {
		s.log.Warn().Err(err).Msg("dropping malformed connection envelope")
	}
}

func (s *Session) onConnectionState(state transport.ConnectionState) {
	s.mu.Lock()
	s.connStatus = state
	hadFirst := s.hadFirstConnect
	s.mu.Unlock()

	s.obs.emitConnectionChange(state)

	if state == transport.Connected && hadFirst {
		go s.resyncAfterReconnect()
	}
}

// resyncAfterReconnect re-primes lastState after a reconnect. The transport
// itself re-establishes subscriptions (and replays retained values) before
// declaring connected.
func (s *Session) resyncAfterReconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), s.commandTimeout)
	defer cancel()
	if _, err := s.GetStatus(ctx); err != nil {
		s.obs.emitError(fmt.Errorf("client: resync after reconnect: %w", err))
	}
}
