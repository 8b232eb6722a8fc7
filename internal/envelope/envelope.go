// Package envelope defines the wire schema shared by the bridge and the
// client session: Command, Response, State, and Connection, plus the
// PlayerState data model they carry. Envelopes are UTF-8 JSON objects with
// stable camelCase field names; decode classifies by field presence.
package envelope

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlaybackState is one of the player's coarse states.
type PlaybackState string

const (
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
	StateStopped PlaybackState = "stopped"
	StateLoading PlaybackState = "loading"
	StateError   PlaybackState = "error"
	StateUnknown PlaybackState = "unknown"
)

// SongMeta describes one track, optionally marked as the playlist's current
// entry and carrying fractional playback position.
type SongMeta struct {
	Title           string  `json:"title,omitempty"`
	Artist          string  `json:"artist,omitempty"`
	Album           string  `json:"album,omitempty"`
	File            string  `json:"file"`
	DurationSeconds float64 `json:"durationSeconds"`
	PositionSeconds float64 `json:"positionSeconds"`
	IsCurrent       bool    `json:"isCurrent,omitempty"`
}

// PlayerState is a snapshot of the daemon at one instant.
type PlayerState struct {
	State          PlaybackState `json:"state"`
	CurrentSong    *SongMeta     `json:"currentSong,omitempty"`
	Volume         int           `json:"volume"`
	Repeat         bool          `json:"repeat"`
	Random         bool          `json:"random"`
	Playlist       string        `json:"playlist,omitempty"`
	PlaylistTracks []SongMeta    `json:"playlistTracks,omitempty"`
}

// Clamp enforces the §3 invariants: volume in 0..100 and position bounded by
// duration. It does not validate the currentSong-presence invariant, and
// neither the status publisher nor the fake player checks it either.
func (p *PlayerState) Clamp() {
	if p.Volume < 0 {
		p.Volume = 0
	}
	if p.Volume > 100 {
		p.Volume = 100
	}
	if p.CurrentSong != nil {
		if p.CurrentSong.PositionSeconds < 0 {
			p.CurrentSong.PositionSeconds = 0
		}
		if p.CurrentSong.PositionSeconds > p.CurrentSong.DurationSeconds {
			p.CurrentSong.PositionSeconds = p.CurrentSong.DurationSeconds
		}
	}
}

// Equal reports whether two states carry the same observable fields,
// ignoring nothing — callers that only care about a subset (e.g. C6's
// change triggers) compare the relevant fields directly instead of calling
// this.
func (p PlayerState) Equal(o PlayerState) bool {
	pb, _ := json.Marshal(p)
	ob, _ := json.Marshal(o)
	return string(pb) == string(ob)
}

// CommandEnvelope is published client→device on the commands topic.
type CommandEnvelope struct {
	Command   string          `json:"command"`
	CommandID string          `json:"commandId"`
	Params    json.RawMessage `json:"params,omitempty"`
	Timestamp float64         `json:"timestamp"`
}

// ResponseEnvelope is published device→client on the responses topic.
// Exactly one response per command is expected but not guaranteed;
// duplicates are dropped by the session, not the codec.
type ResponseEnvelope struct {
	CommandID string          `json:"commandId"`
	Result    bool            `json:"result"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp float64         `json:"timestamp"`
}

// StateEnvelope is PlayerState plus a timestamp, retained on the broker.
type StateEnvelope struct {
	PlayerState
	Timestamp float64 `json:"timestamp"`
}

// ConnectionStatus is the presence value carried by a ConnectionEnvelope.
type ConnectionStatus string

const (
	ConnectionOnline  ConnectionStatus = "online"
	ConnectionOffline ConnectionStatus = "offline"
)

// ConnectionEnvelope is retained; offline is configured as the device
// session's last-will.
type ConnectionEnvelope struct {
	Status    ConnectionStatus `json:"status"`
	Timestamp float64          `json:"timestamp"`
}

// Kind discriminates a decoded envelope, mirroring topic.Kind's vocabulary.
type Kind string

const (
	KindCommand    Kind = "command"
	KindResponse   Kind = "response"
	KindState      Kind = "state"
	KindConnection Kind = "connection"
)

// NewCommandID returns a fresh version-4 UUID string.
func NewCommandID() string {
	return uuid.NewString()
}

// NowTimestamp is the client-local wall clock in fractional seconds, used
// only for diagnostics.
func NowTimestamp() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// probe is used only to classify a raw envelope by field presence before
// decoding into the concrete type.
type probe struct {
	Command   *string `json:"command"`
	CommandID *string `json:"commandId"`
	Result    *bool   `json:"result"`
	State     json.RawMessage `json:"state"`
	Status    *string `json:"status"`
}

// Classify inspects the decoded JSON object's top-level fields and returns
// which envelope kind it is, without assuming anything about field order.
func Classify(data []byte) (Kind, error) {
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("envelope: classify: %w", err)
	}

	switch {
	case p.Command != nil && p.CommandID != nil:
		return KindCommand, nil
	case p.CommandID != nil && p.Result != nil:
		return KindResponse, nil
	case p.State != nil:
		return KindState, nil
	case p.Status != nil && (*p.Status == string(ConnectionOnline) || *p.Status == string(ConnectionOffline)):
		return KindConnection, nil
	default:
		return "", fmt.Errorf("envelope: classify: unrecognized envelope shape")
	}
}

// DecodeCommand decodes a Command envelope.
func DecodeCommand(data []byte) (CommandEnvelope, error) {
	var c CommandEnvelope
	if err := json.Unmarshal(data, &c); err != nil {
		return CommandEnvelope{}, fmt.Errorf("envelope: decode command: %w", err)
	}
	if c.Command == "" || c.CommandID == "" {
		return CommandEnvelope{}, fmt.Errorf("envelope: command envelope missing command or commandId")
	}
	return c, nil
}

// DecodeResponse decodes a Response envelope.
func DecodeResponse(data []byte) (ResponseEnvelope, error) {
	var r ResponseEnvelope
	if err := json.Unmarshal(data, &r); err != nil {
		return ResponseEnvelope{}, fmt.Errorf("envelope: decode response: %w", err)
	}
	return r, nil
}

// DecodeState decodes a State envelope.
func DecodeState(data []byte) (StateEnvelope, error) {
	var s StateEnvelope
	if err := json.Unmarshal(data, &s); err != nil {
		return StateEnvelope{}, fmt.Errorf("envelope: decode state: %w", err)
	}
	return s, nil
}

// DecodeConnection decodes a Connection envelope.
func DecodeConnection(data []byte) (ConnectionEnvelope, error) {
	var c ConnectionEnvelope
	if err := json.Unmarshal(data, &c); err != nil {
		return ConnectionEnvelope{}, fmt.Errorf("envelope: decode connection: %w", err)
	}
	return c, nil
}

// EncodeCommand, EncodeResponse, EncodeState and EncodeConnection are thin
// json.Marshal wrappers kept symmetric with the Decode* functions so
// encode∘decode round-trips are easy to test.

func EncodeCommand(c CommandEnvelope) ([]byte, error)       { return json.Marshal(c) }
func EncodeResponse(r ResponseEnvelope) ([]byte, error)     { return json.Marshal(r) }
func EncodeState(s StateEnvelope) ([]byte, error)           { return json.Marshal(s) }
func EncodeConnection(c ConnectionEnvelope) ([]byte, error) { return json.Marshal(c) }
