package client

import (
	"sync"

	"amora/internal/envelope"
	"amora/internal/player"
	"amora/internal/transport"
)

// Event callback signatures for the session's observer kinds.
type (
	StateChangeFunc      func(envelope.PlayerState)
	PositionChangeFunc   func(float64)
	VolumeChangeFunc     func(int)
	PlaylistChangeFunc   func([]player.Playlist)
	ConnectionChangeFunc func(transport.ConnectionState)
	CommandResponseFunc  func(envelope.ResponseEnvelope)
	ErrorFunc            func(error)
)

// observers holds every registered callback per event kind. Multiple
// observers may register for the same event, mirroring the transport
// adapter's own OnConnectionState handler-list idiom.
type observers struct {
	mu sync.Mutex

	stateChange      []StateChangeFunc
	positionChange   []PositionChangeFunc
	volumeChange     []VolumeChangeFunc
	playlistChange   []PlaylistChangeFunc
	connectionChange []ConnectionChangeFunc
	commandResponse  []CommandResponseFunc
	errorFn          []ErrorFunc
}

func (o *observers) onStateChange(f StateChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stateChange = append(o.stateChange, f)
}

func (o *observers) onPositionChange(f PositionChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.positionChange = append(o.positionChange, f)
}

func (o *observers) onVolumeChange(f VolumeChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volumeChange = append(o.volumeChange, f)
}

func (o *observers) onPlaylistChange(f PlaylistChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playlistChange = append(o.playlistChange, f)
}

func (o *observers) onConnectionChange(f ConnectionChangeFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connectionChange = append(o.connectionChange, f)
}

func (o *observers) onCommandResponse(f CommandResponseFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commandResponse = append(o.commandResponse, f)
}

func (o *observers) onError(f ErrorFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errorFn = append(o.errorFn, f)
}

// emit* helpers snapshot the observer slice under lock then invoke outside
// it, so a slow or reentrant callback never holds the session's internal
// lock.

func (o *observers) emitStateChange(s envelope.PlayerState) {
	o.mu.Lock()
	fns := append([]StateChangeFunc(nil), o.stateChange...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (o *observers) emitPositionChange(p float64) {
	o.mu.Lock()
	fns := append([]PositionChangeFunc(nil), o.positionChange...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (o *observers) emitVolumeChange(v int) {
	o.mu.Lock()
	fns := append([]VolumeChangeFunc(nil), o.volumeChange...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (o *observers) emitPlaylistChange(p []player.Playlist) {
	o.mu.Lock()
	fns := append([]PlaylistChangeFunc(nil), o.playlistChange...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (o *observers) emitConnectionChange(s transport.ConnectionState) {
	o.mu.Lock()
	fns := append([]ConnectionChangeFunc(nil), o.connectionChange...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (o *observers) emitCommandResponse(r envelope.ResponseEnvelope) {
	o.mu.Lock()
	fns := append([]CommandResponseFunc(nil), o.commandResponse...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

func (o *observers) emitError(err error) {
	o.mu.Lock()
	fns := append([]ErrorFunc(nil), o.errorFn...)
	o.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}
