package client

import (
	"context"
	"encoding/json"
	"fmt"

	"amora/internal/envelope"
	"amora/internal/player"
)

// Play, Pause, Stop, Next, Previous, and UpdateDatabase issue their
// namesake command and resolve once a Response arrives.
func (s *Session) Play(ctx context.Context) error           { _, err := s.issue(ctx, "play", nil); return err }
func (s *Session) Pause(ctx context.Context) error          { _, err := s.issue(ctx, "pause", nil); return err }
func (s *Session) Stop(ctx context.Context) error           { _, err := s.issue(ctx, "stop", nil); return err }
func (s *Session) Next(ctx context.Context) error           { _, err := s.issue(ctx, "next", nil); return err }
func (s *Session) Previous(ctx context.Context) error       { _, err := s.issue(ctx, "previous", nil); return err }
func (s *Session) UpdateDatabase(ctx context.Context) error { _, err := s.issue(ctx, "updateDatabase", nil); return err }

func (s *Session) SetVolume(ctx context.Context, volume int) error {
	_, err := s.issue(ctx, "setVolume", map[string]int{"volume": volume})
	return err
}

func (s *Session) GetVolume(ctx context.Context) (int, error) {
	data, err := s.issue(ctx, "getVolume", nil)
	if err != nil {
		return 0, err
	}
	var body struct {
		Volume int `json:"volume"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return 0, fmt.Errorf("client: decode getVolume response: %w", err)
	}
	return body.Volume, nil
}

func (s *Session) SetRepeat(ctx context.Context, on bool) error {
	_, err := s.issue(ctx, "setRepeat", map[string]bool{"repeat": on})
	return err
}

func (s *Session) SetRandom(ctx context.Context, on bool) error {
	_, err := s.issue(ctx, "setRandom", map[string]bool{"random": on})
	return err
}

// GetStatus issues getStatus and decodes the response into a PlayerState; it
// also primes/re-primes the session's cache on connect and reconnect.
func (s *Session) GetStatus(ctx context.Context) (envelope.PlayerState, error) {
	data, err := s.issue(ctx, "getStatus", nil)
	if err != nil {
		return envelope.PlayerState{}, err
	}
	var st envelope.PlayerState
	if err := json.Unmarshal(data, &st); err != nil {
		return envelope.PlayerState{}, fmt.Errorf("client: decode getStatus response: %w", err)
	}

	s.mu.Lock()
	s.lastState = &st
	s.mu.Unlock()

	return st, nil
}

func (s *Session) GetPlaylists(ctx context.Context) ([]player.Playlist, error) {
	data, err := s.issue(ctx, "getPlaylists", nil)
	if err != nil {
		return nil, err
	}
	var body struct {
		Playlists []player.Playlist `json:"playlists"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("client: decode getPlaylists response: %w", err)
	}

	s.mu.Lock()
	s.playlists = body.Playlists
	s.mu.Unlock()

	return body.Playlists, nil
}

func (s *Session) PlayPlaylist(ctx context.Context, name string) error {
	_, err := s.issue(ctx, "playPlaylist", map[string]string{"name": name})
	return err
}

func (s *Session) GetPlaylistSongs(ctx context.Context, name string) ([]envelope.SongMeta, error) {
	data, err := s.issue(ctx, "getPlaylistSongs", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var body struct {
		Songs []envelope.SongMeta `json:"songs"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("client: decode getPlaylistSongs response: %w", err)
	}
	return body.Songs, nil
}

func (s *Session) CreatePlaylist(ctx context.Context, name string, files []string) error {
	_, err := s.issue(ctx, "createPlaylist", map[string]interface{}{"name": name, "files": files})
	return err
}

func (s *Session) DeletePlaylist(ctx context.Context, name string) error {
	_, err := s.issue(ctx, "deletePlaylist", map[string]string{"name": name})
	return err
}

// PlayTrack asks the device to play the track at a zero-based position in its
// active playlist, counted the way the track lists from GetPlaylists and
// GetPlaylistSongs are ordered. The device answers an index outside the
// active playlist with an invalid-argument failure.
func (s *Session) PlayTrack(ctx context.Context, index int) error {
	_, err := s.issue(ctx, "playTrack", map[string]int{"index": index})
	return err
}

func (s *Session) AddTrack(ctx context.Context, file, playlist string) error {
	_, err := s.issue(ctx, "addTrack", map[string]string{"file": file, "playlist": playlist})
	return err
}

func (s *Session) RemoveTrack(ctx context.Context, index int, playlist string) error {
	_, err := s.issue(ctx, "removeTrack", map[string]interface{}{"index": index, "playlist": playlist})
	return err
}

func (s *Session) ReorderTrack(ctx context.Context, from, to int, playlist string) error {
	_, err := s.issue(ctx, "reorderTrack", map[string]interface{}{"from": from, "to": to, "playlist": playlist})
	return err
}
