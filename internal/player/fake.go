package player

import (
	"fmt"
	"sync"
	"time"

	"amora/internal/envelope"
)

// Fake is a minimal in-memory Player used by tests and the demo bridge
// binary. It is not a daemon integration — it exists only so the rest of
// this module has a concrete capability to drive. Position advances with
// wall-clock time while playing, the way a real daemon's would.
type Fake struct {
	mu sync.Mutex

	state    envelope.PlaybackState
	volume   int
	repeat   bool
	random   bool
	playlist string

	playlists map[string][]envelope.SongMeta
	trackIdx  int // index into playlists[playlist], -1 if none

	basePosition float64
	playedSince  time.Time // zero when not playing
}

// NewFake returns a Fake stopped at volume 50 with one seeded playlist.
func NewFake() *Fake {
	return &Fake{
		state:  envelope.StateStopped,
		volume: 50,
		playlists: map[string][]envelope.SongMeta{
			"Favorites": {
				{Title: "Song A", Artist: "Artist A", File: "a.mp3", DurationSeconds: 180},
				{Title: "Song B", Artist: "Artist B", File: "b.mp3", DurationSeconds: 210},
			},
		},
		playlist: "Favorites",
		trackIdx: -1,
	}
}

func (f *Fake) currentPosition() float64 {
	if f.playedSince.IsZero() {
		return f.basePosition
	}
	return f.basePosition + time.Since(f.playedSince).Seconds()
}

func (f *Fake) currentSongLocked() *envelope.SongMeta {
	tracks := f.playlists[f.playlist]
	if f.trackIdx < 0 || f.trackIdx >= len(tracks) {
		return nil
	}
	song := tracks[f.trackIdx]
	song.PositionSeconds = f.currentPosition()
	if song.PositionSeconds > song.DurationSeconds {
		song.PositionSeconds = song.DurationSeconds
	}
	song.IsCurrent = true
	return &song
}

func (f *Fake) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.trackIdx < 0 {
		tracks := f.playlists[f.playlist]
		if len(tracks) == 0 {
			return fmt.Errorf("player: no tracks to play")
		}
		f.trackIdx = 0
	}
	f.state = envelope.StatePlaying
	f.playedSince = time.Now()
	return nil
}

func (f *Fake) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.basePosition = f.currentPosition()
	f.playedSince = time.Time{}
	f.state = envelope.StatePaused
	return nil
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.basePosition = 0
	f.playedSince = time.Time{}
	f.state = envelope.StateStopped
	return nil
}

func (f *Fake) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tracks := f.playlists[f.playlist]
	if len(tracks) == 0 {
		return fmt.Errorf("player: no tracks")
	}
	f.trackIdx = (f.trackIdx + 1) % len(tracks)
	f.basePosition = 0
	if !f.playedSince.IsZero() {
		f.playedSince = time.Now()
	}
	return nil
}

func (f *Fake) Previous() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tracks := f.playlists[f.playlist]
	if len(tracks) == 0 {
		return fmt.Errorf("player: no tracks")
	}
	f.trackIdx = (f.trackIdx - 1 + len(tracks)) % len(tracks)
	f.basePosition = 0
	if !f.playedSince.IsZero() {
		f.playedSince = time.Now()
	}
	return nil
}

func (f *Fake) SetVolume(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("player: volume %d out of range", v)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
	return nil
}

func (f *Fake) GetVolume() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume, nil
}

func (f *Fake) GetStatus() (envelope.PlayerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := envelope.PlayerState{
		State:       f.state,
		CurrentSong: f.currentSongLocked(),
		Volume:      f.volume,
		Repeat:      f.repeat,
		Random:      f.random,
		Playlist:    f.playlist,
	}
	for _, s := range f.playlists[f.playlist] {
		st.PlaylistTracks = append(st.PlaylistTracks, s)
	}
	if len(st.PlaylistTracks) > 0 && f.trackIdx >= 0 && f.trackIdx < len(st.PlaylistTracks) {
		st.PlaylistTracks[f.trackIdx].IsCurrent = true
	}
	st.Clamp()
	return st, nil
}

func (f *Fake) GetPlaylists() ([]Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Playlist, 0, len(f.playlists))
	for name, items := range f.playlists {
		out = append(out, Playlist{Name: name, Items: append([]envelope.SongMeta(nil), items...)})
	}
	return out, nil
}

func (f *Fake) PlayPlaylist(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.playlists[name]; !ok {
		return fmt.Errorf("player: unknown playlist %q", name)
	}
	f.playlist = name
	f.trackIdx = 0
	f.basePosition = 0
	f.playedSince = time.Now()
	f.state = envelope.StatePlaying
	return nil
}

func (f *Fake) GetPlaylistSongs(name string) ([]envelope.SongMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tracks, ok := f.playlists[name]
	if !ok {
		return nil, fmt.Errorf("player: unknown playlist %q", name)
	}
	return append([]envelope.SongMeta(nil), tracks...), nil
}

func (f *Fake) CreatePlaylist(name string, files []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.playlists[name]; ok {
		return fmt.Errorf("player: playlist %q already exists", name)
	}
	tracks := make([]envelope.SongMeta, 0, len(files))
	for _, file := range files {
		tracks = append(tracks, envelope.SongMeta{File: file, DurationSeconds: 180})
	}
	f.playlists[name] = tracks
	return nil
}

func (f *Fake) DeletePlaylist(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.playlists[name]; !ok {
		return fmt.Errorf("player: unknown playlist %q", name)
	}
	delete(f.playlists, name)
	if f.playlist == name {
		f.playlist = ""
		f.trackIdx = -1
		f.state = envelope.StateStopped
	}
	return nil
}

// PlayTrack plays the track at index into the active playlist as most
// recently enumerated by GetPlaylists/GetPlaylistSongs. An index the playlist
// no longer has (e.g. after a removal shortened it) is rejected rather than
// guessed at; an index still in range after a reorder plays whichever track
// now sits there.
func (f *Fake) PlayTrack(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tracks := f.playlists[f.playlist]
	if index < 0 || index >= len(tracks) {
		return fmt.Errorf("player: track index %d out of range for playlist %q", index, f.playlist)
	}
	f.trackIdx = index
	f.basePosition = 0
	f.playedSince = time.Now()
	f.state = envelope.StatePlaying
	return nil
}

func (f *Fake) AddTrack(file string, playlist string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if playlist == "" {
		playlist = f.playlist
	}
	tracks, ok := f.playlists[playlist]
	if !ok {
		return fmt.Errorf("player: unknown playlist %q", playlist)
	}
	f.playlists[playlist] = append(tracks, envelope.SongMeta{File: file, DurationSeconds: 180})
	return nil
}

func (f *Fake) RemoveTrack(index int, playlist string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if playlist == "" {
		playlist = f.playlist
	}
	tracks, ok := f.playlists[playlist]
	if !ok || index < 0 || index >= len(tracks) {
		return fmt.Errorf("player: track index %d out of range for playlist %q", index, playlist)
	}
	f.playlists[playlist] = append(tracks[:index], tracks[index+1:]...)
	if playlist == f.playlist && f.trackIdx >= len(f.playlists[playlist]) {
		f.trackIdx = len(f.playlists[playlist]) - 1
	}
	return nil
}

func (f *Fake) ReorderTrack(from, to int, playlist string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if playlist == "" {
		playlist = f.playlist
	}
	tracks, ok := f.playlists[playlist]
	if !ok || from < 0 || from >= len(tracks) || to < 0 || to >= len(tracks) {
		return fmt.Errorf("player: reorder indices out of range for playlist %q", playlist)
	}
	item := tracks[from]
	tracks = append(tracks[:from], tracks[from+1:]...)
	tracks = append(tracks[:to], append([]envelope.SongMeta{item}, tracks[to:]...)...)
	f.playlists[playlist] = tracks
	return nil
}

func (f *Fake) SetRepeat(b bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repeat = b
	return nil
}

func (f *Fake) SetRandom(b bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.random = b
	return nil
}

func (f *Fake) UpdateDatabase() error {
	return nil
}
