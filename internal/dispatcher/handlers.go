package dispatcher

import (
	"encoding/json"
	"fmt"

	"amora/internal/errs"
	"amora/internal/player"
)

// RegisterStandardHandlers wires every player operation to p using the
// dispatcher's handler registry. Extension commands can be registered
// separately via Dispatcher.Register.
func RegisterStandardHandlers(d *Dispatcher, p player.Player) {
	d.Register("play", noParamHandler(p.Play, "play ok"))
	d.Register("pause", noParamHandler(p.Pause, "pause ok"))
	d.Register("stop", noParamHandler(p.Stop, "stop ok"))
	d.Register("next", noParamHandler(p.Next, "next ok"))
	d.Register("previous", noParamHandler(p.Previous, "previous ok"))
	d.Register("updateDatabase", noParamHandler(p.UpdateDatabase, "update database ok"))

	d.Register("setVolume", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Volume int `json:"volume"`
		}
		if err := json.Unmarshal(params, &body); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrMalformedMessage, err), nil
		}
		if body.Volume < 0 || body.Volume > 100 {
			return false, fmt.Sprintf("%s: volume must be 0..100", errs.ErrInvalidArgument), nil
		}
		if err := p.SetVolume(body.Volume); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "set volume ok", nil
	})

	d.Register("getVolume", func(params json.RawMessage) (bool, string, interface{}) {
		v, err := p.GetVolume()
		if err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "get volume ok", map[string]int{"volume": v}
	})

	d.Register("setRepeat", boolParamHandler(p.SetRepeat, "repeat", "set repeat ok"))
	d.Register("setRandom", boolParamHandler(p.SetRandom, "random", "set random ok"))

	d.Register("getStatus", func(params json.RawMessage) (bool, string, interface{}) {
		st, err := p.GetStatus()
		if err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "get status ok", st
	})

	d.Register("getPlaylists", func(params json.RawMessage) (bool, string, interface{}) {
		lists, err := p.GetPlaylists()
		if err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "get playlists ok", map[string]interface{}{"playlists": lists}
	})

	d.Register("playPlaylist", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(params, &body); err != nil || body.Name == "" {
			return false, fmt.Sprintf("%s: name required", errs.ErrMalformedMessage), nil
		}
		if err := p.PlayPlaylist(body.Name); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "play playlist ok", nil
	})

	d.Register("getPlaylistSongs", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(params, &body); err != nil || body.Name == "" {
			return false, fmt.Sprintf("%s: name required", errs.ErrMalformedMessage), nil
		}
		songs, err := p.GetPlaylistSongs(body.Name)
		if err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "get playlist songs ok", map[string]interface{}{"songs": songs}
	})

	d.Register("createPlaylist", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Name  string   `json:"name"`
			Files []string `json:"files"`
		}
		if err := json.Unmarshal(params, &body); err != nil || body.Name == "" {
			return false, fmt.Sprintf("%s: name required", errs.ErrMalformedMessage), nil
		}
		if err := p.CreatePlaylist(body.Name, body.Files); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "create playlist ok", nil
	})

	d.Register("deletePlaylist", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(params, &body); err != nil || body.Name == "" {
			return false, fmt.Sprintf("%s: name required", errs.ErrMalformedMessage), nil
		}
		if err := p.DeletePlaylist(body.Name); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "delete playlist ok", nil
	})

	d.Register("playTrack", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(params, &body); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrMalformedMessage, err), nil
		}
		if err := p.PlayTrack(body.Index); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrInvalidArgument, err), nil
		}
		return true, "play track ok", nil
	})

	d.Register("addTrack", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			File     string `json:"file"`
			Playlist string `json:"playlist"`
		}
		if err := json.Unmarshal(params, &body); err != nil || body.File == "" {
			return false, fmt.Sprintf("%s: file required", errs.ErrMalformedMessage), nil
		}
		if err := p.AddTrack(body.File, body.Playlist); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, "add track ok", nil
	})

	d.Register("removeTrack", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			Index    int    `json:"index"`
			Playlist string `json:"playlist"`
		}
		if err := json.Unmarshal(params, &body); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrMalformedMessage, err), nil
		}
		if err := p.RemoveTrack(body.Index, body.Playlist); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrInvalidArgument, err), nil
		}
		return true, "remove track ok", nil
	})

	d.Register("reorderTrack", func(params json.RawMessage) (bool, string, interface{}) {
		var body struct {
			From     int    `json:"from"`
			To       int    `json:"to"`
			Playlist string `json:"playlist"`
		}
		if err := json.Unmarshal(params, &body); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrMalformedMessage, err), nil
		}
		if err := p.ReorderTrack(body.From, body.To, body.Playlist); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrInvalidArgument, err), nil
		}
		return true, "reorder track ok", nil
	})
}

func noParamHandler(op func() error, okMessage string) HandlerFunc {
	return func(params json.RawMessage) (bool, string, interface{}) {
		if err := op(); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, okMessage, nil
	}
}

func boolParamHandler(op func(bool) error, field, okMessage string) HandlerFunc {
	return func(params json.RawMessage) (bool, string, interface{}) {
		var body map[string]bool
		if err := json.Unmarshal(params, &body); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrMalformedMessage, err), nil
		}
		v, ok := body[field]
		if !ok {
			return false, fmt.Sprintf("%s: %s required", errs.ErrMalformedMessage, field), nil
		}
		if err := op(v); err != nil {
			return false, fmt.Sprintf("%s: %s", errs.ErrHandlerFailure, err), nil
		}
		return true, okMessage, nil
	}
}
