package envelope

import "testing"

func TestCommandEncodeDecodeRoundTrip(t *testing.T) {
	in := CommandEnvelope{
		Command:   "setVolume",
		CommandID: NewCommandID(),
		Params:    []byte(`{"volume":42}`),
		Timestamp: NowTimestamp(),
	}
	payload, err := EncodeCommand(in)
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	out, err := DecodeCommand(payload)
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if out.Command != in.Command || out.CommandID != in.CommandID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeCommandRejectsMissingFields(t *testing.T) {
	if _, err := DecodeCommand([]byte(`{"command":"play"}`)); err == nil {
		t.Fatal("expected error for missing commandId")
	}
}

func TestStateEncodeDecodeRoundTrip(t *testing.T) {
	in := StateEnvelope{
		PlayerState: PlayerState{
			State:  StatePlaying,
			Volume: 70,
			CurrentSong: &SongMeta{
				File:            "a.mp3",
				DurationSeconds: 180,
				PositionSeconds: 12.5,
			},
		},
		Timestamp: NowTimestamp(),
	}
	payload, err := EncodeState(in)
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}
	out, err := DecodeState(payload)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if !out.PlayerState.Equal(in.PlayerState) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out.PlayerState, in.PlayerState)
	}
}

func TestClampBoundsVolumeAndPosition(t *testing.T) {
	st := PlayerState{
		Volume: 150,
		CurrentSong: &SongMeta{
			DurationSeconds: 100,
			PositionSeconds: 250,
		},
	}
	st.Clamp()
	if st.Volume != 100 {
		t.Fatalf("volume = %d, want 100", st.Volume)
	}
	if st.CurrentSong.PositionSeconds != 100 {
		t.Fatalf("position = %f, want 100", st.CurrentSong.PositionSeconds)
	}

	st2 := PlayerState{Volume: -5, CurrentSong: &SongMeta{PositionSeconds: -1}}
	st2.Clamp()
	if st2.Volume != 0 || st2.CurrentSong.PositionSeconds != 0 {
		t.Fatalf("expected negative volume/position clamped to zero, got %+v", st2)
	}
}

func TestClassify(t *testing.T) {
	cmd, _ := EncodeCommand(CommandEnvelope{Command: "play", CommandID: NewCommandID()})
	resp, _ := EncodeResponse(ResponseEnvelope{CommandID: NewCommandID(), Result: true})
	state, _ := EncodeState(StateEnvelope{PlayerState: PlayerState{State: StatePlaying}})
	conn, _ := EncodeConnection(ConnectionEnvelope{Status: ConnectionOnline})

	cases := []struct {
		name string
		data []byte
		want Kind
	}{
		{"command", cmd, KindCommand},
		{"response", resp, KindResponse},
		{"state", state, KindState},
		{"connection", conn, KindConnection},
	}
	for _, c := range cases {
		got, err := Classify(c.data)
		if err != nil {
			t.Fatalf("%s: Classify error: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: Classify() = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestClassifyRejectsUnrecognizedShape(t *testing.T) {
	if _, err := Classify([]byte(`{"foo":"bar"}`)); err == nil {
		t.Fatal("expected error for unrecognized envelope shape")
	}
}
