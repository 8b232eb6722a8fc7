package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"amora/internal/envelope"
	"amora/internal/errs"
	"amora/internal/topic"
	"amora/internal/transport"
	"amora/internal/transport/faketransport"
)

func newTestSession(t *testing.T, commandTimeoutSeconds int) (*Session, *faketransport.Adapter, topic.Namespace) {
	t.Helper()
	broker := faketransport.NewBroker()
	clientAdapter := faketransport.New(broker)
	deviceAdapter := faketransport.New(broker)
	if err := deviceAdapter.Connect(context.Background()); err != nil {
		t.Fatalf("connect device adapter: %v", err)
	}

	ns := topic.Namespace{Prefix: topic.DefaultPrefix, DeviceID: "session-test"}
	cfg := Config{TopicPrefix: ns.Prefix, DeviceID: ns.DeviceID, CommandTimeoutSeconds: commandTimeoutSeconds}
	s := New(cfg, clientAdapter, zerolog.Nop())
	return s, deviceAdapter, ns
}

// echoCommand makes deviceAdapter answer every inbound command on ns.Commands()
// with a canned successful response carrying the given data.
func echoCommand(t *testing.T, deviceAdapter *faketransport.Adapter, ns topic.Namespace, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := deviceAdapter.Subscribe(ns.Commands(), 1); err != nil {
		t.Fatalf("subscribe commands: %v", err)
	}
	deviceAdapter.OnMessage(func(msg transport.Message) {
		cmd, err := envelope.DecodeCommand(msg.Payload)
		if err != nil {
			return
		}
		payload, _ := envelope.EncodeResponse(envelope.ResponseEnvelope{
			CommandID: cmd.CommandID,
			Result:    true,
			Data:      raw,
			Timestamp: envelope.NowTimestamp(),
		})
		_ = deviceAdapter.Publish(ns.Responses(), payload, 1, false)
	})
}

func TestSessionConnectPrimesCachedState(t *testing.T) {
	s, deviceAdapter, ns := newTestSession(t, 0)
	echoCommand(t, deviceAdapter, ns, envelope.PlayerState{State: envelope.StatePlaying, Volume: 33})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	st, ok := s.GetCachedPlayerState()
	if !ok {
		t.Fatal("expected cached player state after connect")
	}
	if st.State != envelope.StatePlaying || st.Volume != 33 {
		t.Fatalf("cached state = %+v, want playing/33", st)
	}
}

func TestSessionCommandRoundTrip(t *testing.T) {
	s, deviceAdapter, ns := newTestSession(t, 0)
	echoCommand(t, deviceAdapter, ns, map[string]int{"volume": 0})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if err := s.SetVolume(ctx, 55); err != nil {
		t.Fatalf("setVolume: %v", err)
	}
}

// TestSessionPositionChangeOnPlaybackStart covers the transition from a
// retained stopped state (no current song) to a playing state whose song
// has just started at position 0. The prime must not fire a spurious
// positionChange, but the stopped->playing transition must fire exactly
// one, even though the numeric position is 0 on both sides of the prime.
func TestSessionPositionChangeOnPlaybackStart(t *testing.T) {
	s, deviceAdapter, ns := newTestSession(t, 0)

	stoppedPayload, err := envelope.EncodeState(envelope.StateEnvelope{
		PlayerState: envelope.PlayerState{State: envelope.StateStopped},
		Timestamp:   envelope.NowTimestamp(),
	})
	if err != nil {
		t.Fatalf("encode stopped state: %v", err)
	}
	if err := deviceAdapter.Publish(ns.State(), stoppedPayload, 1, true); err != nil {
		t.Fatalf("publish retained stopped state: %v", err)
	}

	positionEvents := make(chan float64, 8)
	s.OnPositionChange(func(p float64) { positionEvents <- p })
	stateEvents := make(chan envelope.PlaybackState, 8)
	s.OnStateChange(func(st envelope.PlayerState) { stateEvents <- st.State })

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer connectCancel()
	if err := s.Connect(connectCtx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	select {
	case st := <-stateEvents:
		if st != envelope.StateStopped {
			t.Fatalf("primed stateChange = %q, want stopped", st)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for primed stateChange")
	}

	select {
	case p := <-positionEvents:
		t.Fatalf("unexpected positionChange(%v) on prime, want none", p)
	case <-time.After(50 * time.Millisecond):
	}

	playingPayload, err := envelope.EncodeState(envelope.StateEnvelope{
		PlayerState: envelope.PlayerState{
			State:       envelope.StatePlaying,
			CurrentSong: &envelope.SongMeta{File: "a.mp3", PositionSeconds: 0},
		},
		Timestamp: envelope.NowTimestamp(),
	})
	if err != nil {
		t.Fatalf("encode playing state: %v", err)
	}
	if err := deviceAdapter.Publish(ns.State(), playingPayload, 1, true); err != nil {
		t.Fatalf("publish playing state: %v", err)
	}

	select {
	case st := <-stateEvents:
		if st != envelope.StatePlaying {
			t.Fatalf("stateChange = %q, want playing", st)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stateChange(playing)")
	}

	select {
	case p := <-positionEvents:
		if p != 0 {
			t.Fatalf("positionChange = %v, want 0", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for positionChange(0) on playback start")
	}
}

func TestSessionCommandTimesOutWithoutResponse(t *testing.T) {
	s, _, _ := newTestSession(t, 1) // no device listener registered: nothing ever replies

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	err := s.Play(waitCtx)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSessionDisconnectRejectsPendingCommands(t *testing.T) {
	s, _, _ := newTestSession(t, 30)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Play(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	s.Disconnect()

	select {
	case err := <-errCh:
		if err != errs.ErrDisconnected {
			t.Fatalf("err = %v, want %v", err, errs.ErrDisconnected)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pending command to reject on disconnect")
	}
}
