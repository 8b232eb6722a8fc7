package player

import (
	"testing"
	"time"
)

func TestFakePlayAdvancesPositionMonotonically(t *testing.T) {
	f := NewFake()
	if err := f.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}

	st1, err := f.GetStatus()
	if err != nil {
		t.Fatalf("getStatus: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	st2, err := f.GetStatus()
	if err != nil {
		t.Fatalf("getStatus: %v", err)
	}

	if st1.CurrentSong == nil || st2.CurrentSong == nil {
		t.Fatal("expected a current song while playing")
	}
	if st2.CurrentSong.PositionSeconds <= st1.CurrentSong.PositionSeconds {
		t.Fatalf("position did not advance: %f -> %f", st1.CurrentSong.PositionSeconds, st2.CurrentSong.PositionSeconds)
	}
}

func TestFakeSetVolumeBoundaryRejection(t *testing.T) {
	f := NewFake()
	if err := f.SetVolume(-1); err == nil {
		t.Fatal("expected error for volume -1")
	}
	if err := f.SetVolume(101); err == nil {
		t.Fatal("expected error for volume 101")
	}
	if err := f.SetVolume(100); err != nil {
		t.Fatalf("unexpected error for volume 100: %v", err)
	}
}

func TestFakePlayTrackRejectsStaleIndex(t *testing.T) {
	f := NewFake()
	if err := f.PlayTrack(99); err == nil {
		t.Fatal("expected error for out-of-range track index")
	}
	if err := f.PlayTrack(0); err != nil {
		t.Fatalf("unexpected error for valid index: %v", err)
	}
}

func TestFakeDeletePlaylistClearsActiveSelection(t *testing.T) {
	f := NewFake()
	if err := f.DeletePlaylist("Favorites"); err != nil {
		t.Fatalf("deletePlaylist: %v", err)
	}
	st, err := f.GetStatus()
	if err != nil {
		t.Fatalf("getStatus: %v", err)
	}
	if st.State != "stopped" {
		t.Fatalf("state = %q, want stopped after deleting active playlist", st.State)
	}
}

func TestFakeReorderTrack(t *testing.T) {
	f := NewFake()
	if err := f.CreatePlaylist("List", []string{"a.mp3", "b.mp3", "c.mp3"}); err != nil {
		t.Fatalf("createPlaylist: %v", err)
	}
	if err := f.ReorderTrack(0, 2, "List"); err != nil {
		t.Fatalf("reorderTrack: %v", err)
	}
	songs, err := f.GetPlaylistSongs("List")
	if err != nil {
		t.Fatalf("getPlaylistSongs: %v", err)
	}
	if songs[2].File != "a.mp3" {
		t.Fatalf("songs[2].File = %q, want a.mp3 after moving index 0 to 2", songs[2].File)
	}
}
