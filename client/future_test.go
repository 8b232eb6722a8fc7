package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFutureResolve(t *testing.T) {
	f := newFuture()
	f.resolve(json.RawMessage(`{"ok":true}`))

	data, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("data = %s, want {\"ok\":true}", data)
	}
}

func TestFutureReject(t *testing.T) {
	f := newFuture()
	wantErr := errors.New("boom")
	f.reject(wantErr)

	_, err := f.Wait(context.Background())
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestFutureFirstOutcomeWins(t *testing.T) {
	f := newFuture()
	f.resolve(json.RawMessage(`"first"`))
	f.reject(errors.New("second"))

	data, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"first"` {
		t.Fatalf("data = %s, want \"first\"", data)
	}
}

func TestFutureWaitRespectsContextCancellation(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if err == nil {
		t.Fatal("expected context deadline error")
	}
}
