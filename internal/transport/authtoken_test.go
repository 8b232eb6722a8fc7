package transport

import (
	"testing"
	"time"
)

func TestTokenManagerGenerateVerifyRoundTrip(t *testing.T) {
	mgr := NewTokenManager("shared-secret", time.Hour)

	token, err := mgr.Generate("device-123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.DeviceID != "device-123" {
		t.Fatalf("deviceId = %q, want device-123", claims.DeviceID)
	}
}

func TestTokenManagerVerifyRejectsExpiredToken(t *testing.T) {
	mgr := NewTokenManager("shared-secret", -time.Minute)

	token, err := mgr.Generate("device-123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := mgr.Verify(token); err == nil {
		t.Fatal("expected error verifying an already-expired token")
	}
}

func TestTokenManagerVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("issuer-secret", time.Hour)
	verifier := NewTokenManager("other-secret", time.Hour)

	token, err := issuer.Generate("device-123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected error verifying a token signed with a different secret")
	}
}
