package topic

import "testing"

func TestBuildParseRoundTrip(t *testing.T) {
	cases := []struct {
		prefix   string
		deviceID string
		kind     Kind
	}{
		{"amora/devices", "living-room", KindState},
		{"amora/devices", "living-room", KindCommands},
		{"custom/prefix/segment", "kitchen-pi", KindResponses},
		{"amora/devices", "device-42", KindConnection},
	}

	for _, c := range cases {
		built := Build(c.prefix, c.deviceID, c.kind)
		parsed, err := Parse(built)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", built, err)
		}
		if parsed.Prefix != c.prefix || parsed.DeviceID != c.deviceID || parsed.Kind != c.kind {
			t.Fatalf("round trip mismatch: got %+v, want prefix=%s deviceID=%s kind=%s", parsed, c.prefix, c.deviceID, c.kind)
		}
	}
}

func TestParseRejectsUnknownKind(t *testing.T) {
	if _, err := Parse("amora/devices/living-room/bogus"); err == nil {
		t.Fatal("expected error for unrecognized topic kind")
	}
}

func TestParseRejectsTooFewSegments(t *testing.T) {
	if _, err := Parse("state"); err == nil {
		t.Fatal("expected error for too few segments")
	}
}

func TestNamespaceHelpers(t *testing.T) {
	ns := Namespace{Prefix: DefaultPrefix, DeviceID: "office"}
	if got, want := ns.State(), "amora/devices/office/state"; got != want {
		t.Fatalf("State() = %q, want %q", got, want)
	}
	if got, want := ns.Commands(), "amora/devices/office/commands"; got != want {
		t.Fatalf("Commands() = %q, want %q", got, want)
	}
	if got, want := ns.Responses(), "amora/devices/office/responses"; got != want {
		t.Fatalf("Responses() = %q, want %q", got, want)
	}
	if got, want := ns.Connection(), "amora/devices/office/connection"; got != want {
		t.Fatalf("Connection() = %q, want %q", got, want)
	}
}
