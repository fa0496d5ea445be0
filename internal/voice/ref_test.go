package voice

import "testing"

func TestRefEncodeParseRoundTrip(t *testing.T) {
	refs := []Ref{
		EngineDefault(),
		System(0),
		System(7),
		Cloned("narrator"),
		RemoteAI("21m00Tcm4TlvDq8ikWAM"),
	}
	for _, ref := range refs {
		got := ParseRef(ref.Encode())
		if got != ref {
			t.Fatalf("ParseRef(%q) = %+v, want %+v", ref.Encode(), got, ref)
		}
	}
}

func TestParseRefUnknownFallsBackToEngineDefault(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"system-",
		"system--1",
		"system-abc",
		"cloned-",
		"elevenlabs-",
		"SYSTEM-2",
	}
	for _, raw := range cases {
		if got := ParseRef(raw); got != EngineDefault() {
			t.Fatalf("ParseRef(%q) = %+v, want engine default", raw, got)
		}
	}
}

func TestRefString(t *testing.T) {
	if got := System(3).String(); got != "system voice #3" {
		t.Fatalf("System(3).String() = %q", got)
	}
	if got := Cloned("bob").String(); got != `cloned voice "bob"` {
		t.Fatalf("Cloned(bob).String() = %q", got)
	}
	if got := EngineDefault().String(); got != "engine default" {
		t.Fatalf("EngineDefault().String() = %q", got)
	}
}
