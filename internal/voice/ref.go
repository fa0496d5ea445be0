package voice

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the synthesis target a Ref points at.
type Kind int

const (
	// KindEngineDefault lets the system speech engine pick its own voice.
	KindEngineDefault Kind = iota
	KindSystem
	KindCloned
	KindRemoteAI
)

// Ref is a tagged reference to a synthesis target. Exactly one of Index,
// Name, ID is meaningful depending on Kind. The zero value is the engine
// default, which is always a usable fallback.
type Ref struct {
	Kind  Kind
	Index int    // system voice index, valid for KindSystem
	Name  string // cloned voice name, valid for KindCloned
	ID    string // remote voice id, valid for KindRemoteAI
}

func EngineDefault() Ref       { return Ref{} }
func System(index int) Ref     { return Ref{Kind: KindSystem, Index: index} }
func Cloned(name string) Ref   { return Ref{Kind: KindCloned, Name: name} }
func RemoteAI(id string) Ref   { return Ref{Kind: KindRemoteAI, ID: id} }

// Persisted string prefixes. These match what earlier versions of the app
// stored, so existing assignments keep decoding.
const (
	prefixSystem   = "system-"
	prefixCloned   = "cloned-"
	prefixRemoteAI = "elevenlabs-"
)

// Encode renders a Ref in its persisted/wire form. The engine default
// encodes as the empty string.
func (r Ref) Encode() string {
	switch r.Kind {
	case KindSystem:
		return prefixSystem + strconv.Itoa(r.Index)
	case KindCloned:
		return prefixCloned + r.Name
	case KindRemoteAI:
		return prefixRemoteAI + r.ID
	default:
		return ""
	}
}

// ParseRef decodes the persisted/wire form. Anything unrecognized decodes
// to the engine default rather than failing; resolution must always
// produce a usable target.
func ParseRef(raw string) Ref {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, prefixSystem):
		n, err := strconv.Atoi(raw[len(prefixSystem):])
		if err != nil || n < 0 {
			return EngineDefault()
		}
		return System(n)
	case strings.HasPrefix(raw, prefixCloned):
		name := raw[len(prefixCloned):]
		if name == "" {
			return EngineDefault()
		}
		return Cloned(name)
	case strings.HasPrefix(raw, prefixRemoteAI):
		id := raw[len(prefixRemoteAI):]
		if id == "" {
			return EngineDefault()
		}
		return RemoteAI(id)
	default:
		return EngineDefault()
	}
}

// String returns a human-readable form for logs and notices.
func (r Ref) String() string {
	switch r.Kind {
	case KindSystem:
		return fmt.Sprintf("system voice #%d", r.Index)
	case KindCloned:
		return fmt.Sprintf("cloned voice %q", r.Name)
	case KindRemoteAI:
		return fmt.Sprintf("AI voice %q", r.ID)
	default:
		return "engine default"
	}
}
