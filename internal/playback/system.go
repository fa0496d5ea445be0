package playback

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/alexhartley/chattervox/internal/voice"
)

// SystemSpeaker drives the host speech engine via its command-line
// frontend (espeak-ng/espeak on Linux, say on macOS). Playback completion
// is the subprocess exiting; the engine plays straight to the default
// output device.
type SystemSpeaker struct {
	command  string
	registry *voice.Registry
}

// NewSystemSpeaker resolves which speech command to use. "auto" probes the
// platform-typical candidates; "none" yields a speaker that completes
// instantly, for headless hosts.
func NewSystemSpeaker(command string, registry *voice.Registry) (*SystemSpeaker, error) {
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "auto" {
		candidates := []string{"espeak-ng", "espeak"}
		if runtime.GOOS == "darwin" {
			candidates = []string{"say", "espeak-ng", "espeak"}
		}
		command = "none"
		for _, c := range candidates {
			if _, err := exec.LookPath(c); err == nil {
				command = c
				break
			}
		}
	} else if command != "none" {
		if _, err := exec.LookPath(command); err != nil {
			return nil, fmt.Errorf("speech command %q not found on PATH: %w", command, err)
		}
	}
	return &SystemSpeaker{command: command, registry: registry}, nil
}

func (s *SystemSpeaker) Name() string { return "system" }

// Command reports the resolved speech command ("none" when muted).
func (s *SystemSpeaker) Command() string { return s.command }

func (s *SystemSpeaker) Speak(ctx context.Context, u Utterance) error {
	if s.command == "none" {
		return nil
	}

	// A System ref only holds while its index points into the loaded voice
	// list; otherwise fall back soft to the engine default.
	var handle string
	if u.Voice.Kind == voice.KindSystem && s.registry != nil {
		if v, ok := s.registry.Voice(u.Voice.Index); ok {
			handle = v.Handle
		}
	}

	var args []string
	switch s.command {
	case "say":
		if handle != "" {
			args = append(args, "-v", handle)
		}
		if u.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(int(u.Rate*175)))
		}
		args = append(args, u.Text)
	default: // espeak-ng / espeak
		if handle != "" {
			args = append(args, "-v", handle)
		}
		if u.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(int(u.Rate*175)))
		}
		if u.Pitch > 0 {
			pitch := int(u.Pitch * 50)
			if pitch > 99 {
				pitch = 99
			}
			args = append(args, "-p", strconv.Itoa(pitch))
		}
		if u.Volume >= 0 {
			amp := int(u.Volume * 100)
			if amp > 200 {
				amp = 200
			}
			args = append(args, "-a", strconv.Itoa(amp))
		}
		args = append(args, u.Text)
	}

	cmd := exec.CommandContext(ctx, s.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %s: %w", s.command, msg, err)
		}
		return fmt.Errorf("%s: %w", s.command, err)
	}
	return nil
}

// ListVoices enumerates the engine's voices for the registry. The list can
// take a moment on some hosts, so callers load it asynchronously.
func (s *SystemSpeaker) ListVoices(ctx context.Context) ([]voice.SystemVoice, error) {
	switch s.command {
	case "none":
		return nil, nil
	case "say":
		out, err := exec.CommandContext(ctx, "say", "-v", "?").Output()
		if err != nil {
			return nil, fmt.Errorf("enumerate say voices: %w", err)
		}
		return parseSayVoices(out), nil
	default:
		out, err := exec.CommandContext(ctx, s.command, "--voices").Output()
		if err != nil {
			return nil, fmt.Errorf("enumerate %s voices: %w", s.command, err)
		}
		return parseEspeakVoices(out), nil
	}
}

// parseSayVoices parses `say -v ?` output: "Name    lang_TAG    # sample".
func parseSayVoices(out []byte) []voice.SystemVoice {
	var voices []voice.SystemVoice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		comment := strings.Index(line, "#")
		if comment >= 0 {
			line = line[:comment]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, voice.SystemVoice{
			Handle:      name,
			DisplayName: name,
			LanguageTag: strings.ReplaceAll(lang, "_", "-"),
		})
	}
	return voices
}

// parseEspeakVoices parses `espeak-ng --voices` output, skipping the
// header row: "Pty Language Age/Gender VoiceName File Other Languages".
func parseEspeakVoices(out []byte) []voice.SystemVoice {
	var voices []voice.SystemVoice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		voices = append(voices, voice.SystemVoice{
			Handle:      fields[3],
			DisplayName: fields[3],
			LanguageTag: fields[1],
		})
	}
	return voices
}
