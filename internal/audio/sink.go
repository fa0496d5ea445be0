package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink plays a mono PCM16LE clip to completion. Play blocks until the clip
// has finished or ctx is canceled; the speech scheduler relies on that
// blocking behavior for its one-utterance-at-a-time guarantee.
type Sink interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
	Close() error
}

// sinkRate is the fixed output rate of the device context. Clips at other
// rates are resampled on the way in; an oto context cannot change rate
// after creation.
const sinkRate = 48000

// OtoSink plays audio through the host's default output device.
type OtoSink struct {
	mu     sync.Mutex
	otoCtx *oto.Context
}

func NewOtoSink() *OtoSink {
	return &OtoSink{}
}

func (s *OtoSink) ensureContext() (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.otoCtx != nil {
		return s.otoCtx, nil
	}
	op := &oto.NewContextOptions{
		SampleRate:   sinkRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-ready
	s.otoCtx = otoCtx
	return otoCtx, nil
}

func (s *OtoSink) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	otoCtx, err := s.ensureContext()
	if err != nil {
		return err
	}

	if sampleRate != sinkRate {
		pcm = ResamplePCM16LE(pcm, sampleRate, sinkRate)
	}

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				return nil
			}
		}
	}
}

func (s *OtoSink) Close() error {
	// oto contexts have no Close; dropping the reference is all we can do.
	s.mu.Lock()
	s.otoCtx = nil
	s.mu.Unlock()
	return nil
}

// ResamplePCM16LE converts a mono PCM16LE clip between sample rates using
// linear interpolation. Good enough for speech.
func ResamplePCM16LE(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	inFrames := len(pcm) / 2
	if inFrames == 0 {
		return nil
	}
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	if outFrames == 0 {
		outFrames = 1
	}
	out := make([]byte, outFrames*2)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * float64(from) / float64(to)
		j := int(pos)
		if j >= inFrames-1 {
			j = inFrames - 1
		}
		a := int16(binary.LittleEndian.Uint16(pcm[j*2:]))
		v := float64(a)
		if j+1 < inFrames {
			b := int16(binary.LittleEndian.Uint16(pcm[(j+1)*2:]))
			frac := pos - float64(j)
			v = float64(a)*(1-frac) + float64(b)*frac
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// NullSink discards audio instantly. Used when the host has no output
// device and in tests.
type NullSink struct{}

func (NullSink) Play(ctx context.Context, _ []byte, _ int) error { return ctx.Err() }
func (NullSink) Close() error                                    { return nil }
