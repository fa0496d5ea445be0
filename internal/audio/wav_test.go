package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestWAVEncodeDecodeRoundTrip(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0x34, 0x12}

	wav, err := EncodeWAVPCM16LE(pcm, 22050)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error: %v", err)
	}
	got, rate, err := DecodeWAVPCM16LE(wav)
	if err != nil {
		t.Fatalf("DecodeWAVPCM16LE() error: %v", err)
	}
	if rate != 22050 {
		t.Fatalf("sample rate = %d, want 22050", rate)
	}
	if !bytes.Equal(got, pcm) {
		t.Fatalf("decoded pcm = %v, want %v", got, pcm)
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// Two frames of stereo: (100, 300) and (-200, 0).
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[0:], uint16(int16(100)))
	binary.LittleEndian.PutUint16(data[2:], uint16(int16(300)))
	negSample := int16(-200)
	binary.LittleEndian.PutUint16(data[4:], uint16(negSample))
	binary.LittleEndian.PutUint16(data[6:], uint16(int16(0)))

	wav := buildWAV(t, 2, 44100, 16, data)
	mono, rate, err := DecodeWAVPCM16LE(wav)
	if err != nil {
		t.Fatalf("DecodeWAVPCM16LE() error: %v", err)
	}
	if rate != 44100 {
		t.Fatalf("sample rate = %d, want 44100", rate)
	}
	if len(mono) != 4 {
		t.Fatalf("mono length = %d, want 4", len(mono))
	}
	if s := int16(binary.LittleEndian.Uint16(mono[0:])); s != 200 {
		t.Fatalf("frame 0 = %d, want 200", s)
	}
	if s := int16(binary.LittleEndian.Uint16(mono[2:])); s != -100 {
		t.Fatalf("frame 1 = %d, want -100", s)
	}
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	wav := buildWAV(t, 1, 16000, 16, []byte{0, 0})
	// Flip the audio format field to 3 (IEEE float).
	binary.LittleEndian.PutUint16(wav[20:], 3)
	if _, _, err := DecodeWAVPCM16LE(wav); err == nil {
		t.Fatal("float WAV decoded without error")
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("RIFF"), []byte("not audio at all")} {
		if _, _, err := DecodeWAVPCM16LE(in); err == nil {
			t.Fatalf("garbage input %q decoded without error", in)
		}
	}
}

func TestResamplePCM16LE(t *testing.T) {
	in := make([]byte, 8)
	for i, s := range []int16{0, 100, 200, 300} {
		binary.LittleEndian.PutUint16(in[i*2:], uint16(s))
	}

	same := ResamplePCM16LE(in, 16000, 16000)
	if !bytes.Equal(same, in) {
		t.Fatal("identity resample altered samples")
	}

	up := ResamplePCM16LE(in, 16000, 32000)
	if len(up) != 16 {
		t.Fatalf("upsampled length = %d, want 16", len(up))
	}
	if s := int16(binary.LittleEndian.Uint16(up[0:])); s != 0 {
		t.Fatalf("first upsampled value = %d, want 0", s)
	}

	down := ResamplePCM16LE(in, 32000, 16000)
	if len(down) != 4 {
		t.Fatalf("downsampled length = %d, want 4", len(down))
	}
}

// buildWAV assembles a minimal WAV container for decode tests.
func buildWAV(t *testing.T, channels uint16, rate uint32, bits uint16, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, rate)
	binary.Write(&buf, binary.LittleEndian, rate*uint32(channels)*uint32(bits)/8)
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&buf, binary.LittleEndian, bits)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}
