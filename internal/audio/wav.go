package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio bytes to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	w := bufio.NewWriter(out)

	// RIFF header.
	if _, err := w.WriteString("RIFF"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36)+dataSize); err != nil {
		return err
	}
	if _, err := w.WriteString("WAVE"); err != nil {
		return err
	}

	// fmt chunk.
	if _, err := w.WriteString("fmt "); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(audioFormat)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(numChannels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(bitsPerSample)); err != nil {
		return err
	}

	// data chunk.
	if _, err := w.WriteString("data"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return w.Flush()
}

// DecodeWAVPCM16LE extracts PCM16LE samples from a WAV container, downmixing
// stereo to mono. Only uncompressed 16-bit PCM is supported; anything else
// is a collaborator contract violation, not something we transcode.
func DecodeWAVPCM16LE(wav []byte) (pcm []byte, sampleRate int, err error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		audioFmt uint16
		channels uint16
		bits     uint16
		rate     uint32
		data     []byte
		haveFmt  bool
		haveData bool
	)
	cursor := 12
	for cursor+8 <= len(wav) {
		chunkID := string(wav[cursor : cursor+4])
		chunkLen := int(binary.LittleEndian.Uint32(wav[cursor+4 : cursor+8]))
		body := cursor + 8
		if chunkLen < 0 || body+chunkLen > len(wav) {
			return nil, 0, fmt.Errorf("truncated %q chunk", chunkID)
		}
		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, 0, fmt.Errorf("short fmt chunk")
			}
			audioFmt = binary.LittleEndian.Uint16(wav[body : body+2])
			channels = binary.LittleEndian.Uint16(wav[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(wav[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(wav[body+14 : body+16])
			haveFmt = true
		case "data":
			data = wav[body : body+chunkLen]
			haveData = true
		}
		// Chunks are word aligned.
		cursor = body + chunkLen + (chunkLen & 1)
		if haveFmt && haveData {
			break
		}
	}

	if !haveFmt || !haveData {
		return nil, 0, fmt.Errorf("missing fmt or data chunk")
	}
	if audioFmt != 1 || bits != 16 {
		return nil, 0, fmt.Errorf("unsupported WAV encoding (format %d, %d-bit)", audioFmt, bits)
	}
	if channels == 0 || rate == 0 {
		return nil, 0, fmt.Errorf("invalid WAV format header")
	}

	if channels == 1 {
		return data, int(rate), nil
	}

	// Downmix interleaved channels by averaging.
	frame := int(channels) * 2
	frames := len(data) / frame
	mono := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < int(channels); c++ {
			sum += int(int16(binary.LittleEndian.Uint16(data[i*frame+c*2:])))
		}
		binary.LittleEndian.PutUint16(mono[i*2:], uint16(int16(sum/int(channels))))
	}
	return mono, int(rate), nil
}
