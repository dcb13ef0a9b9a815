// Package audio holds the small amount of container-level audio handling
// the service needs: WAV framing, format sniffing and mp3 transcoding.
// Sample synthesis itself always happens in the external model runtime.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Format identifies a sniffed audio container.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatUnknown Format = "unknown"
)

const wavHeaderSize = 44

// DetectFormat sniffs the container from the first bytes of data.
func DetectFormat(data []byte) Format {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return FormatWAV
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return FormatMP3
	}
	// bare mp3 frame sync: 11 set bits
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}
	return FormatUnknown
}

// WriteWAVHeader writes a 44-byte PCM WAV header for the given layout.
func WriteWAVHeader(w io.Writer, dataSize, sampleRate, channels, bitsPerSample int) error {
	totalSize := 36 + dataSize
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	// RIFF header
	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(totalSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	// fmt sub-chunk
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(1)); err != nil { // PCM
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(channels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(byteRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(bitsPerSample)); err != nil {
		return err
	}

	// data sub-chunk
	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint32(dataSize))
}

// WAVInfo describes the layout parsed from a WAV header.
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataSize      int
}

// ProbeWAV parses the header of a PCM WAV file.
func ProbeWAV(data []byte) (WAVInfo, error) {
	if DetectFormat(data) != FormatWAV {
		return WAVInfo{}, fmt.Errorf("not a RIFF/WAVE stream")
	}
	if len(data) < wavHeaderSize {
		return WAVInfo{}, fmt.Errorf("truncated WAV header: %d bytes", len(data))
	}
	if !bytes.Equal(data[12:16], []byte("fmt ")) {
		return WAVInfo{}, fmt.Errorf("missing fmt chunk")
	}
	info := WAVInfo{
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
	}

	// scan chunks for data; fmt chunk may be followed by extensions
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		if id == "data" {
			info.DataSize = size
			return info, nil
		}
		offset += 8 + size
		if size%2 == 1 {
			offset++
		}
	}
	return WAVInfo{}, fmt.Errorf("missing data chunk")
}

// TranscodeMP3ToWAV decodes an mp3 stream and re-encodes the PCM samples
// into a WAV container. go-mp3 always yields 16-bit stereo output.
func TranscodeMP3ToWAV(r io.Reader) ([]byte, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("read mp3 samples: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))
	if err := WriteWAVHeader(&buf, len(pcm), decoder.SampleRate(), 2, 16); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	if _, err := buf.Write(pcm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EnsureWAV returns data unchanged when it already is a WAV stream and
// transcodes it when it is an mp3 stream. Unknown containers are rejected.
func EnsureWAV(data []byte) ([]byte, error) {
	switch DetectFormat(data) {
	case FormatWAV:
		return data, nil
	case FormatMP3:
		return TranscodeMP3ToWAV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported audio container")
	}
}
