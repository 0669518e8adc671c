// Package audio inspects synthesized part files before merging.
//
// Stream-copy concatenation requires every part to share codec parameters;
// for WAV parts the fmt chunk makes that checkable up front instead of
// producing a silently broken merged file.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WAVFormat is the decode-relevant subset of a RIFF fmt chunk.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

func (f WAVFormat) String() string {
	return fmt.Sprintf("format=%d channels=%d rate=%d bits=%d",
		f.AudioFormat, f.Channels, f.SampleRate, f.BitsPerSample)
}

// ProbeWAV reads the RIFF header and fmt chunk of the file at path.
func ProbeWAV(path string) (WAVFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVFormat{}, fmt.Errorf("probe %s: %w", path, err)
	}
	defer f.Close()

	format, err := readWAVFormat(f)
	if err != nil {
		return WAVFormat{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return format, nil
}

// VerifyWAVParts confirms every part shares the first part's format.
func VerifyWAVParts(paths []string) error {
	if len(paths) < 2 {
		return nil
	}

	first, err := ProbeWAV(paths[0])
	if err != nil {
		return err
	}
	for _, path := range paths[1:] {
		format, err := ProbeWAV(path)
		if err != nil {
			return err
		}
		if format != first {
			return fmt.Errorf("part %s has %v, but %s has %v; parts cannot be stream-copy concatenated",
				path, format, paths[0], first)
		}
	}
	return nil
}

func readWAVFormat(r io.Reader) (WAVFormat, error) {
	var riff struct {
		ID     [4]byte
		Size   uint32
		Format [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return WAVFormat{}, fmt.Errorf("read RIFF header: %w", err)
	}
	if !bytes.Equal(riff.ID[:], []byte("RIFF")) || !bytes.Equal(riff.Format[:], []byte("WAVE")) {
		return WAVFormat{}, fmt.Errorf("not a RIFF/WAVE file")
	}

	// Walk chunks until fmt shows up.
	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return WAVFormat{}, fmt.Errorf("read chunk header: %w", err)
		}

		if bytes.Equal(chunk.ID[:], []byte("fmt ")) {
			if chunk.Size < 16 {
				return WAVFormat{}, fmt.Errorf("fmt chunk too small (%d bytes)", chunk.Size)
			}
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return WAVFormat{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			return WAVFormat{
				AudioFormat:   fmtChunk.AudioFormat,
				Channels:      fmtChunk.Channels,
				SampleRate:    fmtChunk.SampleRate,
				BitsPerSample: fmtChunk.BitsPerSample,
			}, nil
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		skip := int64(chunk.Size) + int64(chunk.Size&1)
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return WAVFormat{}, fmt.Errorf("skip %q chunk: %w", chunk.ID, err)
		}
	}
}
