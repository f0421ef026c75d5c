package wavio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
)

// ErrInvalidWAV is returned when input bytes are not a decodable RIFF/WAVE file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// Decode parses WAV bytes into a planar float32 buffer. Any PCM sample
// rate, channel count, and bit depth the underlying decoder understands
// is accepted.
func Decode(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, errors.New("empty WAV input")
	}

	r := bytes.NewReader(data)
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	rate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	if rate < 1 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidWAV, rate)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidWAV, channels)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	return Deinterleave(pcm.Data, rate, channels), nil
}

// DecodeFile reads and decodes the WAV file at path.
func DecodeFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	buf, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	return buf, nil
}
