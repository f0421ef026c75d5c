package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/limPage/wavecut/internal/wavio"
)

// ToneBuffer builds a buffer filled with a repeating ramp so encoded
// fixtures carry non-silent samples.
func ToneBuffer(tb testing.TB, sampleRate, channels int, seconds float64) *wavio.Buffer {
	tb.Helper()

	frames := int(seconds * float64(sampleRate))
	buf := wavio.NewBuffer(sampleRate, channels, frames)
	for ch := range buf.Data {
		for i := range buf.Data[ch] {
			buf.Data[ch][i] = float32((i%100)-50) / 100
		}
	}

	return buf
}

// WriteWAV writes a synthetic WAV file at path, creating parent
// directories as needed, and returns path.
func WriteWAV(tb testing.TB, path string, sampleRate, channels int, seconds float64) string {
	tb.Helper()

	data, err := wavio.EncodeWAV(ToneBuffer(tb, sampleRate, channels, seconds))
	if err != nil {
		tb.Fatalf("encoding fixture: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("creating fixture dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("writing fixture: %v", err)
	}

	return path
}
