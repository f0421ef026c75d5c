package wavio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const pcmBitDepth = 16

// EncodeWAV renders the buffer as a complete 16-bit PCM WAV file: the
// canonical 44-byte header followed by a single data chunk.
func EncodeWAV(buf *Buffer) ([]byte, error) {
	var out bytes.Buffer
	if err := WriteWAV(&out, buf); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// WriteWAV writes the buffer to w in the same format EncodeWAV produces.
func WriteWAV(w io.Writer, buf *Buffer) error {
	sampleRate := buf.SampleRate()
	channels := buf.NumChannels()
	if sampleRate < 1 {
		return fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels < 1 {
		return fmt.Errorf("invalid channel count: %d", channels)
	}

	frames := buf.Frames()
	for ch, samples := range buf.Data {
		if len(samples) != frames {
			return fmt.Errorf("channel %d has %d samples, want %d", ch, len(samples), frames)
		}
	}

	blockAlign := channels * pcmBitDepth / 8
	byteRate := sampleRate * blockAlign
	dataSize := frames * blockAlign
	riffSize := 4 + (8 + 16) + (8 + dataSize)

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(riffSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], pcmBitDepth)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))

	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(PCM16Bytes(buf)); err != nil {
		return fmt.Errorf("writing PCM data: %w", err)
	}

	return nil
}

// PCM16Bytes converts the buffer to interleaved little-endian 16-bit
// samples, the raw contents of a WAV data chunk. Samples are clamped to
// [-1, 1]; negative values scale by 32768 and non-negative ones by 32767,
// so both rails land exactly on the int16 limits.
func PCM16Bytes(buf *Buffer) []byte {
	frames := buf.Frames()
	channels := buf.NumChannels()

	out := make([]byte, frames*channels*2)
	i := 0
	for f := range frames {
		for ch := range channels {
			binary.LittleEndian.PutUint16(out[i:], uint16(pcm16(buf.Data[ch][f])))
			i += 2
		}
	}

	return out
}

func pcm16(s float32) int16 {
	v := float64(s)
	if v < -1 {
		v = -1
	} else if v > 1 {
		v = 1
	}

	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}
