package wavio

import (
	goaudio "github.com/go-audio/audio"
)

// Buffer holds decoded PCM audio as one float32 slice per channel.
// All channel slices have the same length.
type Buffer struct {
	Format *goaudio.Format
	Data   [][]float32
}

// NewBuffer allocates a silent buffer with the given geometry.
func NewBuffer(sampleRate, channels, frames int) *Buffer {
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}

	return &Buffer{
		Format: &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		Data:   data,
	}
}

func (b *Buffer) SampleRate() int {
	if b.Format == nil {
		return 0
	}
	return b.Format.SampleRate
}

func (b *Buffer) NumChannels() int {
	return len(b.Data)
}

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the clip length in seconds.
func (b *Buffer) Duration() float64 {
	rate := b.SampleRate()
	if rate < 1 {
		return 0
	}
	return float64(b.Frames()) / float64(rate)
}

// Interleave flattens the planar channel data into frame-major order,
// the sample layout WAV data chunks use.
func (b *Buffer) Interleave() []float32 {
	frames := b.Frames()
	channels := b.NumChannels()

	out := make([]float32, frames*channels)
	for f := range frames {
		for ch := range channels {
			out[f*channels+ch] = b.Data[ch][f]
		}
	}

	return out
}

// Deinterleave splits frame-major samples into per-channel slices.
// Trailing samples that do not fill a whole frame are dropped.
func Deinterleave(samples []float32, sampleRate, channels int) *Buffer {
	if channels < 1 {
		channels = 1
	}

	frames := len(samples) / channels
	buf := NewBuffer(sampleRate, channels, frames)
	for f := range frames {
		for ch := range channels {
			buf.Data[ch][f] = samples[f*channels+ch]
		}
	}

	return buf
}
