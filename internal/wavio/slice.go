package wavio

import "math"

// Slice copies the region [start, end) seconds of buf into a new buffer
// with the same format. Frame indices are computed with floor and clamped
// to the clip bounds, so an inverted or out-of-range window yields an
// empty buffer rather than an error.
func Slice(buf *Buffer, start, end float64) *Buffer {
	rate := buf.SampleRate()
	frames := buf.Frames()

	from := clampFrame(int(math.Floor(start*float64(rate))), frames)
	to := clampFrame(int(math.Floor(end*float64(rate))), frames)
	if to < from {
		to = from
	}

	out := NewBuffer(rate, buf.NumChannels(), to-from)
	for ch := range buf.Data {
		copy(out.Data[ch], buf.Data[ch][from:to])
	}

	return out
}

func clampFrame(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
