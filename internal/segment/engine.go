package segment

import (
	"math"

	"github.com/google/uuid"
)

// New creates a segment with default geometry and the next free palette
// color. duration may be 0 when the clip length is unknown.
func New(existing []Segment, duration float64) (Segment, error) {
	if len(existing) >= MaxPerFile {
		return Segment{}, ErrTooManySegments
	}

	return newSegment(existing, duration), nil
}

// SeedDefault returns the single segment a freshly opened clip starts
// with when nothing was restored for it.
func SeedDefault(duration float64) Segment {
	return newSegment(nil, duration)
}

func newSegment(existing []Segment, duration float64) Segment {
	span := defaultSpan
	if duration > 0 && duration < span {
		span = duration
	}

	return Segment{
		ID:     uuid.NewString(),
		MaxLen: ClampMaxLen(DefaultMaxLen, duration),
		Start:  0,
		End:    span,
		Color:  AssignColor(existing),
	}
}

// ClampMaxLen bounds a requested maximum length to [MinLen, LenCap],
// tightening the upper bound to duration+1 for short clips.
func ClampMaxLen(v, duration float64) float64 {
	upper := LenCap
	if duration > 0 && duration+1 < upper {
		upper = duration + 1
	}

	if v < MinLen {
		return MinLen
	}
	if v > upper {
		return upper
	}
	return v
}

// ApplyPatch merges a partial update into seg. A patch touching geometry
// re-establishes the segment invariants: maxLen is clamped, start shifts
// left so the window fits inside the clip, and end tracks start+maxLen
// capped by the clip duration (or by the prior end when the duration is
// unknown). A label-only patch leaves the geometry alone.
func ApplyPatch(seg Segment, p Patch, duration float64) Segment {
	out := seg
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.MaxLen == nil && p.Start == nil && p.End == nil {
		return out
	}

	if p.MaxLen != nil {
		out.MaxLen = *p.MaxLen
	}
	if p.Start != nil {
		out.Start = *p.Start
	}
	if p.End != nil {
		out.End = *p.End
	}

	out.MaxLen = ClampMaxLen(out.MaxLen, duration)

	if out.Start < 0 {
		out.Start = 0
	}
	if duration > 0 && out.Start+out.MaxLen > duration {
		out.Start = math.Max(0, duration-out.MaxLen)
	}

	bound := out.End
	if duration > 0 {
		bound = duration
	}
	out.End = math.Min(out.Start+out.MaxLen, bound)
	if out.End < out.Start {
		out.End = out.Start
	}

	return out
}

// ReconcileDrag applies a dragged window to seg, shortening it from the
// right when it exceeds the segment's maximum length. The second return
// reports whether a correction happened.
func ReconcileDrag(seg Segment, start, end float64) (Segment, bool) {
	corrected := false
	if end-start > seg.MaxLen {
		end = start + seg.MaxLen
		corrected = true
	}

	out := seg
	out.Start = start
	out.End = end
	return out, corrected
}

// AssignColor returns the first palette color no existing segment uses.
// With all seven taken it falls back to the first swatch; the MaxPerFile
// cap keeps New from ever reaching that branch.
func AssignColor(existing []Segment) string {
	used := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		used[s.Color] = struct{}{}
	}

	for _, c := range Palette {
		if _, ok := used[c]; !ok {
			return c
		}
	}

	return Palette[0]
}
