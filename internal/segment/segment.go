package segment

import "errors"

// MaxPerFile caps how many segments one clip can carry.
const MaxPerFile = 7

// Bounds for a segment's maximum length, in seconds.
const (
	MinLen        = 0.5
	LenCap        = 5.0
	DefaultMaxLen = 1.0
)

// defaultSpan is the initial extent of a freshly created segment.
const defaultSpan = 1.0

// ErrTooManySegments is returned when a clip already carries MaxPerFile segments.
var ErrTooManySegments = errors.New("segment limit reached")

// Palette holds the region colors, assigned lowest free slot first.
var Palette = [MaxPerFile]string{
	"#e74c3c",
	"#3498db",
	"#2ecc71",
	"#f1c40f",
	"#9b59b6",
	"#e67e22",
	"#1abc9c",
}

// Segment is one labeled region of an audio clip. Times are seconds from
// the start of the clip.
type Segment struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	MaxLen float64 `json:"maxLen"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Color  string  `json:"color"`
}

// Patch is a partial segment update; nil fields keep their current value.
type Patch struct {
	Label  *string  `json:"label"`
	MaxLen *float64 `json:"maxLen"`
	Start  *float64 `json:"start"`
	End    *float64 `json:"end"`
}
