package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/limPage/wavecut/internal/export"
	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/segment"
	"github.com/limPage/wavecut/internal/store"
	"github.com/limPage/wavecut/internal/wavio"
)

// Mode names the lifecycle phase of the session.
type Mode string

const (
	// ModeIdle means no file is open.
	ModeIdle Mode = "idle"
	// ModeRestoring covers loading cached segments for a fresh file;
	// store writes are off.
	ModeRestoring Mode = "restoring"
	// ModeSeeding covers default-segment creation for a file with no
	// cached segments; store writes are off.
	ModeSeeding Mode = "seeding"
	// ModeReady accepts edits and persists every mutation.
	ModeReady Mode = "ready"
)

// ErrNoSession is returned for segment operations while no file is open.
var ErrNoSession = errors.New("no file open")

// ErrUnknownSegment is returned when a direct lookup names a segment the
// open file does not carry.
var ErrUnknownSegment = errors.New("unknown segment")

// State is a snapshot of the session for callers and the HTTP layer.
type State struct {
	Mode       Mode              `json:"mode"`
	Path       string            `json:"path,omitempty"`
	Duration   float64           `json:"duration,omitempty"`
	SampleRate int               `json:"sampleRate,omitempty"`
	Channels   int               `json:"channels,omitempty"`
	Segments   []segment.Segment `json:"segments"`
}

// DragResult reports the window finally applied to a dragged segment.
type DragResult struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Corrected bool    `json:"corrected"`
}

// Session tracks the one file currently being annotated. A single mutex
// serializes every operation, so mode transitions are atomic to
// observers and no store write can land mid-restore.
type Session struct {
	lib *library.Library
	st  *store.Store
	exp *export.Exporter
	log *slog.Logger

	mu       sync.Mutex
	mode     Mode
	file     library.File
	buf      *wavio.Buffer
	segments []segment.Segment
}

// New creates an idle session.
func New(lib *library.Library, st *store.Store, exp *export.Exporter, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}

	return &Session{
		lib:  lib,
		st:   st,
		exp:  exp,
		log:  log,
		mode: ModeIdle,
	}
}

// Open decodes relPath and makes it the active file. The decode happens
// before any state changes, so a failed open leaves the previous file
// fully intact. The outgoing file's segments are persisted on switch.
func (s *Session) Open(relPath string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.openLocked(relPath)
}

func (s *Session) openLocked(relPath string) (State, error) {
	f, err := s.lib.Lookup(relPath)
	if err != nil {
		return s.snapshot(), err
	}

	buf, err := wavio.DecodeFile(s.lib.Abs(f))
	if err != nil {
		return s.snapshot(), fmt.Errorf("opening %s: %w", f.RelPath, err)
	}

	s.persistCurrent()

	s.mode = ModeRestoring
	s.file = f
	s.buf = buf
	s.segments = s.st.Restore(f.Key)

	if len(s.segments) == 0 {
		s.mode = ModeSeeding
		s.segments = []segment.Segment{segment.SeedDefault(buf.Duration())}
	}

	s.mode = ModeReady
	s.log.Info("file opened",
		"path", f.RelPath,
		"duration", buf.Duration(),
		"segments", len(s.segments))

	return s.snapshot(), nil
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

// AddSegment appends a segment with default geometry and the next free
// palette color.
func (s *Session) AddSegment() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return s.snapshot(), ErrNoSession
	}

	seg, err := segment.New(s.segments, s.buf.Duration())
	if err != nil {
		return s.snapshot(), err
	}

	s.segments = append(s.segments, seg)
	s.persistCurrent()

	return s.snapshot(), nil
}

// Patch applies a partial update to one segment. Unknown ids are a
// silent no-op so a stale client cannot fail a whole view refresh.
func (s *Session) Patch(id string, p segment.Patch) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return s.snapshot(), ErrNoSession
	}

	for i := range s.segments {
		if s.segments[i].ID == id {
			s.segments[i] = segment.ApplyPatch(s.segments[i], p, s.buf.Duration())
			s.persistCurrent()
			break
		}
	}

	return s.snapshot(), nil
}

// Drag moves one segment's window. Oversized windows come back
// corrected; unknown ids echo the requested window unchanged.
func (s *Session) Drag(id string, start, end float64) (DragResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return DragResult{}, ErrNoSession
	}

	for i := range s.segments {
		if s.segments[i].ID == id {
			seg, corrected := segment.ReconcileDrag(s.segments[i], start, end)
			s.segments[i] = seg
			s.persistCurrent()

			return DragResult{Start: seg.Start, End: seg.End, Corrected: corrected}, nil
		}
	}

	return DragResult{Start: start, End: end}, nil
}

// Remove deletes one segment. Unknown ids are a silent no-op.
func (s *Session) Remove(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return s.snapshot(), ErrNoSession
	}

	for i := range s.segments {
		if s.segments[i].ID == id {
			s.segments = append(s.segments[:i], s.segments[i+1:]...)
			s.persistCurrent()
			break
		}
	}

	return s.snapshot(), nil
}

// ExportSegment renders one segment as a standalone WAV and returns the
// bytes with their download name.
func (s *Session) ExportSegment(id string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return nil, "", ErrNoSession
	}

	for _, seg := range s.segments {
		if seg.ID == id {
			data, err := wavio.EncodeWAV(wavio.Slice(s.buf, seg.Start, seg.End))
			if err != nil {
				return nil, "", fmt.Errorf("encoding segment %s: %w", id, err)
			}

			return data, export.FileName(s.file.RelPath, seg.Label), nil
		}
	}

	return nil, "", fmt.Errorf("%w: %s", ErrUnknownSegment, id)
}

// ExportAll writes every segment of the open file into the export
// directory, sequentially in list order.
func (s *Session) ExportAll() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return nil, ErrNoSession
	}

	return s.exp.SaveAll(s.buf, s.file.RelPath, s.segments)
}

// Complete finishes the open file: its cache entry is purged and the
// session advances to the next file in the library, or back to idle
// after the last one.
func (s *Session) Complete() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeReady {
		return s.snapshot(), ErrNoSession
	}

	done := s.file
	s.st.Purge(done.Key)

	// Clear before advancing so the purged file cannot be re-persisted.
	s.reset()

	next, ok := s.lib.Next(done.RelPath)
	if !ok {
		s.log.Info("library complete", "last", done.RelPath)
		return s.snapshot(), nil
	}

	return s.openLocked(next.RelPath)
}

// Close persists the active file one last time and returns to idle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.persistCurrent()
	s.reset()
}

// persistCurrent saves the active file's segments. Writes only happen in
// ready mode; the restoring and seeding phases never touch the store.
func (s *Session) persistCurrent() {
	if s.mode != ModeReady {
		return
	}
	s.st.Persist(s.file.Key, s.segments)
}

func (s *Session) reset() {
	s.mode = ModeIdle
	s.file = library.File{}
	s.buf = nil
	s.segments = nil
}

func (s *Session) snapshot() State {
	segs := make([]segment.Segment, 0, len(s.segments))
	segs = append(segs, s.segments...)

	out := State{Mode: s.mode, Segments: segs}
	if s.mode != ModeIdle {
		out.Path = s.file.RelPath
		out.Duration = s.buf.Duration()
		out.SampleRate = s.buf.SampleRate()
		out.Channels = s.buf.NumChannels()
	}

	return out
}
