package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/limPage/wavecut/internal/segment"
)

// entry is the durable representation of one file's segments.
type entry struct {
	Key      FileKey           `json:"key"`
	Segments []segment.Segment `json:"segments"`
}

// Store caches segment lists per audio file. Lookups hit an in-memory
// tier first and fall back to JSON files under dir. Writes update memory
// synchronously and mirror to disk best effort: a failed disk write is
// logged, never returned.
type Store struct {
	dir string
	log *slog.Logger

	mu  sync.Mutex
	mem map[string][]segment.Segment
}

// New creates a store rooted at dir. The directory is created on first
// persist.
func New(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		dir: dir,
		log: log,
		mem: make(map[string][]segment.Segment),
	}
}

// Persist records segs for key. Memory is updated before the durable
// tier, so a Restore issued right after always observes this write.
func (s *Store) Persist(key FileKey, segs []segment.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := append([]segment.Segment(nil), segs...)
	s.mem[key.String()] = copied

	if err := s.writeEntry(key, copied); err != nil {
		s.log.Warn("segment cache write failed", "path", key.Path, "error", err)
	}
}

// Restore returns the cached segments for key, or nil when none exist.
// Unreadable or mismatched durable entries count as absent.
func (s *Store) Restore(key FileKey) []segment.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.restoreLocked(key)
}

// Count reports how many segments are cached for key.
func (s *Store) Count(key FileKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.restoreLocked(key))
}

// Purge drops key from both tiers.
func (s *Store) Purge(key FileKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.mem, key.String())

	path := filepath.Join(s.dir, key.filename())
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("segment cache remove failed", "path", key.Path, "error", err)
	}
}

func (s *Store) restoreLocked(key FileKey) []segment.Segment {
	if segs, ok := s.mem[key.String()]; ok {
		return append([]segment.Segment(nil), segs...)
	}

	e, err := s.readEntry(key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("segment cache read failed", "path", key.Path, "error", err)
		}
		return nil
	}
	if e.Key != key {
		return nil
	}

	s.mem[key.String()] = append([]segment.Segment(nil), e.Segments...)
	return append([]segment.Segment(nil), e.Segments...)
}

func (s *Store) readEntry(key FileKey) (entry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key.filename()))
	if err != nil {
		return entry{}, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, fmt.Errorf("decode segment cache: %w", err)
	}

	return e, nil
}

func (s *Store) writeEntry(key FileKey, segs []segment.Segment) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	b, err := json.MarshalIndent(entry{Key: key, Segments: segs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode segment cache: %w", err)
	}

	path := filepath.Join(s.dir, key.filename())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write segment cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move segment cache into place: %w", err)
	}

	return nil
}
