package library

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/limPage/wavecut/internal/store"
)

// ErrUnknownFile is returned when a requested path does not resolve to a
// WAV file inside the library.
var ErrUnknownFile = errors.New("unknown audio file")

// File is one clip inside the library.
type File struct {
	RelPath  string        `json:"path"`
	Size     int64         `json:"size"`
	Modified int64         `json:"modified"`
	Key      store.FileKey `json:"-"`
}

// Library lists the WAV files under a root directory. Listings are
// cached; the watcher (when enabled) marks the cache dirty so the next
// listing rescans.
type Library struct {
	root string
	log  *slog.Logger

	mu    sync.Mutex
	files []File
	dirty bool
}

// Open validates root and performs the initial scan.
func Open(root string, log *slog.Logger) (*Library, error) {
	if log == nil {
		log = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("audio root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("audio root %s is not a directory", root)
	}

	l := &Library{root: root, log: log}
	if err := l.Rescan(); err != nil {
		return nil, err
	}

	return l, nil
}

// Root returns the library's root directory.
func (l *Library) Root() string {
	return l.root
}

// IsWAVPath reports whether name carries a .wav extension, matched
// case-insensitively.
func IsWAVPath(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".wav")
}

// Rescan walks the root and rebuilds the listing.
func (l *Library) Rescan() error {
	files, err := scan(l.root)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.files = files
	l.dirty = false
	l.mu.Unlock()

	return nil
}

// Files returns the current listing sorted by relative path, rescanning
// first when the watcher has flagged changes.
func (l *Library) Files() ([]File, error) {
	l.mu.Lock()
	dirty := l.dirty
	l.mu.Unlock()

	if dirty {
		if err := l.Rescan(); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]File(nil), l.files...), nil
}

// Lookup stats relPath under the root and returns its current identity.
// Paths that escape the library, name directories, or lack a .wav
// extension resolve to ErrUnknownFile.
func (l *Library) Lookup(relPath string) (File, error) {
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if clean == "." || clean == ".." || filepath.IsAbs(clean) ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return File{}, fmt.Errorf("%w: %s", ErrUnknownFile, relPath)
	}
	if !IsWAVPath(clean) {
		return File{}, fmt.Errorf("%w: %s", ErrUnknownFile, relPath)
	}

	info, err := os.Stat(filepath.Join(l.root, clean))
	if err != nil || info.IsDir() {
		return File{}, fmt.Errorf("%w: %s", ErrUnknownFile, relPath)
	}

	return fileFor(clean, info), nil
}

// Abs returns the absolute path of a library file.
func (l *Library) Abs(f File) string {
	return filepath.Join(l.root, filepath.FromSlash(f.RelPath))
}

// Next returns the file following relPath in listing order.
func (l *Library) Next(relPath string) (File, bool) {
	files, err := l.Files()
	if err != nil {
		return File{}, false
	}

	for i, f := range files {
		if f.RelPath == relPath && i+1 < len(files) {
			return files[i+1], true
		}
	}

	return File{}, false
}

func fileFor(relPath string, info fs.FileInfo) File {
	key := store.KeyFor(relPath, info)
	return File{
		RelPath:  key.Path,
		Size:     key.Size,
		Modified: key.Modified,
		Key:      key,
	}
}

func scan(root string) ([]File, error) {
	var files []File

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsWAVPath(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, fileFor(rel, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
