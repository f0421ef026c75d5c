package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/limPage/wavecut/internal/segment"
	"github.com/limPage/wavecut/internal/wavio"
)

// labelPattern matches runs of characters that are unsafe in filenames.
// Unicode letters and digits survive, everything else collapses to one
// underscore.
var labelPattern = regexp.MustCompile(`[^\p{L}\p{N}\-_]+`)

// SanitizeLabel converts a free-form segment label into a filename-safe
// token. Empty or fully unsafe labels become "seg".
func SanitizeLabel(label string) string {
	clean := labelPattern.ReplaceAllString(label, "_")
	clean = strings.Trim(clean, "_")
	if clean == "" {
		return "seg"
	}
	return clean
}

// FileName builds the export name for one segment of sourcePath: the
// source base name without extension, an underscore, and the sanitized
// label.
func FileName(sourcePath, label string) string {
	base := filepath.Base(filepath.FromSlash(sourcePath))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s.wav", base, SanitizeLabel(label))
}

// Exporter writes segment WAVs into a target directory.
type Exporter struct {
	dir string
	log *slog.Logger
}

// New creates an exporter targeting dir. The directory is created on
// first save.
func New(dir string, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{dir: dir, log: log}
}

// Dir returns the export target directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// Save slices seg out of buf, encodes it, and writes it under the export
// directory. Name collisions get a numeric suffix. Returns the final
// file name.
func (e *Exporter) Save(buf *wavio.Buffer, sourcePath string, seg segment.Segment) (string, error) {
	data, err := wavio.EncodeWAV(wavio.Slice(buf, seg.Start, seg.End))
	if err != nil {
		return "", fmt.Errorf("encoding segment %s: %w", seg.ID, err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := e.uniqueName(FileName(sourcePath, seg.Label))
	if err := writeAtomic(filepath.Join(e.dir, name), data); err != nil {
		return "", err
	}

	e.log.Info("segment exported", "file", name, "start", seg.Start, "end", seg.End)
	return name, nil
}

// SaveAll writes every segment in order, stopping at the first failure.
// Names written before the failure are returned alongside the error.
func (e *Exporter) SaveAll(buf *wavio.Buffer, sourcePath string, segs []segment.Segment) ([]string, error) {
	var names []string
	for _, seg := range segs {
		name, err := e.Save(buf, sourcePath, seg)
		if err != nil {
			return names, err
		}
		names = append(names, name)
	}

	return names, nil
}

// uniqueName appends _2, _3, ... until the name is free in the export dir.
func (e *Exporter) uniqueName(name string) string {
	if !exists(filepath.Join(e.dir, name)) {
		return name
	}

	stem := strings.TrimSuffix(name, ".wav")
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d.wav", stem, i)
		if !exists(filepath.Join(e.dir, candidate)) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("move %s into place: %w", filepath.Base(path), err)
	}

	return nil
}
