// Package doctor provides environment preflight checks for wavecut.
package doctor

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/limPage/wavecut/internal/library"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// ProbeFunc decodes the named WAV file and returns an error when it is
// unreadable.
type ProbeFunc func(path string) error

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// AudioRoot is the library directory that must exist.
	AudioRoot string
	// StateDir is created if missing and must accept writes.
	StateDir string
	// ExportDir is created if missing and must accept writes.
	ExportDir string
	// ProbeWAV, when set, runs against the first WAV file under AudioRoot
	// to verify the library is actually decodable.
	ProbeWAV ProbeFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- audio root -------------------------------------------------------
	first, count, err := scanWAVFiles(cfg.AudioRoot)
	if err != nil {
		res.fail(fmt.Sprintf("audio root %q: %v", cfg.AudioRoot, err))
		fmt.Fprintf(w, "%s audio root %s: %v\n", FailMark, cfg.AudioRoot, err)
	} else {
		fmt.Fprintf(w, "%s audio root: %s (%d WAV files)\n", PassMark, cfg.AudioRoot, count)
	}

	// ---- writable directories ---------------------------------------------
	checkWritable(&res, w, "state dir", cfg.StateDir)
	checkWritable(&res, w, "export dir", cfg.ExportDir)

	// ---- decode probe -----------------------------------------------------
	if cfg.ProbeWAV != nil {
		if first == "" {
			fmt.Fprintf(w, "%s wav decode: skipped (no WAV files)\n", PassMark)
		} else if err := cfg.ProbeWAV(first); err != nil {
			res.fail(fmt.Sprintf("wav decode %q: %v", first, err))
			fmt.Fprintf(w, "%s wav decode %s: %v\n", FailMark, first, err)
		} else {
			fmt.Fprintf(w, "%s wav decode: %s\n", PassMark, first)
		}
	}

	return res
}

// scanWAVFiles walks root and reports the first WAV path plus the total count.
func scanWAVFiles(root string) (first string, count int, err error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", 0, err
	}
	if !info.IsDir() {
		return "", 0, fmt.Errorf("not a directory")
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !library.IsWAVPath(d.Name()) {
			return nil
		}
		if first == "" {
			first = path
		}
		count++
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return first, count, nil
}

func checkWritable(res *Result, w io.Writer, label, dir string) {
	if err := probeWrite(dir); err != nil {
		res.fail(fmt.Sprintf("%s %q: %v", label, dir, err))
		fmt.Fprintf(w, "%s %s %s: %v\n", FailMark, label, dir, err)
		return
	}
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, label, dir)
}

// probeWrite creates dir if needed and verifies a file can land in it.
func probeWrite(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".wavecut-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
