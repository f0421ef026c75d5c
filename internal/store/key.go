package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
)

// FileKey identifies one audio file by path and stat identity. Cached
// segments are only valid while all three fields still match, so a
// replaced or re-exported file starts fresh.
type FileKey struct {
	Path     string `json:"path"`     // slash-separated path relative to the library root
	Size     int64  `json:"size"`     // file size in bytes
	Modified int64  `json:"modified"` // mtime in unix milliseconds
}

// KeyFor derives the cache key for a file from its stat info.
func KeyFor(relPath string, info fs.FileInfo) FileKey {
	return FileKey{
		Path:     filepath.ToSlash(relPath),
		Size:     info.Size(),
		Modified: info.ModTime().UnixMilli(),
	}
}

// String renders the canonical form used for hashing and map lookups.
func (k FileKey) String() string {
	return fmt.Sprintf("%s|%d|%d", k.Path, k.Size, k.Modified)
}

// filename is the durable cache file name for this key.
func (k FileKey) filename() string {
	sum := sha256.Sum256([]byte(k.String()))
	return "segments-" + hex.EncodeToString(sum[:8]) + ".json"
}
