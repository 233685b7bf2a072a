// Package fingerprint persists per-show theme fingerprints between runs.
package fingerprint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Index holds the raw chromaprint fingerprint of each show's theme,
// keyed by show id. It is loaded once at startup and flushed to disk on
// shutdown if anything changed.
type Index struct {
	path string
	lock *flock.Flock

	mu    sync.RWMutex
	blobs map[int64][]int32
	dirty bool
}

// New creates an index backed by the file at path. The file need not
// exist yet; Load on a missing file yields an empty index.
func New(path string) *Index {
	return &Index{
		path:  path,
		lock:  flock.New(path + ".lock"),
		blobs: make(map[int64][]int32),
	}
}

// Load reads the index from disk, replacing any in-memory state.
func (ix *Index) Load() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	f, err := os.Open(ix.path)
	if errors.Is(err, os.ErrNotExist) {
		ix.blobs = make(map[int64][]int32)
		ix.dirty = false
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening fingerprint index: %w", err)
	}
	defer f.Close()

	blobs := make(map[int64][]int32)
	if err := gob.NewDecoder(f).Decode(&blobs); err != nil {
		return fmt.Errorf("decoding fingerprint index: %w", err)
	}
	ix.blobs = blobs
	ix.dirty = false
	return nil
}

// Save writes the index to disk if it is dirty. The write goes through a
// temp file and rename under a file lock, so concurrent daemon and CLI
// processes cannot interleave partial writes.
func (ix *Index) Save() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.dirty {
		return nil
	}

	ok, err := ix.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !ok {
		return errors.New("fingerprint index is locked by another process")
	}
	defer func() { _ = ix.lock.Unlock() }()

	if err := os.MkdirAll(filepath.Dir(ix.path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	tmp := ix.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(ix.blobs); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding fingerprint index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp index: %w", err)
	}
	if err := os.Rename(tmp, ix.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index: %w", err)
	}
	ix.dirty = false
	return nil
}

// Get returns the stored fingerprint for a show, if any.
func (ix *Index) Get(showID int64) ([]int32, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	fp, ok := ix.blobs[showID]
	return fp, ok
}

// Put stores a show's theme fingerprint and marks the index dirty.
func (ix *Index) Put(showID int64, fp []int32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.blobs[showID] = fp
	ix.dirty = true
}

// Remove drops a show's fingerprint. A no-op for unknown shows.
func (ix *Index) Remove(showID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.blobs[showID]; !ok {
		return
	}
	delete(ix.blobs, showID)
	ix.dirty = true
}

// Dirty reports whether the index has unsaved changes.
func (ix *Index) Dirty() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dirty
}

// Len returns the number of shows with a stored fingerprint.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.blobs)
}
