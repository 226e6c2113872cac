// Package progress persists per-book reading positions in a single
// JSON file. Records survive crashes (temp file, fsync, rename) and
// concurrent lector processes (advisory lock on a sibling lock file).
package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/lector/reading"
)

const fileName = "progress.json"

// idBytes is how much of the file content feeds the book identifier.
// Enough to tell books apart, small enough to hash on every open.
const idBytes = 8 * 1024

// Store holds every book's progress record, keyed by book ID. It
// implements reading.ProgressStore.
type Store struct {
	path string // progress.json
	lock string // sibling lock file shared with other processes

	mu    sync.RWMutex
	books map[string]reading.ProgressRecord
}

// Open loads the store under dir, creating the directory and an empty
// store when nothing exists yet.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}

	s := &Store{
		path:  filepath.Join(dir, fileName),
		lock:  filepath.Join(dir, fileName+".lock"),
		books: make(map[string]reading.ProgressRecord),
	}
	err := s.locked(lockShared, func() error {
		books, err := readBooks(s.path)
		if err != nil {
			return err
		}
		s.books = books
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns the record for bookID when one exists.
func (s *Store) Load(bookID string) (reading.ProgressRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.books[bookID]
	return rec, ok
}

// Save upserts rec and rewrites the file atomically. The file is
// re-read under the lock first, so records written by another process
// since Open survive the rewrite.
func (s *Store) Save(rec reading.ProgressRecord) error {
	if rec.BookID == "" {
		return errors.New("progress: record has no book id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked(lockExclusive, func() error {
		merged, err := readBooks(s.path)
		if err != nil {
			return err
		}
		merged[rec.BookID] = rec
		if err := writeAtomic(s.path, merged); err != nil {
			return err
		}
		s.books = merged
		return nil
	})
}

// Records returns every record sorted newest first.
func (s *Store) Records() []reading.ProgressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]reading.ProgressRecord, 0, len(s.books))
	for _, rec := range s.books {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// locked runs fn while holding the cross-process lock.
func (s *Store) locked(lock func(*os.File) error, fn func() error) error {
	f, err := os.OpenFile(s.lock, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open progress lock: %w", err)
	}
	defer f.Close()

	if err := lock(f); err != nil {
		return fmt.Errorf("lock progress file: %w", err)
	}
	defer unlock(f)
	return fn()
}

func readBooks(path string) (map[string]reading.ProgressRecord, error) {
	books := make(map[string]reading.ProgressRecord)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return books, nil
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}
	if len(data) == 0 {
		return books, nil
	}
	if err := json.Unmarshal(data, &books); err != nil {
		// A corrupt file must not brick every future session; the next
		// save rewrites it.
		log.Warn("progress file unreadable, starting fresh", "path", path, "err", err)
		return make(map[string]reading.ProgressRecord), nil
	}
	return books, nil
}

// writeAtomic writes to a temp file, syncs, then renames over the
// destination so a crash never leaves a half-written store.
func writeAtomic(path string, books map[string]reading.ProgressRecord) error {
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}

// BookID derives a stable identifier for the book at path: hex of the
// first 16 bytes of a sha256 over the file's first 8 KiB. The content
// hash keeps progress attached to a book across renames and moves.
// Unreadable or empty files fall back to hashing the absolute path.
func BookID(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return idFromString(absolutePath(path))
	}
	defer f.Close()

	buf := make([]byte, idBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return idFromString(absolutePath(path))
	}
	if n == 0 {
		return idFromString(absolutePath(path))
	}

	sum := sha256.Sum256(buf[:n])
	return hex.EncodeToString(sum[:16])
}

func idFromString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

func absolutePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
