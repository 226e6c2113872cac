package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	rawExt        = ".pcm"
	compressedExt = ".zst"
	indexName     = "index.gob"
)

// compressFloor skips compression for entries too small to benefit.
const compressFloor = 1024

// diskCache stores one file per entry plus a gob index carrying
// access times for LRU eviction. A lost or corrupt index is rebuilt
// from the directory, so the worst crash outcome is forgotten access
// order.
type diskCache struct {
	dir      string
	capacity int64

	encoder *zstd.Encoder // nil when compression is off
	decoder *zstd.Decoder

	mu     sync.Mutex
	size   int64
	index  map[string]*diskEntry
	hits   uint64
	misses uint64
}

// diskEntry is one file's index record. Fields are exported for gob.
type diskEntry struct {
	ID         string
	Size       int64 // bytes on disk
	Compressed bool
	LastAccess time.Time
}

func newDiskCache(dir string, capacity int64, level int) (*diskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dc := &diskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
	}

	var err error
	if level > 0 {
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
	}
	// The decoder always exists: old compressed entries must stay
	// readable after compression is turned off.
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	if err := dc.loadIndex(); err != nil {
		dc.rebuildIndex()
	}
	dc.verifyIndex()
	return dc, nil
}

func (dc *diskCache) get(id string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[id]
	if !ok {
		dc.misses++
		return nil, false
	}

	data, err := os.ReadFile(dc.filePath(entry))
	if err != nil {
		// File vanished underneath the index; forget the entry.
		dc.dropLocked(entry)
		dc.misses++
		return nil, false
	}

	if entry.Compressed {
		plain, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			os.Remove(dc.filePath(entry))
			dc.dropLocked(entry)
			dc.misses++
			return nil, false
		}
		data = plain
	}

	entry.LastAccess = time.Now()
	dc.hits++
	return data, true
}

func (dc *diskCache) put(id string, data []byte) error {
	payload := data
	compressed := false
	if dc.encoder != nil && len(data) > compressFloor {
		packed := dc.encoder.EncodeAll(data, nil)
		// Keep the raw bytes when compression does not pay off.
		if len(packed) < len(data) {
			payload = packed
			compressed = true
		}
	}
	size := int64(len(payload))

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if size > dc.capacity {
		return ErrItemTooLarge
	}
	if existing, ok := dc.index[id]; ok {
		os.Remove(dc.filePath(existing))
		dc.dropLocked(existing)
	}
	for dc.size+size > dc.capacity && len(dc.index) > 0 {
		dc.evictOldestLocked()
	}

	entry := &diskEntry{
		ID:         id,
		Size:       size,
		Compressed: compressed,
		LastAccess: time.Now(),
	}
	if err := writeFileAtomic(dc.filePath(entry), payload); err != nil {
		return err
	}
	dc.index[id] = entry
	dc.size += size
	return nil
}

func (dc *diskCache) stats() LevelStats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return LevelStats{
		Items:  len(dc.index),
		Bytes:  dc.size,
		Hits:   dc.hits,
		Misses: dc.misses,
	}
}

func (dc *diskCache) close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.encoder != nil {
		dc.encoder.Close()
	}
	dc.decoder.Close()
	return dc.saveIndex()
}

func (dc *diskCache) filePath(entry *diskEntry) string {
	ext := rawExt
	if entry.Compressed {
		ext = compressedExt
	}
	return filepath.Join(dc.dir, entry.ID+ext)
}

// dropLocked forgets an entry without touching its file. Caller holds
// mu.
func (dc *diskCache) dropLocked(entry *diskEntry) {
	delete(dc.index, entry.ID)
	dc.size -= entry.Size
}

// evictOldestLocked removes the entry with the oldest access time.
// Caller holds mu.
func (dc *diskCache) evictOldestLocked() {
	var oldest *diskEntry
	for _, entry := range dc.index {
		if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
			oldest = entry
		}
	}
	if oldest == nil {
		return
	}
	os.Remove(dc.filePath(oldest))
	dc.dropLocked(oldest)
}

// loadIndex reads the saved index. Any failure reports an error and
// the caller rebuilds from the directory instead.
func (dc *diskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexName))
	if err != nil {
		return err
	}
	defer f.Close()

	index := make(map[string]*diskEntry)
	if err := gob.NewDecoder(f).Decode(&index); err != nil {
		return err
	}
	dc.index = index
	return nil
}

// rebuildIndex scans the directory for entry files. Access order is
// lost; file modification times stand in so eviction still has
// something to sort by.
func (dc *diskCache) rebuildIndex() {
	dc.index = make(map[string]*diskEntry)
	entries, err := os.ReadDir(dc.dir)
	if err != nil {
		return
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		var compressed bool
		switch filepath.Ext(name) {
		case compressedExt:
			compressed = true
		case rawExt:
		default:
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		dc.index[id] = &diskEntry{
			ID:         id,
			Size:       info.Size(),
			Compressed: compressed,
			LastAccess: info.ModTime(),
		}
	}
}

// verifyIndex drops entries whose files vanished and recomputes the
// total size.
func (dc *diskCache) verifyIndex() {
	dc.size = 0
	for id, entry := range dc.index {
		if _, err := os.Stat(dc.filePath(entry)); err != nil {
			delete(dc.index, id)
			continue
		}
		dc.size += entry.Size
	}
}

func (dc *diskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexName)
	tempPath := path + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(dc.index)
	closeErr := f.Close()

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

// writeFileAtomic writes via a temp file and rename so a crash never
// leaves a truncated entry.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	closeErr := f.Close()

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
