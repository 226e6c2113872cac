// Package cache stores synthesized audio keyed by the exact synthesis
// request, so re-reading a sentence skips the engine. A byte-capped
// in-memory LRU fronts a compressed on-disk level that survives
// restarts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// ErrItemTooLarge is returned when an entry exceeds a level's
// capacity outright.
var ErrItemTooLarge = errors.New("cache: item larger than capacity")

// Key identifies one synthesis result. Every parameter that changes
// the produced audio must appear here, or two renderings would
// collide.
type Key struct {
	Engine string
	Voice  string
	Speed  float64
	Text   string
}

// ID returns the filename-safe digest used to store the entry.
func (k Key) ID() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.3f|%s", k.Engine, k.Voice, k.Speed, k.Text)))
	return hex.EncodeToString(sum[:16])
}

// Options configures the two levels. An empty Dir disables the disk
// level.
type Options struct {
	MemoryBytes int64
	DiskBytes   int64
	Dir         string
	Compression int // zstd level; 0 stores raw
}

// DefaultOptions is sized for spoken-word PCM: a few minutes of audio
// in memory, an hour or so on disk.
func DefaultOptions(dir string) Options {
	return Options{
		MemoryBytes: 64 * 1024 * 1024,
		DiskBytes:   512 * 1024 * 1024,
		Dir:         dir,
		Compression: 3,
	}
}

// Cache is the two-level store. Safe for concurrent use.
type Cache struct {
	memory *memoryCache
	disk   *diskCache
}

// New builds a cache per opts.
func New(opts Options) (*Cache, error) {
	c := &Cache{memory: newMemoryCache(opts.MemoryBytes)}
	if opts.Dir != "" {
		disk, err := newDiskCache(opts.Dir, opts.DiskBytes, opts.Compression)
		if err != nil {
			return nil, fmt.Errorf("open disk cache: %w", err)
		}
		c.disk = disk
	}
	return c, nil
}

// Get returns the audio for k when cached. Disk hits are promoted to
// memory for the next lookup.
func (c *Cache) Get(k Key) ([]byte, bool) {
	id := k.ID()
	if data, ok := c.memory.get(id); ok {
		return data, true
	}
	if c.disk == nil {
		return nil, false
	}
	data, ok := c.disk.get(id)
	if !ok {
		return nil, false
	}
	c.memory.put(id, data)
	return data, true
}

// Put stores audio in both levels. Disk failures log and degrade to
// memory-only; a cache write must never fail playback.
func (c *Cache) Put(k Key, data []byte) {
	if len(data) == 0 {
		return
	}
	id := k.ID()
	c.memory.put(id, data)
	if c.disk != nil {
		if err := c.disk.put(id, data); err != nil {
			log.Debug("audio cache disk write failed", "err", err)
		}
	}
}

// Stats reports both levels.
func (c *Cache) Stats() Stats {
	s := Stats{Memory: c.memory.stats()}
	if c.disk != nil {
		s.Disk = c.disk.stats()
	}
	return s
}

// Close flushes the disk index.
func (c *Cache) Close() error {
	if c.disk == nil {
		return nil
	}
	return c.disk.close()
}

// Stats describes cache occupancy and effectiveness per level.
type Stats struct {
	Memory LevelStats
	Disk   LevelStats
}

// LevelStats is one level's counters.
type LevelStats struct {
	Items  int
	Bytes  int64
	Hits   uint64
	Misses uint64
}
