// Package cache provides a zstd-compressed disk cache for fetched
// caption track payloads, so a track survives restarts and repeated
// playback of the same video does not hit the caption service again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Disk is a size-bounded disk cache. Values are compressed with zstd
// before hitting disk; caption payloads are text-heavy and compress
// well.
type Disk struct {
	basePath string
	capacity int64 // Maximum size on disk in bytes
	size     int64 // Current size on disk in bytes

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*entry
	mu    sync.Mutex
}

// entry tracks one cached payload on disk.
type entry struct {
	path       string
	size       int64
	lastAccess time.Time
}

// DefaultCapacity bounds the cache at 32 MB on disk, generous for
// caption tracks which run a few hundred KB uncompressed.
const DefaultCapacity = 32 << 20

// NewDisk creates a disk cache rooted at basePath. A capacity of zero
// uses DefaultCapacity.
func NewDisk(basePath string, capacity int64) (*Disk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create zstd decoder: %w", err)
	}

	d := &Disk{
		basePath: basePath,
		capacity: capacity,
		encoder:  encoder,
		decoder:  decoder,
		index:    make(map[string]*entry),
	}
	d.scan()
	return d, nil
}

// Get retrieves a payload. A missing or unreadable file is treated as
// a miss and dropped from the index.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.index[keyHash(key)]
	if !ok {
		return nil, false
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		d.drop(keyHash(key), e)
		return nil, false
	}

	decompressed, err := d.decoder.DecodeAll(data, nil)
	if err != nil {
		d.drop(keyHash(key), e)
		return nil, false
	}

	e.lastAccess = time.Now()
	return decompressed, true
}

// Put stores a payload, evicting least-recently-used entries if the
// cache would exceed its capacity.
func (d *Disk) Put(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hash := keyHash(key)
	compressed := d.encoder.EncodeAll(value, nil)

	path := filepath.Join(d.basePath, hash+".zst")
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("unable to write cache entry: %w", err)
	}

	if prev, ok := d.index[hash]; ok {
		d.size -= prev.size
	}
	d.index[hash] = &entry{
		path:       path,
		size:       int64(len(compressed)),
		lastAccess: time.Now(),
	}
	d.size += int64(len(compressed))

	d.evict()
	return nil
}

// Len returns the number of cached entries.
func (d *Disk) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.index)
}

// Clear removes every cached entry.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for hash, e := range d.index {
		if err := os.Remove(e.path); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.index, hash)
	}
	d.size = 0
	return firstErr
}

// scan rebuilds the index from files already on disk. Timestamps come
// from file modification times, which is close enough for LRU.
func (d *Disk) scan() {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".zst" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		hash := de.Name()[:len(de.Name())-len(".zst")]
		d.index[hash] = &entry{
			path:       filepath.Join(d.basePath, de.Name()),
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		d.size += info.Size()
	}
}

// evict removes least-recently-used entries until under capacity.
// Caller holds the lock.
func (d *Disk) evict() {
	for d.size > d.capacity && len(d.index) > 1 {
		var (
			oldestHash string
			oldest     *entry
		)
		for hash, e := range d.index {
			if oldest == nil || e.lastAccess.Before(oldest.lastAccess) {
				oldestHash, oldest = hash, e
			}
		}
		d.drop(oldestHash, oldest)
	}
}

// drop removes an entry from disk and the index. Caller holds the lock.
func (d *Disk) drop(hash string, e *entry) {
	os.Remove(e.path) //nolint:errcheck
	delete(d.index, hash)
	d.size -= e.size
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
