// Package cache keeps fetched source documents on disk so ingestion can run
// offline. Entries are addressed by the BLAKE3 hash of their name, stored
// xz-compressed, and verified against a BLAKE3 digest of the content on read.
package cache

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
)

var (
	ErrMiss    = errors.New("cache miss")
	ErrCorrupt = errors.New("cache entry corrupt")
)

const (
	digestSize = 32
	entryExt   = ".xz"
)

// Cache is a directory of compressed entries. It is safe for concurrent use
// because every write lands through an atomic rename.
type Cache struct {
	dir string
}

// New opens the cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Key returns the BLAKE3 hex key for name.
func Key(name string) string {
	h := blake3.Sum256([]byte(name))
	return hex.EncodeToString(h[:])
}

// pathFor returns <dir>/<first2>/<key>.xz.
func (c *Cache) pathFor(name string) string {
	k := Key(name)
	return filepath.Join(c.dir, k[:2], k+entryExt)
}

// Put stores data under name, replacing any previous entry.
func (c *Cache) Put(name string, data []byte) error {
	path := c.pathFor(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache prefix directory: %w", err)
	}

	var buf bytes.Buffer
	sum := blake3.Sum256(data)
	buf.Write(sum[:])
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache entry: %w", err)
	}
	return nil
}

// Get returns the content stored under name. A missing entry is ErrMiss; an
// entry that fails to decompress or whose digest disagrees is ErrCorrupt.
func (c *Cache) Get(name string) ([]byte, error) {
	raw, err := os.ReadFile(c.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrMiss)
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if len(raw) < digestSize {
		return nil, fmt.Errorf("%s: %w: truncated", name, ErrCorrupt)
	}
	r, err := xz.NewReader(bytes.NewReader(raw[digestSize:]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrCorrupt, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", name, ErrCorrupt, err)
	}
	if sum := blake3.Sum256(data); !bytes.Equal(sum[:], raw[:digestSize]) {
		return nil, fmt.Errorf("%s: %w: digest mismatch", name, ErrCorrupt)
	}
	return data, nil
}

// Has reports whether an entry exists for name, without verifying it.
func (c *Cache) Has(name string) bool {
	_, err := os.Stat(c.pathFor(name))
	return err == nil
}

// Stats counts entries and their compressed size on disk.
func (c *Cache) Stats() (entries int, size int64, err error) {
	err = filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), entryExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries++
		size += info.Size()
		return nil
	})
	return entries, size, err
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	n, _, err := c.Stats()
	if err != nil {
		return 0, fmt.Errorf("failed to scan cache: %w", err)
	}
	dirs, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, d := range dirs {
		if err := os.RemoveAll(filepath.Join(c.dir, d.Name())); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", d.Name(), err)
		}
	}
	return n, nil
}
