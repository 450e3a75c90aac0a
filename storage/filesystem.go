package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileSystem is a Backend rooted at a directory, one file per key. Writes
// go through a temp-file-then-rename sequence so a crash mid-write never
// leaves a half-written file visible under its real key, the same
// durability trick the teacher's appendlog.fsStore uses for its segment
// files.
type FileSystem struct {
	root string

	mu        sync.RWMutex
	lastWrite time.Time
}

// NewFileSystem creates (if necessary) root and returns a Backend rooted
// there.
func NewFileSystem(root string) (*FileSystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileSystem{root: root}, nil
}

func (f *FileSystem) path(key string) string {
	return filepath.Join(f.root, keyToFilename(key))
}

// keyToFilename escapes path separators so a key containing "/" (as
// backup keys do: "backup/<id>") maps to a single flat filename rather
// than creating subdirectories implicitly.
func keyToFilename(key string) string {
	return strings.ReplaceAll(key, "/", "__") + ".bin"
}

func filenameToKey(name string) string {
	name = strings.TrimSuffix(name, ".bin")
	return strings.ReplaceAll(name, "__", "/")
}

func (f *FileSystem) Store(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.root, "tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		os.Remove(tmpName)
		return err
	}
	f.lastWrite = time.Now()
	return nil
}

func (f *FileSystem) Retrieve(ctx context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileSystem) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (f *FileSystem) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, err := os.Stat(f.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (f *FileSystem) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "tmp-") {
			continue
		}
		key := filenameToKey(e.Name())
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FileSystem) Flush(ctx context.Context) error { return nil }

func (f *FileSystem) Info(ctx context.Context) (Info, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return Info{}, err
	}
	var count int
	var total int64
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "tmp-") {
			continue
		}
		count++
		if fi, err := e.Info(); err == nil {
			total += fi.Size()
		}
	}
	return Info{Kind: "filesystem", KeyCount: count, TotalBytes: total, LastWrite: f.lastWrite}, nil
}
