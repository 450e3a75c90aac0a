package storage

import (
	"context"
	"errors"
	"testing"
)

func TestFileSystemStoreRetrieveRoundTrip(t *testing.T) {
	fs, err := NewFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystem() error = %v", err)
	}
	ctx := context.Background()

	if err := fs.Store(ctx, "machine/m1", []byte("payload")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, err := fs.Retrieve(ctx, "machine/m1")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Retrieve() = %q, want payload", got)
	}
}

func TestFileSystemRetrieveMissingKeyIsErrNotFound(t *testing.T) {
	fs, _ := NewFileSystem(t.TempDir())
	_, err := fs.Retrieve(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Retrieve() error = %v, want ErrNotFound", err)
	}
}

func TestFileSystemDeleteMissingKeyIsErrNotFound(t *testing.T) {
	fs, _ := NewFileSystem(t.TempDir())
	err := fs.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestFileSystemKeyWithSlashRoundTrips(t *testing.T) {
	fs, _ := NewFileSystem(t.TempDir())
	ctx := context.Background()
	key := "backup/backup_123_1"

	if err := fs.Store(ctx, key, []byte("x")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	keys, err := fs.ListKeys(ctx, "backup/")
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("ListKeys() = %v, want [%s]", keys, key)
	}
}

func TestFileSystemListKeysSkipsTempFiles(t *testing.T) {
	fs, _ := NewFileSystem(t.TempDir())
	ctx := context.Background()
	fs.Store(ctx, "a", []byte("1"))

	keys, err := fs.ListKeys(ctx, "")
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "a" {
		t.Errorf("ListKeys() = %v, want [a]", keys)
	}
}

func TestFileSystemExistsAndDelete(t *testing.T) {
	fs, _ := NewFileSystem(t.TempDir())
	ctx := context.Background()
	fs.Store(ctx, "a", []byte("1"))

	ok, err := fs.Exists(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Exists() = (%v, %v), want (true, nil)", ok, err)
	}
	if err := fs.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	ok, _ = fs.Exists(ctx, "a")
	if ok {
		t.Error("expected key to no longer exist after Delete")
	}
}

func TestFileSystemInfoReportsCountAndBytes(t *testing.T) {
	fs, _ := NewFileSystem(t.TempDir())
	ctx := context.Background()
	fs.Store(ctx, "a", []byte("12345"))
	fs.Store(ctx, "b", []byte("12"))

	info, err := fs.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Kind != "filesystem" {
		t.Errorf("Kind = %q, want filesystem", info.Kind)
	}
	if info.KeyCount != 2 {
		t.Errorf("KeyCount = %d, want 2", info.KeyCount)
	}
	if info.TotalBytes != 7 {
		t.Errorf("TotalBytes = %d, want 7", info.TotalBytes)
	}
}
