// Package backup implements the backup manager of spec.md section 4.5:
// timestamped snapshot blobs stored through a storage.Backend, rotated
// by max_backups, grounded on the original Rust
// persistence/manager/backup.rs.
package backup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/statecore"
	"github.com/fluxorio/statecore/storage"
)

// Entry is a single backup record. Payload is fetched lazily through the
// backend by Restore, not kept in memory, unlike the Rust original which
// held data inline — the Go core already treats storage.Backend as the
// source of truth, so the in-memory list only needs the index fields.
type Entry struct {
	ID        string
	MachineID statecore.MachineId
	Timestamp time.Time
	SizeBytes int64
}

// Config mirrors spec.md's backup_config sub-block.
type Config struct {
	MaxBackups          int
	AutoBackup          bool
	BackupIntervalSecs  int
	CompressBackups     bool
}

// Manager is the backup manager. Its entry list is guarded by a
// reader-writer lock (spec.md section 5): ListBackups reads proceed
// concurrently, create/delete mutators serialize.
type Manager struct {
	backend storage.Backend

	mu      sync.RWMutex
	entries []Entry // all machines, unsorted insertion order

	counter int64 // disambiguates backups created within the same millisecond
}

// NewManager creates a backup manager writing through backend.
func NewManager(backend storage.Backend) *Manager {
	return &Manager{backend: backend}
}

func backupKey(id string) string { return "backup/" + id }

// CreateBackup mints a unique id, writes data under "backup/<id>",
// records the entry, and rotates: if the machine's backup count exceeds
// cfg.MaxBackups, the oldest entries are deleted until it does not.
// Ties among equal timestamps are broken by id lexicographic order,
// so rotation is a strict, deterministic FIFO.
func (m *Manager) CreateBackup(ctx context.Context, machineID statecore.MachineId, data []byte, cfg Config) (string, error) {
	now := time.Now()
	id := fmt.Sprintf("backup_%d_%d", now.UnixMilli(), atomic.AddInt64(&m.counter, 1))

	if err := m.backend.Store(ctx, backupKey(id), data); err != nil {
		return "", backupError(err.Error(), err)
	}

	entry := Entry{ID: id, MachineID: machineID, Timestamp: now, SizeBytes: int64(len(data))}

	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()

	if cfg.MaxBackups > 0 {
		if err := m.rotate(ctx, machineID, cfg.MaxBackups); err != nil {
			return id, err
		}
	}
	return id, nil
}

// rotate deletes the oldest entries for machineID until at most max
// remain, called with the lock already released by the caller.
func (m *Manager) rotate(ctx context.Context, machineID statecore.MachineId, max int) error {
	m.mu.Lock()
	var mine []Entry
	for _, e := range m.entries {
		if e.MachineID == machineID {
			mine = append(mine, e)
		}
	}
	m.mu.Unlock()

	if len(mine) <= max {
		return nil
	}
	sort.Slice(mine, func(i, j int) bool {
		if !mine[i].Timestamp.Equal(mine[j].Timestamp) {
			return mine[i].Timestamp.Before(mine[j].Timestamp)
		}
		return mine[i].ID < mine[j].ID
	})
	toRemove := mine[:len(mine)-max]
	for _, e := range toRemove {
		if err := m.DeleteBackup(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// RestoreBackup reads the raw envelope bytes stored under backupID.
func (m *Manager) RestoreBackup(ctx context.Context, backupID string) ([]byte, error) {
	data, err := m.backend.Retrieve(ctx, backupKey(backupID))
	if err != nil {
		return nil, restoreError(err.Error(), err)
	}
	return data, nil
}

// ListBackups returns every retained entry for machineID, oldest first.
func (m *Manager) ListBackups(machineID statecore.MachineId) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.entries {
		if e.MachineID == machineID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeleteBackup removes backupID from both the backend and the in-memory
// entry list.
func (m *Manager) DeleteBackup(ctx context.Context, backupID string) error {
	if err := m.backend.Delete(ctx, backupKey(backupID)); err != nil {
		return backupError(err.Error(), err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == backupID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	return nil
}

// CleanupOld deletes every entry older than maxAge across all machines.
func (m *Manager) CleanupOld(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	m.mu.RLock()
	var stale []Entry
	for _, e := range m.entries {
		if e.Timestamp.Before(cutoff) {
			stale = append(stale, e)
		}
	}
	m.mu.RUnlock()

	for _, e := range stale {
		if err := m.DeleteBackup(ctx, e.ID); err != nil {
			return err
		}
	}
	return nil
}
