package persist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/statecore"
	"github.com/fluxorio/statecore/internal/corelog"
	"github.com/fluxorio/statecore/storage"
)

// Config carries the persistence config options of spec.md section 4.4:
// enabled, storage key, auto-save/restore toggles, compression level.
// The backup_config sub-block is represented by Backup's own Config.
type Config struct {
	Enabled          bool
	StorageKey       string
	AutoSave         bool
	AutoRestore      bool
	MaxSize          int64
	CompressionLevel int // 0..9, 0 disables compression
}

// Source supplies the live MachineState an auto-save tick should persist,
// and receives a restored MachineState on load. Instance implements this
// directly.
type Source interface {
	CurrentState() statecore.MachineState
	Restore(statecore.MachineState)
}

// Manager is the persistence manager of spec.md section 4.4: it
// serializes/deserializes machines through a storage.Backend, optionally
// on a recurring auto-save ticker, and exposes the lifecycle operations
// an Instance's host calls directly (persist, load, delete, exists,
// list, enable/disable auto-save).
type Manager struct {
	backend storage.Backend
	log     corelog.Logger

	mu       sync.RWMutex
	active   map[statecore.MachineId]*autoSaveEntry
	metadata map[statecore.MachineId]Metadata
}

type autoSaveEntry struct {
	source Source
	config Config
	cancel func()
}

// NewManager creates a persistence manager backed by the given storage
// backend.
func NewManager(backend storage.Backend) *Manager {
	return &Manager{
		backend:  backend,
		log:      corelog.Default().WithFields(map[string]interface{}{"component": "persist.Manager"}),
		active:   make(map[statecore.MachineId]*autoSaveEntry),
		metadata: make(map[statecore.MachineId]Metadata),
	}
}

func storageKey(machineID statecore.MachineId, cfg Config) string {
	if cfg.StorageKey != "" {
		return cfg.StorageKey
	}
	return fmt.Sprintf("machine/%s", machineID)
}

// Persist serializes s under machineID and writes it through the backend.
func (m *Manager) Persist(ctx context.Context, machineID statecore.MachineId, s statecore.MachineState, cfg Config) error {
	now := time.Now()
	m.mu.Lock()
	meta, ok := m.metadata[machineID]
	if !ok {
		meta = Metadata{CreatedAt: now}
	}
	meta.ModifiedAt = now
	m.metadata[machineID] = meta
	m.mu.Unlock()

	data, err := encode(machineID, s, meta, cfg.CompressionLevel)
	if err != nil {
		return err
	}
	if cfg.MaxSize > 0 && int64(len(data)) > cfg.MaxSize {
		return validationError(fmt.Sprintf("encoded size %d exceeds max_size %d", len(data), cfg.MaxSize))
	}
	if err := m.backend.Store(ctx, storageKey(machineID, cfg), data); err != nil {
		m.log.Errorf("persist %s: %v", machineID, err)
		return storageError(err.Error(), err)
	}
	return nil
}

// Load reads and deserializes the machine previously stored under
// machineID, decoding its context into ctxOut.
func (m *Manager) Load(ctx context.Context, machineID statecore.MachineId, ctxOut any, cfg Config) (statecore.MachineState, Metadata, error) {
	data, err := m.backend.Retrieve(ctx, storageKey(machineID, cfg))
	if err != nil {
		return statecore.MachineState{}, Metadata{}, storageError(err.Error(), err)
	}
	id, value, meta, err := decode(data, ctxOut)
	if err != nil {
		return statecore.MachineState{}, Metadata{}, err
	}
	if id != machineID {
		return statecore.MachineState{}, Metadata{}, validationError(
			fmt.Sprintf("stored machine_id %q does not match requested %q", id, machineID))
	}
	return statecore.MachineState{Value: value, Context: derefContext(ctxOut)}, meta, nil
}

func derefContext(ctxOut any) any {
	if ctxOut == nil {
		return nil
	}
	return ctxOut
}

// Delete removes the persisted entry for machineID.
func (m *Manager) Delete(ctx context.Context, machineID statecore.MachineId, cfg Config) error {
	if err := m.backend.Delete(ctx, storageKey(machineID, cfg)); err != nil {
		return storageError(err.Error(), err)
	}
	m.mu.Lock()
	delete(m.metadata, machineID)
	m.mu.Unlock()
	return nil
}

// Exists reports whether machineID has a persisted entry.
func (m *Manager) Exists(ctx context.Context, machineID statecore.MachineId, cfg Config) (bool, error) {
	ok, err := m.backend.Exists(ctx, storageKey(machineID, cfg))
	if err != nil {
		return false, storageError(err.Error(), err)
	}
	return ok, nil
}

// List returns every machine_id with a persisted entry under the
// "machine/" key namespace.
func (m *Manager) List(ctx context.Context) ([]statecore.MachineId, error) {
	keys, err := m.backend.ListKeys(ctx, "machine/")
	if err != nil {
		return nil, storageError(err.Error(), err)
	}
	ids := make([]statecore.MachineId, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, statecore.MachineId(k[len("machine/"):]))
	}
	return ids, nil
}

// EnableAutoSave starts a coalescing ticker (via the shared worker pool)
// that persists source's current state at interval, until DisableAutoSave
// or Shutdown is called. Re-enabling for an already-active machine_id
// replaces the previous ticker.
func (m *Manager) EnableAutoSave(machineID statecore.MachineId, source Source, cfg Config, interval time.Duration) {
	m.mu.Lock()
	if existing, ok := m.active[machineID]; ok {
		existing.cancel()
	}
	cancel := startAutoSaveTicker(func() {
		if err := m.Persist(context.Background(), machineID, source.CurrentState(), cfg); err != nil {
			m.log.Warnf("auto-save for %s failed, will retry next tick: %v", machineID, err)
		}
	}, interval)
	m.active[machineID] = &autoSaveEntry{source: source, config: cfg, cancel: cancel}
	m.mu.Unlock()
}

// DisableAutoSave stops machineID's auto-save ticker, if any.
func (m *Manager) DisableAutoSave(machineID statecore.MachineId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.active[machineID]; ok {
		entry.cancel()
		delete(m.active, machineID)
	}
}

// Shutdown stops every active auto-save ticker.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.active {
		entry.cancel()
		delete(m.active, id)
	}
}

// Info mirrors spec.md section 4.4's persistence_info() projection.
type Info struct {
	Enabled    bool
	AutoSave   bool
	StorageKey string
}

// PersistenceInfo reports the live auto-save status for machineID.
func (m *Manager) PersistenceInfo(machineID statecore.MachineId, cfg Config) Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, autoSaving := m.active[machineID]
	return Info{Enabled: cfg.Enabled, AutoSave: autoSaving, StorageKey: storageKey(machineID, cfg)}
}
