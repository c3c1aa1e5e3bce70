package session

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/arborlabs/arbor/internal/logging"
	"github.com/arborlabs/arbor/pkg/persistence"
	"github.com/arborlabs/arbor/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates named save slots, ensuring safe concurrent access
// to the backing store. It uses reference counting to garbage collect
// unused per-slot locks.
type Manager struct {
	store ports.Store

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active slot locks

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a slot manager over the given store.
func NewManager(store ports.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(slot) after unlocking.
func (m *Manager) acquire(slot string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[slot]
	if !exists {
		entry = &lockEntry{}
		m.locks[slot] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(slot string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[slot]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, slot)
	}
}

// Load retrieves and decodes the snapshot stored in a slot.
func (m *Manager) Load(ctx context.Context, slot string) (*persistence.SerializedState, error) {
	var snapshot *persistence.SerializedState
	err := m.WithLock(ctx, slot, func(ctx context.Context) error {
		data, err := m.store.Get(ctx, slot)
		if err != nil {
			return err
		}
		snapshot, err = persistence.Decode(data)
		if err != nil {
			return fmt.Errorf("slot %q holds an unreadable snapshot: %w", slot, err)
		}
		return nil
	})
	return snapshot, err
}

// Save encodes and persists a snapshot under a slot.
func (m *Manager) Save(ctx context.Context, slot string, snapshot *persistence.SerializedState) error {
	return m.WithLock(ctx, slot, func(ctx context.Context) error {
		data, err := persistence.Encode(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := m.store.Set(ctx, slot, data); err != nil {
			return err
		}
		m.logger.Debug("slot saved", "slot", slot, "bytes", len(data))
		return nil
	})
}

// Delete removes a slot from the store.
func (m *Manager) Delete(ctx context.Context, slot string) error {
	return m.WithLock(ctx, slot, func(ctx context.Context) error {
		return m.store.Delete(ctx, slot)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Clear removes every slot.
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// Store returns the underlying store.
func (m *Manager) Store() ports.Store {
	return m.store
}

// WithLock executes a function while holding the lock for the slot.
func (m *Manager) WithLock(ctx context.Context, slot string, fn func(context.Context) error) error {
	entry := m.acquire(slot)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(slot)
	}()

	return fn(ctx)
}
