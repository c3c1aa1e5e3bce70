package session

import (
	"context"
	"fmt"
	"testing"
)

// nopStore accepts everything; only lock bookkeeping is under test.
type nopStore struct{}

func (nopStore) Get(ctx context.Context, key string) ([]byte, error)   { return []byte("{}"), nil }
func (nopStore) Set(ctx context.Context, key string, v []byte) error   { return nil }
func (nopStore) Delete(ctx context.Context, key string) error          { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)            { return nil, nil }
func (nopStore) Clear(ctx context.Context) error                       { return nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		slot := fmt.Sprintf("slot-%d", i)
		_ = mgr.WithLock(ctx, slot, func(context.Context) error { return nil })
		_ = mgr.Delete(ctx, slot)
	}

	if remaining := len(mgr.locks); remaining != 0 {
		t.Errorf("memory leak: %d locks remaining after release", remaining)
	}
}
