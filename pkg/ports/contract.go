package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/pkg/domain"
)

// RunStoreContract runs a suite of tests to verify that a Store
// implementation adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		payload := []byte(`{"currentNodeId":"start","flags":{"foo":"bar"}}`)

		err := store.Set(ctx, key, payload)
		require.NoError(t, err, "Set should not return error")

		got, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, payload, got)
	})

	t.Run("Set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("v1")))
		require.NoError(t, store.Set(ctx, key, []byte("v2")))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("doomed")))

		err := store.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrStateNotFound, "Get after Delete should return ErrStateNotFound")

		// Deleting an absent key is not an error.
		assert.NoError(t, store.Delete(ctx, key))
	})

	t.Run("List", func(t *testing.T) {
		k1 := key + "-1"
		k2 := key + "-2"
		require.NoError(t, store.Set(ctx, k1, []byte("a")))
		require.NoError(t, store.Set(ctx, k2, []byte("b")))

		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key+"-clear", []byte("x")))

		err := store.Clear(ctx)
		require.NoError(t, err)

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Stored bytes are isolated", func(t *testing.T) {
		payload := []byte("mutable")
		require.NoError(t, store.Set(ctx, key, payload))
		payload[0] = 'X'

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("mutable"), got, "store must not alias caller buffers")
	})
}
