package middleware

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/pkg/adapters/memory"
	"github.com/arborlabs/arbor/pkg/ports"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, key)
	require.NoError(t, err)
	return key
}

func TestEncryptionMiddleware_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := newKey(t)

	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: key})(backend)

	payload := []byte(`{"state":{"currentNodeId":"start","flags":{"secret":"hunter2"}}}`)
	require.NoError(t, store.Set(ctx, "slot1", payload))

	// The backend must never see plaintext.
	raw, err := backend.Get(ctx, "slot1")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("hunter2")), "backend holds plaintext")

	got, err := store.Get(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	oldKey := newKey(t)
	newActiveKey := newKey(t)

	// Write with the old key.
	oldStore := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: oldKey})(backend)
	require.NoError(t, oldStore.Set(ctx, "slot1", []byte("legacy payload")))

	// Read back with the rotated configuration.
	rotated := NewEncryptionMiddleware(EncryptionConfig{
		ActiveKey:    newActiveKey,
		FallbackKeys: [][]byte{oldKey},
	})(backend)

	got, err := rotated.Get(ctx, "slot1")
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy payload"), got)

	// Without the fallback, decryption fails.
	noFallback := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: newActiveKey})(backend)
	_, err = noFallback.Get(ctx, "slot1")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_TamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := newKey(t)

	store := NewEncryptionMiddleware(EncryptionConfig{ActiveKey: key})(backend)
	require.NoError(t, store.Set(ctx, "slot1", []byte("payload")))

	raw, err := backend.Get(ctx, "slot1")
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, backend.Set(ctx, "slot1", raw))

	_, err = store.Get(ctx, "slot1")
	assert.Error(t, err, "AES-GCM must reject tampered ciphertext")
}

func TestEncryptionMiddleware_RejectsShortKey(t *testing.T) {
	assert.Panics(t, func() {
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: []byte("short")})
	})
}

func TestChain_Order(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := newKey(t)

	store := Chain(backend, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: key}))

	var _ ports.Store = store
	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
