package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborlabs/arbor/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunStoreContract(t, New(t.TempDir()))
}

func TestStore_EmptyKeyRejected(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Set(ctx, "", []byte("x")))
	_, err := store.Get(ctx, "")
	assert.Error(t, err)
	assert.Error(t, store.Delete(ctx, ""))
}

func TestStore_ListOnMissingDirectory(t *testing.T) {
	store := New(t.TempDir() + "/never-created")

	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
