package filestore

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := "summer2024/P-0042/003/IMG_0003.jpg"
	payload := []byte("not really a jpeg")

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, store.Put(ctx, key, payload, "image/jpeg"))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	require.True(t, exists)

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, payload, data)

	// overwrite is a safe no-op for redelivered events
	require.NoError(t, store.Put(ctx, key, payload, "image/jpeg"))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorePutStream(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("archive bytes")
	err = store.PutStream(ctx, "exports/summer2024/archive.zip", bytes.NewReader(payload), int64(len(payload)), "application/zip")
	require.NoError(t, err)

	data, err := store.Get(ctx, "exports/summer2024/archive.zip")
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "../outside.txt")
	require.Error(t, err)
}
