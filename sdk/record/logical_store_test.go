package record

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gabrielopesantos/recidx/sdk/bptree"
	"github.com/go-faker/faker/v4"
	"github.com/openbao/openbao/sdk/v2/logical"
	"github.com/stretchr/testify/require"
)

func TestLogicalStoreOperations(t *testing.T) {
	ctx := context.Background()
	s := &logical.InmemStorage{}
	store, err := NewLogicalStore(s, nil, nil, nil)
	require.NoError(t, err, "Failed to create record store")

	payload := []byte(faker.Name())
	handle, err := store.Write(ctx, 101, payload)
	require.NoError(t, err, "Failed to write record")
	require.NotEmpty(t, handle)

	t.Run("ReadFromCache", func(t *testing.T) {
		got, err := store.Read(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, payload, got)
	})

	t.Run("ReadFromStorage", func(t *testing.T) {
		store.cache.Purge()

		entry, err := store.ReadEntry(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, 101, entry.Key)
		require.Equal(t, payload, entry.Payload)
		require.True(t, store.cache.Contains(handle), "Loaded entries are cached")
	})

	t.Run("ReturnedPayloadIsACopy", func(t *testing.T) {
		got, err := store.Read(ctx, handle)
		require.NoError(t, err)
		got[0] ^= 0xff

		again, err := store.Read(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, payload, again)
	})

	t.Run("List", func(t *testing.T) {
		other, err := store.Write(ctx, 102, []byte(faker.Name()))
		require.NoError(t, err)

		handles, err := store.List(ctx)
		require.NoError(t, err)
		require.ElementsMatch(t, []bptree.RecordHandle{handle, other}, handles)
	})

	t.Run("Release", func(t *testing.T) {
		require.NoError(t, store.Release(ctx, handle))

		_, err := store.Read(ctx, handle)
		require.ErrorIs(t, err, ErrRecordNotFound)

		require.NoError(t, store.Release(ctx, handle), "Releasing twice must not fail")
	})
}

func TestLogicalStoreCompression(t *testing.T) {
	ctx := context.Background()

	t.Run("Compressed", func(t *testing.T) {
		s := &logical.InmemStorage{}
		store, err := NewLogicalStore(s, &LogicalStoreConfig{Prefix: "students", Compress: true}, nil, nil)
		require.NoError(t, err)

		handle, err := store.Write(ctx, 7, []byte("Charlie 19 88"))
		require.NoError(t, err)

		stored, err := s.Get(ctx, "students/records/"+string(handle))
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.False(t, json.Valid(stored.Value), "Stored value should be snappy framed")

		store.cache.Purge()
		got, err := store.Read(ctx, handle)
		require.NoError(t, err)
		require.Equal(t, []byte("Charlie 19 88"), got)
	})

	t.Run("Uncompressed", func(t *testing.T) {
		s := &logical.InmemStorage{}
		store, err := NewLogicalStore(s, &LogicalStoreConfig{Prefix: "students/"}, nil, nil)
		require.NoError(t, err)

		handle, err := store.Write(ctx, 7, []byte("Charlie 19 88"))
		require.NoError(t, err)

		stored, err := s.Get(ctx, "students/records/"+string(handle))
		require.NoError(t, err)
		require.NotNil(t, stored)

		var entry Entry
		require.NoError(t, json.Unmarshal(stored.Value, &entry))
		require.Equal(t, 7, entry.Key)
		require.Equal(t, []byte("Charlie 19 88"), entry.Payload)
	})
}

func TestLogicalStoreCorruptEntry(t *testing.T) {
	ctx := context.Background()
	s := &logical.InmemStorage{}
	store, err := NewLogicalStore(s, nil, nil, nil)
	require.NoError(t, err)

	err = s.Put(ctx, &logical.StorageEntry{Key: "recidx/records/broken", Value: []byte("not snappy")})
	require.NoError(t, err)

	_, err = store.Read(ctx, "broken")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRecordNotFound)
}

func TestNewLogicalStoreRequiresStorage(t *testing.T) {
	store, err := NewLogicalStore(nil, nil, nil, nil)
	require.Error(t, err)
	require.Nil(t, store)
}
