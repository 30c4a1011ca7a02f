package record

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gabrielopesantos/recidx/sdk/bptree"
	"github.com/gabrielopesantos/recidx/sdk/lru"
	"github.com/hashicorp/go-hclog"
	"github.com/openbao/openbao/sdk/v2/logical"
)

const (
	recordsPath = "records"

	// DefaultCacheSize is the default number of entries kept in the read cache
	DefaultCacheSize = 128
)

// LogicalStoreConfig configures a LogicalStore
type LogicalStoreConfig struct {
	Prefix    string `json:"prefix"`     // Storage path prefix for this store's records
	CacheSize int    `json:"cache_size"` // Number of entries kept in the read cache
	Compress  bool   `json:"compress"`   // Snappy-compress stored entries
}

func NewDefaultLogicalStoreConfig() *LogicalStoreConfig {
	return &LogicalStoreConfig{
		Prefix:    "recidx/",
		CacheSize: DefaultCacheSize,
		Compress:  true,
	}
}

var _ Store = &LogicalStore{}

// LogicalStore keeps records as entries of a logical.Storage
type LogicalStore struct {
	prefix     string
	storage    logical.Storage
	serializer EntrySerializer
	cache      *lru.LRU[bptree.RecordHandle, *Entry]
	logger     hclog.Logger
}

// NewLogicalStore creates a record store on top of a logical.Storage. A nil
// serializer defaults to JSON, wrapped in snappy when config.Compress is set.
func NewLogicalStore(
	storage logical.Storage,
	config *LogicalStoreConfig,
	serializer EntrySerializer,
	logger hclog.Logger,
) (*LogicalStore, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if config == nil {
		config = NewDefaultLogicalStoreConfig()
	}

	prefix := config.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	if serializer == nil {
		serializer = &JSONSerializer{}
		if config.Compress {
			serializer = &SnappySerializer{Inner: serializer}
		}
	}

	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.NewLRU[bptree.RecordHandle, *Entry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &LogicalStore{
		prefix:     prefix,
		storage:    storage,
		serializer: serializer,
		cache:      cache,
		logger:     logger,
	}, nil
}

func (s *LogicalStore) path(handle bptree.RecordHandle) string {
	return s.prefix + recordsPath + "/" + string(handle)
}

// Write stores a new record and returns its handle
func (s *LogicalStore) Write(ctx context.Context, key int, payload []byte) (bptree.RecordHandle, error) {
	id, err := genHandleID()
	if err != nil {
		return "", err
	}
	handle := bptree.RecordHandle(id)

	entry := &Entry{Key: key, Payload: bytes.Clone(payload)}
	data, err := s.serializer.Serialize(entry)
	if err != nil {
		return "", fmt.Errorf("failed to serialize record for key %d: %w", key, err)
	}

	if err := s.storage.Put(ctx, &logical.StorageEntry{
		Key:   s.path(handle),
		Value: data,
	}); err != nil {
		return "", fmt.Errorf("failed to save record for key %d: %w", key, err)
	}

	s.cache.Add(handle, entry)
	s.logger.Debug("stored record", "key", key, "handle", handle)
	return handle, nil
}

// Read returns the payload behind a handle
func (s *LogicalStore) Read(ctx context.Context, handle bptree.RecordHandle) ([]byte, error) {
	entry, err := s.ReadEntry(ctx, handle)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(entry.Payload), nil
}

// ReadEntry returns the stored entry behind a handle, key included.
// The returned entry must not be modified.
func (s *LogicalStore) ReadEntry(ctx context.Context, handle bptree.RecordHandle) (*Entry, error) {
	if entry, ok := s.cache.Get(handle); ok {
		return entry, nil
	}

	stored, err := s.storage.Get(ctx, s.path(handle))
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", handle, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, handle)
	}

	entry, err := s.serializer.Deserialize(stored.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize record %s: %w", handle, err)
	}

	s.cache.Add(handle, entry)
	return entry, nil
}

// Release deletes the record behind a handle. Releasing a handle twice is
// not an error.
func (s *LogicalStore) Release(ctx context.Context, handle bptree.RecordHandle) error {
	s.cache.Remove(handle)

	if err := s.storage.Delete(ctx, s.path(handle)); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", handle, err)
	}

	s.logger.Debug("released record", "handle", handle)
	return nil
}

// List returns the handles of every record in the store
func (s *LogicalStore) List(ctx context.Context) ([]bptree.RecordHandle, error) {
	keys, err := s.storage.List(ctx, s.prefix+recordsPath+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	handles := make([]bptree.RecordHandle, 0, len(keys))
	for _, k := range keys {
		handles = append(handles, bptree.RecordHandle(k))
	}
	return handles, nil
}
