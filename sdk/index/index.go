package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/gabrielopesantos/recidx/sdk/bptree"
	"github.com/gabrielopesantos/recidx/sdk/record"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Config holds configuration for an Index
type Config struct {
	Tree *bptree.BPlusTreeConfig `json:"tree"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Tree: bptree.NewDefaultBPlusTreeConfig(),
	}
}

// ParseConfig decodes a JSON config. Fields left out keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := NewDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse index config: %w", err)
	}
	if config.Tree == nil {
		config.Tree = bptree.NewDefaultBPlusTreeConfig()
	}

	if _, err := bptree.NewBPlusTreeConfig(config.Tree.InternalOrder, config.Tree.LeafOrder); err != nil {
		return nil, fmt.Errorf("invalid index config: %w", err)
	}
	return config, nil
}

// Index maps integer keys to record payloads. Payloads live in a
// record.Store; the B+ tree holds the handles. Mutations are serialized so
// a record and its key are always written or removed together.
type Index struct {
	tree   *bptree.BPlusTree
	store  record.Store
	logger hclog.Logger
	lock   sync.RWMutex
}

// Open creates an empty index over store
func Open(config *Config, store record.Store, logger hclog.Logger) (*Index, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if store == nil {
		return nil, fmt.Errorf("record store cannot be nil")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	tree, err := bptree.NewBPlusTree(config.Tree, store, logger.Named("bptree"))
	if err != nil {
		return nil, err
	}

	return &Index{
		tree:   tree,
		store:  store,
		logger: logger,
	}, nil
}

// Put stores payload and indexes it under key. A key that is already
// indexed is rejected with bptree.ErrDuplicateKey and nothing is stored.
func (i *Index) Put(ctx context.Context, key int, payload []byte) error {
	i.lock.Lock()
	defer i.lock.Unlock()

	handle, err := i.store.Write(ctx, key, payload)
	if err != nil {
		return fmt.Errorf("failed to store record for key %d: %w", key, err)
	}

	if err := i.tree.Insert(key, handle); err != nil {
		if releaseErr := i.store.Release(ctx, handle); releaseErr != nil {
			return multierror.Append(err, releaseErr)
		}
		return err
	}

	i.logger.Debug("inserted key", "key", key)
	return nil
}

// Get returns the payload indexed under key
func (i *Index) Get(ctx context.Context, key int) ([]byte, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()

	handle, err := i.tree.Search(key)
	if err != nil {
		return nil, err
	}

	payload, err := i.store.Read(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to read record for key %d: %w", key, err)
	}
	return payload, nil
}

// Delete removes key and releases its record
func (i *Index) Delete(ctx context.Context, key int) error {
	i.lock.Lock()
	defer i.lock.Unlock()

	if err := i.tree.Delete(ctx, key); err != nil {
		return err
	}

	i.logger.Debug("deleted key", "key", key)
	return nil
}

// Scan calls fn with every key greater than or equal to from and its
// payload, in ascending key order, until fn returns false.
func (i *Index) Scan(ctx context.Context, from int, fn func(key int, payload []byte) bool) error {
	i.lock.RLock()
	defer i.lock.RUnlock()

	var readErr error
	err := i.tree.Ascend(from, func(key int, handle bptree.RecordHandle) bool {
		payload, err := i.store.Read(ctx, handle)
		if err != nil {
			readErr = fmt.Errorf("failed to read record for key %d: %w", key, err)
			return false
		}
		return fn(key, payload)
	})
	if err != nil {
		return err
	}
	return readErr
}

// Keys returns every indexed key in ascending order
func (i *Index) Keys() []int {
	return i.tree.Keys()
}

// Len returns the number of indexed keys
func (i *Index) Len() int {
	return i.tree.Len()
}

// Print writes the tree layout to w
func (i *Index) Print(w io.Writer) error {
	return i.tree.Print(w)
}

// PrintSequence writes every key to w in ascending order
func (i *Index) PrintSequence(w io.Writer) error {
	return i.tree.PrintSequence(w)
}

// Verify checks the structural invariants of the underlying tree
func (i *Index) Verify() error {
	return i.tree.Verify()
}

// Close releases every record and empties the index
func (i *Index) Close(ctx context.Context) error {
	i.lock.Lock()
	defer i.lock.Unlock()

	if err := i.tree.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to release records: %w", err)
	}
	return nil
}
