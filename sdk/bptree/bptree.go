package bptree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	// ErrKeyNotFound is returned when a key is not found in the tree
	ErrKeyNotFound = errors.New("key not found")
	// ErrDuplicateKey is returned when inserting a key that is already present
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrEmptyTree is returned by lookups and deletes on a tree without a root.
	// It matches ErrKeyNotFound with errors.Is.
	ErrEmptyTree = fmt.Errorf("%w: tree is empty", ErrKeyNotFound)
	// ErrCorruptedStructure is returned when a structural invariant is found broken
	ErrCorruptedStructure = errors.New("corrupted tree structure")
)

// RecordReleaser destroys the record behind a handle. Releasing an
// already released handle must not fail.
type RecordReleaser interface {
	Release(ctx context.Context, handle RecordHandle) error
}

type nopReleaser struct{}

func (nopReleaser) Release(context.Context, RecordHandle) error { return nil }

// BPlusTree is an in-memory B+ tree mapping integer keys to record handles.
type BPlusTree struct {
	config   *BPlusTreeConfig
	root     node
	releaser RecordReleaser
	logger   hclog.Logger
	lock     sync.RWMutex
}

// pathStep is one level of a root-to-leaf descent: the internal node
// visited and the index of the child that was followed.
type pathStep struct {
	node  *internalNode
	index int
}

// NewBPlusTree creates an empty B+ tree. A nil releaser leaves records
// untouched on delete; a nil logger discards log output.
func NewBPlusTree(config *BPlusTreeConfig, releaser RecordReleaser, logger hclog.Logger) (*BPlusTree, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid B+ tree config: %w", err)
	}
	if releaser == nil {
		releaser = nopReleaser{}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &BPlusTree{
		config:   config,
		releaser: releaser,
		logger:   logger,
	}, nil
}

// Config returns the configuration the tree was built with
func (t *BPlusTree) Config() BPlusTreeConfig {
	return *t.config
}

// minLeafKeys returns the minimum number of keys a non-root leaf must have
func (t *BPlusTree) minLeafKeys() int {
	return (t.config.LeafOrder + 1) / 2 // ⌊(L+1)/2⌋
}

// maxLeafKeys returns the maximum number of keys a leaf can have
func (t *BPlusTree) maxLeafKeys() int {
	return t.config.LeafOrder
}

// minChildren returns the minimum number of children a non-root internal node must have
func (t *BPlusTree) minChildren() int {
	return (t.config.InternalOrder + 1) / 2 // ⌈m/2⌉
}

// maxChildren returns the maximum number of children an internal node can have
func (t *BPlusTree) maxChildren() int {
	return t.config.InternalOrder
}

// Search returns the record handle stored for key
func (t *BPlusTree) Search(key int) (RecordHandle, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.search(key)
}

func (t *BPlusTree) search(key int) (RecordHandle, error) {
	if t.root == nil {
		return "", ErrEmptyTree
	}

	leaf, _, err := t.descend(key)
	if err != nil {
		return "", fmt.Errorf("failed to find leaf node: %w", err)
	}

	idx, found := leaf.findKeyIndex(key)
	if !found {
		return "", ErrKeyNotFound
	}
	return leaf.records[idx], nil
}

// descend walks from the root to the leaf that covers key and returns it
// along with the internal nodes visited on the way. Nodes are checked
// before being followed, so a corrupted node is reported before any caller
// starts mutating.
func (t *BPlusTree) descend(key int) (*leafNode, []pathStep, error) {
	var path []pathStep
	current := t.root
	for {
		switch n := current.(type) {
		case *leafNode:
			if n == nil {
				return nil, nil, fmt.Errorf("%w: nil leaf reference", ErrCorruptedStructure)
			}
			return n, path, nil
		case *internalNode:
			if n == nil {
				return nil, nil, fmt.Errorf("%w: nil internal node reference", ErrCorruptedStructure)
			}
			if len(n.children) == 0 || len(n.children) != len(n.keys)+1 {
				return nil, nil, fmt.Errorf("%w: internal node has %d keys and %d children",
					ErrCorruptedStructure, len(n.keys), len(n.children))
			}
			idx := n.childIndex(key)
			path = append(path, pathStep{node: n, index: idx})
			current = n.children[idx]
		default:
			return nil, nil, fmt.Errorf("%w: missing child at depth %d", ErrCorruptedStructure, len(path))
		}
	}
}

// Insert adds key with its record handle. Existing keys are never
// overwritten; inserting one returns ErrDuplicateKey.
func (t *BPlusTree) Insert(key int, handle RecordHandle) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.root == nil {
		leaf := newLeafNode()
		leaf.insertAt(0, key, handle)
		t.root = leaf
		t.logger.Trace("created root leaf", "key", key)
		return nil
	}

	leaf, path, err := t.descend(key)
	if err != nil {
		return fmt.Errorf("failed to find leaf node: %w", err)
	}

	idx, found := leaf.findKeyIndex(key)
	if found {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}

	if len(leaf.keys) < t.maxLeafKeys() {
		leaf.insertAt(idx, key, handle)
		return nil
	}

	newLeaf, splitKey := t.splitLeafNode(leaf, idx, key, handle)
	t.logger.Trace("split leaf node", "key", key, "promoted", splitKey)
	return t.insertIntoParent(path, leaf, newLeaf, splitKey)
}

// splitLeafNode splits a full leaf while inserting (key, handle) at idx.
// The original leaf keeps the left half, the returned leaf takes the right
// half and is linked in after the original. The returned key is the new
// leaf's first key, which is copied into the parent.
func (t *BPlusTree) splitLeafNode(leaf *leafNode, idx int, key int, handle RecordHandle) (*leafNode, int) {
	size := len(leaf.keys) + 1
	keys := make([]int, 0, size)
	keys = append(keys, leaf.keys[:idx]...)
	keys = append(keys, key)
	keys = append(keys, leaf.keys[idx:]...)

	records := make([]RecordHandle, 0, size)
	records = append(records, leaf.records[:idx]...)
	records = append(records, handle)
	records = append(records, leaf.records[idx:]...)

	// ⌈(L+1)/2⌉ entries stay left, so the right half gets exactly the minimum
	splitIndex := (size + 1) / 2

	newLeaf := newLeafNode()
	newLeaf.keys = append(newLeaf.keys, keys[splitIndex:]...)
	newLeaf.records = append(newLeaf.records, records[splitIndex:]...)
	newLeaf.next = leaf.next

	leaf.keys = keys[:splitIndex]
	leaf.records = records[:splitIndex]
	leaf.next = newLeaf

	return newLeaf, newLeaf.keys[0]
}

// insertIntoParent hooks rightNode into the tree next to leftNode, whose
// ancestors are path. If leftNode is the root, a new root is created.
func (t *BPlusTree) insertIntoParent(path []pathStep, leftNode, rightNode node, splitKey int) error {
	if len(path) == 0 {
		t.root = newInternalNode([]int{splitKey}, []node{leftNode, rightNode})
		t.logger.Trace("grew new root", "separator", splitKey)
		return nil
	}

	return t.insertInternal(path[:len(path)-1], path[len(path)-1], splitKey, rightNode)
}

// insertInternal inserts a separator and the child to its right into the
// parent described by step, splitting the parent if it overflows.
func (t *BPlusTree) insertInternal(path []pathStep, step pathStep, separator int, rightNode node) error {
	parent := step.node
	if len(parent.keys) < t.maxChildren()-1 {
		parent.insertAt(step.index, separator, rightNode)
		return nil
	}

	newInternal, promoted := t.splitInternalNode(parent, step.index, separator, rightNode)
	t.logger.Trace("split internal node", "promoted", promoted)
	return t.insertIntoParent(path, parent, newInternal, promoted)
}

// splitInternalNode splits a full internal node while inserting separator
// at idx. The middle key is returned for promotion and kept in neither half.
func (t *BPlusTree) splitInternalNode(n *internalNode, idx int, separator int, rightNode node) (*internalNode, int) {
	keys := make([]int, 0, len(n.keys)+1)
	keys = append(keys, n.keys[:idx]...)
	keys = append(keys, separator)
	keys = append(keys, n.keys[idx:]...)

	children := make([]node, 0, len(n.children)+1)
	children = append(children, n.children[:idx+1]...)
	children = append(children, rightNode)
	children = append(children, n.children[idx+1:]...)

	splitIndex := len(keys) / 2
	promoted := keys[splitIndex]

	newInternal := newInternalNode(
		append([]int(nil), keys[splitIndex+1:]...),
		append([]node(nil), children[splitIndex+1:]...),
	)

	n.keys = keys[:splitIndex]
	n.children = children[:splitIndex+1]

	return newInternal, promoted
}
