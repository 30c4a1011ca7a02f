package bptree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func handleFor(key int) RecordHandle {
	return RecordHandle(fmt.Sprintf("record-%d", key))
}

// recordingReleaser remembers every released handle and can be told to fail
type recordingReleaser struct {
	mu       sync.Mutex
	released []RecordHandle
	fail     bool
}

func (r *recordingReleaser) Release(_ context.Context, handle RecordHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail {
		return errors.New("release failed")
	}
	r.released = append(r.released, handle)
	return nil
}

func newTestTree(t *testing.T, internalOrder, leafOrder int) (*BPlusTree, *recordingReleaser) {
	t.Helper()

	config, err := NewBPlusTreeConfig(internalOrder, leafOrder)
	require.NoError(t, err, "Failed to create config")

	releaser := &recordingReleaser{}
	tree, err := NewBPlusTree(config, releaser, nil)
	require.NoError(t, err, "Failed to create B+ tree")
	return tree, releaser
}

func insertKeys(t *testing.T, tree *BPlusTree, keys ...int) {
	t.Helper()

	for _, k := range keys {
		require.NoError(t, tree.Insert(k, handleFor(k)), "Failed to insert key %d", k)
	}
}

func deleteKeys(t *testing.T, tree *BPlusTree, keys ...int) {
	t.Helper()

	for _, k := range keys {
		require.NoError(t, tree.Delete(context.Background(), k), "Failed to delete key %d", k)
		require.NoError(t, tree.Verify(), "Invariants broken after deleting %d", k)
	}
}

func keyRange(from, to int) []int {
	keys := make([]int, 0, to-from+1)
	for k := from; k <= to; k++ {
		keys = append(keys, k)
	}
	return keys
}

// leafGroups returns the keys of each leaf in leaf-chain order
func leafGroups(tree *BPlusTree) [][]int {
	var groups [][]int
	for leaf := tree.firstLeaf(); leaf != nil; leaf = leaf.next {
		groups = append(groups, append([]int(nil), leaf.keys...))
	}
	return groups
}

// internalKeys returns the root's keys followed by the keys of its children
func internalKeys(t *testing.T, tree *BPlusTree) ([]int, [][]int) {
	t.Helper()

	root, ok := tree.root.(*internalNode)
	require.True(t, ok, "root should be an internal node")

	var children [][]int
	for _, child := range root.children {
		if internal, ok := child.(*internalNode); ok {
			children = append(children, internal.keys)
		}
	}
	return root.keys, children
}
