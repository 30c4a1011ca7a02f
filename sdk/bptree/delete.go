package bptree

import (
	"context"
	"fmt"
	"slices"
)

// Delete removes key from the tree after releasing its record through the
// tree's RecordReleaser. If the release fails the tree is left unchanged.
func (t *BPlusTree) Delete(ctx context.Context, key int) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.root == nil {
		return ErrEmptyTree
	}

	leaf, path, err := t.descend(key)
	if err != nil {
		return fmt.Errorf("failed to find leaf node: %w", err)
	}

	idx, found := leaf.findKeyIndex(key)
	if !found {
		return ErrKeyNotFound
	}

	if err := t.releaser.Release(ctx, leaf.records[idx]); err != nil {
		return fmt.Errorf("failed to release record for key %d: %w", key, err)
	}
	leaf.removeAt(idx)

	// The root leaf is exempt from minimum occupancy
	if len(path) == 0 {
		if len(leaf.keys) == 0 {
			t.root = nil
			t.logger.Trace("tree is now empty")
		}
		return nil
	}

	if len(leaf.keys) < t.minLeafKeys() {
		if err := t.rebalanceLeaf(leaf, path); err != nil {
			return err
		}
	}

	if idx == 0 {
		t.refreshSeparator(key)
	}
	return nil
}

// rebalanceLeaf repairs an underfull leaf by borrowing from a sibling or,
// when neither sibling can spare an entry, merging with one.
func (t *BPlusTree) rebalanceLeaf(leaf *leafNode, path []pathStep) error {
	step := path[len(path)-1]
	parent := step.node

	var left, right *leafNode
	if step.index > 0 {
		sibling, ok := parent.children[step.index-1].(*leafNode)
		if !ok {
			return fmt.Errorf("%w: left sibling of a leaf is not a leaf", ErrCorruptedStructure)
		}
		left = sibling
	}
	if step.index < len(parent.children)-1 {
		sibling, ok := parent.children[step.index+1].(*leafNode)
		if !ok {
			return fmt.Errorf("%w: right sibling of a leaf is not a leaf", ErrCorruptedStructure)
		}
		right = sibling
	}

	switch {
	case left != nil && len(left.keys) > t.minLeafKeys():
		key, handle := left.removeAt(len(left.keys) - 1)
		leaf.insertAt(0, key, handle)
		parent.keys[step.index-1] = leaf.keys[0]
		t.logger.Trace("borrowed from left leaf", "key", key)
		return nil

	case right != nil && len(right.keys) > t.minLeafKeys():
		key, handle := right.removeAt(0)
		leaf.insertAt(len(leaf.keys), key, handle)
		parent.keys[step.index] = right.keys[0]
		t.logger.Trace("borrowed from right leaf", "key", key)
		return nil

	case left != nil:
		left.keys = append(left.keys, leaf.keys...)
		left.records = append(left.records, leaf.records...)
		left.next = leaf.next
		t.logger.Trace("merged leaf into left sibling", "separator", parent.keys[step.index-1])
		return t.removeInternal(path, len(path)-1, step.index-1)

	case right != nil:
		leaf.keys = append(leaf.keys, right.keys...)
		leaf.records = append(leaf.records, right.records...)
		leaf.next = right.next
		t.logger.Trace("merged right sibling into leaf", "separator", parent.keys[step.index])
		return t.removeInternal(path, len(path)-1, step.index)
	}

	return fmt.Errorf("%w: non-root leaf has no siblings", ErrCorruptedStructure)
}

// removeInternal removes keys[keyIdx] and its right-hand child from the
// internal node at path[level], then repairs that node if it underflows.
func (t *BPlusTree) removeInternal(path []pathStep, level int, keyIdx int) error {
	n := path[level].node

	if level == 0 && len(n.keys) == 1 {
		// The root is down to one child, which becomes the new root
		t.root = n.children[keyIdx]
		t.logger.Trace("collapsed root", "separator", n.keys[0])
		return nil
	}

	n.removeAt(keyIdx)

	if level == 0 || len(n.children) >= t.minChildren() {
		return nil
	}
	return t.rebalanceInternal(path, level)
}

// rebalanceInternal repairs the underfull internal node at path[level] by
// rotating an entry through the parent separator or merging with a sibling.
func (t *BPlusTree) rebalanceInternal(path []pathStep, level int) error {
	n := path[level].node
	step := path[level-1]
	parent := step.node

	var left, right *internalNode
	if step.index > 0 {
		sibling, ok := parent.children[step.index-1].(*internalNode)
		if !ok {
			return fmt.Errorf("%w: left sibling of an internal node is a leaf", ErrCorruptedStructure)
		}
		left = sibling
	}
	if step.index < len(parent.children)-1 {
		sibling, ok := parent.children[step.index+1].(*internalNode)
		if !ok {
			return fmt.Errorf("%w: right sibling of an internal node is a leaf", ErrCorruptedStructure)
		}
		right = sibling
	}

	switch {
	case left != nil && len(left.children) > t.minChildren():
		sepIdx := step.index - 1
		lastKey := left.keys[len(left.keys)-1]
		lastChild := left.children[len(left.children)-1]
		left.keys = slices.Delete(left.keys, len(left.keys)-1, len(left.keys))
		left.children = slices.Delete(left.children, len(left.children)-1, len(left.children))

		n.keys = slices.Insert(n.keys, 0, parent.keys[sepIdx])
		n.children = slices.Insert(n.children, 0, lastChild)
		parent.keys[sepIdx] = lastKey
		t.logger.Trace("rotated from left internal node", "separator", lastKey)
		return nil

	case right != nil && len(right.children) > t.minChildren():
		sepIdx := step.index
		firstKey := right.keys[0]
		firstChild := right.children[0]
		right.keys = slices.Delete(right.keys, 0, 1)
		right.children = slices.Delete(right.children, 0, 1)

		n.keys = append(n.keys, parent.keys[sepIdx])
		n.children = append(n.children, firstChild)
		parent.keys[sepIdx] = firstKey
		t.logger.Trace("rotated from right internal node", "separator", firstKey)
		return nil

	case left != nil:
		sepIdx := step.index - 1
		left.keys = append(left.keys, parent.keys[sepIdx])
		left.keys = append(left.keys, n.keys...)
		left.children = append(left.children, n.children...)
		t.logger.Trace("merged internal node into left sibling", "separator", parent.keys[sepIdx])
		return t.removeInternal(path, level-1, sepIdx)

	case right != nil:
		sepIdx := step.index
		n.keys = append(n.keys, parent.keys[sepIdx])
		n.keys = append(n.keys, right.keys...)
		n.children = append(n.children, right.children...)
		t.logger.Trace("merged right sibling into internal node", "separator", parent.keys[sepIdx])
		return t.removeInternal(path, level-1, sepIdx)
	}

	return fmt.Errorf("%w: non-root internal node has no siblings", ErrCorruptedStructure)
}

// refreshSeparator replaces a separator equal to a deleted key with the
// current minimum of the subtree on its right.
func (t *BPlusTree) refreshSeparator(deleted int) {
	current := t.root
	for {
		n, ok := current.(*internalNode)
		if !ok || n == nil {
			return
		}

		idx, found := slices.BinarySearch(n.keys, deleted)
		if found {
			if minKey, ok := subtreeMin(n.children[idx+1]); ok {
				n.keys[idx] = minKey
			}
			return
		}
		current = n.children[idx]
	}
}
