package bptree

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
)

var (
	internalColor = color.New(color.FgCyan, color.Bold)
	leafColor     = color.New(color.FgGreen)
)

// IsEmpty reports whether the tree holds no keys
func (t *BPlusTree) IsEmpty() bool {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.root == nil
}

// Len returns the number of keys in the tree
func (t *BPlusTree) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	count := 0
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		count += len(leaf.keys)
	}
	return count
}

// Height returns the number of levels in the tree, 0 for an empty tree
func (t *BPlusTree) Height() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	height := 0
	current := t.root
	for current != nil {
		height++
		n, ok := current.(*internalNode)
		if !ok || len(n.children) == 0 {
			break
		}
		current = n.children[0]
	}
	return height
}

// NodeCount returns the number of nodes in the tree
func (t *BPlusTree) NodeCount() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	var count func(n node) int
	count = func(n node) int {
		internal, ok := n.(*internalNode)
		if !ok {
			return 1
		}
		total := 1
		for _, child := range internal.children {
			total += count(child)
		}
		return total
	}

	if t.root == nil {
		return 0
	}
	return count(t.root)
}

// Keys returns every key in ascending order by walking the leaf chain
func (t *BPlusTree) Keys() []int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	var keys []int
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		keys = append(keys, leaf.keys...)
	}
	return keys
}

// Ascend calls fn for every key greater than or equal to from, in
// ascending order, until fn returns false.
func (t *BPlusTree) Ascend(from int, fn func(key int, handle RecordHandle) bool) error {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.root == nil {
		return nil
	}

	leaf, _, err := t.descend(from)
	if err != nil {
		return fmt.Errorf("failed to find leaf node: %w", err)
	}

	idx, _ := leaf.findKeyIndex(from)
	for current := leaf; current != nil; current = current.next {
		for ; idx < len(current.keys); idx++ {
			if !fn(current.keys[idx], current.records[idx]) {
				return nil
			}
		}
		idx = 0
	}
	return nil
}

// firstLeaf returns the leftmost leaf, or nil for an empty tree
func (t *BPlusTree) firstLeaf() *leafNode {
	if t.root == nil {
		return nil
	}
	return leftmostLeaf(t.root)
}

// findParent searches the subtree under root for the internal node that
// holds child as a direct child. It returns the parent and the child's index.
func findParent(root node, child node) (*internalNode, int, bool) {
	n, ok := root.(*internalNode)
	if !ok || n == nil {
		return nil, 0, false
	}

	for i, c := range n.children {
		if c == child {
			return n, i, true
		}
	}
	for _, c := range n.children {
		if parent, idx, found := findParent(c, child); found {
			return parent, idx, true
		}
	}
	return nil, 0, false
}

// Print writes a visual representation of the B+ tree to w
func (t *BPlusTree) Print(w io.Writer) error {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.root == nil {
		_, err := fmt.Fprintln(w, "(empty tree)")
		return err
	}
	return t.printNode(w, t.root, "", true)
}

// printNode recursively prints a node and its children
func (t *BPlusTree) printNode(w io.Writer, n node, prefix string, isLast bool) error {
	branch := "├── "
	if isLast {
		branch = "└── "
	}

	switch cur := n.(type) {
	case *leafNode:
		_, err := fmt.Fprintf(w, "%s%s%s %v\n", prefix, branch, leafColor.Sprint("Leaf"), cur.keys)
		return err
	case *internalNode:
		if _, err := fmt.Fprintf(w, "%s%s%s %v\n", prefix, branch, internalColor.Sprint("Internal"), cur.keys); err != nil {
			return err
		}

		nextPrefix := prefix
		if isLast {
			nextPrefix += "    "
		} else {
			nextPrefix += "│   "
		}
		for i, child := range cur.children {
			if err := t.printNode(w, child, nextPrefix, i == len(cur.children)-1); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unknown node type %T", ErrCorruptedStructure, n)
}

// PrintSequence writes all keys on one line in leaf-chain order
func (t *BPlusTree) PrintSequence(w io.Writer) error {
	keys := t.Keys()
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "(no keys)")
		return err
	}

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprint(k)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}

// Destroy tears the tree down, releasing the record behind every handle.
// The tree is empty afterwards even if some releases failed; the failures
// are returned together.
func (t *BPlusTree) Destroy(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	var result *multierror.Error
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		for i, handle := range leaf.records {
			if err := t.releaser.Release(ctx, handle); err != nil {
				result = multierror.Append(result, fmt.Errorf("failed to release record for key %d: %w", leaf.keys[i], err))
			}
		}
	}

	t.root = nil
	t.logger.Trace("destroyed tree")
	return result.ErrorOrNil()
}
