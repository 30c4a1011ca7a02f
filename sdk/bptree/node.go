package bptree

import "slices"

// RecordHandle identifies a record held by an external record backend.
// The tree stores handles but never interprets them.
type RecordHandle string

// node is a B+ tree node: either an *internalNode or a *leafNode.
// The variant is fixed when the node is created.
type node interface {
	keyCount() int
	isLeaf() bool
}

// internalNode routes searches. keys[i] is the smallest key in the
// subtree of children[i+1].
type internalNode struct {
	keys     []int
	children []node
}

// leafNode holds keys and their record handles. Leaves are chained
// through next in ascending key order.
type leafNode struct {
	keys    []int
	records []RecordHandle
	next    *leafNode
}

// newLeafNode creates a new empty leaf node
func newLeafNode() *leafNode {
	return &leafNode{}
}

// newInternalNode creates an internal node owning the given keys and children
func newInternalNode(keys []int, children []node) *internalNode {
	return &internalNode{
		keys:     keys,
		children: children,
	}
}

func (n *internalNode) keyCount() int { return len(n.keys) }
func (n *internalNode) isLeaf() bool  { return false }
func (n *leafNode) keyCount() int     { return len(n.keys) }
func (n *leafNode) isLeaf() bool      { return true }

// childIndex returns the index of the child whose subtree covers key,
// i.e. the index of the first separator strictly greater than key.
func (n *internalNode) childIndex(key int) int {
	idx, found := slices.BinarySearch(n.keys, key)
	if found {
		return idx + 1
	}
	return idx
}

// insertAt inserts a separator at keys[idx] together with its right-hand
// child at children[idx+1].
func (n *internalNode) insertAt(idx int, key int, right node) {
	n.keys = slices.Insert(n.keys, idx, key)
	n.children = slices.Insert(n.children, idx+1, right)
}

// removeAt removes keys[idx] and the child paired with it, children[idx+1].
func (n *internalNode) removeAt(idx int) {
	n.keys = slices.Delete(n.keys, idx, idx+1)
	n.children = slices.Delete(n.children, idx+1, idx+2)
}

// findKeyIndex finds the index where a key is located or should be inserted.
// Returns the index and whether the key was found
func (n *leafNode) findKeyIndex(key int) (int, bool) {
	return slices.BinarySearch(n.keys, key)
}

// insertAt inserts a key and its record handle at the specified index
func (n *leafNode) insertAt(idx int, key int, handle RecordHandle) {
	n.keys = slices.Insert(n.keys, idx, key)
	n.records = slices.Insert(n.records, idx, handle)
}

// removeAt removes the entry at the specified index and returns it
func (n *leafNode) removeAt(idx int) (int, RecordHandle) {
	key, handle := n.keys[idx], n.records[idx]
	n.keys = slices.Delete(n.keys, idx, idx+1)
	n.records = slices.Delete(n.records, idx, idx+1)
	return key, handle
}

// leftmostLeaf follows first children down to a leaf. It returns nil if
// the subtree is malformed.
func leftmostLeaf(n node) *leafNode {
	for {
		switch cur := n.(type) {
		case *leafNode:
			return cur
		case *internalNode:
			if cur == nil || len(cur.children) == 0 {
				return nil
			}
			n = cur.children[0]
		default:
			return nil
		}
	}
}

// subtreeMin returns the smallest key stored under n.
func subtreeMin(n node) (int, bool) {
	leaf := leftmostLeaf(n)
	if leaf == nil || len(leaf.keys) == 0 {
		return 0, false
	}
	return leaf.keys[0], true
}
