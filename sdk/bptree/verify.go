package bptree

import "fmt"

// Verify checks the structural invariants of the whole tree: key order,
// separator placement, node occupancy, uniform leaf depth, parent links and
// the leaf chain. Any violation is reported as ErrCorruptedStructure.
func (t *BPlusTree) Verify() error {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if t.root == nil {
		return nil
	}

	v := &verifier{tree: t, leafDepth: -1}
	if err := v.walk(t.root, 0, bound{}, bound{}); err != nil {
		return err
	}
	return v.checkChain()
}

// bound is an optional key limit used while walking subtrees
type bound struct {
	set   bool
	value int
}

type verifier struct {
	tree      *BPlusTree
	leaves    []*leafNode
	leafDepth int
}

func corrupted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptedStructure, fmt.Sprintf(format, args...))
}

func (v *verifier) walk(n node, depth int, lo, hi bound) error {
	isRoot := depth == 0

	switch cur := n.(type) {
	case *leafNode:
		if cur == nil {
			return corrupted("nil leaf at depth %d", depth)
		}
		if len(cur.keys) != len(cur.records) {
			return corrupted("leaf has %d keys but %d records", len(cur.keys), len(cur.records))
		}
		if len(cur.keys) > v.tree.maxLeafKeys() {
			return corrupted("leaf holds %d keys, limit is %d", len(cur.keys), v.tree.maxLeafKeys())
		}
		if isRoot && len(cur.keys) == 0 {
			return corrupted("empty root leaf")
		}
		if !isRoot && len(cur.keys) < v.tree.minLeafKeys() {
			return corrupted("leaf holds %d keys, minimum is %d", len(cur.keys), v.tree.minLeafKeys())
		}
		if err := checkKeys(cur.keys, lo, hi); err != nil {
			return err
		}

		if v.leafDepth == -1 {
			v.leafDepth = depth
		} else if v.leafDepth != depth {
			return corrupted("leaf at depth %d, expected %d", depth, v.leafDepth)
		}
		v.leaves = append(v.leaves, cur)
		return nil

	case *internalNode:
		if cur == nil {
			return corrupted("nil internal node at depth %d", depth)
		}
		if len(cur.children) != len(cur.keys)+1 {
			return corrupted("internal node has %d keys and %d children", len(cur.keys), len(cur.children))
		}
		if len(cur.children) > v.tree.maxChildren() {
			return corrupted("internal node has %d children, limit is %d", len(cur.children), v.tree.maxChildren())
		}
		if isRoot && len(cur.children) < 2 {
			return corrupted("internal root has %d children", len(cur.children))
		}
		if !isRoot && len(cur.children) < v.tree.minChildren() {
			return corrupted("internal node has %d children, minimum is %d", len(cur.children), v.tree.minChildren())
		}
		if err := checkKeys(cur.keys, lo, hi); err != nil {
			return err
		}

		for i, child := range cur.children {
			parent, idx, found := findParent(v.tree.root, child)
			if !found || parent != cur || idx != i {
				return corrupted("child %d of internal node %v is not found under its parent", i, cur.keys)
			}

			if i > 0 {
				minKey, ok := subtreeMin(child)
				if !ok || minKey != cur.keys[i-1] {
					return corrupted("separator %d does not match right subtree minimum %d", cur.keys[i-1], minKey)
				}
			}

			childLo, childHi := lo, hi
			if i > 0 {
				childLo = bound{set: true, value: cur.keys[i-1]}
			}
			if i < len(cur.keys) {
				childHi = bound{set: true, value: cur.keys[i]}
			}
			if err := v.walk(child, depth+1, childLo, childHi); err != nil {
				return err
			}
		}
		return nil
	}

	return corrupted("missing node at depth %d", depth)
}

// checkKeys verifies keys are strictly increasing and inside [lo, hi)
func checkKeys(keys []int, lo, hi bound) error {
	for i, k := range keys {
		if i > 0 && keys[i-1] >= k {
			return corrupted("keys out of order: %v", keys)
		}
		if lo.set && k < lo.value {
			return corrupted("key %d below lower bound %d", k, lo.value)
		}
		if hi.set && k >= hi.value {
			return corrupted("key %d not below upper bound %d", k, hi.value)
		}
	}
	return nil
}

// checkChain verifies the leaf chain visits exactly the leaves found by the
// depth-first walk, in the same order.
func (v *verifier) checkChain() error {
	current := leftmostLeaf(v.tree.root)
	for i, leaf := range v.leaves {
		if current != leaf {
			return corrupted("leaf chain diverges from tree order at leaf %d", i)
		}
		current = current.next
	}
	if current != nil {
		return corrupted("leaf chain continues past the last leaf")
	}
	return nil
}
