package shamap

import "concordd/internal/crypto"

// HashLayout selects which inner-node hashing policy a SHAMap uses. Both
// must be supported, selectable per ledger (spec.md §4.C).
type HashLayout int

const (
	// LayoutV1 hashes inner nodes as hash(innerPrefix ‖ h0 ‖ … ‖ h15), with
	// no depth in the preimage.
	LayoutV1 HashLayout = iota
	// LayoutV2 folds the node's depth into the prefix's preimage, so two
	// structurally-identical subtrees appearing at different depths never
	// collide.
	LayoutV2
)

var zeroHash crypto.Hash256

func (n *treeNode) computeHash(layout HashLayout) crypto.Hash256 {
	if n == nil {
		return zeroHash
	}
	if n.kind == kindLeaf {
		return crypto.Hash256Prefixed(crypto.PrefixLeafNode, n.item.Key[:], n.item.Data)
	}
	parts := make([][]byte, 0, 17)
	if layout == LayoutV2 {
		parts = append(parts, []byte{byte(n.depth)})
	}
	for _, c := range n.children {
		h := childHash(c, layout)
		parts = append(parts, h[:])
	}
	prefix := crypto.PrefixInnerNode
	if layout == LayoutV2 {
		prefix = crypto.PrefixInnerNodeV2
	}
	return crypto.Hash256Prefixed(prefix, parts...)
}

func childHash(c *treeNode, layout HashLayout) crypto.Hash256 {
	if c == nil {
		return zeroHash
	}
	return c.hashFor(layout)
}

// hashFor returns the node's hash, computing (and caching) it if dirty.
// Hashes are recomputed lazily bottom-up: a mutation invalidates every
// ancestor's cached hash up to the root, and the next GetHash call walks
// down recomputing only the dirty subtrees (spec.md §4.C).
func (n *treeNode) hashFor(layout HashLayout) crypto.Hash256 {
	if n == nil {
		return zeroHash
	}
	if n.hashValid {
		return n.hash
	}
	n.hash = n.computeHash(layout)
	n.hashValid = true
	return n.hash
}

func (n *treeNode) invalidate() {
	if n != nil {
		n.hashValid = false
	}
}
