package shamap

import (
	"errors"

	"concordd/internal/crypto"
	"concordd/pkg/errs"
)

// Delta is the result of comparing two SHAMaps: the leaves present in one
// but not the other, and the leaves present in both with different data
// (spec.md §4.C — used to build a transaction-set delta between a proposed
// and a locally-built ledger close).
type Delta struct {
	Added   []Item
	Removed []Item
	Changed []ItemPair
}

// ItemPair is a (before, after) leaf pair reported by Compare for a key
// whose data differs between the two maps.
type ItemPair struct {
	Before Item
	After  Item
}

// ErrTooManyDifferences is returned by Compare once more than maxDiff
// leaf-level differences have been found, the way rippled bails out of a
// transaction-set compare once it's clear the proposal diverges too far to
// be worth reconciling leaf-by-leaf (spec.md §4.C).
var ErrTooManyDifferences = errors.New("shamap: too many differences")

// Compare walks m and other together and reports their leaf-level
// differences, stopping early with ErrTooManyDifferences once the combined
// added+removed+changed count exceeds maxDiff (maxDiff<=0 means
// unbounded).
func (m *SHAMap) Compare(other *SHAMap, maxDiff int) (*Delta, error) {
	d := &Delta{}
	if err := diffNodes(m.root, other.root, maxDiff, d); err != nil {
		return nil, err
	}
	return d, nil
}

func diffCount(d *Delta) int { return len(d.Added) + len(d.Removed) + len(d.Changed) }

func diffNodes(a, b *treeNode, maxDiff int, d *Delta) error {
	if a == b {
		// Identical subtree (same pointer): COW guarantees unmodified
		// subtrees are shared, so this is the common fast path that makes
		// Compare cheap on two maps with a small delta.
		return nil
	}
	if maxDiff > 0 && diffCount(d) > maxDiff {
		return ErrTooManyDifferences
	}
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		collectAll(b, func(it Item) { d.Added = append(d.Added, it) })
		return checkBound(maxDiff, d)
	case b == nil:
		collectAll(a, func(it Item) { d.Removed = append(d.Removed, it) })
		return checkBound(maxDiff, d)
	}
	if a.isLeaf() && b.isLeaf() {
		if a.item.Key != b.item.Key {
			d.Removed = append(d.Removed, *a.item)
			d.Added = append(d.Added, *b.item)
			return checkBound(maxDiff, d)
		}
		if string(a.item.Data) != string(b.item.Data) {
			d.Changed = append(d.Changed, ItemPair{Before: *a.item, After: *b.item})
		}
		return checkBound(maxDiff, d)
	}
	if a.isLeaf() != b.isLeaf() {
		// One side collapsed an inner node into a leaf relative to the
		// other (spec.md §4.C delete/collapse edge case). The leaf still
		// occupies exactly one of the inner node's 16 slots; recurse into
		// that slot and treat every other occupied slot as wholly
		// added/removed, instead of naively diffing the two subtrees'
		// entire leaf sets against each other.
		leaf, inner, leafIsA := a, b, true
		if b.isLeaf() {
			leaf, inner, leafIsA = b, a, false
		}
		idx := nibble(leaf.item.Key, inner.depth)
		for i, c := range inner.children {
			if i == idx {
				if leafIsA {
					if err := diffNodes(leaf, c, maxDiff, d); err != nil {
						return err
					}
				} else if err := diffNodes(c, leaf, maxDiff, d); err != nil {
					return err
				}
				continue
			}
			if leafIsA {
				collectAll(c, func(it Item) { d.Added = append(d.Added, it) })
			} else {
				collectAll(c, func(it Item) { d.Removed = append(d.Removed, it) })
			}
		}
		return checkBound(maxDiff, d)
	}
	for i := 0; i < 16; i++ {
		if err := diffNodes(a.children[i], b.children[i], maxDiff, d); err != nil {
			return err
		}
	}
	return nil
}

func checkBound(maxDiff int, d *Delta) error {
	if maxDiff > 0 && diffCount(d) > maxDiff {
		return ErrTooManyDifferences
	}
	return nil
}

func collectAll(n *treeNode, visit func(Item)) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		visit(*n.item)
		return
	}
	for _, c := range n.children {
		collectAll(c, visit)
	}
}

// WireNode is one (hash, raw bytes, type) entry of a sync fan-out response,
// mirroring rippled's getNodeFat result shape (original_source's
// SHAMap::getNodeFat).
type WireNode struct {
	Hash   crypto.Hash256
	Data   []byte
	Type   NType
	IsLeaf bool
}

// GetNodesFanout returns the node (identified by key's prefix down to
// depth nibbles) and, for an inner node, its immediate children, encoded
// for transmission to a peer performing incremental tree sync (spec.md
// §4.C). If the path ends at a leaf above depth, that leaf is returned; it
// returns a *errs.MissingNode if the path reaches an empty slot.
func (m *SHAMap) GetNodesFanout(key crypto.Hash256, depth int, typ NType) ([]WireNode, error) {
	n := m.root
	d := 0
	for d < depth {
		if n == nil {
			return nil, &errs.MissingNode{Type: m.typ, Kind: errs.MissingByKey, Key: key}
		}
		if n.isLeaf() {
			break
		}
		n = n.children[nibble(key, d)]
		d++
	}
	if n == nil {
		return nil, &errs.MissingNode{Type: m.typ, Kind: errs.MissingByKey, Key: key}
	}
	out := []WireNode{m.wireForCached(n, typ)}
	if !n.isLeaf() {
		for _, c := range n.children {
			if c != nil {
				out = append(out, m.wireForCached(c, typ))
			}
		}
	}
	return out, nil
}

// wireForCached is wireFor with m's NodeCache consulted first, so a hot
// inner node shared across many snapshots (copy-on-write) isn't
// re-flattened on every sync round.
func (m *SHAMap) wireForCached(n *treeNode, typ NType) WireNode {
	if n.isLeaf() {
		hash := n.item.Key
		if data, ok := m.nodeCache.Get(hash); ok {
			return WireNode{Hash: hash, Data: data, Type: typ, IsLeaf: true}
		}
		w := wireFor(n, typ)
		m.nodeCache.Add(hash, w.Data)
		return w
	}
	hash := n.hashFor(LayoutV1)
	if data, ok := m.nodeCache.Get(hash); ok {
		return WireNode{Hash: hash, Data: data, Type: typ}
	}
	w := wireFor(n, typ)
	m.nodeCache.Add(hash, w.Data)
	return w
}

func wireFor(n *treeNode, typ NType) WireNode {
	if n.isLeaf() {
		return WireNode{Hash: n.item.Key, Data: cloneBytes(n.item.Data), Type: typ, IsLeaf: true}
	}
	var parts [][]byte
	for _, c := range n.children {
		h := childHash(c, LayoutV1)
		parts = append(parts, h[:])
	}
	return WireNode{Hash: n.hashFor(LayoutV1), Data: flatten(parts), Type: typ}
}

func flatten(parts [][]byte) []byte {
	out := make([]byte, 0, len(parts)*32)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// IngestLeaf adds (or updates) a leaf received from a peer during
// incremental sync, notifying the attached SyncFilter so it can persist
// the node the way rippled's SHAMapSyncFilter::gotNode does. ledgerSeq
// identifies the ledger the node was fetched for. If m's FullBelowCache
// already holds item.Key, IngestLeaf returns nil without applying item or
// notifying the filter.
func (m *SHAMap) IngestLeaf(ledgerSeq uint32, item Item, typ NType) error {
	if m.fullBelow.Know(item.Key) {
		return nil
	}
	if err := m.Update(item); err != nil {
		return err
	}
	if m.filter != nil {
		m.filter.GotNode(item.Key, ledgerSeq, item.Data, typ)
	}
	m.fullBelow.Mark(item.Key)
	return nil
}
