package shamap

import (
	"errors"

	"concordd/internal/crypto"
	"concordd/pkg/errs"
)

// ErrAlreadyPresent is returned by Add when the key is already present,
// per spec.md §4.C.
var ErrAlreadyPresent = errors.New("shamap: key already present")

// ErrNotFound is returned by Delete when the key is absent.
var ErrNotFound = errors.New("shamap: key not found")

// SHAMap is a 16-ary radix tree of Items keyed by a 256-bit digest. The
// zero value is not usable; use New.
type SHAMap struct {
	root   *treeNode
	seq    uint64 // current copy-on-write generation
	layout HashLayout
	typ    errs.MapType
	filter SyncFilter

	nodeCache *NodeCache
	fullBelow *FullBelowCache
}

// SyncFilter lets a SHAMap fetch nodes it doesn't have locally and record
// nodes it receives from a peer, for incremental Merkle sync (spec.md
// §4.C). Grounded on rippled's SHAMapSyncFilter
// (original_source/src/ripple/shamap/SHAMapSyncFilter.h).
type SyncFilter interface {
	GotNode(hash crypto.Hash256, ledgerSeq uint32, data []byte, typ NType)
	GetNode(hash crypto.Hash256) ([]byte, bool)
}

// New creates an empty SHAMap using the given hash layout and declaring
// which conceptual map (transaction or state) it backs, for missing-node
// error reporting.
func New(layout HashLayout, typ errs.MapType) *SHAMap {
	return &SHAMap{seq: 1, layout: layout, typ: typ}
}

// SetSyncFilter attaches (or clears, with nil) a sync filter used to
// resolve local misses during traversal.
func (m *SHAMap) SetSyncFilter(f SyncFilter) { m.filter = f }

// Layout reports the hash layout m was created with, so a caller building
// a sibling map (e.g. a fresh per-ledger TxMap alongside a snapshotted
// StateMap) can match it without having to thread the layout through
// separately.
func (m *SHAMap) Layout() HashLayout { return m.layout }

// Has reports whether key is present.
func (m *SHAMap) Has(key crypto.Hash256) bool {
	_, ok, _ := m.Get(key)
	return ok
}

// Get returns the item stored at key, if present. A missing intermediate
// node surfaces as *errs.MissingNode rather than a plain "not found".
func (m *SHAMap) Get(key crypto.Hash256) (Item, bool, error) {
	n := m.root
	depth := 0
	for {
		if n == nil {
			return Item{}, false, nil
		}
		if n.isLeaf() {
			if n.item.Key == key {
				return Item{Key: n.item.Key, Data: cloneBytes(n.item.Data)}, true, nil
			}
			return Item{}, false, nil
		}
		child := n.children[nibble(key, depth)]
		if child == nil {
			return Item{}, false, nil
		}
		n = child
		depth++
		if depth > maxDepth {
			return Item{}, false, &errs.MissingNode{Type: m.typ, Kind: errs.MissingByKey, Key: key}
		}
	}
}

// Add inserts a new item, failing with ErrAlreadyPresent if key exists
// (spec.md §4.C).
func (m *SHAMap) Add(item Item) error {
	return m.insert(item, true)
}

// Update replaces the data stored at key, inserting it if absent (an
// upsert; unlike Add it never fails on an existing key).
func (m *SHAMap) Update(item Item) error {
	return m.insert(item, false)
}

func (m *SHAMap) insert(item Item, mustBeNew bool) error {
	newRoot, err := m.insertAt(m.root, item, 0, mustBeNew)
	if err != nil {
		return err
	}
	m.root = newRoot
	return nil
}

// insertAt walks (and copy-on-writes) the path to item.Key, creating a
// split when it lands on a leaf holding a different key at the same depth
// (spec.md §4.C edge case): a fresh inner node is built at the smallest
// distinguishing nibble and both leaves are reattached below it.
func (m *SHAMap) insertAt(n *treeNode, item Item, depth int, mustBeNew bool) (*treeNode, error) {
	if n == nil {
		leaf := newLeaf(m.seq, depth, &Item{Key: item.Key, Data: cloneBytes(item.Data)})
		return leaf, nil
	}
	if n.isLeaf() {
		if n.item.Key == item.Key {
			if mustBeNew {
				return nil, ErrAlreadyPresent
			}
			return newLeaf(m.seq, depth, &Item{Key: item.Key, Data: cloneBytes(item.Data)}), nil
		}
		// Split: create a chain of inner nodes down to the first nibble at
		// which the two keys diverge.
		return m.split(n, &Item{Key: item.Key, Data: cloneBytes(item.Data)}, depth)
	}

	inner := m.cow(n)
	idx := nibble(item.Key, depth)
	child, err := m.insertAt(inner.children[idx], item, depth+1, mustBeNew)
	if err != nil {
		return nil, err
	}
	inner.children[idx] = child
	inner.invalidate()
	return inner, nil
}

// split builds the minimal chain of inner nodes separating existingLeaf
// from newItem, both of which collide on every nibble above startDepth.
func (m *SHAMap) split(existingLeaf *treeNode, newItem *Item, startDepth int) (*treeNode, error) {
	depth := startDepth
	for {
		if depth > maxDepth {
			return nil, errors.New("shamap: key collision across full depth")
		}
		a := nibble(existingLeaf.item.Key, depth)
		b := nibble(newItem.Key, depth)
		inner := newInner(m.seq, depth)
		if a == b {
			// Still colliding at this nibble: recurse one level deeper
			// through a single-child inner node.
			child, err := m.split(existingLeaf, newItem, depth+1)
			if err != nil {
				return nil, err
			}
			inner.children[a] = child
			return inner, nil
		}
		// existingLeaf may still be shared with a snapshot: clone it under
		// the current generation before changing its depth in place.
		relocated := existingLeaf.clone(m.seq)
		relocated.depth = depth + 1
		inner.children[a] = relocated
		inner.children[b] = newLeaf(m.seq, depth+1, newItem)
		return inner, nil
	}
}

// Delete removes key. If this leaves its parent inner node holding exactly
// one remaining leaf child, that inner node collapses back into a leaf in
// its own parent's slot (spec.md §4.C edge case).
func (m *SHAMap) Delete(key crypto.Hash256) error {
	newRoot, removed, err := m.deleteAt(m.root, key, 0)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	m.root = newRoot
	return nil
}

func (m *SHAMap) deleteAt(n *treeNode, key crypto.Hash256, depth int) (*treeNode, bool, error) {
	if n == nil {
		return nil, false, nil
	}
	if n.isLeaf() {
		if n.item.Key != key {
			return n, false, nil
		}
		return nil, true, nil
	}
	inner := m.cow(n)
	idx := nibble(key, depth)
	child, removed, err := m.deleteAt(inner.children[idx], key, depth+1)
	if err != nil {
		return nil, false, err
	}
	if !removed {
		return n, false, nil
	}
	inner.children[idx] = child
	inner.invalidate()
	return collapse(inner), true, nil
}

// collapse replaces an inner node with its sole remaining leaf child when
// exactly one slot is occupied, restoring the path-compressed shape spec.md
// §4.C requires after a delete.
func collapse(inner *treeNode) *treeNode {
	var only *treeNode
	count := 0
	for _, c := range inner.children {
		if c != nil {
			count++
			only = c
		}
	}
	if count == 1 && only.isLeaf() {
		// only may still be shared with a snapshot (it wasn't on the
		// delete path and so was never cow'd); clone before relocating it.
		relocated := only.clone(inner.seq)
		relocated.depth = inner.depth
		return relocated
	}
	return inner
}

// cow returns a node usable for in-place mutation by the current
// generation, cloning n first if it was allocated by an older generation
// (i.e. is shared with a snapshot) — spec.md §4.C / §5.
func (m *SHAMap) cow(n *treeNode) *treeNode {
	if n.seq == m.seq {
		return n
	}
	return n.clone(m.seq)
}

// GetHash returns the map's root hash, lazily recomputing dirty nodes
// bottom-up. The result is invariant under insertion order (spec.md §4.C,
// §8) because it depends only on the set of (key, data) leaves reachable
// from the root.
func (m *SHAMap) GetHash() crypto.Hash256 {
	if m.root == nil {
		return zeroHash
	}
	return m.root.hashFor(m.layout)
}

// Snapshot returns an O(1) copy-on-write clone sharing all nodes with m.
// Writers on either copy allocate fresh nodes along touched paths; reads
// against either copy never observe the other's subsequent writes
// (spec.md §4.C, §5).
//
// m's generation always advances, so every node reachable from the shared
// root becomes "stale" for m and will be cloned before m's next write
// touches it. When mutable is true the returned clone gets its own fresh,
// distinct generation so it too may be written to safely; when false it is
// stamped with the reserved generation 0, which never equals a live map's
// seq, so an accidental write against it always clones rather than
// mutating a node some other map still holds.
func (m *SHAMap) Snapshot(mutable bool) *SHAMap {
	clone := &SHAMap{root: m.root, layout: m.layout, typ: m.typ, filter: m.filter, nodeCache: m.nodeCache, fullBelow: m.fullBelow}
	m.seq++
	if mutable {
		clone.seq = m.seq
		m.seq++
	} else {
		clone.seq = 0
	}
	return clone
}
