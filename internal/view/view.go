// Package view implements the layered read/apply view stack that sits
// between the closing pipeline and a ledger's SHAMaps (spec.md §4.F):
// an immutable ReadView, a delta-accumulating ApplyView (nestable as a
// Sandbox), and a RawView commit step. Grounded on the teacher's
// views-over-mutable-state idiom in core/liquidity_views.go, generalized
// from a read-only snapshot struct into a writable, delta-tracked overlay.
package view

import (
	"time"

	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/internal/stobject"
)

// LedgerInfo is the subset of a ledger's header a view needs to answer
// preclaim/apply questions without depending on the ledger package
// directly (avoiding an import cycle: ledger drives view, not vice versa).
type LedgerInfo struct {
	Seq             uint32
	ParentCloseTime time.Time
	CloseTime       time.Time
	BaseFeeDrops    uint64
	ReferenceUnits  uint32
}

// ReadView is read-only access to a sealed ledger's state map (spec.md
// §4.F). Every view in the stack, including ApplyView, satisfies it.
type ReadView interface {
	Info() LedgerInfo
	Read(key crypto.Hash256) (shamap.Item, bool, error)
}

// RawView is the mutable ledger builder that a top-level ApplyView's
// delta is ultimately committed into.
type RawView struct {
	info LedgerInfo
	Map  *shamap.SHAMap
}

// NewRawView wraps a mutable state-map snapshot for a ledger under
// construction.
func NewRawView(info LedgerInfo, stateMap *shamap.SHAMap) *RawView {
	return &RawView{info: info, Map: stateMap}
}

func (r *RawView) Info() LedgerInfo { return r.info }

func (r *RawView) Read(key crypto.Hash256) (shamap.Item, bool, error) {
	return r.Map.Get(key)
}

// opKind tags one delta entry's effect.
type opKind int

const (
	opCreate opKind = iota
	opModify
	opDelete
)

type deltaEntry struct {
	op   opKind
	item shamap.Item
}

// ApplyView accumulates pending state-map creates/updates/deletes in
// insertion order without mutating its base, and records XRP destroyed by
// fees or burns during the transaction it backs (spec.md §4.F).
type ApplyView struct {
	base   ReadView
	delta  map[crypto.Hash256]deltaEntry
	order  []crypto.Hash256
	burned uint64
}

// NewApplyView opens a transactional overlay on top of any ReadView
// (a RawView for a fresh transaction, or another ApplyView to nest a
// Sandbox).
func NewApplyView(base ReadView) *ApplyView {
	return &ApplyView{base: base, delta: make(map[crypto.Hash256]deltaEntry)}
}

func (v *ApplyView) Info() LedgerInfo { return v.base.Info() }

// Read resolves key against this view's own pending delta first, falling
// back to the base view — the "child view shares the parent's read
// fallback" property spec.md §4.F requires.
func (v *ApplyView) Read(key crypto.Hash256) (shamap.Item, bool, error) {
	if e, ok := v.delta[key]; ok {
		if e.op == opDelete {
			return shamap.Item{}, false, nil
		}
		return e.item, true, nil
	}
	return v.base.Read(key)
}

func (v *ApplyView) record(key crypto.Hash256, e deltaEntry) {
	if _, exists := v.delta[key]; !exists {
		v.order = append(v.order, key)
	}
	v.delta[key] = e
}

// Insert stages a new state-map leaf.
func (v *ApplyView) Insert(item shamap.Item) {
	v.record(item.Key, deltaEntry{op: opCreate, item: item})
}

// Update stages a modification to an existing leaf.
func (v *ApplyView) Update(item shamap.Item) {
	v.record(item.Key, deltaEntry{op: opModify, item: item})
}

// Erase stages removal of key.
func (v *ApplyView) Erase(key crypto.Hash256) {
	v.record(key, deltaEntry{op: opDelete, item: shamap.Item{Key: key}})
}

// DestroyXRP records drops permanently removed from circulation (fees,
// reserve burns), accumulated for the ledger's totalDrops accounting
// (spec.md §4.D).
func (v *ApplyView) DestroyXRP(drops uint64) { v.burned += drops }

// Burned returns the total drops this view (and any sandboxes merged into
// it) has destroyed.
func (v *ApplyView) Burned() uint64 { return v.burned }

// DirAdd and DirRemove are the directory-page management helpers spec.md
// §4.F names; directory pages are themselves just state-map leaves keyed
// by an owner-directory digest, so they're expressed directly in terms of
// Update/Erase rather than a separate subsystem.
func (v *ApplyView) DirAdd(dirKey crypto.Hash256, entries [][]byte) {
	v.Update(shamap.Item{Key: dirKey, Data: encodeDirPage(entries)})
}

func (v *ApplyView) DirRemove(dirKey crypto.Hash256, remaining [][]byte) {
	if len(remaining) == 0 {
		v.Erase(dirKey)
		return
	}
	v.Update(shamap.Item{Key: dirKey, Data: encodeDirPage(remaining)})
}

func encodeDirPage(entries [][]byte) []byte {
	var out []byte
	for _, e := range entries {
		out = append(out, byte(len(e)))
		out = append(out, e...)
	}
	return out
}

// DecodeDirPage reverses encodeDirPage, reporting ok=false if data is not a
// well-formed, fully-consumed sequence of length-prefixed entries (the
// signal callers use to tell a directory page apart from other raw-byte
// leaves when walking a transaction's touched state, since a directory page
// carries no type tag of its own).
func DecodeDirPage(data []byte) (entries [][]byte, ok bool) {
	for len(data) > 0 {
		n := int(data[0])
		data = data[1:]
		if len(data) < n {
			return nil, false
		}
		entries = append(entries, data[:n])
		data = data[n:]
	}
	return entries, true
}

// Touched returns every item v has staged as a create or modify, in
// insertion order, for post-apply invariant inspection.
func (v *ApplyView) Touched() []shamap.Item {
	var out []shamap.Item
	for _, k := range v.order {
		if e := v.delta[k]; e.op != opDelete {
			out = append(out, e.item)
		}
	}
	return out
}

// NewSandbox opens a nested ApplyView over parent, for tentative changes
// that may be discarded wholesale on a per-transaction failure (spec.md
// §4.F). Discarding it is simply not calling Apply.
func NewSandbox(parent *ApplyView) *ApplyView { return NewApplyView(parent) }

// Apply replays v's delta into parent in original insertion order,
// merging a Sandbox's tentative changes upward once its transaction
// succeeds.
func (v *ApplyView) Apply(parent *ApplyView) {
	for _, k := range v.order {
		parent.record(k, v.delta[k])
	}
	parent.burned += v.burned
}

// Commit applies v's accumulated delta, in insertion order, to a RawView's
// underlying mutable state map (spec.md §4.F). It stops at the first error
// and returns it; entries applied before that error stay applied. It is
// the only place an ApplyView's pending changes reach persistent ledger
// state.
func (v *ApplyView) Commit(raw *RawView) error {
	for _, k := range v.order {
		e := v.delta[k]
		switch e.op {
		case opCreate:
			if err := raw.Map.Add(e.item); err != nil {
				return err
			}
		case opModify:
			if err := raw.Map.Update(e.item); err != nil {
				return err
			}
		case opDelete:
			if err := raw.Map.Delete(k); err != nil && err != shamap.ErrNotFound {
				return err
			}
		}
	}
	return nil
}

// AccountBalance is a convenience read helper transactors use to fetch a
// native-currency account balance from whatever view they're handed;
// account state leaves are stobject-encoded, but balance lookups are
// common enough in preclaim/apply to warrant a typed accessor here rather
// than forcing every transactor to decode the full object.
func AccountBalance(v ReadView, acctRootKey crypto.Hash256) (amount.Amount, bool, error) {
	item, ok, err := v.Read(acctRootKey)
	if err != nil || !ok {
		return amount.Amount{}, ok, err
	}
	obj, err := stobject.DecodeBinary(item.Data)
	if err != nil {
		return amount.Amount{}, false, err
	}
	bal, ok := obj.Get("Balance")
	if !ok {
		return amount.Amount{}, false, nil
	}
	return bal.(amount.Amount), true, nil
}
