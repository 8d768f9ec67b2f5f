// Package ledger implements the immutable ledger tuple and the closing
// pipeline that produces one ledger from its parent (spec.md §4.D),
// generalized from the teacher's WAL-backed block list
// (core/ledger.go's NewLedger/OpenLedger/applyBlock) into a parent-hash
// chained ledger carrying two SHAMap roots instead of a flat block slice.
package ledger

import (
	"encoding/binary"
	"time"

	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/pkg/errs"
)

// CloseFlags records round-level facts about how a ledger closed.
type CloseFlags uint8

const (
	// CloseFlagNoConsensusTime is set when peers could not agree on a
	// close-time within the 75% threshold (spec.md §4.H).
	CloseFlagNoConsensusTime CloseFlags = 1 << 0
)

// Header is the fixed set of fields identifying a ledger. Hash serializes
// them (with the ledgerMaster hash prefix) in the fixed order listed on
// Hash, which is not this declaration order: Seq is written last.
type Header struct {
	ParentHash      crypto.Hash256
	Seq             uint32
	TotalDrops      uint64
	TxMapHash       crypto.Hash256
	StateMapHash    crypto.Hash256
	ParentCloseTime time.Time
	CloseTime       time.Time
	CloseResolution time.Duration
	CloseFlags      CloseFlags
}

// Ledger is an immutable, fully-closed ledger: a header plus the two
// SHAMaps it commits to. Once constructed it is never mutated; the next
// ledger is built by taking mutable snapshots of TxMap/StateMap.
type Ledger struct {
	Header
	TxMap    *shamap.SHAMap // canonicalized transaction set applied in this ledger
	StateMap *shamap.SHAMap // account-state set after applying TxMap
}

func putUint32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return append(buf, b...)
}

func putUint64(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return append(buf, b...)
}

func putUnixSeconds(buf []byte, t time.Time) []byte {
	return putUint32(buf, uint32(t.Unix()))
}

// Hash computes the ledger's identifying digest over the fixed header
// field order spec.md §4.D names: {parentHash, totalDrops, txMapHash,
// stateMapHash, parentCloseTime, closeTime, closeResolution, closeFlags,
// seq}, domain-separated with PrefixLedgerMaster.
func (h Header) Hash() crypto.Hash256 {
	var buf []byte
	buf = append(buf, h.ParentHash[:]...)
	buf = putUint64(buf, h.TotalDrops)
	buf = append(buf, h.TxMapHash[:]...)
	buf = append(buf, h.StateMapHash[:]...)
	buf = putUnixSeconds(buf, h.ParentCloseTime)
	buf = putUnixSeconds(buf, h.CloseTime)
	buf = putUint32(buf, uint32(h.CloseResolution/time.Second))
	buf = append(buf, byte(h.CloseFlags))
	buf = putUint32(buf, h.Seq)
	return crypto.Hash256Prefixed(crypto.PrefixLedgerMaster, buf)
}

// Genesis builds the first ledger of a chain: empty maps, seq 1, a
// zero parent hash, and the smallest close-time resolution.
func Genesis(closeTime time.Time, layout shamap.HashLayout) *Ledger {
	l := &Ledger{
		Header: Header{
			Seq:             1,
			CloseTime:       closeTime,
			ParentCloseTime: closeTime,
			CloseResolution: NewResolutionTracker().Current(),
		},
		TxMap:    shamap.New(layout, errs.MapTransaction),
		StateMap: shamap.New(layout, errs.MapState),
	}
	l.TxMapHash = l.TxMap.GetHash()
	l.StateMapHash = l.StateMap.GetHash()
	l.ParentHash = zeroHash
	return l
}

var zeroHash crypto.Hash256
