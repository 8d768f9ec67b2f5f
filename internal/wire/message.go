// Package wire defines the peer wire message types of spec.md §6
// (TMProposeSet, TMValidation, TMTransaction, TMGetLedger/TMLedgerData,
// TMStatusChange, TMHaveSet, TMHello) as Go structs with binary codec
// methods, plus the node-store key/value header contract. The peer
// overlay itself (dialing, discovery, rate-limiting) is out of scope; a
// gorilla/websocket loopback transport in transport.go exists only so
// this codec has something real to round-trip over in tests.
//
// A binary-framed peer-message style isn't present anywhere in the pack,
// so the length-prefixed, type-tagged framing here follows spec.md §6
// directly; the fixed-width field helpers below follow the same
// hash/account/time encoding conventions internal/stobject and
// internal/txn use for ledger entries.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"concordd/internal/crypto"
)

// MessageType tags a framed peer message, written as the type byte in
// the length-prefix header.
type MessageType uint8

const (
	MsgHello MessageType = iota + 1
	MsgProposeSet
	MsgValidation
	MsgTransaction
	MsgGetLedger
	MsgLedgerData
	MsgStatusChange
	MsgHaveSet
)

// ErrTruncated is returned by a Decode method when the buffer ends before
// a fixed-width field is fully read.
var ErrTruncated = errors.New("wire: truncated message")

func putHash(buf *bytes.Buffer, h crypto.Hash256) { buf.Write(h[:]) }

func getHash(r *bytes.Reader) (crypto.Hash256, error) {
	var h crypto.Hash256
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, ErrTruncated
	}
	return h, nil
}

func putAccount(buf *bytes.Buffer, a crypto.AccountID) { buf.Write(a[:]) }

func getAccount(r *bytes.Reader) (crypto.AccountID, error) {
	var a crypto.AccountID
	if _, err := io.ReadFull(r, a[:]); err != nil {
		return a, ErrTruncated
	}
	return a, nil
}

func putTime(buf *bytes.Buffer, t time.Time) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(t.Unix()))
	buf.Write(b[:])
}

func getTime(r *bytes.Reader) (time.Time, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return time.Time{}, ErrTruncated
	}
	return time.Unix(int64(binary.BigEndian.Uint64(b[:])), 0).UTC(), nil
}

func putBytes(buf *bytes.Buffer, b []byte) {
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(b)))
	buf.Write(lb[:])
	buf.Write(b)
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	var lb [4]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return nil, ErrTruncated
	}
	n := binary.BigEndian.Uint32(lb[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, ErrTruncated
		}
	}
	return out, nil
}

// TMHello carries protocol version, chain identity and the sender's
// public node key (spec.md §6). The shared-secret TLS-session proof is
// represented here as an opaque blob; deriving it is a transport-layer
// concern outside this package.
type TMHello struct {
	ProtocolVersion uint32
	ChainID         uint32
	NodePublicKey   crypto.AccountID
	SessionProof    []byte
	Timestamp       time.Time
}

// ClockTolerance is the allowed skew between a TMHello's timestamp and
// local time before the hello is rejected (spec.md §6: "20-byte
// tolerance on timestamp" — interpreted as 20 seconds, the wire field
// being a Unix timestamp rather than a byte count).
const ClockTolerance = 20 * time.Second

func (m TMHello) Encode() []byte {
	var buf bytes.Buffer
	var b [8]byte
	binary.BigEndian.PutUint32(b[:4], m.ProtocolVersion)
	binary.BigEndian.PutUint32(b[4:8], m.ChainID)
	buf.Write(b[:])
	putAccount(&buf, m.NodePublicKey)
	putBytes(&buf, m.SessionProof)
	putTime(&buf, m.Timestamp)
	return buf.Bytes()
}

func DecodeTMHello(data []byte) (TMHello, error) {
	r := bytes.NewReader(data)
	var m TMHello
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return m, ErrTruncated
	}
	m.ProtocolVersion = binary.BigEndian.Uint32(b[:4])
	m.ChainID = binary.BigEndian.Uint32(b[4:8])
	var err error
	if m.NodePublicKey, err = getAccount(r); err != nil {
		return m, err
	}
	if m.SessionProof, err = getBytes(r); err != nil {
		return m, err
	}
	if m.Timestamp, err = getTime(r); err != nil {
		return m, err
	}
	return m, nil
}

// TMTransaction carries one signed candidate transaction's canonical
// encoding (opaque to this package; decoded by internal/stobject).
type TMTransaction struct {
	RawTx []byte
}

func (m TMTransaction) Encode() []byte {
	var buf bytes.Buffer
	putBytes(&buf, m.RawTx)
	return buf.Bytes()
}

func DecodeTMTransaction(data []byte) (TMTransaction, error) {
	r := bytes.NewReader(data)
	raw, err := getBytes(r)
	return TMTransaction{RawTx: raw}, err
}

// TMHaveSet advertises knowledge of a transaction-set hash, so a peer
// building the same candidate set can skip asking a node that doesn't
// have it (spec.md §6).
type TMHaveSet struct {
	Hash crypto.Hash256
}

func (m TMHaveSet) Encode() []byte {
	var buf bytes.Buffer
	putHash(&buf, m.Hash)
	return buf.Bytes()
}

func DecodeTMHaveSet(data []byte) (TMHaveSet, error) {
	r := bytes.NewReader(data)
	h, err := getHash(r)
	return TMHaveSet{Hash: h}, err
}

// TMStatusChange reports a peer's last-closed ledger and the contiguous
// range it has available, for catch-up negotiation (spec.md §6).
type TMStatusChange struct {
	LastClosedLedger crypto.Hash256
	FirstSeqAvail    uint32
	LastSeqAvail     uint32
}

func (m TMStatusChange) Encode() []byte {
	var buf bytes.Buffer
	putHash(&buf, m.LastClosedLedger)
	var b [8]byte
	binary.BigEndian.PutUint32(b[:4], m.FirstSeqAvail)
	binary.BigEndian.PutUint32(b[4:8], m.LastSeqAvail)
	buf.Write(b[:])
	return buf.Bytes()
}

func DecodeTMStatusChange(data []byte) (TMStatusChange, error) {
	r := bytes.NewReader(data)
	var m TMStatusChange
	var err error
	if m.LastClosedLedger, err = getHash(r); err != nil {
		return m, err
	}
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return m, ErrTruncated
	}
	m.FirstSeqAvail = binary.BigEndian.Uint32(b[:4])
	m.LastSeqAvail = binary.BigEndian.Uint32(b[4:8])
	return m, nil
}

// TMGetLedger requests a Merkle-sync fan-out of inner/leaf nodes rooted
// at RootHash down to Depth nibbles (spec.md §6, serving internal/shamap's
// GetNodesFanout).
type TMGetLedger struct {
	RootHash crypto.Hash256
	Depth    uint32
	IsState  bool // false => transaction map
}

func (m TMGetLedger) Encode() []byte {
	var buf bytes.Buffer
	putHash(&buf, m.RootHash)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], m.Depth)
	buf.Write(b[:])
	if m.IsState {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func DecodeTMGetLedger(data []byte) (TMGetLedger, error) {
	r := bytes.NewReader(data)
	var m TMGetLedger
	var err error
	if m.RootHash, err = getHash(r); err != nil {
		return m, err
	}
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return m, ErrTruncated
	}
	m.Depth = binary.BigEndian.Uint32(b[:])
	flag, err := r.ReadByte()
	if err != nil {
		return m, ErrTruncated
	}
	m.IsState = flag == 1
	return m, nil
}

// WireNode is one (hash, bytes) entry of a TMLedgerData fan-out
// response, mirroring internal/shamap.WireNode's wire shape without
// importing internal/shamap (keeping this package a leaf dependency).
type WireNode struct {
	Hash   crypto.Hash256
	Data   []byte
	IsLeaf bool
}

// TMLedgerData answers a TMGetLedger with the requested node and, for an
// inner node, its immediate children.
type TMLedgerData struct {
	RootHash crypto.Hash256
	Nodes    []WireNode
}

func (m TMLedgerData) Encode() []byte {
	var buf bytes.Buffer
	putHash(&buf, m.RootHash)
	var cb [4]byte
	binary.BigEndian.PutUint32(cb[:], uint32(len(m.Nodes)))
	buf.Write(cb[:])
	for _, n := range m.Nodes {
		putHash(&buf, n.Hash)
		putBytes(&buf, n.Data)
		if n.IsLeaf {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	return buf.Bytes()
}

func DecodeTMLedgerData(data []byte) (TMLedgerData, error) {
	r := bytes.NewReader(data)
	var m TMLedgerData
	var err error
	if m.RootHash, err = getHash(r); err != nil {
		return m, err
	}
	var cb [4]byte
	if _, err := io.ReadFull(r, cb[:]); err != nil {
		return m, ErrTruncated
	}
	count := binary.BigEndian.Uint32(cb[:])
	for i := uint32(0); i < count; i++ {
		var n WireNode
		if n.Hash, err = getHash(r); err != nil {
			return m, err
		}
		if n.Data, err = getBytes(r); err != nil {
			return m, err
		}
		flag, err := r.ReadByte()
		if err != nil {
			return m, ErrTruncated
		}
		n.IsLeaf = flag == 1
		m.Nodes = append(m.Nodes, n)
	}
	return m, nil
}

// TMProposeSet carries one avalanche Proposal (internal/consensus.Proposal),
// flattened to wire fields so this package doesn't import internal/consensus.
type TMProposeSet struct {
	PrevLedger   crypto.Hash256
	CloseTime    time.Time
	TxHashes     []crypto.Hash256 // included transactions
	ProposeSeq   uint32
	NodeID       crypto.AccountID
	SigningTime  time.Time
	Signature    []byte
}

func (m TMProposeSet) Encode() []byte {
	var buf bytes.Buffer
	putHash(&buf, m.PrevLedger)
	putTime(&buf, m.CloseTime)
	var cb [4]byte
	binary.BigEndian.PutUint32(cb[:], uint32(len(m.TxHashes)))
	buf.Write(cb[:])
	for _, h := range m.TxHashes {
		putHash(&buf, h)
	}
	var sb [4]byte
	binary.BigEndian.PutUint32(sb[:], m.ProposeSeq)
	buf.Write(sb[:])
	putAccount(&buf, m.NodeID)
	putTime(&buf, m.SigningTime)
	putBytes(&buf, m.Signature)
	return buf.Bytes()
}

func DecodeTMProposeSet(data []byte) (TMProposeSet, error) {
	r := bytes.NewReader(data)
	var m TMProposeSet
	var err error
	if m.PrevLedger, err = getHash(r); err != nil {
		return m, err
	}
	if m.CloseTime, err = getTime(r); err != nil {
		return m, err
	}
	var cb [4]byte
	if _, err := io.ReadFull(r, cb[:]); err != nil {
		return m, ErrTruncated
	}
	count := binary.BigEndian.Uint32(cb[:])
	for i := uint32(0); i < count; i++ {
		h, err := getHash(r)
		if err != nil {
			return m, err
		}
		m.TxHashes = append(m.TxHashes, h)
	}
	var sb [4]byte
	if _, err := io.ReadFull(r, sb[:]); err != nil {
		return m, ErrTruncated
	}
	m.ProposeSeq = binary.BigEndian.Uint32(sb[:])
	if m.NodeID, err = getAccount(r); err != nil {
		return m, err
	}
	if m.SigningTime, err = getTime(r); err != nil {
		return m, err
	}
	if m.Signature, err = getBytes(r); err != nil {
		return m, err
	}
	return m, nil
}

// TMValidation carries one signed Validation (internal/validation.Validation).
type TMValidation struct {
	LedgerHash    crypto.Hash256
	Seq           uint32
	SigningTime   time.Time
	NodePublicKey crypto.AccountID
	Flags         uint32
	Signature     []byte
}

func (m TMValidation) Encode() []byte {
	var buf bytes.Buffer
	putHash(&buf, m.LedgerHash)
	var b [8]byte
	binary.BigEndian.PutUint32(b[:4], m.Seq)
	binary.BigEndian.PutUint32(b[4:8], m.Flags)
	buf.Write(b[:])
	putTime(&buf, m.SigningTime)
	putAccount(&buf, m.NodePublicKey)
	putBytes(&buf, m.Signature)
	return buf.Bytes()
}

func DecodeTMValidation(data []byte) (TMValidation, error) {
	r := bytes.NewReader(data)
	var m TMValidation
	var err error
	if m.LedgerHash, err = getHash(r); err != nil {
		return m, err
	}
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return m, ErrTruncated
	}
	m.Seq = binary.BigEndian.Uint32(b[:4])
	m.Flags = binary.BigEndian.Uint32(b[4:8])
	if m.SigningTime, err = getTime(r); err != nil {
		return m, err
	}
	if m.NodePublicKey, err = getAccount(r); err != nil {
		return m, err
	}
	if m.Signature, err = getBytes(r); err != nil {
		return m, err
	}
	return m, nil
}
