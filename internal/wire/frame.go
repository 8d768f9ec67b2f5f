package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame is one length-prefixed, type-tagged peer message as it appears
// on the wire (spec.md §6).
type Frame struct {
	Type    MessageType
	Payload []byte
}

// WriteFrame writes f to w as a 4-byte big-endian payload length, a
// 1-byte type tag, then the payload.
func WriteFrame(w io.Writer, f Frame) error {
	var header [5]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(f.Payload)))
	header[4] = byte(f.Type)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return fmt.Errorf("wire: write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one Frame from r, blocking until the full header and
// payload have arrived.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, fmt.Errorf("wire: read frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(header[:4])
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("wire: read frame payload: %w", err)
		}
	}
	return Frame{Type: MessageType(header[4]), Payload: payload}, nil
}

// NodeStoreType tags the opaque body stored under a node-store key
// (spec.md §6's node store key/value contract).
type NodeStoreType uint8

const (
	NodeStoreUnknown         NodeStoreType = 0
	NodeStoreLedger          NodeStoreType = 1
	NodeStoreAccountNode     NodeStoreType = 3
	NodeStoreTransactionNode NodeStoreType = 4
)

// NodeStoreHeaderSize is the fixed header length prefixing every
// node-store value: 4 reserved zero bytes, a 1-byte type tag, and 4
// further reserved zero bytes (spec.md §6: "a 9-byte header").
const NodeStoreHeaderSize = 9

// EncodeNodeStoreValue prepends the node-store header to body.
func EncodeNodeStoreValue(typ NodeStoreType, body []byte) []byte {
	out := make([]byte, NodeStoreHeaderSize+len(body))
	out[4] = byte(typ)
	copy(out[NodeStoreHeaderSize:], body)
	return out
}

// DecodeNodeStoreValue splits a node-store value into its type tag and
// body, per spec.md §6.
func DecodeNodeStoreValue(value []byte) (NodeStoreType, []byte, error) {
	if len(value) < NodeStoreHeaderSize {
		return 0, nil, fmt.Errorf("wire: node-store value shorter than %d-byte header", NodeStoreHeaderSize)
	}
	return NodeStoreType(value[4]), value[NodeStoreHeaderSize:], nil
}
