package wire

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"concordd/internal/crypto"
)

var errUnexpectedType = errors.New("unexpected frame type")

func hashFor(b byte) crypto.Hash256 {
	var h crypto.Hash256
	h[0] = b
	return h
}

func TestTMHelloRoundTrip(t *testing.T) {
	want := TMHello{
		ProtocolVersion: 1,
		ChainID:         7,
		NodePublicKey:   crypto.AccountID{1, 2, 3},
		SessionProof:    []byte("proof"),
		Timestamp:       time.Unix(1_700_000_000, 0).UTC(),
	}
	got, err := DecodeTMHello(want.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ProtocolVersion != want.ProtocolVersion || got.ChainID != want.ChainID ||
		got.NodePublicKey != want.NodePublicKey || !bytes.Equal(got.SessionProof, want.SessionProof) ||
		!got.Timestamp.Equal(want.Timestamp) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestTMProposeSetRoundTrip(t *testing.T) {
	want := TMProposeSet{
		PrevLedger:  hashFor(1),
		CloseTime:   time.Unix(1_700_000_100, 0).UTC(),
		TxHashes:    []crypto.Hash256{hashFor(2), hashFor(3)},
		ProposeSeq:  4,
		NodeID:      crypto.AccountID{9},
		SigningTime: time.Unix(1_700_000_200, 0).UTC(),
		Signature:   []byte("sig"),
	}
	got, err := DecodeTMProposeSet(want.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PrevLedger != want.PrevLedger || len(got.TxHashes) != len(want.TxHashes) ||
		got.ProposeSeq != want.ProposeSeq || got.NodeID != want.NodeID ||
		!got.CloseTime.Equal(want.CloseTime) || !got.SigningTime.Equal(want.SigningTime) ||
		string(got.Signature) != string(want.Signature) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
	for i := range want.TxHashes {
		if got.TxHashes[i] != want.TxHashes[i] {
			t.Fatalf("tx hash %d mismatch", i)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := Frame{Type: MsgValidation, Payload: []byte("hello")}
	if err := WriteFrame(&buf, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != f.Type || string(got.Payload) != string(f.Payload) {
		t.Fatalf("frame mismatch: got %+v want %+v", got, f)
	}
}

func TestNodeStoreValueRoundTrip(t *testing.T) {
	body := []byte("ledger entry bytes")
	value := EncodeNodeStoreValue(NodeStoreAccountNode, body)
	if len(value) != NodeStoreHeaderSize+len(body) {
		t.Fatalf("unexpected value length %d", len(value))
	}
	typ, got, err := DecodeNodeStoreValue(value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if typ != NodeStoreAccountNode || string(got) != string(body) {
		t.Fatalf("mismatch: type=%v body=%q", typ, got)
	}
}

func TestLoopbackTransportSendsFrames(t *testing.T) {
	lt, err := NewLoopbackTransport()
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	defer lt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		conn, err := lt.Accept(ctx)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		f, err := conn.Receive()
		if err != nil {
			done <- err
			return
		}
		if f.Type != MsgHaveSet {
			done <- errUnexpectedType
			return
		}
		done <- nil
	}()

	client, err := Dial(lt.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	payload := TMHaveSet{Hash: hashFor(5)}.Encode()
	if err := client.Send(Frame{Type: MsgHaveSet, Payload: payload}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("server side: %v", err)
	}
}
