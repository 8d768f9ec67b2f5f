package stobject

import (
	"bytes"
	"testing"

	"concordd/internal/amount"
	"concordd/internal/crypto"
)

func TestEncodeBinaryCanonicalOrder(t *testing.T) {
	obj, err := New(map[string]any{
		"Sequence":        uint32(1),
		"TransactionType": uint16(0),
		"Fee":             amount.NativeAmount(10),
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b1, err := obj.EncodeBinary(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Rebuilding from the same field set (regardless of the order fields
	// were inserted into the Go map) must produce the same bytes, per
	// spec.md §4.B's canonical (type_code, field_code) ordering.
	obj2, _ := New(map[string]any{
		"Fee":             amount.NativeAmount(10),
		"TransactionType": uint16(0),
		"Sequence":        uint32(1),
	})
	b2, err := obj2.EncodeBinary(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("encoding not order-independent:\n%x\n%x", b1, b2)
	}
}

func TestSigningPrehashExcludesTxnSignature(t *testing.T) {
	base := map[string]any{
		"TransactionType": uint16(0),
		"Sequence":        uint32(1),
		"Fee":             amount.NativeAmount(10),
		"SigningPubKey":   []byte{0xED, 1, 2, 3},
	}
	obj, _ := New(base)
	h1, err := obj.SigningPrehash()
	if err != nil {
		t.Fatalf("prehash: %v", err)
	}

	withSig := map[string]any{}
	for k, v := range base {
		withSig[k] = v
	}
	withSig["TxnSignature"] = []byte{9, 9, 9}
	obj2, _ := New(withSig)
	h2, err := obj2.SigningPrehash()
	if err != nil {
		t.Fatalf("prehash: %v", err)
	}

	if h1 != h2 {
		t.Fatalf("TxnSignature must not affect the signing prehash")
	}
}

func TestAmountRoundTrip(t *testing.T) {
	cur, _ := amount.NewCurrencyCode("USD")
	var issuer crypto.AccountID
	a, err := amount.IOUAmount(cur, issuer, 1234, 5, true)
	if err != nil {
		t.Fatalf("iou: %v", err)
	}
	enc := encodeAmount(a)
	dec, err := decodeAmount(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.Mantissa != a.Mantissa || dec.Exponent != a.Exponent || dec.Negative != a.Negative {
		t.Fatalf("round trip mismatch: got %+v want %+v", dec, a)
	}
}
