package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKeyPairDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, EntropySize)
	kp1, err := DeriveKeyPair(KeyEd25519, seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	kp2, err := DeriveKeyPair(KeyEd25519, seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(kp1.PublicKey, kp2.PublicKey) {
		t.Fatalf("derivation not deterministic: %x vs %x", kp1.PublicKey, kp2.PublicKey)
	}
	if kp1.PublicKey[0] != ed25519ExternalTag {
		t.Fatalf("expected 0xED external tag, got %x", kp1.PublicKey[0])
	}
}

func TestEd25519SignVerifyRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, EntropySize)
	kp, err := DeriveKeyPair(KeyEd25519, seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	msg := []byte("two-account XRP transfer")
	sig, err := Sign(KeyEd25519, kp.SecretKey, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !Verify(kp.PublicKey, msg, sig) {
		t.Fatalf("verify failed for valid signature")
	}
	if Verify(kp.PublicKey, []byte("tampered"), sig) {
		t.Fatalf("verify succeeded for tampered message")
	}
}

func TestSecp256k1SignVerifyRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x13}, EntropySize)
	kp, err := DeriveKeyPair(KeySecp256k1, seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	msg := []byte("offer crossing")
	sig, err := Sign(KeySecp256k1, kp.SecretKey, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !Verify(kp.PublicKey, msg, sig) {
		t.Fatalf("verify failed for valid signature")
	}
}

func TestAccountIDRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x99}, EntropySize)
	kp, err := DeriveKeyPair(KeyEd25519, seed)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	acc := AccountIDFromPublicKey(kp.PublicKey)
	s := acc.String()
	parsed, err := ParseAccountID(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != acc {
		t.Fatalf("round trip mismatch: %v vs %v", parsed, acc)
	}
}

func TestHashPrefixDomainSeparation(t *testing.T) {
	body := []byte("same body")
	h1 := Hash256Prefixed(PrefixTransactionID, body)
	h2 := Hash256Prefixed(PrefixLeafNode, body)
	if h1 == h2 {
		t.Fatalf("distinct prefixes produced colliding hashes")
	}
}
