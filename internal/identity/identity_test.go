package identity

import (
	"testing"
	"time"
)

func TestGenerateThenFromMnemonicRecoversSameAccount(t *testing.T) {
	id, err := Generate(128)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if id.Mnemonic == "" {
		t.Fatalf("expected a non-empty mnemonic")
	}

	recovered, err := FromMnemonic(id.Mnemonic, "")
	if err != nil {
		t.Fatalf("from mnemonic: %v", err)
	}
	if recovered.Account != id.Account {
		t.Fatalf("expected recovered account to match: got %s want %s", recovered.Account, id.Account)
	}
}

func TestFromMnemonicRejectsBadChecksum(t *testing.T) {
	bad := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon"
	if _, err := FromMnemonic(bad, ""); err == nil {
		t.Fatalf("expected an error for a mnemonic with a bad checksum")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	id, err := Generate(128)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	created := time.Unix(1_700_000_000, 0).UTC()
	m := NewManifest(id, created)

	data, err := m.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalManifest(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.AccountID != m.AccountID || got.PublicKey != m.PublicKey || !got.CreatedAt.Equal(m.CreatedAt) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, m)
	}
	if got.InstanceID == "" {
		t.Fatalf("expected a non-empty instance id")
	}
}
