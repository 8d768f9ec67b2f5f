// Package identity generates and persists a node's signing identity — a
// recoverable BIP-39 mnemonic, the ed25519 keypair and AccountID derived
// from it, and a YAML manifest — the "wallet (node identity, manifests)"
// auxiliary database named in spec.md §6. Grounded on the teacher's
// core/wallet.go NewRandomWallet/WalletFromMnemonic (bip39 entropy and
// mnemonic/seed handling), generalized from an end-user HD wallet to a
// single-account node identity: this package derives one node keypair
// via internal/crypto.DeriveKeyPair rather than wallet.go's SLIP-0010
// hardened child-key tree, since a node has one validator key, not many
// user accounts.
package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	bip39 "github.com/tyler-smith/go-bip39"
	"gopkg.in/yaml.v3"

	"concordd/internal/crypto"
)

// NodeIdentity is a node's signing identity: its recoverable mnemonic,
// derived keypair, and the AccountID peers address it by.
type NodeIdentity struct {
	Mnemonic string
	KeyPair  crypto.KeyPair
	Account  crypto.AccountID
}

// Generate creates a new NodeIdentity from entropyBits (128 or 256) of
// OS randomness, mirroring core/wallet.go's NewRandomWallet.
func Generate(entropyBits int) (*NodeIdentity, error) {
	if entropyBits != 128 && entropyBits != 256 {
		return nil, fmt.Errorf("identity: unsupported entropy size %d", entropyBits)
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, fmt.Errorf("identity: entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("identity: mnemonic: %w", err)
	}
	return FromMnemonic(mnemonic, "")
}

// FromMnemonic reconstructs a NodeIdentity from an existing BIP-39
// recovery phrase, mirroring core/wallet.go's WalletFromMnemonic.
func FromMnemonic(mnemonic, passphrase string) (*NodeIdentity, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("identity: invalid mnemonic checksum")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	kp, err := crypto.DeriveKeyPair(crypto.KeyEd25519, seed)
	if err != nil {
		return nil, fmt.Errorf("identity: derive keypair: %w", err)
	}
	return &NodeIdentity{
		Mnemonic: mnemonic,
		KeyPair:  kp,
		Account:  crypto.AccountIDFromPublicKey(kp.PublicKey),
	}, nil
}

// Manifest is the on-disk record of a node's identity, persisted as YAML
// in the wallet auxiliary database's place (spec.md §6). It never
// contains the mnemonic or secret key.
type Manifest struct {
	InstanceID string    `yaml:"instance_id"`
	AccountID  string    `yaml:"account_id"`
	PublicKey  string    `yaml:"public_key_hex"`
	CreatedAt  time.Time `yaml:"created_at"`
}

// NewManifest builds a Manifest for id, stamping a fresh random instance
// UUID (distinguishing repeated runs of the same node identity, e.g.
// across container restarts, from a different node sharing the same
// key).
func NewManifest(id *NodeIdentity, createdAt time.Time) Manifest {
	return Manifest{
		InstanceID: uuid.NewString(),
		AccountID:  id.Account.String(),
		PublicKey:  fmt.Sprintf("%x", id.KeyPair.PublicKey),
		CreatedAt:  createdAt,
	}
}

// Marshal serializes m as YAML.
func (m Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// UnmarshalManifest parses a YAML-encoded Manifest.
func UnmarshalManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("identity: unmarshal manifest: %w", err)
	}
	return m, nil
}
