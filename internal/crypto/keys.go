package crypto

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// KeyKind names the supported signing schemes (spec.md §4.A).
type KeyKind int

const (
	KeySecp256k1 KeyKind = iota
	KeyEd25519
)

// ed25519ExternalTag prefixes every ed25519 public key in its external
// (wire/JSON) form so secp256k1 and ed25519 keys can never be confused with
// each other, per spec.md §4.A.
const ed25519ExternalTag = 0xED

// EntropySize is the width of the seed accepted by DeriveKeyPair.
const EntropySize = 16 // 128 bits, per spec.md §3 (AccountID derivation from a 128-bit seed)

var (
	ErrUnsupportedKeyKind = errors.New("crypto: unsupported key kind")
	ErrInvalidSignature   = errors.New("crypto: invalid signature")
	ErrSeedTooShort       = errors.New("crypto: seed too short")
)

// KeyPair is a decoded (secret, public) pair plus the scheme it belongs to.
// SecretKey is nil for key pairs reconstructed from a public key alone.
type KeyPair struct {
	Kind      KeyKind
	SecretKey []byte
	PublicKey []byte // external form: secp256k1 33-byte compressed, or 0xED||32-byte ed25519
}

// GenerateKeyPair creates a new key pair of the given kind using the OS CSPRNG.
func GenerateKeyPair(kind KeyKind) (KeyPair, error) {
	var seed [EntropySize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return KeyPair{}, err
	}
	return DeriveKeyPair(kind, seed[:])
}

// DeriveKeyPair deterministically derives a key pair from seed entropy using
// a chain-iterated HMAC-SHA512 KDF, the same "expand the seed with an
// HMAC-SHA512 master key string" idiom the teacher's HD wallet uses for
// ed25519 (core/wallet.go's NewHDWalletFromSeed / derivePrivate), generalized
// here to also drive secp256k1 key generation.
func DeriveKeyPair(kind KeyKind, seed []byte) (KeyPair, error) {
	if len(seed) < EntropySize {
		return KeyPair{}, ErrSeedTooShort
	}
	switch kind {
	case KeyEd25519:
		material := expand([]byte("concordd ed25519 seed"), seed, 32)
		priv := ed25519.NewKeyFromSeed(material)
		pub := priv.Public().(ed25519.PublicKey)
		return KeyPair{Kind: KeyEd25519, SecretKey: priv, PublicKey: tagEd25519(pub)}, nil
	case KeySecp256k1:
		material := expand([]byte("concordd secp256k1 seed"), seed, 32)
		sk := secp256k1.PrivKeyFromBytes(reduceToCurveOrder(material))
		pub := sk.PubKey().SerializeCompressed()
		return KeyPair{Kind: KeySecp256k1, SecretKey: sk.Serialize(), PublicKey: pub}, nil
	default:
		return KeyPair{}, ErrUnsupportedKeyKind
	}
}

// expand iteratively HMACs data under key until at least n bytes of output
// material have been produced, mirroring the "chain-iterated KDF" language
// of spec.md §4.A. For n up to 64 a single HMAC-SHA512 block suffices;
// out-of-range secp256k1 scalars are handled by reduceToCurveOrder, not by
// this loop.
func expand(key, data []byte, n int) []byte {
	out := make([]byte, 0, n)
	block := data
	for len(out) < n {
		mac := hmac.New(sha512.New, key)
		mac.Write(block)
		block = mac.Sum(nil)
		out = append(out, block...)
	}
	return out[:n]
}

func reduceToCurveOrder(material []byte) []byte {
	var scalar secp256k1.ModNScalar
	scalar.SetByteSlice(material)
	out := make([]byte, 32)
	scalar.PutBytes((*[32]byte)(out))
	return out
}

func tagEd25519(pub ed25519.PublicKey) []byte {
	out := make([]byte, 1+len(pub))
	out[0] = ed25519ExternalTag
	copy(out[1:], pub)
	return out
}

// Sign produces a detached signature over msg using sk, which must be the
// SecretKey field of a KeyPair of the given kind. secp256k1 signatures are
// ECDSA over the message hash and are canonicalized to low-S form by the
// decred library, satisfying spec.md §4.A's low-S requirement.
func Sign(kind KeyKind, sk []byte, msg []byte) ([]byte, error) {
	switch kind {
	case KeyEd25519:
		if len(sk) != ed25519.PrivateKeySize {
			return nil, ErrUnsupportedKeyKind
		}
		return ed25519.Sign(ed25519.PrivateKey(sk), msg), nil
	case KeySecp256k1:
		priv := secp256k1.PrivKeyFromBytes(sk)
		digest := Hash256Raw(msg)
		sig := ecdsa.Sign(priv, digest[:])
		return sig.Serialize(), nil
	default:
		return nil, ErrUnsupportedKeyKind
	}
}

// Verify checks a detached signature against a public key in external form
// (0xED-tagged for ed25519, 33-byte compressed for secp256k1).
func Verify(pub []byte, msg, sig []byte) bool {
	if len(pub) == 0 {
		return false
	}
	if pub[0] == ed25519ExternalTag {
		if len(pub) != 1+ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub[1:]), msg, sig)
	}
	key, err := secp256k1.ParsePubKey(pub)
	if err != nil {
		return false
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	digest := Hash256Raw(msg)
	return parsed.Verify(digest[:], key)
}

// DerivePublic returns the external-form public key for sk.
func DerivePublic(kind KeyKind, sk []byte) ([]byte, error) {
	switch kind {
	case KeyEd25519:
		if len(sk) != ed25519.PrivateKeySize {
			return nil, ErrUnsupportedKeyKind
		}
		pub := ed25519.PrivateKey(sk).Public().(ed25519.PublicKey)
		return tagEd25519(pub), nil
	case KeySecp256k1:
		priv := secp256k1.PrivKeyFromBytes(sk)
		return priv.PubKey().SerializeCompressed(), nil
	default:
		return nil, ErrUnsupportedKeyKind
	}
}
