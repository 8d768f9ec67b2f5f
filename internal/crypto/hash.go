// Package crypto provides the hashing, signing, and account-id primitives
// that every other ledger-core package builds on (spec.md §4.A). Hashing
// follows the HashPrefix-domain-separation scheme of rippled
// (original_source/src/ripple/protocol/HashPrefix.h): every digest is
// hash(prefix ‖ body) with a distinct 4-byte prefix per context, so a hash
// computed for one purpose can never collide with one computed for another.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for RIPEMD-160 account ids
)

// Hash256 is a 32-byte cryptographic digest, used to identify ledgers,
// transactions, state entries, and SHAMap nodes.
type Hash256 [32]byte

// Hash160 is a 20-byte digest, used for AccountIDs.
type Hash160 [20]byte

func (h Hash256) IsZero() bool { return h == Hash256{} }
func (h Hash256) Bytes() []byte { b := make([]byte, 32); copy(b, h[:]); return b }
func (h Hash256) String() string { return hexString(h[:]) }

func (h Hash160) Bytes() []byte { b := make([]byte, 20); copy(b, h[:]); return b }
func (h Hash160) String() string { return hexString(h[:]) }

func hexString(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// Prefix is a 4-byte hash-domain separator, mirroring rippled's HashPrefix.
type Prefix uint32

// Domain prefixes, one per hashing context (spec.md §3). Values follow
// rippled's convention of packing three ASCII bytes into the high 24 bits
// of a big-endian uint32, leaving the low byte zero.
var (
	PrefixTransactionID Prefix = packPrefix('T', 'X', 'N')
	PrefixTxNode        Prefix = packPrefix('S', 'N', 'D')
	PrefixLeafNode      Prefix = packPrefix('M', 'L', 'N')
	PrefixInnerNode     Prefix = packPrefix('M', 'I', 'N')
	PrefixInnerNodeV2   Prefix = packPrefix('M', 'I', 'V')
	PrefixLedgerMaster  Prefix = packPrefix('L', 'W', 'R')
	PrefixTxSign        Prefix = packPrefix('S', 'T', 'X')
	PrefixTxMultiSign   Prefix = packPrefix('S', 'M', 'T')
	PrefixValidation    Prefix = packPrefix('V', 'A', 'L')
	PrefixProposal      Prefix = packPrefix('P', 'R', 'P')
	PrefixManifest      Prefix = packPrefix('M', 'A', 'N')
	PrefixChannelClaim  Prefix = packPrefix('C', 'L', 'M')
)

func packPrefix(a, b, c byte) Prefix {
	return Prefix(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8)
}

func (p Prefix) bytes() [4]byte {
	return [4]byte{byte(p >> 24), byte(p >> 16), byte(p >> 8), byte(p)}
}

// Hash256Prefixed computes hash(prefix ‖ parts...) using SHA-512/256, the
// primary digest named in spec.md §2 component A.
func Hash256Prefixed(p Prefix, parts ...[]byte) Hash256 {
	h := sha512.New512_256()
	pb := p.bytes()
	h.Write(pb[:])
	for _, part := range parts {
		h.Write(part)
	}
	var out Hash256
	copy(out[:], h.Sum(nil))
	return out
}

// Hash256Raw hashes bytes with SHA-512/256 and no domain prefix. Used only
// where the wire format genuinely has no prefix (e.g. node-store integrity
// checks in spec.md §6).
func Hash256Raw(parts ...[]byte) Hash256 {
	h := sha512.New512_256()
	for _, part := range parts {
		h.Write(part)
	}
	var out Hash256
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160FromPublicKey derives an AccountID digest as
// RIPEMD160(SHA256(pubkey)) per spec.md §3.
func Hash160FromPublicKey(pub []byte) Hash160 {
	sum := sha256.Sum256(pub)
	r := ripemd160.New()
	r.Write(sum[:])
	var out Hash160
	copy(out[:], r.Sum(nil))
	return out
}

// DoubleSHA256 is used by the base58-check codec (spec.md §4.A).
func DoubleSHA256(b []byte) Hash256 {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return Hash256(second)
}
