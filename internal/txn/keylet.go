// Package txn implements the per-transaction-type pipeline: preflight
// (stateless field validation), preclaim (read-only against a view), and
// apply (mutating view, invariant-checked) (spec.md §4.E). Grounded on the
// teacher's applyBlock stage structure in core/ledger.go (numbered
// processing stages, logrus progress logging), generalized from a single
// monolithic block-apply loop to a typed per-transaction dispatch table.
package txn

import (
	"encoding/binary"

	"concordd/internal/amount"
	"concordd/internal/crypto"
)

// Ledger-entry type tags, one byte each, used as the first hashed component
// of every state-map key below. Mirrors rippled's Keylet scheme
// (original_source/src/ripple/protocol/Indexes.h): a stable, collision-free
// key is hash(typeTag ‖ identifying fields), with no type-specific prefix
// bytes layered on top since the tag itself already disambiguates.
const (
	ltAccountRoot byte = 0x61 // 'a'
	ltRippleState byte = 0x72 // 'r' (trust line)
	ltOffer       byte = 0x6F // 'o'
	ltDirNode     byte = 0x64 // 'd'
)

// AccountRootKey derives the state-map key for account's root entry.
func AccountRootKey(account crypto.AccountID) crypto.Hash256 {
	return crypto.Hash256Raw([]byte{ltAccountRoot}, account[:])
}

// TrustLineKey derives the state-map key for the trust line between a and b
// in currency cur. The two accounts are ordered canonically (lower bytes
// first) so either party derives the same key, mirroring rippled's
// convention of storing one RippleState object per unordered pair.
func TrustLineKey(a, b crypto.AccountID, cur amount.Currency) crypto.Hash256 {
	lo, hi := a, b
	if bytesGreater(a[:], b[:]) {
		lo, hi = b, a
	}
	return crypto.Hash256Raw([]byte{ltRippleState}, lo[:], hi[:], cur[:])
}

// OfferKey derives the state-map key for the offer owner placed with
// sequence seq.
func OfferKey(owner crypto.AccountID, seq uint32) crypto.Hash256 {
	var seqB [4]byte
	binary.BigEndian.PutUint32(seqB[:], seq)
	return crypto.Hash256Raw([]byte{ltOffer}, owner[:], seqB[:])
}

// OwnerDirKey derives the state-map key for account's owner directory, the
// page listing every ledger object account is responsible for (offers,
// trust lines) so its reserve and deletion eligibility can be computed.
func OwnerDirKey(account crypto.AccountID) crypto.Hash256 {
	return crypto.Hash256Raw([]byte{ltDirNode}, account[:])
}

func bytesGreater(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
