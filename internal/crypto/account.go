package crypto

// AccountID is the 160-bit RIPEMD-160(SHA-256(public-key)) account
// identifier (spec.md §3), base58-check-encoded with VersionAccountID for
// its external (human-facing) form.
type AccountID Hash160

// AccountIDFromPublicKey derives the AccountID for a public key in its
// canonical external byte form (33-byte compressed secp256k1 point, or a
// 33-byte ed25519 key prefixed with 0xED).
func AccountIDFromPublicKey(pub []byte) AccountID {
	return AccountID(Hash160FromPublicKey(pub))
}

func (a AccountID) String() string {
	return Base58CheckEncode(VersionAccountID, a[:])
}

func (a AccountID) Bytes() []byte { return Hash160(a).Bytes() }

// ParseAccountID decodes a base58-check AccountID string produced by
// AccountID.String.
func ParseAccountID(s string) (AccountID, error) {
	ver, payload, err := Base58CheckDecode(s)
	if err != nil {
		return AccountID{}, err
	}
	if ver != VersionAccountID {
		return AccountID{}, errWrongVersion(ver, VersionAccountID)
	}
	var a AccountID
	copy(a[:], payload)
	return a, nil
}

func errWrongVersion(got, want VersionByte) error {
	return &wrongVersionError{got, want}
}

type wrongVersionError struct{ got, want VersionByte }

func (e *wrongVersionError) Error() string {
	return "crypto: unexpected base58 version byte"
}
