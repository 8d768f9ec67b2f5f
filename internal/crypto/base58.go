package crypto

import (
	"errors"

	"github.com/mr-tron/base58"
)

// VersionByte tags the payload type encoded by Base58CheckEncode, mirroring
// rippled's per-type alphabet version bytes (account id, seed, node public
// key, ...). Only AccountID is needed by the core; the others are declared
// for completeness of the codec contract (spec.md §3).
type VersionByte byte

const (
	VersionAccountID       VersionByte = 0x00
	VersionNodePublic      VersionByte = 0x1c
	VersionFamilySeed      VersionByte = 0x21
	VersionEd25519Seed     VersionByte = 0x01
)

// Base58CheckEncode encodes payload with a 1-byte version tag and a 4-byte
// double-SHA256 checksum, using mr-tron/base58's alphabet-indexed codec.
func Base58CheckEncode(version VersionByte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+4)
	buf = append(buf, byte(version))
	buf = append(buf, payload...)
	checksum := DoubleSHA256(buf)
	buf = append(buf, checksum[:4]...)
	return base58.Encode(buf)
}

// Base58CheckDecode reverses Base58CheckEncode, verifying the checksum and
// returning the version byte and payload separately.
func Base58CheckDecode(s string) (VersionByte, []byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 5 {
		return 0, nil, errors.New("crypto: base58check payload too short")
	}
	body := raw[:len(raw)-4]
	checksum := raw[len(raw)-4:]
	want := DoubleSHA256(body)
	for i := 0; i < 4; i++ {
		if checksum[i] != want[i] {
			return 0, nil, errors.New("crypto: base58check checksum mismatch")
		}
	}
	return VersionByte(body[0]), body[1:], nil
}
