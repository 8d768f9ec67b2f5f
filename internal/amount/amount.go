// Package amount implements the ledger's native/IOU Amount sum type and its
// comparison and arithmetic rules (spec.md §3). The native unit is the drop
// (1e-6 of the reference currency unit); issued-currency ("IOU") amounts are
// stored as a normalized mantissa/exponent pair, matching rippled's amount
// representation (original_source/src/ripple/protocol/STAmount.h, resolved
// against spec.md since the teacher's Amount type doesn't carry exponents).
package amount

import (
	"errors"
	"math/big"

	"concordd/internal/crypto"
)

// Currency is a 3-letter ISO-style code or a 20-byte custom currency
// identifier, per spec.md §3.
type Currency [20]byte

// NewCurrencyCode packs a 3-letter ASCII currency code into the canonical
// 20-byte form (the first 12 bytes and last 5 are zero, mirroring rippled's
// standard-currency encoding).
func NewCurrencyCode(code string) (Currency, error) {
	if len(code) != 3 {
		return Currency{}, errors.New("amount: currency code must be 3 characters")
	}
	var c Currency
	copy(c[12:15], code)
	return c, nil
}

func (c Currency) IsNative() bool { return c == (Currency{}) }

func (c Currency) String() string {
	if c.IsNative() {
		return "XRP"
	}
	allZeroTail := true
	for i := 15; i < 20; i++ {
		if c[i] != 0 {
			allZeroTail = false
			break
		}
	}
	allZeroHead := true
	for i := 0; i < 12; i++ {
		if c[i] != 0 {
			allZeroHead = false
			break
		}
	}
	if allZeroHead && allZeroTail {
		return string(c[12:15])
	}
	return crypto.Hash160(c[:20]).String()
}

const (
	// MantissaMin/MantissaMax bound a normalized nonzero IOU mantissa
	// (spec.md §3: mantissa ∈ [10^15, 10^16)).
	MantissaMin = int64(1000000000000000)
	MantissaMax = int64(9999999999999999)

	ExponentMin = -96
	ExponentMax = 80
)

// Amount is the tagged native/IOU sum type. It is a comparable struct
// (no interface/pointer) so it can be used as a map key and compared with
// ==, matching how the teacher keeps its core value types
// (core.Hash, core.Address) as plain fixed-size/comparable structs.
type Amount struct {
	IsNative bool
	Drops    uint64 // valid iff IsNative

	Currency Currency      // valid iff !IsNative
	Issuer   crypto.AccountID // valid iff !IsNative
	Mantissa int64         // normalized to [MantissaMin, MantissaMax], or 0
	Exponent int32         // valid iff !IsNative and Mantissa != 0
	Negative bool
}

// NativeAmount constructs a native-currency (drops) amount.
func NativeAmount(drops uint64) Amount {
	return Amount{IsNative: true, Drops: drops}
}

// Zero reports whether the amount's value is zero.
func (a Amount) Zero() bool {
	if a.IsNative {
		return a.Drops == 0
	}
	return a.Mantissa == 0
}

// IOUAmount constructs a normalized issued-currency amount from a decimal
// value expressed as value = mantissa * 10^exponent, sign carried separately.
// Per spec.md §3, zero is encoded specially (mantissa=0, exponent=0).
func IOUAmount(currency Currency, issuer crypto.AccountID, mantissa int64, exponent int32, negative bool) (Amount, error) {
	a := Amount{Currency: currency, Issuer: issuer, Negative: negative}
	if mantissa == 0 {
		return a, nil
	}
	m, e := mantissa, exponent
	for m != 0 && m < MantissaMin {
		m *= 10
		e--
	}
	for m > MantissaMax {
		m /= 10
		e++
	}
	if e < ExponentMin || e > ExponentMax {
		return Amount{}, errors.New("amount: exponent out of range")
	}
	a.Mantissa, a.Exponent = m, e
	return a, nil
}

// Compare orders two amounts of the same currency/issuer. IOU comparisons
// are by (exponent, mantissa) after normalization to the canonical range,
// per spec.md §3 — no decimal conversion is needed since both operands are
// already normalized to the same mantissa width.
func Compare(a, b Amount) int {
	if a.IsNative != b.IsNative {
		panic("amount: cannot compare native and IOU amounts")
	}
	if a.IsNative {
		switch {
		case a.Drops < b.Drops:
			return -1
		case a.Drops > b.Drops:
			return 1
		default:
			return 0
		}
	}
	as, bs := signOf(a), signOf(b)
	if as != bs {
		if as < bs {
			return -1
		}
		return 1
	}
	// Same sign: compare magnitude by (exponent, mantissa), then flip the
	// result if both are negative.
	mag := 0
	switch {
	case a.Exponent != b.Exponent:
		if a.Exponent < b.Exponent {
			mag = -1
		} else {
			mag = 1
		}
	case a.Mantissa != b.Mantissa:
		if a.Mantissa < b.Mantissa {
			mag = -1
		} else {
			mag = 1
		}
	}
	if as < 0 {
		return -mag
	}
	return mag
}

func signOf(a Amount) int {
	if a.Mantissa == 0 {
		return 0
	}
	if a.Negative {
		return -1
	}
	return 1
}

// Magnitude returns a's absolute value as an exact rational, for callers
// (e.g. the Flow engine's ledger-backed liquidity source) that need plain
// big.Rat arithmetic over amounts regardless of the native/IOU tag.
func Magnitude(a Amount) *big.Rat {
	if a.IsNative {
		return new(big.Rat).SetUint64(a.Drops)
	}
	return new(big.Rat).Abs(toRat(a))
}

func toRat(a Amount) *big.Rat {
	if a.Mantissa == 0 {
		return new(big.Rat)
	}
	r := new(big.Rat).SetInt64(a.Mantissa)
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(absInt32(a.Exponent)), nil)
	if a.Exponent >= 0 {
		r.Mul(r, new(big.Rat).SetInt(pow))
	} else {
		r.Quo(r, new(big.Rat).SetInt(pow))
	}
	if a.Negative {
		r.Neg(r)
	}
	return r
}

func absInt32(v int32) int64 {
	if v < 0 {
		return int64(-v)
	}
	return int64(v)
}

// Add sums two IOU amounts of the same currency/issuer, returning a
// normalized result. Native amounts should be added with plain uint64
// arithmetic by the caller (ledger bookkeeping tracks overflow explicitly).
func Add(a, b Amount) (Amount, error) {
	if a.IsNative || b.IsNative {
		return Amount{}, errors.New("amount: use native arithmetic for drops")
	}
	sum := new(big.Rat).Add(toRat(a), toRat(b))
	return fromRat(a.Currency, a.Issuer, sum)
}

// Sub subtracts b from a (both IOU, same currency/issuer).
func Sub(a, b Amount) (Amount, error) {
	if a.IsNative || b.IsNative {
		return Amount{}, errors.New("amount: use native arithmetic for drops")
	}
	diff := new(big.Rat).Sub(toRat(a), toRat(b))
	return fromRat(a.Currency, a.Issuer, diff)
}

// fromRat renormalizes an arbitrary-precision rational value back into the
// mantissa/exponent canonical form, rounding at the 16th significant digit
// (IOU amounts are not infinite precision; spec.md §3 bounds the mantissa).
func fromRat(cur Currency, issuer crypto.AccountID, v *big.Rat) (Amount, error) {
	if v.Sign() == 0 {
		return Amount{Currency: cur, Issuer: issuer}, nil
	}
	neg := v.Sign() < 0
	av := new(big.Rat).Abs(v)

	exp := int32(0)
	scaled := new(big.Rat).Set(av)
	upper := new(big.Rat).SetInt64(MantissaMax + 1)
	lower := new(big.Rat).SetInt64(MantissaMin)
	ten := big.NewRat(10, 1)
	for scaled.Cmp(upper) >= 0 {
		scaled.Quo(scaled, ten)
		exp++
	}
	for scaled.Sign() != 0 && scaled.Cmp(lower) < 0 {
		scaled.Mul(scaled, ten)
		exp--
	}
	if exp < ExponentMin || exp > ExponentMax {
		return Amount{}, errors.New("amount: exponent out of range")
	}
	// Round to the nearest integer mantissa (halves round up), using exact
	// integer arithmetic on scaled's numerator and denominator.
	q, rem := new(big.Int).QuoRem(scaled.Num(), scaled.Denom(), new(big.Int))
	if new(big.Int).Lsh(rem, 1).Cmp(scaled.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	mantissa := q.Int64()
	if mantissa > MantissaMax {
		mantissa /= 10
		exp++
	}
	return Amount{Currency: cur, Issuer: issuer, Mantissa: mantissa, Exponent: exp, Negative: neg}, nil
}
