package amount

import (
	"testing"

	"concordd/internal/crypto"
)

func usd(t *testing.T) Currency {
	t.Helper()
	c, err := NewCurrencyCode("USD")
	if err != nil {
		t.Fatalf("currency: %v", err)
	}
	return c
}

func TestIOUAmountNormalization(t *testing.T) {
	cur := usd(t)
	var issuer crypto.AccountID
	a, err := IOUAmount(cur, issuer, 1, 2, false) // 1 * 10^2 = 100
	if err != nil {
		t.Fatalf("iou: %v", err)
	}
	if a.Mantissa < MantissaMin || a.Mantissa > MantissaMax {
		t.Fatalf("mantissa not normalized: %d", a.Mantissa)
	}
}

func TestAmountAddSub(t *testing.T) {
	cur := usd(t)
	var issuer crypto.AccountID
	a, _ := IOUAmount(cur, issuer, 100, 0, false) // 100
	b, _ := IOUAmount(cur, issuer, 25, 0, false)  // 25
	sum, err := Add(a, b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	want, _ := IOUAmount(cur, issuer, 125, 0, false)
	if Compare(sum, want) != 0 {
		t.Fatalf("125 != computed sum (mantissa=%d exp=%d)", sum.Mantissa, sum.Exponent)
	}

	diff, err := Sub(a, b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	want75, _ := IOUAmount(cur, issuer, 75, 0, false)
	if Compare(diff, want75) != 0 {
		t.Fatalf("75 != computed diff (mantissa=%d exp=%d)", diff.Mantissa, diff.Exponent)
	}
}

func TestCompareZeroHandledSpecially(t *testing.T) {
	cur := usd(t)
	var issuer crypto.AccountID
	zero := Amount{Currency: cur, Issuer: issuer}
	pos, _ := IOUAmount(cur, issuer, 1, 0, false)
	if Compare(zero, pos) >= 0 {
		t.Fatalf("expected zero < positive")
	}
	neg, _ := IOUAmount(cur, issuer, 1, 0, true)
	if Compare(neg, zero) >= 0 {
		t.Fatalf("expected negative < zero")
	}
}

func TestNativeAmountCompare(t *testing.T) {
	a := NativeAmount(100)
	b := NativeAmount(200)
	if Compare(a, b) != -1 {
		t.Fatalf("expected a < b")
	}
}
