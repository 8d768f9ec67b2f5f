package flow

import (
	"math/big"
	"testing"

	"concordd/internal/amount"
	"concordd/internal/crypto"
)

type fakeSource struct {
	lines map[IssueKey][]TrustLineEdge
	books map[[2]IssueKey][]OfferEdge
}

func (f *fakeSource) TrustLines(_ crypto.AccountID, cur IssueKey) ([]TrustLineEdge, error) {
	return f.lines[cur], nil
}

func (f *fakeSource) OrderBook(in, out IssueKey) ([]OfferEdge, error) {
	return f.books[[2]IssueKey{in, out}], nil
}

func (f *fakeSource) OffersFrom(in IssueKey) ([]OfferEdge, error) {
	var out []OfferEdge
	for k, v := range f.books {
		if k[0].equal(in) {
			out = append(out, v...)
		}
	}
	return out, nil
}

func usd(issuer crypto.AccountID) IssueKey {
	cur, _ := amount.NewCurrencyCode("USD")
	return IssueKey{Currency: cur, Issuer: issuer}
}

func eur(issuer crypto.AccountID) IssueKey {
	cur, _ := amount.NewCurrencyCode("EUR")
	return IssueKey{Currency: cur, Issuer: issuer}
}

func TestPathfinderFindsDirectBookHop(t *testing.T) {
	var gateway crypto.AccountID
	gateway[0] = 1
	src := NativeIssue()
	dst := usd(gateway)

	fs := &fakeSource{books: map[[2]IssueKey][]OfferEdge{
		{src, dst}: {{Owner: gateway, In: src, Out: dst, TakerPays: big.NewRat(1, 1), TakerGets: big.NewRat(1, 1)}},
	}}

	pf := &Pathfinder{Source: fs}
	paths, err := pf.FindPaths(crypto.AccountID{}, src, gateway, dst)
	if err != nil {
		t.Fatalf("find paths: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("expected at least one path")
	}
	if !paths[0][len(paths[0])-1].equal(dst) {
		t.Fatalf("path does not end at destination issue: %+v", paths[0])
	}
}

func TestPathfinderBoundedDepth(t *testing.T) {
	// A chain of currencies longer than MaxDepth should never be found by
	// a pathfinder configured with a small depth bound.
	var issuers [10]crypto.AccountID
	for i := range issuers {
		issuers[i][0] = byte(i + 1)
	}
	books := map[[2]IssueKey][]OfferEdge{}
	issues := make([]IssueKey, len(issuers))
	for i, g := range issuers {
		if i%2 == 0 {
			issues[i] = usd(g)
		} else {
			issues[i] = eur(g)
		}
	}
	for i := 0; i+1 < len(issues); i++ {
		books[[2]IssueKey{issues[i], issues[i+1]}] = []OfferEdge{
			{In: issues[i], Out: issues[i+1], TakerPays: big.NewRat(1, 1), TakerGets: big.NewRat(1, 1)},
		}
	}
	fs := &fakeSource{books: books}
	pf := &Pathfinder{Source: fs, MaxDepth: 2}
	paths, _ := pf.FindPaths(crypto.AccountID{}, issues[0], issuers[len(issuers)-1], issues[len(issues)-1])
	if len(paths) != 0 {
		t.Fatalf("expected no path within bounded depth, got %+v", paths)
	}
}

func TestExecuteSingleHopDelivers(t *testing.T) {
	var gateway crypto.AccountID
	gateway[0] = 2
	src := NativeIssue()
	dst := usd(gateway)
	path := Path{src, dst}
	fs := &fakeSource{books: map[[2]IssueKey][]OfferEdge{
		{src, dst}: {{Owner: gateway, In: src, Out: dst, TakerPays: big.NewRat(10, 1), TakerGets: big.NewRat(20, 1)}},
	}}

	target := big.NewRat(10, 1)
	res, err := Execute([]Path{path}, target, Options{}, fs)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Delivered.Cmp(target) != 0 {
		t.Fatalf("expected full delivery of %v, got %v", target, res.Delivered)
	}
	// quality 1/2 means 1 unit in buys 2 units out, so 5 in should be debited.
	if res.SourceDebited.Cmp(big.NewRat(5, 1)) != 0 {
		t.Fatalf("expected 5 debited, got %v", res.SourceDebited)
	}
}

func TestExecutePartialPaymentWithLimitedCapacity(t *testing.T) {
	var gateway crypto.AccountID
	gateway[0] = 3
	src := NativeIssue()
	dst := usd(gateway)
	path := Path{src, dst}
	fs := &fakeSource{books: map[[2]IssueKey][]OfferEdge{
		{src, dst}: {{Owner: gateway, In: src, Out: dst, TakerPays: big.NewRat(1, 1), TakerGets: big.NewRat(4, 1)}},
	}}

	target := big.NewRat(10, 1)
	res, err := Execute([]Path{path}, target, Options{PartialPayment: true}, fs)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Delivered.Cmp(big.NewRat(4, 1)) != 0 {
		t.Fatalf("expected capacity-bounded delivery of 4, got %v", res.Delivered)
	}
}

func TestExecuteFailsWithoutPartialPayment(t *testing.T) {
	var gateway crypto.AccountID
	gateway[0] = 4
	src := NativeIssue()
	dst := usd(gateway)
	path := Path{src, dst}
	fs := &fakeSource{books: map[[2]IssueKey][]OfferEdge{
		{src, dst}: {{Owner: gateway, In: src, Out: dst, TakerPays: big.NewRat(1, 1), TakerGets: big.NewRat(4, 1)}},
	}}

	_, err := Execute([]Path{path}, big.NewRat(10, 1), Options{}, fs)
	if err == nil {
		t.Fatalf("expected tecPATH_DRY without partialPayment")
	}
}

func TestRoundHalfEven(t *testing.T) {
	cases := []struct {
		in   *big.Rat
		want int64
	}{
		{big.NewRat(5, 2), 2},  // 2.5 -> 2 (even)
		{big.NewRat(7, 2), 4},  // 3.5 -> 4 (even)
		{big.NewRat(9, 4), 2},  // 2.25 -> 2
		{big.NewRat(-5, 2), -2},
	}
	for _, c := range cases {
		got := RoundHalfEven(c.in)
		if got.Int64() != c.want {
			t.Fatalf("RoundHalfEven(%v) = %v, want %d", c.in, got, c.want)
		}
	}
}
