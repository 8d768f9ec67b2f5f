package ledger

import (
	"testing"
	"time"

	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/internal/stobject"
	"concordd/internal/txn"
	"concordd/internal/view"
)

func acct(b byte) crypto.AccountID {
	var a crypto.AccountID
	a[0] = b
	return a
}

func seedGenesis(t *testing.T, balances map[crypto.AccountID]uint64) *Ledger {
	t.Helper()
	g := Genesis(time.Unix(1_000_000, 0), shamap.LayoutV1)
	raw := view.NewRawView(view.LedgerInfo{Seq: g.Seq, BaseFeeDrops: baseFeeDrops}, g.StateMap)
	av := view.NewApplyView(raw)
	for acc, bal := range balances {
		if err := txn.PutAccountRoot(av, txn.AccountRoot{Account: acc, Balance: bal, Sequence: 1}); err != nil {
			t.Fatalf("seed account: %v", err)
		}
	}
	if err := av.Commit(raw); err != nil {
		t.Fatalf("commit genesis accounts: %v", err)
	}
	g.StateMapHash = g.StateMap.GetHash()
	return g
}

func paymentCandidate(t *testing.T, from, to crypto.AccountID, drops, fee uint64) Candidate {
	t.Helper()
	obj, err := stobject.New(map[string]any{
		"Account":     from,
		"Destination": to,
		"Amount":      amount.NativeAmount(drops),
	})
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	body, err := obj.EncodeBinary(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return Candidate{
		Hash:     crypto.Hash256Prefixed(crypto.PrefixTransactionID, body),
		Type:     txn.TxPayment,
		Account:  from,
		FeeDrops: fee,
		Object:   obj,
	}
}

func TestCloseAppliesPaymentsAndConservesDrops(t *testing.T) {
	alice, bob := acct(1), acct(2)
	parent := seedGenesis(t, map[crypto.AccountID]uint64{alice: 1000, bob: 0})
	parent.TotalDrops = 1000

	c := paymentCandidate(t, alice, bob, 100, 10)
	tracker := NewResolutionTracker()
	next, outcomes, err := Close(parent, []Candidate{c}, parent.CloseTime.Add(5*time.Second), tracker, true)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].TER.Succeeded() {
		t.Fatalf("expected one successful outcome, got %+v", outcomes)
	}
	if next.Seq != parent.Seq+1 {
		t.Fatalf("expected seq %d, got %d", parent.Seq+1, next.Seq)
	}
	if next.TotalDrops != 1000-10 {
		t.Fatalf("expected totalDrops %d, got %d", 1000-10, next.TotalDrops)
	}
	if next.ParentHash != parent.Hash() {
		t.Fatalf("expected parentHash to match parent.Hash()")
	}

	raw := view.NewRawView(view.LedgerInfo{Seq: next.Seq}, next.StateMap)
	aliceRoot, _, err := txn.GetAccountRoot(raw, alice)
	if err != nil {
		t.Fatalf("read alice: %v", err)
	}
	bobRoot, _, err := txn.GetAccountRoot(raw, bob)
	if err != nil {
		t.Fatalf("read bob: %v", err)
	}
	if aliceRoot.Balance != 1000-100-10 {
		t.Fatalf("expected alice balance %d, got %d", 1000-100-10, aliceRoot.Balance)
	}
	if bobRoot.Balance != 100 {
		t.Fatalf("expected bob balance 100, got %d", bobRoot.Balance)
	}
}

func TestCloseIsDeterministicAcrossCandidateOrder(t *testing.T) {
	alice, bob, carol := acct(3), acct(4), acct(5)
	seed := func() *Ledger { return seedGenesis(t, map[crypto.AccountID]uint64{alice: 1000, bob: 0, carol: 500}) }

	p1 := seed()
	c1 := paymentCandidate(t, alice, bob, 50, 10)
	c2 := paymentCandidate(t, carol, bob, 20, 10)
	tracker1 := NewResolutionTracker()
	next1, _, err := Close(p1, []Candidate{c1, c2}, p1.CloseTime.Add(5*time.Second), tracker1, true)
	if err != nil {
		t.Fatalf("close 1: %v", err)
	}

	p2 := seed()
	tracker2 := NewResolutionTracker()
	next2, _, err := Close(p2, []Candidate{c2, c1}, p2.CloseTime.Add(5*time.Second), tracker2, true)
	if err != nil {
		t.Fatalf("close 2: %v", err)
	}

	if next1.StateMapHash != next2.StateMapHash {
		t.Fatalf("expected identical resulting state regardless of candidate submission order")
	}
	if next1.Hash() != next2.Hash() {
		t.Fatalf("expected identical ledger hash regardless of candidate submission order")
	}
}

func TestCloseRejectsTecButStillChargesFee(t *testing.T) {
	alice, bob := acct(6), acct(7)
	parent := seedGenesis(t, map[crypto.AccountID]uint64{alice: 50, bob: 0})
	parent.TotalDrops = 50

	c := paymentCandidate(t, alice, bob, 1000, 10)
	tracker := NewResolutionTracker()
	next, outcomes, err := Close(parent, []Candidate{c}, parent.CloseTime.Add(5*time.Second), tracker, true)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	if outcomes[0].TER.Class.String() != "tec" {
		t.Fatalf("expected a tec-class outcome, got %s", outcomes[0].TER.Class)
	}
	if !outcomes[0].TER.Succeeded() {
		t.Fatalf("expected a tec outcome to still report Succeeded (fee taken, effects void), got %+v", outcomes[0].TER)
	}
	if next.TotalDrops != 40 {
		t.Fatalf("expected fee-only burn of 10, got totalDrops %d", next.TotalDrops)
	}
}
