package validation

import (
	"testing"
	"time"

	"concordd/internal/crypto"
)

type fakeLedgerStore struct {
	headers map[crypto.Hash256]LedgerHeader
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{headers: make(map[crypto.Hash256]LedgerHeader)}
}

func (s *fakeLedgerStore) Header(h crypto.Hash256) (LedgerHeader, bool) {
	lh, ok := s.headers[h]
	return lh, ok
}

func (s *fakeLedgerStore) add(hash, parent crypto.Hash256, seq uint32) {
	s.headers[hash] = LedgerHeader{Hash: hash, ParentHash: parent, Seq: seq}
}

func h(b byte) crypto.Hash256 {
	var x crypto.Hash256
	x[0] = b
	return x
}

func id(b byte) crypto.AccountID {
	var x crypto.AccountID
	x[0] = b
	return x
}

func TestPreferredLedgerPicksHighestSupport(t *testing.T) {
	unl := NewUNL(id(1), id(2), id(3), id(4))
	c := NewCollector()
	now := time.Now()
	ledgerA, ledgerB := h(0xA), h(0xB)

	c.Record(Validation{LedgerHash: ledgerA, Seq: 5, NodePublicKey: id(1), SigningTime: now})
	c.Record(Validation{LedgerHash: ledgerA, Seq: 5, NodePublicKey: id(2), SigningTime: now})
	c.Record(Validation{LedgerHash: ledgerA, Seq: 5, NodePublicKey: id(3), SigningTime: now})
	c.Record(Validation{LedgerHash: ledgerB, Seq: 5, NodePublicKey: id(4), SigningTime: now})

	hash, seq, support, ok := PreferredLedger(c, unl)
	if !ok {
		t.Fatalf("expected a preferred ledger")
	}
	if hash != ledgerA || seq != 5 || support != 3 {
		t.Fatalf("expected ledgerA with support 3, got hash=%x seq=%d support=%d", hash, seq, support)
	}
}

func TestRecordKeepsOnlyMostRecentPerSigner(t *testing.T) {
	c := NewCollector()
	signer := id(9)
	older := time.Now()
	newer := older.Add(time.Second)

	c.Record(Validation{LedgerHash: h(1), Seq: 1, NodePublicKey: signer, SigningTime: older})
	c.Record(Validation{LedgerHash: h(2), Seq: 2, NodePublicKey: signer, SigningTime: newer})
	c.Record(Validation{LedgerHash: h(1), Seq: 1, NodePublicKey: signer, SigningTime: older})

	snap := c.snapshot()
	if snap[signer].LedgerHash != h(2) {
		t.Fatalf("expected the newer validation to win, got hash=%x", snap[signer].LedgerHash)
	}
}

func TestFullyValidatedReachesQuorum(t *testing.T) {
	unl := NewUNL(id(1), id(2), id(3), id(4), id(5))
	c := NewCollector()
	now := time.Now()
	ledger := h(0xC)

	for i, signer := range []crypto.AccountID{id(1), id(2), id(3), id(4)} {
		c.Record(Validation{LedgerHash: ledger, Seq: 10, NodePublicKey: signer, SigningTime: now.Add(time.Duration(i) * time.Millisecond)})
	}

	store := newFakeLedgerStore()
	store.add(ledger, h(0), 10)

	hash, seq, ok := FullyValidated(c, unl, store, 80)
	if !ok {
		t.Fatalf("expected quorum at 4/5 = 80%%")
	}
	if hash != ledger || seq != 10 {
		t.Fatalf("unexpected fully-validated ledger: hash=%x seq=%d", hash, seq)
	}
}

func TestFullyValidatedBlockedByFork(t *testing.T) {
	unl := NewUNL(id(1), id(2), id(3), id(4))
	c := NewCollector()
	now := time.Now()
	ledgerA, ledgerB := h(0xA), h(0xB)

	c.Record(Validation{LedgerHash: ledgerA, Seq: 10, NodePublicKey: id(1), SigningTime: now})
	c.Record(Validation{LedgerHash: ledgerA, Seq: 10, NodePublicKey: id(2), SigningTime: now})
	c.Record(Validation{LedgerHash: ledgerB, Seq: 10, NodePublicKey: id(3), SigningTime: now})
	c.Record(Validation{LedgerHash: ledgerB, Seq: 10, NodePublicKey: id(4), SigningTime: now})

	store := newFakeLedgerStore()
	genesis := h(0)
	store.add(genesis, crypto.Hash256{}, 0)
	store.add(ledgerA, genesis, 10)
	store.add(ledgerB, genesis, 10)

	_, _, ok := FullyValidated(c, unl, store, 50)
	if ok {
		t.Fatalf("expected fork at equal seq/support to block fully-validated determination")
	}
}

func TestCommonAncestorAlignsDifferentHeights(t *testing.T) {
	store := newFakeLedgerStore()
	genesis := h(0)
	mid := h(1)
	tipA := h(2)
	tipB := h(3)
	store.add(genesis, crypto.Hash256{}, 1)
	store.add(mid, genesis, 2)
	store.add(tipA, mid, 3)
	store.add(tipB, mid, 3)
	tipB2 := h(4)
	store.add(tipB2, tipB, 4)

	ancestor, ok := CommonAncestor(store, tipA, tipB2)
	if !ok {
		t.Fatalf("expected a common ancestor")
	}
	if ancestor != mid {
		t.Fatalf("expected common ancestor %x, got %x", mid, ancestor)
	}

	if DetectFork(store, tipA, mid) {
		t.Fatalf("a descendant and its own ancestor are not a fork")
	}
	if !DetectFork(store, tipA, tipB) {
		t.Fatalf("two distinct tips at the same seq are a fork")
	}
}
