package view

import (
	"crypto/sha256"
	"testing"

	"concordd/internal/shamap"
	"concordd/pkg/errs"
)

func key(s string) (k [32]byte) {
	return sha256.Sum256([]byte(s))
}

func newRaw() *RawView {
	return NewRawView(LedgerInfo{Seq: 2, BaseFeeDrops: 10}, shamap.New(shamap.LayoutV1, errs.MapState))
}

func TestApplyViewReadsOwnDeltaBeforeBase(t *testing.T) {
	raw := newRaw()
	k := key("acct")
	if err := raw.Map.Add(shamap.Item{Key: k, Data: []byte("base")}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	av := NewApplyView(raw)
	av.Update(shamap.Item{Key: k, Data: []byte("pending")})

	got, ok, err := av.Read(k)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if string(got.Data) != "pending" {
		t.Fatalf("expected pending delta value, got %q", got.Data)
	}

	baseGot, _, _ := raw.Read(k)
	if string(baseGot.Data) != "base" {
		t.Fatalf("base view must be unaffected before commit, got %q", baseGot.Data)
	}
}

func TestSandboxDiscardLeavesParentUntouched(t *testing.T) {
	raw := newRaw()
	av := NewApplyView(raw)
	k := key("new-item")

	sb := NewSandbox(av)
	sb.Insert(shamap.Item{Key: k, Data: []byte("tentative")})
	sb.DestroyXRP(5)

	// Discarded: never call sb.Apply(av).
	if _, ok, _ := av.Read(k); ok {
		t.Fatalf("parent observed a discarded sandbox's write")
	}
	if av.Burned() != 0 {
		t.Fatalf("parent observed a discarded sandbox's burn")
	}
}

func TestSandboxApplyMergesUpward(t *testing.T) {
	raw := newRaw()
	av := NewApplyView(raw)
	k := key("merged-item")

	sb := NewSandbox(av)
	sb.Insert(shamap.Item{Key: k, Data: []byte("merged")})
	sb.DestroyXRP(7)
	sb.Apply(av)

	got, ok, err := av.Read(k)
	if err != nil || !ok {
		t.Fatalf("read after merge: ok=%v err=%v", ok, err)
	}
	if string(got.Data) != "merged" {
		t.Fatalf("unexpected value after merge: %q", got.Data)
	}
	if av.Burned() != 7 {
		t.Fatalf("expected burned=7, got %d", av.Burned())
	}
}

func TestCommitAppliesDeltaToRawMap(t *testing.T) {
	raw := newRaw()
	av := NewApplyView(raw)
	k1, k2 := key("one"), key("two")
	av.Insert(shamap.Item{Key: k1, Data: []byte("v1")})
	av.Insert(shamap.Item{Key: k2, Data: []byte("v2")})
	av.Erase(k1)

	if err := av.Commit(raw); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if raw.Map.Has(k1) {
		t.Fatalf("k1 should have been erased by the same commit that created it")
	}
	if !raw.Map.Has(k2) {
		t.Fatalf("k2 should be present after commit")
	}
}
