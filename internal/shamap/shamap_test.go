package shamap

import (
	"crypto/sha256"
	"math/rand"
	"testing"

	"concordd/internal/crypto"
	"concordd/pkg/errs"
)

func keyFor(s string) crypto.Hash256 {
	return sha256.Sum256([]byte(s))
}

func TestGetHashOrderIndependent(t *testing.T) {
	keys := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}

	build := func(order []string) crypto.Hash256 {
		m := New(LayoutV1, errs.MapState)
		for _, k := range order {
			if err := m.Add(Item{Key: keyFor(k), Data: []byte(k)}); err != nil {
				t.Fatalf("add %s: %v", k, err)
			}
		}
		return m.GetHash()
	}

	want := build(keys)
	for i := 0; i < 5; i++ {
		shuffled := append([]string(nil), keys...)
		rand.New(rand.NewSource(int64(i))).Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := build(shuffled); got != want {
			t.Fatalf("permutation %d hash mismatch: got %x want %x", i, got, want)
		}
	}
}

func TestAddDuplicateFails(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	k := keyFor("only")
	if err := m.Add(Item{Key: k, Data: []byte("v1")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Add(Item{Key: k, Data: []byte("v2")}); err != ErrAlreadyPresent {
		t.Fatalf("expected ErrAlreadyPresent, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	k := keyFor("item")
	if err := m.Add(Item{Key: k, Data: []byte("v1")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Update(Item{Key: k, Data: []byte("v2")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok, err := m.Get(k)
	if err != nil || !ok {
		t.Fatalf("get after update: ok=%v err=%v", ok, err)
	}
	if string(got.Data) != "v2" {
		t.Fatalf("update did not take effect: got %q", got.Data)
	}
	if err := m.Delete(k); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m.Has(k) {
		t.Fatalf("key still present after delete")
	}
	if err := m.Delete(k); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// TestCollapseAfterDelete exercises the split/collapse pair: two keys that
// land under the same inner node, then one is removed, and the map should
// behave exactly as if only the survivor had ever been inserted.
func TestCollapseAfterDelete(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	a, b := keyFor("pair-a"), keyFor("pair-b")
	if err := m.Add(Item{Key: a, Data: []byte("a")}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := m.Add(Item{Key: b, Data: []byte("b")}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	withBoth := m.GetHash()

	if err := m.Delete(b); err != nil {
		t.Fatalf("delete b: %v", err)
	}

	solo := New(LayoutV1, errs.MapState)
	if err := solo.Add(Item{Key: a, Data: []byte("a")}); err != nil {
		t.Fatalf("add solo: %v", err)
	}
	if m.GetHash() != solo.GetHash() {
		t.Fatalf("collapsed map hash %x does not match solo-insert hash %x", m.GetHash(), solo.GetHash())
	}
	if m.GetHash() == withBoth {
		t.Fatalf("hash did not change after delete")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	k1 := keyFor("base")
	if err := m.Add(Item{Key: k1, Data: []byte("v1")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := m.Snapshot(false)
	snapHash := snap.GetHash()

	k2 := keyFor("added-after-snapshot")
	if err := m.Add(Item{Key: k2, Data: []byte("v2")}); err != nil {
		t.Fatalf("add after snapshot: %v", err)
	}

	if snap.Has(k2) {
		t.Fatalf("snapshot observed a write made after it was taken")
	}
	if snap.GetHash() != snapHash {
		t.Fatalf("snapshot hash changed after source map was mutated")
	}
	if !m.Has(k2) {
		t.Fatalf("live map missing its own write")
	}
}

func TestCompareAddedRemovedChanged(t *testing.T) {
	base := New(LayoutV1, errs.MapTransaction)
	shared := keyFor("shared")
	removed := keyFor("removed")
	changed := keyFor("changed")
	for _, it := range []Item{
		{Key: shared, Data: []byte("s")},
		{Key: removed, Data: []byte("r")},
		{Key: changed, Data: []byte("before")},
	} {
		if err := base.Add(it); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	other := base.Snapshot(true)
	if err := other.Delete(removed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := other.Update(Item{Key: changed, Data: []byte("after")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	added := keyFor("added")
	if err := other.Add(Item{Key: added, Data: []byte("new")}); err != nil {
		t.Fatalf("add: %v", err)
	}

	delta, err := base.Compare(other, 0)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(delta.Added) != 1 || delta.Added[0].Key != added {
		t.Fatalf("unexpected added set: %+v", delta.Added)
	}
	if len(delta.Removed) != 1 || delta.Removed[0].Key != removed {
		t.Fatalf("unexpected removed set: %+v", delta.Removed)
	}
	if len(delta.Changed) != 1 || delta.Changed[0].Before.Key != changed {
		t.Fatalf("unexpected changed set: %+v", delta.Changed)
	}
}

func TestGetNodesFanoutRoot(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	k := keyFor("fanout")
	if err := m.Add(Item{Key: k, Data: []byte("v")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	nodes, err := m.GetNodesFanout(k, 0, NTypeAccountStateNode)
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if len(nodes) == 0 {
		t.Fatalf("expected at least the root node")
	}
}
