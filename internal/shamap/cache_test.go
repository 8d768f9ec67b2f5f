package shamap

import (
	"testing"

	"concordd/internal/crypto"
	"concordd/pkg/errs"
)

func TestGetNodesFanoutReusesNodeCache(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	for _, k := range []string{"alpha", "bravo", "charlie", "delta"} {
		if err := m.Add(Item{Key: keyFor(k), Data: []byte(k)}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	cache := NewNodeCache(64)
	m.SetNodeCache(cache)

	leaf := keyFor("alpha")
	first, err := m.GetNodesFanout(leaf, 32, NTypeAccountStateNode)
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if _, ok := cache.Get(first[0].Hash); !ok {
		t.Fatalf("expected leaf hash to be cached after first fanout")
	}

	second, err := m.GetNodesFanout(leaf, 32, NTypeAccountStateNode)
	if err != nil {
		t.Fatalf("fanout again: %v", err)
	}
	if string(first[0].Data) != string(second[0].Data) {
		t.Fatalf("cached fanout returned different data: %q vs %q", first[0].Data, second[0].Data)
	}
}

func TestIngestLeafSkipsAlreadyFullBelow(t *testing.T) {
	m := New(LayoutV1, errs.MapState)
	fb := NewFullBelowCache(64)
	m.SetFullBelowCache(fb)

	calls := 0
	m.SetSyncFilter(countingFilter{count: &calls})

	item := Item{Key: keyFor("alpha"), Data: []byte("v1")}
	if err := m.IngestLeaf(1, item, NTypeAccountStateNode); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 GotNode call, got %d", calls)
	}
	if !fb.Know(item.Key) {
		t.Fatalf("expected key marked full-below after ingest")
	}

	// Re-ingesting the same key should be recognized as already known and
	// skip both the update and the redundant filter notification.
	if err := m.IngestLeaf(1, item, NTypeAccountStateNode); err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no additional GotNode call on re-ingest, got %d total", calls)
	}
}

type countingFilter struct {
	count *int
}

func (countingFilter) GetNode(hash crypto.Hash256) ([]byte, bool) { return nil, false }

func (f countingFilter) GotNode(hash crypto.Hash256, ledgerSeq uint32, data []byte, typ NType) {
	*f.count++
}
