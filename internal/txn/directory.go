package txn

import (
	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/view"
)

// BookByInKey derives the directory key listing every open offer whose
// TakerPays issue is in, regardless of destination issue — the fan-out
// index a flow.LiquiditySource needs to discover order-book neighbors
// during pathfinding (the same gap flow.LiquiditySource.OffersFrom exists
// to bridge, here on the ledger-state side of that interface).
func BookByInKey(in issueKey) crypto.Hash256 {
	return crypto.Hash256Raw([]byte{ltDirNode, 'b'}, in.Currency[:], in.Issuer[:])
}

// issueKey is txn's own (currency, issuer) pair with the same shape as
// flow.IssueKey; toFlowIssue (flowsource.go) converts it where
// ViewLiquiditySource builds flow.OfferEdge/TrustLineEdge values. The
// dependency runs one way: txn imports flow, flow does not import txn.
type issueKey struct {
	Currency amount.Currency
	Issuer   crypto.AccountID
}

func (k issueKey) dirKey() crypto.Hash256 { return BookByInKey(k) }

// dirEntries reads a directory page's list of 32-byte state-map keys.
func dirEntries(v view.ReadView, dirKey crypto.Hash256) ([]crypto.Hash256, error) {
	item, ok, err := v.Read(dirKey)
	if err != nil || !ok {
		return nil, err
	}
	raw, ok := view.DecodeDirPage(item.Data)
	if !ok {
		return nil, nil
	}
	out := make([]crypto.Hash256, 0, len(raw))
	for _, e := range raw {
		if len(e) != 32 {
			continue
		}
		var h crypto.Hash256
		copy(h[:], e)
		out = append(out, h)
	}
	return out, nil
}

// dirAddEntry appends key to the directory page at dirKey, creating the
// page if absent (spec.md §4.E: "no duplicate entries in any directory
// page" — addEntry is a no-op if key is already present).
func dirAddEntry(v *view.ApplyView, dirKey crypto.Hash256, key crypto.Hash256) error {
	existing, err := dirEntries(v, dirKey)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e == key {
			return nil
		}
	}
	v.DirAdd(dirKey, append(toByteEntries(existing), key[:]))
	return nil
}

// dirRemoveEntry removes key from the directory page at dirKey.
func dirRemoveEntry(v *view.ApplyView, dirKey crypto.Hash256, key crypto.Hash256) error {
	existing, err := dirEntries(v, dirKey)
	if err != nil {
		return err
	}
	remaining := make([]crypto.Hash256, 0, len(existing))
	for _, e := range existing {
		if e != key {
			remaining = append(remaining, e)
		}
	}
	v.DirRemove(dirKey, toByteEntries(remaining))
	return nil
}

func toByteEntries(keys []crypto.Hash256) [][]byte {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		b := make([]byte, 32)
		copy(b, k[:])
		out[i] = b
	}
	return out
}
