package txn

import (
	"math/big"

	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/flow"
	"concordd/internal/stobject"
	"concordd/internal/view"
)

// ViewLiquiditySource adapts a ledger view into flow.LiquiditySource by
// reading trust lines out of an account's owner directory and offers out
// of the order-book-by-input-issue directories txn's OfferCreate/TrustSet
// maintain (spec.md §4.G names the interface; this is its ledger-backed
// implementation, the "concrete implementation ... external collaborator"
// flow/graph.go's doc comment anticipates).
type ViewLiquiditySource struct {
	View view.ReadView
}

func toFlowIssue(k issueKey) flow.IssueKey {
	return flow.IssueKey{Currency: k.Currency, Issuer: k.Issuer}
}

func (s ViewLiquiditySource) TrustLines(holder crypto.AccountID, cur flow.IssueKey) ([]flow.TrustLineEdge, error) {
	keys, err := dirEntries(s.View, OwnerDirKey(holder))
	if err != nil {
		return nil, err
	}
	var out []flow.TrustLineEdge
	for _, k := range keys {
		item, ok, err := s.View.Read(k)
		if err != nil || !ok {
			continue
		}
		obj, err := stobject.DecodeBinary(item.Data)
		if err != nil {
			continue
		}
		if _, ok := obj.Get("LowAccount"); !ok {
			continue // not a trust-line leaf
		}
		t, err := trustLineFromSTObject(obj)
		if err != nil || t.Currency != cur.Currency {
			continue
		}
		if t.Low != holder && t.High != holder {
			continue
		}
		capacity := remainingCapacity(t, holder)
		if capacity.Sign() <= 0 {
			continue
		}
		out = append(out, flow.TrustLineEdge{Counterparty: counterpartyFor(t, holder), Issue: cur, Capacity: capacity})
	}
	return out, nil
}

func counterpartyFor(t TrustLine, holder crypto.AccountID) crypto.AccountID {
	if t.Low == holder {
		return t.High
	}
	return t.Low
}

// remainingCapacity returns how much more holder could receive across t.
func remainingCapacity(t TrustLine, holder crypto.AccountID) *big.Rat {
	limit := t.HighLimit
	holderIsOwed := t.Balance.Negative // Balance.Negative means low owes high
	if t.Low == holder {
		limit = t.LowLimit
		holderIsOwed = !t.Balance.Negative
	}
	limitRat := amount.Magnitude(limit)
	if t.Balance.Zero() {
		return limitRat
	}
	balRat := amount.Magnitude(t.Balance)
	if holderIsOwed {
		return new(big.Rat).Sub(limitRat, balRat)
	}
	return new(big.Rat).Add(limitRat, balRat)
}

func (s ViewLiquiditySource) OrderBook(in, out flow.IssueKey) ([]flow.OfferEdge, error) {
	all, err := s.OffersFrom(in)
	if err != nil {
		return nil, err
	}
	var filtered []flow.OfferEdge
	for _, o := range all {
		if o.Out == out {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func (s ViewLiquiditySource) OffersFrom(in flow.IssueKey) ([]flow.OfferEdge, error) {
	keys, err := dirEntries(s.View, BookByInKey(issueKey{Currency: in.Currency, Issuer: in.Issuer}))
	if err != nil {
		return nil, err
	}
	var out []flow.OfferEdge
	for _, k := range keys {
		item, ok, err := s.View.Read(k)
		if err != nil || !ok {
			continue
		}
		obj, err := stobject.DecodeBinary(item.Data)
		if err != nil {
			continue
		}
		o, err := offerFromSTObject(obj)
		if err != nil {
			continue
		}
		out = append(out, flow.OfferEdge{
			Owner:     o.Account,
			In:        toFlowIssue(issueOf(o.TakerPays)),
			Out:       toFlowIssue(issueOf(o.TakerGets)),
			TakerPays: amount.Magnitude(o.TakerPays),
			TakerGets: amount.Magnitude(o.TakerGets),
		})
	}
	return out, nil
}
