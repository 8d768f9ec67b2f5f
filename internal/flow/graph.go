package flow

import (
	"math/big"

	"concordd/internal/crypto"
)

// TrustLineEdge describes a direct step: a trust line connecting holder to
// counterparty for Currency, with the remaining capacity the holder could
// still receive (its trust limit minus current balance).
type TrustLineEdge struct {
	Counterparty crypto.AccountID
	Issue        IssueKey
	Capacity     *big.Rat // remaining receivable capacity, holder's side
}

// OfferEdge describes one order-book offer convertible into a book step:
// an offer selling TakerGets in exchange for TakerPays, owned by Owner.
// Quality is TakerPays/TakerGets (spec.md §4.G) — the rate paid per unit
// delivered, lower is better for the taker.
type OfferEdge struct {
	Owner     crypto.AccountID
	In        IssueKey // TakerPays issue
	Out       IssueKey // TakerGets issue
	TakerPays *big.Rat
	TakerGets *big.Rat
}

func (o OfferEdge) quality() *big.Rat {
	return new(big.Rat).Quo(o.TakerPays, o.TakerGets)
}

// LiquiditySource supplies the graph edges a pathfinder/flow execution
// needs: trust lines reachable from a holder, and the order book for a
// given (in, out) issue pair, best quality first. The concrete
// implementation (reading directory pages out of a view.ReadView) is an
// external collaborator per spec.md §6; this package depends only on the
// interface so it stays testable without a live ledger.
type LiquiditySource interface {
	TrustLines(holder crypto.AccountID, cur IssueKey) ([]TrustLineEdge, error)
	OrderBook(in, out IssueKey) ([]OfferEdge, error)
	// OffersFrom enumerates every offer whose TakerPays issue is in,
	// across all destination issues — the fan-out query the pathfinder
	// needs to discover graph neighbors before it knows which specific
	// (in, out) pair a strand will end up using.
	OffersFrom(in IssueKey) ([]OfferEdge, error)
}
