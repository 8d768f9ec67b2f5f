package flow

import "math/big"

// hop is one edge of a flattened path: moving liquidity from "in" to
// "out". A direct step keeps the same currency (trust-line rebalancing,
// quality 1); a book step changes currency through an order-book offer.
type hop struct {
	in, out  IssueKey
	isBook   bool
	quality  *big.Rat // in-units per out-unit; 1 for a direct step
	capacity *big.Rat // max out-units this hop can currently supply
}

// unlimitedCapacity stands in for a direct step's trust-line capacity,
// which this package treats as unbounded — a scope simplification
// recorded in DESIGN.md; a full implementation would size it from the
// counterparty's trust limit and current balance.
var unlimitedCapacity = big.NewRat(1<<62, 1)

func hopsOf(path Path, ls LiquiditySource) ([]hop, error) {
	hops := make([]hop, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		in, out := path[i], path[i+1]
		if in.Currency == out.Currency {
			hops = append(hops, hop{in: in, out: out, quality: big.NewRat(1, 1), capacity: unlimitedCapacity})
			continue
		}
		offers, err := ls.OrderBook(in, out)
		if err != nil {
			return nil, err
		}
		if len(offers) == 0 {
			hops = append(hops, hop{in: in, out: out, isBook: true, quality: big.NewRat(1, 1), capacity: big.NewRat(0, 1)})
			continue
		}
		best := offers[0]
		hops = append(hops, hop{in: in, out: out, isBook: true, quality: best.quality(), capacity: best.TakerGets})
	}
	return hops, nil
}

// reversePass sizes the strand: starting from the amount still needed at
// the destination, it walks hops back-to-front applying each hop's
// quality and clamping to its capacity, returning both the source-side
// input this strand requires and the destination-side amount it can
// actually deliver (spec.md §4.G).
func reversePass(hops []hop, targetOut *big.Rat) (requiredIn, deliverable *big.Rat) {
	out := new(big.Rat).Set(targetOut)
	for i := len(hops) - 1; i >= 0; i-- {
		h := hops[i]
		if out.Cmp(h.capacity) > 0 {
			out = new(big.Rat).Set(h.capacity)
		}
		out = new(big.Rat).Mul(out, h.quality)
	}
	// out is now the required input at the first hop; deliverable is
	// derived by re-running forward from that input.
	in := out
	deliverable = forwardPass(hops, in)
	return in, deliverable
}

// forwardPass realizes availableIn against actual liquidity, applying
// each hop's quality in source-to-destination order (spec.md §4.G). It
// assumes availableIn does not exceed the capacity-bounded input
// reversePass computed for the same hops, so no further capacity checks
// are needed here.
func forwardPass(hops []hop, availableIn *big.Rat) *big.Rat {
	cur := new(big.Rat).Set(availableIn)
	for _, h := range hops {
		cur = new(big.Rat).Quo(cur, h.quality)
	}
	return cur
}
