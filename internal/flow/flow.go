package flow

import (
	"math/big"

	"concordd/pkg/errs"
)

// DefaultMaxOffersConsumed bounds how many unfunded/partially-funded
// offers a single payment may walk past before giving up (spec.md §4.G).
const DefaultMaxOffersConsumed = 1000

// Options are the per-transaction flags Flow honors (spec.md §4.G).
type Options struct {
	PartialPayment    bool
	SendMax           *big.Rat // nil = unbounded (destination currency delivery only)
	DeliverMin        *big.Rat // nil = no floor beyond the requested amount
	LimitQuality      *big.Rat // nil = no ceiling
	MaxOffersConsumed int      // 0 => DefaultMaxOffersConsumed
}

// Result is the outcome of a Flow execution.
type Result struct {
	Delivered      *big.Rat
	SourceDebited  *big.Rat
	OffersConsumed int
}

// Execute realizes a payment of target units against paths, trying the
// best-ranked path first and falling back to the next when one strand
// runs dry, until the target is delivered or no further progress is made
// (spec.md §4.G). Arithmetic throughout is exact big.Rat; callers convert
// the result to amount.Amount with banker's rounding via RoundHalfEven.
func Execute(paths []Path, target *big.Rat, opts Options, ls LiquiditySource) (Result, error) {
	maxOffers := opts.MaxOffersConsumed
	if maxOffers <= 0 {
		maxOffers = DefaultMaxOffersConsumed
	}

	delivered := new(big.Rat)
	debited := new(big.Rat)
	sendMaxBudget := opts.SendMax
	offersConsumed := 0

	for _, p := range paths {
		if delivered.Cmp(target) >= 0 {
			break
		}
		if offersConsumed >= maxOffers {
			break
		}
		remaining := new(big.Rat).Sub(target, delivered)

		hops, err := hopsOf(p, ls)
		if err != nil {
			continue
		}
		reqIn, maxDeliverable := reversePass(hops, remaining)
		if maxDeliverable.Sign() <= 0 {
			continue
		}
		if opts.LimitQuality != nil && maxDeliverable.Sign() > 0 {
			quality := new(big.Rat).Quo(reqIn, maxDeliverable)
			if quality.Cmp(opts.LimitQuality) > 0 {
				continue
			}
		}

		availableIn := reqIn
		if sendMaxBudget != nil {
			budgetLeft := new(big.Rat).Sub(sendMaxBudget, debited)
			if budgetLeft.Sign() <= 0 {
				break
			}
			if availableIn.Cmp(budgetLeft) > 0 {
				availableIn = budgetLeft
			}
		}
		if availableIn.Sign() <= 0 {
			continue
		}

		actualDelivered := forwardPass(hops, availableIn)
		if actualDelivered.Sign() <= 0 {
			continue
		}
		delivered.Add(delivered, actualDelivered)
		debited.Add(debited, availableIn)
		for _, h := range hops {
			if h.isBook {
				offersConsumed++
			}
		}
	}

	if delivered.Cmp(target) < 0 && !opts.PartialPayment {
		return Result{}, errs.TecPathDry
	}
	if opts.DeliverMin != nil && delivered.Cmp(opts.DeliverMin) < 0 {
		return Result{}, errs.TecPathDry
	}

	return Result{Delivered: delivered, SourceDebited: debited, OffersConsumed: offersConsumed}, nil
}

// RoundHalfEven rounds r to the nearest integer, ties to even — the
// banker's rounding spec.md §4.G requires so that no step's rounding
// direction systematically manufactures value for the sender.
func RoundHalfEven(r *big.Rat) *big.Int {
	num, den := r.Num(), r.Denom()
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() == 0 {
		return q
	}
	twiceRem := new(big.Int).Mul(rem, big.NewInt(2))
	twiceRem.Abs(twiceRem)
	cmp := twiceRem.Cmp(den)
	switch {
	case cmp < 0:
		return q
	case cmp > 0:
		return bumpAwayFromZero(q, r.Sign())
	default:
		if new(big.Int).And(q, big.NewInt(1)).Sign() == 0 {
			return q
		}
		return bumpAwayFromZero(q, r.Sign())
	}
}

func bumpAwayFromZero(q *big.Int, sign int) *big.Int {
	if sign < 0 {
		return new(big.Int).Sub(q, big.NewInt(1))
	}
	return new(big.Int).Add(q, big.NewInt(1))
}
