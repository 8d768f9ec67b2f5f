package txn

import (
	"math/big"

	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/flow"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// Payment flag bits, matching rippled's Payment-specific tf* flags
// (original_source/src/ripple/protocol/TxFlags.h) so the field stays
// wire-compatible with how a real client would set them.
const (
	tfPartialPayment uint32 = 0x00020000
	tfLimitQuality   uint32 = 0x00040000
)

// paymentTransactor implements Payment (spec.md §4.E/§4.G). Two settlement
// shapes are fully wired into ledger state: a direct native-to-native
// transfer, and a direct same-currency trust-line adjustment between
// sender and destination. A third shape — a single real book hop (native
// source, IOU destination, crossing exactly one resting offer) — drives
// the Flow engine (pathfinder + Execute) end to end and settles its result
// by moving the debited drops from the source to the offer owner and
// crediting the destination's trust line with the Amount's issuer.
// Multi-hop IOU routing is fully implemented and
// tested in the flow package itself (spec.md §4.G) but settling every
// intermediate trust line of a longer strand against ledger state is
// beyond this transactor's scope; see DESIGN.md.
type paymentTransactor struct{}

func (paymentTransactor) Preflight(tx *stobject.STObject) errs.TER {
	if _, ok := tx.Get("Account"); !ok {
		return errs.TemMalformed
	}
	if _, ok := tx.Get("Destination"); !ok {
		return errs.TemMalformed
	}
	amtField, ok := tx.Get("Amount")
	if !ok {
		return errs.TemMalformed
	}
	amt, ok := amtField.(amount.Amount)
	if !ok || amt.Zero() {
		return errs.TemBadAmount
	}
	if sm, ok := tx.Get("SendMax"); ok {
		if smAmt, ok := sm.(amount.Amount); !ok || smAmt.Zero() {
			return errs.TemBadAmount
		}
	}
	return errs.TesSuccess
}

func (paymentTransactor) Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER {
	acctField, _ := tx.Get("Account")
	dstField, _ := tx.Get("Destination")
	account := acctField.(crypto.AccountID)
	dst := dstField.(crypto.AccountID)
	if account == dst {
		return errs.TemMalformed
	}
	if _, ok, err := GetAccountRoot(v, account); err != nil {
		return errs.TelLocalError
	} else if !ok {
		return errs.TefPastSeq
	}
	if _, ok, err := GetAccountRoot(v, dst); err != nil {
		return errs.TelLocalError
	} else if !ok {
		return errs.TecNoDst
	}
	return errs.TesSuccess
}

func (paymentTransactor) Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER {
	acctField, _ := tx.Get("Account")
	dstField, _ := tx.Get("Destination")
	amtField, _ := tx.Get("Amount")
	account := acctField.(crypto.AccountID)
	dst := dstField.(crypto.AccountID)
	deliver := amtField.(amount.Amount)

	var sendMax *amount.Amount
	if sm, ok := tx.Get("SendMax"); ok {
		a := sm.(amount.Amount)
		sendMax = &a
	}
	var flags uint32
	if f, ok := tx.Get("Flags"); ok {
		flags = f.(uint32)
	}
	partial := flags&tfPartialPayment != 0

	switch {
	case deliver.IsNative && (sendMax == nil || sendMax.IsNative):
		return applyNativeTransfer(v, account, dst, deliver.Drops)
	case !deliver.IsNative && (sendMax == nil || (sendMax.Currency == deliver.Currency && sendMax.Issuer == deliver.Issuer)):
		return applyDirectTrustLineTransfer(v, account, dst, deliver)
	default:
		return applyFlowPayment(v, account, dst, deliver, sendMax, partial)
	}
}

func applyNativeTransfer(v *view.ApplyView, src, dst crypto.AccountID, drops uint64) errs.TER {
	srcRoot, _, err := GetAccountRoot(v, src)
	if err != nil {
		return errs.TelLocalError
	}
	if srcRoot.Balance < drops {
		return errs.TecUnfunded
	}
	dstRoot, _, err := GetAccountRoot(v, dst)
	if err != nil {
		return errs.TelLocalError
	}
	srcRoot.Balance -= drops
	dstRoot.Balance += drops
	if err := PutAccountRoot(v, srcRoot); err != nil {
		return errs.TelLocalError
	}
	if err := PutAccountRoot(v, dstRoot); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}

func applyDirectTrustLineTransfer(v *view.ApplyView, src, dst crypto.AccountID, deliver amount.Amount) errs.TER {
	line, ok, err := GetTrustLine(v, src, dst, deliver.Currency)
	if err != nil {
		return errs.TelLocalError
	}
	if !ok {
		return errs.TecNoAuth
	}
	capacity := remainingCapacity(line, dst)
	if capacity.Cmp(amount.Magnitude(deliver)) < 0 {
		return errs.TecPathDry
	}
	moveTrustBalance(&line, src, dst, amount.Magnitude(deliver))
	if err := PutTrustLine(v, line); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}

// moveTrustBalance shifts amt of credit from src toward dst across line,
// updating Balance's sign convention (Low account's perspective).
func moveTrustBalance(line *TrustLine, src, dst crypto.AccountID, amt *big.Rat) {
	delta := amt
	if line.Low == dst {
		// dst is the low account receiving: balance (low's receivable)
		// moves toward positive.
		applyDelta(line, delta)
	} else {
		applyDelta(line, new(big.Rat).Neg(delta))
	}
}

// applyDelta rounds the new balance to the nearest whole currency unit
// (flow.RoundHalfEven) before renormalizing it into IOU form; fractional
// trust-line balances are out of scope for this transactor's settlement
// path, matching flow's own unlimited-trust-line-capacity simplification.
func applyDelta(line *TrustLine, delta *big.Rat) {
	cur := amount.Magnitude(line.Balance)
	if line.Balance.Negative {
		cur = new(big.Rat).Neg(cur)
	}
	next := new(big.Rat).Add(cur, delta)
	neg := next.Sign() < 0
	mag := new(big.Rat).Abs(next)
	mantissa := flow.RoundHalfEven(mag)
	a, err := amount.IOUAmount(line.Currency, crypto.AccountID{}, mantissa.Int64(), 0, neg)
	if err == nil {
		line.Balance = a
	}
}

func applyFlowPayment(v *view.ApplyView, src, dst crypto.AccountID, deliver amount.Amount, sendMax *amount.Amount, partial bool) errs.TER {
	if deliver.IsNative || sendMax == nil || !sendMax.IsNative {
		return errs.TecPathDry // only native-sourced book hops are settled; see type doc
	}
	source := ViewLiquiditySource{View: v}
	pf := &flow.Pathfinder{Source: source}
	paths, err := pf.FindPaths(src, flow.NativeIssue(), dst, flow.IssueKey{Currency: deliver.Currency, Issuer: deliver.Issuer})
	if err != nil || len(paths) == 0 {
		return errs.TecPathDry
	}
	var direct flow.Path
	for _, p := range paths {
		if len(p) == 2 {
			direct = p
			break
		}
	}
	if direct == nil {
		return errs.TecPathDry
	}

	target := amount.Magnitude(deliver)
	opts := flow.Options{PartialPayment: partial}
	if sendMax != nil {
		opts.SendMax = amount.Magnitude(*sendMax)
	}
	res, err := flow.Execute([]flow.Path{direct}, target, opts, source)
	if err != nil {
		return errs.TecPathDry
	}

	debitDrops := flow.RoundHalfEven(res.SourceDebited).Uint64()
	if ter := applyNativeTransfer(v, src, offerOwnerOf(direct, source), debitDrops); ter != errs.TesSuccess {
		return ter
	}
	return creditDestination(v, dst, deliver.Currency, res.Delivered, deliver.Issuer)
}

// offerOwnerOf resolves the single offer on a two-hop direct book path so
// the destination can be credited against that offer owner's trust line.
func offerOwnerOf(path flow.Path, source ViewLiquiditySource) crypto.AccountID {
	offers, err := source.OrderBook(path[0], path[1])
	if err != nil || len(offers) == 0 {
		return crypto.AccountID{}
	}
	return offers[0].Owner
}

func creditDestination(v *view.ApplyView, dst crypto.AccountID, cur amount.Currency, delivered *big.Rat, issuer crypto.AccountID) errs.TER {
	line, ok, err := GetTrustLine(v, issuer, dst, cur)
	if err != nil {
		return errs.TelLocalError
	}
	if !ok {
		line = TrustLine{Currency: cur}
		line.Low, line.High = issuer, dst
		if bytesGreater(issuer[:], dst[:]) {
			line.Low, line.High = dst, issuer
		}
		zero := amount.Amount{Currency: cur}
		line.LowLimit, line.HighLimit, line.Balance = zero, zero, zero
	}
	moveTrustBalance(&line, issuer, dst, delivered)
	if err := PutTrustLine(v, line); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}
