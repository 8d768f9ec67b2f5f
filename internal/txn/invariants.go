package txn

import (
	"fmt"

	"concordd/internal/amount"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// maxPossibleDrops bounds a single account's native balance to something
// well short of uint64's wraparound point, catching the failure mode the
// XRP-conservation invariant exists to guard against: a debit that
// underflowed past zero and wrapped into an enormous value (spec.md §4.E
// "no negative balances" — balances are unsigned, so "negative" manifests
// as wraparound, not a sign bit).
const maxPossibleDrops = 1e17 // 100 billion reference units, ample headroom above any real total

// checkInvariants re-derives spec.md §4.E's post-apply invariants from the
// set of state-map leaves a transaction touched. It runs after every
// transaction, successful or tec, since a tec result still commits its fee
// debit and sequence advance.
func checkInvariants(v *view.ApplyView) error {
	for _, item := range v.Touched() {
		obj, err := stobject.DecodeBinary(item.Data)
		if err != nil {
			// Not a self-describing object leaf (e.g. a raw directory
			// page); fall through to the directory-specific check below.
			if entries, ok := view.DecodeDirPage(item.Data); ok {
				if err := checkNoDuplicateDirEntries(entries); err != nil {
					return err
				}
			}
			continue
		}

		if _, hasTakerPays := obj.Get("TakerPays"); hasTakerPays {
			if err := checkOfferInvariant(obj); err != nil {
				return err
			}
			continue
		}
		if _, hasBalance := obj.Get("Balance"); hasBalance {
			if err := checkAccountRootInvariant(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkAccountRootInvariant(obj *stobject.STObject) error {
	balField, _ := obj.Get("Balance")
	bal := balField.(amount.Amount)
	if !bal.IsNative {
		return nil
	}
	if bal.Drops > maxPossibleDrops {
		return &errs.Invariant{Name: "xrpConservation", Detail: fmt.Sprintf("balance %d exceeds plausible bound, likely underflow", bal.Drops)}
	}
	return nil
}

func checkOfferInvariant(obj *stobject.STObject) error {
	paysField, _ := obj.Get("TakerPays")
	getsField, _ := obj.Get("TakerGets")
	pays := paysField.(amount.Amount)
	gets := getsField.(amount.Amount)

	if pays.Zero() || gets.Zero() {
		return &errs.Invariant{Name: "offerAmountsPositive", Detail: "TakerPays and TakerGets must both be nonzero"}
	}
	if pays.IsNative == gets.IsNative {
		if pays.IsNative || (pays.Currency == gets.Currency && pays.Issuer == gets.Issuer) {
			return &errs.Invariant{Name: "offerCurrenciesDistinct", Detail: "TakerPays and TakerGets must be distinct currencies"}
		}
	}
	return nil
}

func checkNoDuplicateDirEntries(entries [][]byte) error {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		k := string(e)
		if seen[k] {
			return &errs.Invariant{Name: "noDuplicateDirEntries", Detail: "directory page contains a repeated entry"}
		}
		seen[k] = true
	}
	return nil
}
