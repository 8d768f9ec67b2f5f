package txn

import (
	"fmt"

	"concordd/internal/crypto"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// TxType enumerates every transaction type spec.md §4.E names. Only
// Payment, OfferCreate, OfferCancel, TrustSet, AccountSet, and
// SetRegularKey have a full transactor; the rest are declared here so the
// dispatch table is complete and route through stubTransactor, the way the
// teacher's closed TxType-like enum (core/tx_types_nontokens.go) dispatches
// every declared type through one switch even before every case is built
// out.
type TxType uint16

const (
	TxPayment TxType = iota + 1
	TxOfferCreate
	TxOfferCancel
	TxTrustSet
	TxAccountSet
	TxSetRegularKey
	TxSignerListSet
	TxEscrowCreate
	TxEscrowFinish
	TxEscrowCancel
	TxPayChanCreate
	TxPayChanFund
	TxPayChanClaim
	TxCheckCreate
	TxCheckCash
	TxCheckCancel
	TxDepositPreauth
	TxTicketCreate
	TxAmendment
	TxFee
)

// Transactor implements the three-stage pipeline spec.md §4.E requires for
// one transaction type.
type Transactor interface {
	// Preflight performs stateless validation: signature presence,
	// well-formedness, legal flag combinations, non-negative amounts, fee
	// floor. Never touches a view.
	Preflight(tx *stobject.STObject) errs.TER
	// Preclaim performs read-only validation against a sealed view:
	// account existence, sequence match, authorization.
	Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER
	// Apply executes the type-specific effects against a mutating view.
	// The fee has already been deducted and the source sequence advanced
	// by the time Apply runs; Apply is responsible only for its own
	// effects. On a tec-class return the caller discards every effect
	// Apply staged in its sandbox; only the fee debit and sequence advance
	// already charged by the caller remain.
	Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER
}

var registry = map[TxType]Transactor{
	TxPayment:       paymentTransactor{},
	TxOfferCreate:   offerCreateTransactor{},
	TxOfferCancel:   offerCancelTransactor{},
	TxTrustSet:      trustSetTransactor{},
	TxAccountSet:    accountSetTransactor{},
	TxSetRegularKey: setRegularKeyTransactor{},
}

// stubTransactor answers every stage with temDISABLED for a TxType spec.md
// §4.E names but this repo does not yet implement, so the dispatch table
// covers the full enum without a panic on unknown types.
type stubTransactor struct{}

func (stubTransactor) Preflight(*stobject.STObject) errs.TER               { return errs.TemDisabled }
func (stubTransactor) Preclaim(*stobject.STObject, view.ReadView) errs.TER { return errs.TemDisabled }
func (stubTransactor) Apply(*stobject.STObject, *view.ApplyView) errs.TER  { return errs.TemDisabled }

func transactorFor(t TxType) Transactor {
	if tr, ok := registry[t]; ok {
		return tr
	}
	return stubTransactor{}
}

// Outcome is the result of running a transaction through the full pipeline.
type Outcome struct {
	TER        errs.TER
	FeeCharged uint64
}

// Apply runs tx (of type txType, requesting feeDrops) through preflight,
// preclaim, and apply against v, per spec.md §4.E stage 3: "deduct fee →
// execute type-specific effects → run invariant checks → return outcome
// TER". The type-specific effects run in a Sandbox so a tec/tef/ter outcome
// can be discarded without unwinding the fee debit and sequence advance,
// which apply unconditionally once preclaim has succeeded (a transaction
// that reaches the ledger at all always pays its fee, per spec.md §4.E:
// "tec claimed: applied, fee taken, effects void").
//
// An invariant violation is reported as an error, not a TER, matching
// spec.md §7's "fatal logic errors... trigger a controlled abort of the
// current ledger build" — the caller (the ledger closing pipeline) must
// stop building this ledger rather than treat it as an ordinary rejected
// transaction.
func Apply(tx *stobject.STObject, txType TxType, account crypto.AccountID, feeDrops uint64, v *view.ApplyView) (Outcome, error) {
	tr := transactorFor(txType)

	if ter := tr.Preflight(tx); !ter.Succeeded() {
		return Outcome{TER: ter}, nil
	}
	if ter := tr.Preclaim(tx, v); !ter.Succeeded() {
		return Outcome{TER: ter}, nil
	}

	root, ok, err := GetAccountRoot(v, account)
	if err != nil {
		return Outcome{}, fmt.Errorf("txn: read account root: %w", err)
	}
	if !ok {
		return Outcome{TER: errs.TecNoDst}, nil
	}
	if root.Balance < feeDrops {
		return Outcome{TER: errs.TecInsufFee}, nil
	}
	root.Balance -= feeDrops
	root.Sequence++
	if err := PutAccountRoot(v, root); err != nil {
		return Outcome{}, fmt.Errorf("txn: debit fee: %w", err)
	}
	v.DestroyXRP(feeDrops)

	sandbox := view.NewSandbox(v)
	ter := tr.Apply(tx, sandbox)
	if ter.Class == errs.ClassTes {
		sandbox.Apply(v)
	}

	if err := checkInvariants(v); err != nil {
		return Outcome{}, err
	}

	return Outcome{TER: ter, FeeCharged: feeDrops}, nil
}

// Order sorts txHashes into the canonical per-ledger apply order: ascending
// by each transaction's hash XORed with the parent ledger's hash, so the
// order is fully determined by the ledger being built (replay-deterministic)
// but unpredictable to anyone before the parent ledger hash is known
// (spec.md §4.E: "preventing position-gaming").
func Order(parentHash crypto.Hash256, txHashes []crypto.Hash256) []crypto.Hash256 {
	out := make([]crypto.Hash256, len(txHashes))
	copy(out, txHashes)
	salted := make([]crypto.Hash256, len(out))
	for i, h := range out {
		salted[i] = xorHash(h, parentHash)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(salted[j], salted[j-1]); j-- {
			salted[j], salted[j-1] = salted[j-1], salted[j]
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func xorHash(a, b crypto.Hash256) crypto.Hash256 {
	var out crypto.Hash256
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func less(a, b crypto.Hash256) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
