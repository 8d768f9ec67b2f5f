package txn

import (
	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// TrustLine is the decoded ltRIPPLE_STATE state-map leaf: a bilateral
// credit relationship in one currency between a canonically-ordered pair
// of accounts. Balance is signed from the low account's perspective (a
// positive Balance means the high account owes the low account;
// amount.Amount.Negative true means the low account owes the high
// account), matching rippled's RippleState sign convention.
type TrustLine struct {
	Low, High           crypto.AccountID
	Currency            amount.Currency
	LowLimit, HighLimit amount.Amount // IOU, this currency
	Balance             amount.Amount // IOU, this currency
}

func (t TrustLine) key() crypto.Hash256 { return TrustLineKey(t.Low, t.High, t.Currency) }

func (t TrustLine) toSTObject() (*stobject.STObject, error) {
	return stobject.New(map[string]any{
		"LowAccount":  t.Low,
		"HighAccount": t.High,
		"LowLimit":    t.LowLimit,
		"HighLimit":   t.HighLimit,
		"Balance":     t.Balance,
	})
}

func trustLineFromSTObject(o *stobject.STObject) (TrustLine, error) {
	var t TrustLine
	low, _ := o.Get("LowAccount")
	high, _ := o.Get("HighAccount")
	t.Low = low.(crypto.AccountID)
	t.High = high.(crypto.AccountID)

	if ll, ok := o.Get("LowLimit"); ok {
		t.LowLimit = ll.(amount.Amount)
	}
	if hl, ok := o.Get("HighLimit"); ok {
		t.HighLimit = hl.(amount.Amount)
	}
	if bal, ok := o.Get("Balance"); ok {
		t.Balance = bal.(amount.Amount)
		t.Currency = t.Balance.Currency
	}
	return t, nil
}

// GetTrustLine reads the trust line between a and b in currency cur.
func GetTrustLine(v view.ReadView, a, b crypto.AccountID, cur amount.Currency) (TrustLine, bool, error) {
	item, ok, err := v.Read(TrustLineKey(a, b, cur))
	if err != nil || !ok {
		return TrustLine{}, ok, err
	}
	obj, err := stobject.DecodeBinary(item.Data)
	if err != nil {
		return TrustLine{}, false, err
	}
	t, err := trustLineFromSTObject(obj)
	return t, true, err
}

// PutTrustLine stages t's state-map leaf as created or updated, and keeps
// both parties' owner directories pointing at it.
func PutTrustLine(v *view.ApplyView, t TrustLine) error {
	obj, err := t.toSTObject()
	if err != nil {
		return err
	}
	data, err := obj.EncodeBinary(false)
	if err != nil {
		return err
	}
	key := t.key()
	item := shamap.Item{Key: key, Data: data}
	_, existed, err := v.Read(key)
	if err != nil {
		return err
	}
	if existed {
		v.Update(item)
		return nil
	}
	v.Insert(item)
	if err := dirAddEntry(v, OwnerDirKey(t.Low), key); err != nil {
		return err
	}
	return dirAddEntry(v, OwnerDirKey(t.High), key)
}

// trustSetTransactor implements TrustSet: Account extends up to LimitAmount
// of credit to Destination (the line's counterparty) in LimitAmount's
// currency (spec.md §4.E per-type responsibilities: "field requirements,
// reserve impact" — reserve accounting is left to the ledger-level owner
// count, not modeled per-transaction here).
type trustSetTransactor struct{}

func (trustSetTransactor) Preflight(tx *stobject.STObject) errs.TER {
	limit, ok := tx.Get("LimitAmount")
	if !ok {
		return errs.TemMalformed
	}
	a, ok := limit.(amount.Amount)
	if !ok || a.IsNative {
		return errs.TemBadAmount
	}
	dst, ok := tx.Get("Destination")
	if !ok {
		return errs.TemMalformed
	}
	acct, _ := tx.Get("Account")
	if acct == dst {
		return errs.TemMalformed
	}
	return errs.TesSuccess
}

func (trustSetTransactor) Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER {
	acctField, _ := tx.Get("Account")
	dstField, _ := tx.Get("Destination")
	account := acctField.(crypto.AccountID)
	dst := dstField.(crypto.AccountID)
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

func (trustSetTransactor) Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER {
	acctField, _ := tx.Get("Account")
	dstField, _ := tx.Get("Destination")
	limitField, _ := tx.Get("LimitAmount")
	account := acctField.(crypto.AccountID)
	dst := dstField.(crypto.AccountID)
	limit := limitField.(amount.Amount)

	existing, ok, err := GetTrustLine(v, account, dst, limit.Currency)
	if err != nil {
		return errs.TelLocalError
	}
	if !ok {
		existing = TrustLine{Currency: limit.Currency}
		existing.Low, existing.High = account, dst
		if bytesGreater(account[:], dst[:]) {
			existing.Low, existing.High = dst, account
		}
		zero := amount.Amount{Currency: limit.Currency}
		existing.LowLimit, existing.HighLimit, existing.Balance = zero, zero, zero
	}
	if existing.Low == account {
		existing.LowLimit = limit
	} else {
		existing.HighLimit = limit
	}
	if err := PutTrustLine(v, existing); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}
