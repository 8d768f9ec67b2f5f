package txn

import (
	"concordd/internal/crypto"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// setRegularKeyTransactor implements SetRegularKey: lets an account
// delegate signing authority to a separate regular key, or revoke it by
// submitting the zero AccountID (spec.md §4.E auth rules: "regular key"
// is one of the three signer-authorization paths named alongside master
// key and signer-list quorum).
type setRegularKeyTransactor struct{}

func (setRegularKeyTransactor) Preflight(tx *stobject.STObject) errs.TER {
	acctField, _ := tx.Get("Account")
	account, ok := acctField.(crypto.AccountID)
	if !ok {
		return errs.TemMalformed
	}
	if rk, ok := tx.Get("RegularKey"); ok {
		if rk.(crypto.AccountID) == account {
			return errs.TemMalformed
		}
	}
	return errs.TesSuccess
}

func (setRegularKeyTransactor) Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER {
	acctField, _ := tx.Get("Account")
	account := acctField.(crypto.AccountID)
	if _, ok, err := GetAccountRoot(v, account); err != nil {
		return errs.TelLocalError
	} else if !ok {
		return errs.TefPastSeq
	}
	return errs.TesSuccess
}

func (setRegularKeyTransactor) Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER {
	acctField, _ := tx.Get("Account")
	account := acctField.(crypto.AccountID)

	root, ok, err := GetAccountRoot(v, account)
	if err != nil {
		return errs.TelLocalError
	}
	if !ok {
		return errs.TecNoDst
	}
	root.RegularKey = crypto.AccountID{} // default: revoke
	if rk, ok := tx.Get("RegularKey"); ok {
		root.RegularKey = rk.(crypto.AccountID)
	}
	if err := PutAccountRoot(v, root); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}
