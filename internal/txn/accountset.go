package txn

import (
	"concordd/internal/crypto"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// accountSetTransactor implements AccountSet: toggles account flag bits
// via SetFlag/ClearFlag (spec.md §4.E per-type responsibilities). Only one
// of SetFlag/ClearFlag is legal per transaction, the way rippled's
// AccountSet rejects setting and clearing the same class of flag at once.
type accountSetTransactor struct{}

func (accountSetTransactor) Preflight(tx *stobject.STObject) errs.TER {
	_, hasSet := tx.Get("SetFlag")
	_, hasClear := tx.Get("ClearFlag")
	if !hasSet && !hasClear {
		return errs.TemMalformed
	}
	if hasSet && hasClear {
		return errs.TemInvalidFlag
	}
	return errs.TesSuccess
}

func (accountSetTransactor) Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER {
	acctField, _ := tx.Get("Account")
	account := acctField.(crypto.AccountID)
	if _, ok, err := GetAccountRoot(v, account); err != nil {
		return errs.TelLocalError
	} else if !ok {
		return errs.TefPastSeq
	}
	return errs.TesSuccess
}

func (accountSetTransactor) Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER {
	acctField, _ := tx.Get("Account")
	account := acctField.(crypto.AccountID)

	root, ok, err := GetAccountRoot(v, account)
	if err != nil {
		return errs.TelLocalError
	}
	if !ok {
		return errs.TecNoDst
	}
	if setFlag, ok := tx.Get("SetFlag"); ok {
		root.Flags |= uint32(1) << (setFlag.(uint32) % 32)
	}
	if clearFlag, ok := tx.Get("ClearFlag"); ok {
		root.Flags &^= uint32(1) << (clearFlag.(uint32) % 32)
	}
	if err := PutAccountRoot(v, root); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}
