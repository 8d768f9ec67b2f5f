package txn

import (
	"fmt"

	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/internal/stobject"
	"concordd/internal/view"
)

// AccountRoot is the decoded form of an ltACCOUNT_ROOT state-map leaf: an
// account's native balance, next sequence number, optional regular key, and
// flags (spec.md §4.E AccountSet/SetRegularKey responsibilities). State-map
// leaves are themselves STObjects, the same self-describing format
// transactions use (spec.md §4.B); AccountRoot is a typed view over one.
type AccountRoot struct {
	Account    crypto.AccountID
	Balance    uint64 // drops
	Sequence   uint32
	RegularKey crypto.AccountID // zero value means "unset"
	Flags      uint32
}

func (a AccountRoot) toSTObject() (*stobject.STObject, error) {
	fields := map[string]any{
		"Account":  a.Account,
		"Balance":  amount.NativeAmount(a.Balance),
		"Sequence": a.Sequence,
		"Flags":    a.Flags,
	}
	if a.RegularKey != (crypto.AccountID{}) {
		fields["RegularKey"] = a.RegularKey
	}
	return stobject.New(fields)
}

func accountRootFromSTObject(o *stobject.STObject) (AccountRoot, error) {
	var a AccountRoot
	acct, ok := o.Get("Account")
	if !ok {
		return AccountRoot{}, fmt.Errorf("txn: account root missing Account field")
	}
	a.Account = acct.(crypto.AccountID)

	bal, ok := o.Get("Balance")
	if !ok {
		return AccountRoot{}, fmt.Errorf("txn: account root missing Balance field")
	}
	amt := bal.(amount.Amount)
	if !amt.IsNative {
		return AccountRoot{}, fmt.Errorf("txn: account root Balance must be native")
	}
	a.Balance = amt.Drops

	if seq, ok := o.Get("Sequence"); ok {
		a.Sequence = seq.(uint32)
	}
	if flags, ok := o.Get("Flags"); ok {
		a.Flags = flags.(uint32)
	}
	if rk, ok := o.Get("RegularKey"); ok {
		a.RegularKey = rk.(crypto.AccountID)
	}
	return a, nil
}

// GetAccountRoot reads and decodes account's root entry from v, reporting
// ok=false if the account does not exist.
func GetAccountRoot(v view.ReadView, account crypto.AccountID) (AccountRoot, bool, error) {
	item, ok, err := v.Read(AccountRootKey(account))
	if err != nil || !ok {
		return AccountRoot{}, ok, err
	}
	obj, err := stobject.DecodeBinary(item.Data)
	if err != nil {
		return AccountRoot{}, false, err
	}
	root, err := accountRootFromSTObject(obj)
	return root, true, err
}

// PutAccountRoot stages a.Account's root entry as created or updated in v,
// depending on whether it already exists.
func PutAccountRoot(v *view.ApplyView, a AccountRoot) error {
	obj, err := a.toSTObject()
	if err != nil {
		return err
	}
	data, err := obj.EncodeBinary(false)
	if err != nil {
		return err
	}
	key := AccountRootKey(a.Account)
	item := shamap.Item{Key: key, Data: data}
	if _, ok, err := v.Read(key); err != nil {
		return err
	} else if ok {
		v.Update(item)
	} else {
		v.Insert(item)
	}
	return nil
}
