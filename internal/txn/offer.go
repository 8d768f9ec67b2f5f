package txn

import (
	"concordd/internal/amount"
	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/internal/stobject"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// Offer is the decoded ltOFFER state-map leaf: an open order to sell
// TakerGets in exchange for TakerPays, owned by Account at sequence Seq
// (spec.md §4.G's OfferEdge, persisted).
type Offer struct {
	Account             crypto.AccountID
	Seq                 uint32
	TakerPays, TakerGets amount.Amount
}

func issueOf(a amount.Amount) issueKey {
	if a.IsNative {
		return issueKey{}
	}
	return issueKey{Currency: a.Currency, Issuer: a.Issuer}
}

func (o Offer) toSTObject() (*stobject.STObject, error) {
	return stobject.New(map[string]any{
		"Account":   o.Account,
		"Sequence":  o.Seq,
		"TakerPays": o.TakerPays,
		"TakerGets": o.TakerGets,
	})
}

func offerFromSTObject(obj *stobject.STObject) (Offer, error) {
	var o Offer
	acct, _ := obj.Get("Account")
	o.Account = acct.(crypto.AccountID)
	if seq, ok := obj.Get("Sequence"); ok {
		o.Seq = seq.(uint32)
	}
	if p, ok := obj.Get("TakerPays"); ok {
		o.TakerPays = p.(amount.Amount)
	}
	if g, ok := obj.Get("TakerGets"); ok {
		o.TakerGets = g.(amount.Amount)
	}
	return o, nil
}

// GetOffer reads the offer owner placed at sequence seq.
func GetOffer(v view.ReadView, owner crypto.AccountID, seq uint32) (Offer, bool, error) {
	item, ok, err := v.Read(OfferKey(owner, seq))
	if err != nil || !ok {
		return Offer{}, ok, err
	}
	obj, err := stobject.DecodeBinary(item.Data)
	if err != nil {
		return Offer{}, false, err
	}
	o, err := offerFromSTObject(obj)
	return o, true, err
}

// PutOffer stages o's creation: the offer leaf, its owner-directory entry,
// and its order-book-by-input-issue entry.
func PutOffer(v *view.ApplyView, o Offer) error {
	obj, err := o.toSTObject()
	if err != nil {
		return err
	}
	data, err := obj.EncodeBinary(false)
	if err != nil {
		return err
	}
	key := OfferKey(o.Account, o.Seq)
	v.Insert(shamap.Item{Key: key, Data: data})
	if err := dirAddEntry(v, OwnerDirKey(o.Account), key); err != nil {
		return err
	}
	return dirAddEntry(v, BookByInKey(issueOf(o.TakerPays)), key)
}

// RemoveOffer stages o's deletion: the offer leaf and both directory
// entries.
func RemoveOffer(v *view.ApplyView, o Offer) error {
	key := OfferKey(o.Account, o.Seq)
	v.Erase(key)
	if err := dirRemoveEntry(v, OwnerDirKey(o.Account), key); err != nil {
		return err
	}
	return dirRemoveEntry(v, BookByInKey(issueOf(o.TakerPays)), key)
}

// offerCreateTransactor implements OfferCreate: places a new offer to sell
// TakerGets for TakerPays. Offer crossing against resting offers (spec.md
// §4.G's offerCrossing flag) is delegated to the Flow engine's own offer
// walk when a Payment strand consumes this offer; OfferCreate itself only
// rests the offer in the book, matching the teacher's liquidity pools
// staying passive data structures that callers query rather than active
// matchers (core/liquidity_pools.go).
type offerCreateTransactor struct{}

func (offerCreateTransactor) Preflight(tx *stobject.STObject) errs.TER {
	pays, ok1 := tx.Get("TakerPays")
	gets, ok2 := tx.Get("TakerGets")
	if !ok1 || !ok2 {
		return errs.TemMalformed
	}
	p, ok := pays.(amount.Amount)
	if !ok || p.Zero() {
		return errs.TemBadAmount
	}
	g, ok := gets.(amount.Amount)
	if !ok || g.Zero() {
		return errs.TemBadAmount
	}
	if p.IsNative && g.IsNative {
		return errs.TemMalformed
	}
	return errs.TesSuccess
}

func (offerCreateTransactor) Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER {
	acctField, _ := tx.Get("Account")
	account := acctField.(crypto.AccountID)
	if _, ok, err := GetAccountRoot(v, account); err != nil {
		return errs.TelLocalError
	} else if !ok {
		return errs.TefPastSeq
	}
	return errs.TesSuccess
}

func (offerCreateTransactor) Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER {
	acctField, _ := tx.Get("Account")
	seqField, _ := tx.Get("Sequence")
	paysField, _ := tx.Get("TakerPays")
	getsField, _ := tx.Get("TakerGets")

	o := Offer{
		Account:   acctField.(crypto.AccountID),
		Seq:       seqField.(uint32),
		TakerPays: paysField.(amount.Amount),
		TakerGets: getsField.(amount.Amount),
	}
	if err := PutOffer(v, o); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}

// offerCancelTransactor implements OfferCancel: removes an open offer the
// sender previously placed.
type offerCancelTransactor struct{}

func (offerCancelTransactor) Preflight(tx *stobject.STObject) errs.TER {
	if _, ok := tx.Get("OfferSequence"); !ok {
		return errs.TemMalformed
	}
	return errs.TesSuccess
}

func (offerCancelTransactor) Preclaim(tx *stobject.STObject, v view.ReadView) errs.TER {
	acctField, _ := tx.Get("Account")
	seqField, _ := tx.Get("OfferSequence")
	account := acctField.(crypto.AccountID)
	seq := seqField.(uint32)
	if _, ok, err := GetOffer(v, account, seq); err != nil {
		return errs.TelLocalError
	} else if !ok {
		return errs.TecNoDst
	}
	return errs.TesSuccess
}

func (offerCancelTransactor) Apply(tx *stobject.STObject, v *view.ApplyView) errs.TER {
	acctField, _ := tx.Get("Account")
	seqField, _ := tx.Get("OfferSequence")
	account := acctField.(crypto.AccountID)
	seq := seqField.(uint32)

	o, ok, err := GetOffer(v, account, seq)
	if err != nil {
		return errs.TelLocalError
	}
	if !ok {
		return errs.TesSuccess // already gone; cancel is idempotent
	}
	if err := RemoveOffer(v, o); err != nil {
		return errs.TelLocalError
	}
	return errs.TesSuccess
}
