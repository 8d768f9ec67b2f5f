package stobject

import "concordd/internal/crypto"

// SigningPrehash returns the domain-separated pre-image hashed for a
// single-signer signature: hash(txSign-prefix ‖ signing-fields), per
// spec.md §4.B.
func (o *STObject) SigningPrehash() (crypto.Hash256, error) {
	body, err := o.EncodeBinary(true)
	if err != nil {
		return crypto.Hash256{}, err
	}
	return crypto.Hash256Prefixed(crypto.PrefixTxSign, body), nil
}

// MultiSigningPrehash returns the domain-separated pre-image for one
// signer's contribution to a multi-signed transaction: the txMultiSign
// prefix is used instead of txSign, and the signer's AccountID is appended
// to the signing-field body (spec.md §4.B).
func (o *STObject) MultiSigningPrehash(signer crypto.AccountID) (crypto.Hash256, error) {
	body, err := o.EncodeBinary(true)
	if err != nil {
		return crypto.Hash256{}, err
	}
	return crypto.Hash256Prefixed(crypto.PrefixTxMultiSign, body, signer[:]), nil
}

// TxID returns the transaction identifier hash: hash(transactionID-prefix ‖
// full signed binary), per spec.md §3.
func (o *STObject) TxID() (crypto.Hash256, error) {
	body, err := o.EncodeBinary(false)
	if err != nil {
		return crypto.Hash256{}, err
	}
	return crypto.Hash256Prefixed(crypto.PrefixTransactionID, body), nil
}
