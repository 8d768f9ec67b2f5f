// Package stobject implements the canonical self-describing serializer
// (spec.md §4.B): each field is encoded as (type_code, field_code, value),
// wire order is ascending by (type_code, field_code), and two per-field
// toggle bits decide signing-inclusion and JSON-inclusion. Binary encoding
// is resolved against rippled's STObject/SField machinery
// (original_source/src/ripple/protocol), since the teacher repo serializes
// everything as plain encoding/json (core/ledger.go) and has no
// self-describing typed-field format to imitate directly.
package stobject

import "sort"

// FieldType is the type_code half of a field's (type_code, field_code) id.
type FieldType uint16

const (
	TypeUInt8    FieldType = 16
	TypeUInt16   FieldType = 1
	TypeUInt32   FieldType = 2
	TypeUInt64   FieldType = 3
	TypeHash128  FieldType = 4
	TypeHash256  FieldType = 5
	TypeAmount   FieldType = 6
	TypeBlob     FieldType = 7
	TypeAccount  FieldType = 8
	TypeObject   FieldType = 14
	TypeArray    FieldType = 15
)

// FieldDef describes one reserved field code (spec.md §4.B: "reserved field
// codes exist for the standard fields").
type FieldDef struct {
	Name         string
	Type         FieldType
	Code         uint16
	SigningField bool // included in the pre-image hashed for signing
	JSONField    bool // included in canonical JSON
}

// id packs (Type, Code) into a single sortable value; wire/JSON field order
// is ascending by this id (spec.md §4.B).
func (f FieldDef) id() uint32 { return uint32(f.Type)<<16 | uint32(f.Code) }

// registry holds every reserved field. SigningPubKey is included in
// single-sign payloads; TxnSignature is excluded from the signing pre-hash
// (spec.md §4.B) — encoded directly in their SigningField bits below.
var registry = map[string]FieldDef{
	"TransactionType": {Name: "TransactionType", Type: TypeUInt16, Code: 2, SigningField: true, JSONField: true},
	"Flags":           {Name: "Flags", Type: TypeUInt32, Code: 2, SigningField: true, JSONField: true},
	"Sequence":        {Name: "Sequence", Type: TypeUInt32, Code: 4, SigningField: true, JSONField: true},
	"LedgerSequence":  {Name: "LedgerSequence", Type: TypeUInt32, Code: 5, SigningField: false, JSONField: true},
	"CloseTime":       {Name: "CloseTime", Type: TypeUInt32, Code: 6, SigningField: false, JSONField: true},
	"ExpirationTime":  {Name: "ExpirationTime", Type: TypeUInt32, Code: 10, SigningField: true, JSONField: true},
	"OfferSequence":   {Name: "OfferSequence", Type: TypeUInt32, Code: 11, SigningField: true, JSONField: true},
	"SetFlag":         {Name: "SetFlag", Type: TypeUInt32, Code: 21, SigningField: true, JSONField: true},
	"ClearFlag":       {Name: "ClearFlag", Type: TypeUInt32, Code: 22, SigningField: true, JSONField: true},

	"Amount":      {Name: "Amount", Type: TypeAmount, Code: 1, SigningField: true, JSONField: true},
	"Fee":         {Name: "Fee", Type: TypeAmount, Code: 8, SigningField: true, JSONField: true},
	"SendMax":     {Name: "SendMax", Type: TypeAmount, Code: 9, SigningField: true, JSONField: true},
	"DeliverMin":  {Name: "DeliverMin", Type: TypeAmount, Code: 10, SigningField: true, JSONField: true},
	"TakerPays":   {Name: "TakerPays", Type: TypeAmount, Code: 4, SigningField: true, JSONField: true},
	"TakerGets":   {Name: "TakerGets", Type: TypeAmount, Code: 5, SigningField: true, JSONField: true},
	"LimitAmount": {Name: "LimitAmount", Type: TypeAmount, Code: 2, SigningField: true, JSONField: true},
	"Balance":     {Name: "Balance", Type: TypeAmount, Code: 3, SigningField: false, JSONField: true},
	"LowLimit":    {Name: "LowLimit", Type: TypeAmount, Code: 6, SigningField: false, JSONField: true},
	"HighLimit":   {Name: "HighLimit", Type: TypeAmount, Code: 7, SigningField: false, JSONField: true},

	"SigningPubKey": {Name: "SigningPubKey", Type: TypeBlob, Code: 3, SigningField: true, JSONField: true},
	"TxnSignature":  {Name: "TxnSignature", Type: TypeBlob, Code: 4, SigningField: false, JSONField: true},
	"Memo":          {Name: "Memo", Type: TypeBlob, Code: 10, SigningField: true, JSONField: true},

	"Account":     {Name: "Account", Type: TypeAccount, Code: 1, SigningField: true, JSONField: true},
	"Destination": {Name: "Destination", Type: TypeAccount, Code: 3, SigningField: true, JSONField: true},
	"Owner":       {Name: "Owner", Type: TypeAccount, Code: 4, SigningField: true, JSONField: true},
	"RegularKey":  {Name: "RegularKey", Type: TypeAccount, Code: 8, SigningField: true, JSONField: true},
	"LowAccount":  {Name: "LowAccount", Type: TypeAccount, Code: 9, SigningField: false, JSONField: true},
	"HighAccount": {Name: "HighAccount", Type: TypeAccount, Code: 10, SigningField: false, JSONField: true},

	"PreviousTxnID": {Name: "PreviousTxnID", Type: TypeHash256, Code: 5, SigningField: false, JSONField: true},
	"AccountTxnID":  {Name: "AccountTxnID", Type: TypeHash256, Code: 9, SigningField: true, JSONField: true},
}

// FieldByName looks up a reserved field definition.
func FieldByName(name string) (FieldDef, bool) {
	f, ok := registry[name]
	return f, ok
}

var byID = func() map[uint32]FieldDef {
	m := make(map[uint32]FieldDef, len(registry))
	for _, f := range registry {
		m[f.id()] = f
	}
	return m
}()

// fieldByID looks up a reserved field definition by its wire (type_code,
// field_code) pair, the reverse of the name-keyed registry, used by
// DecodeBinary.
func fieldByID(t FieldType, code uint16) (FieldDef, bool) {
	f, ok := byID[uint32(t)<<16|uint32(code)]
	return f, ok
}

// sortFields returns names ordered ascending by (type_code, field_code),
// the canonical wire/JSON order spec.md §4.B requires.
func sortFields(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Slice(out, func(i, j int) bool {
		fi, fj := registry[out[i]], registry[out[j]]
		return fi.id() < fj.id()
	})
	return out
}
