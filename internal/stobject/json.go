package stobject

import (
	"encoding/hex"
	"fmt"

	"concordd/internal/amount"
	"concordd/internal/crypto"
)

// EncodeJSON renders the object's JSON-eligible fields (def.JSONField) as
// a map ready for encoding/json.Marshal, matching the teacher's
// everywhere-encoding/json idiom (core/ledger.go) for the JSON half of the
// dual binary/JSON contract in spec.md §4.B. The map carries no field
// order: encoding/json.Marshal writes its keys sorted by name, not in
// canonical (type_code, field_code) order.
func (o *STObject) EncodeJSON() (map[string]any, error) {
	out := make(map[string]any, len(o.values))
	for _, name := range o.fieldNames() {
		def := registry[name]
		if !def.JSONField {
			continue
		}
		v := o.values[name]
		rendered, err := renderJSONValue(def, v)
		if err != nil {
			return nil, fmt.Errorf("stobject: field %s: %w", name, err)
		}
		out[name] = rendered
	}
	return out, nil
}

func renderJSONValue(def FieldDef, v any) (any, error) {
	switch def.Type {
	case TypeHash256:
		h, ok := v.(crypto.Hash256)
		if !ok {
			return nil, fmt.Errorf("expected Hash256")
		}
		return h.String(), nil
	case TypeAccount:
		a, ok := v.(crypto.AccountID)
		if !ok {
			return nil, fmt.Errorf("expected AccountID")
		}
		return a.String(), nil
	case TypeBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected []byte")
		}
		return hex.EncodeToString(b), nil
	case TypeAmount:
		a, ok := v.(amount.Amount)
		if !ok {
			return nil, fmt.Errorf("expected amount.Amount")
		}
		if a.IsNative {
			return fmt.Sprintf("%d", a.Drops), nil
		}
		return map[string]any{
			"currency": a.Currency.String(),
			"issuer":   a.Issuer.String(),
			"value":    fmt.Sprintf("%de%d", signedMantissa(a), a.Exponent),
		}, nil
	default:
		return v, nil
	}
}

func signedMantissa(a amount.Amount) int64 {
	if a.Negative {
		return -a.Mantissa
	}
	return a.Mantissa
}
