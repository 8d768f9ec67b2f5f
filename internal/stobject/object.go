package stobject

import (
	"encoding/binary"
	"errors"
	"fmt"

	"concordd/internal/amount"
	"concordd/internal/crypto"
)

// STObject is a self-describing typed-field container: an unordered set of
// named field values that serializes in canonical (type_code, field_code)
// order, per spec.md §4.B.
type STObject struct {
	values map[string]any
}

// New builds an STObject from field name → value pairs. Values must match
// the registered FieldDef.Type for the name (uint8/16/32/64, []byte,
// crypto.Hash256, crypto.AccountID, amount.Amount).
func New(fields map[string]any) (*STObject, error) {
	for name := range fields {
		if _, ok := registry[name]; !ok {
			return nil, fmt.Errorf("stobject: unknown field %q", name)
		}
	}
	return &STObject{values: fields}, nil
}

// Get returns the value stored for name, if present.
func (o *STObject) Get(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Set assigns or overwrites a field's value.
func (o *STObject) Set(name string, v any) error {
	if _, ok := registry[name]; !ok {
		return fmt.Errorf("stobject: unknown field %q", name)
	}
	o.values[name] = v
	return nil
}

func (o *STObject) fieldNames() []string {
	names := make([]string, 0, len(o.values))
	for n := range o.values {
		names = append(names, n)
	}
	return sortFields(names)
}

// EncodeBinary serializes the object in canonical field order. When
// forSigning is true, only fields with SigningField=true are included
// (spec.md §4.B: TxnSignature is excluded from the signing pre-image,
// SigningPubKey is included).
func (o *STObject) EncodeBinary(forSigning bool) ([]byte, error) {
	var buf []byte
	for _, name := range o.fieldNames() {
		def := registry[name]
		if forSigning && !def.SigningField {
			continue
		}
		var hdr [4]byte
		binary.BigEndian.PutUint16(hdr[0:2], uint16(def.Type))
		binary.BigEndian.PutUint16(hdr[2:4], def.Code)
		buf = append(buf, hdr[:]...)

		enc, err := encodeValue(def, o.values[name])
		if err != nil {
			return nil, fmt.Errorf("stobject: field %s: %w", name, err)
		}
		if def.Type == TypeBlob {
			var lenBuf [4]byte
			binary.BigEndian.PutUint32(lenBuf[:], uint32(len(enc)))
			buf = append(buf, lenBuf[:]...)
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// DecodeBinary parses bytes produced by EncodeBinary(false) back into an
// STObject, looking each field up by its (type_code, field_code) header
// against the same registry used to encode it (spec.md §4.B: the format is
// self-describing, so decode never needs an externally supplied schema).
func DecodeBinary(data []byte) (*STObject, error) {
	values := make(map[string]any)
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errors.New("stobject: truncated field header")
		}
		typ := FieldType(binary.BigEndian.Uint16(data[0:2]))
		code := binary.BigEndian.Uint16(data[2:4])
		data = data[4:]

		def, ok := fieldByID(typ, code)
		if !ok {
			return nil, fmt.Errorf("stobject: unknown field (type=%d code=%d)", typ, code)
		}

		width := fixedWidth(def.Type)
		if def.Type == TypeBlob {
			if len(data) < 4 {
				return nil, errors.New("stobject: truncated blob length")
			}
			width = int(binary.BigEndian.Uint32(data[0:4])) + 4
		}
		if width < 0 || len(data) < width {
			return nil, fmt.Errorf("stobject: truncated field %s", def.Name)
		}

		var raw []byte
		if def.Type == TypeBlob {
			raw = data[4:width]
		} else {
			raw = data[:width]
		}
		v, err := decodeValue(def, raw)
		if err != nil {
			return nil, fmt.Errorf("stobject: field %s: %w", def.Name, err)
		}
		values[def.Name] = v
		data = data[width:]
	}
	return &STObject{values: values}, nil
}

// fixedWidth returns the on-wire byte width of every fixed-size field type.
// TypeBlob has no fixed width (its length is length-prefixed) and is handled
// separately by the caller.
func fixedWidth(t FieldType) int {
	switch t {
	case TypeUInt8:
		return 1
	case TypeUInt16:
		return 2
	case TypeUInt32:
		return 4
	case TypeUInt64:
		return 8
	case TypeHash128:
		return 16
	case TypeHash256:
		return 32
	case TypeAccount:
		return 20
	case TypeAmount:
		return 1 + 8 + 1 + 4 + 20 + 20
	default:
		return -1
	}
}

func decodeValue(def FieldDef, raw []byte) (any, error) {
	switch def.Type {
	case TypeUInt8:
		return raw[0], nil
	case TypeUInt16:
		return binary.BigEndian.Uint16(raw), nil
	case TypeUInt32:
		return binary.BigEndian.Uint32(raw), nil
	case TypeUInt64:
		return binary.BigEndian.Uint64(raw), nil
	case TypeHash256:
		var h crypto.Hash256
		copy(h[:], raw)
		return h, nil
	case TypeAccount:
		var a crypto.AccountID
		copy(a[:], raw)
		return a, nil
	case TypeBlob:
		b := make([]byte, len(raw))
		copy(b, raw)
		return b, nil
	case TypeAmount:
		return decodeAmount(raw)
	default:
		return nil, fmt.Errorf("unsupported field type %d", def.Type)
	}
}

func encodeValue(def FieldDef, v any) ([]byte, error) {
	switch def.Type {
	case TypeUInt8:
		n, ok := toUint64(v)
		if !ok {
			return nil, errors.New("expected integer value")
		}
		return []byte{byte(n)}, nil
	case TypeUInt16:
		n, ok := toUint64(v)
		if !ok {
			return nil, errors.New("expected integer value")
		}
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		return b[:], nil
	case TypeUInt32:
		n, ok := toUint64(v)
		if !ok {
			return nil, errors.New("expected integer value")
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		return b[:], nil
	case TypeUInt64:
		n, ok := toUint64(v)
		if !ok {
			return nil, errors.New("expected integer value")
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], n)
		return b[:], nil
	case TypeHash256:
		h, ok := v.(crypto.Hash256)
		if !ok {
			return nil, errors.New("expected Hash256")
		}
		return h[:], nil
	case TypeAccount:
		a, ok := v.(crypto.AccountID)
		if !ok {
			return nil, errors.New("expected AccountID")
		}
		return a[:], nil
	case TypeBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.New("expected []byte")
		}
		return b, nil
	case TypeAmount:
		a, ok := v.(amount.Amount)
		if !ok {
			return nil, errors.New("expected amount.Amount")
		}
		return encodeAmount(a), nil
	default:
		return nil, fmt.Errorf("unsupported field type %d", def.Type)
	}
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}

// encodeAmount serializes an amount.Amount into a fixed-width layout: a
// 1-byte native flag, an 8-byte magnitude (drops, or the normalized IOU
// mantissa), a 1-byte sign, a 4-byte exponent, and (for IOU amounts) the
// 20-byte currency code and 20-byte issuer AccountID. This keeps the
// encode/decode logic simple and lossless rather than packing everything
// into STAmount's dense 64-bit bitfield (original_source/STAmount.h), which
// buys wire compactness this repo does not need.
func encodeAmount(a amount.Amount) []byte {
	buf := make([]byte, 1+8+1+4+20+20)
	if a.IsNative {
		buf[0] = 1
		binary.BigEndian.PutUint64(buf[1:9], a.Drops)
		return buf
	}
	if a.Negative {
		buf[9] = 1
	}
	binary.BigEndian.PutUint64(buf[1:9], uint64(a.Mantissa))
	binary.BigEndian.PutUint32(buf[10:14], uint32(a.Exponent))
	copy(buf[14:34], a.Currency[:])
	copy(buf[34:54], a.Issuer[:])
	return buf
}

// decodeAmount reverses encodeAmount.
func decodeAmount(buf []byte) (amount.Amount, error) {
	if len(buf) != 1+8+1+4+20+20 {
		return amount.Amount{}, errors.New("stobject: malformed amount encoding")
	}
	if buf[0] == 1 {
		return amount.NativeAmount(binary.BigEndian.Uint64(buf[1:9])), nil
	}
	var cur amount.Currency
	var issuer crypto.AccountID
	copy(cur[:], buf[14:34])
	copy(issuer[:], buf[34:54])
	return amount.Amount{
		Currency: cur,
		Issuer:   issuer,
		Mantissa: int64(binary.BigEndian.Uint64(buf[1:9])),
		Exponent: int32(binary.BigEndian.Uint32(buf[10:14])),
		Negative: buf[9] == 1,
	}, nil
}
