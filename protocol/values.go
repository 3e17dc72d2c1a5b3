package protocol

import (
	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"
)

// Typed-access helpers over fastjson.Value. The source protocol is untyped
// JSON traversal; these pin every access point to an explicit expected shape
// so a wrong shape is a ParseError{KindTypeMismatch} instead of a zero value
// silently standing in for missing data.

func asString(v *fastjson.Value, field string) (string, error) {
	if v == nil {
		return "", newParseError(KindMissingField, field)
	}
	sb, err := v.StringBytes()
	if err != nil {
		return "", newParseError(KindTypeMismatch, field)
	}
	return string(sb), nil
}

func asObject(v *fastjson.Value, field string) (*fastjson.Object, error) {
	if v == nil {
		return nil, newParseError(KindMissingField, field)
	}
	obj, err := v.Object()
	if err != nil {
		return nil, newParseError(KindTypeMismatch, field)
	}
	return obj, nil
}

func asArray(v *fastjson.Value, field string) ([]*fastjson.Value, error) {
	if v == nil {
		return nil, newParseError(KindMissingField, field)
	}
	arr, err := v.Array()
	if err != nil {
		return nil, newParseError(KindTypeMismatch, field)
	}
	return arr, nil
}

func asBool(v *fastjson.Value, field string) (bool, error) {
	if v == nil {
		return false, newParseError(KindMissingField, field)
	}
	b, err := v.Bool()
	if err != nil {
		return false, newParseError(KindTypeMismatch, field)
	}
	return b, nil
}

// asDecimal reads a JSON number without rounding it through float64: fastjson
// retains the original numeric token for a TypeNumber value, so parsing that
// token straight into decimal.Decimal keeps full JSON-level precision for
// price/volume fields, matching the precision the rest of the parser preserves.
func asDecimal(v *fastjson.Value, field string) (decimal.Decimal, error) {
	if v == nil || v.Type() != fastjson.TypeNumber {
		return decimal.Decimal{}, newParseError(KindTypeMismatch, field)
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, newParseError(KindTypeMismatch, field)
	}
	return d, nil
}

// isNullOrAbsent treats a present-but-JSON-null field identically to an
// absent one.
func isNullOrAbsent(obj *fastjson.Object, key string) bool {
	v := obj.Get(key)
	return v == nil || v.Type() == fastjson.TypeNull
}
