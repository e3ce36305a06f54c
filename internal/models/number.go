package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Number is a numeric field that clients and legacy documents send either as
// a JSON/BSON number or as a numeric string. Decoding never fails on a bad
// value: the field is kept as present-but-invalid so the cart validity rules
// can reject it with a domain error instead of a decode error.
type Number struct {
	Value   float64
	Present bool
	Valid   bool
}

// Num returns a valid Number holding v.
func Num(v float64) Number {
	return Number{Value: v, Present: true, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func parseNumber(raw string) Number {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Number{Present: true}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Number{Present: true}
	}
	return Num(v)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*n = Number{Present: true}
			return nil
		}
		*n = parseNumber(s)
		return nil
	}
	if bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")) {
		*n = Number{Present: true}
		return nil
	}
	*n = parseNumber(string(trimmed))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Present || !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// UnmarshalBSONValue accepts double, int32, int64, decimal and string values so
// carts written by older clients still decode.
func (n *Number) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*n = Number{}
	case bsontype.Double:
		*n = Num(raw.Double())
	case bsontype.Int32:
		*n = Num(float64(raw.Int32()))
	case bsontype.Int64:
		*n = Num(float64(raw.Int64()))
	case bsontype.Decimal128:
		*n = parseNumber(raw.Decimal128().String())
	case bsontype.String:
		*n = parseNumber(raw.StringValue())
	default:
		return fmt.Errorf("cannot decode %s into Number", t)
	}
	return nil
}

func (n Number) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if !n.Present || !n.Valid {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(n.Value)
}
