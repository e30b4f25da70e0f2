package tracking

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

// ErrMalformed is returned for an order document that cannot be decoded.
var ErrMalformed = errors.New("malformed order document")

// embedded lists the fields the store may send as JSON-encoded text instead
// of structured JSON.
var embedded = map[string]bool{
	"items":       true,
	"paymentInfo": true,
	"notes":       true,
}

// Decode parses an order document, unwrapping fields that arrive as
// JSON-encoded strings so both representations yield the same Order.
func Decode(data []byte) (*order.Order, error) {
	normalized, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	var o order.Order
	if err := json.Unmarshal(normalized, &o); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	return &o, nil
}

// Normalize rewrites an order document so that every embedded field is
// structured JSON. Other fields are copied verbatim.
func Normalize(data []byte) ([]byte, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, errors.Wrap(ErrMalformed, "order is not an object")
	}

	var e jx.Encoder
	e.ObjStart()
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		name := string(key)
		e.FieldStart(name)
		if !embedded[name] {
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrapf(err, "read %s", name)
			}
			e.Raw(raw)
			return nil
		}
		raw, err := unwrap(d)
		if err != nil {
			return errors.Wrapf(err, "normalize %s", name)
		}
		e.Raw(raw)
		return nil
	}); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	e.ObjEnd()
	return e.Bytes(), nil
}

// unwrap returns the structured form of the next value. A string is parsed
// as JSON text; blank text becomes null.
func unwrap(d *jx.Decoder) ([]byte, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.StrBytes()
		if err != nil {
			return nil, err
		}
		if len(s) == 0 {
			return []byte("null"), nil
		}
		if !jx.Valid(s) {
			return nil, errors.Errorf("string is not JSON: %.32q", s)
		}
		// Double encoding: the text itself may be a JSON string.
		inner := jx.DecodeBytes(s)
		if inner.Next() == jx.String {
			return unwrap(inner)
		}
		return append([]byte(nil), s...), nil
	case jx.Object, jx.Array, jx.Null:
		raw, err := d.Raw()
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), raw...), nil
	default:
		return nil, errors.Errorf("unexpected %s", d.Next())
	}
}
