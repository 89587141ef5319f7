package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode serializes items into the snapshot format kept in the Store:
//
//	[{"name":"Margherita","price":8,"qty":2}]
func Encode(items []Item) string {
	var e jx.Encoder
	WriteItems(&e, items)
	return string(e.Bytes())
}

// WriteItems writes items as a snapshot array to e.
func WriteItems(e *jx.Encoder, items []Item) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.RawStr(it.Price.String())
		e.FieldStart("qty")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

// Decode parses a snapshot produced by Encode. A JSON null decodes to an
// empty cart. Prices and quantities are held to the limits Add enforces.
// Records with a non-positive quantity are dropped and repeated
// names are merged into the first occurrence, so the result always satisfies
// the cart invariants.
func Decode(raw string) ([]Item, error) {
	d := jx.DecodeStr(raw)
	if d.Next() == jx.Null {
		if err := d.Null(); err != nil {
			return nil, errors.Wrap(err, "decode snapshot")
		}
		return nil, nil
	}
	items, err := ReadItems(d)
	if err != nil {
		return nil, err
	}
	if d.Next() != jx.Invalid {
		return nil, errors.New("decode snapshot: trailing data")
	}
	return items, nil
}

// ReadItems reads a snapshot array from d.
func ReadItems(d *jx.Decoder) ([]Item, error) {
	var items []Item
	if err := d.Arr(func(d *jx.Decoder) error {
		it, err := readItem(d)
		if err != nil {
			return err
		}
		if it.Quantity <= 0 {
			return nil
		}
		if i := indexOf(items, it.Name); i >= 0 {
			if items[i].Quantity > MaxQuantity-it.Quantity {
				return errors.Errorf("item %q exceeds %d units", it.Name, MaxQuantity)
			}
			items[i].Quantity += it.Quantity
			return nil
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return items, nil
}

func readItem(d *jx.Decoder) (Item, error) {
	var (
		it                        Item
		hasName, hasPrice, hasQty bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			it.Name, err = d.Str()
			hasName = true
		case "price":
			it.Price, err = readDecimal(d)
			hasPrice = true
		case "qty", "quantity":
			it.Quantity, err = d.Int()
			hasQty = true
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return Item{}, err
	}

	switch {
	case !hasName || it.Name == "":
		return Item{}, errors.New("item without name")
	case !hasPrice:
		return Item{}, errors.Errorf("item %q without price", it.Name)
	case !hasQty:
		return Item{}, errors.Errorf("item %q without quantity", it.Name)
	case it.Quantity > MaxQuantity:
		return Item{}, errors.Errorf("item %q exceeds %d units", it.Name, MaxQuantity)
	}
	if reason := checkPrice(it.Price); reason != "" {
		return Item{}, errors.Errorf("item %q: %s", it.Name, reason)
	}
	return it, nil
}

// readDecimal accepts both JSON numbers and numeric strings.
func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s for decimal", d.Next())
	}
}

func indexOf(items []Item, name string) int {
	for i := range items {
		if items[i].Name == name {
			return i
		}
	}
	return -1
}
