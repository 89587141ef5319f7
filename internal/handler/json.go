package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/checkout"
	"github.com/xenking/pizza-cart/internal/domain/theme"
)

const maxBodySize = 1 << 16

type addItemRequest struct {
	Name  string
	Price decimal.Decimal
}

func readAddItem(w http.ResponseWriter, r *http.Request) (addItemRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return addItemRequest{}, errors.Wrap(errBadRequest, "read body")
	}

	var (
		req      addItemRequest
		hasPrice bool
	)
	if err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			req.Name = v
			return err
		case "price":
			v, err := readPrice(d)
			req.Price, hasPrice = v, err == nil
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return addItemRequest{}, errors.Wrapf(errBadRequest, "decode item: %s", err)
	}
	if !hasPrice {
		return addItemRequest{}, errors.Wrap(errBadRequest, "price is required")
	}
	return req, nil
}

func readPrice(d *jx.Decoder) (decimal.Decimal, error) {
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
		return decimal.Decimal{}, errors.Errorf("price must be a number, got %s", d.Next())
	}
}

func encodeView(e *jx.Encoder, v cart.View) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range v.Lines {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("price")
		e.RawStr(l.Price.String())
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("subtotal")
		e.Str(l.Subtotal.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Str(v.Total.StringFixed(2))
	e.FieldStart("count")
	e.Int(v.Count)
	e.ObjEnd()
}

func encodeMessage(e *jx.Encoder, m checkout.Message) {
	e.ObjStart()
	e.FieldStart("message")
	e.Str(m.Text)
	e.FieldStart("url")
	e.Str(m.URL)
	e.ObjEnd()
}

func encodeTheme(e *jx.Encoder, t theme.Theme) {
	e.ObjStart()
	e.FieldStart("theme")
	e.Str(string(t))
	e.FieldStart("icon")
	e.Str(t.Icon())
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}
