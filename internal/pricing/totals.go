package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TaxRate is applied to the subtotal by both the cart and the order builder.
var TaxRate = decimal.RequireFromString("0.14")

// Entry is one priced line.
type Entry struct {
	Price    float64
	Quantity int
}

// Totals are derived values; they are never stored on a cart.
type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	TotalItems int
}

// Compute sums price x quantity and applies TaxRate. Decimal arithmetic keeps
// total == subtotal + subtotal*TaxRate exact.
func Compute(entries []Entry) Totals {
	subtotal := decimal.Zero
	items := 0
	for _, e := range entries {
		subtotal = subtotal.Add(decimal.NewFromFloat(e.Price).Mul(decimal.NewFromInt(int64(e.Quantity))))
		items += e.Quantity
	}
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      subtotal.Add(tax),
		TotalItems: items,
	}
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal   float64 `json:"subtotal"`
		Tax        float64 `json:"tax"`
		Total      float64 `json:"total"`
		TotalItems int     `json:"totalItems"`
	}{
		Subtotal:   t.Subtotal.InexactFloat64(),
		Tax:        t.Tax.InexactFloat64(),
		Total:      t.Total.InexactFloat64(),
		TotalItems: t.TotalItems,
	})
}
