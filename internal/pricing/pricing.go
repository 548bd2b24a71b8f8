// Package pricing computes per-line net price, tax and total from a product
// snapshot. Pure computation: no I/O, integer CLP units throughout.
package pricing

import (
	"fmt"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// LineTotals is the priced result for a single line. IVA is rounded per line
// and never re-rounded at the aggregate.
type LineTotals struct {
	UnitNet     int64
	SubtotalNet int64
	IVAAmount   int64
	Total       int64
}

// Totals aggregates already-rounded lines.
type Totals struct {
	SubtotalNet int64
	IVA         int64
	Total       int64
}

// ValidateIVAPercent enforces the configuration invariant: an integer in
// (0,100]. Anything else is a fatal configuration error.
func ValidateIVAPercent(pct int) error {
	if pct <= 0 || pct > 100 {
		return apperr.Config(fmt.Sprintf("invalid IVA percent %d: must be in (0,100]", pct))
	}
	return nil
}

// PriceItem prices qty units of the product at the current catalog price.
// unitNet prefers the discounted price when set; IVA is rounded
// half-away-from-zero on the line subtotal.
func PriceItem(p *entity.Product, qty int, ivaPct int) LineTotals {
	unitNet := p.NetPrice()
	subtotalNet := unitNet * int64(qty)
	ivaAmount := roundedIVA(subtotalNet, ivaPct)
	return LineTotals{
		UnitNet:     unitNet,
		SubtotalNet: subtotalNet,
		IVAAmount:   ivaAmount,
		Total:       subtotalNet + ivaAmount,
	}
}

// Sum adds already-rounded line totals. Summing rounded lines (instead of
// rounding the aggregate) keeps order totals byte-identical to what each
// provider saw per line.
func Sum(lines ...LineTotals) Totals {
	var t Totals
	for _, l := range lines {
		t.SubtotalNet += l.SubtotalNet
		t.IVA += l.IVAAmount
		t.Total += l.Total
	}
	return t
}

// roundedIVA computes round(subtotal*pct/100) half-away-from-zero using
// integer arithmetic only.
func roundedIVA(subtotal int64, pct int) int64 {
	n := subtotal * int64(pct)
	q := n / 100
	r := n % 100
	if r >= 50 {
		q++
	} else if r <= -50 {
		q--
	}
	return q
}
