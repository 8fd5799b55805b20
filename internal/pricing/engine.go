package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// DefaultTaxRate is the sales tax applied to every cart.
var DefaultTaxRate = decimal.RequireFromString("0.0825")

// MaxSubtotal caps a computed subtotal at ten trillion dollars so that tax
// and total stay within int64 for any sane rate.
const MaxSubtotal Money = 1_000_000_000_000_000

// LineItem is a priced selection entry as sent to the backend.
type LineItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"price"`
}

// Totals aggregates computed pricing components. Total is always Subtotal+Tax.
type Totals struct {
	Subtotal Money `json:"subtotal"`
	Tax      Money `json:"tax"`
	Total    Money `json:"total"`
}

// ComputeTotals prices the selection against the catalog. Entries missing from
// the catalog contribute nothing. Quantities above MaxQuantity count as
// MaxQuantity and the subtotal saturates at MaxSubtotal; callers reject such
// selections before pricing them.
func ComputeTotals(catalog Catalog, sel Selection, taxRate decimal.Decimal) Totals {
	sum := decimal.Zero
	for name, qty := range sel {
		if qty <= 0 {
			continue
		}
		item, ok := catalog.Lookup(name)
		if !ok {
			continue
		}
		sum = sum.Add(decimal.NewFromInt(int64(clampQuantity(qty))).Mul(decimal.NewFromInt(item.UnitPrice)))
	}
	limit := decimal.NewFromInt(MaxSubtotal)
	if sum.GreaterThan(limit) {
		sum = limit
	}
	subtotal := sum.IntPart()
	tax := Tax(subtotal, taxRate)
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}
}

// Tax rounds subtotal*rate to the nearest minor unit, halves away from zero.
func Tax(subtotal Money, rate decimal.Decimal) Money {
	return decimal.NewFromInt(subtotal).Mul(rate).Round(0).IntPart()
}

// LineItems resolves the selection into priced line items sorted by name.
// Zero quantities and catalog misses are dropped.
func LineItems(catalog Catalog, sel Selection) []LineItem {
	items := make([]LineItem, 0, len(sel))
	for name, qty := range sel {
		if qty <= 0 {
			continue
		}
		item, ok := catalog.Lookup(name)
		if !ok {
			continue
		}
		items = append(items, LineItem{Name: name, Quantity: clampQuantity(qty), UnitPrice: item.UnitPrice})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

// UnknownItems lists selected names with a positive quantity that the catalog
// does not define, sorted.
func UnknownItems(catalog Catalog, sel Selection) []string {
	var out []string
	for name, qty := range sel {
		if qty <= 0 {
			continue
		}
		if _, ok := catalog.Lookup(name); !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
