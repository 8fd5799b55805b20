package pricing

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// CatalogItem is a purchasable entry with its unit price.
type CatalogItem struct {
	Name      string `json:"name"`
	UnitPrice Money  `json:"price"`
}

// Catalog is an immutable name-indexed set of items.
type Catalog struct {
	order []CatalogItem
	index map[string]int
}

// NewCatalog builds a catalog. When a name repeats, the first definition wins.
func NewCatalog(items ...CatalogItem) Catalog {
	c := Catalog{index: make(map[string]int, len(items))}
	for _, it := range items {
		if _, dup := c.index[it.Name]; dup {
			continue
		}
		c.index[it.Name] = len(c.order)
		c.order = append(c.order, it)
	}
	return c
}

// Lookup returns the item registered under name.
func (c Catalog) Lookup(name string) (CatalogItem, bool) {
	i, ok := c.index[name]
	if !ok {
		return CatalogItem{}, false
	}
	return c.order[i], true
}

// Items returns the catalog entries in definition order.
func (c Catalog) Items() []CatalogItem {
	out := make([]CatalogItem, len(c.order))
	copy(out, c.order)
	return out
}

// Len reports the number of distinct items.
func (c Catalog) Len() int { return len(c.order) }

var priceRe = regexp.MustCompile(`\$([\d.]+)`)

// ParsePrice converts a display price such as "$7.99" or "$14.99+" into minor
// units. Unparsable input yields 0.
func ParsePrice(display string) Money {
	m := priceRe.FindStringSubmatch(display)
	if len(m) < 2 {
		return 0
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0
	}
	return d.Shift(2).Round(0).IntPart()
}
