// Package catalog holds the restaurant menu served to the site.
package catalog

import (
	"strings"

	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// Badge highlights an item on the menu.
type Badge string

const (
	BadgeNew     Badge = "New"
	BadgePopular Badge = "Popular"
	BadgeSpecial Badge = "Special"
)

// Item is one menu entry. DisplayPrice is what the menu prints; Price is the
// charged amount in minor units derived from it.
type Item struct {
	Name         string        `json:"name"`
	DisplayPrice string        `json:"display_price"`
	Price        pricing.Money `json:"price"`
	Description  string        `json:"description,omitempty"`
	Badge        Badge         `json:"badge,omitempty"`
	Image        string        `json:"image,omitempty"`
}

// Group is a named subset of a section's items.
type Group struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// Section is a titled block of the menu.
type Section struct {
	Title  string  `json:"title"`
	Items  []Item  `json:"items"`
	Groups []Group `json:"groups,omitempty"`
}

// Menu is an immutable menu with its derived pricing catalog.
type Menu struct {
	sections []Section
	catalog  pricing.Catalog
}

// NewMenu derives prices and builds the catalog. An item listed in more than
// one section is priced by its first listing.
func NewMenu(sections ...Section) *Menu {
	m := &Menu{sections: make([]Section, len(sections))}
	var items []pricing.CatalogItem
	for i, s := range sections {
		cp := Section{Title: s.Title, Items: make([]Item, len(s.Items)), Groups: s.Groups}
		for j, it := range s.Items {
			it.Price = pricing.ParsePrice(it.DisplayPrice)
			cp.Items[j] = it
			items = append(items, pricing.CatalogItem{Name: it.Name, UnitPrice: it.Price})
		}
		m.sections[i] = cp
	}
	m.catalog = pricing.NewCatalog(items...)
	return m
}

// Sections returns a copy of the menu sections.
func (m *Menu) Sections() []Section {
	out := make([]Section, len(m.sections))
	for i, s := range m.sections {
		out[i] = Section{Title: s.Title, Items: append([]Item(nil), s.Items...), Groups: s.Groups}
	}
	return out
}

// Section looks up a section by title, ignoring case.
func (m *Menu) Section(title string) (Section, bool) {
	for _, s := range m.Sections() {
		if strings.EqualFold(s.Title, title) {
			return s, true
		}
	}
	return Section{}, false
}

// Catalog returns the pricing catalog for the menu.
func (m *Menu) Catalog() pricing.Catalog { return m.catalog }

// Default returns the Zemen menu.
func Default() *Menu {
	return NewMenu(
		Section{Title: "Breakfast", Items: []Item{
			{Name: "Kinche", DisplayPrice: "$7.99", Description: "Cracked wheat seasoned with clarified and spiced butter.", Image: "/kinche.png", Badge: BadgeNew},
			{Name: "Chechebsa", DisplayPrice: "$7.99", Description: "Flat wheat bread cut into pieces mixed with berbere and spiced batter.", Image: "/chechebsa.png"},
			{Name: "Firfir", DisplayPrice: "$9.99", Description: "Injera mixed with onions, tomatoes, jalapenos, tossed in berbere sauce.", Image: "/firfir.png"},
			{Name: "Scrambled Eggs", DisplayPrice: "$8.99", Description: "Scrambled eggs with tomatoes, onions, and jalapenos. Served with bread.", Image: "/scrambledeggs.png"},
			{Name: "Breakfast Combo", DisplayPrice: "$17.99", Description: "Combination of all breakfast items.", Image: "/breakfastcombo.png", Badge: BadgeSpecial},
			{Name: "Full", DisplayPrice: "$7.99", Description: "Fava beans seasoned with olive oil, garlic, onions. Served with fresh diced tomatoes, jalapenos, and a side of warm bread.", Image: "/full.png"},
			{Name: "Special Full", DisplayPrice: "$9.99", Description: "Fava beans with olive oil, garlic, onions, tomatoes, jalapenos, eggs, and bread.", Image: "/specialfull2.png"},
			{Name: "Sambusa", DisplayPrice: "$3.99", Description: "Lightly fried pastry filled with spiced lentils or minced beef.", Image: "/sambusa.png"},
			{Name: "Tibs Firfir", DisplayPrice: "$14.99+", Description: "Injera mixed with tibs, onions, and jalapenos.", Image: "/tibsfirfir.png"},
		}},
		Section{Title: "Vegan / Vegetarian", Items: []Item{
			{Name: "Rice With Veggies", DisplayPrice: "$8.99+", Description: "Fragrant rice cooked with vegetables, lightly seasoned with Ethiopian spices.", Image: "/ricewithveggies.png"},
			{Name: "Veggie Combo", DisplayPrice: "$15.99", Description: "Combination of all the vegan plates.", Image: "/veggiecombo.png"},
			{Name: "Shiro Wot", DisplayPrice: "$12.99", Description: "Chickpea flour stew with onions, garlic, and seasoned oil.", Image: "/shiro.png"},
			{Name: "Pasta", DisplayPrice: "$9.99+", Description: "Spaghetti tossed in a rich, spiced tomato sauce.", Image: "/pasta.png"},
			{Name: "Misir", DisplayPrice: "$5.00", Description: "Spicy lentil stew with onions, garlic, and Ethiopian spices.", Image: "/misir.png"},
		}},
		Section{Title: "Fish Plates", Items: []Item{
			{Name: "Asa Wot", DisplayPrice: "$15.99", Description: "Fish stew with fish pieces in spiced berbere sauce. Served with injera.", Image: "/asawot.png"},
			{Name: "Asa Dulet", DisplayPrice: "$15.99", Description: "Finely chopped fish with garlic, onions, and Ethiopian spices.", Image: "/asadulet.png"},
			{Name: "Asa Goulash", DisplayPrice: "$15.99", Description: "Fish chunks in a mild tomato sauce. Served with injera or bread.", Image: "/asagoulash.png"},
			{Name: "Whole Fish", DisplayPrice: "$20.00", Description: "Whole fish seasoned and grilled to perfection.", Image: "/wholefish.png"},
		}},
		Section{Title: "Meats", Items: []Item{
			{Name: "Tibs", DisplayPrice: "$14.99+", Description: "Grilled meat sautéed with onions, jalapenos, and spices.", Image: "/tibs.png"},
			{Name: "Zilzil Tibs", DisplayPrice: "$15.99", Description: "Sliced beef sautéed with onions, jalapenos, and spices.", Image: "/zilziltibs.png"},
			{Name: "Doro Wot", DisplayPrice: "$16.99", Description: "Chicken stew with hard-boiled eggs in a spicy berbere sauce.", Image: "/doro.png", Badge: BadgePopular},
			{Name: "Kitfo", DisplayPrice: "$13.99", Description: "Minced raw beef seasoned with spices and clarified butter.", Image: "/kitfo.png"},
			{Name: "Quanta Firfir", DisplayPrice: "$13.99", Description: "Dried beef mixed with injera, onions, and spices.", Image: "/tibsfirfir.png"},
			{Name: "Sheckla Tibs", DisplayPrice: "$17.99+", Description: "Grilled meat sautéed with onions, jalapenos, and spices.", Image: "/shecklatibs.png"},
			{Name: "Tibs Firfir", DisplayPrice: "$14.99+", Description: "Injera mixed with tibs, onions, and jalapenos.", Image: "/tibsfirfir.png"},
		}},
		Section{
			Title: "Drinks / Beverages",
			Items: []Item{
				{Name: "Ethiopian Tea", DisplayPrice: "$1.99"},
				{Name: "Ethiopian Coffee", DisplayPrice: "$1.99", Image: "/coffee.png"},
				{Name: "Macchiato", DisplayPrice: "$3.99"},
				{Name: "Cappuccino", DisplayPrice: "$3.50"},
				{Name: "Latte", DisplayPrice: "$3.99"},
				{Name: "Espresso", DisplayPrice: "$2.25"},
				{Name: "Iced Tea", DisplayPrice: "$1.99"},
				{Name: "Bottled Water", DisplayPrice: "$1.99"},
				{Name: "Sparkling Water", DisplayPrice: "$2.50"},
				{Name: "Orange Juice", DisplayPrice: "$3.50"},
				{Name: "Soda", DisplayPrice: "$2.50"},
				{Name: "Tej", DisplayPrice: "$10.00", Description: "Ethiopian honey wine.", Image: "/tej.png"},
				{Name: "Nonalcoholic Beer", DisplayPrice: "$3.99"},
			},
			Groups: []Group{
				{Title: "Coffee & Tea", Items: []string{"Ethiopian Tea", "Ethiopian Coffee", "Macchiato", "Cappuccino", "Latte", "Espresso", "Iced Tea"}},
				{Title: "Cold & Soft Drinks", Items: []string{"Bottled Water", "Sparkling Water", "Orange Juice", "Soda"}},
				{Title: "Alcoholic & Special", Items: []string{"Tej", "Nonalcoholic Beer"}},
			},
		},
	)
}
