package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/catalog"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

func TestDefaultMenuCatalog(t *testing.T) {
	menu := catalog.Default()
	cat := menu.Catalog()

	kitfo, ok := cat.Lookup("Kitfo")
	require.True(t, ok)
	require.Equal(t, pricing.Money(1399), kitfo.UnitPrice)

	tibs, ok := cat.Lookup("Sheckla Tibs")
	require.True(t, ok)
	require.Equal(t, pricing.Money(1799), tibs.UnitPrice)

	// listed under Breakfast and Meats, counted once
	count := 0
	for _, it := range cat.Items() {
		if it.Name == "Tibs Firfir" {
			count++
		}
	}
	require.Equal(t, 1, count)

	total := 0
	for _, s := range menu.Sections() {
		total += len(s.Items)
	}
	require.Equal(t, total-1, cat.Len())
}

func TestDrinkGroupsReferenceSectionItems(t *testing.T) {
	drinks, ok := catalog.Default().Section("drinks / beverages")
	require.True(t, ok)
	names := map[string]bool{}
	for _, it := range drinks.Items {
		names[it.Name] = true
	}
	grouped := 0
	for _, g := range drinks.Groups {
		for _, n := range g.Items {
			require.True(t, names[n], n)
			grouped++
		}
	}
	require.Equal(t, len(drinks.Items), grouped)
}

func TestSectionsAreCopies(t *testing.T) {
	menu := catalog.Default()
	sections := menu.Sections()
	sections[0].Items[0].Price = 1
	again := menu.Sections()
	require.Equal(t, pricing.Money(799), again[0].Items[0].Price)
}

func TestMenuHandler(t *testing.T) {
	h := catalog.NewHandler(catalog.HandlerConfig{Menu: catalog.Default()})

	rec := httptest.NewRecorder()
	h.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []catalog.Section `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 5)
	require.Equal(t, "Breakfast", body.Data[0].Title)
	require.Equal(t, "$7.99", body.Data[0].Items[0].DisplayPrice)
	require.Equal(t, pricing.Money(799), body.Data[0].Items[0].Price)

	rec = httptest.NewRecorder()
	h.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu?section=Fish%20Plates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Len(t, body.Data[0].Items, 4)

	rec = httptest.NewRecorder()
	h.Menu(rec, httptest.NewRequest(http.MethodGet, "/api/v1/menu?section=Desserts", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
