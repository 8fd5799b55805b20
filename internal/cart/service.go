// Package cart prices selections and applies cart transitions for clients
// that keep their cart state locally.
package cart

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// Quote is a priced view of a selection.
type Quote struct {
	Items        []pricing.LineItem `json:"items"`
	ItemCount    int                `json:"item_count"`
	UnknownItems []string           `json:"unknown_items"`
	pricing.Totals
	Currency string `json:"currency"`
}

// Service prices selections against a fixed catalog.
type Service struct {
	Catalog  pricing.Catalog
	TaxRate  decimal.Decimal
	Currency string
}

// Quote prices sel. Unknown names are reported but contribute nothing.
func (s *Service) Quote(sel pricing.Selection) (Quote, error) {
	if err := validateSelection(sel); err != nil {
		return Quote{}, err
	}
	known := pricing.Selection{}
	for name, qty := range sel {
		if _, ok := s.Catalog.Lookup(name); ok {
			known[name] = qty
		}
	}
	unknown := pricing.UnknownItems(s.Catalog, sel)
	if unknown == nil {
		unknown = []string{}
	}
	return Quote{
		Items:        pricing.LineItems(s.Catalog, sel),
		ItemCount:    known.Count(),
		UnknownItems: unknown,
		Totals:       pricing.ComputeTotals(s.Catalog, sel, s.TaxRate),
		Currency:     s.Currency,
	}, nil
}

// Apply runs one transition and prices the result.
func (s *Service) Apply(sel pricing.Selection, action pricing.Action) (pricing.Selection, Quote, error) {
	if err := validateSelection(sel); err != nil {
		return nil, Quote{}, err
	}
	next, err := pricing.Apply(sel, s.Catalog, action)
	if err != nil {
		return nil, Quote{}, actionError(err, action)
	}
	if next == nil {
		next = pricing.Selection{}
	}
	q, err := s.Quote(next)
	return next, q, err
}

func validateSelection(sel pricing.Selection) error {
	err := pricing.CheckQuantities(sel)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pricing.ErrQuantityTooLarge):
		return common.NewAppError("INVALID_QUANTITY", fmt.Sprintf("%v (max %d)", err, pricing.MaxQuantity), http.StatusBadRequest, err)
	default:
		return common.NewAppError("INVALID_QUANTITY", err.Error(), http.StatusBadRequest, err)
	}
}

func actionError(err error, action pricing.Action) error {
	switch {
	case errors.Is(err, pricing.ErrUnknownItem):
		appErr := common.NewAppError("UNKNOWN_ITEM", "item is not on the menu", http.StatusUnprocessableEntity, err)
		appErr.Details = []string{action.Item}
		return appErr
	case errors.Is(err, pricing.ErrNegativeQuantity):
		return common.NewAppError("INVALID_QUANTITY", "quantity must not be negative", http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrQuantityTooLarge):
		return common.NewAppError("INVALID_QUANTITY", fmt.Sprintf("quantity must not exceed %d", pricing.MaxQuantity), http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrUnknownAction):
		return common.NewAppError("UNKNOWN_ACTION", "unsupported cart action", http.StatusBadRequest, err)
	default:
		return err
	}
}
