package backend

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-zemen/internal/analytics"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// Address is a delivery address as stored by the backend.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// String renders the address the way the backend displays it.
func (a Address) String() string {
	return a.Street + ", " + a.City + ", " + a.State + " " + a.Zip
}

// Amount is a major-unit price on the wire ("30.00" or 30) held in minor units.
// Unparsable values decode to zero.
type Amount pricing.Money

// UnmarshalJSON accepts decimal strings, numbers and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	*a = Amount(ToMinor(d))
	return nil
}

// MarshalJSON writes the amount as a two-decimal major-unit string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToMajor(pricing.Money(a)).StringFixed(2))
}

// ToMinor converts a major-unit decimal to cents, rounding half away from zero.
func ToMinor(d decimal.Decimal) pricing.Money {
	return d.Shift(2).Round(0).IntPart()
}

// ToMajor converts cents to a major-unit decimal.
func ToMajor(m pricing.Money) decimal.Decimal {
	return decimal.New(m, -2)
}

type submitItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    Amount `json:"price"`
}

type submitRequest struct {
	Name                string       `json:"name"`
	Phone               string       `json:"phone"`
	OrderType           string       `json:"order_type"`
	SpecialRequest      string       `json:"special_request"`
	TotalPrice          Amount       `json:"total_price"`
	Street              string       `json:"street,omitempty"`
	City                string       `json:"city,omitempty"`
	State               string       `json:"state,omitempty"`
	Zip                 string       `json:"zip,omitempty"`
	PickupPaymentMethod string       `json:"pickup_payment_method,omitempty"`
	Items               []submitItem `json:"items"`
}

func newSubmitRequest(p pricing.OrderPayload, addr Address) submitRequest {
	req := submitRequest{
		Name:                p.Name,
		Phone:               p.Phone,
		OrderType:           string(p.OrderType),
		SpecialRequest:      p.SpecialRequest,
		TotalPrice:          Amount(p.TotalPrice),
		PickupPaymentMethod: p.PickupPaymentMethod,
		Items:               make([]submitItem, 0, len(p.Items)),
	}
	if p.OrderType == pricing.OrderDelivery {
		req.Street, req.City, req.State, req.Zip = addr.Street, addr.City, addr.State, addr.Zip
	}
	for _, it := range p.Items {
		req.Items = append(req.Items, submitItem{Name: it.Name, Quantity: it.Quantity, Price: Amount(it.UnitPrice)})
	}
	return req
}

type wireItem struct {
	ItemName     string `json:"item_name"`
	Quantity     int    `json:"quantity"`
	PricePerItem Amount `json:"price_per_item"`
}

type wireOrder struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	SpecialRequest  string     `json:"special_request"`
	TotalPrice      Amount     `json:"total_price"`
	OrderType       string     `json:"order_type"`
	DeliveryAddress *string    `json:"delivery_address"`
	Status          string     `json:"status"`
	CreatedAt       string     `json:"created_at"`
	Items           []wireItem `json:"items"`
}

// OrderRecord is an order as returned by the backend, in minor units.
type OrderRecord struct {
	analytics.HistoricalOrder
	SpecialRequest  string `json:"special_request,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
}

func (w wireOrder) record() OrderRecord {
	rec := OrderRecord{
		HistoricalOrder: analytics.HistoricalOrder{
			ID:            w.ID,
			CustomerName:  w.Name,
			CustomerPhone: w.Phone,
			OrderType:     w.OrderType,
			Status:        w.Status,
			TotalPrice:    pricing.Money(w.TotalPrice),
			CreatedAt:     parseTime(w.CreatedAt),
			Items:         make([]pricing.LineItem, 0, len(w.Items)),
		},
		SpecialRequest: w.SpecialRequest,
	}
	if w.DeliveryAddress != nil {
		rec.DeliveryAddress = *w.DeliveryAddress
	}
	for _, it := range w.Items {
		rec.Items = append(rec.Items, pricing.LineItem{Name: it.ItemName, Quantity: it.Quantity, UnitPrice: pricing.Money(it.PricePerItem)})
	}
	return rec
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Reservation is a table booking in the backend's field names.
type Reservation struct {
	ID             int64  `json:"id,omitempty"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	Date           string `json:"reservation_date"`
	Time           string `json:"reservation_time"`
	PeopleCount    int    `json:"people_count"`
	SpecialRequest string `json:"special_request,omitempty"`
	Status         string `json:"status,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// Session is the result of a successful admin login.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Profile describes the admin owning a token.
type Profile struct {
	Username string `json:"username"`
}
