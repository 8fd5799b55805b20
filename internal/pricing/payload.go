package pricing

import "github.com/shopspring/decimal"

// OrderType distinguishes pickup from delivery orders.
type OrderType string

const (
	OrderPickup   OrderType = "pickup"
	OrderDelivery OrderType = "delivery"
)

// Customer carries the contact data attached to an order.
type Customer struct {
	Name  string
	Phone string
	// DeliveryAddress is only sent for delivery orders.
	DeliveryAddress string
	// PickupPaymentMethod is only sent for pickup orders.
	PickupPaymentMethod string
}

// OrderPayload is the submission body forwarded to the order backend.
type OrderPayload struct {
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	OrderType           OrderType  `json:"order_type"`
	TotalPrice          Money      `json:"total_price"`
	SpecialRequest      string     `json:"special_request"`
	Items               []LineItem `json:"items"`
	DeliveryAddress     string     `json:"delivery_address,omitempty"`
	PickupPaymentMethod string     `json:"pickup_payment_method,omitempty"`
	Totals              Totals     `json:"-"`
}

// BuildOrderPayload packages the selection into a submission payload. Prices
// are resolved from the catalog at call time and TotalPrice includes tax.
func BuildOrderPayload(sel Selection, catalog Catalog, customer Customer, orderType OrderType, specialRequest string, taxRate decimal.Decimal) OrderPayload {
	totals := ComputeTotals(catalog, sel, taxRate)
	p := OrderPayload{
		Name:           customer.Name,
		Phone:          customer.Phone,
		OrderType:      orderType,
		TotalPrice:     totals.Total,
		SpecialRequest: specialRequest,
		Items:          LineItems(catalog, sel),
		Totals:         totals,
	}
	switch orderType {
	case OrderDelivery:
		p.DeliveryAddress = customer.DeliveryAddress
	case OrderPickup:
		p.PickupPaymentMethod = customer.PickupPaymentMethod
	}
	return p
}
