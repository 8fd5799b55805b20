package analytics

import (
	"sort"
	"time"

	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// TopItemsLimit bounds the best-seller ranking.
const TopItemsLimit = 5

// HistoricalOrder is an order record fetched from the order history endpoint.
type HistoricalOrder struct {
	ID            int64              `json:"id"`
	CustomerName  string             `json:"customer_name,omitempty"`
	CustomerPhone string             `json:"customer_phone"`
	OrderType     string             `json:"order_type,omitempty"`
	Status        string             `json:"status,omitempty"`
	TotalPrice    pricing.Money      `json:"total_price"`
	CreatedAt     time.Time          `json:"created_at"`
	Items         []pricing.LineItem `json:"items"`
}

// DailySummary aggregates the orders of one local calendar day.
type DailySummary struct {
	Day               string        `json:"day"`
	OrderCount        int           `json:"order_count"`
	Revenue           pricing.Money `json:"revenue"`
	DistinctCustomers int           `json:"distinct_customers"`
}

// ItemRank is one entry of the best-seller list.
type ItemRank struct {
	Name          string `json:"name"`
	TotalQuantity int    `json:"total_quantity"`
}

// Report is the dashboard view over a set of orders.
type Report struct {
	TotalOrders       int            `json:"total_orders"`
	TotalRevenue      pricing.Money  `json:"total_revenue"`
	DistinctCustomers int            `json:"distinct_customers"`
	Daily             []DailySummary `json:"daily"`
	TopItems          []ItemRank     `json:"top_items"`
}

type dayBucket struct {
	summary DailySummary
	phones  map[string]struct{}
}

// Aggregate summarises orders by calendar day in loc (time.Local when nil)
// and ranks items by quantity sold. Phone numbers are compared verbatim.
func Aggregate(orders []HistoricalOrder, loc *time.Location) Report {
	if loc == nil {
		loc = time.Local
	}
	report := Report{Daily: []DailySummary{}, TopItems: []ItemRank{}}
	phones := make(map[string]struct{})
	days := make(map[string]*dayBucket)
	qty := make(map[string]int)
	var seen []string

	for _, o := range orders {
		report.TotalOrders++
		report.TotalRevenue += o.TotalPrice
		phones[o.CustomerPhone] = struct{}{}

		key := o.CreatedAt.In(loc).Format("2006-01-02")
		b, ok := days[key]
		if !ok {
			b = &dayBucket{summary: DailySummary{Day: key}, phones: make(map[string]struct{})}
			days[key] = b
		}
		b.summary.OrderCount++
		b.summary.Revenue += o.TotalPrice
		b.phones[o.CustomerPhone] = struct{}{}

		for _, it := range o.Items {
			if it.Name == "" {
				continue
			}
			if _, ok := qty[it.Name]; !ok {
				seen = append(seen, it.Name)
			}
			qty[it.Name] += it.Quantity
		}
	}
	report.DistinctCustomers = len(phones)

	for _, b := range days {
		b.summary.DistinctCustomers = len(b.phones)
		report.Daily = append(report.Daily, b.summary)
	}
	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Day < report.Daily[j].Day })

	for _, name := range seen {
		report.TopItems = append(report.TopItems, ItemRank{Name: name, TotalQuantity: qty[name]})
	}
	sort.SliceStable(report.TopItems, func(i, j int) bool {
		return report.TopItems[i].TotalQuantity > report.TopItems[j].TotalQuantity
	})
	if len(report.TopItems) > TopItemsLimit {
		report.TopItems = report.TopItems[:TopItemsLimit]
	}
	return report
}
