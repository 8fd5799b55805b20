package analytics_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/analytics"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestAggregateEmpty(t *testing.T) {
	report := analytics.Aggregate(nil, time.UTC)
	require.Zero(t, report.TotalOrders)
	require.Zero(t, report.TotalRevenue)
	require.Zero(t, report.DistinctCustomers)
	require.NotNil(t, report.Daily)
	require.NotNil(t, report.TopItems)
	require.Empty(t, report.Daily)
	require.Empty(t, report.TopItems)
}

func TestAggregateSameDay(t *testing.T) {
	orders := []analytics.HistoricalOrder{
		{ID: 1, CustomerPhone: "555-1", TotalPrice: 1000, CreatedAt: at(t, "2025-03-01T09:00:00Z")},
		{ID: 2, CustomerPhone: "555-2", TotalPrice: 1500, CreatedAt: at(t, "2025-03-01T12:30:00Z")},
		{ID: 3, CustomerPhone: "555-1", TotalPrice: 500, CreatedAt: at(t, "2025-03-01T20:15:00Z")},
	}
	report := analytics.Aggregate(orders, time.UTC)
	require.Equal(t, 3, report.TotalOrders)
	require.Equal(t, int64(3000), report.TotalRevenue)
	require.Equal(t, 2, report.DistinctCustomers)
	require.Equal(t, []analytics.DailySummary{
		{Day: "2025-03-01", OrderCount: 3, Revenue: 3000, DistinctCustomers: 2},
	}, report.Daily)
}

func TestAggregateUsesViewerTimeZone(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	orders := []analytics.HistoricalOrder{
		// 03:00 UTC on the 2nd is still the evening of the 1st in Chicago
		{CustomerPhone: "a", TotalPrice: 100, CreatedAt: at(t, "2025-03-02T03:00:00Z")},
		{CustomerPhone: "b", TotalPrice: 200, CreatedAt: at(t, "2025-03-01T18:00:00Z")},
	}
	utc := analytics.Aggregate(orders, time.UTC)
	require.Len(t, utc.Daily, 2)
	require.Equal(t, "2025-03-01", utc.Daily[0].Day)
	require.Equal(t, "2025-03-02", utc.Daily[1].Day)

	local := analytics.Aggregate(orders, chicago)
	require.Equal(t, []analytics.DailySummary{
		{Day: "2025-03-01", OrderCount: 2, Revenue: 300, DistinctCustomers: 2},
	}, local.Daily)
}

func TestAggregatePhonesAreNotNormalised(t *testing.T) {
	orders := []analytics.HistoricalOrder{
		{CustomerPhone: "(555) 010-0000", CreatedAt: at(t, "2025-03-01T10:00:00Z")},
		{CustomerPhone: "5550100000", CreatedAt: at(t, "2025-03-01T11:00:00Z")},
	}
	require.Equal(t, 2, analytics.Aggregate(orders, time.UTC).DistinctCustomers)
}

func TestAggregateTopItems(t *testing.T) {
	ts := at(t, "2025-03-01T10:00:00Z")
	orders := []analytics.HistoricalOrder{
		{CreatedAt: ts, Items: []pricing.LineItem{{Name: "Doro Wot", Quantity: 3}}},
		{CreatedAt: ts, Items: []pricing.LineItem{{Name: "Doro Wot", Quantity: 2}}},
		{CreatedAt: ts, Items: []pricing.LineItem{{Name: "Kitfo", Quantity: 4}}},
	}
	report := analytics.Aggregate(orders, time.UTC)
	require.Equal(t, []analytics.ItemRank{
		{Name: "Doro Wot", TotalQuantity: 5},
		{Name: "Kitfo", TotalQuantity: 4},
	}, report.TopItems)
}

func TestAggregateTopItemsStableAndTruncated(t *testing.T) {
	ts := at(t, "2025-03-01T10:00:00Z")
	orders := []analytics.HistoricalOrder{
		{CreatedAt: ts, Items: []pricing.LineItem{
			{Name: "Tej", Quantity: 1}, {Name: "Kitfo", Quantity: 1}, {Name: "", Quantity: 9},
			{Name: "Shiro Wot", Quantity: 1}, {Name: "Tibs", Quantity: 2},
		}},
		{CreatedAt: ts, Items: []pricing.LineItem{{Name: "Misir", Quantity: 1}, {Name: "Latte", Quantity: 1}}},
		{CreatedAt: ts, Items: nil},
	}
	report := analytics.Aggregate(orders, time.UTC)
	names := make([]string, 0, len(report.TopItems))
	for _, r := range report.TopItems {
		names = append(names, r.Name)
	}
	require.Equal(t, []string{"Tibs", "Tej", "Kitfo", "Shiro Wot", "Misir"}, names)
}
