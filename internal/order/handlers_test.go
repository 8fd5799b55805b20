package order_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/catalog"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/order"
	"github.com/noah-isme/backend-zemen/internal/pricing"
	"github.com/noah-isme/backend-zemen/internal/tasks"
)

type fakeBackend struct {
	payloads  []pricing.OrderPayload
	addresses []backend.Address
	err       error
	token     string
}

func (f *fakeBackend) SubmitOrder(_ context.Context, p pricing.OrderPayload, addr backend.Address) (backend.SubmittedOrder, error) {
	if f.err != nil {
		return backend.SubmittedOrder{}, f.err
	}
	f.payloads = append(f.payloads, p)
	f.addresses = append(f.addresses, addr)
	var rec backend.SubmittedOrder
	rec.ID = int64(len(f.payloads))
	rec.TotalPrice = p.TotalPrice
	rec.Status = "pending"
	return rec, nil
}

func (f *fakeBackend) Orders(_ context.Context, token string) ([]backend.OrderRecord, error) {
	f.token = token
	var rec backend.OrderRecord
	rec.ID = 7
	rec.CustomerPhone = "555"
	rec.TotalPrice = 1000
	return []backend.OrderRecord{rec}, nil
}

type fixture struct {
	backend *fakeBackend
	tasks   *tasks.Recorder
	audit   *audit.MemoryStore
	handler *order.Handler
}

func newFixture() *fixture {
	fb := &fakeBackend{}
	rec := &tasks.Recorder{}
	store := audit.NewMemoryStore()
	return &fixture{
		backend: fb,
		tasks:   rec,
		audit:   store,
		handler: &order.Handler{
			Svc: &order.Service{
				Backend: fb,
				Catalog: catalog.Default().Catalog(),
				TaxRate: pricing.DefaultTaxRate,
				Tasks:   rec,
			},
			Audit: &audit.Service{Store: store, Enabled: true},
		},
	}
}

func (f *fixture) submit(body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	f.handler.Submit(rec, req)
	return rec
}

func TestSubmitPickupOrder(t *testing.T) {
	f := newFixture()
	rec := f.submit(`{"name":"Hana","phone":"555-0100","order_type":"pickup",
		"items":{"Kitfo":2,"Tej":1},"client_total":4000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, f.backend.payloads, 1)
	p := f.backend.payloads[0]
	require.Equal(t, pricing.Money(4111), p.TotalPrice)
	require.Equal(t, order.PaymentStore, p.PickupPaymentMethod)
	require.Empty(t, p.DeliveryAddress)
	require.Equal(t, []pricing.LineItem{
		{Name: "Kitfo", Quantity: 2, UnitPrice: 1399},
		{Name: "Tej", Quantity: 1, UnitPrice: 1000},
	}, p.Items)

	var body struct {
		Data struct {
			Payload map[string]any `json:"payload"`
			Order   map[string]any `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, float64(4111), body.Data.Payload["total_price"])
	require.Equal(t, float64(1), body.Data.Order["id"])

	queued := f.tasks.Tasks()
	require.Len(t, queued, 1)
	require.Equal(t, tasks.TypeOrderSubmitted, queued[0].Type())
	var ev tasks.OrderSubmitted
	require.NoError(t, json.Unmarshal(queued[0].Payload(), &ev))
	require.Equal(t, int64(1), ev.OrderID)
	require.Equal(t, 3, ev.ItemCount)
	require.Equal(t, int64(4111), ev.Total)

	entries, _, err := f.audit.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "order.forwarded", entries[0].Action)
	require.Equal(t, "1", *entries[0].ResourceID)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Metadata, &meta))
	require.Equal(t, float64(3798), meta["subtotal"])
	require.Equal(t, float64(313), meta["tax"])
	require.NotContains(t, string(entries[0].Metadata), "Kitfo")
}

func TestSubmitDeliveryOrder(t *testing.T) {
	f := newFixture()
	rec := f.submit(`{"name":"Hana","phone":"555","order_type":"delivery",
		"street":"1 Main St","city":"Dallas","state":"TX","zip":"75001",
		"pickup_payment_method":"online","items":{"Doro Wot":1}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	p := f.backend.payloads[0]
	require.Equal(t, "1 Main St, Dallas, TX 75001", p.DeliveryAddress)
	require.Empty(t, p.PickupPaymentMethod)
	require.Equal(t, backend.Address{Street: "1 Main St", City: "Dallas", State: "TX", Zip: "75001"}, f.backend.addresses[0])
}

func TestSubmitValidation(t *testing.T) {
	cases := map[string]struct {
		body   string
		fields []string
	}{
		"missing contact": {
			body:   `{"order_type":"pickup","items":{"Kitfo":1}}`,
			fields: []string{"name", "phone"},
		},
		"bad order type": {
			body:   `{"name":"a","phone":"1","order_type":"dine-in","items":{"Kitfo":1}}`,
			fields: []string{"order_type"},
		},
		"delivery without address": {
			body:   `{"name":"a","phone":"1","order_type":"delivery","zip":"750","items":{"Kitfo":1}}`,
			fields: []string{"street", "city", "state", "zip"},
		},
		"bad payment method": {
			body:   `{"name":"a","phone":"1","order_type":"pickup","pickup_payment_method":"card","items":{"Kitfo":1}}`,
			fields: []string{"pickup_payment_method"},
		},
		"empty cart": {
			body:   `{"name":"a","phone":"1","order_type":"pickup","items":{}}`,
			fields: []string{"items"},
		},
		"quantity above cap": {
			body:   `{"name":"a","phone":"1","order_type":"pickup","items":{"Kitfo":3116784042491601337}}`,
			fields: []string{"items[Kitfo]"},
		},
		"zero quantity": {
			body:   `{"name":"a","phone":"1","order_type":"pickup","items":{"Kitfo":0}}`,
			fields: []string{"items[Kitfo]"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			rec := f.submit(tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body struct {
				Error struct {
					Code    string              `json:"code"`
					Details []common.FieldError `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			got := make([]string, 0, len(body.Error.Details))
			for _, d := range body.Error.Details {
				got = append(got, d.Field)
			}
			require.ElementsMatch(t, tc.fields, got)
			require.Empty(t, f.backend.payloads)
		})
	}
}

func TestSubmitUnknownItem(t *testing.T) {
	f := newFixture()
	rec := f.submit(`{"name":"a","phone":"1","order_type":"pickup","items":{"Kitfo":1,"Baklava":2}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.JSONEq(t, `{"error":{"code":"UNKNOWN_ITEM","message":"items are not on the menu","details":["Baklava"]}}`, rec.Body.String())
	require.Empty(t, f.backend.payloads)
	require.Empty(t, f.tasks.Tasks())
}

func TestSubmitBackendFailure(t *testing.T) {
	f := newFixture()
	f.backend.err = &backend.Error{Op: "submit_order", Status: 500, Code: "BACKEND_ERROR", Message: "boom"}
	rec := f.submit(`{"name":"a","phone":"1","order_type":"pickup","items":{"Kitfo":1}}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Empty(t, f.tasks.Tasks())

	f.backend.err = &backend.Error{Op: "submit_order", Status: 400, Code: "BACKEND_REJECTED", Message: "phone: invalid"}
	rec = f.submit(`{"name":"a","phone":"1","order_type":"pickup","items":{"Kitfo":1}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "phone: invalid")
}

func TestSubmitSurvivesEnqueueFailure(t *testing.T) {
	f := newFixture()
	f.tasks.Err = errors.New("redis down")
	rec := f.submit(`{"name":"a","phone":"1","order_type":"pickup","items":{"Kitfo":1}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminList(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req = req.WithContext(common.WithAdminSession(req.Context(), "tok", "manager"))
	rec = httptest.NewRecorder()
	f.handler.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "tok", f.backend.token)
	require.Contains(t, rec.Body.String(), `"id":7`)
}
