// Package backend talks to the Zemen order backend, which owns order and
// reservation storage, admin tokens and payment intents.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-zemen/internal/analytics"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

const maxResponseBytes = 8 << 20

// Doer executes HTTP requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type stdDoer struct{ c *http.Client }

func (d stdDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return d.c.Do(req.WithContext(ctx))
}

// Client is a typed client for the backend REST API. Admin calls take the
// token as an explicit argument.
type Client struct {
	BaseURL string
	HTTP    Doer
}

// New builds a client. A nil doer falls back to http.DefaultClient.
func New(baseURL string, doer Doer) *Client {
	if doer == nil {
		doer = stdDoer{c: http.DefaultClient}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: doer}
}

// SubmittedOrder is the backend's view of a freshly created order.
type SubmittedOrder = OrderRecord

// SubmitOrder forwards an order. The address is only sent for delivery orders.
func (c *Client) SubmitOrder(ctx context.Context, p pricing.OrderPayload, addr Address) (SubmittedOrder, error) {
	var out wireOrder
	if err := c.call(ctx, "submit_order", http.MethodPost, "/api/orders/submit/", "", newSubmitRequest(p, addr), &out); err != nil {
		return SubmittedOrder{}, err
	}
	return out.record(), nil
}

// CreatePaymentIntent asks the backend for a payment intent of amount cents
// and returns its client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount pricing.Money) (string, error) {
	var out struct {
		ClientSecret string `json:"client_secret"`
	}
	body := map[string]int64{"amount": amount}
	if err := c.call(ctx, "create_intent", http.MethodPost, "/api/orders/create-intent/", "", body, &out); err != nil {
		return "", err
	}
	if out.ClientSecret == "" {
		return "", &Error{Op: "create_intent", Status: http.StatusBadGateway, Code: "BACKEND_ERROR", Message: "backend returned no client secret"}
	}
	return out.ClientSecret, nil
}

// CreateReservation stores a reservation request.
func (c *Client) CreateReservation(ctx context.Context, r Reservation) (Reservation, error) {
	var out Reservation
	err := c.call(ctx, "create_reservation", http.MethodPost, "/api/orders/reservations/", "", r, &out)
	return out, err
}

// Login exchanges admin credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var out Session
	body := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, "login", http.MethodPost, "/api/orders/admin/login/", "", body, &out); err != nil {
		return Session{}, err
	}
	if out.Username == "" {
		out.Username = username
	}
	return out, nil
}

// Profile resolves the admin behind token.
func (c *Client) Profile(ctx context.Context, token string) (Profile, error) {
	var out Profile
	err := c.call(ctx, "profile", http.MethodGet, "/api/orders/profile/", token, nil, &out)
	return out, err
}

// Orders returns every order, newest first.
func (c *Client) Orders(ctx context.Context, token string) ([]OrderRecord, error) {
	var raw []json.RawMessage
	if err := c.call(ctx, "orders", http.MethodGet, "/api/orders/admin/orders/", token, nil, &raw); err != nil {
		return nil, err
	}
	return decodeOrders(raw), nil
}

// OrderHistory implements analytics.OrderSource.
func (c *Client) OrderHistory(ctx context.Context, token string) ([]analytics.HistoricalOrder, error) {
	records, err := c.Orders(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]analytics.HistoricalOrder, len(records))
	for i, r := range records {
		out[i] = r.HistoricalOrder
	}
	return out, nil
}

// Reservations lists every reservation, newest first.
func (c *Client) Reservations(ctx context.Context, token string) ([]Reservation, error) {
	out := []Reservation{}
	err := c.call(ctx, "reservations", http.MethodGet, "/api/orders/admin/reservations/", token, nil, &out)
	return out, err
}

// UpdateReservationStatus changes the status of reservation id.
func (c *Client) UpdateReservationStatus(ctx context.Context, token string, id int64, status string) (Reservation, error) {
	var out Reservation
	path := "/api/orders/admin/reservations/" + strconv.FormatInt(id, 10) + "/"
	err := c.call(ctx, "update_reservation", http.MethodPatch, path, token, map[string]string{"status": status}, &out)
	return out, err
}

// decodeOrders decodes each order on its own so one malformed record only
// loses its own items.
func decodeOrders(raw []json.RawMessage) []OrderRecord {
	out := make([]OrderRecord, 0, len(raw))
	for _, msg := range raw {
		var w wireOrder
		if err := json.Unmarshal(msg, &w); err != nil {
			var partial struct {
				ID         int64  `json:"id"`
				Name       string `json:"name"`
				Phone      string `json:"phone"`
				TotalPrice Amount `json:"total_price"`
				OrderType  string `json:"order_type"`
				Status     string `json:"status"`
				CreatedAt  string `json:"created_at"`
			}
			if json.Unmarshal(msg, &partial) != nil {
				continue
			}
			w = wireOrder{
				ID: partial.ID, Name: partial.Name, Phone: partial.Phone, TotalPrice: partial.TotalPrice,
				OrderType: partial.OrderType, Status: partial.Status, CreatedAt: partial.CreatedAt,
			}
		}
		out = append(out, w.record())
	}
	return out
}

func (c *Client) call(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend %s: encode: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		obs.Inc(obs.BackendRequestsTotal, op, "error")
		return transportError(op, err)
	}
	defer resp.Body.Close()
	obs.Inc(obs.BackendRequestsTotal, op, strconv.Itoa(resp.StatusCode/100)+"xx")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Status: http.StatusBadGateway, Code: "BACKEND_ERROR", Message: "malformed backend response", Err: err}
	}
	return nil
}
