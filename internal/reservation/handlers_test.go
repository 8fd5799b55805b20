package reservation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/reservation"
	"github.com/noah-isme/backend-zemen/internal/tasks"
)

type fakeBackend struct {
	created []backend.Reservation
	updates []string
	err     error
}

func (f *fakeBackend) CreateReservation(_ context.Context, r backend.Reservation) (backend.Reservation, error) {
	if f.err != nil {
		return backend.Reservation{}, f.err
	}
	f.created = append(f.created, r)
	r.ID = int64(len(f.created))
	r.Status = reservation.StatusPending
	return r, nil
}

func (f *fakeBackend) Reservations(context.Context, string) ([]backend.Reservation, error) {
	return []backend.Reservation{{ID: 1, Name: "Sara", Status: "pending"}}, nil
}

func (f *fakeBackend) UpdateReservationStatus(_ context.Context, token string, id int64, status string) (backend.Reservation, error) {
	if f.err != nil {
		return backend.Reservation{}, f.err
	}
	f.updates = append(f.updates, token+":"+status)
	return backend.Reservation{ID: id, Status: status}, nil
}

func newHandler() (*reservation.Handler, *fakeBackend, *tasks.Recorder, *audit.MemoryStore) {
	fb := &fakeBackend{}
	rec := &tasks.Recorder{}
	store := audit.NewMemoryStore()
	return &reservation.Handler{
		Svc:   &reservation.Service{Backend: fb, Tasks: rec},
		Audit: &audit.Service{Store: store, Enabled: true},
	}, fb, rec, store
}

func TestCreateReservation(t *testing.T) {
	h, fb, queued, store := newHandler()
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(
		`{"name":" Sara ","phone":"555","email":"sara@example.com","date":"2025-04-01","time":"19:30","people_count":4}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, fb.created, 1)
	require.Equal(t, "Sara", fb.created[0].Name)
	require.Equal(t, "2025-04-01", fb.created[0].Date)
	require.Equal(t, "19:30", fb.created[0].Time)

	var body struct {
		Data backend.Reservation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.Data.ID)
	require.Equal(t, "pending", body.Data.Status)

	tasksOut := queued.Tasks()
	require.Len(t, tasksOut, 1)
	require.Equal(t, tasks.TypeReservationCreated, tasksOut[0].Type())

	entries, _, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "reservation.created", entries[0].Action)
}

func TestCreateReservationValidation(t *testing.T) {
	cases := map[string]string{
		"bad date":     `{"name":"a","phone":"1","date":"04/01/2025","time":"19:30","people_count":2}`,
		"bad time":     `{"name":"a","phone":"1","date":"2025-04-01","time":"7pm","people_count":2}`,
		"no people":    `{"name":"a","phone":"1","date":"2025-04-01","time":"19:30","people_count":0}`,
		"bad email":    `{"name":"a","phone":"1","email":"nope","date":"2025-04-01","time":"19:30","people_count":2}`,
		"missing name": `{"phone":"1","date":"2025-04-01","time":"19:30","people_count":2}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h, fb, _, _ := newHandler()
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body)))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
			require.Empty(t, fb.created)
		})
	}
}

func TestCreateReservationBackendDown(t *testing.T) {
	h, fb, queued, _ := newHandler()
	fb.err = &backend.Error{Op: "create_reservation", Code: "BACKEND_UNAVAILABLE", Message: "down"}
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(
		`{"name":"a","phone":"1","date":"2025-04-01","time":"19:30","people_count":2}`)))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Empty(t, queued.Tasks())
}

func adminRouter(h *reservation.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				r = r.WithContext(common.WithAdminSession(r.Context(), "tok", "manager"))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/api/v1/admin/reservations", h.List)
	r.Patch("/api/v1/admin/reservations/{id}", h.UpdateStatus)
	return r
}

func TestUpdateStatus(t *testing.T) {
	h, fb, _, store := newHandler()
	router := adminRouter(h)

	do := func(path, body string, authed bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
		if authed {
			req.Header.Set("Authorization", "Token tok")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/api/v1/admin/reservations/7", `{"status":"Confirmed"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, []string{"tok:confirmed"}, fb.updates)

	rec = do("/api/v1/admin/reservations/7", `{"status":"seated"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_STATUS")
	require.Len(t, fb.updates, 1)

	rec = do("/api/v1/admin/reservations/abc", `{"status":"confirmed"}`, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do("/api/v1/admin/reservations/7", `{"status":"confirmed"}`, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	fb.err = &backend.Error{Op: "update_reservation", Status: 404, Code: "NOT_FOUND", Message: "Not found."}
	rec = do("/api/v1/admin/reservations/99", `{"status":"cancelled"}`, true)
	require.Equal(t, http.StatusNotFound, rec.Code)

	entries, total, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, http.StatusNotFound, entries[0].Status)
	require.Equal(t, http.StatusBadRequest, entries[1].Status)
	require.Equal(t, "reservation.status_updated", entries[2].Action)
	require.Equal(t, "manager", *entries[2].Actor)
}

func TestListReservations(t *testing.T) {
	h, _, _, _ := newHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reservations", nil)
	req.Header.Set("Authorization", "Token tok")
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Sara"`)
}
