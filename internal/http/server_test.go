package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/services"
	"tracker/internal/tables"
	"tracker/internal/tables/memory"
)

type downStore struct{}

func (downStore) Load(_ context.Context, name string) tables.Outcome {
	return tables.UnreachableTable(name, errors.New("dial tcp: connection refused"))
}

func (downStore) Append(context.Context, string, []core.Row) error {
	return errors.New("dial tcp: connection refused")
}

func newTestServer(t *testing.T, store tables.Store, strict bool) *Server {
	t.Helper()
	tr := services.NewTracker(store, services.Options{Strict: strict})
	srv := NewServer(":0", tr, Options{WritesPerMinute: 100})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
		if rr.Header().Get(log.RequestIDHeader) == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}

	down := newTestServer(t, downStore{}, false)
	if rr := do(t, down, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz on a down backend = %d, want 503", rr.Code)
	}
}

func TestCreateExpenseAndList(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	rr := do(t, srv, http.MethodPost, "/api/expenses",
		`{"fecha":"2024-03-01","concepto":"Nomina","cantidad":1000,"naturalesa":"ingreso"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodPost, "/api/expenses",
		`{"fecha":"2024-03-02","concepto":"Super","cantidad":50.5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	view := decode[services.ExpensesView](t, rr)
	if len(view.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(view.Rows))
	}
	if view.Balance.String() != "949.5" {
		t.Errorf("balance = %s, want 949.5", view.Balance)
	}
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)
	tests := []struct {
		name, path, body string
		want             int
	}{
		{"malformed json", "/api/expenses", `{"concepto":`, http.StatusBadRequest},
		{"unknown field", "/api/expenses", `{"concepto":"x","cantidad":1,"iva":21}`, http.StatusBadRequest},
		{"bad date", "/api/habits", `{"fecha":"01/03/2024"}`, http.StatusBadRequest},
		{"concept too long", "/api/expenses", `{"concepto":"` + strings.Repeat("x", 201) + `","cantidad":1}`, http.StatusUnprocessableEntity},
		{"bad nature", "/api/expenses", `{"concepto":"x","cantidad":1,"naturalesa":"Prestamo"}`, http.StatusUnprocessableEntity},
		{"negative steps", "/api/habits", `{"pasos":-1}`, http.StatusUnprocessableEntity},
		{"effort out of range", "/api/gym", `{"ejercicio":"Sentadilla","peso":80,"reps":10,"esfuerzo":11}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
			if e := decode[errorResponse](t, rr); e.Error == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestGymDefaultsAndSelection(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)

	rr := do(t, srv, http.MethodPost, "/api/gym", `{"fecha":"2024-03-01","ejercicio":"Hip thrust","peso":80,"reps":10}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	view := decode[services.GymView](t, rr)
	if view.Exercise != "Hip thrust" || len(view.Series) != 1 || view.Series[0].Volumen != 800 {
		t.Fatalf("view = %+v", view)
	}

	rr = do(t, srv, http.MethodGet, "/api/gym", "")
	view = decode[services.GymView](t, rr)
	if view.Exercise != "Prensa de piernas" {
		t.Errorf("default exercise = %q", view.Exercise)
	}

	rr = do(t, srv, http.MethodGet, "/api/gym?exercise=Hip+thrust", "")
	view = decode[services.GymView](t, rr)
	if len(view.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(view.Rows))
	}

	rr = do(t, srv, http.MethodGet, "/api/exercises", "")
	ex := decode[exercisesResponse](t, rr)
	if len(ex.Exercises) == 0 || ex.Exercises[0] != "Prensa de piernas" {
		t.Errorf("exercises = %v", ex.Exercises)
	}
}

func TestCreateHabitComputesPercentage(t *testing.T) {
	srv := newTestServer(t, memory.New(), false)
	rr := do(t, srv, http.MethodPost, "/api/habits",
		`{"fecha":"2024-03-01","ccccm":true,"hielo":true,"esport":true,"cepillo":true,"exfoliante":true,"lectura":true,"modo_avion":true,"prote":120,"pasos":10000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	view := decode[services.HabitsView](t, rr)
	if len(view.Series) != 1 || view.Series[0].Percentage != 100 {
		t.Errorf("series = %+v", view.Series)
	}
}

func TestUnreachablePolicy(t *testing.T) {
	lenient := newTestServer(t, downStore{}, false)
	rr := do(t, lenient, http.MethodGet, "/api/overview", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("lenient overview = %d", rr.Code)
	}
	ov := decode[services.Overview](t, rr)
	if len(ov.Habits.Warnings) == 0 || ov.Habits.Warnings[0].Status != tables.Unreachable.String() {
		t.Errorf("habits warnings = %+v", ov.Habits.Warnings)
	}

	strict := newTestServer(t, downStore{}, true)
	if rr := do(t, strict, http.MethodGet, "/api/habits", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("strict habits = %d, want 503", rr.Code)
	}
	if rr := do(t, strict, http.MethodPost, "/api/expenses", `{"concepto":"pan","cantidad":1}`); rr.Code != http.StatusInternalServerError {
		t.Errorf("append on a down backend = %d, want 500", rr.Code)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	tr := services.NewTracker(memory.New(), services.Options{})
	srv := NewServer(":0", tr, Options{WritesPerMinute: 1})
	defer srv.limiter.Stop()

	if rr := do(t, srv, http.MethodPost, "/api/habits", `{}`); rr.Code != http.StatusCreated {
		t.Fatalf("first write = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/habits", `{}`); rr.Code != http.StatusTooManyRequests {
		t.Errorf("second write = %d, want 429", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/habits", ""); rr.Code != http.StatusOK {
		t.Errorf("reads are not limited, got %d", rr.Code)
	}
}
