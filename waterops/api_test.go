package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/opsline/opsline-go/internal/platform/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Total   *int            `json:"total"`
}

func newTestAPI(t *testing.T) (*waterOpsAPI, *http.ServeMux, *http.Cookie) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions, err := session.NewManager(session.Config{CookieName: "waterops_session", TTL: time.Hour})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	api := newWaterOpsAPI(logger, newMemoryStorage(), sessions)
	mux := http.NewServeMux()
	api.register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "http://example.test/api/auth/register",
		strings.NewReader(`{"username":"operator","password":"correct horse"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "http://example.test/api/auth/login",
		strings.NewReader(`{"username":"operator","password":"correct horse"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("login set no cookie")
	}
	return api, mux, cookies[0]
}

func doRequest(t *testing.T, mux *http.ServeMux, cookie *http.Cookie, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://example.test"+path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: body not an envelope: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, env
}

func createLeak(t *testing.T, mux *http.ServeMux, cookie *http.Cookie, body string) leak {
	t.Helper()
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/leaks", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create leak status=%d body=%s", rec.Code, rec.Body.String())
	}
	var lk leak
	if err := json.Unmarshal(env.Data, &lk); err != nil {
		t.Fatalf("decode leak: %v", err)
	}
	return lk
}

func TestCreateCustomer_IDFormat(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/customers",
		`{"name":"Dana Reyes","email":"dana@example.com","meterNumber":"MTR-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var c customer
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !regexp.MustCompile(`^CUST-\d{3}$`).MatchString(c.ID) {
		t.Fatalf("id=%q, want CUST-NNN", c.ID)
	}
}

func TestCreateCustomer_ValidationDetail(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/customers", `{"address":"nowhere"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
	if env.Success || env.Message != "Validation failed" {
		t.Fatalf("envelope: %+v", env)
	}
	var detail []string
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(detail) != 2 {
		t.Fatalf("detail=%v, want name and email complaints", detail)
	}
}

func TestCreateReading_RejectsNonPositiveGallons(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/readings",
		`{"customerId":"CUST-001","gallons":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
	var detail []string
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	found := false
	for _, d := range detail {
		if strings.Contains(d, "gallons") {
			found = true
		}
	}
	if !found {
		t.Fatalf("detail=%v, want gallons complaint", detail)
	}
}

func TestCreateReading_RequiresExistingCustomer(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/readings",
		`{"customerId":"CUST-404","gallons":100}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
	if env.Message != "Customer not found" {
		t.Fatalf("message=%q", env.Message)
	}
}

func TestCreateLeak_SpawnsCompanionAlert(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	lk := createLeak(t, mux, cookie, `{"location":"Main St","severity":"moderate"}`)

	if lk.Status != "reported" {
		t.Fatalf("status=%q, want reported", lk.Status)
	}
	if !regexp.MustCompile(`^LEAK-\d{3}$`).MatchString(lk.ID) {
		t.Fatalf("id=%q", lk.ID)
	}

	_, env := doRequest(t, mux, cookie, http.MethodGet, "/api/alerts", "")
	var alerts []alert
	if err := json.Unmarshal(env.Data, &alerts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts=%d, want exactly 1 per leak", len(alerts))
	}
	if alerts[0].LeakID != lk.ID || alerts[0].Severity != "warning" || alerts[0].Status != "open" {
		t.Fatalf("companion alert: %+v", alerts[0])
	}
}

func TestCreateLeak_CriticalSeverityMapsToCriticalAlert(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	lk := createLeak(t, mux, cookie, `{"location":"Pump house","severity":"critical"}`)

	_, env := doRequest(t, mux, cookie, http.MethodGet, "/api/alerts?severity=critical", "")
	var alerts []alert
	if err := json.Unmarshal(env.Data, &alerts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(alerts) != 1 || alerts[0].LeakID != lk.ID {
		t.Fatalf("critical alerts: %+v", alerts)
	}
}

func TestCreateLeak_RejectsUnknownSeverity(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, _ := doRequest(t, mux, cookie, http.MethodPost, "/api/leaks",
		`{"location":"Main St","severity":"catastrophic"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
}

func TestUpdateLeak_PartialMergeRefreshesLastModified(t *testing.T) {
	api, mux, cookie := newTestAPI(t)
	lk := createLeak(t, mux, cookie, `{"location":"Main St","severity":"low","description":"drip"}`)

	later := lk.LastModified.Add(time.Minute)
	api.now = func() time.Time { return later }

	_, env := doRequest(t, mux, cookie, http.MethodPatch, "/api/leaks/"+lk.ID, `{"status":"repair_scheduled"}`)
	var updated leak
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != "repair_scheduled" {
		t.Fatalf("status=%q", updated.Status)
	}
	if updated.Location != "Main St" || updated.Description != "drip" {
		t.Fatalf("merge clobbered fields: %+v", updated)
	}
	if !updated.LastModified.After(lk.LastModified) {
		t.Fatalf("lastModified not refreshed: %v -> %v", lk.LastModified, updated.LastModified)
	}
}

func TestCreateWorkOrder_UnknownLeak404(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/work-orders",
		`{"leakId":"LEAK-404","description":"dig"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
	if env.Message != "Leak not found" {
		t.Fatalf("message=%q", env.Message)
	}
}

func TestListLeaks_LocationSubstringFilter(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	createLeak(t, mux, cookie, `{"location":"Cedar Mill Rd","severity":"low"}`)
	createLeak(t, mux, cookie, `{"location":"Harbor View Ave","severity":"low"}`)

	_, env := doRequest(t, mux, cookie, http.MethodGet, "/api/leaks?location=cedar", "")
	var list []leak
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || !strings.Contains(list[0].Location, "Cedar") {
		t.Fatalf("filter result: %+v", list)
	}
}

func TestMalformedJSON_400(t *testing.T) {
	_, mux, cookie := newTestAPI(t)
	rec, env := doRequest(t, mux, cookie, http.MethodPost, "/api/customers", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rec.Code)
	}
	if env.Message != "Invalid JSON body" {
		t.Fatalf("message=%q", env.Message)
	}
}

func TestSeed_LoadsWithAlerts(t *testing.T) {
	api, _, _ := newTestAPI(t)
	ctx := context.Background()
	if err := api.loadSeed(ctx); err != nil {
		t.Fatalf("loadSeed() err=%v", err)
	}
	leaks, _ := api.store.ListLeaks(ctx)
	alerts, _ := api.store.ListAlerts(ctx)
	if len(leaks) == 0 || len(alerts) != len(leaks) {
		t.Fatalf("leaks=%d alerts=%d, want one alert per leak", len(leaks), len(alerts))
	}
}
