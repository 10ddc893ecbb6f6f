package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Total   *int            `json:"total"`
}

func newTestAPI() (*erpcrmAPI, *http.ServeMux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := newERPCRMAPI(logger)
	mux := http.NewServeMux()
	api.register(mux)
	return api, mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://example.test"+path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: body not an envelope: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, env
}

func createCustomer(t *testing.T, mux *http.ServeMux, body string) customer {
	t.Helper()
	rec, env := doRequest(t, mux, http.MethodPost, "/api/crm/customers", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer status=%d body=%s", rec.Code, rec.Body.String())
	}
	var c customer
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("decode customer: %v", err)
	}
	return c
}

func createTicket(t *testing.T, mux *http.ServeMux, body string) ticket {
	t.Helper()
	rec, env := doRequest(t, mux, http.MethodPost, "/api/crm/tickets", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ticket status=%d body=%s", rec.Code, rec.Body.String())
	}
	var tk ticket
	if err := json.Unmarshal(env.Data, &tk); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	return tk
}

func TestCreateCustomer_IDFormatAndDefaults(t *testing.T) {
	_, mux := newTestAPI()
	c := createCustomer(t, mux, `{"company":"Acme","contact":"Jo","email":"jo@acme.example"}`)

	if !regexp.MustCompile(`^CUST-\d{3}$`).MatchString(c.ID) {
		t.Fatalf("id=%q, want CUST-NNN", c.ID)
	}
	if c.Status != "active" {
		t.Fatalf("status=%q, want active", c.Status)
	}
	if c.LastSyncedAt != nil {
		t.Fatalf("fresh customer already synced: %+v", c)
	}
}

func TestCreateTicket_DefaultsOpenMedium(t *testing.T) {
	_, mux := newTestAPI()
	c := createCustomer(t, mux, `{"company":"Acme"}`)

	tk := createTicket(t, mux, `{"customerId":"`+c.ID+`","subject":"Slow portal"}`)
	if tk.Status != "open" || tk.Priority != "medium" {
		t.Fatalf("defaults wrong: %+v", tk)
	}
	if !regexp.MustCompile(`^TICK-\d{3}$`).MatchString(tk.ID) {
		t.Fatalf("id=%q", tk.ID)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	_, mux := newTestAPI()
	rec, env := doRequest(t, mux, http.MethodGet, "/api/crm/customers/CUST-404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
	if env.Success || env.Message != "Customer not found" {
		t.Fatalf("envelope: %+v", env)
	}
}

func TestUpdateCustomer_PartialMerge(t *testing.T) {
	_, mux := newTestAPI()
	c := createCustomer(t, mux, `{"company":"Acme","contact":"Jo","email":"jo@acme.example"}`)

	_, env := doRequest(t, mux, http.MethodPatch, "/api/crm/customers/"+c.ID, `{"status":"inactive"}`)
	var updated customer
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != "inactive" {
		t.Fatalf("status=%q", updated.Status)
	}
	if updated.Company != "Acme" || updated.Contact != "Jo" {
		t.Fatalf("merge clobbered fields: %+v", updated)
	}
}

func TestListTickets_CustomerFilter(t *testing.T) {
	_, mux := newTestAPI()
	c1 := createCustomer(t, mux, `{"company":"A"}`)
	c2 := createCustomer(t, mux, `{"company":"B"}`)
	createTicket(t, mux, `{"customerId":"`+c1.ID+`","subject":"a1"}`)
	createTicket(t, mux, `{"customerId":"`+c2.ID+`","subject":"b1"}`)
	createTicket(t, mux, `{"customerId":"`+c1.ID+`","subject":"a2"}`)

	_, env := doRequest(t, mux, http.MethodGet, "/api/crm/tickets?customerId="+c1.ID, "")
	var list []ticket
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d, want 2", len(list))
	}
	if env.Total == nil || *env.Total != 2 {
		t.Fatalf("total=%v", env.Total)
	}
	for _, tk := range list {
		if tk.CustomerID != c1.ID {
			t.Fatalf("filter leaked %+v", tk)
		}
	}
}

func TestCreateWorkOrder_Defaults(t *testing.T) {
	_, mux := newTestAPI()
	rec, env := doRequest(t, mux, http.MethodPost, "/api/erp/work-orders", `{"description":"Replace valve"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d", rec.Code)
	}
	var wo workOrder
	if err := json.Unmarshal(env.Data, &wo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wo.Status != "pending" {
		t.Fatalf("status=%q, want pending", wo.Status)
	}
	if !regexp.MustCompile(`^WO-\d{3}$`).MatchString(wo.ID) {
		t.Fatalf("id=%q", wo.ID)
	}
}

func TestUpdateInventory_PartialMerge(t *testing.T) {
	_, mux := newTestAPI()
	_, env := doRequest(t, mux, http.MethodPost, "/api/erp/inventory", `{"sku":"PUMP-1","name":"Pump","quantity":10,"reorderLevel":4}`)
	var it inventoryItem
	if err := json.Unmarshal(env.Data, &it); err != nil {
		t.Fatalf("decode: %v", err)
	}

	_, env = doRequest(t, mux, http.MethodPatch, "/api/erp/inventory/"+it.ID, `{"quantity":2}`)
	var updated inventoryItem
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Quantity != 2 || updated.ReorderLevel != 4 || updated.SKU != "PUMP-1" {
		t.Fatalf("merge wrong: %+v", updated)
	}
}

func TestSeed_LoadsAndEscalatesHighTickets(t *testing.T) {
	api, _ := newTestAPI()
	if err := api.loadSeed(); err != nil {
		t.Fatalf("loadSeed() err=%v", err)
	}
	if api.customers.Len() == 0 || api.inventory.Len() == 0 {
		t.Fatalf("seed left stores empty")
	}
	// the fixture has one open high-priority ticket
	if api.workOrders.Len() != 1 {
		t.Fatalf("workOrders=%d, want 1 from escalation", api.workOrders.Len())
	}
}
