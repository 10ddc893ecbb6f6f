package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opsline/opsline-go/internal/platform/httpserver"
	"github.com/opsline/opsline-go/internal/platform/session"
)

var leakSeverities = map[string]bool{
	"low":      true,
	"moderate": true,
	"major":    true,
	"critical": true,
}

type waterOpsAPI struct {
	logger   *slog.Logger
	store    storage
	sessions *session.Manager
	now      func() time.Time
}

func newWaterOpsAPI(logger *slog.Logger, store storage, sessions *session.Manager) *waterOpsAPI {
	return &waterOpsAPI{
		logger:   logger,
		store:    store,
		sessions: sessions,
		now:      time.Now,
	}
}

func (api *waterOpsAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", api.handleRegister)
	mux.HandleFunc("POST /api/auth/login", api.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", api.handleLogout)
	mux.HandleFunc("GET /api/auth/user", api.handleCurrentUser)

	mux.HandleFunc("GET /api/customers", api.guard(api.handleListCustomers))
	mux.HandleFunc("POST /api/customers", api.guard(api.handleCreateCustomer))
	mux.HandleFunc("GET /api/customers/{id}", api.guard(api.handleGetCustomer))
	mux.HandleFunc("PATCH /api/customers/{id}", api.guard(api.handleUpdateCustomer))

	mux.HandleFunc("GET /api/readings", api.guard(api.handleListReadings))
	mux.HandleFunc("POST /api/readings", api.guard(api.handleCreateReading))

	mux.HandleFunc("GET /api/leaks", api.guard(api.handleListLeaks))
	mux.HandleFunc("POST /api/leaks", api.guard(api.handleCreateLeak))
	mux.HandleFunc("GET /api/leaks/{id}", api.guard(api.handleGetLeak))
	mux.HandleFunc("PATCH /api/leaks/{id}", api.guard(api.handleUpdateLeak))

	mux.HandleFunc("GET /api/alerts", api.guard(api.handleListAlerts))
	mux.HandleFunc("PATCH /api/alerts/{id}", api.guard(api.handleUpdateAlert))

	mux.HandleFunc("GET /api/work-orders", api.guard(api.handleListWorkOrders))
	mux.HandleFunc("POST /api/work-orders", api.guard(api.handleCreateWorkOrder))
	mux.HandleFunc("PATCH /api/work-orders/{id}", api.guard(api.handleUpdateWorkOrder))

	mux.HandleFunc("GET /api/dashboard/stats", api.guard(api.handleDashboard))
}

func (api *waterOpsAPI) storageError(w http.ResponseWriter, op string, err error) {
	api.logger.Error("storage failure", "op", op, "error", err)
	httpserver.WriteError(w, http.StatusInternalServerError, "Storage failure")
}

func (api *waterOpsAPI) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.ListCustomers(r.Context())
	if err != nil {
		api.storageError(w, "list customers", err)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	filtered := []customer{}
	for _, c := range list {
		if name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			continue
		}
		filtered = append(filtered, c)
	}
	httpserver.WriteList(w, filtered, len(filtered))
}

type createCustomerRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	MeterNumber string `json:"meterNumber"`
}

func (req createCustomerRequest) validate() []string {
	var detail []string
	if strings.TrimSpace(req.Name) == "" {
		detail = append(detail, "name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		detail = append(detail, "email is required")
	}
	return detail
}

func (api *waterOpsAPI) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if detail := req.validate(); len(detail) > 0 {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed", detail)
		return
	}

	created, err := api.store.InsertCustomer(r.Context(), customer{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Address:     strings.TrimSpace(req.Address),
		MeterNumber: strings.TrimSpace(req.MeterNumber),
		CreatedAt:   api.now().UTC(),
	})
	if err != nil {
		api.storageError(w, "insert customer", err)
		return
	}
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *waterOpsAPI) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok, err := api.store.GetCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		api.storageError(w, "get customer", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, c)
}

type updateCustomerRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	MeterNumber *string `json:"meterNumber"`
}

func (api *waterOpsAPI) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req updateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var detail []string
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		detail = append(detail, "name must not be empty")
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
		detail = append(detail, "email must not be empty")
	}
	if len(detail) > 0 {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed", detail)
		return
	}

	updated, ok, err := api.store.UpdateCustomer(r.Context(), r.PathValue("id"), func(c customer) customer {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Email != nil {
			c.Email = *req.Email
		}
		if req.Address != nil {
			c.Address = *req.Address
		}
		if req.MeterNumber != nil {
			c.MeterNumber = *req.MeterNumber
		}
		return c
	})
	if err != nil {
		api.storageError(w, "update customer", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *waterOpsAPI) handleListReadings(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.ListReadings(r.Context())
	if err != nil {
		api.storageError(w, "list readings", err)
		return
	}
	customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))
	filtered := []reading{}
	for _, rd := range list {
		if customerID != "" && rd.CustomerID != customerID {
			continue
		}
		filtered = append(filtered, rd)
	}
	httpserver.WriteList(w, filtered, len(filtered))
}

type createReadingRequest struct {
	CustomerID  string  `json:"customerId"`
	Gallons     float64 `json:"gallons"`
	ReadingDate string  `json:"readingDate"`
}

func (req createReadingRequest) validate() []string {
	var detail []string
	if strings.TrimSpace(req.CustomerID) == "" {
		detail = append(detail, "customerId is required")
	}
	if req.Gallons <= 0 {
		detail = append(detail, "gallons must be greater than zero")
	}
	return detail
}

func (api *waterOpsAPI) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var req createReadingRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if detail := req.validate(); len(detail) > 0 {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed", detail)
		return
	}

	if _, ok, err := api.store.GetCustomer(r.Context(), req.CustomerID); err != nil {
		api.storageError(w, "get customer", err)
		return
	} else if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Customer not found")
		return
	}

	created, err := api.store.InsertReading(r.Context(), reading{
		CustomerID:  req.CustomerID,
		Gallons:     req.Gallons,
		ReadingDate: strings.TrimSpace(req.ReadingDate),
		CreatedAt:   api.now().UTC(),
	})
	if err != nil {
		api.storageError(w, "insert reading", err)
		return
	}
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *waterOpsAPI) handleListLeaks(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.ListLeaks(r.Context())
	if err != nil {
		api.storageError(w, "list leaks", err)
		return
	}
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	severity := strings.TrimSpace(q.Get("severity"))
	location := strings.TrimSpace(q.Get("location"))
	filtered := []leak{}
	for _, lk := range list {
		if status != "" && lk.Status != status {
			continue
		}
		if severity != "" && lk.Severity != severity {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(lk.Location), strings.ToLower(location)) {
			continue
		}
		filtered = append(filtered, lk)
	}
	httpserver.WriteList(w, filtered, len(filtered))
}

type createLeakRequest struct {
	Location    string `json:"location"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

func (req createLeakRequest) validate() []string {
	var detail []string
	if strings.TrimSpace(req.Location) == "" {
		detail = append(detail, "location is required")
	}
	if !leakSeverities[req.Severity] {
		detail = append(detail, "severity must be one of low, moderate, major, critical")
	}
	return detail
}

func (api *waterOpsAPI) handleCreateLeak(w http.ResponseWriter, r *http.Request) {
	var req createLeakRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if detail := req.validate(); len(detail) > 0 {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed", detail)
		return
	}

	now := api.now().UTC()
	created, companion, err := api.store.InsertLeakWithAlert(r.Context(), leak{
		Location:     strings.TrimSpace(req.Location),
		Severity:     req.Severity,
		Status:       "reported",
		Description:  strings.TrimSpace(req.Description),
		ReportedAt:   now,
		LastModified: now,
	}, func(leakID string) alert {
		severity := "warning"
		if req.Severity == "critical" {
			severity = "critical"
		}
		return alert{
			LeakID:    leakID,
			Severity:  severity,
			Message:   "Leak reported at " + strings.TrimSpace(req.Location),
			Status:    "open",
			CreatedAt: now,
		}
	})
	if err != nil {
		api.storageError(w, "insert leak", err)
		return
	}
	api.logger.Info("leak reported", "leak", created.ID, "alert", companion.ID, "severity", created.Severity)
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *waterOpsAPI) handleGetLeak(w http.ResponseWriter, r *http.Request) {
	lk, ok, err := api.store.GetLeak(r.Context(), r.PathValue("id"))
	if err != nil {
		api.storageError(w, "get leak", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Leak not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, lk)
}

type updateLeakRequest struct {
	Location    *string `json:"location"`
	Severity    *string `json:"severity"`
	Status      *string `json:"status"`
	Description *string `json:"description"`
}

func (api *waterOpsAPI) handleUpdateLeak(w http.ResponseWriter, r *http.Request) {
	var req updateLeakRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Severity != nil && !leakSeverities[*req.Severity] {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed",
			[]string{"severity must be one of low, moderate, major, critical"})
		return
	}

	updated, ok, err := api.store.UpdateLeak(r.Context(), r.PathValue("id"), func(lk leak) leak {
		if req.Location != nil {
			lk.Location = *req.Location
		}
		if req.Severity != nil {
			lk.Severity = *req.Severity
		}
		if req.Status != nil {
			lk.Status = *req.Status
		}
		if req.Description != nil {
			lk.Description = *req.Description
		}
		lk.LastModified = api.now().UTC()
		return lk
	})
	if err != nil {
		api.storageError(w, "update leak", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Leak not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *waterOpsAPI) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.ListAlerts(r.Context())
	if err != nil {
		api.storageError(w, "list alerts", err)
		return
	}
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	severity := strings.TrimSpace(q.Get("severity"))
	filtered := []alert{}
	for _, a := range list {
		if status != "" && a.Status != status {
			continue
		}
		if severity != "" && a.Severity != severity {
			continue
		}
		filtered = append(filtered, a)
	}
	httpserver.WriteList(w, filtered, len(filtered))
}

type updateAlertRequest struct {
	Status *string `json:"status"`
}

func (api *waterOpsAPI) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	var req updateAlertRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok, err := api.store.UpdateAlert(r.Context(), r.PathValue("id"), func(a alert) alert {
		if req.Status != nil {
			a.Status = *req.Status
		}
		return a
	})
	if err != nil {
		api.storageError(w, "update alert", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Alert not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *waterOpsAPI) handleListWorkOrders(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.ListWorkOrders(r.Context())
	if err != nil {
		api.storageError(w, "list work orders", err)
		return
	}
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	leakID := strings.TrimSpace(q.Get("leakId"))
	filtered := []workOrder{}
	for _, wo := range list {
		if status != "" && wo.Status != status {
			continue
		}
		if leakID != "" && wo.LeakID != leakID {
			continue
		}
		filtered = append(filtered, wo)
	}
	httpserver.WriteList(w, filtered, len(filtered))
}

type createWorkOrderRequest struct {
	LeakID      string `json:"leakId"`
	Description string `json:"description"`
}

func (api *waterOpsAPI) handleCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req createWorkOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		httpserver.WriteErrorDetail(w, http.StatusBadRequest, "Validation failed",
			[]string{"description is required"})
		return
	}
	if leakID := strings.TrimSpace(req.LeakID); leakID != "" {
		if _, ok, err := api.store.GetLeak(r.Context(), leakID); err != nil {
			api.storageError(w, "get leak", err)
			return
		} else if !ok {
			httpserver.WriteError(w, http.StatusNotFound, "Leak not found")
			return
		}
	}

	now := api.now().UTC()
	created, err := api.store.InsertWorkOrder(r.Context(), workOrder{
		LeakID:       strings.TrimSpace(req.LeakID),
		Description:  strings.TrimSpace(req.Description),
		Status:       "pending",
		CreatedAt:    now,
		LastModified: now,
	})
	if err != nil {
		api.storageError(w, "insert work order", err)
		return
	}
	httpserver.WriteData(w, http.StatusCreated, created)
}

type updateWorkOrderRequest struct {
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (api *waterOpsAPI) handleUpdateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req updateWorkOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok, err := api.store.UpdateWorkOrder(r.Context(), r.PathValue("id"), func(wo workOrder) workOrder {
		if req.Description != nil {
			wo.Description = *req.Description
		}
		if req.Status != nil {
			wo.Status = *req.Status
		}
		wo.LastModified = api.now().UTC()
		return wo
	})
	if err != nil {
		api.storageError(w, "update work order", err)
		return
	}
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Work order not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
