package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opsline/opsline-go/internal/memstore"
	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type erpcrmAPI struct {
	logger     *slog.Logger
	customers  *memstore.Store[customer]
	tickets    *memstore.Store[ticket]
	workOrders *memstore.Store[workOrder]
	inventory  *memstore.Store[inventoryItem]
	logs       *memstore.Store[integrationLogEntry]
	now        func() time.Time
}

func newERPCRMAPI(logger *slog.Logger) *erpcrmAPI {
	return &erpcrmAPI{
		logger:     logger,
		customers:  memstore.New("CUST", func(c customer) string { return c.ID }),
		tickets:    memstore.New("TICK", func(tk ticket) string { return tk.ID }),
		workOrders: memstore.New("WO", func(wo workOrder) string { return wo.ID }),
		inventory:  memstore.New("INV", func(it inventoryItem) string { return it.ID }),
		logs:       memstore.New("LOG", func(e integrationLogEntry) string { return e.ID }),
		now:        time.Now,
	}
}

func (api *erpcrmAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/crm/customers", api.handleListCustomers)
	mux.HandleFunc("POST /api/crm/customers", api.handleCreateCustomer)
	mux.HandleFunc("GET /api/crm/customers/{id}", api.handleGetCustomer)
	mux.HandleFunc("PATCH /api/crm/customers/{id}", api.handleUpdateCustomer)

	mux.HandleFunc("GET /api/crm/tickets", api.handleListTickets)
	mux.HandleFunc("POST /api/crm/tickets", api.handleCreateTicket)
	mux.HandleFunc("GET /api/crm/tickets/{id}", api.handleGetTicket)
	mux.HandleFunc("PATCH /api/crm/tickets/{id}", api.handleUpdateTicket)

	mux.HandleFunc("GET /api/erp/work-orders", api.handleListWorkOrders)
	mux.HandleFunc("POST /api/erp/work-orders", api.handleCreateWorkOrder)
	mux.HandleFunc("GET /api/erp/work-orders/{id}", api.handleGetWorkOrder)
	mux.HandleFunc("PATCH /api/erp/work-orders/{id}", api.handleUpdateWorkOrder)

	mux.HandleFunc("GET /api/erp/inventory", api.handleListInventory)
	mux.HandleFunc("POST /api/erp/inventory", api.handleCreateInventoryItem)
	mux.HandleFunc("PATCH /api/erp/inventory/{id}", api.handleUpdateInventoryItem)

	mux.HandleFunc("GET /api/integration/logs", api.handleListLogs)
	mux.HandleFunc("POST /api/integration/sync", api.handleSync)

	mux.HandleFunc("GET /api/dashboard/stats", api.handleDashboard)
}

type customer struct {
	ID           string     `json:"id"`
	Company      string     `json:"company"`
	Contact      string     `json:"contact,omitempty"`
	Email        string     `json:"email,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

type ticket struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	Subject      string    `json:"subject"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

type workOrder struct {
	ID           string     `json:"id"`
	TicketID     string     `json:"ticketId,omitempty"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastModified time.Time  `json:"lastModified"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

type inventoryItem struct {
	ID           string     `json:"id"`
	SKU          string     `json:"sku"`
	Name         string     `json:"name"`
	Quantity     int        `json:"quantity"`
	ReorderLevel int        `json:"reorderLevel"`
	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`
}

type integrationLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Operation string    `json:"operation"`
	Detail    string    `json:"detail,omitempty"`
}

func (api *erpcrmAPI) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	list := api.customers.List(func(c customer) bool {
		return status == "" || c.Status == status
	})
	httpserver.WriteList(w, list, len(list))
}

type createCustomerRequest struct {
	Company string `json:"company"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

func (api *erpcrmAPI) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created := api.customers.Insert(func(id string) customer {
		return customer{
			ID:        id,
			Company:   strings.TrimSpace(req.Company),
			Contact:   strings.TrimSpace(req.Contact),
			Email:     strings.TrimSpace(req.Email),
			Status:    "active",
			CreatedAt: api.now().UTC(),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *erpcrmAPI) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, ok := api.customers.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, c)
}

type updateCustomerRequest struct {
	Company *string `json:"company"`
	Contact *string `json:"contact"`
	Email   *string `json:"email"`
	Status  *string `json:"status"`
}

func (api *erpcrmAPI) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req updateCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.customers.Update(r.PathValue("id"), func(c customer) customer {
		if req.Company != nil {
			c.Company = *req.Company
		}
		if req.Contact != nil {
			c.Contact = *req.Contact
		}
		if req.Email != nil {
			c.Email = *req.Email
		}
		if req.Status != nil {
			c.Status = *req.Status
		}
		return c
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Customer not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *erpcrmAPI) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID := strings.TrimSpace(q.Get("customerId"))
	status := strings.TrimSpace(q.Get("status"))
	priority := strings.TrimSpace(q.Get("priority"))

	list := api.tickets.List(func(tk ticket) bool {
		if customerID != "" && tk.CustomerID != customerID {
			return false
		}
		if status != "" && tk.Status != status {
			return false
		}
		if priority != "" && tk.Priority != priority {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createTicketRequest struct {
	CustomerID string `json:"customerId"`
	Subject    string `json:"subject"`
	Priority   string `json:"priority"`
}

func (api *erpcrmAPI) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	priority := strings.TrimSpace(req.Priority)
	if priority == "" {
		priority = "medium"
	}
	now := api.now().UTC()
	created := api.tickets.Insert(func(id string) ticket {
		return ticket{
			ID:           id,
			CustomerID:   strings.TrimSpace(req.CustomerID),
			Subject:      strings.TrimSpace(req.Subject),
			Priority:     priority,
			Status:       "open",
			CreatedAt:    now,
			LastModified: now,
		}
	})

	// integration rule: high-priority tickets escalate straight into an
	// ERP work order
	if created.Priority == "high" {
		api.escalateTicket(created)
	}

	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *erpcrmAPI) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	tk, ok := api.tickets.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, tk)
}

type updateTicketRequest struct {
	Subject  *string `json:"subject"`
	Priority *string `json:"priority"`
	Status   *string `json:"status"`
}

func (api *erpcrmAPI) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req updateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.tickets.Update(r.PathValue("id"), func(tk ticket) ticket {
		if req.Subject != nil {
			tk.Subject = *req.Subject
		}
		if req.Priority != nil {
			tk.Priority = *req.Priority
		}
		if req.Status != nil {
			tk.Status = *req.Status
		}
		tk.LastModified = api.now().UTC()
		return tk
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *erpcrmAPI) handleListWorkOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticketID := strings.TrimSpace(q.Get("ticketId"))
	status := strings.TrimSpace(q.Get("status"))

	list := api.workOrders.List(func(wo workOrder) bool {
		if ticketID != "" && wo.TicketID != ticketID {
			return false
		}
		if status != "" && wo.Status != status {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createWorkOrderRequest struct {
	TicketID    string `json:"ticketId"`
	Description string `json:"description"`
}

func (api *erpcrmAPI) handleCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req createWorkOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	now := api.now().UTC()
	created := api.workOrders.Insert(func(id string) workOrder {
		return workOrder{
			ID:           id,
			TicketID:     strings.TrimSpace(req.TicketID),
			Description:  strings.TrimSpace(req.Description),
			Status:       "pending",
			CreatedAt:    now,
			LastModified: now,
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *erpcrmAPI) handleGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	wo, ok := api.workOrders.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Work order not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, wo)
}

type updateWorkOrderRequest struct {
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (api *erpcrmAPI) handleUpdateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req updateWorkOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	wasCompleted := false
	updated, ok := api.workOrders.Update(r.PathValue("id"), func(wo workOrder) workOrder {
		wasCompleted = wo.Status == "completed"
		if req.Description != nil {
			wo.Description = *req.Description
		}
		if req.Status != nil {
			wo.Status = *req.Status
		}
		wo.LastModified = api.now().UTC()
		return wo
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Work order not found")
		return
	}

	// integration rule: completing a work order resolves its linked
	// ticket, once per transition
	if !wasCompleted && updated.Status == "completed" && updated.TicketID != "" {
		api.resolveLinkedTicket(updated)
	}

	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *erpcrmAPI) handleListInventory(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimSpace(r.URL.Query().Get("sku"))
	list := api.inventory.List(func(it inventoryItem) bool {
		return sku == "" || it.SKU == sku
	})
	httpserver.WriteList(w, list, len(list))
}

type createInventoryItemRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorderLevel"`
}

func (api *erpcrmAPI) handleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req createInventoryItemRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created := api.inventory.Insert(func(id string) inventoryItem {
		return inventoryItem{
			ID:           id,
			SKU:          strings.TrimSpace(req.SKU),
			Name:         strings.TrimSpace(req.Name),
			Quantity:     req.Quantity,
			ReorderLevel: req.ReorderLevel,
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

type updateInventoryItemRequest struct {
	Name         *string `json:"name"`
	Quantity     *int    `json:"quantity"`
	ReorderLevel *int    `json:"reorderLevel"`
}

func (api *erpcrmAPI) handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req updateInventoryItemRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.inventory.Update(r.PathValue("id"), func(it inventoryItem) inventoryItem {
		if req.Name != nil {
			it.Name = *req.Name
		}
		if req.Quantity != nil {
			it.Quantity = *req.Quantity
		}
		if req.ReorderLevel != nil {
			it.ReorderLevel = *req.ReorderLevel
		}
		return it
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Inventory item not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(dst)
}
