package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

func (api *erpcrmAPI) recordLog(source, target, operation, detail string) integrationLogEntry {
	return api.logs.Add(integrationLogEntry{
		ID:        uuid.NewString(),
		Timestamp: api.now().UTC(),
		Source:    source,
		Target:    target,
		Operation: operation,
		Detail:    detail,
	})
}

// escalateTicket opens an ERP work order for a high-priority CRM ticket
// and records the crossing in the integration log.
func (api *erpcrmAPI) escalateTicket(tk ticket) {
	now := api.now().UTC()
	wo := api.workOrders.Insert(func(id string) workOrder {
		return workOrder{
			ID:           id,
			TicketID:     tk.ID,
			Description:  "Auto-generated from ticket " + tk.ID + ": " + tk.Subject,
			Status:       "pending",
			CreatedAt:    now,
			LastModified: now,
		}
	})
	api.recordLog("crm", "erp", "ticket.escalated", tk.ID+" -> "+wo.ID)
	api.logger.Info("ticket escalated", "ticket", tk.ID, "workOrder", wo.ID)
}

// resolveLinkedTicket marks the ticket behind a completed work order as
// resolved. Missing tickets are logged and skipped.
func (api *erpcrmAPI) resolveLinkedTicket(wo workOrder) {
	resolved, ok := api.tickets.Update(wo.TicketID, func(tk ticket) ticket {
		tk.Status = "resolved"
		tk.LastModified = api.now().UTC()
		return tk
	})
	if !ok {
		api.logger.Warn("linked ticket missing", "workOrder", wo.ID, "ticket", wo.TicketID)
		return
	}
	api.recordLog("erp", "crm", "workorder.completed", wo.ID+" -> "+resolved.ID)
	api.logger.Info("ticket resolved", "ticket", resolved.ID, "workOrder", wo.ID)
}

func (api *erpcrmAPI) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := strings.TrimSpace(q.Get("source"))
	operation := strings.TrimSpace(q.Get("operation"))

	list := api.logs.List(func(e integrationLogEntry) bool {
		if source != "" && e.Source != source {
			return false
		}
		if operation != "" && e.Operation != operation {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type syncRequest struct {
	Operation string `json:"operation"`
}

type syncResult struct {
	Operation string    `json:"operation"`
	Synced    int       `json:"synced"`
	SyncedAt  time.Time `json:"syncedAt"`
}

func (api *erpcrmAPI) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	at := api.now().UTC()
	var synced int
	switch req.Operation {
	case "customers":
		synced = api.customers.UpdateAll(func(c customer) (customer, bool) {
			t := at
			c.LastSyncedAt = &t
			return c, true
		})
		api.recordLog("crm", "erp", "sync.customers", "")
	case "inventory":
		synced = api.inventory.UpdateAll(func(it inventoryItem) (inventoryItem, bool) {
			t := at
			it.LastSyncedAt = &t
			return it, true
		})
		api.recordLog("erp", "crm", "sync.inventory", "")
	case "orders":
		synced = api.workOrders.UpdateAll(func(wo workOrder) (workOrder, bool) {
			t := at
			wo.LastSyncedAt = &t
			return wo, true
		})
		api.recordLog("erp", "crm", "sync.orders", "")
	default:
		httpserver.WriteError(w, http.StatusInternalServerError, "Unknown operation")
		return
	}

	httpserver.WriteDataMessage(w, http.StatusOK, syncResult{
		Operation: req.Operation,
		Synced:    synced,
		SyncedAt:  at,
	}, "Sync completed")
}

type dashboardStats struct {
	Customers           int `json:"customers"`
	OpenTickets         int `json:"openTickets"`
	HighPriorityTickets int `json:"highPriorityTickets"`
	PendingWorkOrders   int `json:"pendingWorkOrders"`
	LowStockItems       int `json:"lowStockItems"`
	IntegrationEvents   int `json:"integrationEvents"`
}

func (api *erpcrmAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats := dashboardStats{
		Customers:         api.customers.Len(),
		IntegrationEvents: api.logs.Len(),
	}
	for _, tk := range api.tickets.List(nil) {
		if tk.Status == "open" {
			stats.OpenTickets++
		}
		if tk.Priority == "high" && tk.Status != "resolved" && tk.Status != "closed" {
			stats.HighPriorityTickets++
		}
	}
	for _, wo := range api.workOrders.List(nil) {
		if wo.Status == "pending" {
			stats.PendingWorkOrders++
		}
	}
	for _, it := range api.inventory.List(nil) {
		if it.Quantity <= it.ReorderLevel {
			stats.LowStockItems++
		}
	}
	httpserver.WriteData(w, http.StatusOK, stats)
}
