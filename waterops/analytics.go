package main

import (
	"net/http"

	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type dashboardStats struct {
	TotalCustomers    int            `json:"totalCustomers"`
	TotalReadings     int            `json:"totalReadings"`
	AverageDailyUsage float64        `json:"averageDailyUsage"`
	ActiveLeaks       int            `json:"activeLeaks"`
	LeaksBySeverity   map[string]int `json:"leaksBySeverity"`
	OpenAlerts        int            `json:"openAlerts"`
	PendingWorkOrders int            `json:"pendingWorkOrders"`
}

func (api *waterOpsAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customers, err := api.store.ListCustomers(ctx)
	if err != nil {
		api.storageError(w, "list customers", err)
		return
	}
	readings, err := api.store.ListReadings(ctx)
	if err != nil {
		api.storageError(w, "list readings", err)
		return
	}
	leaks, err := api.store.ListLeaks(ctx)
	if err != nil {
		api.storageError(w, "list leaks", err)
		return
	}
	alerts, err := api.store.ListAlerts(ctx)
	if err != nil {
		api.storageError(w, "list alerts", err)
		return
	}
	workOrders, err := api.store.ListWorkOrders(ctx)
	if err != nil {
		api.storageError(w, "list work orders", err)
		return
	}

	stats := dashboardStats{
		TotalCustomers:  len(customers),
		TotalReadings:   len(readings),
		LeaksBySeverity: map[string]int{},
	}

	if len(readings) > 0 {
		var total float64
		for _, rd := range readings {
			total += rd.Gallons
		}
		stats.AverageDailyUsage = total / float64(len(readings))
	}

	for _, lk := range leaks {
		stats.LeaksBySeverity[lk.Severity]++
		if lk.Status != "resolved" {
			stats.ActiveLeaks++
		}
	}
	for _, a := range alerts {
		if a.Status == "open" {
			stats.OpenAlerts++
		}
	}
	for _, wo := range workOrders {
		if wo.Status == "pending" {
			stats.PendingWorkOrders++
		}
	}

	httpserver.WriteData(w, http.StatusOK, stats)
}
