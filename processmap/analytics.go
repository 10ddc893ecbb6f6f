package main

import (
	"net/http"

	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type dashboardStats struct {
	TotalProcesses      int            `json:"totalProcesses"`
	ProcessesByStatus   map[string]int `json:"processesByStatus"`
	ProcessesByCategory map[string]int `json:"processesByCategory"`
	TotalSteps          int            `json:"totalSteps"`
	AveragePerformance  float64        `json:"averagePerformance"`
	RisksByTier         map[string]int `json:"risksByTier"`
}

// riskTier buckets a probability×impact score. The cutoffs here are the
// process-mapper's own table; the UAT tracker uses a different one.
func riskTier(score int) string {
	switch {
	case score >= 15:
		return "critical"
	case score >= 12:
		return "high"
	case score >= 6:
		return "medium"
	default:
		return "low"
	}
}

func (api *processMapAPI) computeDashboard() dashboardStats {
	processes := api.processes.List(nil)
	metrics := api.metrics.List(nil)
	risks := api.risks.List(nil)

	stats := dashboardStats{
		TotalProcesses:      len(processes),
		ProcessesByStatus:   map[string]int{},
		ProcessesByCategory: map[string]int{},
		TotalSteps:          api.steps.Len(),
		RisksByTier:         map[string]int{"low": 0, "medium": 0, "high": 0, "critical": 0},
	}

	for _, p := range processes {
		stats.ProcessesByStatus[p.Status]++
		if p.Category != "" {
			stats.ProcessesByCategory[p.Category]++
		}
	}

	var perfSum float64
	var perfCount int
	for _, m := range metrics {
		if m.Target == 0 {
			continue
		}
		perfSum += m.Current / m.Target * 100
		perfCount++
	}
	if perfCount > 0 {
		stats.AveragePerformance = perfSum / float64(perfCount)
	}

	for _, rk := range risks {
		stats.RisksByTier[riskTier(rk.RiskScore)]++
	}

	return stats
}

func (api *processMapAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteData(w, http.StatusOK, api.computeDashboard())
}
