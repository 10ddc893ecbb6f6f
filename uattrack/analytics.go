package main

import (
	"net/http"

	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type dashboardStats struct {
	TotalProjects     int            `json:"totalProjects"`
	ProjectsByStatus  map[string]int `json:"projectsByStatus"`
	PassRate          float64        `json:"passRate"`
	TestCasesByStatus map[string]int `json:"testCasesByStatus"`
	OpenDefects       int            `json:"openDefects"`
	DefectsBySeverity map[string]int `json:"defectsBySeverity"`
	BudgetUtilization float64        `json:"budgetUtilization"`
	RisksByTier       map[string]int `json:"risksByTier"`
}

// riskTier buckets a probability×impact score using the tracker's own
// cutoffs, which deliberately differ from the process-mapper's table.
func riskTier(score int) string {
	switch {
	case score >= 16:
		return "critical"
	case score >= 10:
		return "high"
	case score >= 5:
		return "medium"
	default:
		return "low"
	}
}

func (api *uatTrackAPI) computeDashboard() dashboardStats {
	projects := api.projects.List(nil)
	testCases := api.testCases.List(nil)
	defects := api.defects.List(nil)
	risks := api.risks.List(nil)

	stats := dashboardStats{
		TotalProjects:     len(projects),
		ProjectsByStatus:  map[string]int{},
		TestCasesByStatus: map[string]int{},
		DefectsBySeverity: map[string]int{},
		RisksByTier:       map[string]int{"low": 0, "medium": 0, "high": 0, "critical": 0},
	}

	var totalBudget, totalSpent float64
	for _, p := range projects {
		stats.ProjectsByStatus[p.Status]++
		totalBudget += p.TotalBudget
		totalSpent += p.TotalSpent
	}
	if totalBudget > 0 {
		stats.BudgetUtilization = totalSpent / totalBudget * 100
	}

	passed, failed := 0, 0
	for _, tc := range testCases {
		stats.TestCasesByStatus[tc.Status]++
		switch tc.Status {
		case "passed":
			passed++
		case "failed":
			failed++
		}
	}
	if passed+failed > 0 {
		stats.PassRate = float64(passed) / float64(passed+failed) * 100
	}

	for _, d := range defects {
		stats.DefectsBySeverity[d.Severity]++
		if d.Status == "open" {
			stats.OpenDefects++
		}
	}

	for _, rk := range risks {
		stats.RisksByTier[riskTier(rk.RiskScore)]++
	}

	return stats
}

func (api *uatTrackAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	httpserver.WriteData(w, http.StatusOK, api.computeDashboard())
}
