package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type suggestion struct {
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	RelatedID string `json:"relatedId,omitempty"`
}

const (
	bottleneckFactor    = 1.5
	highRiskThreshold   = 12
	dependencyStepCount = 3
)

// computeSuggestions runs the optimization heuristics over one process:
// independent threshold checks, not a combined scoring model.
func (api *processMapAPI) computeSuggestions(processID string) []suggestion {
	steps := api.steps.List(func(s processStep) bool { return s.ProcessID == processID })
	metrics := api.metrics.List(func(m processMetric) bool { return m.ProcessID == processID })
	risks := api.risks.List(func(rk processRisk) bool { return rk.ProcessID == processID })

	suggestions := []suggestion{}

	if len(steps) >= 2 {
		var total float64
		for _, s := range steps {
			total += s.EstimatedTime
		}
		mean := total / float64(len(steps))
		for _, s := range steps {
			if s.EstimatedTime > bottleneckFactor*mean {
				suggestions = append(suggestions, suggestion{
					Type:      "bottleneck",
					Severity:  "warning",
					Message:   fmt.Sprintf("Step %q takes %.0f minutes, well above the process average of %.0f", s.Name, s.EstimatedTime, mean),
					RelatedID: s.ID,
				})
			}
		}
	}

	for _, m := range metrics {
		if m.Current < m.Target {
			suggestions = append(suggestions, suggestion{
				Type:      "metric_underperforming",
				Severity:  "warning",
				Message:   fmt.Sprintf("Metric %q is below target (%.1f of %.1f)", m.Name, m.Current, m.Target),
				RelatedID: m.ID,
			})
		}
	}

	for _, rk := range risks {
		if rk.RiskScore >= highRiskThreshold {
			suggestions = append(suggestions, suggestion{
				Type:      "high_risk",
				Severity:  "critical",
				Message:   fmt.Sprintf("Risk %q scores %d and needs mitigation", rk.Description, rk.RiskScore),
				RelatedID: rk.ID,
			})
		}
	}

	systemCounts := map[string]int{}
	for _, s := range steps {
		for _, sys := range s.Systems {
			sys = strings.TrimSpace(sys)
			if sys != "" {
				systemCounts[sys]++
			}
		}
	}
	for sys, count := range systemCounts {
		if count >= dependencyStepCount {
			suggestions = append(suggestions, suggestion{
				Type:     "critical_dependency",
				Severity: "warning",
				Message:  fmt.Sprintf("System %q is required by %d steps; an outage would stall the process", sys, count),
			})
		}
	}

	return suggestions
}

func (api *processMapAPI) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}
	suggestions := api.computeSuggestions(processID)
	httpserver.WriteList(w, suggestions, len(suggestions))
}
