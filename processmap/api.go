package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/opsline/opsline-go/internal/memstore"
	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type processMapAPI struct {
	logger    *slog.Logger
	processes *memstore.Store[process]
	steps     *memstore.Store[processStep]
	metrics   *memstore.Store[processMetric]
	risks     *memstore.Store[processRisk]
	now       func() time.Time
}

func newProcessMapAPI(logger *slog.Logger) *processMapAPI {
	return &processMapAPI{
		logger:    logger,
		processes: memstore.New("PROC", func(p process) string { return p.ID }),
		steps:     memstore.New("STEP", func(s processStep) string { return s.ID }),
		metrics:   memstore.New("MET", func(m processMetric) string { return m.ID }),
		risks:     memstore.New("RISK", func(r processRisk) string { return r.ID }),
		now:       time.Now,
	}
}

func (api *processMapAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/processes", api.handleListProcesses)
	mux.HandleFunc("POST /api/processes", api.handleCreateProcess)
	mux.HandleFunc("GET /api/processes/{id}", api.handleGetProcess)
	mux.HandleFunc("PATCH /api/processes/{id}", api.handleUpdateProcess)

	mux.HandleFunc("GET /api/processes/{id}/steps", api.handleListSteps)
	mux.HandleFunc("POST /api/processes/{id}/steps", api.handleCreateStep)
	mux.HandleFunc("GET /api/processes/{id}/metrics", api.handleListMetrics)
	mux.HandleFunc("POST /api/processes/{id}/metrics", api.handleCreateMetric)
	mux.HandleFunc("GET /api/processes/{id}/risks", api.handleListRisks)
	mux.HandleFunc("POST /api/processes/{id}/risks", api.handleCreateRisk)

	mux.HandleFunc("GET /api/processes/{id}/suggestions", api.handleSuggestions)
	mux.HandleFunc("GET /api/analytics/dashboard", api.handleDashboard)
}

type process struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Department   string    `json:"department,omitempty"`
	Owner        string    `json:"owner,omitempty"`
	Description  string    `json:"description,omitempty"`
	RiskLevel    string    `json:"riskLevel,omitempty"`
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

type processStep struct {
	ID            string   `json:"id"`
	ProcessID     string   `json:"processId"`
	StepNumber    int      `json:"stepNumber"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	EstimatedTime float64  `json:"estimatedTime"`
	Systems       []string `json:"systems,omitempty"`
	Required      bool     `json:"required"`
}

type processMetric struct {
	ID        string  `json:"id"`
	ProcessID string  `json:"processId"`
	Name      string  `json:"name"`
	Current   float64 `json:"current"`
	Target    float64 `json:"target"`
	Unit      string  `json:"unit,omitempty"`
}

type processRisk struct {
	ID          string `json:"id"`
	ProcessID   string `json:"processId"`
	Description string `json:"description"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	RiskScore   int    `json:"riskScore"`
	Mitigation  string `json:"mitigation,omitempty"`
}

func (api *processMapAPI) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	category := strings.TrimSpace(q.Get("category"))
	department := strings.TrimSpace(q.Get("department"))

	list := api.processes.List(func(p process) bool {
		if status != "" && p.Status != status {
			return false
		}
		if category != "" && p.Category != category {
			return false
		}
		if department != "" && p.Department != department {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createProcessRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Department  string `json:"department"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	RiskLevel   string `json:"riskLevel"`
}

func (api *processMapAPI) handleCreateProcess(w http.ResponseWriter, r *http.Request) {
	var req createProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	now := api.now().UTC()
	created := api.processes.Insert(func(id string) process {
		return process{
			ID:           id,
			Name:         strings.TrimSpace(req.Name),
			Category:     strings.TrimSpace(req.Category),
			Department:   strings.TrimSpace(req.Department),
			Owner:        strings.TrimSpace(req.Owner),
			Description:  strings.TrimSpace(req.Description),
			RiskLevel:    strings.TrimSpace(req.RiskLevel),
			Status:       "draft",
			Version:      "1.0",
			CreatedAt:    now,
			LastModified: now,
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *processMapAPI) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	p, ok := api.processes.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, p)
}

type updateProcessRequest struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	Department  *string `json:"department"`
	Owner       *string `json:"owner"`
	Description *string `json:"description"`
	RiskLevel   *string `json:"riskLevel"`
	Status      *string `json:"status"`
	Version     *string `json:"version"`
}

func (api *processMapAPI) handleUpdateProcess(w http.ResponseWriter, r *http.Request) {
	var req updateProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.processes.Update(r.PathValue("id"), func(p process) process {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Category != nil {
			p.Category = *req.Category
		}
		if req.Department != nil {
			p.Department = *req.Department
		}
		if req.Owner != nil {
			p.Owner = *req.Owner
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.RiskLevel != nil {
			p.RiskLevel = *req.RiskLevel
		}
		if req.Status != nil {
			p.Status = *req.Status
		}
		if req.Version != nil {
			p.Version = *req.Version
		}
		p.LastModified = api.now().UTC()
		return p
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *processMapAPI) handleListSteps(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}

	list := api.steps.List(func(s processStep) bool { return s.ProcessID == processID })
	sort.SliceStable(list, func(i, j int) bool { return list[i].StepNumber < list[j].StepNumber })
	httpserver.WriteList(w, list, len(list))
}

type createStepRequest struct {
	StepNumber    int      `json:"stepNumber"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	EstimatedTime float64  `json:"estimatedTime"`
	Systems       []string `json:"systems"`
	Required      bool     `json:"required"`
}

func (api *processMapAPI) handleCreateStep(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}

	var req createStepRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created := api.steps.Insert(func(id string) processStep {
		return processStep{
			ID:            id,
			ProcessID:     processID,
			StepNumber:    req.StepNumber,
			Name:          strings.TrimSpace(req.Name),
			Description:   strings.TrimSpace(req.Description),
			EstimatedTime: req.EstimatedTime,
			Systems:       req.Systems,
			Required:      req.Required,
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *processMapAPI) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}

	list := api.metrics.List(func(m processMetric) bool { return m.ProcessID == processID })
	httpserver.WriteList(w, list, len(list))
}

type createMetricRequest struct {
	Name    string  `json:"name"`
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Unit    string  `json:"unit"`
}

func (api *processMapAPI) handleCreateMetric(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}

	var req createMetricRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created := api.metrics.Insert(func(id string) processMetric {
		return processMetric{
			ID:        id,
			ProcessID: processID,
			Name:      strings.TrimSpace(req.Name),
			Current:   req.Current,
			Target:    req.Target,
			Unit:      strings.TrimSpace(req.Unit),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *processMapAPI) handleListRisks(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}

	list := api.risks.List(func(rk processRisk) bool { return rk.ProcessID == processID })
	httpserver.WriteList(w, list, len(list))
}

type createRiskRequest struct {
	Description string `json:"description"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	Mitigation  string `json:"mitigation"`
}

func (api *processMapAPI) handleCreateRisk(w http.ResponseWriter, r *http.Request) {
	processID := r.PathValue("id")
	if _, ok := api.processes.Get(processID); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Process not found")
		return
	}

	var req createRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	created := api.risks.Insert(func(id string) processRisk {
		return processRisk{
			ID:          id,
			ProcessID:   processID,
			Description: strings.TrimSpace(req.Description),
			Probability: req.Probability,
			Impact:      req.Impact,
			RiskScore:   req.Probability * req.Impact,
			Mitigation:  strings.TrimSpace(req.Mitigation),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(dst)
}
