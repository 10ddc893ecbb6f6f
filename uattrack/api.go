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

type uatTrackAPI struct {
	logger         *slog.Logger
	projects       *memstore.Store[project]
	testCases      *memstore.Store[testCase]
	defects        *memstore.Store[defect]
	changeRequests *memstore.Store[changeRequest]
	risks          *memstore.Store[projectRisk]
	now            func() time.Time
}

func newUATTrackAPI(logger *slog.Logger) *uatTrackAPI {
	return &uatTrackAPI{
		logger:         logger,
		projects:       memstore.New("PRJ", func(p project) string { return p.ID }),
		testCases:      memstore.New("TC", func(tc testCase) string { return tc.ID }),
		defects:        memstore.New("DEF", func(d defect) string { return d.ID }),
		changeRequests: memstore.New("CR", func(cr changeRequest) string { return cr.ID }),
		risks:          memstore.New("RSK", func(rk projectRisk) string { return rk.ID }),
		now:            time.Now,
	}
}

func (api *uatTrackAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", api.handleListProjects)
	mux.HandleFunc("POST /api/projects", api.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", api.handleGetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", api.handleUpdateProject)

	mux.HandleFunc("GET /api/test-cases", api.handleListTestCases)
	mux.HandleFunc("POST /api/test-cases", api.handleCreateTestCase)
	mux.HandleFunc("GET /api/test-cases/{id}", api.handleGetTestCase)
	mux.HandleFunc("PATCH /api/test-cases/{id}", api.handleUpdateTestCase)

	mux.HandleFunc("GET /api/defects", api.handleListDefects)
	mux.HandleFunc("POST /api/defects", api.handleCreateDefect)
	mux.HandleFunc("GET /api/defects/{id}", api.handleGetDefect)
	mux.HandleFunc("PATCH /api/defects/{id}", api.handleUpdateDefect)

	mux.HandleFunc("GET /api/change-requests", api.handleListChangeRequests)
	mux.HandleFunc("POST /api/change-requests", api.handleCreateChangeRequest)
	mux.HandleFunc("GET /api/change-requests/{id}", api.handleGetChangeRequest)
	mux.HandleFunc("PATCH /api/change-requests/{id}", api.handleUpdateChangeRequest)

	mux.HandleFunc("GET /api/risks", api.handleListRisks)
	mux.HandleFunc("POST /api/risks", api.handleCreateRisk)

	mux.HandleFunc("GET /api/analytics/dashboard", api.handleDashboard)
}

type project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Client       string    `json:"client,omitempty"`
	Status       string    `json:"status"`
	TotalBudget  float64   `json:"totalBudget"`
	TotalSpent   float64   `json:"totalSpent"`
	StartDate    string    `json:"startDate,omitempty"`
	EndDate      string    `json:"endDate,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

type testCase struct {
	ID         string     `json:"id"`
	ProjectID  string     `json:"projectId"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Assignee   string     `json:"assignee,omitempty"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
}

type defect struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	TestCaseID  string `json:"testCaseId,omitempty"`
	Severity    string `json:"severity"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

type changeRequest struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	RequestDate time.Time `json:"requestDate"`
}

type projectRisk struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Description string `json:"description"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	RiskScore   int    `json:"riskScore"`
	Owner       string `json:"owner,omitempty"`
}

func (api *uatTrackAPI) handleListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	client := strings.TrimSpace(q.Get("client"))

	list := api.projects.List(func(p project) bool {
		if status != "" && p.Status != status {
			return false
		}
		if client != "" && p.Client != client {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createProjectRequest struct {
	Name        string  `json:"name"`
	Client      string  `json:"client"`
	TotalBudget float64 `json:"totalBudget"`
	TotalSpent  float64 `json:"totalSpent"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
}

func (api *uatTrackAPI) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	now := api.now().UTC()
	created := api.projects.Insert(func(id string) project {
		return project{
			ID:           id,
			Name:         strings.TrimSpace(req.Name),
			Client:       strings.TrimSpace(req.Client),
			Status:       "planning",
			TotalBudget:  req.TotalBudget,
			TotalSpent:   req.TotalSpent,
			StartDate:    strings.TrimSpace(req.StartDate),
			EndDate:      strings.TrimSpace(req.EndDate),
			CreatedAt:    now,
			LastModified: now,
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *uatTrackAPI) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := api.projects.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, p)
}

type updateProjectRequest struct {
	Name        *string  `json:"name"`
	Client      *string  `json:"client"`
	Status      *string  `json:"status"`
	TotalBudget *float64 `json:"totalBudget"`
	TotalSpent  *float64 `json:"totalSpent"`
	StartDate   *string  `json:"startDate"`
	EndDate     *string  `json:"endDate"`
}

func (api *uatTrackAPI) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.projects.Update(r.PathValue("id"), func(p project) project {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Client != nil {
			p.Client = *req.Client
		}
		if req.Status != nil {
			p.Status = *req.Status
		}
		if req.TotalBudget != nil {
			p.TotalBudget = *req.TotalBudget
		}
		if req.TotalSpent != nil {
			p.TotalSpent = *req.TotalSpent
		}
		if req.StartDate != nil {
			p.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			p.EndDate = *req.EndDate
		}
		p.LastModified = api.now().UTC()
		return p
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *uatTrackAPI) handleListTestCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID := strings.TrimSpace(q.Get("projectId"))
	status := strings.TrimSpace(q.Get("status"))
	assignee := strings.TrimSpace(q.Get("assignee"))

	list := api.testCases.List(func(tc testCase) bool {
		if projectID != "" && tc.ProjectID != projectID {
			return false
		}
		if status != "" && tc.Status != status {
			return false
		}
		if assignee != "" && tc.Assignee != assignee {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createTestCaseRequest struct {
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Assignee  string `json:"assignee"`
}

func (api *uatTrackAPI) handleCreateTestCase(w http.ResponseWriter, r *http.Request) {
	var req createTestCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if _, ok := api.projects.Get(strings.TrimSpace(req.ProjectID)); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}

	created := api.testCases.Insert(func(id string) testCase {
		return testCase{
			ID:        id,
			ProjectID: strings.TrimSpace(req.ProjectID),
			Title:     strings.TrimSpace(req.Title),
			Status:    "pending",
			Assignee:  strings.TrimSpace(req.Assignee),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *uatTrackAPI) handleGetTestCase(w http.ResponseWriter, r *http.Request) {
	tc, ok := api.testCases.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Test case not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, tc)
}

type updateTestCaseRequest struct {
	Title    *string `json:"title"`
	Status   *string `json:"status"`
	Assignee *string `json:"assignee"`
}

func (api *uatTrackAPI) handleUpdateTestCase(w http.ResponseWriter, r *http.Request) {
	var req updateTestCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.testCases.Update(r.PathValue("id"), func(tc testCase) testCase {
		if req.Title != nil {
			tc.Title = *req.Title
		}
		if req.Assignee != nil {
			tc.Assignee = *req.Assignee
		}
		if req.Status != nil && *req.Status != tc.Status {
			tc.Status = *req.Status
			switch tc.Status {
			case "passed", "failed", "blocked":
				executed := api.now().UTC()
				tc.ExecutedAt = &executed
			}
		}
		return tc
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Test case not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *uatTrackAPI) handleListDefects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID := strings.TrimSpace(q.Get("projectId"))
	severity := strings.TrimSpace(q.Get("severity"))
	status := strings.TrimSpace(q.Get("status"))

	list := api.defects.List(func(d defect) bool {
		if projectID != "" && d.ProjectID != projectID {
			return false
		}
		if severity != "" && d.Severity != severity {
			return false
		}
		if status != "" && d.Status != status {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createDefectRequest struct {
	ProjectID   string `json:"projectId"`
	TestCaseID  string `json:"testCaseId"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

func (api *uatTrackAPI) handleCreateDefect(w http.ResponseWriter, r *http.Request) {
	var req createDefectRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if _, ok := api.projects.Get(strings.TrimSpace(req.ProjectID)); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}

	severity := strings.TrimSpace(req.Severity)
	if severity == "" {
		severity = "medium"
	}
	created := api.defects.Insert(func(id string) defect {
		return defect{
			ID:          id,
			ProjectID:   strings.TrimSpace(req.ProjectID),
			TestCaseID:  strings.TrimSpace(req.TestCaseID),
			Severity:    severity,
			Status:      "open",
			Description: strings.TrimSpace(req.Description),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *uatTrackAPI) handleGetDefect(w http.ResponseWriter, r *http.Request) {
	d, ok := api.defects.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Defect not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, d)
}

type updateDefectRequest struct {
	Severity    *string `json:"severity"`
	Status      *string `json:"status"`
	Description *string `json:"description"`
}

func (api *uatTrackAPI) handleUpdateDefect(w http.ResponseWriter, r *http.Request) {
	var req updateDefectRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.defects.Update(r.PathValue("id"), func(d defect) defect {
		if req.Severity != nil {
			d.Severity = *req.Severity
		}
		if req.Status != nil {
			d.Status = *req.Status
		}
		if req.Description != nil {
			d.Description = *req.Description
		}
		return d
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Defect not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *uatTrackAPI) handleListChangeRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID := strings.TrimSpace(q.Get("projectId"))
	status := strings.TrimSpace(q.Get("status"))

	list := api.changeRequests.List(func(cr changeRequest) bool {
		if projectID != "" && cr.ProjectID != projectID {
			return false
		}
		if status != "" && cr.Status != status {
			return false
		}
		return true
	})
	httpserver.WriteList(w, list, len(list))
}

type createChangeRequestRequest struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (api *uatTrackAPI) handleCreateChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req createChangeRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if _, ok := api.projects.Get(strings.TrimSpace(req.ProjectID)); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}

	created := api.changeRequests.Insert(func(id string) changeRequest {
		return changeRequest{
			ID:          id,
			ProjectID:   strings.TrimSpace(req.ProjectID),
			Title:       strings.TrimSpace(req.Title),
			Description: strings.TrimSpace(req.Description),
			Status:      "submitted",
			RequestDate: api.now().UTC(),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *uatTrackAPI) handleGetChangeRequest(w http.ResponseWriter, r *http.Request) {
	cr, ok := api.changeRequests.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Change request not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, cr)
}

type updateChangeRequestRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (api *uatTrackAPI) handleUpdateChangeRequest(w http.ResponseWriter, r *http.Request) {
	var req updateChangeRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.changeRequests.Update(r.PathValue("id"), func(cr changeRequest) changeRequest {
		if req.Title != nil {
			cr.Title = *req.Title
		}
		if req.Description != nil {
			cr.Description = *req.Description
		}
		if req.Status != nil {
			cr.Status = *req.Status
		}
		return cr
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Change request not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func (api *uatTrackAPI) handleListRisks(w http.ResponseWriter, r *http.Request) {
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))
	list := api.risks.List(func(rk projectRisk) bool {
		return projectID == "" || rk.ProjectID == projectID
	})
	httpserver.WriteList(w, list, len(list))
}

type createRiskRequest struct {
	ProjectID   string `json:"projectId"`
	Description string `json:"description"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	Owner       string `json:"owner"`
}

func (api *uatTrackAPI) handleCreateRisk(w http.ResponseWriter, r *http.Request) {
	var req createRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if _, ok := api.projects.Get(strings.TrimSpace(req.ProjectID)); !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Project not found")
		return
	}

	created := api.risks.Insert(func(id string) projectRisk {
		return projectRisk{
			ID:          id,
			ProjectID:   strings.TrimSpace(req.ProjectID),
			Description: strings.TrimSpace(req.Description),
			Probability: req.Probability,
			Impact:      req.Impact,
			RiskScore:   req.Probability * req.Impact,
			Owner:       strings.TrimSpace(req.Owner),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(dst)
}
