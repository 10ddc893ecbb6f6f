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

func newTestAPI() (*uatTrackAPI, *http.ServeMux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := newUATTrackAPI(logger)
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

func createProject(t *testing.T, mux *http.ServeMux, body string) project {
	t.Helper()
	rec, env := doRequest(t, mux, http.MethodPost, "/api/projects", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project status=%d body=%s", rec.Code, rec.Body.String())
	}
	var p project
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return p
}

func TestCreateProject_IDFormatAndDefaults(t *testing.T) {
	_, mux := newTestAPI()
	p := createProject(t, mux, `{"name":"UAT Alpha","client":"Acme","totalBudget":1000}`)

	if !regexp.MustCompile(`^PRJ-\d{3}$`).MatchString(p.ID) {
		t.Fatalf("id=%q, want PRJ-NNN", p.ID)
	}
	if p.Status != "planning" {
		t.Fatalf("status=%q, want planning", p.Status)
	}
	if p.Name != "UAT Alpha" || p.Client != "Acme" || p.TotalBudget != 1000 {
		t.Fatalf("fields not preserved: %+v", p)
	}
}

func TestChangeRequest_DefaultsToSubmittedWithRequestDate(t *testing.T) {
	_, mux := newTestAPI()
	p := createProject(t, mux, `{"name":"P"}`)

	rec, env := doRequest(t, mux, http.MethodPost, "/api/change-requests", `{"projectId":"`+p.ID+`","title":"Scope change"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var cr changeRequest
	if err := json.Unmarshal(env.Data, &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.Status != "submitted" {
		t.Fatalf("status=%q, want submitted", cr.Status)
	}
	if cr.RequestDate.IsZero() {
		t.Fatalf("requestDate not stamped")
	}
	if !regexp.MustCompile(`^CR-\d{3}$`).MatchString(cr.ID) {
		t.Fatalf("id=%q", cr.ID)
	}
}

func TestCreateTestCase_RequiresExistingProject(t *testing.T) {
	_, mux := newTestAPI()
	rec, env := doRequest(t, mux, http.MethodPost, "/api/test-cases", `{"projectId":"PRJ-404","title":"t"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
	if env.Message != "Project not found" {
		t.Fatalf("message=%q", env.Message)
	}
}

func TestUpdateTestCase_StatusTransitionStampsExecutedAt(t *testing.T) {
	_, mux := newTestAPI()
	p := createProject(t, mux, `{"name":"P"}`)
	_, env := doRequest(t, mux, http.MethodPost, "/api/test-cases", `{"projectId":"`+p.ID+`","title":"t"}`)
	var tc testCase
	if err := json.Unmarshal(env.Data, &tc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tc.Status != "pending" || tc.ExecutedAt != nil {
		t.Fatalf("fresh test case: %+v", tc)
	}

	_, env = doRequest(t, mux, http.MethodPatch, "/api/test-cases/"+tc.ID, `{"status":"passed"}`)
	var updated testCase
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != "passed" {
		t.Fatalf("status=%q", updated.Status)
	}
	if updated.ExecutedAt == nil {
		t.Fatalf("executedAt not stamped on pass")
	}
	if updated.Title != "t" {
		t.Fatalf("title changed: %+v", updated)
	}
}

func TestListTestCases_ProjectFilter(t *testing.T) {
	_, mux := newTestAPI()
	p1 := createProject(t, mux, `{"name":"A"}`)
	p2 := createProject(t, mux, `{"name":"B"}`)
	doRequest(t, mux, http.MethodPost, "/api/test-cases", `{"projectId":"`+p1.ID+`","title":"a1"}`)
	doRequest(t, mux, http.MethodPost, "/api/test-cases", `{"projectId":"`+p2.ID+`","title":"b1"}`)
	doRequest(t, mux, http.MethodPost, "/api/test-cases", `{"projectId":"`+p1.ID+`","title":"a2"}`)

	_, env := doRequest(t, mux, http.MethodGet, "/api/test-cases?projectId="+p1.ID, "")
	var list []testCase
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d, want 2", len(list))
	}
	for _, tc := range list {
		if tc.ProjectID != p1.ID {
			t.Fatalf("filter leaked %+v", tc)
		}
	}
}

func TestCreateDefect_DefaultsOpenMedium(t *testing.T) {
	_, mux := newTestAPI()
	p := createProject(t, mux, `{"name":"P"}`)

	_, env := doRequest(t, mux, http.MethodPost, "/api/defects", `{"projectId":"`+p.ID+`","description":"broken"}`)
	var d defect
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Status != "open" || d.Severity != "medium" {
		t.Fatalf("defaults wrong: %+v", d)
	}
}

func TestSeed_Loads(t *testing.T) {
	api, _ := newTestAPI()
	if err := api.loadSeed(); err != nil {
		t.Fatalf("loadSeed() err=%v", err)
	}
	if api.projects.Len() == 0 || api.testCases.Len() == 0 {
		t.Fatalf("seed left stores empty")
	}
}
