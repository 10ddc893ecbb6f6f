package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func suggestionsFor(t *testing.T, mux *http.ServeMux, processID string) []suggestion {
	t.Helper()
	rec, env := doRequest(t, mux, http.MethodGet, "/api/processes/"+processID+"/suggestions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out []suggestion
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func byType(suggestions []suggestion) map[string][]suggestion {
	out := map[string][]suggestion{}
	for _, s := range suggestions {
		out[s.Type] = append(out[s.Type], s)
	}
	return out
}

func TestSuggestions_Bottleneck(t *testing.T) {
	_, mux := newTestAPI()
	p := createProcess(t, mux, `{"name":"P"}`)

	// mean 40; 100 > 1.5*40
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/steps", `{"stepNumber":1,"name":"fast","estimatedTime":10}`)
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/steps", `{"stepNumber":2,"name":"slow","estimatedTime":100}`)
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/steps", `{"stepNumber":3,"name":"mid","estimatedTime":10}`)

	got := byType(suggestionsFor(t, mux, p.ID))
	if len(got["bottleneck"]) != 1 {
		t.Fatalf("bottlenecks=%+v, want exactly one", got["bottleneck"])
	}
}

func TestSuggestions_SingleStepNeverBottleneck(t *testing.T) {
	_, mux := newTestAPI()
	p := createProcess(t, mux, `{"name":"P"}`)
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/steps", `{"stepNumber":1,"name":"only","estimatedTime":500}`)

	got := byType(suggestionsFor(t, mux, p.ID))
	if len(got["bottleneck"]) != 0 {
		t.Fatalf("single step flagged as bottleneck: %+v", got["bottleneck"])
	}
}

func TestSuggestions_MetricAndRiskThresholds(t *testing.T) {
	_, mux := newTestAPI()
	p := createProcess(t, mux, `{"name":"P"}`)

	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/metrics", `{"name":"below","current":80,"target":100}`)
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/metrics", `{"name":"at","current":100,"target":100}`)

	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/risks", `{"description":"big","probability":4,"impact":3}`)
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/risks", `{"description":"small","probability":2,"impact":2}`)

	got := byType(suggestionsFor(t, mux, p.ID))
	if len(got["metric_underperforming"]) != 1 {
		t.Fatalf("metric suggestions=%+v, want one", got["metric_underperforming"])
	}
	if len(got["high_risk"]) != 1 {
		t.Fatalf("risk suggestions=%+v, want one (score 12 included)", got["high_risk"])
	}
}

func TestSuggestions_CriticalDependency(t *testing.T) {
	_, mux := newTestAPI()
	p := createProcess(t, mux, `{"name":"P"}`)

	for i := 1; i <= 3; i++ {
		body := fmt.Sprintf(`{"stepNumber":%d,"name":"s%d","estimatedTime":10,"systems":["CRM"]}`, i, i)
		doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/steps", body)
	}
	doRequest(t, mux, http.MethodPost, "/api/processes/"+p.ID+"/steps", `{"stepNumber":4,"name":"s4","estimatedTime":10,"systems":["Billing"]}`)

	got := byType(suggestionsFor(t, mux, p.ID))
	if len(got["critical_dependency"]) != 1 {
		t.Fatalf("dependency suggestions=%+v, want one for CRM only", got["critical_dependency"])
	}
}
