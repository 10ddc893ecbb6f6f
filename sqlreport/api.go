package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsline/opsline-go/internal/memstore"
	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

type sqlReportAPI struct {
	logger    *slog.Logger
	db        *sql.DB // read-only sandbox connection
	templates *memstore.Store[reportTemplate]
	history   *memstore.Store[historyEntry]
	archive   *exportArchive // nil when archival is disabled
	now       func() time.Time
}

func newSQLReportAPI(logger *slog.Logger, db *sql.DB, archive *exportArchive) *sqlReportAPI {
	return &sqlReportAPI{
		logger:    logger,
		db:        db,
		templates: memstore.New("TPL", func(t reportTemplate) string { return t.ID }),
		history:   memstore.New("HIST", func(h historyEntry) string { return h.ID }),
		archive:   archive,
		now:       time.Now,
	}
}

func (api *sqlReportAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query/execute", api.handleExecute)
	mux.HandleFunc("GET /api/schema", api.handleSchema)

	mux.HandleFunc("GET /api/templates", api.handleListTemplates)
	mux.HandleFunc("POST /api/templates", api.handleCreateTemplate)
	mux.HandleFunc("GET /api/templates/{id}", api.handleGetTemplate)
	mux.HandleFunc("POST /api/templates/{id}/run", api.handleRunTemplate)

	mux.HandleFunc("GET /api/history", api.handleListHistory)
	mux.HandleFunc("PATCH /api/history/{id}", api.handleUpdateHistory)

	mux.HandleFunc("POST /api/export", api.handleExport)
}

type reportTemplate struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Table      string              `json:"table"`
	Fields     []string            `json:"fields"`
	Conditions []templateCondition `json:"conditions,omitempty"`
	SortBy     string              `json:"sortBy,omitempty"`
	SortDir    string              `json:"sortDir,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
}

type historyEntry struct {
	ID         string    `json:"id"`
	SQL        string    `json:"sql"`
	Status     string    `json:"status"` // ok, rejected, error
	RowCount   int       `json:"rowCount"`
	Error      string    `json:"error,omitempty"`
	Label      string    `json:"label,omitempty"`
	Favorite   bool      `json:"favorite"`
	ExecutedAt time.Time `json:"executedAt"`
}

type queryResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"rowCount"`
}

func (api *sqlReportAPI) record(query, status string, rowCount int, errText string) {
	api.history.Add(historyEntry{
		ID:         uuid.NewString(),
		SQL:        query,
		Status:     status,
		RowCount:   rowCount,
		Error:      errText,
		ExecutedAt: api.now().UTC(),
	})
}

// runQuery executes an already-guarded statement on the read-only
// connection and collects the full result set.
func (api *sqlReportAPI) runQuery(ctx context.Context, query string, args ...any) (queryResult, error) {
	rows, err := api.db.QueryContext(ctx, query, args...)
	if err != nil {
		return queryResult{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return queryResult{}, err
	}

	result := queryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return queryResult{}, err
		}
		for i, cell := range cells {
			if b, ok := cell.([]byte); ok {
				cells[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return queryResult{}, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

type executeRequest struct {
	SQL string `json:"sql"`
}

func (api *sqlReportAPI) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := checkReadOnlyQuery(req.SQL); err != nil {
		api.record(req.SQL, "rejected", 0, err.Error())
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := api.runQuery(r.Context(), req.SQL)
	if err != nil {
		api.record(req.SQL, "error", 0, err.Error())
		httpserver.WriteError(w, http.StatusBadRequest, "Query failed: "+err.Error())
		return
	}

	api.record(req.SQL, "ok", result.RowCount, "")
	httpserver.WriteData(w, http.StatusOK, result)
}

type columnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	PK       bool   `json:"pk"`
}

type tableInfo struct {
	Name    string       `json:"name"`
	Columns []columnInfo `json:"columns"`
}

// introspect reads table and column metadata from the live sandbox.
func (api *sqlReportAPI) introspect(ctx context.Context) ([]tableInfo, error) {
	rows, err := api.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]tableInfo, 0, len(names))
	for _, name := range names {
		cols, err := api.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tableInfo{Name: name, Columns: cols})
	}
	return tables, nil
}

func (api *sqlReportAPI) tableColumns(ctx context.Context, table string) ([]columnInfo, error) {
	rows, err := api.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, columnInfo{
			Name:     name,
			Type:     typ,
			Nullable: notNull == 0,
			PK:       pk > 0,
		})
	}
	return cols, rows.Err()
}

// schemaLookup flattens introspection into table -> column set for the
// query builder's identifier checks.
func (api *sqlReportAPI) schemaLookup(ctx context.Context) (map[string]map[string]bool, error) {
	tables, err := api.introspect(ctx)
	if err != nil {
		return nil, err
	}
	lookup := make(map[string]map[string]bool, len(tables))
	for _, t := range tables {
		cols := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = true
		}
		lookup[t.Name] = cols
	}
	return lookup, nil
}

func (api *sqlReportAPI) handleSchema(w http.ResponseWriter, r *http.Request) {
	tables, err := api.introspect(r.Context())
	if err != nil {
		api.logger.Error("schema introspection failed", "error", err)
		httpserver.WriteError(w, http.StatusInternalServerError, "Schema introspection failed")
		return
	}
	httpserver.WriteList(w, tables, len(tables))
}

func (api *sqlReportAPI) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list := api.templates.List(nil)
	httpserver.WriteList(w, list, len(list))
}

type createTemplateRequest struct {
	Name       string              `json:"name"`
	Table      string              `json:"table"`
	Fields     []string            `json:"fields"`
	Conditions []templateCondition `json:"conditions"`
	SortBy     string              `json:"sortBy"`
	SortDir    string              `json:"sortDir"`
}

func (api *sqlReportAPI) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	schema, err := api.schemaLookup(r.Context())
	if err != nil {
		httpserver.WriteError(w, http.StatusInternalServerError, "Schema introspection failed")
		return
	}
	// reject templates that could never run
	if _, _, err := buildSelect(req.Table, req.Fields, req.Conditions, req.SortBy, req.SortDir, schema); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created := api.templates.Insert(func(id string) reportTemplate {
		return reportTemplate{
			ID:         id,
			Name:       strings.TrimSpace(req.Name),
			Table:      req.Table,
			Fields:     req.Fields,
			Conditions: req.Conditions,
			SortBy:     req.SortBy,
			SortDir:    req.SortDir,
			CreatedAt:  api.now().UTC(),
		}
	})
	httpserver.WriteData(w, http.StatusCreated, created)
}

func (api *sqlReportAPI) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := api.templates.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Template not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, tpl)
}

func (api *sqlReportAPI) handleRunTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, ok := api.templates.Get(r.PathValue("id"))
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "Template not found")
		return
	}

	query, result, err := api.runTemplate(r.Context(), tpl)
	if err != nil {
		api.record(query, "error", 0, err.Error())
		httpserver.WriteError(w, http.StatusBadRequest, "Query failed: "+err.Error())
		return
	}

	api.record(query, "ok", result.RowCount, "")
	httpserver.WriteData(w, http.StatusOK, result)
}

func (api *sqlReportAPI) runTemplate(ctx context.Context, tpl reportTemplate) (string, queryResult, error) {
	schema, err := api.schemaLookup(ctx)
	if err != nil {
		return "", queryResult{}, err
	}
	query, args, err := buildSelect(tpl.Table, tpl.Fields, tpl.Conditions, tpl.SortBy, tpl.SortDir, schema)
	if err != nil {
		return query, queryResult{}, err
	}
	result, err := api.runQuery(ctx, query, args...)
	return query, result, err
}

func (api *sqlReportAPI) handleListHistory(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	list := api.history.List(func(h historyEntry) bool {
		return status == "" || h.Status == status
	})
	httpserver.WriteList(w, list, len(list))
}

type updateHistoryRequest struct {
	Label    *string `json:"label"`
	Favorite *bool   `json:"favorite"`
}

func (api *sqlReportAPI) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	var req updateHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	updated, ok := api.history.Update(r.PathValue("id"), func(h historyEntry) historyEntry {
		if req.Label != nil {
			h.Label = *req.Label
		}
		if req.Favorite != nil {
			h.Favorite = *req.Favorite
		}
		return h
	})
	if !ok {
		httpserver.WriteError(w, http.StatusNotFound, "History entry not found")
		return
	}
	httpserver.WriteData(w, http.StatusOK, updated)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(dst)
}
