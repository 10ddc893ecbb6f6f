package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/opsline/opsline-go/internal/platform/httpserver"
)

// exportArchive mirrors rendered exports into the MinIO exports bucket.
type exportArchive struct {
	client *minio.Client
	bucket string
}

func (a *exportArchive) store(ctx context.Context, key, contentType string, data []byte) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

type exportRequest struct {
	SQL        string `json:"sql"`
	TemplateID string `json:"templateId"`
	Format     string `json:"format"`
	Filename   string `json:"filename"`
}

func (api *sqlReportAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		httpserver.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format != "csv" && format != "json" {
		httpserver.WriteError(w, http.StatusBadRequest, "Format must be csv or json")
		return
	}

	var (
		query  string
		result queryResult
		err    error
	)
	switch {
	case req.TemplateID != "":
		tpl, ok := api.templates.Get(req.TemplateID)
		if !ok {
			httpserver.WriteError(w, http.StatusNotFound, "Template not found")
			return
		}
		query, result, err = api.runTemplate(r.Context(), tpl)
	case req.SQL != "":
		query = req.SQL
		if gErr := checkReadOnlyQuery(query); gErr != nil {
			api.record(query, "rejected", 0, gErr.Error())
			httpserver.WriteError(w, http.StatusBadRequest, gErr.Error())
			return
		}
		result, err = api.runQuery(r.Context(), query)
	default:
		httpserver.WriteError(w, http.StatusBadRequest, "Either sql or templateId is required")
		return
	}
	if err != nil {
		api.record(query, "error", 0, err.Error())
		httpserver.WriteError(w, http.StatusBadRequest, "Query failed: "+err.Error())
		return
	}
	api.record(query, "ok", result.RowCount, "")

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "report-" + api.now().UTC().Format("20060102-150405")
	}
	filename = filename + "." + format

	var (
		body        []byte
		contentType string
	)
	switch format {
	case "csv":
		body, err = renderCSV(result)
		contentType = "text/csv"
	case "json":
		body, err = renderJSON(result)
		contentType = "application/json"
	}
	if err != nil {
		api.logger.Error("export render failed", "error", err)
		httpserver.WriteError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	if api.archive != nil {
		if err := api.archive.store(r.Context(), filename, contentType, body); err != nil {
			// archival is best-effort, the download still goes out
			api.logger.Error("export archive failed", "error", err, "object", filename)
		} else {
			w.Header().Set("X-Archive-Object", filename)
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func renderCSV(result queryResult) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(result.Columns); err != nil {
		return nil, err
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				continue
			}
			record[i] = fmt.Sprint(cell)
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func renderJSON(result queryResult) ([]byte, error) {
	records := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			record[col] = row[i]
		}
		records = append(records, record)
	}
	return json.MarshalIndent(records, "", "  ")
}
