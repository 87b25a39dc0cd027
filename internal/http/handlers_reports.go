package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"rentdesk/internal/core"
	"rentdesk/internal/export"
	"rentdesk/internal/log"
)

// handlePeriods quotes a contract draft from query parameters.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	draft, err := contractDraft(func(k string) string { return sanitizeInput(q.Get(k)) })
	if err != nil {
		s.fail(w, r, err, log.OpRead, core.ResourceContracts)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Quote(draft))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	const key = "summary"
	if body, ok := s.lists.Get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}
	gen := s.lists.Generation()
	sum, err := s.svc.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpRead, "summary")
		return
	}
	body, err := json.Marshal(sum)
	if err != nil {
		s.fail(w, r, err, log.OpRead, "summary")
		return
	}
	s.lists.SetIfGeneration(key, body, gen)
	writeRawJSON(w, http.StatusOK, body)
}

// handleExport streams a resource as an xlsx workbook. The optional name
// query parameter sets the file name.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	resource := r.PathValue("resource")
	fields, ok := export.Fields(resource)
	if !ok || !core.IsExportable(resource) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown export %q", resource))
		return
	}
	records, err := s.svc.Records(r.Context(), resource)
	if err != nil {
		s.fail(w, r, err, log.OpExport, resource)
		return
	}

	// Build in memory so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, records, fields); err != nil {
		s.fail(w, r, err, log.OpExport, resource)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = export.DefaultName(resource)
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(name)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	s.logger.InfoContext(r.Context(), "Export written",
		log.NewFields().WithOperation(log.OpExport).WithResource(resource).ToSlice()...)
}
