/*
handlers.go - HTTP API handlers for timefile ingestion and payroll reads

PURPOSE:
  Exposes the ingestion pipeline and the payroll report over HTTP. Handles
  multipart parsing, response encoding and the mapping from pipeline errors
  to status codes. All domain work is delegated to payroll.Pipeline.

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Pipeline: Ingestion and report reads
  - Pinger:   Optional store reachability check for /api/health
  - Log:      Request scoped errors are logged here

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status chosen by error class:
  - 400: BadInput, DuplicateReport, DuplicateKey (precise message)
  - 413: Upload larger than the configured limit
  - 500: StoreFailure (generic message only, details are logged)

SEE ALSO:
  - dto.go: Response types
  - server.go: Router setup and middleware
  - payroll/errors.go: Error classes
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/warp/payroll-engine/ingest"
	"github.com/warp/payroll-engine/payroll"
)

// TimefileField is the multipart field carrying the uploaded file.
const TimefileField = "timefile"

// maxMemory is the part of a multipart body kept in memory; the rest is
// spooled to temporary files.
const maxMemory = 4 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Pipeline       *payroll.Pipeline
	Pinger         Pinger
	MaxUploadBytes int64

	log zerolog.Logger
}

// NewHandler creates a new handler around pipeline.
func NewHandler(pipeline *payroll.Pipeline, log zerolog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		Pipeline:       pipeline,
		MaxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// =============================================================================
// TIMEFILE HANDLERS
// =============================================================================

// UploadTimefile ingests one timefile.
// POST /api/timefile
func (h *Handler) UploadTimefile(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusRequestEntityTooLarge, "Timefile is too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(TimefileField)
	if err != nil {
		writeError(w, http.StatusBadRequest, `Missing "timefile" upload`, err)
		return
	}
	defer file.Close()

	src, err := ingest.Open(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable timefile", err)
		return
	}

	res, err := h.Pipeline.Run(r.Context(), src)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:     "Successful file upload!",
		RunID:       res.RunID,
		ReportID:    res.ReportID,
		Records:     res.Records,
		PayrollRows: len(res.Report),
	})
}

// GetTimefile returns the records submitted under a report id.
// GET /api/timefiles/{reportID}
func (h *Handler) GetTimefile(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportID")

	records, err := h.Pipeline.Timefiles().ForReport(r.Context(), reportID)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, TimefileResponse{
		ReportID: reportID,
		Records:  toTimeRecordDTOs(records),
	})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetPayroll returns the payroll report.
// GET /api/payroll
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Pipeline.Report(r.Context())
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewPayrollRowDTOs(rows))
}

// GetPayrollCSV returns the payroll report as a CSV download.
// GET /api/payroll.csv
func (h *Handler) GetPayrollCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Pipeline.Report(r.Context())
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	out, err := gocsv.MarshalBytes(NewPayrollRowDTOs(rows))
	if err != nil {
		h.log.Error().Err(err).Msg("encoding payroll csv failed")
		writeError(w, http.StatusInternalServerError, payroll.GenericServerMessage, nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="payroll.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

var homepage = template.Must(template.New("homepage").Parse(`<!DOCTYPE html>
<html>
<head><title>Payroll Report</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Payroll Report</h1>
<form action="/api/timefile" method="post" enctype="multipart/form-data">
<input type="file" name="timefile" accept=".csv,.xlsx">
<button type="submit">Upload</button>
</form>
<table>
<thead><tr><th>Employee ID</th><th>Pay Period</th><th>Amount Paid</th></tr></thead>
<tbody>
{{range .}}<tr><td>{{.EmployeeID}}</td><td>{{.PayPeriod}}</td><td>${{.AmountPaid}}</td></tr>
{{else}}<tr><td colspan="3">No timefiles uploaded yet.</td></tr>
{{end}}</tbody>
</table>
</body>
</html>`))

// Homepage renders the payroll report with an upload form.
// GET /
func (h *Handler) Homepage(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Pipeline.Report(r.Context())
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homepage.Execute(w, NewPayrollRowDTOs(rows)); err != nil {
		h.log.Error().Err(err).Msg("rendering homepage failed")
	}
}

// Health reports whether the service and its store are up.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: "unchecked"})
		return
	}

	if err := h.Pinger.Ping(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// writePipelineError maps a pipeline error to its status. Store failures
// never leak their details to the client.
func (h *Handler) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	if payroll.IsClientError(err) {
		writeError(w, http.StatusBadRequest, payroll.PublicMessage(err), nil)
		return
	}

	h.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, payroll.GenericServerMessage, nil)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
