package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"order-analysis/internal/database"
	"order-analysis/internal/export"
	"order-analysis/internal/orders"
	"order-analysis/internal/report"
	"order-analysis/internal/services"
)

// ReportHandler serves computed reports and their exports.
type ReportHandler struct {
	reporter *services.Reporter
	options  export.Options
	logger   *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reporter *services.Reporter, opts export.Options, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{reporter: reporter, options: opts, logger: logger}
}

// SectionResponse carries one report section with its provenance.
type SectionResponse struct {
	RunID    string                `json:"run_id,omitempty"`
	Params   report.Params         `json:"params"`
	Snapshot services.SnapshotInfo `json:"snapshot"`
	Data     interface{}           `json:"data"`
}

// params reads ?date=YYYY-MM-DD&hub=... defaulting to today and the first
// configured hub.
func (h *ReportHandler) params(r *http.Request) (report.Params, error) {
	cfg := h.reporter.Config()
	q := r.URL.Query()

	params := report.Params{Date: orders.Today(cfg.Location), Hub: cfg.Hubs[0]}
	if s := q.Get("date"); s != "" {
		date, err := orders.ParseDate(s)
		if err != nil {
			return params, invalidParam("date", s, err)
		}
		params.Date = date
	}
	if hub := q.Get("hub"); hub != "" {
		params.Hub = hub
	}
	return params, nil
}

// build computes the report selected by the request, refreshing the snapshot
// first when ?refresh=true.
func (h *ReportHandler) build(r *http.Request) (*services.Result, error) {
	params, err := h.params(r)
	if err != nil {
		return nil, err
	}

	refresh := false
	if s := r.URL.Query().Get("refresh"); s != "" {
		refresh, err = strconv.ParseBool(s)
		if err != nil {
			return nil, invalidParam("refresh", s, err)
		}
	}

	return h.reporter.Build(r.Context(), params, database.TriggerRequest, refresh)
}

// GetReport handles GET /api/reports
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.build(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ReportHandler) section(pick func(*report.Report) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.build(r)
		if err != nil {
			writeError(w, h.logger, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SectionResponse{
			RunID:    result.RunID,
			Params:   result.Report.Params,
			Snapshot: result.Snapshot,
			Data:     pick(result.Report),
		})
	}
}

// GetDrivers handles GET /api/reports/drivers
func (h *ReportHandler) GetDrivers(w http.ResponseWriter, r *http.Request) {
	h.section(func(rep *report.Report) interface{} { return rep.Drivers })(w, r)
}

// GetHubs handles GET /api/reports/hubs
func (h *ReportHandler) GetHubs(w http.ResponseWriter, r *http.Request) {
	h.section(func(rep *report.Report) interface{} { return rep.Hubs })(w, r)
}

// GetVehicles handles GET /api/reports/vehicles
func (h *ReportHandler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	h.section(func(rep *report.Report) interface{} { return rep.Vehicles })(w, r)
}

// GetHubTimes handles GET /api/reports/time-buckets/hubs
func (h *ReportHandler) GetHubTimes(w http.ResponseWriter, r *http.Request) {
	h.section(func(rep *report.Report) interface{} { return rep.HubTimes })(w, r)
}

// GetCustomerTimes handles GET /api/reports/time-buckets/customers
func (h *ReportHandler) GetCustomerTimes(w http.ResponseWriter, r *http.Request) {
	h.section(func(rep *report.Report) interface{} { return rep.Customers })(w, r)
}

// ExportTable handles GET /api/reports/{table}/export?format=
func (h *ReportHandler) ExportTable(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}
	writer, err := export.NewWriter(format, h.options)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	result, err := h.build(r)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	table, err := export.Table(result.Report, chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	// Render fully before writing so failures still produce a JSON error.
	var buf bytes.Buffer
	if err := writer.Write(r.Context(), &buf, table); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	params := result.Report.Params
	filename := fmt.Sprintf("%s_%s_%s", params.Date, export.Slug(params.Hub), export.FileName(table, writer.Format()))
	w.Header().Set("Content-Type", writer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
