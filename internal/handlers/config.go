package handlers

import (
	"net/http"

	"order-analysis/internal/export"
	"order-analysis/internal/report"
	"order-analysis/internal/services"
)

// ConfigHandler exposes the enumerations clients need to build requests.
type ConfigHandler struct {
	reporter *services.Reporter
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(reporter *services.Reporter) *ConfigHandler {
	return &ConfigHandler{reporter: reporter}
}

// ConfigResponse is the public view of the report configuration.
type ConfigResponse struct {
	Source                     string          `json:"source"`
	Location                   string          `json:"location"`
	Hubs                       []string        `json:"hubs"`
	Customers                  []string        `json:"customers"`
	Buckets                    []report.Bucket `json:"buckets"`
	BacklogCutoff              string          `json:"backlog_cutoff"`
	DateFilterDriverExceptions bool            `json:"date_filter_driver_exceptions"`
	Tables                     []string        `json:"tables"`
	Formats                    []string        `json:"formats"`
}

// GetConfig handles GET /api/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.reporter.Config()
	writeJSON(w, http.StatusOK, ConfigResponse{
		Source:                     h.reporter.SourceName(),
		Location:                   cfg.Location.String(),
		Hubs:                       cfg.Hubs,
		Customers:                  cfg.Customers,
		Buckets:                    cfg.Buckets,
		BacklogCutoff:              cfg.BacklogCutoff.String(),
		DateFilterDriverExceptions: cfg.DateFilterDriverExceptions,
		Tables:                     export.TableNames,
		Formats:                    export.Formats,
	})
}
