package health

import (
	"encoding/json"
	"net/http"
)

// Handler exposes a Monitor over HTTP.
type Handler struct {
	monitor *Monitor
}

// NewHandler creates a new health handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// ServeHealth writes the overall status. Critical answers 503.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.CheckHealth(r.Context())
	writeReport(w, report.SystemStatus, map[string]string{"status": string(report.SystemStatus)})
}

// ServeDetailed writes every component's result.
func (h *Handler) ServeDetailed(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.CheckHealth(r.Context())
	writeReport(w, report.SystemStatus, report)
}

func writeReport(w http.ResponseWriter, status SystemStatus, body any) {
	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(body)
}
