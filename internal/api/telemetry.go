package api

import (
	"net/http"

	"github.com/banshee-data/siklink/internal/db"
	"github.com/banshee-data/siklink/internal/httputil"
	"github.com/banshee-data/siklink/internal/telemetry"
)

// TelemetrySummary is the body of GET /api/telemetry/summary.
type TelemetrySummary struct {
	Streaming bool                   `json:"streaming"`
	Summary   telemetry.Summary      `json:"summary"`
	Latest    *telemetry.Observation `json:"latest,omitempty"`
}

func (s *Server) handleTelemetrySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	obs := s.window.Observations()
	samples := make([]telemetry.Sample, len(obs))
	for i, o := range obs {
		samples[i] = o.Sample
	}
	resp := TelemetrySummary{
		Streaming: s.client.StreamingEnabled(),
		Summary:   telemetry.Summarize(samples),
	}
	if len(obs) > 0 {
		resp.Latest = &obs[len(obs)-1]
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleTelemetryRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}
	limit, err := queryLimit(r, 100)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	records, err := s.db.RecentTelemetry(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if records == nil {
		records = []db.TelemetryRecord{}
	}
	httputil.WriteJSONOK(w, records)
}
