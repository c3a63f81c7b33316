// Package api exposes a radio client over a JSON HTTP API.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/siklink/internal/db"
	"github.com/banshee-data/siklink/internal/httputil"
	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/sik"
	"github.com/banshee-data/siklink/internal/telemetry"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	client    *sik.Client
	db        *db.DB
	window    *telemetry.Window
	listPorts func() ([]string, error)
}

// NewServer returns a server for client. database may be nil, in which case
// the snapshot and serial config routes answer 503. window holds the samples
// summarised by /api/telemetry/summary and may be nil.
func NewServer(client *sik.Client, database *db.DB, window *telemetry.Window) *Server {
	if window == nil {
		window = telemetry.NewWindow(1)
	}
	return &Server{
		client:    client,
		db:        database,
		window:    window,
		listPorts: serialmux.ListPorts,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/ports", s.handlePorts)
	mux.HandleFunc("/api/command-mode", s.handleCommandMode)
	mux.HandleFunc("/api/identification", s.handleIdentification)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/params/read", s.handleReadParams)
	mux.HandleFunc("/api/params/write", s.handleWriteParams)
	mux.HandleFunc("/api/eeprom/save", s.handleSaveEeprom)
	mux.HandleFunc("/api/reboot", s.handleReboot)
	mux.HandleFunc("/api/telemetry/toggle", s.handleToggleTelemetry)
	mux.HandleFunc("/api/telemetry/summary", s.handleTelemetrySummary)
	mux.HandleFunc("/api/telemetry/recent", s.handleTelemetryRecent)
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/snapshots/", s.handleSnapshotByID)
	mux.HandleFunc("/api/serial/configs", s.handleSerialConfigsOrCreate)
	mux.HandleFunc("/api/serial/configs/", s.handleSerialConfigByID)
	return mux
}

// Status describes the client's connection state.
type Status struct {
	State       string `json:"state"`
	Port        string `json:"port"`
	Connected   bool   `json:"connected"`
	CommandMode bool   `json:"command_mode"`
	Streaming   bool   `json:"streaming"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, Status{
		State:       s.client.State().String(),
		Port:        s.client.PortName(),
		Connected:   s.client.IsConnected(),
		CommandMode: s.client.InCommandMode(),
		Streaming:   s.client.StreamingEnabled(),
	})
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	ports, err := s.listPorts()
	if err != nil {
		httputil.InternalServerError(w, "failed to list serial ports: "+err.Error())
		return
	}
	if ports == nil {
		ports = []string{}
	}
	httputil.WriteJSONOK(w, ports)
}

// handleCommandMode probes for command mode and enters it if needed.
func (s *Server) handleCommandMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	in, err := s.client.CheckCommandMode()
	if err != nil {
		writeClientError(w, err)
		return
	}
	if !in {
		if err := s.client.EnterCommandMode(); err != nil {
			writeClientError(w, err)
			return
		}
	}
	httputil.WriteJSONOK(w, map[string]bool{"command_mode": true})
}

func (s *Server) handleIdentification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.client.Config().Identification())
}

// writeClientError maps client and parameter errors onto HTTP statuses.
func writeClientError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sik.ErrPrecondition):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, sik.ErrFailed):
		httputil.BadGateway(w, err.Error())
	case errors.Is(err, params.ErrUnknownParameter),
		errors.Is(err, params.ErrReadOnly),
		errors.Is(err, params.ErrInvalidValue):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		httputil.ServiceUnavailable(w, "database disabled")
		return false
	}
	return true
}

func queryLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("invalid 'limit' parameter")
	}
	return n, nil
}
