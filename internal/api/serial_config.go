package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/siklink/internal/db"
	"github.com/banshee-data/siklink/internal/httputil"
)

// SerialConfigRequest represents the request body for creating/updating serial configs
type SerialConfigRequest struct {
	Name        string `json:"name"`
	PortPath    string `json:"port_path"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

func (req SerialConfigRequest) validate() string {
	if req.Name == "" {
		return "Name is required"
	}
	if req.PortPath == "" {
		return "Port path is required"
	}
	if !isValidPortPath(req.PortPath) {
		return "Invalid port path. Must start with /dev/tty, /dev/cu., /dev/serial or COM"
	}
	return ""
}

func (req SerialConfigRequest) config(id int) *db.SerialConfig {
	return &db.SerialConfig{
		ID:          id,
		Name:        req.Name,
		PortPath:    req.PortPath,
		BaudRate:    req.BaudRate,
		DataBits:    req.DataBits,
		StopBits:    req.StopBits,
		Parity:      req.Parity,
		Enabled:     req.Enabled,
		Description: req.Description,
	}
}

// handleSerialConfigsOrCreate handles GET and POST to /api/serial/configs
func (s *Server) handleSerialConfigsOrCreate(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleSerialConfigs(w, r)
	case http.MethodPost:
		s.handleCreateSerialConfig(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleSerialConfigs handles GET /api/serial/configs - List all serial configurations
func (s *Server) handleSerialConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.db.GetSerialConfigs()
	if err != nil {
		log.Printf("Error fetching serial configs: %v", err)
		httputil.InternalServerError(w, "Failed to fetch serial configurations")
		return
	}
	if configs == nil {
		configs = []db.SerialConfig{}
	}
	httputil.WriteJSONOK(w, configs)
}

// handleSerialConfigByID handles GET/PUT/DELETE /api/serial/configs/:id
func (s *Server) handleSerialConfigByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/serial/configs/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		httputil.BadRequest(w, "Missing config ID")
		return
	}

	id, err := strconv.Atoi(pathParts[0])
	if err != nil {
		httputil.BadRequest(w, "Invalid config ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSerialConfig(w, id)
	case http.MethodPut:
		s.handleUpdateSerialConfig(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSerialConfig(w, id)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleGetSerialConfig handles GET /api/serial/configs/:id
func (s *Server) handleGetSerialConfig(w http.ResponseWriter, id int) {
	config, err := s.db.GetSerialConfig(id)
	if err != nil {
		log.Printf("Error fetching serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch serial configuration")
		return
	}
	if config == nil {
		httputil.NotFound(w, "Configuration not found")
		return
	}
	httputil.WriteJSONOK(w, config)
}

// handleCreateSerialConfig handles POST /api/serial/configs
func (s *Server) handleCreateSerialConfig(w http.ResponseWriter, r *http.Request) {
	var req SerialConfigRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}

	id, err := s.db.CreateSerialConfig(req.config(0))
	if err != nil {
		log.Printf("Error creating serial config: %v", err)
		writeStoreError(w, err, "Failed to create serial configuration")
		return
	}

	created, err := s.db.GetSerialConfig(int(id))
	if err != nil || created == nil {
		log.Printf("Error fetching created config: %v", err)
		httputil.InternalServerError(w, "Configuration created but failed to fetch")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// handleUpdateSerialConfig handles PUT /api/serial/configs/:id
func (s *Server) handleUpdateSerialConfig(w http.ResponseWriter, r *http.Request, id int) {
	var req SerialConfigRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		httputil.BadRequest(w, msg)
		return
	}

	if err := s.db.UpdateSerialConfig(req.config(id)); err != nil {
		log.Printf("Error updating serial config %d: %v", id, err)
		writeStoreError(w, err, "Failed to update serial configuration")
		return
	}

	updated, err := s.db.GetSerialConfig(id)
	if err != nil || updated == nil {
		log.Printf("Error fetching updated config: %v", err)
		httputil.InternalServerError(w, "Configuration updated but failed to fetch")
		return
	}
	httputil.WriteJSONOK(w, updated)
}

// handleDeleteSerialConfig handles DELETE /api/serial/configs/:id
func (s *Server) handleDeleteSerialConfig(w http.ResponseWriter, id int) {
	if err := s.db.DeleteSerialConfig(id); err != nil {
		log.Printf("Error deleting serial config %d: %v", id, err)
		writeStoreError(w, err, "Failed to delete serial configuration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		httputil.NotFound(w, "Configuration not found")
	case strings.Contains(msg, "UNIQUE constraint failed"):
		httputil.Conflict(w, "Configuration with this name already exists")
	case strings.Contains(msg, "invalid serial config"):
		httputil.BadRequest(w, msg)
	default:
		httputil.InternalServerError(w, fallback)
	}
}

// isValidPortPath validates that a port path is in an allowed format
func isValidPortPath(path string) bool {
	for _, prefix := range []string{"/dev/tty", "/dev/cu.", "/dev/serial", "COM"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
