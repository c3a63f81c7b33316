package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/siklink/internal/db"
	"github.com/banshee-data/siklink/internal/httputil"
)

// SnapshotRequest is the optional body of POST /api/snapshots.
type SnapshotRequest struct {
	Label string `json:"label"`
}

// handleSnapshots lists stored snapshots or stores the current one.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit, err := queryLimit(r, 50)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		snaps, err := s.db.ListParamSnapshots(limit)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		if snaps == nil {
			snaps = []db.ParamSnapshot{}
		}
		httputil.WriteJSONOK(w, snaps)
	case http.MethodPost:
		var req SnapshotRequest
		err := httputil.DecodeJSON(w, r, &req)
		if err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
			httputil.BadRequest(w, "invalid request body")
			return
		}
		id, err := s.db.SaveParamSnapshot(req.Label, s.client.PortName(), s.client.Config())
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		snap, err := s.db.GetParamSnapshot(int(id))
		if err != nil || snap == nil {
			httputil.InternalServerError(w, "snapshot saved but failed to fetch")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, snap)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleSnapshotByID serves GET /api/snapshots/:id.
func (s *Server) handleSnapshotByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireDB(w) {
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/snapshots/"))
	if err != nil {
		httputil.BadRequest(w, "invalid snapshot ID")
		return
	}
	snap, err := s.db.GetParamSnapshot(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if snap == nil {
		httputil.NotFound(w, "snapshot not found")
		return
	}
	httputil.WriteJSONOK(w, snap)
}
