package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/siklink/internal/httputil"
	"github.com/banshee-data/siklink/internal/params"
)

// Param is one parameter of the snapshot as rendered by the API.
type Param struct {
	ID       params.ID `json:"id"`
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Value    any       `json:"value"`
	ReadOnly bool      `json:"read_only"`
}

func paramList(cfg *params.Config) []Param {
	values := cfg.Values()
	defs := params.Definitions()
	out := make([]Param, len(defs))
	for i, def := range defs {
		var v any = values[def.ID]
		if def.Kind == params.KindBool {
			v = values[def.ID] != 0
		}
		out[i] = Param{ID: def.ID, Name: def.Name, Kind: def.Kind.String(), Value: v, ReadOnly: def.ReadOnly}
	}
	return out
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, paramList(s.client.Config()))
	case http.MethodPut:
		s.handleUpdateParams(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleUpdateParams applies a partial update keyed by parameter name to the
// in-memory snapshot. Every entry is validated before any is applied; the
// radio is not written until POST /api/params/write.
func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	var req map[string]json.RawMessage
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if len(req) == 0 {
		httputil.BadRequest(w, "no parameters given")
		return
	}

	type update struct {
		id    params.ID
		value int
	}
	updates := make([]update, 0, len(req))
	for name, raw := range req {
		def, err := params.ByName(name)
		if err != nil {
			writeClientError(w, err)
			return
		}
		v, err := decodeParamValue(def, raw)
		if err != nil {
			writeClientError(w, err)
			return
		}
		if err := params.Validate(def.ID, v); err != nil {
			writeClientError(w, err)
			return
		}
		updates = append(updates, update{def.ID, v})
	}

	cfg := s.client.Config()
	for _, u := range updates {
		if err := cfg.SetInt(u.id, u.value); err != nil {
			writeClientError(w, err)
			return
		}
	}
	httputil.WriteJSONOK(w, paramList(cfg))
}

// decodeParamValue accepts a JSON number for any parameter and a JSON bool
// for boolean parameters.
func decodeParamValue(def params.Definition, raw json.RawMessage) (int, error) {
	if def.Kind == params.KindBool {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			if b {
				return 1, nil
			}
			return 0, nil
		}
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %s=%s", params.ErrInvalidValue, def.Name, string(raw))
	}
	return n, nil
}

func (s *Server) handleReadParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.client.ReadIdentification(); err != nil {
		writeClientError(w, err)
		return
	}
	if err := s.client.ReadEepromParameters(); err != nil {
		writeClientError(w, err)
		return
	}
	httputil.WriteJSONOK(w, paramList(s.client.Config()))
}

func (s *Server) handleWriteParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.client.SaveParameters(); err != nil {
		writeClientError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "written"})
}

func (s *Server) handleSaveEeprom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.client.SaveToEeprom(); err != nil {
		writeClientError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "saved"})
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.client.RebootRadio(); err != nil {
		writeClientError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "rebooting"})
}

func (s *Server) handleToggleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := s.client.ToggleRssiDebug(); err != nil {
		writeClientError(w, err)
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"streaming": s.client.StreamingEnabled()})
}
