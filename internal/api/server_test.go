package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/siklink/internal/db"
	"github.com/banshee-data/siklink/internal/monitoring"
	"github.com/banshee-data/siklink/internal/params"
	"github.com/banshee-data/siklink/internal/serialmux"
	"github.com/banshee-data/siklink/internal/sik"
	"github.com/banshee-data/siklink/internal/simulator"
	"github.com/banshee-data/siklink/internal/telemetry"
	"github.com/banshee-data/siklink/internal/testutil"
	"github.com/banshee-data/siklink/internal/timeutil"
)

type testEnv struct {
	radio  *simulator.Radio
	client *sik.Client
	db     *db.DB
	window *telemetry.Window
	mux    *http.ServeMux
}

// newTestEnv returns a server backed by a simulated radio. When connect is
// set the client is connected and in command mode.
func newTestEnv(t *testing.T, connect bool) *testEnv {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create DB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	radio := simulator.NewRadio()
	client := sik.NewClient(
		serialmux.NewLineTransport(radio.Opener(), serialmux.PortOptions{}),
		sik.WithClock(timeutil.NewMockClock(time.Unix(0, 0))),
		sik.WithReadTimeout(50*time.Millisecond),
		sik.WithPollInterval(10*time.Millisecond),
	)
	if connect {
		if err := client.Connect("/dev/ttySIM0", 57600); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := client.EnterCommandMode(); err != nil {
			t.Fatalf("EnterCommandMode: %v", err)
		}
	}
	t.Cleanup(func() { client.Disconnect() })

	window := telemetry.NewWindow(10)
	server := NewServer(client, database, window)
	server.listPorts = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, nil }

	return &testEnv{radio: radio, client: client, db: database, window: window, mux: server.ServeMux()}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func paramValue(t *testing.T, list []Param, name string) any {
	t.Helper()
	for _, p := range list {
		if p.Name == name {
			return p.Value
		}
	}
	t.Fatalf("parameter %s missing from response", name)
	return nil
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	st := testutil.DecodeJSON[Status](t, w)
	if st.State != "disconnected" || st.Connected || st.CommandMode {
		t.Errorf("unexpected status %+v", st)
	}

	env = newTestEnv(t, true)
	st = testutil.DecodeJSON[Status](t, env.do(t, http.MethodGet, "/api/status", nil))
	if st.State != "command-mode" || st.Port != "/dev/ttySIM0" || !st.CommandMode {
		t.Errorf("unexpected status %+v", st)
	}

	if w := env.do(t, http.MethodPost, "/api/status", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestPorts(t *testing.T) {
	env := newTestEnv(t, false)
	ports := testutil.DecodeJSON[[]string](t, env.do(t, http.MethodGet, "/api/ports", nil))
	if len(ports) != 2 || ports[0] != "/dev/ttyUSB0" {
		t.Errorf("unexpected ports %v", ports)
	}
}

func TestPreconditionFaultsAreConflict(t *testing.T) {
	env := newTestEnv(t, false)

	for _, path := range []string{
		"/api/params/read",
		"/api/params/write",
		"/api/eeprom/save",
		"/api/reboot",
		"/api/command-mode",
		"/api/telemetry/toggle",
	} {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodPost, path, nil)
			if w.Code != http.StatusConflict {
				t.Errorf("Expected status 409, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestReadParams(t *testing.T) {
	env := newTestEnv(t, true)
	env.radio.SetParameter(params.NetID, 77)
	env.radio.SetParameter(params.ECC, 1)

	w := env.do(t, http.MethodPost, "/api/params/read", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	list := testutil.DecodeJSON[[]Param](t, w)
	if len(list) != params.Count {
		t.Fatalf("got %d params, want %d", len(list), params.Count)
	}
	if v := paramValue(t, list, "NETID"); v != float64(77) {
		t.Errorf("NETID = %v, want 77", v)
	}
	if v := paramValue(t, list, "ECC"); v != true {
		t.Errorf("ECC = %v, want true", v)
	}

	ident := testutil.DecodeJSON[params.Identification](t, env.do(t, http.MethodGet, "/api/identification", nil))
	if ident.BoardFrequency != "915" || ident.Banner != "SiK 2.0 on HM-TRP" {
		t.Errorf("unexpected identification %+v", ident)
	}
}

func TestReadParams_FailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, true)
	env.radio.SetFaults(simulator.Faults{BoardFrequency: 0x12})

	w := env.do(t, http.MethodPost, "/api/params/read", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateAndWriteParams(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPut, "/api/params", map[string]any{"NETID": 42, "ecc": true, "AIR_SPEED": 128})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	cfg := env.client.Config()
	if cfg.Int(params.NetID) != 42 || !cfg.Bool(params.ECC) || cfg.Int(params.AirSpeed) != 128 {
		t.Errorf("snapshot not updated: %v", cfg.Values())
	}
	if env.radio.Parameters()[params.NetID] == 42 {
		t.Error("PUT must not write to the radio")
	}

	w = env.do(t, http.MethodPost, "/api/params/write", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := env.radio.Parameters(); got[params.NetID] != 42 || got[params.ECC] != 1 {
		t.Errorf("radio parameters not written: %v", got)
	}

	w = env.do(t, http.MethodPost, "/api/eeprom/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.radio.Stored()[params.NetID] != 42 {
		t.Error("parameters not committed to EEPROM")
	}
}

func TestUpdateParams_Invalid(t *testing.T) {
	env := newTestEnv(t, true)
	before := env.client.Config().Values()

	tests := []struct {
		name string
		body any
	}{
		{"unknown name", map[string]any{"BOGUS": 1}},
		{"read only", map[string]any{"FORMAT": 26}},
		{"not in air rates", map[string]any{"AIR_SPEED": 100}},
		{"string value", map[string]any{"NETID": "abc"}},
		{"empty", map[string]any{}},
		{"one bad entry spoils the batch", map[string]any{"NETID": 10, "TXPOWER": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, "/api/params", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
	if got := env.client.Config().Values(); got != before {
		t.Errorf("snapshot changed by rejected updates: %v", got)
	}
}

func TestWriteParams_RejectedIsBadGateway(t *testing.T) {
	env := newTestEnv(t, true)
	env.radio.SetFaults(simulator.Faults{RejectWrites: map[params.ID]bool{params.NetID: true}})

	w := env.do(t, http.MethodPost, "/api/params/write", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestToggleTelemetryBlocksCommands(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodPost, "/api/telemetry/toggle", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := testutil.DecodeJSON[map[string]bool](t, w); !got["streaming"] {
		t.Errorf("expected streaming on, got %v", got)
	}

	w = env.do(t, http.MethodPost, "/api/params/read", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while streaming, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/telemetry/toggle", nil)
	if got := testutil.DecodeJSON[map[string]bool](t, w); got["streaming"] {
		t.Errorf("expected streaming off, got %v", got)
	}
}

func TestReboot(t *testing.T) {
	env := newTestEnv(t, true)

	if w := env.do(t, http.MethodPost, "/api/reboot", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.client.InCommandMode() {
		t.Error("client still in command mode after reboot")
	}

	if w := env.do(t, http.MethodPost, "/api/command-mode", nil); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !env.client.InCommandMode() || !env.radio.CommandMode() {
		t.Error("expected command mode after POST /api/command-mode")
	}
}

func TestTelemetrySummary(t *testing.T) {
	env := newTestEnv(t, false)

	got := testutil.DecodeJSON[TelemetrySummary](t, env.do(t, http.MethodGet, "/api/telemetry/summary", nil))
	if got.Summary.Count != 0 || got.Latest != nil {
		t.Errorf("expected empty summary, got %+v", got)
	}

	at := time.Unix(1000, 0)
	env.window.Add(at, telemetry.Sample{LocalRssi: 200, RemoteRssi: 190, LocalNoise: 40, RemoteNoise: 50})
	env.window.Add(at.Add(time.Second), telemetry.Sample{LocalRssi: 210, RemoteRssi: 180, LocalNoise: 40, RemoteNoise: 50})

	got = testutil.DecodeJSON[TelemetrySummary](t, env.do(t, http.MethodGet, "/api/telemetry/summary", nil))
	if got.Summary.Count != 2 {
		t.Errorf("Count = %d, want 2", got.Summary.Count)
	}
	if got.Summary.LocalRssi.Mean != 205 {
		t.Errorf("LocalRssi.Mean = %v, want 205", got.Summary.LocalRssi.Mean)
	}
	if got.Latest == nil || got.Latest.Seq != 2 {
		t.Errorf("unexpected latest %+v", got.Latest)
	}
}

func TestTelemetryRecent(t *testing.T) {
	env := newTestEnv(t, false)
	for i := 0; i < 3; i++ {
		if err := env.db.RecordTelemetry(time.Unix(int64(1000+i), 0), telemetry.Sample{LocalRssi: i}); err != nil {
			t.Fatal(err)
		}
	}

	records := testutil.DecodeJSON[[]db.TelemetryRecord](t, env.do(t, http.MethodGet, "/api/telemetry/recent?limit=2", nil))
	if len(records) != 2 || records[1].LocalRssi != 2 {
		t.Errorf("unexpected records %+v", records)
	}

	if w := env.do(t, http.MethodGet, "/api/telemetry/recent?limit=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestSnapshots(t *testing.T) {
	env := newTestEnv(t, true)
	if err := env.client.Config().SetInt(params.NetID, 9); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodPost, "/api/snapshots", SnapshotRequest{Label: "bench"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	created := testutil.DecodeJSON[db.ParamSnapshot](t, w)
	if created.Label != "bench" || created.PortPath != "/dev/ttySIM0" || created.Values[params.NetID] != 9 {
		t.Errorf("unexpected snapshot %+v", created)
	}

	// An empty body is accepted.
	req := httptest.NewRequest(http.MethodPost, "/api/snapshots", nil)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	list := testutil.DecodeJSON[[]db.ParamSnapshot](t, env.do(t, http.MethodGet, "/api/snapshots", nil))
	if len(list) != 2 || list[1].Label != "bench" {
		t.Errorf("unexpected snapshot list %+v", list)
	}

	w = env.do(t, http.MethodGet, "/api/snapshots/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/snapshots/99", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/snapshots/x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestNoDatabase(t *testing.T) {
	monitoring.SetLogger(nil)
	server := NewServer(sik.NewClient(serialmux.NewLineTransport(simulator.NewRadio().Opener(), serialmux.PortOptions{})), nil, nil)
	mux := server.ServeMux()

	for _, path := range []string{"/api/snapshots", "/api/serial/configs", "/api/telemetry/recent"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: Expected status 503, got %d", path, w.Code)
		}
	}
}

func TestWriteClientError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{sik.ErrNotConnected, http.StatusConflict},
		{sik.ErrStreaming, http.StatusConflict},
		{&sik.OpError{Op: "save", Err: errors.New("boom")}, http.StatusBadGateway},
		{params.ErrReadOnly, http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeClientError(w, tt.err)
		if w.Code != tt.want {
			t.Errorf("writeClientError(%v) = %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", w.Code)
	}
}
