package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	w := httptest.NewRecorder()
	w.WriteHeader(http.StatusConflict)

	mock := &testing.T{}
	AssertStatusCode(mock, w, http.StatusConflict)
	if mock.Failed() {
		t.Error("AssertStatusCode failed on matching status")
	}
}

func TestNewJSONRequest(t *testing.T) {
	req := NewJSONRequest(t, http.MethodPost, "/api/params", map[string]int{"NETID": 7})
	if req.Method != http.MethodPost || req.URL.Path != "/api/params" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != "{\"NETID\":7}\n" {
		t.Errorf("body = %q", body)
	}

	empty := NewJSONRequest(t, http.MethodGet, "/api/status", nil)
	if b, _ := io.ReadAll(empty.Body); len(b) != 0 {
		t.Errorf("expected empty body, got %q", b)
	}
}

func TestDecodeJSON(t *testing.T) {
	w := httptest.NewRecorder()
	w.WriteString(`{"streaming":true}`)

	got := DecodeJSON[map[string]bool](t, w)
	if !got["streaming"] {
		t.Errorf("DecodeJSON = %v", got)
	}
}
