package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/narcorisks/internal/config"
	"github.com/kingrea/narcorisks/internal/schema/schematest"
	"github.com/kingrea/narcorisks/internal/session"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	sess := session.New(schematest.Load(t), session.WithID("test-session"))
	srv := NewServer(Settings{MaxBodyBytes: 256}, sess)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func send(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeState(t *testing.T, data []byte) stateResponse {
	t.Helper()
	var out stateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode state %s: %v", data, err)
	}
	return out
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9001
	settings := SettingsFromConfig(cfg)
	if settings.Address() != "0.0.0.0:9001" {
		t.Fatalf("address = %q", settings.Address())
	}
	if settings.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("max body = %d", settings.MaxBodyBytes)
	}
	if got := SettingsFromConfig(nil).Address(); got != "127.0.0.1:8470" {
		t.Fatalf("nil config address = %q", got)
	}
}

func TestToggleAndSummary(t *testing.T) {
	_, ts := newTestServer(t)
	resp, data := send(t, http.MethodPost, ts.URL+"/toggle", map[string]any{"path": "general.awareness"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status %d: %s", resp.StatusCode, data)
	}
	state := decodeState(t, data)
	want := []string{"general.awareness", "general.common", "general.common.nausea", "general.common.shivering"}
	if diff := cmp.Diff(want, state.State.Risks); diff != "" {
		t.Fatalf("risks (-want +got):\n%s", diff)
	}
	if !strings.Contains(state.Summary, "Allgemein: Übelkeit, Kältezittern") {
		t.Fatalf("summary = %q", state.Summary)
	}

	resp, data = send(t, http.MethodGet, ts.URL+"/summary", nil)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Fatalf("summary status %d type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(data), "Wachheit") {
		t.Fatalf("text summary = %q", data)
	}
	resp, data = send(t, http.MethodGet, ts.URL+"/summary?format=markdown", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "### Allgemeinanästhesie") {
		t.Fatalf("markdown summary %d: %s", resp.StatusCode, data)
	}
	resp, _ = send(t, http.MethodGet, ts.URL+"/summary?format=pdf", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d", resp.StatusCode)
	}
}

func TestPresetProcedureAndErrors(t *testing.T) {
	_, ts := newTestServer(t)
	resp, data := send(t, http.MethodPost, ts.URL+"/preset", presetRequest{Preset: "airway_device", Option: "tube"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preset status %d: %s", resp.StatusCode, data)
	}
	if state := decodeState(t, data); state.State.Presets["airway_device"] != "tube" {
		t.Fatalf("presets = %v", state.State.Presets)
	}
	resp, _ = send(t, http.MethodPost, ts.URL+"/preset", presetRequest{Preset: "nope", Option: "x"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown preset status = %d", resp.StatusCode)
	}
	resp, data = send(t, http.MethodPost, ts.URL+"/procedure", procedureRequest{Procedure: "ortho.knee"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("procedure status %d: %s", resp.StatusCode, data)
	}
	if state := decodeState(t, data); len(state.State.Warnings) != 1 {
		t.Fatalf("expected one warning for unknown.path, got %v", state.State.Warnings)
	}
	resp, _ = send(t, http.MethodPost, ts.URL+"/textblock", textBlockRequest{Key: "consent.missing"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown text block status = %d", resp.StatusCode)
	}
	resp, _ = send(t, http.MethodPost, ts.URL+"/toggle", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing path status = %d", resp.StatusCode)
	}
	resp, _ = send(t, http.MethodGet, ts.URL+"/toggle", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /toggle status = %d", resp.StatusCode)
	}
}

func TestPayloadLimit(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := send(t, http.MethodPut, ts.URL+"/freetext", freeTextRequest{Text: strings.Repeat("a", 512)})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestLanguageFreeTextAndReset(t *testing.T) {
	_, ts := newTestServer(t)
	send(t, http.MethodPost, ts.URL+"/toggle", map[string]any{"path": "regional.nerve.injury"})
	resp, data := send(t, http.MethodPost, ts.URL+"/language", languageRequest{Language: "en"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("language status %d: %s", resp.StatusCode, data)
	}
	if state := decodeState(t, data); !strings.Contains(state.Summary, "Nerves: Nerve injury") {
		t.Fatalf("english summary = %q", state.Summary)
	}
	_, data = send(t, http.MethodPut, ts.URL+"/freetext", freeTextRequest{Text: "Notiz"})
	if state := decodeState(t, data); state.State.FreeText != "Notiz" {
		t.Fatalf("free text = %q", state.State.FreeText)
	}
	_, data = send(t, http.MethodPost, ts.URL+"/reset", nil)
	state := decodeState(t, data)
	if len(state.State.Risks) != 0 || len(state.State.TextBlocks) != 0 || state.State.FreeText != "" || state.Summary != "" {
		t.Fatalf("state after reset = %+v", state)
	}
}

func TestSchemaAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)
	resp, data := send(t, http.MethodGet, ts.URL+"/schema", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schema status %d", resp.StatusCode)
	}
	var desc schemaResponse
	if err := json.Unmarshal(data, &desc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if len(desc.Groups) != 2 || desc.Groups[0].Path != "general" || desc.Groups[0].Children[0].Path != "general.common" {
		t.Fatalf("groups = %+v", desc.Groups)
	}
	if len(desc.Procedures) != 3 || desc.Procedures[0].Title != "Chirurgie › Appendektomie" {
		t.Fatalf("procedures = %+v", desc.Procedures)
	}

	send(t, http.MethodPost, ts.URL+"/activate", activateRequest{Path: "general.airway"})
	_, data = send(t, http.MethodGet, ts.URL+"/metrics", nil)
	if !strings.Contains(string(data), `narcorisks_operations_total{op="activate"} 1`) {
		t.Fatalf("metrics missing activate counter:\n%s", data)
	}
}

func TestServerLifecycle(t *testing.T) {
	sess := session.New(schematest.Load(t))
	fixed := time.Unix(1730000000, 0).UTC()
	srv := NewServer(Settings{Host: "127.0.0.1", Port: 0}, sess, WithClock(func() time.Time { return fixed }))
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Fatalf("second start should fail")
	}
	resp, data := send(t, http.MethodGet, srv.BaseURL()+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
	var health healthResponse
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != string(StatusReady) || health.Session != sess.ID() || health.UptimeSeconds != 0 {
		t.Fatalf("health = %+v", health)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.Status() != StatusDraining || srv.Addr() != "" {
		t.Fatalf("status %s addr %q after shutdown", srv.Status(), srv.Addr())
	}
}
