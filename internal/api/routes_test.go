package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/scenescript/internal/db"
	"github.com/ivlev/scenescript/internal/logging"
	"github.com/ivlev/scenescript/internal/plan"
	"github.com/ivlev/scenescript/internal/script"
	"github.com/ivlev/scenescript/internal/timeline"
)

const testScript = `
meta: { frame_rate: 30, width: 1920, height: 1080, background: "#101010" }
scenes:
  - id: a
    duration_seconds: 1.0
    text: "A"
    layers:
      - { type: text, text: "hello" }
  - { id: b, duration_seconds: 2.0, type: content }
  - { id: a, duration_seconds: 0.5 }
`

func testConfig(t *testing.T) RouterConfig {
	t.Helper()
	s, err := script.Parse("scenes.yaml", []byte(testScript))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return RouterConfig{
		Timeline:  timeline.New(s),
		Logger:    logging.Discard(),
		StartTime: time.Now(),
		Version:   "test",
	}
}

func doRequest(t *testing.T, cfg RouterConfig, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	NewRouter(cfg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestHealth(t *testing.T) {
	rr := doRequest(t, testConfig(t), "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	var resp HealthResponse
	decodeJSONBody(t, rr, &resp)
	if resp.Status != "ok" || resp.Script != "scenes.yaml" || resp.Version != "test" {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestSummary(t *testing.T) {
	rr := doRequest(t, testConfig(t), "/summary")
	var sum plan.Summary
	decodeJSONBody(t, rr, &sum)
	if sum.Scenes != 3 || sum.FrameRate != 30 || sum.TotalFrames != 105 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestListScenes(t *testing.T) {
	rr := doRequest(t, testConfig(t), "/scenes")
	var resp ScenesResponse
	decodeJSONBody(t, rr, &resp)
	if len(resp.Scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(resp.Scenes))
	}
	b := resp.Scenes[1]
	if b.ID != "b" || b.Start != 30 || b.Frames != 60 || b.Type != script.SceneContent {
		t.Errorf("unexpected scene b: %+v", b)
	}
	if resp.Scenes[0].Layers != 1 {
		t.Errorf("expected 1 layer on scene a, got %d", resp.Scenes[0].Layers)
	}
}

func TestGetScene(t *testing.T) {
	cfg := testConfig(t)

	rr := doRequest(t, cfg, "/scenes/a")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp SceneDetailResponse
	decodeJSONBody(t, rr, &resp)
	if resp.Index != 0 || resp.Scene == nil || resp.Scene.Text != "A" {
		t.Errorf("expected first scene with id a, got %+v", resp)
	}

	rr = doRequest(t, cfg, "/scenes/missing")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestFrame(t *testing.T) {
	cfg := testConfig(t)

	rr := doRequest(t, cfg, "/frames/35")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get(ClampedHeader) != "" {
		t.Error("in-range frame must not be flagged as clamped")
	}
	var rc timeline.RenderContext
	decodeJSONBody(t, rr, &rc)
	if rc.SceneID != "b" || rc.LocalFrame != 5 || rc.SceneStart != 30 || rc.Background != "#101010" {
		t.Errorf("unexpected context: %+v", rc)
	}
}

func TestFrame_Clamped(t *testing.T) {
	rr := doRequest(t, testConfig(t), "/frames/500")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get(ClampedHeader) != "true" {
		t.Errorf("%s = %q, want true", ClampedHeader, rr.Header().Get(ClampedHeader))
	}
	var rc timeline.RenderContext
	decodeJSONBody(t, rr, &rc)
	if rc.SceneIndex != 2 || rc.LocalFrame != 0 || rc.SceneStart != 90 || rc.Frame != 500 {
		t.Errorf("unexpected clamped context: %+v", rc)
	}
}

func TestFrame_BadRequest(t *testing.T) {
	cfg := testConfig(t)
	for _, target := range []string{"/frames/abc", "/frames/-1", "/frames/1.5"} {
		rr := doRequest(t, cfg, target)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status code = %d, want %d", target, rr.Code, http.StatusBadRequest)
		}
		var resp ErrorResponse
		decodeJSONBody(t, rr, &resp)
		if resp.Code != "BAD_REQUEST" {
			t.Errorf("%s: error code = %q", target, resp.Code)
		}
	}
}

func TestPlan(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		target string
		status int
		count  int
	}{
		{"/plan", http.StatusOK, 105},
		{"/plan?from=10&to=20", http.StatusOK, 10},
		{"/plan?from=100&to=200", http.StatusOK, 5},
		{"/plan?from=300", http.StatusOK, 0},
		{"/plan?from=-1", http.StatusBadRequest, 0},
		{"/plan?from=20&to=10", http.StatusBadRequest, 0},
		{"/plan?to=x", http.StatusBadRequest, 0},
		{"/plan?from=0&to=10001", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := doRequest(t, cfg, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("status code = %d, want %d", rr.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var entries []plan.Entry
			decodeJSONBody(t, rr, &entries)
			if len(entries) != tt.count {
				t.Errorf("got %d entries, want %d", len(entries), tt.count)
			}
		})
	}
}

// savedPlanStore stores the plan of s in a fresh database.
func savedPlanStore(t *testing.T, s *script.Script) (*db.PlanStore, int64) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "plans.db"), nil)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	sum, err := plan.Summarize(s)
	if err != nil {
		t.Fatal(err)
	}
	contexts, err := plan.Build(context.Background(), s, plan.Options{})
	if err != nil {
		t.Fatal(err)
	}
	store := db.NewPlanStore(database)
	id, err := store.Save(context.Background(), s.Source(), sum, plan.Entries(contexts))
	if err != nil {
		t.Fatal(err)
	}
	return store, id
}

func TestPlan_FromStore(t *testing.T) {
	cfg := testConfig(t)
	store, id := savedPlanStore(t, cfg.Timeline.Script())

	stored, err := UseStoredPlan(context.Background(), &cfg, store)
	if err != nil {
		t.Fatalf("UseStoredPlan() error = %v", err)
	}
	if stored.ID != id || cfg.Store != store || cfg.PlanID != id {
		t.Fatalf("stored plan not attached: %+v", cfg)
	}

	rr := doRequest(t, cfg, "/plan?from=28&to=32")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	var entries []plan.Entry
	decodeJSONBody(t, rr, &entries)
	if len(entries) != 4 || entries[2].SceneID != "b" || entries[2].SceneFrame != 0 {
		t.Errorf("unexpected stored window: %+v", entries)
	}
}

func TestPlan_StaleStoreIgnored(t *testing.T) {
	cfg := testConfig(t)
	store, id := savedPlanStore(t, cfg.Timeline.Script())

	// Same path and length, different text.
	edited, err := script.Parse("scenes.yaml", []byte(strings.Replace(testScript, `text: "A"`, `text: "A2"`, 1)))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Timeline = timeline.New(edited)

	stored, err := UseStoredPlan(context.Background(), &cfg, store)
	if !errors.Is(err, ErrStalePlan) {
		t.Fatalf("UseStoredPlan() error = %v, want ErrStalePlan", err)
	}
	if stored == nil || stored.ID != id {
		t.Errorf("expected stale plan %d to be reported, got %+v", id, stored)
	}
	if cfg.Store != nil || cfg.PlanID != 0 {
		t.Fatalf("stale plan attached: store=%v id=%d", cfg.Store, cfg.PlanID)
	}

	rr := doRequest(t, cfg, "/plan?from=0&to=1")
	var entries []plan.Entry
	decodeJSONBody(t, rr, &entries)
	if len(entries) != 1 || entries[0].Text == nil || *entries[0].Text != "A2" {
		t.Errorf("expected entries from the edited script, got %+v", entries)
	}
}

func TestUseStoredPlan_NoPlan(t *testing.T) {
	cfg := testConfig(t)
	other, err := script.Parse("other.yaml", []byte(testScript))
	if err != nil {
		t.Fatal(err)
	}
	store, _ := savedPlanStore(t, other)

	if _, err := UseStoredPlan(context.Background(), &cfg, store); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("UseStoredPlan() error = %v, want db.ErrNotFound", err)
	}
	if cfg.Store != nil {
		t.Error("store attached without a plan")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := logging.Discard()
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRequestIDMiddleware_KeepsIncoming(t *testing.T) {
	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(RequestIDKey).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc123" || rr.Header().Get("X-Request-ID") != "abc123" {
		t.Errorf("request id = %q, header = %q", seen, rr.Header().Get("X-Request-ID"))
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger("info", "text", &buf)
	h := RequestIDMiddleware()(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{"request_id=abc123", "status=418", "path=/health"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}
