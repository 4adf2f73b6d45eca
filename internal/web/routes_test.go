package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sstent/garmin-summary/internal/cache"
	"github.com/sstent/garmin-summary/internal/logger"
	"github.com/sstent/garmin-summary/internal/models"
	"github.com/sstent/garmin-summary/internal/parser"
	"github.com/sstent/garmin-summary/internal/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var activities = map[string]string{
	"run.txt":  "date=20200101 time=08:00:00 type=running dur=0:30:00 dis=5000m cal=400 avghr=150\n",
	"ride.txt": "date=20200103 time=08:00:00 type=biking dur=1:00:00 dis=20000m cal=600\n",
}

func setup(t *testing.T) (*gin.Engine, *sync.SyncService, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range activities {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	engine := cache.NewEngine(cache.NewMemoryStore(), &parser.FileParser{Logger: logger.Discard},
		cache.WithLogger(logger.Discard))
	svc := sync.NewSyncService(engine, []string{dir}, cache.DefaultOptions(), sync.WithLogger(logger.Discard))

	h := NewWebHandler(svc)
	h.now = func() time.Time { return time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC) }
	router, err := h.NewRouter()
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	return router, svc, dir
}

func do(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _, _ := setup(t)
	w := do(router, http.MethodGet, "/health")
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
}

func TestSyncAndActivities(t *testing.T) {
	router, _, _ := setup(t)

	w := do(router, http.MethodGet, "/activities")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("Expected no activities before sync, got %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodPost, "/sync")
	if w.Code != http.StatusOK {
		t.Fatalf("sync returned %d: %s", w.Code, w.Body.String())
	}
	var status sync.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Records != 2 {
		t.Errorf("Expected 2 records, got %d", status.Records)
	}

	w = do(router, http.MethodGet, "/activities")
	var records []models.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Filename != "run.txt" {
		t.Errorf("unexpected activities %+v", records)
	}

	w = do(router, http.MethodGet, "/activities?sport=biking")
	records = nil
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Sport != models.SportBiking {
		t.Errorf("unexpected filtered activities %+v", records)
	}

	w = do(router, http.MethodGet, "/activities?limit=1&offset=1")
	records = nil
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Filename != "ride.txt" {
		t.Errorf("unexpected page %+v", records)
	}

	if w := do(router, http.MethodGet, "/activities?sport=curling"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown sport, got %d", w.Code)
	}
}

func TestActivityDetail(t *testing.T) {
	router, svc, _ := setup(t)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	w := do(router, http.MethodGet, "/activities/run.txt")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var rec models.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Sport != models.SportRunning || rec.TotalDistance != 5000 {
		t.Errorf("unexpected record %+v", rec)
	}

	if w := do(router, http.MethodGet, "/activities/missing.fit"); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestReport(t *testing.T) {
	router, svc, _ := setup(t)
	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	w := do(router, http.MethodGet, "/report?month")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "2020 Jan") || !strings.Contains(body, "2 / 3 days") {
		t.Errorf("unexpected report:\n%s", body)
	}
	if strings.Contains(body, "average / day") {
		t.Errorf("averages were not requested:\n%s", body)
	}

	w = do(router, http.MethodGet, "/report?sport=running")
	if strings.Contains(w.Body.String(), "biking") {
		t.Errorf("sport filter ignored:\n%s", w.Body.String())
	}
}

func TestIndex(t *testing.T) {
	router, svc, _ := setup(t)

	w := do(router, http.MethodGet, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "No activities yet") {
		t.Fatalf("unexpected empty index %d:\n%s", w.Code, w.Body.String())
	}

	if _, err := svc.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	w = do(router, http.MethodGet, "/")
	if !strings.Contains(w.Body.String(), "<pre>") || !strings.Contains(w.Body.String(), "2 activities") {
		t.Errorf("unexpected index:\n%s", w.Body.String())
	}
}
