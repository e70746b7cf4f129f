package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/analogy"
	"github.com/hyperjump/analogyeval/internal/config"
	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/similarity"
	"github.com/hyperjump/analogyeval/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(store, &config.ServerConfig{Host: "localhost", Port: 8080}, zap.NewNop()), store
}

func seedRun(t *testing.T, store storage.Storage, id string, created time.Time) {
	t.Helper()
	rep := &models.RunReport{
		Run: &models.Run{ID: id, CreatedAt: created, Embeddings: "vectors.bin", Analogies: "questions.txt",
			Measures: []string{"ranks"}, Workers: 2},
		Results: []models.AnalogyResult{
			{Analogy: analogy.Analogy{W1: "a", W2: "b", W3: "c", W4: "d"}, Category: ": capitals",
				Ranks: &ranking.Ranks{Baseline: 4, Additive: 1, Multiplicative: 1}},
			{Analogy: analogy.Analogy{W1: "e", W2: "f", W3: "g", W4: "h"}, Category: ": plurals",
				Ranks: &ranking.Ranks{Baseline: 2, Additive: 10, Multiplicative: 5}},
		},
		Centroids: []similarity.CentroidResult{
			{Category: ": capitals", Pairs: []similarity.PairSimilarity{{Pair: "a:b", Similarity: 1}}},
			{Category: ": plurals", Empty: true},
		},
	}
	if err := store.CreateRun(context.Background(), rep); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, h http.Handler, method, target string, out interface{}) int {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if out != nil && w.Code < 300 {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, target, err)
		}
	}
	return w.Code
}

func TestHandleHealth(t *testing.T) {
	srv, store := newTestServer(t)
	seedRun(t, store, "run-1", time.Now().UTC())

	var out struct {
		Status string `json:"status"`
		Runs   int64  `json:"runs"`
		Disk   int64  `json:"disk_usage_bytes"`
	}
	if code := get(t, srv.Handler(), http.MethodGet, "/health", &out); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if out.Status != "ok" || out.Runs != 1 || out.Disk == 0 {
		t.Errorf("health = %+v", out)
	}
}

func TestHandleListRuns(t *testing.T) {
	srv, store := newTestServer(t)
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRun(t, store, "first", base)
	seedRun(t, store, "second", base.Add(time.Minute))

	var out struct {
		Runs  []models.Run `json:"runs"`
		Total int64        `json:"total"`
		Limit int          `json:"limit"`
	}
	if code := get(t, srv.Handler(), http.MethodGet, "/api/v1/runs?limit=1", &out); code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if len(out.Runs) != 1 || out.Runs[0].ID != "second" || out.Total != 2 || out.Limit != 1 {
		t.Errorf("list = %+v", out)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/runs?limit=abc", http.StatusBadRequest},
		{"/api/v1/runs?offset=-1", http.StatusBadRequest},
		{"/api/v1/runs?offset=5", http.StatusOK},
	}
	for _, tt := range tests {
		if code := get(t, srv.Handler(), http.MethodGet, tt.target, nil); code != tt.want {
			t.Errorf("%s: got %d, want %d", tt.target, code, tt.want)
		}
	}
}

func TestHandleRunEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	seedRun(t, store, "run-1", time.Now().UTC())
	h := srv.Handler()

	var run models.Run
	if code := get(t, h, http.MethodGet, "/api/v1/runs/run-1", &run); code != http.StatusOK {
		t.Fatalf("get run: %d", code)
	}
	if run.ID != "run-1" || run.Workers != 2 {
		t.Errorf("run = %+v", run)
	}

	var results struct {
		Results []models.AnalogyResult `json:"results"`
	}
	if code := get(t, h, http.MethodGet, "/api/v1/runs/run-1/results?category=:+plurals", &results); code != http.StatusOK {
		t.Fatalf("results: %d", code)
	}
	if len(results.Results) != 1 || results.Results[0].Analogy.W1 != "e" {
		t.Errorf("results = %+v", results.Results)
	}

	var summary struct {
		Summary []ranking.Summary `json:"summary"`
	}
	if code := get(t, h, http.MethodGet, "/api/v1/runs/run-1/summary", &summary); code != http.StatusOK {
		t.Fatalf("summary: %d", code)
	}
	if len(summary.Summary) != 3 || summary.Summary[0].Category != ranking.OverallCategory || summary.Summary[0].Count != 2 {
		t.Errorf("summary = %+v", summary.Summary)
	}

	var centroids struct {
		Centroids []similarity.CentroidResult `json:"centroids"`
	}
	if code := get(t, h, http.MethodGet, "/api/v1/runs/run-1/centroids", &centroids); code != http.StatusOK {
		t.Fatalf("centroids: %d", code)
	}
	if len(centroids.Centroids) != 2 || !centroids.Centroids[1].Empty {
		t.Errorf("centroids = %+v", centroids.Centroids)
	}
}

func TestHandleDeleteRun(t *testing.T) {
	srv, store := newTestServer(t)
	seedRun(t, store, "run-1", time.Now().UTC())
	h := srv.Handler()

	if code := get(t, h, http.MethodDelete, "/api/v1/runs/run-1", nil); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if code := get(t, h, http.MethodDelete, "/api/v1/runs/run-1", nil); code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want 404", code)
	}
}

func TestHandleNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	for _, target := range []string{
		"/api/v1/runs/missing",
		"/api/v1/runs/missing/results",
		"/api/v1/runs/missing/summary",
		"/api/v1/runs/missing/centroids",
	} {
		if code := get(t, h, http.MethodGet, target, nil); code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", target, code)
		}
	}
}
