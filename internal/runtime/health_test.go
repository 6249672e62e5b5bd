package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHealthEndpoint(t *testing.T) {
	got, err := healthEndpoint("http://localhost:8000/sse")
	if err != nil {
		t.Fatalf("health endpoint: %v", err)
	}
	if got != "http://localhost:8000/health" {
		t.Fatalf("endpoint = %q", got)
	}

	if _, err := healthEndpoint("localhost:8000"); err == nil {
		t.Fatal("url without scheme accepted")
	}
}

func TestCheckProbesServers(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	checker := NewHealthChecker(2 * time.Second)
	statuses := checker.Check(context.Background(), map[string]string{
		"binance": healthy.URL,
		"polygon": broken.URL,
	})

	if len(statuses) != 2 {
		t.Fatalf("statuses = %d", len(statuses))
	}
	if statuses[0].Name != "binance" || statuses[1].Name != "polygon" {
		t.Fatalf("statuses not sorted by name: %+v", statuses)
	}
	if !statuses[0].OK {
		t.Fatalf("healthy server reported down: %+v", statuses[0])
	}
	if statuses[1].OK {
		t.Fatal("broken server reported healthy")
	}
	if !strings.Contains(statuses[1].Err, "HTTP 500") {
		t.Fatalf("err = %q", statuses[1].Err)
	}

	if AllHealthy(statuses) {
		t.Fatal("AllHealthy true with a failed probe")
	}
	if !AllHealthy(statuses[:1]) {
		t.Fatal("AllHealthy false with every probe up")
	}
}
