package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dbehnke/pccc/pkg/logger"
)

// TestCollector_Handler tests the exposition handler
func TestCollector_Handler(t *testing.T) {
	collector := NewCollector()
	collector.BlockEncoded()
	collector.BlockDecoded("linear-log-map", "f32", 1024, 0, 3*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	expectedMetrics := []string{
		"# HELP pccc_blocks_encoded_total",
		"# TYPE pccc_decode_duration_seconds histogram",
		`pccc_bits_decoded_total{algorithm="linear-log-map",precision="f32"} 1024`,
		"pccc_runs_active 0",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("Expected %q in output", metric)
		}
	}
}

// TestPrometheusServer tests starting, scraping and stopping the Prometheus server
func TestPrometheusServer(t *testing.T) {
	collector := NewCollector()
	collector.BlockEncoded()
	config := PrometheusConfig{
		Enabled: true,
		Port:    0, // Use random port
		Path:    "/metrics",
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewPrometheusServer(config, collector, logger.New(logger.Config{Level: "error"}))

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if server.Addr() == "" {
		t.Fatal("server did not start listening")
	}

	port := server.Addr()[strings.LastIndex(server.Addr(), ":"):]
	resp, err := http.Get("http://127.0.0.1" + port + "/metrics")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "pccc_blocks_encoded_total 1") {
		t.Errorf("scrape missing encoded counter: %s", body)
	}

	cancel()

	select {
	case err := <-errChan:
		if err != nil && err != context.Canceled && err != http.ErrServerClosed {
			t.Errorf("Unexpected error from server: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Server did not stop in time")
	}
}

// TestPrometheusServer_Disabled tests that disabled server doesn't start
func TestPrometheusServer_Disabled(t *testing.T) {
	server := NewPrometheusServer(PrometheusConfig{Enabled: false}, NewCollector(), nil)

	if err := server.Start(context.Background()); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if server.Addr() != "" {
		t.Errorf("Expected no address when disabled, got %q", server.Addr())
	}
}
