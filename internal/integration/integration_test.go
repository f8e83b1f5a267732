//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dbehnke/pccc/internal/app"
	"github.com/dbehnke/pccc/internal/observe"
	"github.com/dbehnke/pccc/internal/testhelpers"
	"github.com/dbehnke/pccc/pkg/bench"
	"github.com/dbehnke/pccc/pkg/metrics"
	"github.com/dbehnke/pccc/pkg/mqtt"
	"github.com/dbehnke/pccc/pkg/pccc"
	"github.com/dbehnke/pccc/pkg/web"
)

func smallScenario() bench.Scenario {
	return bench.Scenario{
		BlockSize:     128,
		Polynomials:   pccc.Polynomials{0o13, 0o15},
		Algo:          pccc.LinearLogMAP(6, pccc.DefaultTableSize),
		Precision:     bench.F32,
		SoftMagnitude: 1,
		Trials:        20,
		Workers:       4,
		Seed:          42,
	}
}

// TestMQTTEventPublishing runs a scenario through a disabled publisher
func TestMQTTEventPublishing(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	// Create MQTT publisher (disabled for testing)
	publisher := mqtt.New(mqtt.Config{
		Enabled:     false,
		TopicPrefix: "pccc/test",
	}, suite.Logger)

	runner := bench.NewRunner(suite.Logger, observe.NewMQTT(publisher, suite.Logger))
	if _, err := runner.Run(suite.Ctx, smallScenario()); err != nil {
		t.Errorf("Run failed: %v", err)
	}
}

// TestPrometheusScrape runs scenarios and scrapes the exported counters
func TestPrometheusScrape(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()
	server := metrics.NewPrometheusServer(metrics.PrometheusConfig{
		Enabled: true,
		Port:    suite.GetFreePort(),
		Path:    "/metrics",
	}, collector, suite.Logger)
	go func() { _ = server.Start(suite.Ctx) }()
	suite.AssertEventually(func() bool { return server.Addr() != "" }, 2*time.Second, "metrics server listening")

	runner := bench.NewRunner(suite.Logger, observe.NewMetrics(collector))
	for _, prec := range []bench.Precision{bench.F32, bench.F64} {
		s := smallScenario()
		s.Precision = prec
		if _, err := runner.Run(suite.Ctx, s); err != nil {
			t.Fatalf("Run %s failed: %v", prec, err)
		}
	}

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`pccc_blocks_decoded_total{algorithm="linear-log-map",precision="f32"} 20`,
		`pccc_blocks_decoded_total{algorithm="linear-log-map",precision="f64"} 20`,
		`pccc_runs_total{status="completed"} 2`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape is missing %q", want)
		}
	}
}

// TestDashboardStream follows a sweep over the WebSocket feed
func TestDashboardStream(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	cfg := suite.Config
	cfg.Web.Enabled = true
	cfg.Web.Host = "localhost"
	cfg.Web.Port = suite.GetFreePort()
	cfg.Metrics.Enabled = true

	a, err := app.New(cfg, suite.Logger)
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	a.Start(suite.Ctx)
	suite.AssertEventually(func() bool { return a.Web().GetAddr() != "" }, 2*time.Second, "web server listening")

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+a.Web().GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	suite.AssertEventually(func() bool { return a.Web().GetHub().GetClientCount() == 1 }, 2*time.Second, "client registered")

	if _, err := a.Sweep(suite.Ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	var types []string
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed after %v: %v", types, err)
		}
		var ev web.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		types = append(types, ev.Type)
		if ev.Type == web.EventRunCompleted {
			break
		}
	}
	if types[0] != web.EventRunStarted {
		t.Errorf("Expected run_started first, got %v", types)
	}

	suite.Cancel()
	if err := a.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

// TestMetricsConcurrency runs several scenarios at once against one collector
func TestMetricsConcurrency(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()
	runner := bench.NewRunner(suite.Logger, observe.NewMetrics(collector))

	const runs = 6
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			s := smallScenario()
			s.Seed = seed
			if _, err := runner.Run(suite.Ctx, s); err != nil {
				errs <- fmt.Errorf("seed %d: %w", seed, err)
			}
		}(uint64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	totals := collector.Totals()
	if totals.BlocksDecoded != runs*20 {
		t.Errorf("Expected %d blocks decoded, got %d", runs*20, totals.BlocksDecoded)
	}
	if totals.CompletedRuns != runs || totals.ActiveRuns != 0 {
		t.Errorf("Unexpected run counters %+v", totals)
	}
}

// TestIntegrationSuite_WaitForAdvanced watches counters of a run in progress
func TestIntegrationSuite_WaitForAdvanced(t *testing.T) {
	suite := testhelpers.NewIntegrationSuite(t)
	defer suite.Cleanup()

	collector := metrics.NewCollector()
	runner := bench.NewRunner(suite.Logger, observe.NewMetrics(collector))

	ctx, cancel := context.WithCancel(suite.Ctx)
	defer cancel()
	go func() {
		s := smallScenario()
		s.Trials = 200
		_, _ = runner.Run(ctx, s)
	}()

	condition := func() bool {
		return collector.Totals().BlocksDecoded >= 10
	}
	if !suite.WaitFor(condition, 10*time.Second, "10 blocks decoded") {
		t.Error("WaitFor failed: expected 10 blocks to be decoded")
	}
}
