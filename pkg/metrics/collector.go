package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pccc"

// Collector collects encoder and decoder metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	blocksEncoded prometheus.Counter
	blocksDecoded *prometheus.CounterVec   // algorithm, precision
	bitsDecoded   *prometheus.CounterVec   // algorithm, precision
	bitErrors     *prometheus.CounterVec   // algorithm, precision
	blockErrors   *prometheus.CounterVec   // algorithm, precision
	decodeErrors  *prometheus.CounterVec   // algorithm, precision
	decodeSeconds *prometheus.HistogramVec // algorithm, precision
	runsTotal     *prometheus.CounterVec   // status
	activeRuns    prometheus.Gauge

	// totals mirrored for the status API
	mu     sync.RWMutex
	totals Totals
}

// Totals is a point-in-time summary of the counters
type Totals struct {
	BlocksEncoded uint64 `json:"blocks_encoded"`
	BlocksDecoded uint64 `json:"blocks_decoded"`
	BitsDecoded   uint64 `json:"bits_decoded"`
	BitErrors     uint64 `json:"bit_errors"`
	BlockErrors   uint64 `json:"block_errors"`
	DecodeErrors  uint64 `json:"decode_errors"`
	ActiveRuns    int    `json:"active_runs"`
	CompletedRuns uint64 `json:"completed_runs"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"algorithm", "precision"}

	return &Collector{
		registry: reg,
		blocksEncoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_encoded_total",
			Help:      "Total information blocks encoded",
		}),
		blocksDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_decoded_total",
			Help:      "Total codewords decoded",
		}, labels),
		bitsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bits_decoded_total",
			Help:      "Total information bits decoded",
		}, labels),
		bitErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bit_errors_total",
			Help:      "Total information bits decoded in error",
		}, labels),
		blockErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_errors_total",
			Help:      "Total blocks with at least one bit error",
		}, labels),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Total decode calls rejected with an error",
		}, labels),
		decodeSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding one codeword",
			Buckets:   prometheus.ExponentialBuckets(10e-6, 2, 16),
		}, labels),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total benchmark runs by outcome",
		}, []string{"status"}),
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of benchmark runs in progress",
		}),
	}
}

// Registry returns the registry the collector's metrics live on
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler exposing the registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// BlockEncoded records one encoded block
func (c *Collector) BlockEncoded() {
	c.blocksEncoded.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.BlocksEncoded++
}

// BlockDecoded records one decoded block and its error count
func (c *Collector) BlockDecoded(algorithm, precision string, bits, bitErrors int, took time.Duration) {
	c.blocksDecoded.WithLabelValues(algorithm, precision).Inc()
	c.bitsDecoded.WithLabelValues(algorithm, precision).Add(float64(bits))
	c.bitErrors.WithLabelValues(algorithm, precision).Add(float64(bitErrors))
	if bitErrors > 0 {
		c.blockErrors.WithLabelValues(algorithm, precision).Inc()
	}
	c.decodeSeconds.WithLabelValues(algorithm, precision).Observe(took.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.BlocksDecoded++
	c.totals.BitsDecoded += uint64(bits)
	c.totals.BitErrors += uint64(bitErrors)
	if bitErrors > 0 {
		c.totals.BlockErrors++
	}
}

// DecodeFailed records a decode call that returned an error
func (c *Collector) DecodeFailed(algorithm, precision string) {
	c.decodeErrors.WithLabelValues(algorithm, precision).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.DecodeErrors++
}

// RunStarted records the start of a benchmark run
func (c *Collector) RunStarted() {
	c.activeRuns.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.ActiveRuns++
}

// RunFinished records the end of a benchmark run
func (c *Collector) RunFinished(ok bool) {
	c.activeRuns.Dec()
	status := "completed"
	if !ok {
		status = "failed"
	}
	c.runsTotal.WithLabelValues(status).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals.ActiveRuns--
	if ok {
		c.totals.CompletedRuns++
	}
}

// Totals returns a snapshot of the counters
func (c *Collector) Totals() Totals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totals
}
