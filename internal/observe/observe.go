// Package observe adapts the metrics collector, run history and MQTT publisher
// to bench.Observer so a Runner can report to all of them.
package observe

import (
	"sync"
	"time"

	"github.com/dbehnke/pccc/pkg/bench"
	"github.com/dbehnke/pccc/pkg/database"
	"github.com/dbehnke/pccc/pkg/logger"
	"github.com/dbehnke/pccc/pkg/metrics"
	"github.com/dbehnke/pccc/pkg/mqtt"
)

type labels struct {
	algorithm string
	precision string
}

// Metrics feeds trial outcomes into a metrics.Collector
type Metrics struct {
	collector *metrics.Collector

	mu   sync.Mutex
	runs map[string]labels
}

// NewMetrics returns an observer that records into c
func NewMetrics(c *metrics.Collector) *Metrics {
	return &Metrics{collector: c, runs: make(map[string]labels)}
}

func (m *Metrics) RunStarted(runID string, s bench.Scenario) {
	m.mu.Lock()
	m.runs[runID] = labels{algorithm: s.Algo.Kind.String(), precision: string(s.Precision)}
	m.mu.Unlock()
	m.collector.RunStarted()
}

func (m *Metrics) TrialCompleted(t bench.Trial) {
	m.mu.Lock()
	l := m.runs[t.RunID]
	m.mu.Unlock()

	// scenarios are validated up front, so encoding itself does not fail
	m.collector.BlockEncoded()
	if t.Err != nil {
		m.collector.DecodeFailed(l.algorithm, l.precision)
		return
	}
	m.collector.BlockDecoded(l.algorithm, l.precision, t.Bits, t.BitErrors, t.Decode)
}

func (m *Metrics) RunCompleted(res *bench.Result, err error) {
	if res != nil {
		m.mu.Lock()
		delete(m.runs, res.RunID)
		m.mu.Unlock()
	}
	m.collector.RunFinished(err == nil)
}

// RunCreator persists finished runs
type RunCreator interface {
	Create(run *database.BenchmarkRun) error
}

// Store writes every finished run to the run history
type Store struct {
	runs RunCreator
	log  *logger.Logger
}

// NewStore returns an observer that persists results through runs
func NewStore(runs RunCreator, log *logger.Logger) *Store {
	return &Store{runs: runs, log: log.WithComponent("store")}
}

func (s *Store) RunStarted(string, bench.Scenario) {}

func (s *Store) TrialCompleted(bench.Trial) {}

func (s *Store) RunCompleted(res *bench.Result, err error) {
	if res == nil {
		return
	}
	run := ToBenchmarkRun(res, err)
	if createErr := s.runs.Create(run); createErr != nil {
		s.log.Error("Failed to store benchmark run",
			logger.String("run_id", res.RunID),
			logger.Error(createErr))
		return
	}
	s.log.Debug("Stored benchmark run", logger.String("run_id", res.RunID))
}

// ToBenchmarkRun converts a runner result into its stored form
func ToBenchmarkRun(res *bench.Result, err error) *database.BenchmarkRun {
	s := res.Scenario
	run := &database.BenchmarkRun{
		RunID:           res.RunID,
		BlockSize:       s.BlockSize,
		PolyFeedback:    s.Polynomials.Feedback(),
		PolyFeedforward: s.Polynomials.Feedforward(),
		Seed:            int64(s.Seed),
		Algorithm:       s.Algo.Kind.String(),
		TableSize:       s.Algo.TableSize,
		Iterations:      s.Algo.Iterations,
		Precision:       string(s.Precision),
		EbN0dB:          s.EbN0dB,
		Trials:          res.Trials,
		Bits:            res.Bits,
		BitErrors:       res.BitErrors,
		BlockErrors:     res.BlockErrors,
		DecodeFailures:  res.DecodeFailures,
		BER:             res.BER,
		BLER:            res.BLER,
		MeanEncodeUs:    micros(res.MeanEncode),
		MeanDecodeUs:    micros(res.MeanDecode),
		StdDecodeUs:     micros(res.StdDecode),
		ThroughputBps:   res.Throughput,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
	}
	if err != nil {
		msg := err.Error()
		if len(msg) > 255 {
			msg = msg[:255]
		}
		run.Error = msg
	}
	return run
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// RunPublisher sends run lifecycle events to a broker
type RunPublisher interface {
	PublishRunStarted(event mqtt.RunStartedEvent) error
	PublishRunCompleted(event mqtt.RunCompletedEvent) error
}

// MQTT publishes run start and completion events
type MQTT struct {
	pub RunPublisher
	log *logger.Logger
}

// NewMQTT returns an observer that publishes through pub
func NewMQTT(pub RunPublisher, log *logger.Logger) *MQTT {
	return &MQTT{pub: pub, log: log.WithComponent("mqtt")}
}

func (m *MQTT) RunStarted(runID string, s bench.Scenario) {
	err := m.pub.PublishRunStarted(mqtt.RunStartedEvent{
		RunID:       runID,
		BlockSize:   s.BlockSize,
		Polynomials: [2]int(s.Polynomials),
		Algorithm:   s.Algo.Kind.String(),
		Iterations:  s.Algo.Iterations,
		Precision:   string(s.Precision),
		EbN0dB:      s.EbN0dB,
		Trials:      s.Trials,
		Timestamp:   time.Now(),
	})
	if err != nil {
		m.log.Warn("Failed to publish run start", logger.String("run_id", runID), logger.Error(err))
	}
}

func (m *MQTT) TrialCompleted(bench.Trial) {}

func (m *MQTT) RunCompleted(res *bench.Result, runErr error) {
	if res == nil {
		return
	}
	s := res.Scenario
	event := mqtt.RunCompletedEvent{
		RunID:        res.RunID,
		BlockSize:    s.BlockSize,
		Algorithm:    s.Algo.Kind.String(),
		Precision:    string(s.Precision),
		EbN0dB:       s.EbN0dB,
		Trials:       res.Trials,
		BitErrors:    res.BitErrors,
		BlockErrors:  res.BlockErrors,
		BER:          res.BER,
		BLER:         res.BLER,
		MeanDecodeMs: float64(res.MeanDecode) / float64(time.Millisecond),
		Timestamp:    res.FinishedAt,
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	if err := m.pub.PublishRunCompleted(event); err != nil {
		m.log.Warn("Failed to publish run completion", logger.String("run_id", res.RunID), logger.Error(err))
	}
}
