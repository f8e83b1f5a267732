// Package app wires the benchmark runner to run history, metrics, MQTT and the
// web dashboard according to the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/dbehnke/pccc/internal/observe"
	"github.com/dbehnke/pccc/pkg/bench"
	"github.com/dbehnke/pccc/pkg/config"
	"github.com/dbehnke/pccc/pkg/database"
	"github.com/dbehnke/pccc/pkg/logger"
	"github.com/dbehnke/pccc/pkg/metrics"
	"github.com/dbehnke/pccc/pkg/mqtt"
	"github.com/dbehnke/pccc/pkg/web"
)

// App holds the configured services
type App struct {
	cfg *config.Config
	log *logger.Logger

	collector *metrics.Collector
	db        *database.DB
	publisher *mqtt.Publisher
	web       *web.Server
	prom      *metrics.PrometheusServer
	runner    *bench.Runner

	wg conc.WaitGroup
}

// New opens the configured services. Close releases them.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	var observers []bench.Observer

	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector()
		observers = append(observers, observe.NewMetrics(a.collector))
		if cfg.Metrics.Prometheus.Enabled {
			a.prom = metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: cfg.Metrics.Prometheus.Enabled,
					Port:    cfg.Metrics.Prometheus.Port,
					Path:    cfg.Metrics.Prometheus.Path,
				},
				a.collector,
				log,
			)
		}
	}

	if cfg.Database.Enabled {
		db, err := database.NewDB(database.Config{Path: cfg.Database.Path}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		a.db = db
		observers = append(observers, observe.NewStore(db.Runs(), log))
	}

	if cfg.MQTT.Enabled {
		a.publisher = mqtt.New(
			mqtt.Config{
				Enabled:     cfg.MQTT.Enabled,
				Broker:      cfg.MQTT.Broker,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				QoS:         cfg.MQTT.QoS,
				Retained:    cfg.MQTT.Retained,
			},
			log.WithComponent("mqtt"),
		)
		observers = append(observers, observe.NewMQTT(a.publisher, log))
	}

	if cfg.Web.Enabled {
		var runs web.RunStore
		if a.db != nil {
			runs = a.db.Runs()
		}
		var totals web.TotalsSource
		if a.collector != nil {
			totals = a.collector
		}
		a.web = web.NewServer(cfg.Web, runs, totals, log)
		observers = append(observers, a.web.GetHub())
	}

	a.runner = bench.NewRunner(log, observers...)
	return a, nil
}

// Start launches the background servers; they stop when ctx is cancelled
func (a *App) Start(ctx context.Context) {
	if a.prom != nil {
		a.wg.Go(func() {
			if err := a.prom.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("Prometheus metrics server error", logger.Error(err))
			}
		})
	}
	if a.publisher != nil {
		// connection failures are logged; events are dropped until connected
		if err := a.publisher.Start(ctx); err != nil {
			a.log.Error("MQTT publisher error", logger.Error(err))
		}
	}
	if a.web != nil {
		a.wg.Go(func() {
			if err := a.web.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("Web server error", logger.Error(err))
			}
		})
	}
}

// Sweep runs every configured scenario in order. Failed scenarios are reported
// and the sweep continues; cancellation stops it.
func (a *App) Sweep(ctx context.Context) ([]*bench.Result, error) {
	scenarios, err := Scenarios(a.cfg)
	if err != nil {
		return nil, err
	}

	var (
		results []*bench.Result
		errs    []error
	)
	for _, s := range scenarios {
		res, err := a.runner.Run(ctx, s)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s, err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return results, errors.Join(errs...)
}

// Web returns the dashboard server, nil when disabled
func (a *App) Web() *web.Server { return a.web }

// Collector returns the metrics collector, nil when disabled
func (a *App) Collector() *metrics.Collector { return a.collector }

// DB returns the run history, nil when disabled
func (a *App) DB() *database.DB { return a.db }

// Close waits for the servers started by Start, prunes old runs and closes the
// run history. Cancel the context passed to Start first.
func (a *App) Close() error {
	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.prom != nil {
		a.prom.Stop()
	}
	a.wg.Wait()

	if a.db == nil {
		return nil
	}
	if days := a.cfg.Database.RetentionDays; days > 0 {
		n, err := a.db.Prune(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			a.log.Warn("Failed to prune run history", logger.Error(err))
		} else if n > 0 {
			a.log.Info("Pruned run history", logger.Int64("deleted", n))
		}
	}
	return a.db.Close()
}
