package config

import (
	"fmt"
	"strings"
)

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate code config
	if cfg.Code.ParamsFile == "" {
		if len(cfg.Code.Polynomials) != 2 {
			return fmt.Errorf("code.polynomials must have exactly 2 entries, got %d", len(cfg.Code.Polynomials))
		}
		if err := cfg.Code.Polys().Validate(); err != nil {
			return fmt.Errorf("code.polynomials: %w", err)
		}
	}
	if len(cfg.Code.BlockSizes) == 0 {
		return fmt.Errorf("code.block_sizes must not be empty")
	}
	for _, n := range cfg.Code.BlockSizes {
		if n <= 0 {
			return fmt.Errorf("code.block_sizes entries must be positive, got %d", n)
		}
	}

	// Validate decoder config
	algo, err := cfg.Decoder.Algo()
	if err != nil {
		return fmt.Errorf("decoder.algorithm: %w", err)
	}
	if err := algo.Validate(); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	switch strings.ToLower(cfg.Decoder.Precision) {
	case "f32", "f64":
	default:
		return fmt.Errorf("decoder.precision must be f32 or f64, got %q", cfg.Decoder.Precision)
	}

	// Validate simulation config
	if cfg.Simulation.Trials <= 0 {
		return fmt.Errorf("simulation.trials must be positive")
	}
	if cfg.Simulation.Workers < 0 {
		return fmt.Errorf("simulation.workers must not be negative")
	}
	if cfg.Simulation.SoftMagnitude <= 0 {
		return fmt.Errorf("simulation.soft_magnitude must be positive")
	}
	if !cfg.Simulation.Noiseless && len(cfg.Simulation.EbN0dB) == 0 {
		return fmt.Errorf("simulation needs noiseless enabled or at least one ebn0_db point")
	}

	// Validate database config
	if cfg.Database.Enabled && cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required when the database is enabled")
	}

	// Validate web config
	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	// Validate MQTT config
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	// Validate metrics config
	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	return nil
}
