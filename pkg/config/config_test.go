package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dbehnke/pccc/pkg/pccc"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	// Reset viper to avoid cross-test pollution
	viper.Reset()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// Spot-check a few defaults
	if got := cfg.Code.Polys(); got != (pccc.Polynomials{0o13, 0o15}) {
		t.Errorf("expected default polynomials (13, 15), got %v", got)
	}
	if cfg.Decoder.Iterations != 8 {
		t.Errorf("expected Decoder.Iterations default 8, got %d", cfg.Decoder.Iterations)
	}
	if cfg.Decoder.Precision != "f32" {
		t.Errorf("expected Decoder.Precision default f32, got %q", cfg.Decoder.Precision)
	}
	if !cfg.Simulation.Noiseless {
		t.Errorf("expected Simulation.Noiseless default true")
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("expected Web.Port default 8080, got %d", cfg.Web.Port)
	}
	if cfg.Logging.Level == "" {
		t.Errorf("expected Logging.Level to be set (default info)")
	}
	if cfg.Metrics.Prometheus.Port != 9090 {
		t.Errorf("expected Prometheus.Port default 9090, got %d", cfg.Metrics.Prometheus.Port)
	}

	algo, err := cfg.Decoder.Algo()
	if err != nil {
		t.Fatalf("Algo returned error: %v", err)
	}
	if algo != pccc.LinearLogMAP(8, pccc.DefaultTableSize) {
		t.Errorf("unexpected default algorithm %v", algo)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()

	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := `
code:
  polynomials: [7, 5]
  block_sizes: [40, 80]
decoder:
  algorithm: max-log-map
  iterations: 3
  precision: f64
simulation:
  trials: 12
  ebn0_db: [0.5, 1.5]
  noiseless: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Code.Polys(); got != (pccc.Polynomials{7, 5}) {
		t.Errorf("polynomials = %v", got)
	}
	if len(cfg.Code.BlockSizes) != 2 || cfg.Code.BlockSizes[1] != 80 {
		t.Errorf("block sizes = %v", cfg.Code.BlockSizes)
	}
	if len(cfg.Simulation.EbN0dB) != 2 || cfg.Simulation.EbN0dB[1] != 1.5 {
		t.Errorf("ebn0 = %v", cfg.Simulation.EbN0dB)
	}
	algo, _ := cfg.Decoder.Algo()
	if algo.Kind != pccc.AlgoMaxLogMAP || algo.Iterations != 3 {
		t.Errorf("algo = %v", algo)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Setenv("PCCC_DECODER_ITERATIONS", "5")
	t.Setenv("PCCC_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Decoder.Iterations != 5 {
		t.Errorf("expected env override of iterations to 5, got %d", cfg.Decoder.Iterations)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env override of logging level, got %q", cfg.Logging.Level)
	}
}

func TestBindFlags(t *testing.T) {
	viper.Reset()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--iterations=6", "--block-size=16", "--block-size=32", "--algorithm=log-map", "--ebn0=1.25"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := BindFlags(fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Decoder.Iterations != 6 {
		t.Errorf("iterations = %d, want 6", cfg.Decoder.Iterations)
	}
	if cfg.Decoder.Algorithm != "log-map" {
		t.Errorf("algorithm = %q", cfg.Decoder.Algorithm)
	}
	if len(cfg.Code.BlockSizes) != 2 || cfg.Code.BlockSizes[0] != 16 || cfg.Code.BlockSizes[1] != 32 {
		t.Errorf("block sizes = %v, want [16 32]", cfg.Code.BlockSizes)
	}
	if len(cfg.Simulation.EbN0dB) != 1 || cfg.Simulation.EbN0dB[0] != 1.25 {
		t.Errorf("ebn0 = %v, want [1.25]", cfg.Simulation.EbN0dB)
	}
	// unset flags leave defaults alone
	if cfg.Simulation.Trials != 100 {
		t.Errorf("trials = %d, want default 100", cfg.Simulation.Trials)
	}
}

func validConfig() *Config {
	return &Config{
		Code:       CodeConfig{Polynomials: []int{0o13, 0o15}, BlockSizes: []int{64}},
		Decoder:    DecoderConfig{Algorithm: "log-map", Iterations: 4, Precision: "f64"},
		Simulation: SimulationConfig{Trials: 1, Noiseless: true, SoftMagnitude: 1},
	}
}

func TestValidate_Errors(t *testing.T) {
	if err := validate(validConfig()); err != nil {
		t.Fatalf("expected baseline config to validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"wrong polynomial count", func(c *Config) { c.Code.Polynomials = []int{0o13} }},
		{"even feedback polynomial", func(c *Config) { c.Code.Polynomials = []int{0o12, 0o15} }},
		{"empty block sizes", func(c *Config) { c.Code.BlockSizes = nil }},
		{"zero block size", func(c *Config) { c.Code.BlockSizes = []int{64, 0} }},
		{"unknown algorithm", func(c *Config) { c.Decoder.Algorithm = "viterbi" }},
		{"zero iterations", func(c *Config) { c.Decoder.Iterations = 0 }},
		{"linear without table", func(c *Config) { c.Decoder.Algorithm = "linear"; c.Decoder.TableSize = 1 }},
		{"bad precision", func(c *Config) { c.Decoder.Precision = "f16" }},
		{"zero trials", func(c *Config) { c.Simulation.Trials = 0 }},
		{"negative workers", func(c *Config) { c.Simulation.Workers = -1 }},
		{"nothing to simulate", func(c *Config) { c.Simulation.Noiseless = false }},
		{"database without path", func(c *Config) { c.Database.Enabled = true }},
		{"invalid web port when enabled", func(c *Config) { c.Web = WebConfig{Enabled: true, Port: 70000} }},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true }},
		{"prometheus port", func(c *Config) {
			c.Metrics = MetricsConfig{Enabled: true, Prometheus: PrometheusConfig{Enabled: true}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	t.Run("params file skips polynomial check", func(t *testing.T) {
		cfg := validConfig()
		cfg.Code.Polynomials = nil
		cfg.Code.ParamsFile = "code.json"
		if err := validate(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
