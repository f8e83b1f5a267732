package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dbehnke/pccc/pkg/pccc"
)

// Config represents the application configuration
type Config struct {
	Code       CodeConfig       `mapstructure:"code"`
	Decoder    DecoderConfig    `mapstructure:"decoder"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Web        WebConfig        `mapstructure:"web"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// CodeConfig describes the turbo code under test
type CodeConfig struct {
	Polynomials []int  `mapstructure:"polynomials"` // [feedback, feedforward], bit k is the D^k coefficient
	BlockSizes  []int  `mapstructure:"block_sizes"`
	Seed        uint64 `mapstructure:"seed"`        // interleaver seed
	ParamsFile  string `mapstructure:"params_file"` // optional saved CodeParams; overrides polynomials and seed
}

// DecoderConfig selects the decoding algorithm
type DecoderConfig struct {
	Algorithm  string `mapstructure:"algorithm"` // log-map, linear-log-map, max-log-map
	Iterations int    `mapstructure:"iterations"`
	TableSize  int    `mapstructure:"table_size"`
	Precision  string `mapstructure:"precision"` // f32 or f64
}

// SimulationConfig controls the benchmark sweep
type SimulationConfig struct {
	Trials        int       `mapstructure:"trials"`
	Workers       int       `mapstructure:"workers"` // 0 means GOMAXPROCS
	EbN0dB        []float64 `mapstructure:"ebn0_db"`
	Noiseless     bool      `mapstructure:"noiseless"`
	SoftMagnitude float64   `mapstructure:"soft_magnitude"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds run history storage configuration
type DatabaseConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"` // 0 keeps everything
}

// WebConfig holds web dashboard configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MQTTConfig holds MQTT client configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Polys returns the configured polynomial pair
func (c *CodeConfig) Polys() pccc.Polynomials {
	var p pccc.Polynomials
	copy(p[:], c.Polynomials)
	return p
}

// Algo returns the decoder configuration as a pccc.DecodingAlgo
func (c *DecoderConfig) Algo() (pccc.DecodingAlgo, error) {
	kind, err := pccc.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return pccc.DecodingAlgo{}, err
	}
	return pccc.DecodingAlgo{Kind: kind, Iterations: c.Iterations, TableSize: c.TableSize}, nil
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Set config file
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/pccc-bench")
	}

	// Environment variables, e.g. PCCC_DECODER_ITERATIONS
	viper.SetEnvPrefix("PCCC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal to struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"block-size": "code.block_sizes",
	"seed":       "code.seed",
	"params":     "code.params_file",
	"algorithm":  "decoder.algorithm",
	"iterations": "decoder.iterations",
	"table-size": "decoder.table_size",
	"precision":  "decoder.precision",
	"trials":     "simulation.trials",
	"workers":    "simulation.workers",
	"ebn0":       "simulation.ebn0_db",
	"log-level":  "logging.level",
	"db":         "database.path",
	"web-port":   "web.port",
}

// RegisterFlags defines the flags that override configuration keys
func RegisterFlags(fs *pflag.FlagSet) {
	fs.IntSlice("block-size", nil, "information block sizes to run (repeatable)")
	fs.Uint64("seed", 0, "interleaver seed")
	fs.String("params", "", "load polynomials and interleaver from a saved parameter file")
	fs.String("algorithm", "", "decoding algorithm: log-map, linear-log-map or max-log-map")
	fs.Int("iterations", 0, "turbo iterations per block")
	fs.Int("table-size", 0, "breakpoints of the linear Log-MAP approximation")
	fs.String("precision", "", "decoder precision: f32 or f64")
	fs.Int("trials", 0, "blocks per scenario")
	fs.Int("workers", 0, "concurrent trial workers (0 = GOMAXPROCS)")
	// strings so viper can decode them; float slices are not understood by viper
	fs.StringSlice("ebn0", nil, "Eb/N0 points in dB (repeatable)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("db", "", "run history database path")
	fs.Int("web-port", 0, "web dashboard port")
}

// BindFlags binds the flags registered by RegisterFlags into viper. Only flags the
// user actually set take precedence over file, environment and defaults.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Code defaults: the LTE constituent code (13, 15) octal
	viper.SetDefault("code.polynomials", []int{0o13, 0o15})
	viper.SetDefault("code.block_sizes", []int{64, 256, 1024, 4096})
	viper.SetDefault("code.seed", 1)
	viper.SetDefault("code.params_file", "")

	// Decoder defaults
	viper.SetDefault("decoder.algorithm", pccc.AlgoLinearLogMAP.String())
	viper.SetDefault("decoder.iterations", 8)
	viper.SetDefault("decoder.table_size", pccc.DefaultTableSize)
	viper.SetDefault("decoder.precision", "f32")

	// Simulation defaults
	viper.SetDefault("simulation.trials", 100)
	viper.SetDefault("simulation.workers", 0)
	viper.SetDefault("simulation.ebn0_db", []float64{})
	viper.SetDefault("simulation.noiseless", true)
	viper.SetDefault("simulation.soft_magnitude", 1.0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Database defaults
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "data/pccc-bench.db")
	viper.SetDefault("database.retention_days", 30)

	// Web defaults
	viper.SetDefault("web.enabled", false)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)

	// MQTT defaults
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "pccc/bench")
	viper.SetDefault("mqtt.client_id", "pccc-bench")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retained", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", false)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
