package testhelpers

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/dbehnke/pccc/pkg/config"
	"github.com/dbehnke/pccc/pkg/database"
	"github.com/dbehnke/pccc/pkg/logger"
)

// IntegrationSuite provides infrastructure for integration tests
type IntegrationSuite struct {
	T      *testing.T
	Config *config.Config
	Logger *logger.Logger
	Ctx    context.Context
	Cancel context.CancelFunc
	DB     *database.DB
}

// NewIntegrationSuite creates a new integration test suite
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
	})

	return &IntegrationSuite{
		T:      t,
		Config: CreateDefaultConfig(),
		Logger: log,
		Ctx:    ctx,
		Cancel: cancel,
	}
}

// OpenDB opens a run history database in a temporary directory
func (s *IntegrationSuite) OpenDB() *database.DB {
	path := filepath.Join(s.T.TempDir(), "pccc-bench.db")
	db, err := database.NewDB(database.Config{Path: path}, s.Logger)
	if err != nil {
		s.T.Fatalf("failed to open database: %v", err)
	}
	s.DB = db
	return db
}

// GetFreePort gets a free port for testing
func (s *IntegrationSuite) GetFreePort() int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		s.T.Fatal(err)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		s.T.Fatal(err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

// Cleanup cleans up resources
func (s *IntegrationSuite) Cleanup() {
	if s.DB != nil {
		_ = s.DB.Close()
	}

	// Cancel context
	s.Cancel()
}

// WaitFor waits for a condition to be true
func (s *IntegrationSuite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually asserts that a condition becomes true within timeout
func (s *IntegrationSuite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}

// CreateDefaultConfig creates a small, fast test configuration
func CreateDefaultConfig() *config.Config {
	return &config.Config{
		Code: config.CodeConfig{
			Polynomials: []int{0o13, 0o15},
			BlockSizes:  []int{64},
			Seed:        1,
		},
		Decoder: config.DecoderConfig{
			Algorithm:  "linear-log-map",
			Iterations: 4,
			TableSize:  8,
			Precision:  "f32",
		},
		Simulation: config.SimulationConfig{
			Trials:        8,
			Workers:       2,
			Noiseless:     true,
			SoftMagnitude: 1,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		Web: config.WebConfig{
			Enabled: false,
		},
		MQTT: config.MQTTConfig{
			Enabled: false,
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
	}
}
