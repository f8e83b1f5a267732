package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbehnke/pccc/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Use modernc.org/sqlite (pure Go, no CGO)
	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"
)

// DB wraps the GORM database connection holding benchmark history
type DB struct {
	db     *gorm.DB
	logger *logger.Logger
	runs   *RunRepository
}

// Config holds database configuration
type Config struct {
	Path string // Path to SQLite database file, ":memory:" for a private in-memory store
}

// sqlite pragmas applied to every connection
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// NewDB opens the database and migrates the run history schema
func NewDB(cfg Config, log *logger.Logger) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = "pccc-bench.db"
	}
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	log = log.WithComponent("database")

	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	gormLog := gormlogger.New(
		&gormLogAdapter{log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// Using the Dialector directly selects the pure Go driver registered as "sqlite"
	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        cfg.Path,
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.Path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&BenchmarkRun{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database initialized", logger.String("path", cfg.Path))

	return &DB{
		db:     db,
		logger: log,
		runs:   NewRunRepository(db),
	}, nil
}

// Runs returns the benchmark run repository
func (d *DB) Runs() *RunRepository {
	return d.runs
}

// Prune deletes runs that started more than retention ago. A non-positive retention
// keeps everything.
func (d *DB) Prune(retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	deleted, err := d.runs.DeleteOlderThan(time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	if deleted > 0 {
		d.logger.Info("Pruned old benchmark runs",
			logger.Int64("deleted", deleted),
			logger.Duration("retention", retention))
	}
	return deleted, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the underlying GORM database instance
func (d *DB) GetDB() *gorm.DB {
	return d.db
}

// gormLogAdapter adapts our logger to GORM's logger interface
type gormLogAdapter struct {
	log *logger.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
