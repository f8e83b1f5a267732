package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BenchmarkRun is the stored summary of one benchmark scenario
type BenchmarkRun struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	RunID string `gorm:"uniqueIndex;size:36;not null" json:"run_id"`

	// code and decoder under test
	BlockSize       int    `gorm:"index;not null" json:"block_size"`
	PolyFeedback    int    `gorm:"not null" json:"poly_feedback"`
	PolyFeedforward int    `gorm:"not null" json:"poly_feedforward"`
	Seed            int64  `json:"seed"`
	Algorithm       string `gorm:"index;size:20;not null" json:"algorithm"`
	TableSize       int    `json:"table_size"`
	Iterations      int    `gorm:"not null" json:"iterations"`
	Precision       string `gorm:"size:4;not null" json:"precision"`

	// channel; nil means noiseless soft bits
	EbN0dB *float64 `gorm:"column:ebn0_db;index" json:"ebn0_db,omitempty"`

	// outcome
	Trials         int     `gorm:"not null" json:"trials"`
	Bits           int64   `json:"bits"`
	BitErrors      int64   `json:"bit_errors"`
	BlockErrors    int64   `json:"block_errors"`
	DecodeFailures int64   `json:"decode_failures"`
	BER            float64 `json:"ber"`
	BLER           float64 `json:"bler"`
	MeanEncodeUs   float64 `json:"mean_encode_us"`
	MeanDecodeUs   float64 `json:"mean_decode_us"`
	StdDecodeUs    float64 `json:"std_decode_us"`
	ThroughputBps  float64 `json:"throughput_bps"` // decoded information bits per second
	Error          string  `gorm:"size:255" json:"error,omitempty"`

	StartedAt  time.Time `gorm:"index;not null" json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for BenchmarkRun
func (BenchmarkRun) TableName() string {
	return "benchmark_runs"
}

// BeforeCreate fills in the run ID and timestamps when they were not set
func (r *BenchmarkRun) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = r.StartedAt
	}
	return nil
}

// Noiseless reports whether the run used noiseless soft bits
func (r *BenchmarkRun) Noiseless() bool {
	return r.EbN0dB == nil
}

// Duration returns the wall time of the run
func (r *BenchmarkRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
