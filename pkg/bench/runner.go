package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dbehnke/pccc/pkg/logger"
	"github.com/dbehnke/pccc/pkg/pccc"
)

// ErrNoiselessErrors is returned when a noiseless scenario decodes with bit errors
var ErrNoiselessErrors = errors.New("noiseless round trip produced bit errors")

// Trial is the outcome of one encode/channel/decode cycle
type Trial struct {
	RunID     string
	Index     int
	Completed int // trials finished so far, including this one
	Trials    int
	Bits      int
	BitErrors int
	Encode    time.Duration
	Decode    time.Duration
	Err       error
}

// Result summarises a finished run
type Result struct {
	RunID    string
	Scenario Scenario

	Trials         int
	Bits           int64
	BitErrors      int64
	BlockErrors    int64
	DecodeFailures int64
	BER            float64
	BLER           float64

	MeanEncode time.Duration
	MeanDecode time.Duration
	StdDecode  time.Duration
	// Throughput is decoded information bits per second of decode time
	Throughput float64

	StartedAt  time.Time
	FinishedAt time.Time
}

// Observer receives run events. Calls for one run are serialized.
type Observer interface {
	RunStarted(runID string, s Scenario)
	TrialCompleted(t Trial)
	RunCompleted(res *Result, err error)
}

// Runner executes scenarios
type Runner struct {
	log       *logger.Logger
	observers []Observer
}

// NewRunner creates a runner reporting to observers
func NewRunner(log *logger.Logger, observers ...Observer) *Runner {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}
	return &Runner{
		log:       log.WithComponent("bench"),
		observers: observers,
	}
}

// decodeFunc hides the decoder precision from the trial loop
type decodeFunc func(llrs []float64) ([]pccc.Bit, error)

func newDecodeFunc(s Scenario, il *pccc.Interleaver) (decodeFunc, error) {
	switch s.Precision {
	case F32:
		dec, err := pccc.NewTurboDecoder[float32](il, s.Polynomials, s.Algo)
		if err != nil {
			return nil, err
		}
		return func(llrs []float64) ([]pccc.Bit, error) {
			narrow := make([]float32, len(llrs))
			for i, v := range llrs {
				narrow[i] = float32(v)
			}
			return dec.Decode(narrow)
		}, nil
	default:
		dec, err := pccc.NewTurboDecoder[float64](il, s.Polynomials, s.Algo)
		if err != nil {
			return nil, err
		}
		return dec.Decode, nil
	}
}

// trialSeed derives an independent stream per trial from the scenario seed
func trialSeed(seed uint64, trial int) uint64 {
	return seed ^ (uint64(trial)+1)*0x9e3779b97f4a7c15
}

// Run executes all trials of s. The result is returned alongside ErrNoiselessErrors
// when a noiseless scenario fails its round trip.
func (r *Runner) Run(ctx context.Context, s Scenario) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	il := s.Interleaver
	if il == nil {
		var err error
		if il, err = pccc.NewSeededInterleaver(s.BlockSize, s.Seed); err != nil {
			return nil, fmt.Errorf("failed to build interleaver: %w", err)
		}
	}
	enc, err := pccc.NewEncoder(il, s.Polynomials)
	if err != nil {
		return nil, fmt.Errorf("failed to build encoder: %w", err)
	}
	decode, err := newDecodeFunc(s, il)
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}

	workers := s.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Scenario:  s,
		StartedAt: time.Now(),
	}
	log := r.log.With(logger.String("run_id", res.RunID))
	log.Info("Benchmark run started",
		logger.String("scenario", s.String()),
		logger.Int("trials", s.Trials),
		logger.Int("workers", workers))
	r.notify(func(o Observer) { o.RunStarted(res.RunID, s) })

	encodeTimes := make([]float64, s.Trials)
	decodeTimes := make([]float64, s.Trials)
	done := make([]bool, s.Trials)
	var mu sync.Mutex
	completed := 0

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for i := 0; i < s.Trials; i++ {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := runTrial(s, enc, decode, i)
			t.RunID = res.RunID

			mu.Lock()
			defer mu.Unlock()
			completed++
			t.Completed = completed
			encodeTimes[i] = t.Encode.Seconds()
			decodeTimes[i] = t.Decode.Seconds()
			done[i] = true
			res.Trials++
			if t.Err != nil {
				res.DecodeFailures++
			} else {
				res.Bits += int64(t.Bits)
				res.BitErrors += int64(t.BitErrors)
				if t.BitErrors > 0 {
					res.BlockErrors++
				}
			}
			r.notify(func(o Observer) { o.TrialCompleted(t) })
			if t.Err != nil {
				return fmt.Errorf("trial %d: %w", i, t.Err)
			}
			return nil
		})
	}
	runErr := p.Wait()

	res.FinishedAt = time.Now()
	summarize(res, encodeTimes, decodeTimes, done)

	if runErr == nil && s.Noiseless() && res.BitErrors > 0 {
		runErr = fmt.Errorf("%w: %d errors in %d bits", ErrNoiselessErrors, res.BitErrors, res.Bits)
	}

	if runErr != nil {
		log.Error("Benchmark run failed", logger.Error(runErr), logger.Int("trials_completed", res.Trials))
	} else {
		log.Info("Benchmark run completed",
			logger.Int64("bit_errors", res.BitErrors),
			logger.Float64("ber", res.BER),
			logger.Duration("mean_decode", res.MeanDecode),
			logger.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	}
	r.notify(func(o Observer) { o.RunCompleted(res, runErr) })

	return res, runErr
}

func runTrial(s Scenario, enc *pccc.Encoder, decode decodeFunc, index int) Trial {
	rng := rand.New(rand.NewSource(trialSeed(s.Seed, index)))
	t := Trial{Index: index, Trials: s.Trials, Bits: s.BlockSize}

	bits := make([]pccc.Bit, s.BlockSize)
	for i := range bits {
		bits[i] = pccc.Bit(rng.Intn(2))
	}

	start := time.Now()
	cw, err := enc.Encode(bits)
	t.Encode = time.Since(start)
	if err != nil {
		t.Err = err
		return t
	}

	var llrs []float64
	if s.Noiseless() {
		llrs = pccc.SoftBits(cw, s.SoftMagnitude)
	} else {
		ch, err := NewAWGN(*s.EbN0dB, CodeRate, rng)
		if err != nil {
			t.Err = err
			return t
		}
		llrs = ch.LLRs(cw)
	}

	start = time.Now()
	decoded, err := decode(llrs)
	t.Decode = time.Since(start)
	if err != nil {
		t.Err = err
		return t
	}
	t.BitErrors = pccc.CountBitErrors(decoded, bits)
	return t
}

func summarize(res *Result, encodeTimes, decodeTimes []float64, done []bool) {
	var enc, dec []float64
	for i, ok := range done {
		if ok {
			enc = append(enc, encodeTimes[i])
			dec = append(dec, decodeTimes[i])
		}
	}
	if len(dec) == 0 {
		return
	}

	res.MeanEncode = seconds(stat.Mean(enc, nil))
	if len(dec) > 1 {
		mean, std := stat.MeanStdDev(dec, nil)
		res.MeanDecode, res.StdDecode = seconds(mean), seconds(std)
	} else {
		res.MeanDecode = seconds(dec[0])
	}
	if total := floats.Sum(dec); total > 0 {
		res.Throughput = float64(res.Bits) / total
	}

	if good := res.Trials - int(res.DecodeFailures); good > 0 && res.Bits > 0 {
		res.BER = float64(res.BitErrors) / float64(res.Bits)
		res.BLER = float64(res.BlockErrors) / float64(good)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (r *Runner) notify(fn func(Observer)) {
	for _, o := range r.observers {
		fn(o)
	}
}
