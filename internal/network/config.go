package network

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Config holds training hyperparameters.
type Config struct {
	Epochs      int          // Passes over the sample set (default: 10)
	BatchSize   int          // Samples per update (default: 32)
	Replicas    int          // Maximum model replicas per batch, parallel only (default: NumCPU)
	EvalSamples int          // Size of the fixed MSE subsample (default: 1000)
	EvalEvery   int          // Epochs between MSE reports (default: 1)
	Seed        uint64       // Shuffle and subsample seed
	Logger      *slog.Logger // Receives evaluation records (default: slog.Default())
	Report      func(Report) // Optional callback for every evaluation
}

// Default values applied to zero Config fields.
const (
	DefaultEpochs      = 10
	DefaultBatchSize   = 32
	DefaultEvalSamples = 1000
	DefaultEvalEvery   = 1
)

// DefaultConfig returns a config with all defaults filled in.
func DefaultConfig() Config {
	return Config{
		Epochs:      DefaultEpochs,
		BatchSize:   DefaultBatchSize,
		Replicas:    runtime.NumCPU(),
		EvalSamples: DefaultEvalSamples,
		EvalEvery:   DefaultEvalEvery,
		Seed:        1,
	}
}

// withDefaults fills zero fields and rejects negative ones.
func (c Config) withDefaults() (Config, error) {
	for name, v := range map[string]int{
		"epochs":       c.Epochs,
		"batch size":   c.BatchSize,
		"replicas":     c.Replicas,
		"eval samples": c.EvalSamples,
		"eval every":   c.EvalEvery,
	} {
		if v < 0 {
			return c, fmt.Errorf("%w: %s %d", ErrInvalidConfig, name, v)
		}
	}
	d := DefaultConfig()
	if c.Epochs == 0 {
		c.Epochs = d.Epochs
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Replicas == 0 {
		c.Replicas = d.Replicas
	}
	if c.EvalSamples == 0 {
		c.EvalSamples = d.EvalSamples
	}
	if c.EvalEvery == 0 {
		c.EvalEvery = d.EvalEvery
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}

// Report is one MSE evaluation during training.
type Report struct {
	Epoch   int
	MSE     float64
	Elapsed time.Duration // Since training started
}

// Result summarizes a training run.
type Result struct {
	RunID    string
	History  []Report
	FinalMSE float64
	Duration time.Duration
}
