package network

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/born-ml/volnet/internal/dataset"
	"github.com/born-ml/volnet/internal/layer"
	"github.com/born-ml/volnet/internal/parallel"
	"github.com/google/uuid"
)

// Training modes as they appear in logs.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
)

// stepFunc consumes one batch: accumulate gradients, then update.
type stepFunc func(batch []dataset.Sample, log *slog.Logger) error

// TrainSequential trains on one goroutine. Every epoch shuffles the samples
// and splits them into batches of cfg.BatchSize (the last one may be short);
// each sample contributes the gradient prediction − target and the layers
// update once per batch.
func (n *Network) TrainSequential(samples []dataset.Sample, cfg Config) (*Result, error) {
	return n.train(samples, cfg, ModeSequential, func(batch []dataset.Sample, _ *slog.Logger) error {
		for _, s := range batch {
			if err := n.accumulate(s); err != nil {
				return err
			}
		}
		n.Update()
		return nil
	})
}

// TrainParallel trains like TrainSequential but splits every batch across
// model replicas. The replica count is the largest divisor of the batch
// length not above cfg.Replicas; each replica processes a contiguous slice
// of the batch on its own goroutine, then the gradients are summed into this
// network and applied in a single update.
func (n *Network) TrainParallel(samples []dataset.Sample, cfg Config) (*Result, error) {
	return n.train(samples, cfg, ModeParallel, func(batch []dataset.Sample, log *slog.Logger) error {
		return n.parallelStep(batch, cfg.Replicas, log)
	})
}

func (n *Network) parallelStep(batch []dataset.Sample, maxReplicas int, log *slog.Logger) error {
	k := effectiveReplicas(len(batch), maxReplicas)
	if k < maxReplicas {
		log.Debug("replica count reduced", "batch", len(batch), "replicas", k, "max", maxReplicas)
	}

	replicas := make([]*Network, k)
	for i := range replicas {
		replicas[i] = n.Clone()
	}
	part := len(batch) / k

	err := parallel.Workers(k, k, func(w int) error {
		for _, s := range batch[w*part : (w+1)*part] {
			if err := replicas[w].accumulate(s); err != nil {
				return fmt.Errorf("replica %d: %w", w, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := n.MergeGradients(replicas); err != nil {
		return err
	}
	n.Update()
	return nil
}

// effectiveReplicas returns the largest r <= maxReplicas dividing batchLen.
func effectiveReplicas(batchLen, maxReplicas int) int {
	for r := min(maxReplicas, batchLen); r > 1; r-- {
		if batchLen%r == 0 {
			return r
		}
	}
	return 1
}

func (n *Network) train(samples []dataset.Sample, cfg Config, mode string, step stepFunc) (*Result, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if err := dataset.Validate(samples, n.InShape(), n.OutShape()); err != nil {
		return nil, fmt.Errorf("network.Train: %w", err)
	}

	rng := layer.NewRand(cfg.Seed)
	evalSet := subsample(samples, cfg.EvalSamples, rng)

	res := &Result{RunID: uuid.NewString()}
	log := cfg.Logger.With("run", res.RunID, "mode", mode)
	log.Debug("training started",
		"samples", len(samples), "epochs", cfg.Epochs, "batch", cfg.BatchSize, "network", n.String())

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	batch := make([]dataset.Sample, 0, cfg.BatchSize)
	start := time.Now()

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for lo := 0; lo < len(order); lo += cfg.BatchSize {
			batch = batch[:0]
			for _, idx := range order[lo:min(lo+cfg.BatchSize, len(order))] {
				batch = append(batch, samples[idx])
			}
			if err := step(batch, log); err != nil {
				return nil, fmt.Errorf("epoch %d: %w", epoch, err)
			}
		}

		if epoch%cfg.EvalEvery != 0 && epoch != cfg.Epochs {
			continue
		}
		mse, err := n.MeanSquaredError(evalSet)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: evaluation: %w", epoch, err)
		}
		r := Report{Epoch: epoch, MSE: mse, Elapsed: time.Since(start)}
		res.History = append(res.History, r)
		res.FinalMSE = mse
		log.Info("evaluation", "epoch", epoch, "mse", mse, "elapsed", r.Elapsed)
		if cfg.Report != nil {
			cfg.Report(r)
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

// subsample picks at most k samples once, up front, so every evaluation of a
// run measures the same set.
func subsample(samples []dataset.Sample, k int, rng *rand.Rand) []dataset.Sample {
	if len(samples) <= k {
		return samples
	}
	perm := rng.Perm(len(samples))[:k]
	out := make([]dataset.Sample, k)
	for i, idx := range perm {
		out[i] = samples[idx]
	}
	return out
}
