// Package main provides the volnet CLI.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/born-ml/volnet/internal/dataset"
	"github.com/born-ml/volnet/internal/layer"
	"github.com/born-ml/volnet/internal/network"
	"github.com/born-ml/volnet/internal/topology"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "volnet:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "volnet %s\n", version)
		return nil
	case "train":
		return train(args[1:], stdout, stderr)
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "volnet - convolutional network trainer")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                    Show version")
	fmt.Fprintln(w, "  train -config run.yaml     Train a network from a run file")
}

func train(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "run.yaml", "YAML run file")
	verbose := fs.Bool("v", false, "Enable debug logging")
	dump := fs.Bool("dump", false, "Print final weights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rf, err := topology.LoadRunFile(*configPath)
	if err != nil {
		return err
	}
	desc, err := rf.Description()
	if err != nil {
		return err
	}

	samples, err := dataset.LoadIDX(rf.Data.Images, rf.Data.Labels, rf.Data.Limit)
	if err != nil {
		return fmt.Errorf("loading training set: %w", err)
	}
	var test []dataset.Sample
	if rf.Data.TestImages != "" {
		test, err = dataset.LoadIDX(rf.Data.TestImages, rf.Data.TestLabels, rf.Data.TestLimit)
		if err != nil {
			return fmt.Errorf("loading test set: %w", err)
		}
	}
	logger.Info("data loaded", "train", len(samples), "test", len(test))

	cfg := rf.Training.Config()
	cfg.Logger = logger
	net, err := topology.BuildNetwork(desc, layer.NewRand(cfg.Seed))
	if err != nil {
		return err
	}
	logger.Debug("network built", "layers", len(net.Layers()), "network", net.String())

	var res *network.Result
	switch rf.Training.Mode {
	case network.ModeSequential:
		res, err = net.TrainSequential(samples, cfg)
	case network.ModeParallel, "":
		res, err = net.TrainParallel(samples, cfg)
	default:
		err = fmt.Errorf("unknown training mode %q", rf.Training.Mode)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run %s: final MSE %.6f in %v\n", res.RunID, res.FinalMSE, res.Duration)

	if len(test) > 0 {
		acc, err := net.Accuracy(test)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recognition rate: %.2f%% (%d samples)\n", acc*100, len(test))
	}
	if *dump {
		return net.Dump(stdout)
	}
	return nil
}
