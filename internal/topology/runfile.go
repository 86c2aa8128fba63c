package topology

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/born-ml/volnet/internal/network"
)

// DataSpec locates IDX sample files.
type DataSpec struct {
	Images     string `yaml:"images"`
	Labels     string `yaml:"labels"`
	Limit      int    `yaml:"limit,omitempty"`       // Cap on training samples (0 = all)
	TestImages string `yaml:"test_images,omitempty"` // Optional recognition-rate set
	TestLabels string `yaml:"test_labels,omitempty"`
	TestLimit  int    `yaml:"test_limit,omitempty"`
}

// TrainingSpec mirrors network.Config in YAML form.
type TrainingSpec struct {
	Mode        string `yaml:"mode,omitempty"` // "parallel" (default) or "sequential"
	Epochs      int    `yaml:"epochs,omitempty"`
	BatchSize   int    `yaml:"batch_size,omitempty"`
	Replicas    int    `yaml:"replicas,omitempty"`
	EvalSamples int    `yaml:"eval_samples,omitempty"`
	EvalEvery   int    `yaml:"eval_every,omitempty"`
	Seed        uint64 `yaml:"seed,omitempty"`
}

// Config converts the training block to a network.Config. Zero fields keep the
// network defaults.
func (t TrainingSpec) Config() network.Config {
	return network.Config{
		Epochs:      t.Epochs,
		BatchSize:   t.BatchSize,
		Replicas:    t.Replicas,
		EvalSamples: t.EvalSamples,
		EvalEvery:   t.EvalEvery,
		Seed:        t.Seed,
	}
}

// RunFile is the YAML document consumed by the volnet CLI.
//
//	data:
//	  images: train-images-idx3-ubyte.gz
//	  labels: train-labels-idx1-ubyte.gz
//	  limit: 5000
//	preset: vgg
//	training:
//	  mode: parallel
//	  epochs: 200
//	  batch_size: 200
//	  replicas: 12
type RunFile struct {
	Data     DataSpec     `yaml:"data"`
	Preset   string       `yaml:"preset,omitempty"`
	Topology *Description `yaml:"topology,omitempty"`
	Training TrainingSpec `yaml:"training"`
}

// ParseRunFile decodes a run file. Unknown keys are rejected.
func ParseRunFile(data []byte) (*RunFile, error) {
	var rf RunFile
	if err := decodeStrict(bytes.NewReader(data), &rf); err != nil {
		return nil, fmt.Errorf("run file: %w", err)
	}
	if err := rf.validate(); err != nil {
		return nil, err
	}
	return &rf, nil
}

// LoadRunFile reads and decodes a run file from disk.
func LoadRunFile(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rf, err := ParseRunFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

func (rf *RunFile) validate() error {
	if rf.Data.Images == "" || rf.Data.Labels == "" {
		return errors.New("run file: data.images and data.labels are required")
	}
	if (rf.Preset == "") == (rf.Topology == nil) {
		return errors.New("run file: exactly one of preset and topology must be set")
	}
	switch rf.Training.Mode {
	case "", network.ModeParallel, network.ModeSequential:
	default:
		return fmt.Errorf("run file: unknown training mode %q", rf.Training.Mode)
	}
	return nil
}

// Description returns the explicit topology or the named preset.
func (rf *RunFile) Description() (*Description, error) {
	if rf.Topology != nil {
		return rf.Topology, nil
	}
	return Preset(rf.Preset)
}
