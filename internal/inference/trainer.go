package inference

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// TrainConfig holds the detector training hyperparameters.
type TrainConfig struct {
	// Command is the detector CLI, "yolo" by default.
	Command string

	DatasetRoot  string
	DatasetYAML  string
	Model        string
	Epochs       int
	ImageSize    int
	Batch        int
	Device       string
	Workers      int
	Optimizer    string
	WarmupEpochs int
	Cache        string
	SingleClass  bool
	AMP          bool
	Profile      bool
}

// Trainer launches detector training.
type Trainer struct {
	cfg    TrainConfig
	stdout io.Writer
	stderr io.Writer
}

// NewTrainer creates a Trainer streaming the command's output to stdout and
// stderr. Nil writers select the process streams.
func NewTrainer(cfg TrainConfig, stdout, stderr io.Writer) *Trainer {
	if cfg.Command == "" {
		cfg.Command = "yolo"
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Trainer{cfg: cfg, stdout: stdout, stderr: stderr}
}

// Args returns the command line arguments passed to the detector CLI.
func (t *Trainer) Args() []string {
	c := t.cfg
	return []string{
		"detect", "train",
		"data=" + c.DatasetYAML,
		"model=" + c.Model,
		"epochs=" + strconv.Itoa(c.Epochs),
		"imgsz=" + strconv.Itoa(c.ImageSize),
		"batch=" + strconv.Itoa(c.Batch),
		"device=" + c.Device,
		"workers=" + strconv.Itoa(c.Workers),
		"optimizer=" + c.Optimizer,
		"warmup_epochs=" + strconv.Itoa(c.WarmupEpochs),
		"cache=" + c.Cache,
		"single_cls=" + pyBool(c.SingleClass),
		"amp=" + pyBool(c.AMP),
		"profile=" + pyBool(c.Profile),
	}
}

// Validate checks that the dataset descriptor and root exist.
func (t *Trainer) Validate() error {
	if _, err := os.Stat(t.cfg.DatasetYAML); err != nil {
		return fmt.Errorf("%w: YAML not found at %s", ErrDataset, t.cfg.DatasetYAML)
	}
	if info, err := os.Stat(t.cfg.DatasetRoot); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: dataset not found at %s", ErrDataset, t.cfg.DatasetRoot)
	}
	return nil
}

// Train validates the dataset and runs the detector CLI until it exits or
// ctx is cancelled.
func (t *Trainer) Train(ctx context.Context) error {
	if err := t.Validate(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, t.cfg.Command, t.Args()...)
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", t.cfg.Command, err)
	}
	return nil
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
