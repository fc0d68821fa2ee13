package hwtrain

import (
	"os"

	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the hyper-parameters and paths for a
// training run.
type Config struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	ValBatchSize int     `yaml:"val_batch_size"`
	LearningRate float64 `yaml:"learning_rate"`

	// Optimizer is "rmsprop", "adam", or "momentum".
	Optimizer string `yaml:"optimizer"`

	// OptimizerState, if set, is a file written next to a
	// checkpoint from which the optimizer statistics are
	// restored.
	OptimizerState string `yaml:"optimizer_state,omitempty"`

	// ShowInterval is the number of batches between loss
	// reports.
	ShowInterval int `yaml:"show_interval"`

	// Reduction is "sum" or "mean".
	Reduction string `yaml:"reduction"`

	ImageHeight int `yaml:"image_height"`
	Hidden      int `yaml:"hidden"`
	RNNHidden   int `yaml:"rnn_hidden"`

	// ValRatio is the fraction of lines held out for
	// validation.
	ValRatio float64 `yaml:"val_ratio"`

	// CheckpointDir, if set, receives a directory per run
	// with one model file per epoch.
	CheckpointDir string `yaml:"checkpoint_dir"`
	ModelName     string `yaml:"model_name"`

	// Progress enables a progress bar on stderr.
	Progress bool `yaml:"progress"`
}

// DefaultConfig returns the settings used to train on IAM
// lines.
func DefaultConfig() *Config {
	return &Config{
		Epochs:        400,
		BatchSize:     20,
		ValBatchSize:  4,
		LearningRate:  0.0005,
		Optimizer:     "rmsprop",
		ShowInterval:  5,
		Reduction:     anyctc.ReduceSum.String(),
		ImageHeight:   124,
		Hidden:        64,
		RNNHidden:     256,
		ValRatio:      0.1,
		CheckpointDir: "weights",
		ModelName:     "ctc_hw",
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig, so
// missing keys keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks that the settings make sense.
func (c *Config) Validate() error {
	switch {
	case c.Epochs < 1:
		return errors.Errorf("epochs must be positive, got %d", c.Epochs)
	case c.BatchSize < 1:
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.ValBatchSize < 1:
		return errors.Errorf("validation batch size must be positive, got %d",
			c.ValBatchSize)
	case c.LearningRate <= 0:
		return errors.Errorf("learning rate must be positive, got %g", c.LearningRate)
	case c.ShowInterval < 1:
		return errors.Errorf("show interval must be positive, got %d", c.ShowInterval)
	case c.ImageHeight < 1 || c.Hidden < 1 || c.RNNHidden < 1:
		return errors.New("image height and hidden sizes must be positive")
	case c.ValRatio < 0 || c.ValRatio >= 1:
		return errors.Errorf("validation ratio must be in [0, 1), got %g", c.ValRatio)
	case c.ModelName == "":
		return errors.New("model name is empty")
	}
	if _, err := c.Transformer(); err != nil {
		return err
	}
	_, err := c.ReductionPolicy()
	return err
}

// Transformer creates the gradient transformer named by
// c.Optimizer.
func (c *Config) Transformer() (anysgd.Transformer, error) {
	switch c.Optimizer {
	case "rmsprop":
		return &anysgd.RMSProp{}, nil
	case "adam":
		return &anysgd.Adam{}, nil
	case "momentum":
		return &anysgd.Momentum{Momentum: 0.9}, nil
	}
	return nil, errors.Errorf("unknown optimizer %q", c.Optimizer)
}

// ReductionPolicy parses c.Reduction.
func (c *Config) ReductionPolicy() (anyctc.Reduction, error) {
	switch c.Reduction {
	case anyctc.ReduceSum.String():
		return anyctc.ReduceSum, nil
	case anyctc.ReduceMean.String():
		return anyctc.ReduceMean, nil
	}
	return 0, errors.Errorf("unknown reduction %q", c.Reduction)
}
