package hwtrain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/Wukong90/Fast-Writer-Adaptation/hwnet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"gopkg.in/yaml.v3"
)

const testInSize = 4

func testSamples(a *alphabet.Alphabet, texts ...string) *anyctc.SliceSampleList {
	c := anyvec64.DefaultCreator{}
	res := &anyctc.SliceSampleList{C: c}
	for _, text := range texts {
		label, err := a.EncodeString(text)
		if err != nil {
			panic(err)
		}
		sample := &anyctc.Sample{Label: label, Transcript: text}
		for i := 0; i < 3*len(label)+2; i++ {
			v := c.MakeVector(testInSize)
			anyvec.Rand(v, anyvec.Uniform, nil)
			sample.Input = append(sample.Input, v)
		}
		res.Samples = append(res.Samples, sample)
	}
	return res
}

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Epochs = 2
	cfg.BatchSize = 2
	cfg.ValBatchSize = 2
	cfg.ShowInterval = 1
	cfg.LearningRate = 0.01
	cfg.CheckpointDir = t.TempDir()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 400, cfg.Epochs)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 4, cfg.ValBatchSize)
	assert.Equal(t, 0.0005, cfg.LearningRate)
	assert.Equal(t, 124, cfg.ImageHeight)
	tr, err := cfg.Transformer()
	require.NoError(t, err)
	assert.IsType(t, &anysgd.RMSProp{}, tr)
	r, err := cfg.ReductionPolicy()
	require.NoError(t, err)
	assert.Equal(t, anyctc.ReduceSum, r)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("epochs: 3\nreduction: mean\n"), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Epochs)
	assert.Equal(t, "mean", cfg.Reduction)
	assert.Equal(t, 20, cfg.BatchSize, "unset keys keep defaults")

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	require.NoError(t, os.WriteFile(path, []byte("batch_size: 0\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(c *Config){
		"epochs":    func(c *Config) { c.Epochs = 0 },
		"lr":        func(c *Config) { c.LearningRate = -1 },
		"val ratio": func(c *Config) { c.ValRatio = 1 },
		"reduction": func(c *Config) { c.Reduction = "median" },
		"name":      func(c *Config) { c.ModelName = "" },
		"interval":  func(c *Config) { c.ShowInterval = 0 },
		"optimizer": func(c *Config) { c.Optimizer = "lbfgs" },
	} {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestValidate(t *testing.T) {
	a := alphabet.MustNew("_ab ")
	model := hwnet.New(anyvec64.DefaultCreator{}, a, testInSize, 5, 3)
	samples := testSamples(a, "ab", "a b", "ba", "b", "aab")

	tally, err := Validate(model, samples, 2)
	require.NoError(t, err)
	assert.Equal(t, 2+3+2+1+3, tally.Chars.RefLen)
	assert.Equal(t, 1+2+1+1+1, tally.Words.RefLen)
}

func TestRun(t *testing.T) {
	a := alphabet.MustNew("_ab ")
	model := hwnet.New(anyvec64.DefaultCreator{}, a, testInSize, 5, 3)
	train := testSamples(a, "ab", "ba", "a b", "bb")
	val := testSamples(a, "ab", "b")
	cfg := testConfig(t)
	cfg.Optimizer = "adam"

	metrics := NewMetrics()
	require.NoError(t, metrics.Register(prometheus.NewRegistry()))

	summary, err := Run(context.Background(), cfg, model, train, val, metrics)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Epochs)
	assert.False(t, summary.Interrupted)
	assert.Greater(t, summary.TrainLoss, 0.0)
	assert.Equal(t, 3, summary.Val.Chars.RefLen)

	require.Len(t, summary.Checkpoints, 2)
	assert.Equal(t, filepath.Join(cfg.CheckpointDir, summary.RunID, "ctc_hw_epoch2"),
		summary.Checkpoints[1])
	loaded, err := hwnet.Load(summary.Checkpoints[1])
	require.NoError(t, err)
	assert.Equal(t, a.Symbols(), loaded.Alphabet.Symbols())
}

func TestRunResume(t *testing.T) {
	a := alphabet.MustNew("_ab")
	model := hwnet.New(anyvec64.DefaultCreator{}, a, testInSize, 5, 3)
	train := testSamples(a, "ab", "ba", "a")
	cfg := testConfig(t)
	cfg.Epochs = 1

	summary, err := Run(context.Background(), cfg, model, train, nil, nil)
	require.NoError(t, err)
	require.Len(t, summary.Checkpoints, 1)
	statePath := summary.Checkpoints[0] + OptimizerStateExt
	_, err = os.Stat(statePath)
	require.NoError(t, err)

	loaded, err := hwnet.Load(summary.Checkpoints[0])
	require.NoError(t, err)
	cfg.OptimizerState = statePath
	summary, err = Run(context.Background(), cfg, loaded, train, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Epochs)

	cfg.OptimizerState = filepath.Join(t.TempDir(), "missing.opt")
	_, err = Run(context.Background(), cfg, loaded, train, nil, nil)
	assert.Error(t, err)
}

func TestRunInterrupted(t *testing.T) {
	a := alphabet.MustNew("_ab")
	model := hwnet.New(anyvec64.DefaultCreator{}, a, testInSize, 5, 3)
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := Run(ctx, cfg, model, testSamples(a, "ab", "ba"), nil, nil)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 0, summary.Epochs)
	require.Len(t, summary.Checkpoints, 1)
	_, err = os.Stat(summary.Checkpoints[0])
	assert.NoError(t, err)
}

func TestRunInfeasible(t *testing.T) {
	a := alphabet.MustNew("_ab")
	model := hwnet.New(anyvec64.DefaultCreator{}, a, testInSize, 5, 3)
	train := testSamples(a, "ab")
	train.Samples[0].Input = train.Samples[0].Input[:1]

	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg, model, train, nil, nil)
	assert.Error(t, err)
}
