// Command hwtrain trains a CTC handwriting recognizer on
// the IAM lines dataset.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"

	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/Wukong90/Fast-Writer-Adaptation/hwdata"
	"github.com/Wukong90/Fast-Writer-Adaptation/hwnet"
	"github.com/Wukong90/Fast-Writer-Adaptation/hwtrain"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unixpickle/anyvec/anyvec32"
	"k8s.io/klog/v2"
)

var (
	flagConfig      = flag.String("config", "", "YAML config file; flags override its values")
	flagData        = flag.String("data", "iam", "IAM root directory containing lines.txt and lines/")
	flagValRatio    = flag.Float64("val-ratio", 0, "fraction of lines held out for validation")
	flagEpochs      = flag.Int("epochs", 0, "number of epochs")
	flagBatch       = flag.Int("batch", 0, "training batch size")
	flagLR          = flag.Float64("lr", 0, "learning rate")
	flagCheckpoints = flag.String("checkpoints", "", "checkpoint directory")
	flagMetricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
	flagResume      = flag.String("resume", "", "model file to continue training from")
	flagProgress    = flag.Bool("progress", false, "show a progress bar for each epoch")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		klog.Fatalf("%+v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	c := anyvec32.DefaultCreator{}
	var model *hwnet.Model
	if *flagResume != "" {
		model, err = hwnet.Load(*flagResume)
		if err != nil {
			return errors.Wrap(err, "resume")
		}
		klog.Infof("resuming from %s", *flagResume)
		statePath := *flagResume + hwtrain.OptimizerStateExt
		if _, err := os.Stat(statePath); err == nil && cfg.OptimizerState == "" {
			cfg.OptimizerState = statePath
		}
	} else {
		model = hwnet.New(c, alphabet.MustNew(alphabet.IAM), cfg.ImageHeight, cfg.Hidden,
			cfg.RNNHidden)
	}

	samples, err := hwdata.Open(c, *flagData, model.Alphabet, cfg.ImageHeight)
	if err != nil {
		return errors.Wrap(err, "load data")
	}
	val, train := anysgd.HashSplit(samples, cfg.ValRatio)

	metrics := hwtrain.NewMetrics()
	if *flagMetricsAddr != "" {
		registry := prometheus.NewRegistry()
		if err := metrics.Register(registry); err != nil {
			return errors.Wrap(err, "register metrics")
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*flagMetricsAddr, mux); err != nil {
				klog.Errorf("metrics server: %v", err)
			}
		}()
	}

	summary, err := hwtrain.Run(ctx, cfg, model, train.(anyctc.SampleList),
		val.(anyctc.SampleList), metrics)
	if err != nil {
		return err
	}
	if summary.Interrupted {
		klog.Infof("interrupted during epoch %d", summary.Epochs+1)
	}
	if len(summary.Checkpoints) > 0 {
		klog.Infof("latest checkpoint: %s", summary.Checkpoints[len(summary.Checkpoints)-1])
	}
	return nil
}

// loadConfig reads the config file, if any, and applies
// the flags that were set explicitly.
func loadConfig() (*hwtrain.Config, error) {
	cfg := hwtrain.DefaultConfig()
	if *flagConfig != "" {
		var err error
		cfg, err = hwtrain.LoadConfig(*flagConfig)
		if err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "val-ratio":
			cfg.ValRatio = *flagValRatio
		case "epochs":
			cfg.Epochs = *flagEpochs
		case "batch":
			cfg.BatchSize = *flagBatch
		case "lr":
			cfg.LearningRate = *flagLR
		case "checkpoints":
			cfg.CheckpointDir = *flagCheckpoints
		case "progress":
			cfg.Progress = *flagProgress
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	return cfg, nil
}
