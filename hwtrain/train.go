// Package hwtrain trains handwriting models with CTC and
// evaluates them with error rates.
package hwtrain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/Wukong90/Fast-Writer-Adaptation/errrate"
	"github.com/Wukong90/Fast-Writer-Adaptation/hwnet"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/unixpickle/anydiff"
	"k8s.io/klog/v2"
)

// Summary describes a finished (or interrupted) run.
type Summary struct {
	RunID string

	// Epochs is the number of completed epochs.
	Epochs int

	// TrainLoss is the mean per-sample loss of the last
	// completed epoch.
	TrainLoss float64

	// Val is the tally from the last validation pass.
	Val errrate.Tally

	Checkpoints []string
	Interrupted bool
}

// Run trains the model for cfg.Epochs epochs.
//
// After every epoch, the model is validated on val (if it
// is non-empty) and saved to the checkpoint directory.
// If ctx is cancelled, training stops before the next
// batch and the partly trained model is saved.
//
// The metrics argument may be nil.
func Run(ctx context.Context, cfg *Config, model *hwnet.Model, train,
	val anyctc.SampleList, metrics *Metrics) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "run")
	}
	if train.Len() == 0 {
		return nil, errors.New("run: no training samples")
	}
	reduction, _ := cfg.ReductionPolicy()
	transformer, _ := cfg.Transformer()
	if cfg.OptimizerState != "" {
		if err := loadOptimizerState(transformer, model, cfg.OptimizerState); err != nil {
			return nil, err
		}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	summary := &Summary{RunID: uuid.New().String()}
	var runDir string
	if cfg.CheckpointDir != "" {
		runDir = filepath.Join(cfg.CheckpointDir, summary.RunID)
		if err := os.MkdirAll(runDir, 0755); err != nil {
			return nil, errors.Wrap(err, "create checkpoint directory")
		}
	}

	var samples anysgd.SampleList = train
	if sortable, ok := train.(anyctc.SortableSampleList); ok {
		samples = &anyctc.SortSampleList{SortableSampleList: sortable, BatchSize: cfg.BatchSize}
	}
	rec := &recorder{
		Trainer: &anyctc.Trainer{
			Func:      model.Apply,
			Params:    model.Parameters(),
			Classes:   model.Classes(),
			Reduction: reduction,
		},
		Metrics:      metrics,
		ShowInterval: cfg.ShowInterval,
	}
	sgd := &anysgd.SGD{
		Fetcher:     rec.Trainer,
		Gradienter:  rec,
		Transformer: transformer,
		Samples:     samples,
		Rater:       anysgd.ConstRater(cfg.LearningRate),
		BatchSize:   cfg.BatchSize,
	}

	valCount := 0
	if val != nil {
		valCount = val.Len()
	}
	klog.Infof("run %s: %s parameters, %s training lines, %s validation lines",
		summary.RunID, humanize.Comma(int64(countParams(rec.Trainer.Params))),
		humanize.Comma(int64(train.Len())), humanize.Comma(int64(valCount)))

	save := func(name string) error {
		if runDir == "" {
			return nil
		}
		path := filepath.Join(runDir, name)
		if err := model.Save(path); err != nil {
			return errors.Wrapf(err, "save checkpoint %s", path)
		}
		if err := saveOptimizerState(transformer, model, path+OptimizerStateExt); err != nil {
			return err
		}
		summary.Checkpoints = append(summary.Checkpoints, path)
		klog.V(1).Infof("saved %s", path)
		return nil
	}

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		rec.reset(epoch)
		if cfg.Progress {
			rec.Bar = progressbar.NewOptions(train.Len(),
				progressbar.OptionSetDescription(fmt.Sprintf("epoch %d", epoch)),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("lines"))
		}
		err := sgd.RunEpoch(ctx.Done())
		if rec.Bar != nil {
			rec.Bar.Finish()
		}
		if err == anysgd.ErrInterrupted {
			klog.Infof("epoch %d interrupted after %d batches", epoch, rec.batches)
			summary.Interrupted = true
			return summary, save(fmt.Sprintf("%s_epoch%d_partial", cfg.ModelName, epoch))
		} else if err != nil {
			return summary, errors.Wrapf(err, "epoch %d", epoch)
		}

		summary.Epochs = epoch
		summary.TrainLoss = rec.meanLoss()
		metrics.EpochLoss.Set(summary.TrainLoss)
		metrics.EpochsRun.Inc()
		klog.Infof("epoch %d: train_loss=%f", epoch, summary.TrainLoss)

		if err := save(fmt.Sprintf("%s_epoch%d", cfg.ModelName, epoch)); err != nil {
			return summary, err
		}

		if valCount > 0 {
			tally, err := Validate(model, val, cfg.ValBatchSize)
			if err != nil {
				return summary, errors.Wrapf(err, "epoch %d", epoch)
			}
			summary.Val = tally
			cer, _ := tally.CER()
			wer, _ := tally.WER()
			metrics.ValCER.Set(cer)
			metrics.ValWER.Set(wer)
			klog.Infof("epoch %d: val CER %s, val WER %s", epoch, tally.Chars, tally.Words)
		}
	}
	return summary, nil
}

// OptimizerStateExt is appended to a checkpoint path to
// get the path of the matching optimizer state.
const OptimizerStateExt = ".opt"

func saveOptimizerState(t anysgd.Transformer, model *hwnet.Model, path string) error {
	m, ok := t.(anysgd.StateMarshaler)
	if !ok {
		return nil
	}
	data, err := m.MarshalState(model.Parameters())
	if err != nil {
		return errors.Wrap(err, "marshal optimizer state")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "save optimizer state")
}

func loadOptimizerState(t anysgd.Transformer, model *hwnet.Model, path string) error {
	m, ok := t.(anysgd.StateMarshaler)
	if !ok {
		return errors.Errorf("optimizer %T has no state to restore", t)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "load optimizer state")
	}
	if err := m.UnmarshalState(model.Parameters(), data); err != nil {
		return errors.Wrapf(err, "restore optimizer state %s", path)
	}
	klog.Infof("restored optimizer state from %s", path)
	return nil
}

// recorder computes gradients with a Trainer and keeps
// track of the losses in the current epoch.
type recorder struct {
	Trainer      *anyctc.Trainer
	Metrics      *Metrics
	ShowInterval int
	Bar          *progressbar.ProgressBar

	epoch     int
	batches   int
	totalCost float64
	totalSize int
}

func (r *recorder) reset(epoch int) {
	r.epoch = epoch
	r.batches = 0
	r.totalCost = 0
	r.totalSize = 0
	r.Bar = nil
}

func (r *recorder) Gradient(b anysgd.Batch) (anydiff.Grad, error) {
	grad, err := r.Trainer.Gradient(b)
	if err != nil {
		return nil, err
	}
	batchCost := r.Trainer.LastCost
	if r.Trainer.Reduction == anyctc.ReduceMean {
		batchCost *= float64(r.Trainer.LastSize)
	}
	r.batches++
	r.totalCost += batchCost
	r.totalSize += r.Trainer.LastSize

	perSample := batchCost / float64(r.Trainer.LastSize)
	r.Metrics.BatchLoss.Set(perSample)
	r.Metrics.Samples.Add(float64(r.Trainer.LastSize))
	if r.batches%r.ShowInterval == 0 {
		klog.Infof("epoch %d batch %d: loss=%f", r.epoch, r.batches, perSample)
	}
	if r.Bar != nil {
		r.Bar.Add(r.Trainer.LastSize)
	}
	return grad, nil
}

func (r *recorder) meanLoss() float64 {
	if r.totalSize == 0 {
		return 0
	}
	return r.totalCost / float64(r.totalSize)
}

func countParams(params []*anydiff.Var) int {
	var res int
	for _, p := range params {
		res += p.Vector.Len()
	}
	return res
}
