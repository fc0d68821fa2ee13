// Package anysgd provides tools for Stochastic Gradient
// Descent over mini-batches of training samples.
package anysgd

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
)

// ErrInterrupted is returned by RunEpoch when the done
// channel is closed before the epoch is complete.
var ErrInterrupted = errors.New("training interrupted")

// SGD performs stochastic gradient descent.
type SGD struct {
	// Fetcher turns slices of Samples into Batches.
	Fetcher Fetcher

	// Gradienter is used to compute initial, untransformed
	// gradients for each mini-batch.
	Gradienter Gradienter

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer Transformer

	// Samples is the list of training samples to use for
	// training.
	// It is re-shuffled at the start of every epoch.
	//
	// The list may not be empty.
	Samples SampleList

	// Rater determines the learning rate for each step.
	Rater Rater

	// StatusFunc, if non-nil, is called before every
	// iteration with the next mini-batch.
	StatusFunc func(b Batch)

	// BatchSize is the mini-batch size.
	// If it is 0, then the entire sample list is used at
	// every iteration.
	BatchSize int

	// NumProcessed keeps track of the number of samples that
	// have been passed to Gradienter so far.
	// It is used to compute the epoch for Rater.
	NumProcessed int
}

// RunEpoch performs one shuffled pass over the samples.
//
// It returns ErrInterrupted if done is closed before the
// pass is over.
// Errors from the Fetcher or Gradienter end the epoch
// immediately, before any step is taken with the batch.
func (s *SGD) RunEpoch(done <-chan struct{}) error {
	if s.Samples.Len() == 0 {
		return errors.New("run epoch: empty sample list")
	}
	Shuffle(s.Samples)

	stop := make(chan struct{})
	defer close(stop)

	for f := range s.prefetch(stop) {
		select {
		case <-done:
			return ErrInterrupted
		default:
		}
		if f.Err != nil {
			return essentials.AddCtx("run epoch", f.Err)
		}
		if s.StatusFunc != nil {
			s.StatusFunc(f.Batch)
		}

		grad, err := s.Gradienter.Gradient(f.Batch)
		if err != nil {
			return essentials.AddCtx("run epoch", err)
		}
		if s.Transformer != nil {
			grad = s.Transformer.Transform(grad)
		}

		epoch := float64(s.NumProcessed) / float64(s.Samples.Len())
		scaleGradient(grad, -s.Rater.Rate(epoch))
		grad.AddToVars()

		s.NumProcessed += f.Size
	}
	return nil
}

type fetchedBatch struct {
	Batch Batch
	Size  int
	Err   error
}

// prefetch fetches batches in order on a background
// goroutine, staying at most one batch ahead.
func (s *SGD) prefetch(stop <-chan struct{}) <-chan *fetchedBatch {
	res := make(chan *fetchedBatch, 1)
	total := s.Samples.Len()
	go func() {
		defer close(res)
		for i := 0; i < total; {
			size := s.batchSize(total - i)
			b, err := s.Fetcher.Fetch(s.Samples.Slice(i, i+size))
			select {
			case res <- &fetchedBatch{Batch: b, Size: size, Err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
			i += size
		}
	}()
	return res
}

func (s *SGD) batchSize(remaining int) int {
	if s.BatchSize == 0 || s.BatchSize > remaining {
		return remaining
	} else {
		return s.BatchSize
	}
}

func scaleGradient(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}
