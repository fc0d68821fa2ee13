package anysgd

import "github.com/unixpickle/anydiff"

// A Transformer transforms gradients.
// For example, pre-conditioning could be implemented as a
// transformer.
//
// After its first call, a Transformer expects to see
// gradients of the same form (i.e. containing the same
// variables).
//
// A Transformer may modify its own input and return the
// same gradient as an output.
// It should not retain a reference to the input.
type Transformer interface {
	Transform(g anydiff.Grad) anydiff.Grad
}

// A Batch is an immutable list of samples, fetched and
// ready to be fed through a model.
//
// Batches are obtained using a Fetcher and then used as
// arguments to a Gradienter.
type Batch interface{}

// A Fetcher is responsible for fetching Batches for
// SampleLists.
//
// SGD calls Fetch on a separate goroutine, so that the
// next Batch is usually ready as soon as the previous
// gradient step is done.
type Fetcher interface {
	Fetch(s SampleList) (Batch, error)
}

// A Gradienter computes a gradient for a Batch.
//
// An error means the batch could not be used (e.g. its
// labels do not fit its inputs), and training stops.
type Gradienter interface {
	Gradient(b Batch) (anydiff.Grad, error)
}

// A Rater determines the learning rate given the epoch
// number.
// An "epoch" is a full pass over the training set, so
// fractional epochs are possible.
type Rater interface {
	Rate(epoch float64) float64
}

// A SampleList represents a list of training samples.
type SampleList interface {
	// Len returns the number of samples.
	Len() int

	// Swap swaps two samples.
	Swap(i, j int)

	// Slice generates a shallow copy of a subset of the
	// list.
	Slice(i, j int) SampleList
}

// PostShuffler is used to notify a SampleList that it has
// been shuffled, allowing it to perform any sample
// re-ordering it likes.
//
// For example, a PostShuffler can move sequences of
// similar lengths next to each other, so that a
// mini-batch needs less padding.
type PostShuffler interface {
	PostShuffle()
}
