package anyctc

import (
	"errors"

	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Batch stores a batch of input sequences and the
// corresponding labels for each.
type Batch struct {
	Inputs      anyseq.Seq
	Targets     *Targets
	Transcripts []string
}

// A Trainer creates batches, computes gradients, and adds
// up costs for CTC.
type Trainer struct {
	// Func maps input sequences to unnormalized class
	// scores, with Classes components per timestep.
	Func   func(anyseq.Seq) anyseq.Seq
	Params []*anydiff.Var

	Classes int

	// Reduction determines whether the batch cost is a sum
	// or a mean over the sequences.
	// This affects gradients, LastCost, and the output of
	// TotalCost().
	Reduction Reduction

	// After every gradient computation, LastCost is set to
	// the cost from the batch, and LastSize to the number
	// of sequences in it.
	LastCost float64
	LastSize int
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	return FetchBatch(s.(SampleList))
}

// FetchBatch loads every sample in a SampleList into a
// *Batch.
func FetchBatch(l SampleList) (*Batch, error) {
	ins := make([][]anyvec.Vector, l.Len())
	labels := make([][]int, l.Len())
	transcripts := make([]string, l.Len())
	for i := 0; i < l.Len(); i++ {
		sample, err := l.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
		ins[i] = sample.Input
		labels[i] = sample.Label
		transcripts[i] = sample.Transcript
	}
	return &Batch{
		Inputs:      anyseq.ConstSeqList(l.Creator(), ins),
		Targets:     NewTargets(labels),
		Transcripts: transcripts,
	}, nil
}

// TotalCost computes the total cost for the batch.
//
// For more information on how this works, see Loss().
func (t *Trainer) TotalCost(b *Batch) (anydiff.Res, error) {
	actual := t.Func(b.Inputs)
	return Loss(FromLogits(actual, b.Targets.Len(), t.Classes), b.Targets, t.Reduction)
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the
// total cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) (anydiff.Grad, error) {
	batch := b.(*Batch)
	cost, err := t.TotalCost(batch)
	if err != nil {
		return nil, err
	}
	t.LastCost = vectorFloats(cost.Output())[0]
	t.LastSize = batch.Targets.Len()

	res := anydiff.NewGrad(t.Params...)
	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, res)

	return res, nil
}
