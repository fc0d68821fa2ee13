package anyctc

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Reduction determines how per-sequence costs are combined
// into a batch cost.
type Reduction int

const (
	// ReduceSum adds up the cost of every sequence.
	ReduceSum Reduction = iota

	// ReduceMean averages the cost over the batch.
	ReduceMean
)

// String returns "sum" or "mean".
func (r Reduction) String() string {
	if r == ReduceMean {
		return "mean"
	}
	return "sum"
}

// Cost computes the cost for a batch of emissions.
// The cost for each sequence is the negative log
// likelihood of the corresponding label.
// The result has one component per sequence.
//
// Labels are indices into the class list, and may not
// contain the blank.
//
// All shape and label checks are done before any
// likelihoods are computed, and the first failure is
// returned, so a bad batch never produces a partial or
// non-finite cost.
//
// Sequences are evaluated in parallel.
// Back-propagating through the result only touches the
// first Lengths[i] timesteps of each sequence.
func Cost(e *Emissions, t *Targets) (anydiff.Res, error) {
	if err := check(e, t); err != nil {
		return nil, err
	}

	data := vectorFloats(e.LogProbs.Output())
	labels := t.split()
	results := make([]*alignment, e.Batch)
	essentials.ConcurrentMap(0, e.Batch, func(i int) {
		seq := make([]float64, e.Lengths[i]*e.Classes)
		for step := 0; step < e.Lengths[i]; step++ {
			start := (step*e.Batch + i) * e.Classes
			copy(seq[step*e.Classes:], data[start:start+e.Classes])
		}
		results[i] = align(seq, e.Classes, labels[i])
	})

	costs := make([]float64, e.Batch)
	for i, r := range results {
		if math.IsInf(r.LogLikelihood, 0) || math.IsNaN(r.LogLikelihood) {
			return nil, &NonFiniteLossError{Example: i, Value: -r.LogLikelihood}
		}
		costs[i] = -r.LogLikelihood
	}

	c := e.LogProbs.Output().Creator()
	return &costRes{
		In:      e,
		Results: results,
		OutVec:  floatsVector(c, costs),
	}, nil
}

// Loss computes the total cost of a batch, combined with
// the given Reduction.
// The result has one component.
func Loss(e *Emissions, t *Targets, r Reduction) (anydiff.Res, error) {
	costs, err := Cost(e, t)
	if err != nil {
		return nil, err
	}
	sum := anydiff.Sum(costs)
	if r == ReduceMean {
		scaler := sum.Output().Creator().MakeNumeric(1 / float64(e.Batch))
		return anydiff.Scale(sum, scaler), nil
	}
	return sum, nil
}

type costRes struct {
	In      *Emissions
	Results []*alignment
	OutVec  anyvec.Vector
}

func (c *costRes) Output() anyvec.Vector {
	return c.OutVec
}

func (c *costRes) Vars() anydiff.VarSet {
	return c.In.LogProbs.Vars()
}

func (c *costRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	if !g.Intersects(c.In.LogProbs.Vars()) {
		return
	}
	upstream := vectorFloats(u)
	batch, classes := c.In.Batch, c.In.Classes
	downstream := make([]float64, c.In.LogProbs.Output().Len())
	for i, r := range c.Results {
		scale := upstream[i]
		for step := 0; step < c.In.Lengths[i]; step++ {
			dst := downstream[(step*batch+i)*classes : (step*batch+i+1)*classes]
			src := r.Grad[step*classes : (step+1)*classes]
			for k, x := range src {
				dst[k] = scale * x
			}
		}
	}
	creator := c.In.LogProbs.Output().Creator()
	c.In.LogProbs.Propagate(floatsVector(creator, downstream), g)
}
