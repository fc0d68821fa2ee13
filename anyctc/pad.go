package anyctc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// FromLogits turns the raw output of a network into
// Emissions.
// Each timestep of each sequence must have one score per
// class.
// The scores are padded into a time-major batch and
// normalized with a log-softmax.
func FromLogits(logits anyseq.Seq, batch, classes int) *Emissions {
	padded, lengths := Pad(logits, batch, classes)
	return &Emissions{
		LogProbs: anydiff.LogSoftmax(padded, classes),
		Batch:    batch,
		Classes:  classes,
		Lengths:  lengths,
	}
}

// Pad converts a sequence batch into a dense, time-major
// vector of shape (steps, batch, chunk), filling in zeros
// for sequences which have ended.
// It also returns the length of every sequence.
//
// Gradients propagated through the result flow back into
// the sequence batch; gradients for padding are dropped.
func Pad(s anyseq.Seq, batch, chunk int) (anydiff.Res, []int) {
	c := s.Creator()
	lengths := make([]int, batch)
	zero := c.MakeVector(chunk)
	var parts []anyvec.Vector
	for _, step := range s.Output() {
		if len(step.Present) != batch {
			panic(fmt.Sprintf("batch size should be %d but got %d", batch,
				len(step.Present)))
		}
		var packedIdx int
		for i, pres := range step.Present {
			if pres {
				parts = append(parts, step.Packed.Slice(packedIdx*chunk,
					(packedIdx+1)*chunk))
				packedIdx++
				lengths[i]++
			} else {
				parts = append(parts, zero)
			}
		}
	}
	var out anyvec.Vector
	if len(parts) == 0 {
		out = c.MakeVector(0)
	} else {
		out = c.Concat(parts...)
	}
	return &padRes{In: s, Chunk: chunk, OutVec: out}, lengths
}

type padRes struct {
	In     anyseq.Seq
	Chunk  int
	OutVec anyvec.Vector
}

func (p *padRes) Output() anyvec.Vector {
	return p.OutVec
}

func (p *padRes) Vars() anydiff.VarSet {
	return p.In.Vars()
}

func (p *padRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	if !g.Intersects(p.In.Vars()) {
		return
	}
	var idx int
	var upstream []*anyseq.Batch
	for _, step := range p.In.Output() {
		var parts []anyvec.Vector
		for _, pres := range step.Present {
			if pres {
				parts = append(parts, u.Slice(idx*p.Chunk, (idx+1)*p.Chunk))
			}
			idx++
		}
		upstream = append(upstream, &anyseq.Batch{
			Packed:  u.Creator().Concat(parts...),
			Present: step.Present,
		})
	}
	p.In.Propagate(upstream, g)
}
