package anyctc

import (
	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Emissions stores a batch of per-timestep class log
// probabilities.
//
// LogProbs is packed in time-major order, as if it were a
// tensor of shape (steps, batch, classes).
// Sequences shorter than the longest one are padded at the
// end, and the true length of each sequence is recorded in
// Lengths.
// Padded entries are never read.
type Emissions struct {
	LogProbs anydiff.Res
	Batch    int
	Classes  int
	Lengths  []int
}

// PackEmissions creates constant Emissions from a list of
// sequences, where seqs[i][t] holds the log probabilities
// for the t-th timestep of the i-th sequence.
func PackEmissions(c anyvec.Creator, classes int, seqs [][][]float64) *Emissions {
	var steps int
	lengths := make([]int, len(seqs))
	for i, seq := range seqs {
		lengths[i] = len(seq)
		if len(seq) > steps {
			steps = len(seq)
		}
	}
	data := make([]float64, steps*len(seqs)*classes)
	for i, seq := range seqs {
		for t, vec := range seq {
			copy(data[(t*len(seqs)+i)*classes:], vec[:classes])
		}
	}
	return &Emissions{
		LogProbs: anydiff.NewConst(floatsVector(c, data)),
		Batch:    len(seqs),
		Classes:  classes,
		Lengths:  lengths,
	}
}

// Steps returns the number of timesteps in the padded
// batch.
func (e *Emissions) Steps() int {
	if e.Batch == 0 || e.Classes == 0 {
		return 0
	}
	return e.LogProbs.Output().Len() / (e.Batch * e.Classes)
}

// validate checks that the packed shape agrees with Batch,
// Classes, and Lengths.
func (e *Emissions) validate() error {
	if e.Batch < 1 {
		return &DimensionMismatchError{What: "batch size", Expected: 1, Actual: e.Batch}
	}
	if e.Classes <= alphabet.Blank {
		return &DimensionMismatchError{What: "class count", Expected: alphabet.Blank + 1,
			Actual: e.Classes}
	}
	if n := e.LogProbs.Output().Len(); n%(e.Batch*e.Classes) != 0 {
		return &DimensionMismatchError{
			What:     "log probability count",
			Expected: e.Steps() * e.Batch * e.Classes,
			Actual:   n,
		}
	}
	if len(e.Lengths) != e.Batch {
		return &DimensionMismatchError{What: "input lengths", Expected: e.Batch,
			Actual: len(e.Lengths)}
	}
	steps := e.Steps()
	for _, l := range e.Lengths {
		if l < 0 || l > steps {
			return &DimensionMismatchError{What: "input length", Expected: steps, Actual: l}
		}
	}
	return nil
}

// Targets stores a batch of label sequences, concatenated
// into one flat list.
type Targets struct {
	Labels  []int
	Lengths []int
}

// NewTargets flattens a list of label sequences.
func NewTargets(labels [][]int) *Targets {
	res := &Targets{Lengths: make([]int, len(labels))}
	for i, l := range labels {
		res.Labels = append(res.Labels, l...)
		res.Lengths[i] = len(l)
	}
	return res
}

// Len returns the number of label sequences.
func (t *Targets) Len() int {
	return len(t.Lengths)
}

// Label returns the i-th label sequence.
func (t *Targets) Label(i int) []int {
	var start int
	for _, l := range t.Lengths[:i] {
		start += l
	}
	return t.Labels[start : start+t.Lengths[i]]
}

func (t *Targets) split() [][]int {
	res := make([][]int, len(t.Lengths))
	var start int
	for i, l := range t.Lengths {
		res[i] = t.Labels[start : start+l]
		start += l
	}
	return res
}

// check validates a batch of targets against emissions
// before any likelihoods are computed.
func check(e *Emissions, t *Targets) error {
	if err := e.validate(); err != nil {
		return err
	}
	if t.Len() != e.Batch {
		return &DimensionMismatchError{What: "label lengths", Expected: e.Batch,
			Actual: t.Len()}
	}
	var total int
	for _, l := range t.Lengths {
		if l < 0 {
			return &DimensionMismatchError{What: "label length", Expected: 0, Actual: l}
		}
		total += l
	}
	if total != len(t.Labels) {
		return &DimensionMismatchError{What: "flattened labels", Expected: total,
			Actual: len(t.Labels)}
	}
	for i, label := range t.split() {
		for j, x := range label {
			if x == alphabet.Blank || x < 0 || x >= e.Classes {
				return &InvalidLabelError{Example: i, Position: j, Label: x,
					Classes: e.Classes}
			}
		}
		if required := minSteps(label); required > e.Lengths[i] {
			return &InfeasibleAlignmentError{
				Example:  i,
				Steps:    e.Lengths[i],
				LabelLen: len(label),
				Required: required,
			}
		}
	}
	return nil
}

// minSteps computes the length of the shortest CTC path
// that produces the label.
func minSteps(label []int) int {
	res := len(label)
	for i := 1; i < len(label); i++ {
		if label[i] == label[i-1] {
			res++
		}
	}
	return res
}
