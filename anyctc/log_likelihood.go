package anyctc

import (
	"math"

	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
)

// An alignment is the result of running the CTC forward
// and backward recurrences on one sequence.
type alignment struct {
	LogLikelihood float64

	// Grad is the gradient of the negative log likelihood
	// with respect to each input log probability, packed as
	// (steps, classes).
	Grad []float64
}

// align computes the log likelihood of a label and its
// gradient.
// The seq argument holds log probabilities packed as
// (steps, classes).
//
// The label is expanded with blanks at the start, at the
// end, and between entries; a path through the expanded
// label visits positions in order, and may skip a blank
// only if the labels on either side of it differ.
//
// The label must be feasible for the sequence.
func align(seq []float64, classes int, label []int) *alignment {
	steps := len(seq) / classes
	if steps == 0 {
		if len(label) == 0 {
			return &alignment{}
		}
		return &alignment{LogLikelihood: math.Inf(-1)}
	}

	expanded := make([]int, len(label)*2+1)
	for i, x := range label {
		expanded[i*2+1] = x
	}
	for i := 0; i < len(expanded); i += 2 {
		expanded[i] = alphabet.Blank
	}
	numPos := len(expanded)
	canSkip := func(pos int) bool {
		return pos >= 2 && expanded[pos] != alphabet.Blank &&
			expanded[pos] != expanded[pos-2]
	}
	emission := func(t, pos int) float64 {
		return seq[t*classes+expanded[pos]]
	}

	// forward[t*numPos+s] is the log probability of all
	// path prefixes ending at position s after timestep t,
	// including the emission at t.
	forward := negInfSlice(steps * numPos)
	forward[0] = emission(0, 0)
	if numPos > 1 {
		forward[1] = emission(0, 1)
	}
	for t := 1; t < steps; t++ {
		last := forward[(t-1)*numPos : t*numPos]
		cur := forward[t*numPos : (t+1)*numPos]
		for s := range cur {
			sum := last[s]
			if s > 0 {
				sum = addLogs(sum, last[s-1])
			}
			if canSkip(s) {
				sum = addLogs(sum, last[s-2])
			}
			cur[s] = sum + emission(t, s)
		}
	}

	finalRow := forward[(steps-1)*numPos:]
	logLikelihood := finalRow[numPos-1]
	if numPos > 1 {
		logLikelihood = addLogs(logLikelihood, finalRow[numPos-2])
	}

	// backward[t*numPos+s] is the log probability of all
	// path suffixes after timestep t, given that the path is
	// at position s at time t.
	// It excludes the emission at t, so that forward*backward
	// covers every complete path through (t, s) exactly once.
	backward := negInfSlice(steps * numPos)
	backward[(steps-1)*numPos+numPos-1] = 0
	if numPos > 1 {
		backward[(steps-1)*numPos+numPos-2] = 0
	}
	for t := steps - 2; t >= 0; t-- {
		next := backward[(t+1)*numPos : (t+2)*numPos]
		cur := backward[t*numPos : (t+1)*numPos]
		for s := range cur {
			sum := next[s] + emission(t+1, s)
			if s+1 < numPos {
				sum = addLogs(sum, next[s+1]+emission(t+1, s+1))
			}
			if s+2 < numPos && canSkip(s+2) {
				sum = addLogs(sum, next[s+2]+emission(t+1, s+2))
			}
			cur[s] = sum
		}
	}

	grad := make([]float64, steps*classes)
	occupancy := make([]float64, classes)
	for t := 0; t < steps; t++ {
		for i := range occupancy {
			occupancy[i] = math.Inf(-1)
		}
		for s, class := range expanded {
			idx := t*numPos + s
			occupancy[class] = addLogs(occupancy[class], forward[idx]+backward[idx])
		}
		for k, occ := range occupancy {
			grad[t*classes+k] = -math.Exp(occ - logLikelihood)
		}
	}

	return &alignment{LogLikelihood: logLikelihood, Grad: grad}
}

func negInfSlice(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.Inf(-1)
	}
	return res
}

// addLogs adds two numbers in the log domain.
func addLogs(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	} else if math.IsInf(b, -1) {
		return a
	}
	normalizer := math.Max(a, b)
	exp1 := math.Exp(a - normalizer)
	exp2 := math.Exp(b - normalizer)
	return math.Log(exp1+exp2) + normalizer
}
