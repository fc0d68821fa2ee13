package anyctc

import (
	"math"
	"sort"

	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
	"github.com/unixpickle/essentials"
)

// BestPath finds the most likely class at every timestep
// of every sequence.
// The i-th path has length e.Lengths[i].
//
// Ties are broken in favor of the lower class index.
func BestPath(e *Emissions) [][]int {
	if err := e.validate(); err != nil {
		panic(err)
	}
	data := vectorFloats(e.LogProbs.Output())
	res := make([][]int, e.Batch)
	essentials.ConcurrentMap(0, e.Batch, func(i int) {
		path := make([]int, e.Lengths[i])
		for t := range path {
			start := (t*e.Batch + i) * e.Classes
			path[t] = argmax(data[start : start+e.Classes])
		}
		res[i] = path
	})
	return res
}

// Collapse turns a path into a label sequence.
//
// Runs of the same class (including blanks) are reduced to
// one entry, and then blanks are removed.
func Collapse(path []int) []int {
	res := []int{}
	for j, x := range path {
		if j > 0 && x == path[j-1] {
			continue
		}
		if x != alphabet.Blank {
			res = append(res, x)
		}
	}
	return res
}

// GreedyDecode produces a labeling for each sequence by
// collapsing its best path.
//
// This is much cheaper than BestLabels, but it only
// approximates the most likely labeling.
func GreedyDecode(e *Emissions) [][]int {
	paths := BestPath(e)
	for i, p := range paths {
		paths[i] = Collapse(p)
	}
	return paths
}

// Transcribe greedily decodes every sequence and converts
// the labels into text.
// The emissions must have one class per symbol of a.
func Transcribe(a *alphabet.Alphabet, e *Emissions) ([]string, error) {
	if e.Classes != a.Len() {
		return nil, &DimensionMismatchError{What: "class count", Expected: a.Len(),
			Actual: e.Classes}
	}
	labels := GreedyDecode(e)
	res := make([]string, len(labels))
	for i, l := range labels {
		s, err := a.DecodeLabels(l)
		if err != nil {
			return nil, essentials.AddCtx("transcribe", err)
		}
		res[i] = s
	}
	return res, nil
}

func argmax(v []float64) int {
	var res int
	for i, x := range v {
		if x > v[res] {
			res = i
		}
	}
	return res
}

// BestLabels produces the most likely labelings for the
// sequences using a prefix search.
//
// The blankThresh argument specifies how greedy the
// search should be with respect to blank symbols.
// Typically, a value close to -1e-3 is sufficient.
// As an example, a blankThresh of -0.0001 means that any
// blank with probability greater than e^-0.0001 is
// treated as if it had a 100% probability, splitting the
// search into independent pieces.
//
// A blankThresh of zero is not recommended unless the
// input sequences are fairly short.
func BestLabels(e *Emissions, blankThresh float64) [][]int {
	if err := e.validate(); err != nil {
		panic(err)
	}
	data := vectorFloats(e.LogProbs.Output())
	res := make([][]int, e.Batch)
	essentials.ConcurrentMap(0, e.Batch, func(i int) {
		seq := make([][]float64, e.Lengths[i])
		for t := range seq {
			start := (t*e.Batch + i) * e.Classes
			seq[t] = data[start : start+e.Classes]
		}
		res[i] = prefixSearch(seq, blankThresh)
	})
	return res
}

func prefixSearch(seq [][]float64, blankThresh float64) []int {
	var subSeqs [][][]float64
	var subSeq [][]float64
	for _, x := range seq {
		if x[alphabet.Blank] > blankThresh {
			if len(subSeq) > 0 {
				subSeqs = append(subSeqs, subSeq)
				subSeq = nil
			}
		} else {
			subSeq = append(subSeq, x)
		}
	}
	if len(subSeq) > 0 {
		subSeqs = append(subSeqs, subSeq)
	}

	res := []int{}
	for _, sub := range subSeqs {
		startProb := &labelProb{NoBlank: math.Inf(-1)}
		subRes, _ := subPrefixSearch(sub, nil, startProb)
		res = append(res, subRes...)
	}
	return res
}

func subPrefixSearch(seq [][]float64, prefix []int, prob *labelProb) ([]int, *labelProb) {
	if len(seq) == 0 {
		return prefix, prob
	}

	extensions := allExtensions(seq[0], prefix, prob)
	sort.Sort(extensionSorter(extensions))

	bestProb := zeroLabelProb()
	bestSeq := []int{}
	for _, ext := range extensions {
		if ext.Prob.Total() > bestProb.Total() {
			extended := append(append([]int{}, prefix...), ext.Addition...)
			res, finalProb := subPrefixSearch(seq[1:], extended, ext.Prob)
			if finalProb.Total() > bestProb.Total() {
				bestProb = finalProb
				bestSeq = res
			}
		}
	}

	return bestSeq, bestProb
}

// labelProb represents the probability of a labeling,
// split up into the probability of the labeling without a
// trailing blank and with a trailing blank.
type labelProb struct {
	Blank   float64
	NoBlank float64
}

func zeroLabelProb() *labelProb {
	return &labelProb{Blank: math.Inf(-1), NoBlank: math.Inf(-1)}
}

func (l *labelProb) Total() float64 {
	return addLogs(l.Blank, l.NoBlank)
}

// possibleExtension represents a possible way to extend a
// labeling (during prefix search).
type possibleExtension struct {
	// Tokens added to the labeling by this extension.
	Addition []int

	// Probability of the extended labeling.
	Prob *labelProb
}

func allExtensions(next []float64, label []int, prob *labelProb) []*possibleExtension {
	var res []*possibleExtension
	for i, compProb := range next {
		if i == alphabet.Blank {
			continue
		}
		p := zeroLabelProb()
		if len(label) > 0 && i == label[len(label)-1] {
			p.NoBlank = compProb + prob.Blank
		} else {
			p.NoBlank = compProb + prob.Total()
		}
		res = append(res, &possibleExtension{Addition: []int{i}, Prob: p})
	}
	noChangeProb := &labelProb{
		Blank:   prob.Total() + next[alphabet.Blank],
		NoBlank: math.Inf(-1),
	}
	if len(label) > 0 {
		last := label[len(label)-1]
		noChangeProb.NoBlank = prob.NoBlank + next[last]
	}
	return append(res, &possibleExtension{Prob: noChangeProb})
}

// An extensionSorter sorts possible labeling extensions
// from most to least probable.
type extensionSorter []*possibleExtension

func (e extensionSorter) Len() int {
	return len(e)
}

func (e extensionSorter) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

func (e extensionSorter) Less(i, j int) bool {
	return e[i].Prob.Total() > e[j].Prob.Total()
}
