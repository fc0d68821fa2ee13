// Package errrate measures transcription quality with
// character and word error rates.
//
// Both rates are Levenshtein distances between a reference
// and a hypothesis, divided by the reference length.
// Characters are Unicode code points, and words are
// whitespace-separated tokens.
package errrate

import (
	"fmt"
	"strings"

	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/stat"
)

// A Count is an error count together with the length of
// the reference it was measured against.
type Count struct {
	Errors int
	RefLen int
}

// Add returns the sum of two counts.
func (c Count) Add(other Count) Count {
	return Count{Errors: c.Errors + other.Errors, RefLen: c.RefLen + other.RefLen}
}

// Rate returns Errors/RefLen.
// The second return value is false if the reference is
// empty, in which case the rate is undefined.
func (c Count) Rate() (float64, bool) {
	if c.RefLen == 0 {
		return 0, false
	}
	return float64(c.Errors) / float64(c.RefLen), true
}

// String formats the count as a rate.
func (c Count) String() string {
	if r, ok := c.Rate(); ok {
		return fmt.Sprintf("%.4f (%d/%d)", r, c.Errors, c.RefLen)
	}
	return fmt.Sprintf("undefined (%d/0)", c.Errors)
}

// CER counts the character edits needed to turn ref into
// hyp.
func CER(ref, hyp string) Count {
	r, h := []rune(ref), []rune(hyp)
	return Count{Errors: editDistance(r, h), RefLen: len(r)}
}

// WER counts the word edits needed to turn ref into hyp.
func WER(ref, hyp string) Count {
	r, h := strings.Fields(ref), strings.Fields(hyp)
	return Count{Errors: editDistance(r, h), RefLen: len(r)}
}

// A Result holds both error counts for one transcription.
type Result struct {
	Chars Count
	Words Count
}

// Score computes a Result for every reference/hypothesis
// pair.
// The pairs are scored in parallel.
func Score(refs, hyps []string) []Result {
	if len(refs) != len(hyps) {
		panic(fmt.Sprintf("reference count %d does not match hypothesis count %d",
			len(refs), len(hyps)))
	}
	res := make([]Result, len(refs))
	essentials.ConcurrentMap(0, len(refs), func(i int) {
		res[i] = Result{Chars: CER(refs[i], hyps[i]), Words: WER(refs[i], hyps[i])}
	})
	return res
}

// A Tally accumulates error counts over a dataset.
//
// Rates computed from a Tally are micro-averaged: total
// errors over total reference length.
type Tally struct {
	Chars Count
	Words Count
}

// Sum tallies a list of results.
func Sum(results []Result) Tally {
	var t Tally
	for _, r := range results {
		t.Add(r)
	}
	return t
}

// Add adds one result to the tally.
func (t *Tally) Add(r Result) {
	t.Chars = t.Chars.Add(r.Chars)
	t.Words = t.Words.Add(r.Words)
}

// Merge adds another tally to t.
func (t *Tally) Merge(other Tally) {
	t.Chars = t.Chars.Add(other.Chars)
	t.Words = t.Words.Add(other.Words)
}

// CER returns the character error rate of the tally.
func (t Tally) CER() (float64, bool) {
	return t.Chars.Rate()
}

// WER returns the word error rate of the tally.
func (t Tally) WER() (float64, bool) {
	return t.Words.Rate()
}

// MacroRate averages the per-sample rates, giving every
// sample equal weight regardless of its length.
// Samples with empty references are skipped.
// The second return value is false if no sample has a
// defined rate.
func MacroRate(counts []Count) (float64, bool) {
	var rates []float64
	for _, c := range counts {
		if r, ok := c.Rate(); ok {
			rates = append(rates, r)
		}
	}
	if len(rates) == 0 {
		return 0, false
	}
	return stat.Mean(rates, nil), true
}

// editDistance computes the Levenshtein distance between
// two token sequences, with unit cost for insertions,
// deletions, and substitutions.
func editDistance[T comparable](a, b []T) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min(row[j]+1, row[j-1]+1, diag+cost)
			diag = row[j]
			row[j] = next
		}
	}
	return row[len(b)]
}
