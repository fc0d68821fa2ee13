package errrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCER(t *testing.T) {
	assert.Equal(t, Count{Errors: 0, RefLen: 0}, CER("", ""))
	assert.Equal(t, Count{Errors: 0, RefLen: 3}, CER("cat", "cat"))
	assert.Equal(t, Count{Errors: 1, RefLen: 3}, CER("cat", "cut"))
	assert.Equal(t, Count{Errors: 3, RefLen: 3}, CER("cat", ""))
	assert.Equal(t, Count{Errors: 2, RefLen: 0}, CER("", "ab"))
	assert.Equal(t, Count{Errors: 3, RefLen: 6}, CER("kitten", "sitting"))

	// Characters are code points, not bytes.
	assert.Equal(t, Count{Errors: 1, RefLen: 4}, CER("café", "cafe"))
}

func TestWER(t *testing.T) {
	assert.Equal(t, Count{Errors: 0, RefLen: 3}, WER("the cat sat", "the cat sat"))
	assert.Equal(t, Count{Errors: 2, RefLen: 2}, WER("the cat", "a dog"))
	assert.Equal(t, Count{Errors: 0, RefLen: 2}, WER("  the\tcat ", "the cat"))
	assert.Equal(t, Count{Errors: 1, RefLen: 3}, WER("the cat sat", "the sat"))
	assert.Equal(t, Count{Errors: 2, RefLen: 2}, WER("the cat", ""))
	assert.Equal(t, Count{}, WER("", "   "))
}

func TestEditDistanceSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"abc", "yabd"},
		{"handwriting", "handwritten"},
		{"", "xyz"},
	}
	for _, p := range pairs {
		assert.Equal(t, editDistance([]rune(p[0]), []rune(p[1])),
			editDistance([]rune(p[1]), []rune(p[0])), "pair %q", p)
	}
}

func TestCountRate(t *testing.T) {
	r, ok := Count{Errors: 1, RefLen: 4}.Rate()
	require.True(t, ok)
	assert.InDelta(t, 0.25, r, 1e-12)

	_, ok = Count{Errors: 2}.Rate()
	assert.False(t, ok)
}

func TestAggregation(t *testing.T) {
	refs := []string{"a", "the quick brown fox", ""}
	hyps := []string{"b", "the quick brown fix", "x"}
	results := Score(refs, hyps)
	require.Len(t, results, 3)

	tally := Sum(results)
	assert.Equal(t, Count{Errors: 3, RefLen: 20}, tally.Chars)
	assert.Equal(t, Count{Errors: 3, RefLen: 5}, tally.Words)

	cer, ok := tally.CER()
	require.True(t, ok)
	assert.InDelta(t, 3.0/20.0, cer, 1e-12)

	// Macro averaging weighs the one-letter sample as much as
	// the long one, and skips the empty reference.
	chars := make([]Count, len(results))
	for i, r := range results {
		chars[i] = r.Chars
	}
	macro, ok := MacroRate(chars)
	require.True(t, ok)
	assert.InDelta(t, (1.0+1.0/19.0)/2, macro, 1e-12)
	assert.NotEqual(t, cer, macro)

	var merged Tally
	merged.Merge(Sum(results[:1]))
	merged.Merge(Sum(results[1:]))
	assert.Equal(t, tally, merged)
}

func TestMacroRateEmpty(t *testing.T) {
	_, ok := MacroRate([]Count{{Errors: 1}})
	assert.False(t, ok)
	_, ok = MacroRate(nil)
	assert.False(t, ok)
}

func TestScoreMismatch(t *testing.T) {
	assert.Panics(t, func() {
		Score([]string{"a"}, nil)
	})
}
