package alphabet

import "fmt"

// An UnknownSymbolError is returned when a symbol cannot
// be encoded.
type UnknownSymbolError struct {
	Symbol rune

	// Position is the rune offset in the transcript, or -1
	// if a lone symbol was being encoded.
	Position int

	// Blank is set if the symbol is the blank symbol, which
	// may not appear in transcripts.
	Blank bool
}

func (u *UnknownSymbolError) Error() string {
	what := "unknown symbol"
	if u.Blank {
		what = "blank symbol in transcript"
	}
	if u.Position < 0 {
		return fmt.Sprintf("%s: %q", what, u.Symbol)
	}
	return fmt.Sprintf("%s: %q at position %d", what, u.Symbol, u.Position)
}

// An IndexOutOfRangeError is returned when decoding an
// index outside of [0, Len).
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (i *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", i.Index, i.Len)
}
