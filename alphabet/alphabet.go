// Package alphabet maps transcript symbols to the class
// indices used by a CTC network, and back.
//
// An *Alphabet is immutable once created.
// It is safe to share between goroutines, and any number
// of alphabets may coexist in one process.
package alphabet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var a Alphabet
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAlphabet)
}

// Blank is the class index of the CTC blank symbol in
// every Alphabet.
const Blank = 0

// IAM is the symbol set used for the IAM handwriting
// database.
// The leading underscore is the blank symbol.
const IAM = "_!#&\\()*+,-.'\"/0123456789:;?" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz "

// An Alphabet is a bijection between a fixed list of
// symbols and the integers [0, Len()).
// The symbol at index Blank is the blank symbol.
type Alphabet struct {
	symbols []rune
	indices map[rune]int
}

// New creates an Alphabet from a list of symbols.
// The first rune of symbols is the blank symbol.
func New(symbols string) (*Alphabet, error) {
	if symbols == "" {
		return nil, errors.New("new alphabet: no symbols")
	}
	res := &Alphabet{
		symbols: []rune(symbols),
		indices: map[rune]int{},
	}
	for i, r := range res.symbols {
		if _, ok := res.indices[r]; ok {
			return nil, fmt.Errorf("new alphabet: duplicate symbol %q", r)
		}
		res.indices[r] = i
	}
	return res, nil
}

// MustNew is like New, but it panics on error.
func MustNew(symbols string) *Alphabet {
	a, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// DeserializeAlphabet deserializes an Alphabet.
func DeserializeAlphabet(d []byte) (*Alphabet, error) {
	a, err := New(string(d))
	if err != nil {
		return nil, essentials.AddCtx("deserialize Alphabet", err)
	}
	return a, nil
}

// Len returns the number of classes, including the
// blank.
func (a *Alphabet) Len() int {
	return len(a.symbols)
}

// Symbols returns every symbol in index order.
func (a *Alphabet) Symbols() string {
	return string(a.symbols)
}

// BlankSymbol returns the symbol at index Blank.
func (a *Alphabet) BlankSymbol() rune {
	return a.symbols[Blank]
}

// Encode returns the index of a symbol.
func (a *Alphabet) Encode(r rune) (int, error) {
	idx, ok := a.indices[r]
	if !ok {
		return 0, &UnknownSymbolError{Symbol: r, Position: -1}
	}
	return idx, nil
}

// Decode returns the symbol for an index.
func (a *Alphabet) Decode(idx int) (rune, error) {
	if idx < 0 || idx >= len(a.symbols) {
		return 0, &IndexOutOfRangeError{Index: idx, Len: len(a.symbols)}
	}
	return a.symbols[idx], nil
}

// EncodeString turns a transcript into a label sequence.
//
// The blank symbol is not a transcript character, so it
// fails like any other unknown symbol.
// Characters are never silently dropped.
func (a *Alphabet) EncodeString(s string) ([]int, error) {
	res := make([]int, 0, len(s))
	var pos int
	for _, r := range s {
		idx, ok := a.indices[r]
		if !ok || idx == Blank {
			return nil, &UnknownSymbolError{
				Symbol:   r,
				Position: pos,
				Blank:    ok,
			}
		}
		res = append(res, idx)
		pos++
	}
	return res, nil
}

// DecodeLabels turns a label sequence into a transcript.
// Blanks are removed from the output.
func (a *Alphabet) DecodeLabels(labels []int) (string, error) {
	var b strings.Builder
	for _, idx := range labels {
		if idx == Blank {
			continue
		}
		r, err := a.Decode(idx)
		if err != nil {
			return "", err
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// SerializerType returns the unique ID used to serialize
// an Alphabet with the serializer package.
func (a *Alphabet) SerializerType() string {
	return "github.com/Wukong90/Fast-Writer-Adaptation/alphabet.Alphabet"
}

// Serialize serializes the Alphabet.
func (a *Alphabet) Serialize() ([]byte, error) {
	return []byte(string(a.symbols)), nil
}
