package hwdata

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Samples is an anyctc.SampleList of text lines.
//
// Labels are encoded when the list is created, but images
// are only read from disk when a sample is requested.
type Samples struct {
	Root   string
	Height int

	C      anyvec.Creator
	Lines  []*Line
	Labels [][]int
}

// NewSamples encodes the transcripts of the lines.
// It fails if any transcript has a symbol outside of the
// alphabet.
func NewSamples(c anyvec.Creator, root string, a *alphabet.Alphabet, height int,
	lines []*Line) (*Samples, error) {
	res := &Samples{Root: root, Height: height, C: c, Lines: lines}
	for _, l := range lines {
		label, err := a.EncodeString(l.Transcript)
		if err != nil {
			return nil, essentials.AddCtx("encode line "+l.ID, err)
		}
		res.Labels = append(res.Labels, label)
	}
	return res, nil
}

// Open reads root/lines.txt and creates a sample list of
// every correctly segmented line.
func Open(c anyvec.Creator, root string, a *alphabet.Alphabet, height int) (*Samples, error) {
	f, err := os.Open(filepath.Join(root, "lines.txt"))
	if err != nil {
		return nil, essentials.AddCtx("open samples", err)
	}
	defer f.Close()
	lines, err := ParseLines(f)
	if err != nil {
		return nil, essentials.AddCtx("open samples", err)
	}
	var ok []*Line
	for _, l := range lines {
		if l.OK {
			ok = append(ok, l)
		}
	}
	return NewSamples(c, root, a, height, ok)
}

// Len returns the number of samples.
func (s *Samples) Len() int {
	return len(s.Lines)
}

// Swap swaps two samples.
func (s *Samples) Swap(i, j int) {
	s.Lines[i], s.Lines[j] = s.Lines[j], s.Lines[i]
	s.Labels[i], s.Labels[j] = s.Labels[j], s.Labels[i]
}

// Slice copies a sub-slice of the list.
func (s *Samples) Slice(i, j int) anysgd.SampleList {
	return &Samples{
		Root:   s.Root,
		Height: s.Height,
		C:      s.C,
		Lines:  append([]*Line{}, s.Lines[i:j]...),
		Labels: append([][]int{}, s.Labels[i:j]...),
	}
}

// Creator returns s.C.
func (s *Samples) Creator() anyvec.Creator {
	return s.C
}

// GetSample reads the image for a sample.
func (s *Samples) GetSample(idx int) (*anyctc.Sample, error) {
	line := s.Lines[idx]
	cols, err := LoadColumns(s.C, line.ImagePath(s.Root), s.Height)
	if err != nil {
		return nil, essentials.AddCtx(fmt.Sprintf("sample %s", line.ID), err)
	}
	return &anyctc.Sample{
		Input:      cols,
		Label:      s.Labels[idx],
		Transcript: line.Transcript,
	}, nil
}

// LenAt estimates the number of columns in a sample from
// its bounding box.
func (s *Samples) LenAt(idx int) int {
	return s.Lines[idx].ScaledWidth(s.Height)
}

// Hash hashes the line ID.
func (s *Samples) Hash(idx int) []byte {
	sum := md5.Sum([]byte(s.Lines[idx].ID))
	return sum[:]
}
