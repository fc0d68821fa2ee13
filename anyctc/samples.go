package anyctc

import (
	"sort"

	"github.com/Wukong90/Fast-Writer-Adaptation/anysgd"
	"github.com/unixpickle/anyvec"
)

// A Sample is a training sequence paired with its
// corresponding label.
type Sample struct {
	Input []anyvec.Vector
	Label []int

	// Transcript is the text that Label encodes.
	// It is only used for evaluation.
	Transcript string
}

// A SampleList is an anysgd.SampleList that produces
// CTC samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
	Creator() anyvec.Creator
}

// A SliceSampleList is a concrete SampleList with
// predetermined samples.
type SliceSampleList struct {
	C       anyvec.Creator
	Samples []*Sample
}

// Len returns the number of samples.
func (s *SliceSampleList) Len() int {
	return len(s.Samples)
}

// Swap swaps two samples.
func (s *SliceSampleList) Swap(i, j int) {
	s.Samples[i], s.Samples[j] = s.Samples[j], s.Samples[i]
}

// Slice copies a sub-slice of the list.
func (s *SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return &SliceSampleList{
		C:       s.C,
		Samples: append([]*Sample{}, s.Samples[i:j]...),
	}
}

// GetSample returns the sample at the index.
func (s *SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s.Samples[idx], nil
}

// Creator returns s.C.
func (s *SliceSampleList) Creator() anyvec.Creator {
	return s.C
}

// A SortableSampleList is a SampleList with an extra
// LenAt method for cheaply getting the length of an input
// sequence without loading it.
type SortableSampleList interface {
	SampleList

	LenAt(idx int) int
}

// A SortSampleList wraps a SampleList and ensures that
// samples will be sorted within reasonably small chunks
// after every shuffle.
// Mini-batches of similar lengths need less padding, so
// fewer timesteps are wasted in the network and in Cost.
type SortSampleList struct {
	SortableSampleList

	// BatchSize is the size of the chunks that should be
	// sorted.
	BatchSize int
}

// Slice produces a subset of the SortSampleList.
func (s *SortSampleList) Slice(i, j int) anysgd.SampleList {
	sliced := s.SortableSampleList.Slice(i, j)
	return &SortSampleList{
		SortableSampleList: sliced.(SortableSampleList),
		BatchSize:          s.BatchSize,
	}
}

// PostShuffle sorts chunks of sequences by length.
func (s *SortSampleList) PostShuffle() {
	if s.BatchSize <= 0 {
		return
	}
	for i := 0; i < s.Len(); i += s.BatchSize {
		bs := s.BatchSize
		if bs > s.Len()-i {
			bs = s.Len() - i
		}
		sort.Sort(&sorter{S: s.SortableSampleList, Start: i, End: i + bs})
	}
}

type sorter struct {
	S     SortableSampleList
	Start int
	End   int
}

func (s *sorter) Len() int {
	return s.End - s.Start
}

func (s *sorter) Swap(i, j int) {
	s.S.Swap(i+s.Start, j+s.Start)
}

func (s *sorter) Less(i, j int) bool {
	return s.S.LenAt(i+s.Start) < s.S.LenAt(j+s.Start)
}
