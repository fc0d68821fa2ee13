package anysgd

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

type testSample struct {
	X2 float64
	Y2 float64
	XY float64
	X  float64
	Y  float64
}

func (t *testSample) Apply(x, y anydiff.Res) anydiff.Res {
	mk := x.Output().Creator().MakeNumeric
	a := anydiff.Scale(anydiff.Mul(x, x), mk(t.X2))
	b := anydiff.Scale(anydiff.Mul(y, y), mk(t.Y2))
	c := anydiff.Scale(anydiff.Mul(x, y), mk(t.XY))
	d := anydiff.Scale(x, mk(t.X))
	e := anydiff.Scale(y, mk(t.Y))
	return anydiff.Add(
		anydiff.Add(a, b),
		anydiff.Add(anydiff.Add(c, d), e),
	)
}

type testSampleList []*testSample

func newTestSampleList() testSampleList {
	// Together, these polynomials add up to 3x^2+3xy-2x+y^2.
	// The global minimum is (x = 4/3, y = -2).
	return testSampleList{
		{X2: 2, X: -1, XY: 0, Y2: 0.5},
		{X2: -1, X: 0, XY: 2, Y2: 0.5},
		{X2: 2, X: -1, XY: 1, Y2: 0},
	}
}

func (t testSampleList) Len() int {
	return len(t)
}

func (t testSampleList) Swap(i, j int) {
	t[i], t[j] = t[j], t[i]
}

func (t testSampleList) Slice(i, j int) SampleList {
	return append(testSampleList{}, t[i:j]...)
}

func (t testSampleList) Hash(i int) []byte {
	s := t[i]
	h := sha256.Sum256([]byte(fmt.Sprint(s.X2, s.Y2, s.XY, s.X, s.Y)))
	return h[:]
}

type testGradienter struct {
	X *anydiff.Var
	Y *anydiff.Var

	Fail bool
}

func newTestGradienter(c anyvec.Creator) *testGradienter {
	return &testGradienter{
		X: anydiff.NewVar(c.MakeVector(1)),
		Y: anydiff.NewVar(c.MakeVector(1)),
	}
}

func (t *testGradienter) Fetch(s SampleList) (Batch, error) {
	return s, nil
}

func (t *testGradienter) Gradient(b Batch) (anydiff.Grad, error) {
	if t.Fail {
		return nil, errors.New("bad batch")
	}
	var cost anydiff.Res
	for _, x := range b.(testSampleList) {
		res := x.Apply(t.X, t.Y)
		if cost == nil {
			cost = res
		} else {
			cost = anydiff.Add(cost, res)
		}
	}
	grad := anydiff.NewGrad(t.X, t.Y)
	c := t.X.Vector.Creator()
	cost.Propagate(c.MakeVectorData(c.MakeNumericList([]float64{1})), grad)
	return grad, nil
}

func (t *testGradienter) current() (x, y float64) {
	return t.X.Vector.Data().([]float64)[0], t.Y.Vector.Data().([]float64)[0]
}

func TestSGD(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:    g,
		Gradienter: g,
		Samples:    newTestSampleList(),
		Rater:      ConstRater(0.05),
	}
	for i := 0; i < 5000; i++ {
		if err := s.RunEpoch(nil); err != nil {
			t.Fatal(err)
		}
	}
	x, y := g.current()
	if math.Abs(x-4.0/3) > 1e-2 || math.Abs(y+2) > 1e-2 {
		t.Errorf("bad solution: %f, %f", x, y)
	}
	if s.NumProcessed != 5000*3 {
		t.Errorf("expected %d samples processed but got %d", 5000*3, s.NumProcessed)
	}
}

func TestRMSProp(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:     g,
		Gradienter:  g,
		Transformer: &RMSProp{},
		Samples:     newTestSampleList(),
		Rater:       ConstRater(0.001),
	}
	for i := 0; i < 20000; i++ {
		if err := s.RunEpoch(nil); err != nil {
			t.Fatal(err)
		}
	}
	x, y := g.current()
	if math.Abs(x-4.0/3) > 1e-2 || math.Abs(y+2) > 1e-2 {
		t.Errorf("bad solution: %f, %f", x, y)
	}
}

func TestAdam(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:     g,
		Gradienter:  g,
		Transformer: &Adam{},
		Samples:     newTestSampleList(),
		Rater:       ConstRater(0.001),
		BatchSize:   1,
	}
	for i := 0; i < 10000; i++ {
		if err := s.RunEpoch(nil); err != nil {
			t.Fatal(err)
		}
	}
	x, y := g.current()
	if math.Abs(x-4.0/3) > 1e-2 || math.Abs(y+2) > 1e-2 {
		t.Errorf("bad solution: %f, %f", x, y)
	}
}

func TestMomentum(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:     g,
		Gradienter:  g,
		Transformer: &Momentum{Momentum: 0.9},
		Samples:     newTestSampleList(),
		Rater:       ConstRater(0.005),
	}
	for i := 0; i < 5000; i++ {
		if err := s.RunEpoch(nil); err != nil {
			t.Fatal(err)
		}
	}
	x, y := g.current()
	if math.Abs(x-4.0/3) > 1e-2 || math.Abs(y+2) > 1e-2 {
		t.Errorf("bad solution: %f, %f", x, y)
	}
}

func TestRunEpochBatches(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	var sizes []int
	s := &SGD{
		Fetcher:    g,
		Gradienter: g,
		Samples:    newTestSampleList(),
		Rater:      ConstRater(0.001),
		BatchSize:  2,
		StatusFunc: func(b Batch) {
			sizes = append(sizes, b.(testSampleList).Len())
		},
	}
	if err := s.RunEpoch(nil); err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 2 || sizes[0] != 2 || sizes[1] != 1 {
		t.Errorf("unexpected batch sizes: %v", sizes)
	}
}

func TestRunEpochErrors(t *testing.T) {
	g := newTestGradienter(anyvec64.DefaultCreator{})
	s := &SGD{
		Fetcher:    g,
		Gradienter: g,
		Samples:    newTestSampleList(),
		Rater:      ConstRater(0.001),
		BatchSize:  1,
	}

	done := make(chan struct{})
	close(done)
	if err := s.RunEpoch(done); err != ErrInterrupted {
		t.Errorf("expected ErrInterrupted but got %v", err)
	}

	g.Fail = true
	if err := s.RunEpoch(nil); err == nil {
		t.Error("expected gradient error")
	}
	if s.NumProcessed != 0 {
		t.Errorf("no steps should have been taken, but %d samples were used", s.NumProcessed)
	}

	s.Samples = testSampleList{}
	if err := s.RunEpoch(nil); err == nil {
		t.Error("expected error for empty sample list")
	}
}

func TestHashSplit(t *testing.T) {
	var list testSampleList
	for i := 0; i < 1000; i++ {
		list = append(list, &testSample{X: float64(i)})
	}
	left, right := HashSplit(list, 0.25)
	if left.Len()+right.Len() != 1000 {
		t.Fatalf("lost samples: %d + %d", left.Len(), right.Len())
	}
	if left.Len() < 180 || left.Len() > 320 {
		t.Errorf("unexpected left size: %d", left.Len())
	}

	seen := map[float64]bool{}
	for _, s := range left.(testSampleList) {
		seen[s.X] = true
	}
	shuffled := append(testSampleList{}, list...)
	Shuffle(shuffled)
	left1, _ := HashSplit(shuffled, 0.25)
	if left1.Len() != left.Len() {
		t.Fatalf("split is not deterministic: %d vs %d", left1.Len(), left.Len())
	}
	for _, s := range left1.(testSampleList) {
		if !seen[s.X] {
			t.Fatalf("sample %f moved partitions", s.X)
		}
	}

	all, none := HashSplit(list, 1)
	if all.Len() != 1000 || none.Len() != 0 {
		t.Error("ratio 1 should keep everything on the left")
	}
}
