package anysgd

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const (
	rmspropDefaultAlpha   = 0.99
	rmspropDefaultEpsilon = 1e-8
)

// RMSProp implements the RMSProp regularizer; see:
// http://www.cs.toronto.edu/~tijmen/csc321/slides/lecture_slides_lec6.pdf.
//
// The running average of squared gradients starts at
// zero, and the step for each component is
//
//     grad / (sqrt(avg) + Epsilon)
type RMSProp struct {
	// Alpha is the smoothing constant for the running
	// average.
	// If it is 0, a default of 0.99 is used.
	Alpha float64

	// Epsilon is used to prevent divisions by zero.
	// If it is 0, a default of 1e-8 is used.
	Epsilon float64

	squareAvg anydiff.Grad
}

// Transform transforms the gradient using RMSProp.
//
// This is not thread-safe.
func (r *RMSProp) Transform(g anydiff.Grad) anydiff.Grad {
	if r.squareAvg == nil {
		r.squareAvg = zeroGrad(g)
	}
	alpha := valueOrDefault(r.Alpha, rmspropDefaultAlpha)
	eps := valueOrDefault(r.Epsilon, rmspropDefaultEpsilon)
	for v, grad := range g {
		c := grad.Creator()
		avg := r.squareAvg[v]
		avg.Scale(c.MakeNumeric(alpha))
		sq := grad.Copy()
		sq.Mul(grad)
		sq.Scale(c.MakeNumeric(1 - alpha))
		avg.Add(sq)

		denom := avg.Copy()
		anyvec.Pow(denom, c.MakeNumeric(0.5))
		denom.AddScalar(c.MakeNumeric(eps))
		grad.Div(denom)
	}
	return g
}
