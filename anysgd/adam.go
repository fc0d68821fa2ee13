package anysgd

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

const (
	adamDefaultDecayRate1 = 0.9
	adamDefaultDecayRate2 = 0.999
	adamDefaultDamping    = 1e-8
)

// Adam implements the adaptive moments SGD technique
// described in https://arxiv.org/pdf/1412.6980.pdf.
//
// Both moment estimates start at zero and are corrected
// for that bias at every step.
type Adam struct {
	// These are decay rates for the first and second
	// moments of the gradient.
	// If these are 0, defaults from the paper are used.
	DecayRate1, DecayRate2 float64

	// Damping is used to prevent divisions by zero.
	// If it is 0, a default of 1e-8 is used.
	Damping float64

	firstMoment  anydiff.Grad
	secondMoment anydiff.Grad
	iteration    float64
}

// Transform transforms the gradient using Adam.
//
// This is not thread-safe.
func (a *Adam) Transform(g anydiff.Grad) anydiff.Grad {
	if a.firstMoment == nil {
		a.firstMoment = zeroGrad(g)
		a.secondMoment = zeroGrad(g)
	}
	rate1 := valueOrDefault(a.DecayRate1, adamDefaultDecayRate1)
	rate2 := valueOrDefault(a.DecayRate2, adamDefaultDecayRate2)
	damping := valueOrDefault(a.Damping, adamDefaultDamping)

	a.iteration++
	scale := math.Sqrt(1-math.Pow(rate2, a.iteration)) / (1 - math.Pow(rate1, a.iteration))

	for v, grad := range g {
		c := grad.Creator()

		first := a.firstMoment[v]
		first.Scale(c.MakeNumeric(rate1))
		scaled := grad.Copy()
		scaled.Scale(c.MakeNumeric(1 - rate1))
		first.Add(scaled)

		second := a.secondMoment[v]
		second.Scale(c.MakeNumeric(rate2))
		sq := grad.Copy()
		sq.Mul(grad)
		sq.Scale(c.MakeNumeric(1 - rate2))
		second.Add(sq)

		denom := second.Copy()
		anyvec.Pow(denom, c.MakeNumeric(0.5))
		denom.AddScalar(c.MakeNumeric(damping))
		grad.Set(first)
		grad.Scale(c.MakeNumeric(scale))
		grad.Div(denom)
	}
	return g
}
