package anyctc

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// vectorFloats returns the contents of a vector with a
// []float32 or []float64 numeric list type.
func vectorFloats(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return d
	case []float32:
		s := make([]float64, len(d))
		for i, x := range d {
			s[i] = float64(x)
		}
		return s
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}

// floatsVector creates a vector from a []float64 using the
// numeric type of c.
func floatsVector(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}
