package anysgd

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/serializer"
)

var errVarsGradMismatch = errors.New("variable list does not match gradients")

// A StateMarshaler is a Transformer whose running
// statistics can be saved and restored, so that training
// can resume where it left off.
//
// The state is stored in the order of vars, which must be
// the same list when the state is restored.
type StateMarshaler interface {
	Transformer
	MarshalState(vars []*anydiff.Var) ([]byte, error)
	UnmarshalState(vars []*anydiff.Var, data []byte) error
}

// MarshalState saves the running average of squares.
func (r *RMSProp) MarshalState(vars []*anydiff.Var) ([]byte, error) {
	return marshalGradients(vars, nil, r.squareAvg)
}

// UnmarshalState restores the running average of squares.
func (r *RMSProp) UnmarshalState(vars []*anydiff.Var, data []byte) error {
	grads, err := unmarshalGradients(vars, data, nil, 1)
	if err != nil {
		return err
	}
	r.squareAvg = grads[0]
	return nil
}

// MarshalState saves the rolling gradient.
func (m *Momentum) MarshalState(vars []*anydiff.Var) ([]byte, error) {
	return marshalGradients(vars, nil, m.rolling)
}

// UnmarshalState restores the rolling gradient.
func (m *Momentum) UnmarshalState(vars []*anydiff.Var, data []byte) error {
	grads, err := unmarshalGradients(vars, data, nil, 1)
	if err != nil {
		return err
	}
	m.rolling = grads[0]
	return nil
}

// MarshalState saves the step count and both moments.
func (a *Adam) MarshalState(vars []*anydiff.Var) ([]byte, error) {
	iter := serializer.Float64(a.iteration)
	return marshalGradients(vars, []interface{}{iter}, a.firstMoment, a.secondMoment)
}

// UnmarshalState restores the step count and both
// moments.
func (a *Adam) UnmarshalState(vars []*anydiff.Var, data []byte) error {
	var iter serializer.Float64
	grads, err := unmarshalGradients(vars, data, []interface{}{&iter}, 2)
	if err != nil {
		return err
	}
	a.iteration = float64(iter)
	a.firstMoment, a.secondMoment = grads[0], grads[1]
	if a.firstMoment == nil {
		a.iteration = 0
	}
	return nil
}

// marshalGradients serializes the header objects followed
// by every vector of every gradient, in the order of vars.
//
// If the first gradient is nil, the transformer has not
// taken a step yet and an empty state is produced.
func marshalGradients(vars []*anydiff.Var, header []interface{},
	grads ...anydiff.Grad) ([]byte, error) {
	if grads[0] == nil {
		return []byte{}, nil
	}
	objs := append([]interface{}{}, header...)
	for _, grad := range grads {
		if len(vars) != len(grad) {
			return nil, errVarsGradMismatch
		}
		for _, v := range vars {
			vec, ok := grad[v]
			if !ok {
				return nil, errVarsGradMismatch
			}
			objs = append(objs, &anyvecsave.S{Vector: vec})
		}
	}
	return serializer.SerializeAny(objs...)
}

// unmarshalGradients reverses marshalGradients.
//
// An empty state yields numGrads nil gradients and leaves
// the header untouched.
func unmarshalGradients(vars []*anydiff.Var, data []byte, header []interface{},
	numGrads int) ([]anydiff.Grad, error) {
	res := make([]anydiff.Grad, numGrads)
	if len(data) == 0 {
		return res, nil
	}
	dests := append([]interface{}{}, header...)
	for i := 0; i < numGrads*len(vars); i++ {
		dests = append(dests, new(*anyvecsave.S))
	}
	if err := serializer.DeserializeAny(data, dests...); err != nil {
		return nil, err
	}
	vecDests := dests[len(header):]
	for i := range res {
		res[i] = anydiff.Grad{}
		for j, v := range vars {
			vec := (*vecDests[i*len(vars)+j].(**anyvecsave.S)).Vector
			if vec.Len() != v.Vector.Len() {
				return nil, errors.New("bad vector length")
			} else if vec.Creator() != v.Vector.Creator() {
				return nil, errors.New("bad vector creator")
			}
			res[i][v] = vec
		}
	}
	return res, nil
}
