// Package hwnet implements a recurrent network that maps
// columns of a text line image to CTC class scores.
package hwnet

import (
	"github.com/Wukong90/Fast-Writer-Adaptation/alphabet"
	"github.com/Wukong90/Fast-Writer-Adaptation/anyctc"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// A Model transcribes sequences of feature vectors.
//
// Every timestep goes through Encoder, then the sequence
// goes through a bidirectional RNN, and Output maps each
// timestep of the result to one score per symbol of
// Alphabet.
type Model struct {
	Alphabet *alphabet.Alphabet
	Encoder  anynet.Net
	RNN      *anyrnn.Bidir
	Output   anynet.Net
}

// New creates a randomly initialized Model for inputs
// with inSize components per timestep.
func New(c anyvec.Creator, a *alphabet.Alphabet, inSize, hidden,
	rnnHidden int) *Model {
	return &Model{
		Alphabet: a,
		Encoder: anynet.Net{
			anynet.NewFC(c, inSize, hidden),
			anynet.Tanh,
		},
		RNN: &anyrnn.Bidir{
			Forward:  anyrnn.NewLSTM(c, hidden, rnnHidden),
			Backward: anyrnn.NewLSTM(c, hidden, rnnHidden),
			Mixer:    anynet.ConcatMixer{},
		},
		Output: anynet.Net{
			anynet.NewFC(c, rnnHidden*2, a.Len()),
		},
	}
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var res Model
	err := serializer.DeserializeAny(d, &res.Alphabet, &res.Encoder, &res.RNN, &res.Output)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	return &res, nil
}

// Load reads a Model from a file.
func Load(path string) (*Model, error) {
	var res *Model
	if err := serializer.LoadAny(path, &res); err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	return res, nil
}

// Save writes the Model to a file.
func (m *Model) Save(path string) error {
	if err := serializer.SaveAny(path, m); err != nil {
		return essentials.AddCtx("save model", err)
	}
	return nil
}

// Classes returns the number of output classes.
func (m *Model) Classes() int {
	return m.Alphabet.Len()
}

// Apply computes unnormalized class scores for every
// timestep of the input.
func (m *Model) Apply(in anyseq.Seq) anyseq.Seq {
	encoded := anyseq.Map(in, m.Encoder.Apply)
	return anyseq.Map(m.RNN.Apply(encoded), m.Output.Apply)
}

// Emissions applies the Model and normalizes its output.
// The batch size must match the input.
func (m *Model) Emissions(in anyseq.Seq, batch int) *anyctc.Emissions {
	return anyctc.FromLogits(m.Apply(in), batch, m.Classes())
}

// Transcribe greedily decodes the Model's output for a
// batch of sequences.
func (m *Model) Transcribe(in anyseq.Seq, batch int) ([]string, error) {
	return anyctc.Transcribe(m.Alphabet, m.Emissions(in, batch))
}

// Parameters returns the learnable parameters.
func (m *Model) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	res = append(res, m.Encoder.Parameters()...)
	res = append(res, m.RNN.Parameters()...)
	res = append(res, m.Output.Parameters()...)
	return res
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/Wukong90/Fast-Writer-Adaptation/hwnet.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeAny(m.Alphabet, m.Encoder, m.RNN, m.Output)
}
