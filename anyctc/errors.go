package anyctc

import "fmt"

// A DimensionMismatchError indicates that the parts of a
// batch do not agree on their shapes.
type DimensionMismatchError struct {
	What     string
	Expected int
	Actual   int
}

func (d *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: %s: expected %d but got %d",
		d.What, d.Expected, d.Actual)
}

// An InfeasibleAlignmentError indicates that a label
// cannot be aligned to its input, because the input has
// fewer timesteps than the shortest CTC path for the label.
//
// The shortest path has one timestep per label, plus one
// blank between each pair of equal neighbors.
type InfeasibleAlignmentError struct {
	Example  int
	Steps    int
	LabelLen int
	Required int
}

func (i *InfeasibleAlignmentError) Error() string {
	return fmt.Sprintf("example %d: label of length %d needs %d timesteps but has %d",
		i.Example, i.LabelLen, i.Required, i.Steps)
}

// An InvalidLabelError indicates that a label sequence
// contains the blank or an index which is not a class.
type InvalidLabelError struct {
	Example  int
	Position int
	Label    int
	Classes  int
}

func (i *InvalidLabelError) Error() string {
	return fmt.Sprintf("example %d: label %d at position %d not in [1, %d)",
		i.Example, i.Label, i.Position, i.Classes)
}

// A NonFiniteLossError is returned when a feasible label
// still has zero likelihood, e.g. because the inputs put
// no probability on a required class.
type NonFiniteLossError struct {
	Example int
	Value   float64
}

func (n *NonFiniteLossError) Error() string {
	return fmt.Sprintf("example %d: non-finite loss %f", n.Example, n.Value)
}
