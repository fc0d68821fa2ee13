// Package anyctc implements Connectionist Temporal
// Classification (CTC).
// For more information on CTC, see this paper:
// http://www.cs.toronto.edu/~graves/icml_2006.pdf.
//
// Network outputs are handled as time-major batches of
// log probabilities (see Emissions), where class
// alphabet.Blank is the blank symbol.
// Cost and Loss train against label sequences; BestPath,
// GreedyDecode, and BestLabels turn outputs back into
// labels.
package anyctc
