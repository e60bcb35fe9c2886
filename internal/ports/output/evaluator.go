package output

// Evaluator defines the secondary port for band-math evaluation. The
// core only decides which identifiers appear in an expression and how
// evaluated blocks are combined; the arithmetic itself is delegated here.
type Evaluator interface {
	// Evaluate computes one expression block elementwise over the named
	// vectors and returns a vector of length n. Vectors of length 1 are
	// broadcast; all others must have length n.
	Evaluate(block string, vars map[string][]float64, n int) ([]float64, error)
}
