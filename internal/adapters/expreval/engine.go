// Package expreval evaluates band-math expressions with expr-lang.
package expreval

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// Engine implements output.Evaluator. Programs are compiled once per
// distinct block text and cached for the lifetime of the engine.
type Engine struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

// NewEngine creates a new expression engine.
func NewEngine() *Engine {
	return &Engine{
		programs: make(map[string]*vm.Program),
	}
}

// Evaluate computes one expression block elementwise over the named
// vectors. Vectors of length 1 are broadcast to n; all others must have
// length n.
func (e *Engine) Evaluate(block string, vars map[string][]float64, n int) ([]float64, error) {
	for name, vec := range vars {
		if len(vec) != 1 && len(vec) != n {
			return nil, fmt.Errorf("%w: variable %q has length %d, want 1 or %d", domain.ErrInvalidInput, name, len(vec), n)
		}
	}

	program, err := e.compile(block)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling %q: %v", domain.ErrInvalidInput, block, err)
	}

	env := make(map[string]any, len(vars))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		for name, vec := range vars {
			if len(vec) == 1 {
				env[name] = vec[0]
			} else {
				env[name] = vec[i]
			}
		}

		res, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("%w: evaluating %q: %v", domain.ErrInvalidInput, block, err)
		}

		v, err := toFloat(res)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidInput, block, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *Engine) compile(block string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.programs[block]; ok {
		return p, nil
	}

	p, err := expr.Compile(block, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.programs[block] = p
	return p, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expression result %T is not numeric", v)
	}
}
