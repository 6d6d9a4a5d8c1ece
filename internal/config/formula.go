package config

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// FormulaEnv is the variable set visible to balance formulas.
type FormulaEnv struct {
	Dist float64 `expr:"dist"`
}

// Formula is a compiled balance expression such as "10000 + 150 * dist ** 1.1".
type Formula struct {
	source  string
	program *vm.Program
}

// CompileFormula checks the expression against FormulaEnv and requires a numeric result.
func CompileFormula(source string) (*Formula, error) {
	program, err := expr.Compile(source, expr.Env(FormulaEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile formula %q: %w", source, err)
	}
	return &Formula{source: source, program: program}, nil
}

// Eval runs the formula for one distance.
func (f *Formula) Eval(dist float64) (float64, error) {
	out, err := expr.Run(f.program, FormulaEnv{Dist: dist})
	if err != nil {
		return 0, fmt.Errorf("run formula %q: %w", f.source, err)
	}
	value, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("formula %q returned %T", f.source, out)
	}
	return value, nil
}

// String returns the source text.
func (f *Formula) String() string { return f.source }
