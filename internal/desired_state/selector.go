package desired_state

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Variables available to cluster selector expressions
const (
	SelectorVarName        = "name"
	SelectorVarProduct     = "product"
	SelectorVarHypershift  = "hypershift"
	SelectorVarCCS         = "ccs"
	SelectorVarEnvironment = "environment"
)

// Selector is a compiled CEL cluster selector.
// A nil Selector matches every cluster.
type Selector struct {
	expression string
	program    cel.Program
}

func newSelectorEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable(SelectorVarName, cel.StringType),
		cel.Variable(SelectorVarProduct, cel.StringType),
		cel.Variable(SelectorVarHypershift, cel.BoolType),
		cel.Variable(SelectorVarCCS, cel.BoolType),
		cel.Variable(SelectorVarEnvironment, cel.StringType),
	)
}

// NewSelector compiles expr. An empty expression returns a nil Selector.
func NewSelector(expr string) (*Selector, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := newSelectorEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid cluster selector %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("cluster selector %q must evaluate to bool, got %s", expr, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program for cluster selector %q: %w", expr, err)
	}
	return &Selector{expression: expr, program: program}, nil
}

// String returns the source expression
func (s *Selector) String() string {
	if s == nil {
		return ""
	}
	return s.expression
}

// Matches evaluates the selector against a cluster
func (s *Selector) Matches(c Cluster) (bool, error) {
	if s == nil {
		return true, nil
	}
	vars := map[string]interface{}{
		SelectorVarName:        c.Name,
		SelectorVarProduct:     "",
		SelectorVarHypershift:  false,
		SelectorVarCCS:         false,
		SelectorVarEnvironment: c.Environment(),
	}
	if c.Spec != nil {
		vars[SelectorVarProduct] = c.Spec.Product
		vars[SelectorVarHypershift] = c.Spec.Hypershift
		vars[SelectorVarCCS] = c.Spec.CCS
	}

	out, _, err := s.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("cluster selector %q failed for cluster %s: %w", s.expression, c.Name, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("cluster selector %q returned %T for cluster %s", s.expression, out.Value(), c.Name)
	}
	return matched, nil
}
