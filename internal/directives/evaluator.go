package directives

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ConditionEvaluator compiles and evaluates directive conditions.
// Programs are cached per condition string.
type ConditionEvaluator struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

// NewConditionEvaluator creates a new condition evaluator.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{programs: make(map[string]*vm.Program)}
}

// Evaluate evaluates a condition string against the provided turn context.
// Empty conditions and the literal "true" always match.
func (e *ConditionEvaluator) Evaluate(condition string, ctx *TurnContext) (bool, error) {
	if condition == "" || condition == "true" {
		return true, nil
	}

	e.mu.Lock()
	program, exists := e.programs[condition]
	if !exists {
		var err error
		program, err = expr.Compile(condition, expr.Env(ctx))
		if err != nil {
			e.mu.Unlock()
			return false, fmt.Errorf("directives: failed to compile condition %q: %w", condition, err)
		}
		e.programs[condition] = program
	}
	e.mu.Unlock()

	output, err := expr.Run(program, ctx)
	if err != nil {
		return false, fmt.Errorf("directives: failed to run condition %q: %w", condition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("directives: condition %q did not return a boolean", condition)
	}
	return result, nil
}
