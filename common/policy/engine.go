// Package policy applies guardrail rules to proposed patch batches
// before they reach validation. Rules are CEL expressions over a
// summary of the batch and its base recipe; any rule evaluating to
// false rejects the batch outright.
package policy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/platewise/mealplanner/common/patch"
)

// ViolationError reports the first rule a batch tripped.
type ViolationError struct {
	Rule string
	Expr string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("policy rule %q rejected the patch", e.Rule)
}

// AsViolation unwraps err into a *ViolationError if one is in the chain.
func AsViolation(err error) (*ViolationError, bool) {
	var verr *ViolationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Engine evaluates guardrail rules with compiled-program caching.
type Engine struct {
	rules []Rule
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEngine creates an engine over the given rules. Rules compile
// lazily on first use and stay cached.
func NewEngine(rules []Rule) *Engine {
	return &Engine{
		rules: rules,
		cache: make(map[string]cel.Program),
	}
}

// Check evaluates every rule against the batch summary. It returns a
// *ViolationError for the first rule that evaluates to false, or a
// plain error when a rule fails to compile or evaluate.
func (e *Engine) Check(base patch.Base, ops []patch.Op) error {
	if len(e.rules) == 0 {
		return nil
	}

	vars := map[string]interface{}{
		"ops":  summarizeOps(ops),
		"base": summarizeBase(base),
	}

	for _, rule := range e.rules {
		ok, err := e.evaluate(rule.Expr, vars)
		if err != nil {
			return fmt.Errorf("policy rule %q: %w", rule.Name, err)
		}
		if !ok {
			return &ViolationError{Rule: rule.Name, Expr: rule.Expr}
		}
	}
	return nil
}

func (e *Engine) evaluate(expr string, vars map[string]interface{}) (bool, error) {
	e.mu.RLock()
	prg, exists := e.cache[expr]
	e.mu.RUnlock()

	if !exists {
		var err error
		prg, err = compile(expr)
		if err != nil {
			return false, err
		}

		e.mu.Lock()
		e.cache[expr] = prg
		e.mu.Unlock()
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}
	return result, nil
}

func compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("ops", cel.DynType),
		cel.Variable("base", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}

// CacheSize returns the number of compiled rule programs.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

func summarizeOps(ops []patch.Op) map[string]interface{} {
	var adds, removes, replaces, scales, toServings int64
	for _, op := range ops {
		switch op.Kind {
		case patch.KindAddIngredient:
			adds++
		case patch.KindRemoveIngredient:
			removes++
		case patch.KindReplaceIngredient:
			replaces++
		case patch.KindScaleServings:
			scales++
			toServings = int64(op.ToServings)
		}
	}
	return map[string]interface{}{
		"total":       int64(len(ops)),
		"adds":        adds,
		"removes":     removes,
		"replaces":    replaces,
		"scales":      scales,
		"to_servings": toServings,
	}
}

func summarizeBase(base patch.Base) map[string]interface{} {
	return map[string]interface{}{
		"ingredients": int64(len(base.Ingredients)),
		"servings":    int64(base.Servings),
	}
}
