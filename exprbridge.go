package linkml

import "github.com/linkml-go/linkml/internal/exprlang"

// sharedFuncs is the built-in function registry shared by every expression
// evaluation in this process; it never changes after init, so sharing it
// across concurrent evaluations is safe.
var sharedFuncs = exprlang.DefaultFuncs()

// evaluateExpression runs ast against context under limits, used by
// equals_expression, rule preconditions, computed attributes, and
// conditional-requirement matching expressions (component F, invoked from
// components G/H).
func evaluateExpression(ast exprlang.Node, context map[string]any, limits exprlang.Limits) (any, error) {
	ctx := exprlang.Context{}
	for k, v := range context {
		ctx[k] = v
	}
	eval := exprlang.NewEvaluator(ctx, sharedFuncs, limits)
	return eval.Eval(ast)
}

// exprLimits derives the expression evaluator's resource limits from the
// engine's configured ResourceLimits, so MaxValidationDuration bounds
// expression evaluation the same way it bounds the rest of the validation
// call instead of the evaluator running under a fixed, unrelated timeout.
func (c *validationContext) exprLimits() exprlang.Limits {
	limits := exprlang.DefaultLimits()
	if d := c.engine.compiler.resourceLimits.MaxValidationDuration; d > 0 {
		limits.Timeout = d
	}
	return limits
}

// parseAndCheckExpression parses expr and statically validates it against
// knownVars before returning its AST, so compile-time schema errors (an
// undefined variable or function, a case() call missing its default) are
// caught at compile time instead of surfacing as a runtime evaluation
// failure on the first instance that exercises the expression.
func parseAndCheckExpression(expr string, knownVars map[string]bool) (exprlang.Node, error) {
	ast, err := exprlang.Parse(expr)
	if err != nil {
		return nil, &EvalError{Code: "EXPRESSION_PARSE", Offset: -1, Err: err}
	}
	if err := exprlang.CheckStatic(ast, knownVars, sharedFuncs); err != nil {
		return nil, &EvalError{Code: "EXPRESSION_STATIC_CHECK", Offset: -1, Err: err}
	}
	return ast, nil
}
