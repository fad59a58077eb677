package linkml

import (
	"fmt"
)

// compileEqualsExpressionValidator compiles slot.EqualsExpression once and
// returns a validator that evaluates it against a context built from
// sibling slot values, requiring the slot's value equal the result
// (component G, "equals_expression"). Multivalued slots are rejected at
// compile time per the §14 decision: equals_expression never silently
// guesses over an array. knownVars is statically checked against the
// expression so an undefined sibling reference fails compilation.
func compileEqualsExpressionValidator(slot *Slot, knownVars map[string]bool) (slotValidatorFunc, error) {
	if boolVal(slot.Multivalued) {
		return nil, ErrMultivaluedEqualsExpression
	}

	ast, err := parseAndCheckExpression(slot.EqualsExpression, knownVars)
	if err != nil {
		return nil, err
	}

	return func(vc *validationContext, value any) {
		siblings := vc.siblingContext()
		result, err := evaluateExpression(ast, siblings, vc.exprLimits())
		if err != nil {
			vc.report.AddIssue(NewIssue(CodeEqualsViolation, vc.path(), "equals_expression evaluation failed: {error}",
				map[string]any{"error": err.Error()}))
			return
		}
		if !valuesEqual(value, result) {
			vc.report.AddIssue(NewIssue(CodeEqualsViolation, vc.path(), "value {value} does not equal expected {expected}",
				map[string]any{"value": fmt.Sprint(value), "expected": fmt.Sprint(result)}))
		}
	}, nil
}

func valuesEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
