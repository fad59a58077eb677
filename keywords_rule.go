package linkml

import "github.com/linkml-go/linkml/internal/exprlang"

// compiledRule holds a Rule's precondition AST compiled once, ready to run
// against each instance (component G, "Rules").
type compiledRule struct {
	rule         *Rule
	precondition exprlang.Node
	effect       exprlang.Node // set only for RuleEffectComputeAttribute
}

// compileRule parses the rule's precondition (and, for a computed
// attribute effect, its value expression) once at compile time, statically
// checking both against knownVars so an undefined slot reference fails
// compilation rather than every instance validated against the class.
func compileRule(rule *Rule, knownVars map[string]bool) (*compiledRule, error) {
	precondition, err := parseAndCheckExpression(rule.PreconditionExpr, knownVars)
	if err != nil {
		return nil, err
	}

	cr := &compiledRule{rule: rule, precondition: precondition}

	if rule.Effect == RuleEffectComputeAttribute {
		effect, err := parseAndCheckExpression(rule.ComputedExpr, knownVars)
		if err != nil {
			return nil, err
		}
		cr.effect = effect
	}

	return cr, nil
}

// run evaluates the rule's precondition against obj and, if truthy,
// applies its effect: require named slots, assign a computed attribute, or
// report a fixed error message (component G, "on truthy, apply its effect").
func (r *compiledRule) run(vc *validationContext, obj map[string]any) {
	result, err := evaluateExpression(r.precondition, obj, vc.exprLimits())
	if err != nil {
		vc.report.AddIssue(NewIssue(CodeRuleViolation, vc.path(), "rule {rule} precondition failed to evaluate: {message}",
			map[string]any{"rule": r.rule.Title, "message": err.Error()}))
		return
	}
	fired, ok := result.(bool)
	if !ok || !fired {
		return
	}

	switch r.rule.Effect {
	case RuleEffectRequireSlots:
		for _, slotName := range r.rule.RequiredSlots {
			if v, ok := obj[slotName]; !ok || v == nil {
				vc.report.AddIssue(NewIssue(CodeConditionalRequired, joinPath(vc.path(), slotName),
					"slot {slot} is required by rule {rule}",
					map[string]any{"slot": slotName, "rule": r.rule.Title}))
			}
		}
	case RuleEffectComputeAttribute:
		value, err := evaluateExpression(r.effect, obj, vc.exprLimits())
		if err != nil {
			vc.report.AddIssue(NewIssue(CodeRuleViolation, vc.path(), "rule {rule} computed-attribute expression failed: {message}",
				map[string]any{"rule": r.rule.Title, "message": err.Error()}))
			return
		}
		obj[r.rule.ComputedSlotName] = value
	case RuleEffectReportError:
		vc.report.AddIssue(NewIssue(CodeRuleViolation, vc.path(), "rule {rule} failed: {message}",
			map[string]any{"rule": r.rule.Title, "message": r.rule.ErrorMessage}))
	}
}
