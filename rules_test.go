package linkml

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkml-go/linkml/internal/exprlang"
)

func TestRule_RequireSlotsEffect(t *testing.T) {
	s := newTestSchema("https://example.org/rules", "rules")
	addSlot(s, &Slot{Name: "kind", Range: "string"})
	addSlot(s, &Slot{Name: "weight", Range: "float"})
	addClass(s, &Class{
		Name:  "Package",
		Slots: []string{"kind", "weight"},
		Rules: []*Rule{
			{
				Title:            "heavy-needs-weight",
				PreconditionExpr: `{kind} == "heavy"`,
				Effect:           RuleEffectRequireSlots,
				RequiredSlots:    []string{"weight"},
			},
		},
	})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(8))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{"kind": "heavy"}, "Package", ValidationOptions{})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeConditionalRequired)

	report, err = engine.ValidateAsClass(context.Background(), map[string]any{"kind": "light"}, "Package", ValidationOptions{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestRule_ComputeAttributeEffect(t *testing.T) {
	s := newTestSchema("https://example.org/compute", "compute")
	addSlot(s, &Slot{Name: "price", Range: "float"})
	addSlot(s, &Slot{Name: "quantity", Range: "integer"})
	addSlot(s, &Slot{Name: "total", Range: "float"})
	addClass(s, &Class{
		Name:  "LineItem",
		Slots: []string{"price", "quantity", "total"},
		Rules: []*Rule{
			{
				Title:            "compute-total",
				PreconditionExpr: "true",
				Effect:           RuleEffectComputeAttribute,
				ComputedSlotName: "total",
				ComputedExpr:     "{price} * {quantity}",
			},
		},
	})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(8))
	obj := map[string]any{"price": 2.5, "quantity": float64(4)}
	report, err := engine.ValidateAsClass(context.Background(), obj, "LineItem", ValidationOptions{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 10.0, obj["total"])
}

func TestRule_ReportErrorEffect(t *testing.T) {
	s := newTestSchema("https://example.org/reporterr", "reporterr")
	addSlot(s, &Slot{Name: "status", Range: "string"})
	addClass(s, &Class{
		Name:  "Task",
		Slots: []string{"status"},
		Rules: []*Rule{
			{
				Title:            "forbidden-status",
				PreconditionExpr: `{status} == "cancelled"`,
				Effect:           RuleEffectReportError,
				ErrorMessage:     "cancelled tasks are not allowed here",
			},
		},
	})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(8))
	report, err := engine.ValidateAsClass(context.Background(), map[string]any{"status": "cancelled"}, "Task", ValidationOptions{})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeRuleViolation)
}

func TestEqualsExpression_MustMatchComputedValue(t *testing.T) {
	s := newTestSchema("https://example.org/eqexpr", "eqexpr")
	addSlot(s, &Slot{Name: "a", Range: "integer"})
	addSlot(s, &Slot{Name: "b", Range: "integer"})
	addSlot(s, &Slot{Name: "sum", Range: "integer", EqualsExpression: "{a} + {b}"})
	addClass(s, &Class{Name: "Pair", Slots: []string{"a", "b", "sum"}})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(8))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"a": 2.0, "b": 3.0, "sum": 5.0,
	}, "Pair", ValidationOptions{})
	require.NoError(t, err)
	assert.True(t, report.Valid)

	report, err = engine.ValidateAsClass(context.Background(), map[string]any{
		"a": 2.0, "b": 3.0, "sum": 99.0,
	}, "Pair", ValidationOptions{})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeEqualsViolation)
}

func TestEqualsExpression_RejectsMultivalued(t *testing.T) {
	_, err := compileEqualsExpressionValidator(&Slot{Name: "x", Multivalued: boolPtr(true), EqualsExpression: "1"}, map[string]bool{})
	require.ErrorIs(t, err, ErrMultivaluedEqualsExpression)
}

// TestRule_UndefinedVariableRejectedAtCompileTime reproduces the expression
// sandbox scenario: a rule referencing a slot that doesn't exist on the
// class must fail schema compilation, not surface as a runtime evaluation
// error on the first validated instance.
func TestRule_UndefinedVariableRejectedAtCompileTime(t *testing.T) {
	s := newTestSchema("https://example.org/undefvar", "undefvar")
	addSlot(s, &Slot{Name: "data", Range: "string"})
	addSlot(s, &Slot{Name: "max", Range: "integer"})
	addClass(s, &Class{
		Name:  "Bounded",
		Slots: []string{"data", "max"},
		Rules: []*Rule{
			{
				Title:            "env-reference",
				PreconditionExpr: "len({data}) > {env}",
				Effect:           RuleEffectReportError,
				ErrorMessage:     "data too long",
			},
		},
	})
	s.Freeze()

	_, err := NewCompiler(8).Compile(s, "Bounded", CompileOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, exprlang.ErrUndefinedVariable)
}

// TestRule_MaxValidationDurationBoundsExpressionEvaluation reproduces the
// resource-timeout scenario: a vanishingly small MaxValidationDuration
// bounds expression evaluation itself, not the fixed default timeout
// exprbridge.go used to hardcode. A rule precondition that can't finish
// within the configured duration surfaces as a rule-violation issue
// carrying the evaluator's timeout error rather than hanging or silently
// passing.
func TestRule_MaxValidationDurationBoundsExpressionEvaluation(t *testing.T) {
	rule := &Rule{
		Title:            "always-on",
		PreconditionExpr: `{kind} == "x"`,
		Effect:           RuleEffectReportError,
		ErrorMessage:     "unreachable",
	}
	compiled, err := compileRule(rule, map[string]bool{"kind": true})
	require.NoError(t, err)

	compiler := NewCompiler(8)
	limits := DefaultResourceLimits()
	limits.MaxValidationDuration = time.Nanosecond
	compiler.SetResourceLimits(limits)
	engine := &ValidationEngine{compiler: compiler}

	vc := newValidationContext(engine, ValidationOptions{}, context.Background())
	assert.Equal(t, time.Nanosecond, vc.exprLimits().Timeout, "exprLimits must derive from ResourceLimits.MaxValidationDuration")

	compiled.run(vc, map[string]any{"kind": "x"})

	require.Len(t, vc.report.Issues, 1)
	assert.Equal(t, CodeRuleViolation, vc.report.Issues[0].Code)
	assert.Contains(t, vc.report.Issues[0].Message, "failed to evaluate")
}

// TestEqualsExpression_UndefinedVariableRejectedAtCompileTime is the same
// scenario for equals_expression rather than a rule precondition.
func TestEqualsExpression_UndefinedVariableRejectedAtCompileTime(t *testing.T) {
	s := newTestSchema("https://example.org/undefvar2", "undefvar2")
	addSlot(s, &Slot{Name: "a", Range: "integer"})
	addSlot(s, &Slot{Name: "sum", Range: "integer", EqualsExpression: "{a} + {env}"})
	addClass(s, &Class{Name: "Pair", Slots: []string{"a", "sum"}})
	s.Freeze()

	_, err := NewCompiler(8).Compile(s, "Pair", CompileOptions{})
	require.Error(t, err)
	require.ErrorIs(t, err, exprlang.ErrUndefinedVariable)
}
