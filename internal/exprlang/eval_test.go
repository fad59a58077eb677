package exprlang

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalString(t *testing.T, src string, ctx Context) any {
	t.Helper()
	node, err := Parse(src)
	require.NoError(t, err)
	ev := NewEvaluator(ctx, DefaultFuncs(), DefaultLimits())
	v, err := ev.Eval(node)
	require.NoError(t, err)
	return v
}

func TestEval_Arithmetic(t *testing.T) {
	assert.Equal(t, 7.0, evalString(t, "3 + 4", nil))
	assert.Equal(t, 2.0, evalString(t, "10 / 5", nil))
	assert.Equal(t, 1.0, evalString(t, "(2 + 3) % 2", nil))
}

func TestEval_DivisionByZero(t *testing.T) {
	node, err := Parse("1 / 0")
	require.NoError(t, err)
	ev := NewEvaluator(nil, DefaultFuncs(), DefaultLimits())
	_, err = ev.Eval(node)
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEval_VariableLookup(t *testing.T) {
	ctx := Context{"age": 42.0}
	assert.Equal(t, true, evalString(t, "{age} >= 18", ctx))
}

func TestEval_UndefinedVariable(t *testing.T) {
	node, err := Parse("{missing} + 1")
	require.NoError(t, err)
	ev := NewEvaluator(Context{}, DefaultFuncs(), DefaultLimits())
	_, err = ev.Eval(node)
	require.ErrorIs(t, err, ErrUndefinedVariable)
}

func TestEval_GroupBy(t *testing.T) {
	ctx := Context{
		"items": []any{
			map[string]any{"kind": "a", "n": 1.0},
			map[string]any{"kind": "b", "n": 2.0},
			map[string]any{"kind": "a", "n": 3.0},
		},
	}
	v := evalString(t, `group_by({items}, "kind")`, ctx)
	grouped, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Len(t, grouped["a"], 2)
	assert.Len(t, grouped["b"], 1)
}

func TestEval_GroupBy_NonStringField(t *testing.T) {
	node, err := Parse(`group_by({items}, "kind")`)
	require.NoError(t, err)
	ev := NewEvaluator(Context{"items": []any{map[string]any{"kind": 1.0}}}, DefaultFuncs(), DefaultLimits())
	_, err = ev.Eval(node)
	require.Error(t, err)
}

func TestEval_CallDepthExceeded(t *testing.T) {
	node, err := Parse("abs(abs(abs(1)))")
	require.NoError(t, err)
	ev := NewEvaluator(nil, DefaultFuncs(), Limits{MaxCallDepth: 2, MaxIterations: 1000, Timeout: time.Second})
	_, err = ev.Eval(node)
	require.ErrorIs(t, err, ErrCallDepthExceeded)
}

func TestEval_UndefinedFunction(t *testing.T) {
	node, err := Parse("nope(1)")
	require.NoError(t, err)
	ev := NewEvaluator(nil, DefaultFuncs(), DefaultLimits())
	_, err = ev.Eval(node)
	require.ErrorIs(t, err, ErrUndefinedFunction)
}

func TestEval_ConditionalExpression(t *testing.T) {
	assert.Equal(t, "yes", evalString(t, `"yes" if true else "no"`, nil))
	assert.Equal(t, "no", evalString(t, `"yes" if false else "no"`, nil))
}

func TestEval_CaseReturnsDefault(t *testing.T) {
	v := evalString(t, `case(false, 1, 2)`, nil)
	assert.Equal(t, 2.0, v)
}
