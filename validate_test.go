package linkml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personSchema() *Schema {
	s := newTestSchema("https://example.org/person", "person")

	addSlot(s, &Slot{Name: "id", Identifier: boolPtr(true), Range: "string"})
	addSlot(s, &Slot{Name: "name", Range: "string", Required: boolPtr(true)})
	addSlot(s, &Slot{Name: "age", Range: "integer", MinimumValue: NewRat(0), MaximumValue: NewRat(150)})
	addSlot(s, &Slot{Name: "email", Range: "string", Pattern: `^\S+@\S+\.\S+$`})
	addSlot(s, &Slot{Name: "tags", Range: "string", Multivalued: boolPtr(true), MinimumCardinality: intPtr(1)})

	addClass(s, &Class{
		Name:     "Person",
		TreeRoot: true,
		Slots:    []string{"id", "name", "age", "email", "tags"},
	})

	s.Freeze()
	return s
}

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func TestValidateAsClass_Valid(t *testing.T) {
	s := personSchema()
	compiler := NewCompiler(16)
	engine := NewValidationEngine(s, compiler)

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":    "p1",
		"name":  "Ada",
		"age":   float64(36),
		"email": "ada@example.org",
		"tags":  []any{"engineer"},
	}, "Person", ValidationOptions{})

	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestValidateAsClass_MissingRequired(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id": "p1",
	}, "Person", ValidationOptions{})

	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeMissingRequired)
}

func TestValidateAsClass_PatternMismatch(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":    "p1",
		"name":  "Ada",
		"email": "not-an-email",
	}, "Person", ValidationOptions{})

	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodePatternMismatch)
}

func TestValidateAsClass_BoundsViolation(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":   "p1",
		"name": "Ada",
		"age":  float64(999),
	}, "Person", ValidationOptions{})

	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeBoundsViolation)
}

func TestValidateAsClass_CardinalityViolation(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":   "p1",
		"name": "Ada",
		"tags": []any{},
	}, "Person", ValidationOptions{})

	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeCardinalityViolation)
}

func TestValidateAsClass_AdditionalPropertyWarning(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":      "p1",
		"name":    "Ada",
		"unknown": "surprise",
	}, "Person", ValidationOptions{})

	require.NoError(t, err)
	assert.True(t, report.Valid, "additional properties are warnings, not errors")
	require.Len(t, report.Issues, 1)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
	assert.Equal(t, CodeAdditionalProperty, report.Issues[0].Code)
}

func TestValidateAsClass_AllowAdditionalProperties(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":      "p1",
		"name":    "Ada",
		"unknown": "surprise",
	}, "Person", ValidationOptions{AllowAdditionalProperties: true})

	require.NoError(t, err)
	assert.Empty(t, report.Issues)
}

func TestValidate_InfersTreeRoot(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.Validate(context.Background(), map[string]any{
		"id":   "p1",
		"name": "Ada",
	}, ValidationOptions{})

	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestValidate_ExplicitTypeOverridesTreeRoot(t *testing.T) {
	s := personSchema()
	addSlot(s, &Slot{Name: "handle", Range: "string", Required: boolPtr(true)})
	addClass(s, &Class{Name: "Org", Slots: []string{"handle"}})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(16))
	report, err := engine.Validate(context.Background(), map[string]any{
		"@type":  "Org",
		"handle": "acme",
	}, ValidationOptions{})

	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestValidate_AmbiguousTreeRoot(t *testing.T) {
	s := personSchema()
	addClass(s, &Class{Name: "Other", TreeRoot: true})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(16))
	_, err := engine.Validate(context.Background(), map[string]any{"id": "p1"}, ValidationOptions{})
	require.ErrorIs(t, err, ErrAmbiguousTreeRoot)
}

func TestValidateAsClass_RecursiveClass(t *testing.T) {
	s := newTestSchema("https://example.org/tree", "tree")
	addSlot(s, &Slot{Name: "value", Range: "integer", Required: boolPtr(true)})
	addSlot(s, &Slot{Name: "children", Range: "Node", Multivalued: boolPtr(true)})
	addClass(s, &Class{Name: "Node", TreeRoot: true, Slots: []string{"value", "children"}})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"value": float64(1),
		"children": []any{
			map[string]any{"value": float64(2)},
			map[string]any{"value": "not-an-int"},
		},
	}, "Node", ValidationOptions{})

	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeTypeMismatch)
}

func TestValidateAsClass_ConditionalRequirement(t *testing.T) {
	s := newTestSchema("https://example.org/cond", "cond")
	addSlot(s, &Slot{Name: "country", Range: "string"})
	addSlot(s, &Slot{Name: "state", Range: "string"})
	addClass(s, &Class{
		Name:  "Address",
		Slots: []string{"country", "state"},
		ConditionalRequirements: []*ConditionalRequirement{
			{TriggerSlot: "country", Field: CondEquals, EqualsValue: "US", RequiredSlots: []string{"state"}},
		},
	})
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(16))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"country": "US",
	}, "Address", ValidationOptions{})

	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeConditionalRequired)

	report, err = engine.ValidateAsClass(context.Background(), map[string]any{
		"country": "CA",
	}, "Address", ValidationOptions{})
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestValidateCollection_DuplicateIdentifier(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	values := []any{
		map[string]any{"id": "p1", "name": "Ada"},
		map[string]any{"id": "p1", "name": "Grace"},
	}

	report, err := engine.ValidateCollection(context.Background(), values, "Person", ValidationOptions{})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeDuplicateIdentifier)
}

func TestValidateCollection_FailFastStopsEarly(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	// Both p1 and p2 are missing the required "name" slot; fail_fast should
	// stop after p1 and never record p2's issue.
	values := []any{
		map[string]any{"id": "p1"},
		map[string]any{"id": "p2"},
	}

	report, err := engine.ValidateCollection(context.Background(), values, "Person", ValidationOptions{FailFast: true})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Len(t, report.Issues, 1)
}

func TestValidateAsClass_UnknownClass(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	_, err := engine.ValidateAsClass(context.Background(), map[string]any{}, "Nope", ValidationOptions{})
	require.ErrorIs(t, err, ErrUnknownClass)
}

// TestValidateAsClass_AbortMarksReportIncomplete reproduces cancellation
// mid-validation: an already-fired Abort channel stops the slot pipeline
// before every slot is checked, producing a partial report marked
// incomplete rather than an error.
func TestValidateAsClass_AbortMarksReportIncomplete(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	abort := make(chan struct{})
	close(abort)

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{
		"id":   "p1",
		"name": "Ada",
	}, "Person", ValidationOptions{Abort: abort})
	require.NoError(t, err)
	assert.True(t, report.Incomplete)
	assert.Empty(t, report.Issues)
}

// TestValidateCollection_AbortMarksAggregateIncomplete is the same
// scenario for a collection call, cancelled before any item is validated.
func TestValidateCollection_AbortMarksAggregateIncomplete(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	abort := make(chan struct{})
	close(abort)

	values := []any{
		map[string]any{"id": "p1", "name": "Ada"},
		map[string]any{"id": "p2", "name": "Grace"},
	}
	report, err := engine.ValidateCollection(context.Background(), values, "Person", ValidationOptions{Abort: abort})
	require.NoError(t, err)
	assert.True(t, report.Incomplete)
}

// TestValidateAsClass_ReportCarriesCacheHitRate ensures the report's stats
// reflect the compiler's validator cache, not a fixed zero.
func TestValidateAsClass_ReportCarriesCacheHitRate(t *testing.T) {
	s := personSchema()
	engine := NewValidationEngine(s, NewCompiler(16))

	value := map[string]any{"id": "p1", "name": "Ada"}
	_, err := engine.ValidateAsClass(context.Background(), value, "Person", ValidationOptions{})
	require.NoError(t, err)

	report, err := engine.ValidateAsClass(context.Background(), value, "Person", ValidationOptions{})
	require.NoError(t, err)
	assert.Greater(t, report.Stats.CacheHitRate, 0.0)
}

// TestValidateAsClass_EnumPermissibleValueMapLiteral reproduces the spec's
// documented {text, description, meaning} object form for
// permissible_values end to end, guarding against buildPermissibleValue
// misreading the map's keys as candidate Text values.
func TestValidateAsClass_EnumPermissibleValueMapLiteral(t *testing.T) {
	doc := `
id: https://example.org/pvenum
name: pvenum
enums:
  Status:
    permissible_values:
      - active
      - text: inactive
        description: no longer in use
classes:
  Task:
    tree_root: true
    slots:
      - status
slots:
  status:
    range: Status
`
	s, err := Parse([]byte(doc), ParserOptions{})
	require.NoError(t, err)
	s.Freeze()

	engine := NewValidationEngine(s, NewCompiler(8))

	report, err := engine.ValidateAsClass(context.Background(), map[string]any{"status": "inactive"},
		"Task", ValidationOptions{CheckPermissibles: true})
	require.NoError(t, err)
	assert.True(t, report.Valid)

	report, err = engine.ValidateAsClass(context.Background(), map[string]any{"status": "bogus"},
		"Task", ValidationOptions{CheckPermissibles: true})
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, codes(report), CodeEnumViolation)
}

func codes(report *ValidationReport) []string {
	out := make([]string, len(report.Issues))
	for i, issue := range report.Issues {
		out[i] = issue.Code
	}
	return out
}
