package linkml

import (
	"errors"
	"fmt"
)

// === Parsing errors (component B) ===
var (
	ErrSyntax          = errors.New("schema syntax error")
	ErrUnknownField    = errors.New("unknown field")
	ErrTypeMismatch    = errors.New("schema type mismatch")
	ErrUnsupportedType = errors.New("unsupported surface type")
)

// === Import resolution errors (component C) ===
var (
	ErrCircularImport   = errors.New("circular import")
	ErrMaxDepthExceeded = errors.New("maximum import depth exceeded")
	ErrImportNotFound   = errors.New("import not found")
	ErrMergeConflict    = errors.New("merge conflict")
)

// MergeConflictError reports that an imported definition collides with an
// existing one even under its qualifier-prefixed name (component C, §4.C
// step 3: re-collision is a schema error, not a silent overwrite).
type MergeConflictError struct {
	Kind      string // "class", "slot", "type", or "enum"
	Name      string
	Qualified string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("MERGE_CONFLICT: imported %s %q collides with an existing %q even after qualifying", e.Kind, e.Name, e.Qualified)
}

func (e *MergeConflictError) Unwrap() error { return ErrMergeConflict }

// === Inheritance & constraint resolution errors (component D) ===
var (
	ErrInheritanceCycle      = errors.New("inheritance cycle")
	ErrLinearizationConflict = errors.New("linearization conflict")
	ErrDuplicateIdentifier   = errors.New("duplicate identifier slot")
	ErrUnresolvedRange       = errors.New("range does not resolve to a known class, type, or enum")
	ErrInconsistentBounds    = errors.New("minimum_value exceeds maximum_value")
	ErrInconsistentCardinality = errors.New("minimum_cardinality exceeds maximum_cardinality")
)

// === Expression language errors (components E, F) ===
var (
	ErrExpressionParse        = errors.New("expression parse error")
	ErrUndefinedVariable      = errors.New("undefined variable")
	ErrUndefinedFunction      = errors.New("undefined function")
	ErrDivisionByZero         = errors.New("division by zero")
	ErrExpressionType         = errors.New("expression type error")
	ErrEvalExhausted          = errors.New("expression evaluation exceeded max_iterations")
	ErrEvalTimeout            = errors.New("expression evaluation exceeded timeout")
	ErrEvalCallDepthExceeded  = errors.New("expression evaluation exceeded max_call_depth")
	ErrNonFiniteResult        = errors.New("expression produced a non-finite numeric result")
)

// === Validator compiler errors (component G) ===
var (
	ErrPatternCompile             = errors.New("pattern does not compile")
	ErrUnknownClass                = errors.New("unknown class")
	ErrMultivaluedEqualsExpression = errors.New("equals_expression is not supported on multivalued slots")
)

// === Validation engine errors (component H) ===
var (
	ErrNoTargetClass      = errors.New("no explicit @type and no unique tree_root class")
	ErrAmbiguousTreeRoot   = errors.New("more than one class marked tree_root")
	ErrValidationCancelled = errors.New("validation cancelled")
)

// === Resource limiter errors (component J) ===
var (
	ErrSchemaTooLarge      = errors.New("schema exceeds max_schema_size")
	ErrDocumentTooLarge    = errors.New("document exceeds max_document_size")
	ErrTooManyConcurrent   = errors.New("too many concurrent validations")
	ErrRateLimited         = errors.New("validation rate limit exceeded")
	ErrNestedDepthExceeded = errors.New("nested depth exceeded")
	ErrValidationTimeout   = errors.New("validation exceeded max_validation_duration")
)

// === Rat conversion errors ===
var (
	ErrUnsupportedTypeForRat = errors.New("unsupported type for exact numeric conversion")
	ErrFailedToConvertToRat  = errors.New("failed to convert value to exact numeric form")
)

// ParseError describes a failure in the surface parser (component B), with
// a stable kind, a dotted path into the document, and a source location.
type ParseError struct {
	Kind     ParseErrorKind
	Path     string
	File     string
	Line     int
	Col      int
	Err      error
}

// ParseErrorKind classifies a ParseError.
type ParseErrorKind string

const (
	ParseErrorSyntax       ParseErrorKind = "syntax"
	ParseErrorUnknownField ParseErrorKind = "unknown_field"
	ParseErrorTypeMismatch ParseErrorKind = "type_mismatch"
)

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s at %s: %v", e.File, e.Line, e.Col, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RegexPatternError wraps a pattern-compilation failure with the owning
// slot/type name and the offending pattern text.
type RegexPatternError struct {
	Owner   string
	Pattern string
	Err     error
}

func (e *RegexPatternError) Error() string {
	return fmt.Sprintf("pattern on %q does not compile: %q: %v", e.Owner, e.Pattern, e.Err)
}

func (e *RegexPatternError) Unwrap() error { return e.Err }

// ResourceError reports a resource-limiter rejection (component J), with
// the stable code so callers can branch on it without string matching.
type ResourceError struct {
	Code string
	Err  error
}

func (e *ResourceError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }

func (e *ResourceError) Unwrap() error { return e.Err }

// EvalError reports a failure while evaluating an expression-language AST
// (components E, F), carrying the offset into the source expression where
// available.
type EvalError struct {
	Code   string
	Offset int
	Err    error
}

func (e *EvalError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset %d: %v", e.Code, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }
