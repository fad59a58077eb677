package linkml

import "github.com/kaptinlin/go-i18n"

// Severity classifies an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding: a severity, a stable error code, the
// dotted/bracketed path into the instance where it occurred, a message
// template, and a context map of the placeholders the template references
// (component H, §3.1 "ValidationReport").
type Issue struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code"`
	Path     string         `json:"path"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
}

// NewIssue builds an error-severity Issue.
func NewIssue(code, path, message string, context ...map[string]any) *Issue {
	issue := &Issue{Severity: SeverityError, Code: code, Path: path, Message: message}
	if len(context) > 0 {
		issue.Context = context[0]
	}
	return issue
}

// NewWarning builds a warning-severity Issue.
func NewWarning(code, path, message string, context ...map[string]any) *Issue {
	issue := NewIssue(code, path, message, context...)
	issue.Severity = SeverityWarning
	return issue
}

func (i *Issue) Error() string {
	return replace(i.Message, i.Context)
}

// Localize renders the Issue's message through localizer, keyed by its
// stable Code, falling back to the English template when localizer is nil
// or has no translation.
func (i *Issue) Localize(localizer *i18n.Localizer) string {
	if localizer != nil {
		return localizer.Get(i.Code, i18n.Vars(i.Context))
	}
	return i.Error()
}

// ReportStats carries the aggregate counters a validation run exposes
// (component H, §3.1).
type ReportStats struct {
	DurationMS         int64
	ValidatorsExecuted int
	TotalValidated     int
	CacheHitRate       float64
}

// ValidationReport is the outcome of validate/validate_as_class/
// validate_collection: an ordered list of issues, aggregate stats, and an
// overall validity flag (component H, §3.1). Incomplete is set when the
// call was cancelled (caller abort or the resource limiter's watchdog)
// before every slot/instance was checked; cancellation is not an error, so
// the report returned alongside a nil error still carries whatever issues
// were found before the cutoff.
type ValidationReport struct {
	Issues     []*Issue    `json:"issues"`
	Stats      ReportStats `json:"stats"`
	Valid      bool        `json:"valid"`
	Incomplete bool        `json:"incomplete,omitempty"`
}

// NewValidationReport returns an empty, valid report.
func NewValidationReport() *ValidationReport {
	return &ValidationReport{Valid: true}
}

// AddIssue appends issue to the report. A SeverityError issue marks the
// report invalid; a SeverityWarning issue does not.
func (r *ValidationReport) AddIssue(issue *Issue) *ValidationReport {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.Valid = false
	}
	return r
}

// Merge appends other's issues into r and marks r invalid when other is
// invalid (r stays valid only if both are), used when
// validate_collection folds per-instance reports into one aggregate report.
func (r *ValidationReport) Merge(other *ValidationReport) *ValidationReport {
	r.Issues = append(r.Issues, other.Issues...)
	if !other.Valid {
		r.Valid = false
	}
	if other.Incomplete {
		r.Incomplete = true
	}
	r.Stats.TotalValidated += other.Stats.TotalValidated
	r.Stats.ValidatorsExecuted += other.Stats.ValidatorsExecuted
	return r
}

// IsValid reports whether the report contains no error-severity issues.
func (r *ValidationReport) IsValid() bool { return r.Valid }

// LocalizedMessages renders every issue's message through localizer (or the
// default English templates if localizer is nil), keyed by Path.
func (r *ValidationReport) LocalizedMessages(localizer *i18n.Localizer) map[string]string {
	out := make(map[string]string, len(r.Issues))
	for _, issue := range r.Issues {
		if localizer != nil {
			out[issue.Path] = issue.Localize(localizer)
		} else {
			out[issue.Path] = issue.Error()
		}
	}
	return out
}

// Stable error codes, matching spec §4.H "Error messages include stable
// error codes".
const (
	CodeDuplicateIdentifier = "DUPLICATE_IDENTIFIER"
	CodeDuplicateUniqueKey  = "DUPLICATE_UNIQUE_KEY"
	CodePatternMismatch     = "PATTERN_MISMATCH"
	CodeMissingRequired     = "MISSING_REQUIRED"
	CodeTypeMismatch        = "TYPE_MISMATCH"
	CodeCardinalityViolation = "CARDINALITY_VIOLATION"
	CodeBoundsViolation     = "BOUNDS_VIOLATION"
	CodeEnumViolation       = "ENUM_VIOLATION"
	CodeEqualsViolation     = "EQUALS_VIOLATION"
	CodeConditionalRequired = "CONDITIONAL_REQUIRED"
	CodeRuleViolation       = "RULE_VIOLATION"
	CodeAdditionalProperty  = "ADDITIONAL_PROPERTY"
	CodeUnresolvedClass     = "UNRESOLVED_CLASS"
)
