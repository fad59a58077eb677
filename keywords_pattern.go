package linkml

import "strings"

// compileStructuredPatternValidator builds one {var}-interpolated regex per
// instance from sp.Syntax, substituting each interpolated variable's
// current sibling value before compiling and matching. Unlike a plain
// pattern, a structured pattern cannot be compiled once at compile time
// since its text depends on the instance being validated.
func compileStructuredPatternValidator(slotName string, sp *StructuredPattern) slotValidatorFunc {
	return func(vc *validationContext, value any) {
		s, ok := value.(string)
		if !ok {
			return
		}

		syntax := sp.Syntax
		for _, varName := range sp.InterpolatedVars {
			sibling, _ := vc.siblingContext()[varName].(string)
			syntax = strings.ReplaceAll(syntax, "{"+varName+"}", sibling)
		}

		re, err := compilePattern(syntax)
		if err != nil {
			vc.report.AddIssue(NewIssue(CodePatternMismatch, vc.path(), "structured pattern on {slot} does not compile: {error}",
				map[string]any{"slot": slotName, "error": err.Error()}))
			return
		}
		matched, err := matchPattern(re, s)
		if err != nil || !matched {
			vc.report.AddIssue(NewIssue(CodePatternMismatch, vc.path(), "value {value} does not match structured pattern",
				map[string]any{"value": s}))
		}
	}
}

// compilePatternValidator compiles pattern once (component G, "compile
// regex once at compile time") and returns a validator matching each
// string value of a slot against it.
func compilePatternValidator(slotName, pattern string) (slotValidatorFunc, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, &RegexPatternError{Owner: slotName, Pattern: pattern, Err: err}
	}

	return func(vc *validationContext, value any) {
		items := asItems(value, false)
		if arr, ok := value.([]any); ok {
			items = arr
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			matched, err := matchPattern(re, s)
			if err != nil || !matched {
				vc.report.AddIssue(NewIssue(CodePatternMismatch, vc.path(), "value {value} does not match pattern {pattern}",
					map[string]any{"value": s, "pattern": pattern}))
			}
		}
	}, nil
}
