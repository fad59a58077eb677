package linkml

// compileCardinalityValidator enforces that a multivalued slot's present
// value is an array with a length between minimum_cardinality and
// maximum_cardinality (component G, "Cardinality").
func compileCardinalityValidator(slot *Slot) slotValidatorFunc {
	return func(vc *validationContext, value any) {
		if !boolVal(slot.Multivalued) {
			return
		}
		arr, ok := value.([]any)
		if !ok {
			vc.report.AddIssue(NewIssue(CodeTypeMismatch, vc.path(), "expected an array for multivalued slot, got {actual}",
				map[string]any{"actual": describeType(value)}))
			return
		}
		n := len(arr)
		if slot.MinimumCardinality != nil && n < *slot.MinimumCardinality {
			vc.report.AddIssue(NewIssue(CodeCardinalityViolation, vc.path(), "slot {slot} has {count} values, expected between {min} and {max}",
				map[string]any{"slot": slot.Name, "count": n, "min": *slot.MinimumCardinality, "max": cardOrInf(slot.MaximumCardinality)}))
		}
		if slot.MaximumCardinality != nil && n > *slot.MaximumCardinality {
			vc.report.AddIssue(NewIssue(CodeCardinalityViolation, vc.path(), "slot {slot} has {count} values, expected between {min} and {max}",
				map[string]any{"slot": slot.Name, "count": n, "min": cardOrZero(slot.MinimumCardinality), "max": *slot.MaximumCardinality}))
		}
	}
}

func cardOrInf(n *int) any {
	if n == nil {
		return "unbounded"
	}
	return *n
}

func cardOrZero(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
