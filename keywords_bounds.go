package linkml

import "math/big"

// compileBoundsValidator enforces minimum_value/maximum_value with exact
// rational comparison, so bound checks never drift under float rounding
// (component G, "Range/bounds", invariant 5).
func compileBoundsValidator(slot *Slot) slotValidatorFunc {
	return func(vc *validationContext, value any) {
		items := asItems(value, boolVal(slot.Multivalued))
		for _, item := range items {
			r, ok := numberToRat(item)
			if !ok {
				continue
			}
			if slot.MinimumValue != nil && r.Cmp(slot.MinimumValue.Rat) < 0 {
				vc.report.AddIssue(NewIssue(CodeBoundsViolation, vc.path(), "value {value} is out of bounds [{min}, {max}]",
					map[string]any{"value": FormatRat(&Rat{r}), "min": FormatRat(slot.MinimumValue), "max": maxOrInf(slot.MaximumValue)}))
				continue
			}
			if slot.MaximumValue != nil && r.Cmp(slot.MaximumValue.Rat) > 0 {
				vc.report.AddIssue(NewIssue(CodeBoundsViolation, vc.path(), "value {value} is out of bounds [{min}, {max}]",
					map[string]any{"value": FormatRat(&Rat{r}), "min": minOrInf(slot.MinimumValue), "max": FormatRat(slot.MaximumValue)}))
			}
		}
	}
}

func numberToRat(value any) (*big.Rat, bool) {
	switch v := value.(type) {
	case float64:
		return new(big.Rat).SetFloat64(v), true
	case int:
		return new(big.Rat).SetInt64(int64(v)), true
	case int64:
		return new(big.Rat).SetInt64(v), true
	default:
		return nil, false
	}
}

func maxOrInf(n *Number) any {
	if n == nil {
		return "unbounded"
	}
	return FormatRat(n)
}

func minOrInf(n *Number) any {
	if n == nil {
		return "unbounded"
	}
	return FormatRat(n)
}
