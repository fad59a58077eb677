package linkml

// evaluateConditionalRequirement tests cond's trigger field against
// sibling values; if it fires, every named required slot must be present
// and non-null (component G, "Conditional requirements").
func evaluateConditionalRequirement(vc *validationContext, obj map[string]any, cond *ConditionalRequirement) {
	trigger, present := obj[cond.TriggerSlot]
	if !conditionFires(cond, trigger, present) {
		return
	}

	for _, slotName := range cond.RequiredSlots {
		v, ok := obj[slotName]
		if !ok || v == nil {
			vc.report.AddIssue(NewIssue(CodeConditionalRequired, joinPath(vc.path(), slotName),
				"slot {slot} is required because {trigger} satisfies its condition",
				map[string]any{"slot": slotName, "trigger": cond.TriggerSlot}))
		}
	}
}

func conditionFires(cond *ConditionalRequirement, trigger any, present bool) bool {
	switch cond.Field {
	case CondFieldPresent:
		return present && trigger != nil
	case CondEquals:
		return present && valuesEqual(trigger, cond.EqualsValue)
	case CondMatches:
		s, ok := trigger.(string)
		if !ok || !present {
			return false
		}
		re, err := compilePattern(cond.Pattern)
		if err != nil {
			return false
		}
		matched, err := matchPattern(re, s)
		return err == nil && matched
	case CondInRange:
		if !present {
			return false
		}
		r, ok := numberToRat(trigger)
		if !ok {
			return false
		}
		if cond.MinimumValue != nil && r.Cmp(cond.MinimumValue.Rat) < 0 {
			return false
		}
		if cond.MaximumValue != nil && r.Cmp(cond.MaximumValue.Rat) > 0 {
			return false
		}
		return true
	default:
		return false
	}
}
