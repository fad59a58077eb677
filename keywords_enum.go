package linkml

// compileEnumValidator enforces permissible-value membership for inline or
// named enums, and the equals_string/equals_string_in literal-equality
// keywords (component G, "Enum / equals_string / equals_string_in").
func compileEnumValidator(schema *Schema, slot *Slot, checkPermissibles bool) slotValidatorFunc {
	var permitted map[string]bool
	enumName := slot.Range

	if checkPermissibles {
		if len(slot.PermissibleValues) > 0 {
			permitted = toPermittedSet(slot.PermissibleValues)
		} else if e, ok := schema.Enums.Get(enumName); ok {
			permitted = toPermittedSet(e.PermissibleValues)
		}
	}

	return func(vc *validationContext, value any) {
		items := asItems(value, boolVal(slot.Multivalued))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if permitted != nil && !permitted[s] {
				vc.report.AddIssue(NewIssue(CodeEnumViolation, vc.path(), "value {value} is not a permissible value for {enum}",
					map[string]any{"value": s, "enum": enumName}))
			}
			if slot.EqualsString != "" && s != slot.EqualsString {
				vc.report.AddIssue(NewIssue(CodeEqualsViolation, vc.path(), "value {value} does not equal expected {expected}",
					map[string]any{"value": s, "expected": slot.EqualsString}))
			}
			if len(slot.EqualsStringIn) > 0 && !containsString(slot.EqualsStringIn, s) {
				vc.report.AddIssue(NewIssue(CodeEqualsViolation, vc.path(), "value {value} does not equal expected {expected}",
					map[string]any{"value": s, "expected": slot.EqualsStringIn}))
			}
		}
	}
}

func toPermittedSet(pvs []*PermissibleValue) map[string]bool {
	out := make(map[string]bool, len(pvs))
	for _, pv := range pvs {
		out[pv.Text] = true
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
