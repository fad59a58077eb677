package linkml

import (
	"fmt"
	"strings"
)

// uniqueKeySeparator delimits the members of a composite unique-key tuple
// unambiguously, matching the U+001F unit-separator convention confirmed
// against original_source's unique-key validator.
const uniqueKeySeparator = "\x1f"

// evaluateLocalUniqueKey enforces uniqueness of a composite key within a
// single instance's multivalued slots (component G, "Unique keys (local to
// one instance)"); cross-instance enforcement is collection.go's job.
func evaluateLocalUniqueKey(vc *validationContext, obj map[string]any, uk *UniqueKey) {
	arrays := make([][]any, len(uk.SlotNames))
	length := -1
	for i, slotName := range uk.SlotNames {
		arr, ok := obj[slotName].([]any)
		if !ok {
			return // not a multivalued-slot composite key on this instance
		}
		arrays[i] = arr
		if length == -1 {
			length = len(arr)
		} else if len(arr) != length {
			return // ragged arrays can't form row-wise tuples; nothing to check
		}
	}
	if length <= 0 {
		return
	}

	seen := make(map[string]int, length)
	var nullSeq int
	for row := 0; row < length; row++ {
		key, hasNull := buildCompositeKey(arrays, row, uk.ConsiderNullsUnequal, &nullSeq)
		if hasNull && !uk.ConsiderNullsUnequal {
			continue
		}
		if first, dup := seen[key]; dup {
			vc.report.AddIssue(NewIssue(CodeDuplicateUniqueKey, vc.path(), "duplicate value for unique key {key} (first seen at {first_path})",
				map[string]any{"key": uk.Name, "first_path": first}))
			continue
		}
		seen[key] = vc.path()
	}
}

// buildCompositeKey builds the composite key for one row across the
// multivalued slot arrays. When nullsUnequal is set, a null member gets a
// fresh per-row sentinel instead of the empty string, so two rows with a
// null in the same position never collide.
func buildCompositeKey(arrays [][]any, row int, nullsUnequal bool, nullSeq *int) (string, bool) {
	parts := make([]string, len(arrays))
	hasNull := false
	for i, arr := range arrays {
		v := arr[row]
		if v == nil {
			hasNull = true
			if nullsUnequal {
				*nullSeq++
				parts[i] = fmt.Sprintf("\x00null#%d", *nullSeq)
				continue
			}
		}
		parts[i] = valueKeyPart(v)
	}
	return strings.Join(parts, uniqueKeySeparator), hasNull
}

func valueKeyPart(v any) string {
	if v == nil {
		return ""
	}
	return toKeyString(v)
}
