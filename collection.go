package linkml

import (
	"fmt"
	"strings"
)

// collectionTracker holds cross-instance state for one validate_collection
// call: seen identifier values and seen composite unique-key values. It is
// created fresh per call and never shared across calls (component K,
// §3.3 "Collection-scoped state").
type collectionTracker struct {
	identifierSlot string
	seenIDs        map[string]string // value -> first path
	uniqueKeys     []*UniqueKey
	seenKeys       map[string]map[string]string // key name -> composite value -> first path
	nullSeq        int                          // monotonic counter minting a fresh sentinel per null-bearing key part
}

// newCollectionTracker derives the tracker's identifier slot from cv's
// compiled slot pipelines, since Identifier is a resolved-slot property
// (component D), not something the raw Class carries directly.
func newCollectionTracker(cv *ClassValidator) *collectionTracker {
	t := &collectionTracker{
		seenIDs:    make(map[string]string),
		uniqueKeys: cv.UniqueKeys,
		seenKeys:   make(map[string]map[string]string),
	}
	for _, sp := range cv.SlotPipelines {
		if sp.Slot != nil && boolVal(sp.Slot.Identifier) {
			t.identifierSlot = sp.Name
			break
		}
	}
	for _, uk := range cv.UniqueKeys {
		t.seenKeys[uk.Name] = make(map[string]string)
	}
	return t
}

// check is called once per instance after slot/class-level validation, to
// enforce identifier uniqueness and composite unique-key uniqueness across
// the whole collection (component K).
func (t *collectionTracker) check(vc *validationContext, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		return
	}

	if t.identifierSlot != "" {
		if v, present := obj[t.identifierSlot]; present && v != nil {
			key := toKeyString(v)
			if first, dup := t.seenIDs[key]; dup {
				vc.report.AddIssue(NewIssue(CodeDuplicateIdentifier, vc.path(), "duplicate identifier value {value} (first seen at {first_path})",
					map[string]any{"value": key, "first_path": first}))
			} else {
				t.seenIDs[key] = vc.path()
			}
		}
	}

	for _, uk := range t.uniqueKeys {
		key, hasNull := t.collectionCompositeKey(obj, uk)
		if hasNull && !uk.ConsiderNullsUnequal {
			continue
		}
		seen := t.seenKeys[uk.Name]
		if first, dup := seen[key]; dup {
			vc.report.AddIssue(NewIssue(CodeDuplicateUniqueKey, vc.path(), "duplicate value for unique key {key} (first seen at {first_path})",
				map[string]any{"key": uk.Name, "first_path": first}))
			continue
		}
		seen[key] = vc.path()
	}
}

// collectionCompositeKey builds the composite key string for one unique
// key on obj. When uk.ConsiderNullsUnequal is set, a null-bearing slot gets
// a fresh per-occurrence sentinel instead of the empty string, so two
// distinct records with a null in the same key position never collide
// (component K, §4.K).
func (t *collectionTracker) collectionCompositeKey(obj map[string]any, uk *UniqueKey) (string, bool) {
	parts := make([]string, len(uk.SlotNames))
	hasNull := false
	for i, name := range uk.SlotNames {
		v, ok := obj[name]
		if !ok || v == nil {
			hasNull = true
			if uk.ConsiderNullsUnequal {
				t.nullSeq++
				parts[i] = fmt.Sprintf("\x00null#%d", t.nullSeq)
				continue
			}
		}
		parts[i] = toKeyString(v)
	}
	return strings.Join(parts, uniqueKeySeparator), hasNull
}

func toKeyString(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
