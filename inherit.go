package linkml

import (
	"fmt"
	"sync"
)

// effectiveSlots is the resolved, ordered slot set for one class: a slot
// declaration order plus the final, overlaid Slot definition per name
// (component D).
type effectiveSlots struct {
	order  []string
	bySlot map[string]*Slot
}

type effectiveSlotsKey struct {
	fingerprint Fingerprint
	class       string
}

var effectiveSlotsMemo = struct {
	mu sync.Mutex
	m  map[effectiveSlotsKey]*effectiveSlots
}{m: make(map[effectiveSlotsKey]*effectiveSlots)}

// EffectiveSlots computes (and memoizes, per schema fingerprint) the
// effective slot set for class: C3 linearization over is_a and mixins,
// then a slot_usage overlay in linearization order (component D, §4.D).
func EffectiveSlots(schema *Schema, class *Class) (*effectiveSlots, error) {
	fp := SchemaFingerprint(schema)
	key := effectiveSlotsKey{fingerprint: fp, class: class.Name}

	effectiveSlotsMemo.mu.Lock()
	if cached, ok := effectiveSlotsMemo.m[key]; ok {
		effectiveSlotsMemo.mu.Unlock()
		return cached, nil
	}
	effectiveSlotsMemo.mu.Unlock()

	lin, err := linearize(schema, class.Name, nil)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	seen := make(map[string]bool)
	bySlot := make(map[string]*Slot)

	// Walk the linearization from most-general to most-specific so that
	// later (closer to C) slot_usage overrides win, per §4.D step 2.
	for i := len(lin) - 1; i >= 0; i-- {
		c := lin[i]
		for _, slotName := range c.Slots {
			if !seen[slotName] {
				seen[slotName] = true
				order = append(order, slotName)
			}
			base, _ := schema.Slots.Get(slotName)
			bySlot[slotName] = overlaySlot(bySlot[slotName], base)
		}
		c.Attributes.Range(func(name string, s *Slot) bool {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			bySlot[name] = overlaySlot(bySlot[name], s)
			return true
		})
		for slotName, override := range c.SlotUsage {
			if !seen[slotName] {
				seen[slotName] = true
				order = append(order, slotName)
			}
			bySlot[slotName] = overlaySlot(bySlot[slotName], override)
		}
	}

	for _, slotName := range order {
		if err := validateEffectiveSlot(schema, slotName, bySlot[slotName]); err != nil {
			return nil, err
		}
	}
	if err := validateIdentifierCount(class.Name, order, bySlot); err != nil {
		return nil, err
	}

	result := &effectiveSlots{order: order, bySlot: bySlot}
	effectiveSlotsMemo.mu.Lock()
	effectiveSlotsMemo.m[key] = result
	effectiveSlotsMemo.mu.Unlock()
	return result, nil
}

// overlaySlot merges override onto base, field by field, with any
// non-zero-value field on override winning. base may be nil for an
// attribute with no schema-level slot declaration.
func overlaySlot(base, override *Slot) *Slot {
	if base == nil && override == nil {
		return &Slot{}
	}
	if base == nil {
		copy := *override
		return &copy
	}
	if override == nil {
		copy := *base
		return &copy
	}

	merged := *base
	if override.Range != "" {
		merged.Range = override.Range
	}
	if override.Pattern != "" {
		merged.Pattern = override.Pattern
	}
	if override.MinimumValue != nil {
		merged.MinimumValue = override.MinimumValue
	}
	if override.MaximumValue != nil {
		merged.MaximumValue = override.MaximumValue
	}
	if override.MinimumCardinality != nil {
		merged.MinimumCardinality = override.MinimumCardinality
	}
	if override.MaximumCardinality != nil {
		merged.MaximumCardinality = override.MaximumCardinality
	}
	if len(override.PermissibleValues) > 0 {
		merged.PermissibleValues = override.PermissibleValues
	}
	if override.EqualsString != "" {
		merged.EqualsString = override.EqualsString
	}
	if len(override.EqualsStringIn) > 0 {
		merged.EqualsStringIn = override.EqualsStringIn
	}
	if override.EqualsExpression != "" {
		merged.EqualsExpression = override.EqualsExpression
	}
	// Boolean flags are *bool so the parser can distinguish "slot_usage
	// didn't mention this field" (nil) from "slot_usage explicitly set it
	// to false". An explicit override, true or false, always wins over the
	// base; slot_usage can therefore tighten OR relax Required,
	// Recommended, Multivalued, Identifier and Key, not just escalate them.
	merged.Required = overrideBool(override.Required, base.Required)
	merged.Recommended = overrideBool(override.Recommended, base.Recommended)
	merged.Multivalued = overrideBool(override.Multivalued, base.Multivalued)
	merged.Identifier = overrideBool(override.Identifier, base.Identifier)
	merged.Key = overrideBool(override.Key, base.Key)
	return &merged
}

// overrideBool returns override when slot_usage explicitly set it,
// otherwise falls back to the base definition's value.
func overrideBool(override, base *bool) *bool {
	if override != nil {
		return override
	}
	return base
}

func validateEffectiveSlot(schema *Schema, name string, s *Slot) error {
	if s == nil {
		return nil
	}
	if s.MinimumValue != nil && s.MaximumValue != nil {
		if s.MinimumValue.Cmp(s.MaximumValue.Rat) > 0 {
			return fmt.Errorf("%w: slot %s", ErrInconsistentBounds, name)
		}
	}
	if s.MinimumCardinality != nil && s.MaximumCardinality != nil {
		if *s.MinimumCardinality > *s.MaximumCardinality {
			return fmt.Errorf("%w: slot %s", ErrInconsistentCardinality, name)
		}
	}
	if boolVal(s.Identifier) {
		if s.MaximumCardinality != nil && *s.MaximumCardinality > 1 {
			return fmt.Errorf("%w: identifier slot %s must have cardinality <= 1", ErrInconsistentCardinality, name)
		}
	}
	if s.Range != "" && !rangeResolves(schema, s.Range) {
		return fmt.Errorf("%w: slot %s range %s", ErrUnresolvedRange, name, s.Range)
	}
	return nil
}

func rangeResolves(schema *Schema, rangeName string) bool {
	if _, ok := schema.Classes.Get(rangeName); ok {
		return true
	}
	if _, ok := schema.Types.Get(rangeName); ok {
		return true
	}
	if _, ok := schema.Enums.Get(rangeName); ok {
		return true
	}
	switch PrimitiveBase(rangeName) {
	case BaseString, BaseInteger, BaseFloat, BaseDouble, BaseBoolean, BaseDate, BaseDateTime, BaseTime, BaseURI:
		return true
	}
	return false
}

func validateIdentifierCount(className string, order []string, bySlot map[string]*Slot) error {
	count := 0
	for _, name := range order {
		if s := bySlot[name]; s != nil && boolVal(s.Identifier) {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("%w: class %s", ErrDuplicateIdentifier, className)
	}
	return nil
}

// linearize computes the C3-style merge of [parents(C) ++ mixins(C) ++ [C]]
// for class name within schema, most-specific first (component D, §4.D
// step 1).
func linearize(schema *Schema, name string, visiting []string) ([]*Class, error) {
	for _, v := range visiting {
		if v == name {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInheritanceCycle, joinChain(visiting), name)
		}
	}
	class, ok := schema.Classes.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	visiting = append(visiting, name)

	var sequences [][]*Class

	if class.IsA != "" {
		parentLin, err := linearize(schema, class.IsA, visiting)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, parentLin)
	}
	for _, mixin := range class.Mixins {
		mixinLin, err := linearize(schema, mixin, visiting)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, mixinLin)
	}

	var directParents []*Class
	if class.IsA != "" {
		if p, ok := schema.Classes.Get(class.IsA); ok {
			directParents = append(directParents, p)
		}
	}
	for _, mixin := range class.Mixins {
		if m, ok := schema.Classes.Get(mixin); ok {
			directParents = append(directParents, m)
		}
	}
	sequences = append(sequences, directParents)

	merged, err := c3Merge(sequences)
	if err != nil {
		return nil, fmt.Errorf("%w: class %s: %v", ErrLinearizationConflict, name, err)
	}

	return append([]*Class{class}, merged...), nil
}

// c3Merge implements the standard C3 linearization merge step: repeatedly
// take the head of the first sequence whose head appears nowhere else in
// the tail of any sequence, remove it from every sequence, and repeat.
func c3Merge(sequences [][]*Class) ([]*Class, error) {
	var result []*Class
	seqs := make([][]*Class, 0, len(sequences))
	for _, s := range sequences {
		if len(s) > 0 {
			seqs = append(seqs, s)
		}
	}

	for len(seqs) > 0 {
		var candidate *Class
		for _, seq := range seqs {
			head := seq[0]
			if !appearsInTail(head, seqs) {
				candidate = head
				break
			}
		}
		if candidate == nil {
			return nil, fmt.Errorf("inconsistent hierarchy")
		}
		result = append(result, candidate)
		seqs = removeHead(seqs, candidate)
	}
	return result, nil
}

func appearsInTail(c *Class, seqs [][]*Class) bool {
	for _, seq := range seqs {
		for i := 1; i < len(seq); i++ {
			if seq[i] == c {
				return true
			}
		}
	}
	return false
}

func removeHead(seqs [][]*Class, c *Class) [][]*Class {
	out := make([][]*Class, 0, len(seqs))
	for _, seq := range seqs {
		if len(seq) > 0 && seq[0] == c {
			seq = seq[1:]
		}
		if len(seq) > 0 {
			out = append(out, seq)
		}
	}
	return out
}

func joinChain(chain []string) string {
	out := ""
	for i, c := range chain {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}
