package linkml

// newTestSchema returns an empty, unfrozen schema; callers populate it with
// addClass/addSlot and call Freeze before Compile/Validate, as
// ImportResolver.Resolve does for a schema with no imports.
func newTestSchema(id, name string) *Schema {
	s := NewSchema(id, name)
	return s
}

func addClass(s *Schema, c *Class) *Class {
	if c.Attributes == nil {
		c.Attributes = NewOrderedMap[*Slot]()
	}
	s.Classes.Set(c.Name, c)
	return c
}

func addSlot(s *Schema, slot *Slot) *Slot {
	s.Slots.Set(slot.Name, slot)
	return slot
}
