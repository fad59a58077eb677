package linkml

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint is a content hash over a canonical traversal of a schema:
// sorted keys within each map, so declaration-order differences never
// invalidate a compiled-validator cache entry (component A, invariant
// "equality of schemas for fingerprinting is a content hash over a
// canonical traversal").
type Fingerprint string

// SchemaFingerprint computes the Fingerprint of a fully merged schema.
func SchemaFingerprint(s *Schema) Fingerprint {
	h := sha256.New()
	w := &canonWriter{h: h}

	w.field("id", s.ID)
	w.field("name", s.Name)
	w.field("version", s.Version)
	w.field("default_prefix", s.DefaultPrefix)
	w.field("default_range", s.DefaultRange)

	for _, name := range s.Classes.SortedKeys() {
		c, _ := s.Classes.Get(name)
		w.class(name, c)
	}
	for _, name := range s.Slots.SortedKeys() {
		sl, _ := s.Slots.Get(name)
		w.slot(name, sl)
	}
	for _, name := range s.Types.SortedKeys() {
		t, _ := s.Types.Get(name)
		w.typ(name, t)
	}
	for _, name := range s.Enums.SortedKeys() {
		e, _ := s.Enums.Get(name)
		w.enum(name, e)
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

type canonWriter struct {
	h interface{ Write([]byte) (int, error) }
}

func (w *canonWriter) raw(s string) {
	_, _ = w.h.Write([]byte(s))
	_, _ = w.h.Write([]byte{0x1f}) // unit separator, delimits fields unambiguously
}

func (w *canonWriter) field(name, value string) {
	w.raw(name)
	w.raw(value)
}

func (w *canonWriter) class(name string, c *Class) {
	w.raw("class:" + name)
	w.raw(c.IsA)
	w.raw(strings.Join(sortedCopy(c.Mixins), ","))
	w.raw(strings.Join(c.Slots, ","))
	w.raw(fmt.Sprintf("abstract=%v mixin=%v tree_root=%v", c.Abstract, c.Mixin, c.TreeRoot))
	for _, slotName := range sortedCopy(keysOf(c.SlotUsage)) {
		w.slot("slot_usage:"+slotName, c.SlotUsage[slotName])
	}
}

func (w *canonWriter) slot(name string, s *Slot) {
	w.raw("slot:" + name)
	if s == nil {
		return
	}
	w.raw(s.Range)
	w.raw(s.Pattern)
	w.raw(fmt.Sprintf("req=%v rec=%v multi=%v ident=%v key=%v rank=%d",
		boolVal(s.Required), boolVal(s.Recommended), boolVal(s.Multivalued), boolVal(s.Identifier), boolVal(s.Key), s.Rank))
	w.raw(numberString(s.MinimumValue))
	w.raw(numberString(s.MaximumValue))
}

func (w *canonWriter) typ(name string, t *Type) {
	w.raw("type:" + name)
	if t == nil {
		return
	}
	w.raw(string(t.Base))
	w.raw(t.Pattern)
	w.raw(t.ParentType)
}

func (w *canonWriter) enum(name string, e *Enum) {
	w.raw("enum:" + name)
	if e == nil {
		return
	}
	texts := make([]string, len(e.PermissibleValues))
	for i, pv := range e.PermissibleValues {
		texts[i] = pv.Text
	}
	w.raw(strings.Join(sortedCopy(texts), ","))
}

func numberString(n *Number) string {
	if n == nil || n.Rat == nil {
		return ""
	}
	return FormatRat(n)
}

func keysOf(m map[string]*Slot) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
