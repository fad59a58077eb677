package linkml

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

// SchemaLoader fetches the raw bytes for an import path or URL; the default
// resolves local paths with os.ReadFile and remote ones over HTTP, matching
// the teacher's default-loader pattern (compiler.go's setupLoaders).
type SchemaLoader func(pathOrURL string) ([]byte, error)

// DefaultSchemaLoader reads local files directly and GETs http(s) URLs with
// a bounded timeout.
func DefaultSchemaLoader() SchemaLoader {
	client := &http.Client{Timeout: 10 * time.Second}
	return func(pathOrURL string) ([]byte, error) {
		if isRemoteImport(pathOrURL) {
			resp, err := client.Get(pathOrURL)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("%w: %s (status %d)", ErrImportNotFound, pathOrURL, resp.StatusCode)
			}
			return io.ReadAll(resp.Body)
		}
		return os.ReadFile(pathOrURL)
	}
}

// ImportResolver walks a schema's import graph and merges every dependency
// into one resolved Schema (component C).
type ImportResolver struct {
	settings ImportSettings
	load     SchemaLoader
	baseDir  string

	cache map[string]*Schema // canonical path -> parsed (not yet merged) schema
}

// NewImportResolver returns a resolver rooted at baseDir, using settings for
// search paths/aliases/strategy/depth and loader to fetch bytes.
func NewImportResolver(baseDir string, settings ImportSettings, loader SchemaLoader) *ImportResolver {
	if loader == nil {
		loader = DefaultSchemaLoader()
	}
	return &ImportResolver{settings: settings, load: loader, baseDir: baseDir, cache: make(map[string]*Schema)}
}

// Resolve recursively resolves and merges root's imports, returning a
// frozen, fully merged Schema. The returned schema is the same *Schema as
// root, mutated in place and then frozen.
func (r *ImportResolver) Resolve(root *Schema) (*Schema, error) {
	visiting := make(map[string]bool)
	if err := r.resolveInto(root, r.baseDir, visiting, 0); err != nil {
		return nil, err
	}
	root.Freeze()
	return root, nil
}

func (r *ImportResolver) resolveInto(target *Schema, baseDir string, visiting map[string]bool, depth int) error {
	maxDepth := r.settings.MaxImportDepth
	if maxDepth <= 0 {
		maxDepth = 32
	}

	for _, spec := range target.Imports {
		canonical := r.canonicalPath(baseDir, spec.Path)

		if visiting[canonical] {
			return fmt.Errorf("%w: %s", ErrCircularImport, r.chainString(visiting, canonical))
		}
		if depth >= maxDepth {
			if spec.Optional {
				continue
			}
			return fmt.Errorf("%w: at %s", ErrMaxDepthExceeded, canonical)
		}

		imported, err := r.load1(canonical)
		if err != nil {
			if spec.Optional {
				continue
			}
			return err
		}

		visiting[canonical] = true
		nextBase := path.Dir(canonical)
		if err := r.resolveInto(imported, nextBase, visiting, depth+1); err != nil {
			if spec.Optional {
				delete(visiting, canonical)
				continue
			}
			return err
		}
		delete(visiting, canonical)

		if spec.Prefix != "" {
			renameWithPrefix(imported, spec.Prefix)
		}
		applyOnlyExclude(imported, spec.Only, spec.Exclude)

		if err := mergeSchema(target, imported, spec); err != nil {
			return err
		}
	}
	return nil
}

func (r *ImportResolver) canonicalPath(baseDir, importPath string) string {
	if alias, ok := r.settings.Aliases[importPath]; ok {
		importPath = alias
	}
	if isRemoteImport(importPath) {
		return importPath
	}
	strategy := r.settings.ResolutionStrategy
	if strategy == "" {
		strategy = StrategyRelative
	}
	return resolveImportPath(baseDir, importPath, strategy)
}

func (r *ImportResolver) load1(canonical string) (*Schema, error) {
	if cached, ok := r.cache[canonical]; ok && r.settings.CacheImports {
		return cached, nil
	}

	bases := []string{canonical}
	if !isRemoteImport(canonical) && !path.IsAbs(canonical) {
		for _, sp := range r.settings.SearchPaths {
			bases = append(bases, path.Join(sp, canonical))
		}
	}

	var lastErr error
	for _, base := range bases {
		for _, candidate := range schemaFileCandidates(base) {
			data, err := r.load(candidate)
			if err != nil {
				lastErr = err
				continue
			}
			schema, err := Parse(data, ParserOptions{SourceFile: candidate})
			if err != nil {
				return nil, err
			}
			r.cache[canonical] = schema
			return schema, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrImportNotFound, canonical, lastErr)
}

func (r *ImportResolver) chainString(visiting map[string]bool, closing string) string {
	chain := make([]string, 0, len(visiting)+1)
	for k := range visiting {
		chain = append(chain, k)
	}
	chain = append(chain, closing)
	return strings.Join(chain, " -> ")
}

// renameWithPrefix renames every class/slot/type/enum in s to
// "prefix_name" and rewrites internal references (is_a, mixins, ranges,
// slot lists), per §4.C step 3.
func renameWithPrefix(s *Schema, prefix string) {
	rename := func(name string) string { return prefix + "_" + name }

	renameOrderedMap(s.Classes, rename)
	renameOrderedMap(s.Slots, rename)
	renameOrderedMap(s.Types, rename)
	renameOrderedMap(s.Enums, rename)

	s.Classes.Range(func(_ string, c *Class) bool {
		if c.IsA != "" {
			c.IsA = rename(c.IsA)
		}
		for i, m := range c.Mixins {
			c.Mixins[i] = rename(m)
		}
		for i, sl := range c.Slots {
			c.Slots[i] = rename(sl)
		}
		return true
	})
	s.Slots.Range(func(_ string, sl *Slot) bool {
		if sl.Range != "" {
			sl.Range = rename(sl.Range)
		}
		return true
	})
	s.Types.Range(func(_ string, t *Type) bool {
		if t.ParentType != "" {
			t.ParentType = rename(t.ParentType)
		}
		return true
	})
}

// renameOrderedMap rebuilds m with every key passed through rename,
// preserving declaration order.
func renameOrderedMap[V any](m *OrderedMap[V], rename func(string) string) {
	renamed := NewOrderedMap[V]()
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		renamed.Set(intern(rename(key)), v)
	}
	*m = *renamed
}

// applyOnlyExclude retains/removes named top-level elements of s per §4.C
// step 3's "only/exclude" modifiers.
func applyOnlyExclude(s *Schema, only, exclude []string) {
	if len(only) > 0 {
		keep := make(map[string]bool, len(only))
		for _, n := range only {
			keep[n] = true
		}
		filterOrderedMap(s.Classes, keep)
		filterOrderedMap(s.Slots, keep)
		filterOrderedMap(s.Types, keep)
		filterOrderedMap(s.Enums, keep)
		return
	}
	if len(exclude) > 0 {
		drop := make(map[string]bool, len(exclude))
		for _, n := range exclude {
			drop[n] = true
		}
		filterOrderedMapExcluding(s.Classes, drop)
		filterOrderedMapExcluding(s.Slots, drop)
		filterOrderedMapExcluding(s.Types, drop)
		filterOrderedMapExcluding(s.Enums, drop)
	}
}

func filterOrderedMap[V any](m *OrderedMap[V], keep map[string]bool) {
	for _, k := range m.Keys() {
		if !keep[k] {
			m.Delete(k)
		}
	}
}

func filterOrderedMapExcluding[V any](m *OrderedMap[V], drop map[string]bool) {
	for _, k := range m.Keys() {
		if drop[k] {
			m.Delete(k)
		}
	}
}

// mergeSchema merges imported into target per §4.C step 3: new names are
// inserted; structurally equal duplicates are skipped; different
// definitions under the same name are inserted under a qualified name,
// preserving target's original binding.
func mergeSchema(target, imported *Schema, spec *ImportSpec) error {
	qualifier := spec.Alias
	if qualifier == "" {
		qualifier = qualifierFromPath(spec.Path)
	}

	if err := mergeClasses(target, imported, qualifier); err != nil {
		return err
	}
	if err := mergeSlots(target, imported, qualifier); err != nil {
		return err
	}
	if err := mergeTypes(target, imported, qualifier); err != nil {
		return err
	}
	if err := mergeEnums(target, imported, qualifier); err != nil {
		return err
	}

	for name, p := range imported.Prefixes {
		if existing, ok := target.Prefixes[name]; ok {
			if existing.URI == p.URI {
				continue
			}
			target.Prefixes[qualifier+"_"+name] = p
			continue
		}
		target.Prefixes[name] = p
	}

	return nil
}

func qualifierFromPath(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml"), ".json")
	return base
}

func mergeClasses(target, imported *Schema, qualifier string) error {
	for _, name := range imported.Classes.Keys() {
		c, _ := imported.Classes.Get(name)
		if existing, ok := target.Classes.Get(name); ok {
			if classesEqual(existing, c) {
				continue
			}
			qualified := intern(qualifier + "_" + name)
			if _, collide := target.Classes.Get(qualified); collide {
				return &MergeConflictError{Kind: "class", Name: name, Qualified: qualified}
			}
			target.Classes.Set(qualified, c)
			continue
		}
		target.Classes.Set(name, c)
	}
	return nil
}

func mergeSlots(target, imported *Schema, qualifier string) error {
	for _, name := range imported.Slots.Keys() {
		sl, _ := imported.Slots.Get(name)
		if existing, ok := target.Slots.Get(name); ok {
			if slotsEqual(existing, sl) {
				continue
			}
			qualified := intern(qualifier + "_" + name)
			if _, collide := target.Slots.Get(qualified); collide {
				return &MergeConflictError{Kind: "slot", Name: name, Qualified: qualified}
			}
			target.Slots.Set(qualified, sl)
			continue
		}
		target.Slots.Set(name, sl)
	}
	return nil
}

func mergeTypes(target, imported *Schema, qualifier string) error {
	for _, name := range imported.Types.Keys() {
		t, _ := imported.Types.Get(name)
		if existing, ok := target.Types.Get(name); ok {
			if typesEqual(existing, t) {
				continue
			}
			qualified := intern(qualifier + "_" + name)
			if _, collide := target.Types.Get(qualified); collide {
				return &MergeConflictError{Kind: "type", Name: name, Qualified: qualified}
			}
			target.Types.Set(qualified, t)
			continue
		}
		target.Types.Set(name, t)
	}
	return nil
}

func mergeEnums(target, imported *Schema, qualifier string) error {
	for _, name := range imported.Enums.Keys() {
		e, _ := imported.Enums.Get(name)
		if existing, ok := target.Enums.Get(name); ok {
			if enumsEqual(existing, e) {
				continue
			}
			qualified := intern(qualifier + "_" + name)
			if _, collide := target.Enums.Get(qualified); collide {
				return &MergeConflictError{Kind: "enum", Name: name, Qualified: qualified}
			}
			target.Enums.Set(qualified, e)
			continue
		}
		target.Enums.Set(name, e)
	}
	return nil
}

// Structural equality compares declarations for merge purposes (§4.C step
// 3: "compare definitions structurally"); it ignores source location,
// which is never semantically significant.

func classesEqual(a, b *Class) bool {
	return a.IsA == b.IsA &&
		stringsEqual(a.Mixins, b.Mixins) &&
		stringsEqual(a.Slots, b.Slots) &&
		a.Abstract == b.Abstract &&
		a.Mixin == b.Mixin &&
		a.TreeRoot == b.TreeRoot
}

func slotsEqual(a, b *Slot) bool {
	return a.Range == b.Range &&
		boolPtrEqual(a.Required, b.Required) &&
		boolPtrEqual(a.Multivalued, b.Multivalued) &&
		boolPtrEqual(a.Identifier, b.Identifier) &&
		a.Pattern == b.Pattern &&
		a.EqualsString == b.EqualsString
}

func typesEqual(a, b *Type) bool {
	return a.Base == b.Base && a.Pattern == b.Pattern && a.ParentType == b.ParentType
}

func enumsEqual(a, b *Enum) bool {
	if len(a.PermissibleValues) != len(b.PermissibleValues) {
		return false
	}
	for i := range a.PermissibleValues {
		if a.PermissibleValues[i].Text != b.PermissibleValues[i].Text {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
