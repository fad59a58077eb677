package linkml

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// ParserOptions controls how Parse treats the document it's given
// (component B, §4.B).
type ParserOptions struct {
	// SourceFile is recorded on the parsed schema and on its classes and
	// slots for diagnostics.
	SourceFile string
	// Strict turns an unknown top-level field into an UnknownField error.
	// Without it, unknown top-level fields are ignored and no warning is
	// reported.
	Strict bool
}

// Parse reads a YAML 1.2 or JSON schema document and produces a Schema AST.
// Classes and slots carry the source line of the top-level `classes:` or
// `slots:` key for diagnostics; types and enums carry no source position.
// Unknown top-level fields are an error when opts.Strict is set and are
// otherwise ignored.
func Parse(data []byte, opts ParserOptions) (*Schema, error) {
	file, err := parser.ParseBytes(data, 0)
	if err != nil {
		return nil, &ParseError{Kind: ParseErrorSyntax, File: opts.SourceFile, Err: err}
	}
	if len(file.Docs) == 0 {
		return nil, &ParseError{Kind: ParseErrorSyntax, File: opts.SourceFile, Err: fmt.Errorf("empty document")}
	}

	root, ok := file.Docs[0].Body.(*ast.MappingNode)
	if !ok {
		return nil, &ParseError{Kind: ParseErrorTypeMismatch, File: opts.SourceFile, Err: fmt.Errorf("schema root must be a mapping")}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(file.Docs[0].String()), &raw); err != nil {
		// The document text is only JSON when the input was JSON; block-style
		// YAML fails this fast path and the node walker converts the AST.
		raw = decodeMapping(root)
	}

	p := &parseState{opts: opts, lines: topLevelLines(root)}
	return p.buildSchema(raw)
}

// topLevelLines maps each top-level key to its source line, used to
// populate sourceLine on classes/slots/types/enums.
func topLevelLines(root *ast.MappingNode) map[string]int {
	lines := make(map[string]int)
	for _, kv := range root.Values {
		key := strings.Trim(kv.Key.String(), `"'`)
		tok := kv.Key.GetToken()
		if tok != nil && tok.Position != nil {
			lines[key] = tok.Position.Line
		}
	}
	return lines
}

// decodeMapping is the fallback path used when the document text is not
// JSON (block-style YAML); it converts the AST directly, decoding numbers
// as float64 and booleans as bool like encoding/json does.
func decodeMapping(node ast.Node) map[string]any {
	m, ok := node.(*ast.MappingNode)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m.Values))
	for _, kv := range m.Values {
		key := strings.Trim(kv.Key.String(), `"'`)
		out[key] = decodeValue(kv.Value)
	}
	return out
}

func decodeValue(node ast.Node) any {
	switch n := node.(type) {
	case *ast.MappingNode:
		return decodeMapping(n)
	case *ast.SequenceNode:
		out := make([]any, len(n.Values))
		for i, v := range n.Values {
			out[i] = decodeValue(v)
		}
		return out
	case *ast.MappingValueNode:
		return map[string]any{strings.Trim(n.Key.String(), `"'`): decodeValue(n.Value)}
	case *ast.BoolNode:
		return n.Value
	case *ast.IntegerNode:
		if v, ok := n.Value.(int64); ok {
			return float64(v)
		}
		return n.Value
	case *ast.FloatNode:
		return n.Value
	case *ast.NullNode:
		return nil
	default:
		return strings.Trim(node.String(), `"'`)
	}
}

type parseState struct {
	opts  ParserOptions
	lines map[string]int
}

func (p *parseState) buildSchema(raw map[string]any) (*Schema, error) {
	id, _ := raw["id"].(string)
	name, _ := raw["name"].(string)
	s := NewSchema(id, name)
	s.sourceFile = p.opts.SourceFile

	if v, ok := raw["version"].(string); ok {
		s.Version = v
	}
	if v, ok := raw["title"].(string); ok {
		s.Title = v
	}
	if v, ok := raw["description"].(string); ok {
		s.Description = v
	}
	if v, ok := raw["license"].(string); ok {
		s.License = v
	}
	if v, ok := raw["default_prefix"].(string); ok {
		s.DefaultPrefix = v
	}
	if v, ok := raw["default_range"].(string); ok {
		s.DefaultRange = v
	}

	if prefixes, ok := raw["prefixes"].(map[string]any); ok {
		for name, entry := range prefixes {
			var uriStr string
			switch v := entry.(type) {
			case string:
				uriStr = v
			case map[string]any:
				uriStr, _ = v["prefix_reference"].(string)
			}
			s.Prefixes[intern(name)] = &Prefix{Name: intern(name), URI: uriStr}
		}
	}

	if err := p.parseImports(s, raw); err != nil {
		return nil, err
	}
	p.parseSettings(s, raw)

	known := map[string]bool{
		"id": true, "name": true, "version": true, "title": true, "description": true,
		"license": true, "default_prefix": true, "default_range": true, "prefixes": true,
		"imports": true, "classes": true, "slots": true, "types": true, "enums": true,
		"subsets": true, "settings": true,
	}
	for key := range raw {
		if known[key] {
			continue
		}
		if p.opts.Strict {
			return nil, &ParseError{Kind: ParseErrorUnknownField, Path: key, File: p.opts.SourceFile, Line: p.lines[key]}
		}
	}

	if err := p.parseSlots(s, raw); err != nil {
		return nil, err
	}
	if err := p.parseTypes(s, raw); err != nil {
		return nil, err
	}
	if err := p.parseEnums(s, raw); err != nil {
		return nil, err
	}
	if err := p.parseClasses(s, raw); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parseState) parseImports(s *Schema, raw map[string]any) error {
	imports, ok := raw["imports"].([]any)
	if !ok {
		return nil
	}
	for _, entry := range imports {
		switch v := entry.(type) {
		case string:
			s.Imports = append(s.Imports, parseImportString(v))
		case map[string]any:
			spec := &ImportSpec{}
			if p, ok := v["path"].(string); ok {
				spec.Path = p
			}
			if a, ok := v["alias"].(string); ok {
				spec.Alias = a
			}
			if pf, ok := v["prefix"].(string); ok {
				spec.Prefix = pf
			}
			if opt, ok := v["optional"].(bool); ok {
				spec.Optional = opt
			}
			spec.Only = stringSlice(v["only"])
			spec.Exclude = stringSlice(v["exclude"])
			s.Imports = append(s.Imports, spec)
		default:
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: "imports", File: p.opts.SourceFile,
				Err: fmt.Errorf("import entry must be a string or mapping")}
		}
	}
	return nil
}

// parseSettings populates the optional settings.validation / settings.imports
// blocks described in §6 "Schema settings (all optional)".
func (p *parseState) parseSettings(s *Schema, raw map[string]any) {
	settings, ok := raw["settings"].(map[string]any)
	if !ok {
		return
	}
	if v, ok := settings["validation"].(map[string]any); ok {
		if b, ok := v["fail_fast"].(bool); ok {
			s.Settings.Validation.FailFast = b
		}
		if b, ok := v["check_permissibles"].(bool); ok {
			s.Settings.Validation.CheckPermissibles = b
		}
		if n, ok := v["max_depth"].(float64); ok {
			s.Settings.Validation.MaxDepth = int(n)
		}
		if b, ok := v["allow_additional_properties"].(bool); ok {
			s.Settings.Validation.AllowAdditionalProperties = b
		}
	}
	if v, ok := settings["imports"].(map[string]any); ok {
		s.Settings.Imports.SearchPaths = stringSlice(v["search_paths"])
		if aliases, ok := v["aliases"].(map[string]any); ok {
			s.Settings.Imports.Aliases = make(map[string]string, len(aliases))
			for k, val := range aliases {
				if str, ok := val.(string); ok {
					s.Settings.Imports.Aliases[k] = str
				}
			}
		}
		if n, ok := v["max_import_depth"].(float64); ok {
			s.Settings.Imports.MaxImportDepth = int(n)
		}
		if b, ok := v["cache_imports"].(bool); ok {
			s.Settings.Imports.CacheImports = b
		}
		if str, ok := v["resolution_strategy"].(string); ok {
			s.Settings.Imports.ResolutionStrategy = ResolutionStrategy(str)
		}
		if str, ok := v["base_url"].(string); ok {
			s.Settings.Imports.BaseURL = str
		}
	}
}

// parseImportString handles the extended import string syntax from §6:
// "name as alias" and "name[Only1,Only2]"; anything else is a plain path.
func parseImportString(raw string) *ImportSpec {
	spec := &ImportSpec{Path: raw}

	if idx := strings.Index(raw, "["); idx >= 0 && strings.HasSuffix(raw, "]") {
		spec.Path = raw[:idx]
		only := raw[idx+1 : len(raw)-1]
		for _, name := range strings.Split(only, ",") {
			if name = strings.TrimSpace(name); name != "" {
				spec.Only = append(spec.Only, name)
			}
		}
	}

	if idx := strings.Index(spec.Path, " as "); idx >= 0 {
		spec.Alias = strings.TrimSpace(spec.Path[idx+len(" as "):])
		spec.Path = strings.TrimSpace(spec.Path[:idx])
	}

	return spec
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *parseState) parseSlots(s *Schema, raw map[string]any) error {
	slots, ok := raw["slots"].(map[string]any)
	if !ok {
		return nil
	}
	for name, def := range slots {
		defMap, ok := def.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: "slots." + name, File: p.opts.SourceFile,
				Err: fmt.Errorf("slot definition must be a mapping")}
		}
		slot, err := p.buildSlot(name, defMap)
		if err != nil {
			return err
		}
		slot.sourceFile = p.opts.SourceFile
		slot.sourceLine = p.lines["slots"]
		s.Slots.Set(intern(name), slot)
	}
	return nil
}

func (p *parseState) buildSlot(name string, def map[string]any) (*Slot, error) {
	slot := &Slot{Name: intern(name)}
	if v, ok := def["range"].(string); ok {
		slot.Range = intern(v)
	}
	if v, ok := def["required"].(bool); ok {
		slot.Required = &v
	}
	if v, ok := def["recommended"].(bool); ok {
		slot.Recommended = &v
	}
	if v, ok := def["multivalued"].(bool); ok {
		slot.Multivalued = &v
	}
	if v, ok := def["identifier"].(bool); ok {
		slot.Identifier = &v
	}
	if v, ok := def["key"].(bool); ok {
		slot.Key = &v
	}
	if v, ok := def["inlined"].(bool); ok {
		slot.Inlined = v
	}
	if v, ok := def["inlined_as_list"].(bool); ok {
		slot.InlinedAsList = v
	}
	if v, ok := def["pattern"].(string); ok {
		slot.Pattern = v
	}
	if v, ok := def["equals_string"].(string); ok {
		slot.EqualsString = v
	}
	if v, ok := def["equals_expression"].(string); ok {
		slot.EqualsExpression = v
	}
	if v, ok := def["rank"].(float64); ok {
		slot.Rank = int(v)
	}
	slot.EqualsStringIn = stringSlice(def["equals_string_in"])

	if v, ok := def["minimum_value"]; ok {
		n, err := numberFromAny("minimum_value", v)
		if err != nil {
			return nil, err
		}
		slot.MinimumValue = n
	}
	if v, ok := def["maximum_value"]; ok {
		n, err := numberFromAny("maximum_value", v)
		if err != nil {
			return nil, err
		}
		slot.MaximumValue = n
	}
	if v, ok := def["minimum_cardinality"].(float64); ok {
		n := int(v)
		slot.MinimumCardinality = &n
	}
	if v, ok := def["maximum_cardinality"].(float64); ok {
		n := int(v)
		slot.MaximumCardinality = &n
	}

	if pv, ok := def["permissible_values"].([]any); ok {
		for _, e := range pv {
			slot.PermissibleValues = append(slot.PermissibleValues, buildPermissibleValue(e))
		}
	}

	if sp, ok := def["structured_pattern"].(map[string]any); ok {
		syntax, _ := sp["syntax"].(string)
		slot.StructuredPattern = &StructuredPattern{Syntax: syntax, InterpolatedVars: stringSlice(sp["interpolated_vars"])}
	}

	if ann, ok := def["annotations"].(map[string]any); ok {
		slot.Annotations = ann
	}

	return slot, nil
}

func buildPermissibleValue(e any) *PermissibleValue {
	switch v := e.(type) {
	case string:
		return &PermissibleValue{Text: v}
	case map[string]any:
		pv := &PermissibleValue{}
		pv.Text, _ = v["text"].(string)
		pv.Description, _ = v["description"].(string)
		pv.Meaning, _ = v["meaning"].(string)
		return pv
	default:
		return &PermissibleValue{}
	}
}

func numberFromAny(field string, v any) (*Number, error) {
	switch v.(type) {
	case float64, string, int, int64:
		r := NewRat(v)
		if r == nil {
			return nil, &ParseError{Kind: ParseErrorTypeMismatch, Path: field, Err: ErrFailedToConvertToRat}
		}
		return r, nil
	default:
		return nil, &ParseError{Kind: ParseErrorTypeMismatch, Path: field, Err: fmt.Errorf("expected a number, got %T", v)}
	}
}

func (p *parseState) parseTypes(s *Schema, raw map[string]any) error {
	types, ok := raw["types"].(map[string]any)
	if !ok {
		return nil
	}
	for name, def := range types {
		defMap, ok := def.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: "types." + name, File: p.opts.SourceFile}
		}
		t := &Type{Name: intern(name)}
		if v, ok := defMap["base"].(string); ok {
			t.Base = PrimitiveBase(v)
		}
		if v, ok := defMap["typeof"].(string); ok {
			t.ParentType = intern(v)
		}
		if v, ok := defMap["pattern"].(string); ok {
			t.Pattern = v
		}
		if v, ok := defMap["minimum_value"]; ok {
			n, err := numberFromAny("minimum_value", v)
			if err != nil {
				return err
			}
			t.MinimumValue = n
		}
		if v, ok := defMap["maximum_value"]; ok {
			n, err := numberFromAny("maximum_value", v)
			if err != nil {
				return err
			}
			t.MaximumValue = n
		}
		s.Types.Set(intern(name), t)
	}
	return nil
}

func (p *parseState) parseEnums(s *Schema, raw map[string]any) error {
	enums, ok := raw["enums"].(map[string]any)
	if !ok {
		return nil
	}
	for name, def := range enums {
		defMap, ok := def.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: "enums." + name, File: p.opts.SourceFile}
		}
		e := &Enum{Name: intern(name)}
		if pv, ok := defMap["permissible_values"].([]any); ok {
			for _, entry := range pv {
				e.PermissibleValues = append(e.PermissibleValues, buildPermissibleValue(entry))
			}
		}
		s.Enums.Set(intern(name), e)
	}
	return nil
}

func (p *parseState) parseClasses(s *Schema, raw map[string]any) error {
	classes, ok := raw["classes"].(map[string]any)
	if !ok {
		return nil
	}
	for name, def := range classes {
		defMap, ok := def.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: "classes." + name, File: p.opts.SourceFile}
		}
		class, err := p.buildClass(name, defMap)
		if err != nil {
			return err
		}
		class.sourceFile = p.opts.SourceFile
		class.sourceLine = p.lines["classes"]
		s.Classes.Set(intern(name), class)
	}
	return nil
}

func (p *parseState) buildClass(name string, def map[string]any) (*Class, error) {
	c := &Class{Name: intern(name), Attributes: NewOrderedMap[*Slot]()}
	if v, ok := def["is_a"].(string); ok {
		c.IsA = intern(v)
	}
	c.Mixins = stringSlice(def["mixins"])
	c.Slots = stringSlice(def["slots"])
	if v, ok := def["abstract"].(bool); ok {
		c.Abstract = v
	}
	if v, ok := def["mixin"].(bool); ok {
		c.Mixin = v
	}
	if v, ok := def["tree_root"].(bool); ok {
		c.TreeRoot = v
	}

	if su, ok := def["slot_usage"].(map[string]any); ok {
		c.SlotUsage = make(map[string]*Slot, len(su))
		for slotName, override := range su {
			overrideMap, ok := override.(map[string]any)
			if !ok {
				return nil, &ParseError{Kind: ParseErrorTypeMismatch, Path: name + ".slot_usage." + slotName, File: p.opts.SourceFile}
			}
			slot, err := p.buildSlot(slotName, overrideMap)
			if err != nil {
				return nil, err
			}
			c.SlotUsage[intern(slotName)] = slot
		}
	}

	if attrs, ok := def["attributes"].(map[string]any); ok {
		for slotName, attrDef := range attrs {
			attrMap, ok := attrDef.(map[string]any)
			if !ok {
				return nil, &ParseError{Kind: ParseErrorTypeMismatch, Path: name + ".attributes." + slotName, File: p.opts.SourceFile}
			}
			slot, err := p.buildSlot(slotName, attrMap)
			if err != nil {
				return nil, err
			}
			c.Attributes.Set(intern(slotName), slot)
			c.Slots = append(c.Slots, slotName)
		}
	}

	if err := p.parseUniqueKeys(c, def); err != nil {
		return nil, err
	}
	if err := p.parseRules(c, def); err != nil {
		return nil, err
	}
	if err := p.parseConditionalRequirements(c, def); err != nil {
		return nil, err
	}

	return c, nil
}

func (p *parseState) parseUniqueKeys(c *Class, def map[string]any) error {
	uks, ok := def["unique_keys"].(map[string]any)
	if !ok {
		return nil
	}
	for name, spec := range uks {
		specMap, ok := spec.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: "unique_keys." + name, File: p.opts.SourceFile}
		}
		uk := &UniqueKey{Name: intern(name), SlotNames: stringSlice(specMap["unique_key_slots"])}
		if v, ok := specMap["consider_nulls_unequal"].(bool); ok {
			uk.ConsiderNullsUnequal = v
		} else {
			uk.ConsiderNullsUnequal = true
		}
		c.UniqueKeys = append(c.UniqueKeys, uk)
	}
	return nil
}

func (p *parseState) parseRules(c *Class, def map[string]any) error {
	rules, ok := def["rules"].([]any)
	if !ok {
		return nil
	}
	for _, r := range rules {
		rMap, ok := r.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: c.Name + ".rules", File: p.opts.SourceFile}
		}
		rule := &Rule{}
		rule.Title, _ = rMap["title"].(string)
		rule.Description, _ = rMap["description"].(string)
		rule.PreconditionExpr, _ = rMap["precondition"].(string)
		switch effect, _ := rMap["effect"].(string); effect {
		case "compute_attribute":
			rule.Effect = RuleEffectComputeAttribute
			rule.ComputedSlotName, _ = rMap["computed_slot"].(string)
			rule.ComputedExpr, _ = rMap["computed_expression"].(string)
		case "report_error":
			rule.Effect = RuleEffectReportError
			rule.ErrorMessage, _ = rMap["error_message"].(string)
		default:
			rule.Effect = RuleEffectRequireSlots
			rule.RequiredSlots = stringSlice(rMap["required_slots"])
		}
		c.Rules = append(c.Rules, rule)
	}
	return nil
}

func (p *parseState) parseConditionalRequirements(c *Class, def map[string]any) error {
	conds, ok := def["if_required"].([]any)
	if !ok {
		return nil
	}
	for _, cond := range conds {
		cMap, ok := cond.(map[string]any)
		if !ok {
			return &ParseError{Kind: ParseErrorTypeMismatch, Path: c.Name + ".if_required", File: p.opts.SourceFile}
		}
		cr := &ConditionalRequirement{}
		cr.TriggerSlot, _ = cMap["trigger_slot"].(string)
		cr.RequiredSlots = stringSlice(cMap["required_slots"])
		switch field, _ := cMap["field"].(string); field {
		case "matches":
			cr.Field = CondMatches
			cr.Pattern, _ = cMap["pattern"].(string)
		case "in_range":
			cr.Field = CondInRange
			if v, ok := cMap["minimum_value"]; ok {
				n, err := numberFromAny("minimum_value", v)
				if err != nil {
					return err
				}
				cr.MinimumValue = n
			}
			if v, ok := cMap["maximum_value"]; ok {
				n, err := numberFromAny("maximum_value", v)
				if err != nil {
					return err
				}
				cr.MaximumValue = n
			}
		case "equals":
			cr.Field = CondEquals
			cr.EqualsValue = cMap["equals_value"]
		default:
			cr.Field = CondFieldPresent
		}
		c.ConditionalRequirements = append(c.ConditionalRequirements, cr)
	}
	return nil
}
