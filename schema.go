package linkml

// Schema is the root of the LinkML data model: a named collection of
// classes, slots, types, and enums plus the metadata needed to resolve and
// merge it with imported schemas (component A).
type Schema struct {
	ID            string // URI identifying this schema.
	Name          string
	Version       string
	Title         string
	Description   string
	License       string
	DefaultPrefix string
	DefaultRange  string
	Prefixes      map[string]*Prefix
	Imports       []*ImportSpec
	Classes       *OrderedMap[*Class]
	Slots         *OrderedMap[*Slot]
	Types         *OrderedMap[*Type]
	Enums         *OrderedMap[*Enum]
	Subsets       *OrderedMap[struct{}]
	Settings      Settings

	// sourceFile/sourceLine record where this schema was parsed from, for
	// diagnostics. Populated by the parser, never touched by merge.
	sourceFile string
	sourceLine int

	// frozen is set once import resolution completes; Compile requires it.
	// The setters do not check it.
	frozen bool
}

// ImportSpec is one entry of a schema's `imports` list, carrying the
// optional alias/prefix/only/exclude modifiers the import resolver
// consumes (component C).
type ImportSpec struct {
	Path     string
	Alias    string
	Prefix   string
	Only     []string
	Exclude  []string
	Optional bool
}

// Settings holds the optional schema-level knobs.
type Settings struct {
	Validation ValidationSettings
	Imports    ImportSettings
}

// ValidationSettings mirrors the schema-level `settings.validation` block.
type ValidationSettings struct {
	FailFast                  bool
	CheckPermissibles         bool
	MaxDepth                  int
	AllowAdditionalProperties bool
}

// ResolutionStrategy selects how relative import paths are resolved
// against search paths.
type ResolutionStrategy string

const (
	StrategyRelative ResolutionStrategy = "relative"
	StrategyAbsolute ResolutionStrategy = "absolute"
	StrategyMixed    ResolutionStrategy = "mixed"
)

// ImportSettings mirrors the schema-level `settings.imports` block.
type ImportSettings struct {
	SearchPaths        []string
	Aliases            map[string]string
	MaxImportDepth     int
	CacheImports       bool
	ResolutionStrategy ResolutionStrategy
	BaseURL            string
}

// Prefix maps a short name to a URI.
type Prefix struct {
	Name string
	URI  string
}

// Class is a named record type.
type Class struct {
	Name                    string
	IsA                     string
	Mixins                  []string
	Abstract                bool
	Mixin                   bool
	TreeRoot                bool
	Slots                   []string // ordered slot references, by name
	SlotUsage               map[string]*Slot
	Attributes              *OrderedMap[*Slot] // slots declared inline on the class
	UniqueKeys              []*UniqueKey
	Rules                   []*Rule
	ConditionalRequirements []*ConditionalRequirement
	RecursionPolicy         *RecursionPolicy

	sourceFile string
	sourceLine int
}

// RecursionPolicy bounds self-referential class validation.
type RecursionPolicy struct {
	MaxDepth int
}

// Slot is a named field, declared at schema level or overridden inline on
// a class via slot_usage or attributes.
type Slot struct {
	Name               string
	Range              string // type/class/enum reference; empty inherits default_range
	Required           *bool
	Recommended        *bool
	Multivalued        *bool
	Identifier         *bool
	Key                *bool
	Inlined            bool
	InlinedAsList      bool
	Pattern            string
	StructuredPattern  *StructuredPattern
	MinimumValue       *Number
	MaximumValue       *Number
	MinimumCardinality *int
	MaximumCardinality *int
	PermissibleValues  []*PermissibleValue // inline enum, when Range is empty
	EqualsString       string
	EqualsStringIn     []string
	EqualsExpression   string
	Annotations        map[string]any
	Rank               int
}

// StructuredPattern composes a regex from named interpolated variables;
// the pattern validator substitutes each instance's sibling slot values
// into Syntax and compiles the result per validated instance.
type StructuredPattern struct {
	Syntax           string
	InterpolatedVars []string
}

// Type is a named primitive refinement.
type Type struct {
	Name         string
	Base         PrimitiveBase
	Pattern      string
	MinimumValue *Number
	MaximumValue *Number
	ParentType   string
}

// PrimitiveBase enumerates the primitive bases a Type may refine.
type PrimitiveBase string

const (
	BaseString   PrimitiveBase = "string"
	BaseInteger  PrimitiveBase = "integer"
	BaseFloat    PrimitiveBase = "float"
	BaseDouble   PrimitiveBase = "double"
	BaseBoolean  PrimitiveBase = "boolean"
	BaseDate     PrimitiveBase = "date"
	BaseDateTime PrimitiveBase = "datetime"
	BaseTime     PrimitiveBase = "time"
	BaseURI      PrimitiveBase = "uri"
)

// Enum is a named set of permissible values.
type Enum struct {
	Name              string
	PermissibleValues []*PermissibleValue
}

// PermissibleValue is a single allowed literal for an enum-ranged slot.
type PermissibleValue struct {
	Text        string
	Description string
	Meaning     string
}

// UniqueKey names a composite tuple of slot names that must be unique
// across a collection.
type UniqueKey struct {
	Name                 string
	SlotNames            []string
	ConsiderNullsUnequal bool // default true: each null is a distinct value; when false, a null in any member slot suppresses tracking
}

// ConditionField identifies which kind of test a ConditionalRequirement
// performs against its triggering slot.
type ConditionField string

const (
	CondEquals       ConditionField = "equals"
	CondMatches      ConditionField = "matches"
	CondInRange      ConditionField = "in_range"
	CondFieldPresent ConditionField = "field_present"
)

// ConditionalRequirement is a triggering condition over one slot and the
// slots it requires when the condition fires.
type ConditionalRequirement struct {
	TriggerSlot   string
	Field         ConditionField
	EqualsValue   any
	Pattern       string
	MinimumValue  *Number
	MaximumValue  *Number
	RequiredSlots []string
}

// RuleEffect selects what a Rule does when its precondition evaluates
// truthy.
type RuleEffect int

const (
	RuleEffectRequireSlots RuleEffect = iota
	RuleEffectComputeAttribute
	RuleEffectReportError
)

// Rule is an expression-language precondition plus an effect.
type Rule struct {
	Title            string
	Description      string
	PreconditionExpr string
	Effect           RuleEffect
	RequiredSlots    []string // when Effect == RuleEffectRequireSlots
	ComputedSlotName string   // when Effect == RuleEffectComputeAttribute
	ComputedExpr     string
	ErrorMessage     string // when Effect == RuleEffectReportError
}

// Number is an exact rational value used for minimum_value/maximum_value so
// bound comparisons never drift under float rounding, grounded on the
// teacher's Rat wrapper around math/big.Rat.
type Number = Rat

// NewSchema returns an empty, mutable Schema ready for the parser to
// populate.
func NewSchema(id, name string) *Schema {
	return &Schema{
		ID:       id,
		Name:     name,
		Prefixes: make(map[string]*Prefix),
		Classes:  NewOrderedMap[*Class](),
		Slots:    NewOrderedMap[*Slot](),
		Types:    NewOrderedMap[*Type](),
		Enums:    NewOrderedMap[*Enum](),
		Subsets:  NewOrderedMap[struct{}](),
	}
}

// Freeze marks the schema as merged; import resolution calls it on the
// merged schema, and Compile rejects a schema that is not frozen. It does
// not lock the schema: later mutation through the setters still succeeds.
func (s *Schema) Freeze() { s.frozen = true }

// Frozen reports whether the schema has completed import resolution.
func (s *Schema) Frozen() bool { return s.frozen }
