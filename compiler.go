package linkml

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Compiler turns a resolved Schema and a class name into an executable
// ClassValidator, consulting the multi-layer cache (component I) before
// building a fresh pipeline (component G).
type Compiler struct {
	mu     sync.RWMutex
	cache  *ValidatorCache
	logger *zap.SugaredLogger
	warmer *CacheWarmer

	// resourceLimits are copied onto any ValidationEngine built from this
	// compiler's output, unless the caller supplies its own.
	resourceLimits ResourceLimits
}

// NewCompiler returns a Compiler with an L1 cache of the given size and a
// no-op logger.
func NewCompiler(cacheSize int) *Compiler {
	return &Compiler{
		cache:          NewValidatorCache(cacheSize),
		logger:         zap.NewNop().Sugar(),
		resourceLimits: DefaultResourceLimits(),
	}
}

// SetLogger installs a structured logger, chaining like the teacher's
// Compiler setters.
func (c *Compiler) SetLogger(logger *zap.SugaredLogger) *Compiler {
	c.logger = logger
	return c
}

// SetResourceLimits installs the ResourceLimits copied onto ValidationEngines
// built by this compiler.
func (c *Compiler) SetResourceLimits(limits ResourceLimits) *Compiler {
	c.resourceLimits = limits
	return c
}

// SetWarmer installs a CacheWarmer that records every cache lookup made
// through Compile, so its frequency-based strategy sees real access
// patterns.
func (c *Compiler) SetWarmer(warmer *CacheWarmer) *Compiler {
	c.warmer = warmer
	return c
}

// CompileOptions narrows or widens what the compiled pipeline enforces;
// part of the fingerprint so distinct options never collide in the cache.
type CompileOptions struct {
	CheckPermissibles         bool
	AllowAdditionalProperties bool
}

func (o CompileOptions) hash() string {
	return fmt.Sprintf("perm=%v addl=%v", o.CheckPermissibles, o.AllowAdditionalProperties)
}

// Compile returns the compiled validator for className within schema,
// building and caching it if not already present.
func (c *Compiler) Compile(schema *Schema, className string, opts CompileOptions) (*ClassValidator, error) {
	if !schema.Frozen() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, "schema must be merged and frozen before compilation")
	}

	class, ok := schema.Classes.Get(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, className)
	}

	key := ValidatorCacheKey{
		SchemaID:    schema.ID,
		SchemaHash:  SchemaFingerprint(schema),
		ClassName:   className,
		OptionsHash: opts.hash(),
	}

	if c.warmer != nil {
		c.warmer.RecordAccess(key)
	}

	if v, ok := c.cache.Get(key); ok {
		c.logger.Debugw("validator cache hit", "class", className, "schema_id", schema.ID)
		return v, nil
	}

	c.logger.Debugw("compiling validator", "class", className, "schema_id", schema.ID)

	slots, err := EffectiveSlots(schema, class)
	if err != nil {
		return nil, err
	}

	cv := &ClassValidator{
		ClassName:   className,
		Fingerprint: key,
		Options:     opts,
	}

	knownVars := make(map[string]bool, len(slots.order))
	for _, slotName := range slots.order {
		knownVars[slotName] = true
	}

	for _, slotName := range slots.order {
		slot := slots.bySlot[slotName]
		pipeline, err := compileSlotPipeline(schema, slotName, slot, opts, knownVars)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slotName, err)
		}
		cv.SlotPipelines = append(cv.SlotPipelines, pipeline)
	}

	cv.ConditionalRequirements = class.ConditionalRequirements
	cv.UniqueKeys = class.UniqueKeys

	for _, rule := range class.Rules {
		compiled, err := compileRule(rule, knownVars)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Title, err)
		}
		cv.Rules = append(cv.Rules, compiled)
	}

	c.cache.Put(key, cv)
	return cv, nil
}

// ClassValidator is the compiled, immutable artifact the validation engine
// runs against instances of one class (component G).
type ClassValidator struct {
	ClassName                string
	Fingerprint              ValidatorCacheKey
	Options                  CompileOptions
	SlotPipelines            []*slotPipeline
	ConditionalRequirements  []*ConditionalRequirement
	UniqueKeys               []*UniqueKey
	Rules                    []*compiledRule
}
