package linkml

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ValidationOptions controls one validation call; it merges over
// schema.Settings.Validation with call-site options taking precedence
// (component H, §4.H).
type ValidationOptions struct {
	MaxDepth                  int
	FailFast                  bool
	CheckPermissibles         bool
	UseCache                  bool
	Parallel                  bool
	AllowAdditionalProperties bool
	Abort                     <-chan struct{}
}

func (o ValidationOptions) mergedWith(s ValidationSettings) ValidationOptions {
	merged := o
	if merged.MaxDepth == 0 {
		merged.MaxDepth = s.MaxDepth
	}
	if !merged.FailFast {
		merged.FailFast = s.FailFast
	}
	if !merged.CheckPermissibles {
		merged.CheckPermissibles = s.CheckPermissibles
	}
	if !merged.AllowAdditionalProperties {
		merged.AllowAdditionalProperties = s.AllowAdditionalProperties
	}
	return merged
}

func (o ValidationOptions) compileOptions() CompileOptions {
	return CompileOptions{
		CheckPermissibles:         o.CheckPermissibles,
		AllowAdditionalProperties: o.AllowAdditionalProperties,
	}
}

func (o ValidationOptions) cancelled() bool {
	if o.Abort == nil {
		return false
	}
	select {
	case <-o.Abort:
		return true
	default:
		return false
	}
}

// ValidationEngine orchestrates validation against a single resolved
// Schema: class resolution, compiled-validator lookup, path tracking, and
// report accumulation (component H).
type ValidationEngine struct {
	schema   *Schema
	compiler *Compiler
	limiter  *ResourceLimiter
	logger   *zap.SugaredLogger
}

// NewValidationEngine returns an engine bound to schema, using compiler to
// produce and cache compiled validators.
func NewValidationEngine(schema *Schema, compiler *Compiler) *ValidationEngine {
	return &ValidationEngine{
		schema:   schema,
		compiler: compiler,
		limiter:  NewResourceLimiter(compiler.resourceLimits),
		logger:   compiler.logger,
	}
}

// SetLimiter installs a caller-supplied ResourceLimiter instead of the
// default derived from the compiler's settings.
func (e *ValidationEngine) SetLimiter(limiter *ResourceLimiter) *ValidationEngine {
	e.limiter = limiter
	return e
}

// validationContext carries per-call scratch state: path segments, the
// class stack (for recursive class-ranged slots), and the report
// accumulator (component H, "Context tracks").
type validationContext struct {
	engine     *ValidationEngine
	opts       ValidationOptions
	ctx           context.Context // watchdog-bounded context from the acquired resourceGuard
	pathStack     []string
	classStack    []string
	report        *ValidationReport
	validators    int
	currentObject map[string]any // sibling values for equals_expression/rules/conditionals
}

// siblingContext returns the evaluation context exprlang needs to evaluate
// an expression against the instance currently being validated.
func (c *validationContext) siblingContext() map[string]any {
	return c.currentObject
}

func newValidationContext(e *ValidationEngine, opts ValidationOptions, ctx context.Context) *validationContext {
	return &validationContext{engine: e, opts: opts, ctx: ctx, report: NewValidationReport()}
}

// cancelled reports whether the caller's abort channel fired or the
// watchdog-bounded context expired, either of which should stop the
// validation body and mark the report incomplete rather than erroring.
func (c *validationContext) cancelled() bool {
	if c.opts.cancelled() {
		return true
	}
	if c.ctx == nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

func (c *validationContext) pushPath(seg string) { c.pathStack = append(c.pathStack, seg) }
func (c *validationContext) popPath()            { c.pathStack = c.pathStack[:len(c.pathStack)-1] }
func (c *validationContext) path() string        { return strings.Join(c.pathStack, ".") }

func (c *validationContext) pushClass(name string) { c.classStack = append(c.classStack, name) }
func (c *validationContext) popClass()             { c.classStack = c.classStack[:len(c.classStack)-1] }
func (c *validationContext) depth() int            { return len(c.classStack) }

// Validate infers the target class: an explicit "@type" key on value, else
// the unique tree_root-marked class, else an error (component H).
func (e *ValidationEngine) Validate(ctx context.Context, value any, opts ValidationOptions) (*ValidationReport, error) {
	className, err := e.inferClass(value)
	if err != nil {
		return nil, err
	}
	return e.ValidateAsClass(ctx, value, className, opts)
}

func (e *ValidationEngine) inferClass(value any) (string, error) {
	if obj, ok := value.(map[string]any); ok {
		if t, ok := obj["@type"].(string); ok && t != "" {
			return t, nil
		}
	}

	var root string
	count := 0
	e.schema.Classes.Range(func(name string, c *Class) bool {
		if c.TreeRoot {
			root = name
			count++
		}
		return true
	})
	if count == 0 {
		return "", ErrNoTargetClass
	}
	if count > 1 {
		return "", ErrAmbiguousTreeRoot
	}
	return root, nil
}

// ValidateAsClass validates value against the named class.
func (e *ValidationEngine) ValidateAsClass(ctx context.Context, value any, className string, opts ValidationOptions) (*ValidationReport, error) {
	guard, err := e.limiter.Acquire(ctx, estimateSize(value))
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	start := time.Now()
	opts = opts.mergedWith(e.schema.Settings.Validation)

	cv, err := e.compiler.Compile(e.schema, className, opts.compileOptions())
	if err != nil {
		return nil, err
	}

	vc := newValidationContext(e, opts, guard.Context())
	vc.pushClass(className)
	e.runClassValidator(vc, cv, value)
	vc.popClass()

	vc.report.Stats.DurationMS = time.Since(start).Milliseconds()
	vc.report.Stats.TotalValidated = 1
	vc.report.Stats.ValidatorsExecuted = vc.validators
	vc.report.Stats.CacheHitRate = e.compiler.cache.HitRate()
	return vc.report, nil
}

// ValidateCollection validates each value in values against className,
// additionally enforcing cross-instance identifier and unique-key
// constraints for the duration of the call (component K).
func (e *ValidationEngine) ValidateCollection(ctx context.Context, values []any, className string, opts ValidationOptions) (*ValidationReport, error) {
	opts = opts.mergedWith(e.schema.Settings.Validation)
	aggregate := NewValidationReport()

	if _, ok := e.schema.Classes.Get(className); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, className)
	}

	cv, err := e.compiler.Compile(e.schema, className, opts.compileOptions())
	if err != nil {
		return nil, err
	}
	tracker := newCollectionTracker(cv)

	for i, value := range values {
		if opts.cancelled() || ctx.Err() != nil {
			aggregate.Incomplete = true
			break
		}
		guard, err := e.limiter.Acquire(ctx, estimateSize(value))
		if err != nil {
			return nil, err
		}

		vc := newValidationContext(e, opts, guard.Context())
		vc.pushPath(fmt.Sprintf("[%d]", i))
		vc.pushClass(className)
		e.runClassValidator(vc, cv, value)
		tracker.check(vc, value)
		vc.popClass()
		vc.popPath()

		guard.Release()
		aggregate.Merge(vc.report)

		if opts.FailFast && !aggregate.Valid {
			break
		}
	}

	aggregate.Stats.TotalValidated = len(values)
	aggregate.Stats.CacheHitRate = e.compiler.cache.HitRate()
	return aggregate, nil
}

func (e *ValidationEngine) runClassValidator(vc *validationContext, cv *ClassValidator, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		vc.report.AddIssue(NewIssue(CodeTypeMismatch, vc.path(), "expected an object, got {actual}",
			map[string]any{"actual": describeType(value)}))
		return
	}

	prevObject := vc.currentObject
	vc.currentObject = obj
	defer func() { vc.currentObject = prevObject }()

	seenKeys := make(map[string]bool, len(obj))

	for _, sp := range cv.SlotPipelines {
		if vc.cancelled() {
			vc.report.Incomplete = true
			return
		}
		rawValue, present := obj[sp.Name]
		seenKeys[sp.Name] = true

		if !present || rawValue == nil {
			if sp.Slot != nil && boolVal(sp.Slot.Required) {
				vc.report.AddIssue(NewIssue(CodeMissingRequired, joinPath(vc.path(), sp.Name),
					"required slot {slot} is missing", map[string]any{"slot": sp.Name}))
			}
			if vc.opts.FailFast && !vc.report.Valid {
				return
			}
			continue
		}

		vc.pushPath(sp.Name)
		e.runSlotPipeline(vc, sp, rawValue)
		vc.popPath()

		if vc.opts.FailFast && !vc.report.Valid {
			return
		}
	}

	if !vc.opts.AllowAdditionalProperties {
		for key := range obj {
			if key == "@type" || seenKeys[key] {
				continue
			}
			vc.report.AddIssue(NewWarning(CodeAdditionalProperty, joinPath(vc.path(), key),
				"unexpected property {property}", map[string]any{"property": key}))
		}
	}

	for _, cond := range cv.ConditionalRequirements {
		vc.validators++
		evaluateConditionalRequirement(vc, obj, cond)
		if vc.opts.FailFast && !vc.report.Valid {
			return
		}
	}

	for _, uk := range cv.UniqueKeys {
		vc.validators++
		evaluateLocalUniqueKey(vc, obj, uk)
		if vc.opts.FailFast && !vc.report.Valid {
			return
		}
	}

	for _, rule := range cv.Rules {
		vc.validators++
		rule.run(vc, obj)
		if vc.opts.FailFast && !vc.report.Valid {
			return
		}
	}
}

func (e *ValidationEngine) runSlotPipeline(vc *validationContext, sp *slotPipeline, value any) {
	for _, v := range sp.Validators {
		if vc.cancelled() {
			vc.report.Incomplete = true
			return
		}
		vc.validators++
		v(vc, value)
		if vc.opts.FailFast && !vc.report.Valid {
			return
		}
	}

	if sp.RecursiveClass == "" {
		return
	}
	if vc.depth() >= maxRecursionDepth(vc.opts) {
		vc.report.AddIssue(NewIssue(CodeTypeMismatch, vc.path(), "maximum nesting depth exceeded"))
		return
	}

	cv, err := e.compiler.Compile(e.schema, sp.RecursiveClass, vc.opts.compileOptions())
	if err != nil {
		vc.report.AddIssue(NewIssue(CodeUnresolvedClass, vc.path(), err.Error()))
		return
	}

	if sp.Multivalued {
		arr, ok := value.([]any)
		if !ok {
			return
		}
		vc.pushClass(sp.RecursiveClass)
		for i, item := range arr {
			vc.pushPath(fmt.Sprintf("[%d]", i))
			e.runClassValidator(vc, cv, item)
			vc.popPath()
		}
		vc.popClass()
		return
	}

	vc.pushClass(sp.RecursiveClass)
	e.runClassValidator(vc, cv, value)
	vc.popClass()
}

func maxRecursionDepth(opts ValidationOptions) int {
	if opts.MaxDepth > 0 {
		return opts.MaxDepth
	}
	return 100
}

func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "." + seg
}

func describeType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func estimateSize(value any) int {
	switch v := value.(type) {
	case string:
		return len(v)
	case map[string]any:
		size := 0
		for k, val := range v {
			size += len(k) + estimateSize(val)
		}
		return size
	case []any:
		size := 0
		for _, val := range v {
			size += estimateSize(val)
		}
		return size
	default:
		return 8
	}
}
