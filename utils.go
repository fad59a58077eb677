package linkml

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// replace substitutes {placeholder} tokens in a message template with
// their values from params.
func replace(template string, params map[string]any) string {
	for key, value := range params {
		placeholder := "{" + key + "}"
		template = strings.ReplaceAll(template, placeholder, fmt.Sprint(value))
	}
	return template
}

// getURLScheme extracts the scheme component of a URL string, or "" if it
// does not parse as a URL.
func getURLScheme(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return parsed.Scheme
}

// isRemoteImport reports whether an import path is an http(s) or urn
// reference rather than a relative filesystem path (component C, §4.C step
// 2: "if path looks like a URL").
func isRemoteImport(p string) bool {
	scheme := getURLScheme(p)
	return scheme == "http" || scheme == "https" || scheme == "urn"
}

// resolveImportPath resolves a relative import path against baseDir using
// the given strategy, without touching the filesystem.
func resolveImportPath(baseDir, importPath string, strategy ResolutionStrategy) string {
	if isRemoteImport(importPath) {
		return importPath
	}
	switch strategy {
	case StrategyAbsolute:
		if path.IsAbs(importPath) {
			return importPath
		}
		return path.Join(baseDir, importPath)
	case StrategyMixed:
		if path.IsAbs(importPath) {
			return importPath
		}
		return path.Join(baseDir, importPath)
	default: // StrategyRelative
		return path.Join(baseDir, importPath)
	}
}

// schemaFileCandidates returns the file extensions tried, in order, when an
// import path names no extension (component C, §4.C: "try extensions
// {yaml, yml, json}").
func schemaFileCandidates(base string) []string {
	if strings.Contains(path.Base(base), ".") {
		return []string{base}
	}
	return []string{base + ".yaml", base + ".yml", base + ".json"}
}

// regexCache memoizes compiled patterns across slots/types that repeat the
// same regex text, avoiding redundant PCRE-like compilation at validator-
// compile time (component G, §4.G "compile regex once at compile time").
type regexCache struct {
	mu    sync.Mutex
	cache map[string]*regexp2.Regexp
}

var sharedRegexCache = &regexCache{cache: make(map[string]*regexp2.Regexp)}

// compilePattern compiles pattern once and caches it; subsequent calls with
// the same pattern text return the cached *regexp2.Regexp.
func compilePattern(pattern string) (*regexp2.Regexp, error) {
	sharedRegexCache.mu.Lock()
	if re, ok := sharedRegexCache.cache[pattern]; ok {
		sharedRegexCache.mu.Unlock()
		return re, nil
	}
	sharedRegexCache.mu.Unlock()

	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}

	sharedRegexCache.mu.Lock()
	sharedRegexCache.cache[pattern] = re
	sharedRegexCache.mu.Unlock()
	return re, nil
}

// matchPattern reports whether value matches the compiled pattern.
func matchPattern(re *regexp2.Regexp, value string) (bool, error) {
	m, err := re.MatchString(value)
	if err != nil {
		return false, err
	}
	return m, nil
}

// boolVal reads a tri-state slot flag (Required, Recommended, Multivalued,
// Identifier, Key), treating an unset pointer as false — unset is distinct
// from explicitly-false only for slot_usage overlay purposes (inherit.go).
func boolVal(b *bool) bool {
	return b != nil && *b
}

// boolPtrEqual compares two tri-state flags for structural equality,
// treating nil and a pointer-to-false as distinct (§4.C merge comparison
// must not treat "unset" and "explicitly false" as the same declaration).
func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// coerceIdentifierName normalizes a raw schema-document identifier into the
// canonical form used for interning and lookup (component A, invariant 1):
// trims surrounding whitespace only — LinkML names are otherwise taken
// verbatim, validity is checked separately by the identifier-name pattern.
func coerceIdentifierName(raw string) string {
	return strings.TrimSpace(raw)
}
