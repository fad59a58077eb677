package linkml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCache_GetPutRoundTrip(t *testing.T) {
	cache := NewValidatorCache(4)
	key := ValidatorCacheKey{SchemaID: "s1", ClassName: "Person", OptionsHash: "opts"}

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cv := &ClassValidator{ClassName: "Person"}
	cache.Put(key, cv)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Same(t, cv, got)
	assert.Equal(t, 1, cache.Len())
}

func TestValidatorCache_EvictsLRU(t *testing.T) {
	cache := NewValidatorCache(2)
	keyA := ValidatorCacheKey{SchemaID: "s1", ClassName: "A"}
	keyB := ValidatorCacheKey{SchemaID: "s1", ClassName: "B"}
	keyC := ValidatorCacheKey{SchemaID: "s1", ClassName: "C"}

	cache.Put(keyA, &ClassValidator{ClassName: "A"})
	cache.Put(keyB, &ClassValidator{ClassName: "B"})
	cache.Put(keyC, &ClassValidator{ClassName: "C"}) // evicts A (least recently used)

	_, ok := cache.Get(keyA)
	assert.False(t, ok)
	_, ok = cache.Get(keyB)
	assert.True(t, ok)
	_, ok = cache.Get(keyC)
	assert.True(t, ok)
}

func TestValidatorCache_InvalidateBySchemaID(t *testing.T) {
	cache := NewValidatorCache(8)
	cache.Put(ValidatorCacheKey{SchemaID: "s1", ClassName: "A"}, &ClassValidator{})
	cache.Put(ValidatorCacheKey{SchemaID: "s2", ClassName: "B"}, &ClassValidator{})

	cache.Invalidate("s1")

	_, ok := cache.Get(ValidatorCacheKey{SchemaID: "s1", ClassName: "A"})
	assert.False(t, ok)
	_, ok = cache.Get(ValidatorCacheKey{SchemaID: "s2", ClassName: "B"})
	assert.True(t, ok)
}

func TestValidatorCache_HitRate(t *testing.T) {
	cache := NewValidatorCache(4)
	key := ValidatorCacheKey{SchemaID: "s1", ClassName: "A"}
	cache.Put(key, &ClassValidator{})

	cache.Get(key)                                       // hit
	cache.Get(ValidatorCacheKey{SchemaID: "nope"})        // miss

	assert.InDelta(t, 0.5, cache.HitRate(), 0.001)
}

func TestValidatorCache_ExpiresAfterTTL(t *testing.T) {
	cache := NewValidatorCache(4)
	cache.ttl = time.Millisecond
	key := ValidatorCacheKey{SchemaID: "s1", ClassName: "A"}
	cache.Put(key, &ClassValidator{})

	time.Sleep(5 * time.Millisecond)
	_, ok := cache.Get(key)
	assert.False(t, ok)
}

func TestCompiler_CompileCachesByOptions(t *testing.T) {
	s := personSchema()
	compiler := NewCompiler(8)

	cv1, err := compiler.Compile(s, "Person", CompileOptions{CheckPermissibles: false})
	require.NoError(t, err)
	cv2, err := compiler.Compile(s, "Person", CompileOptions{CheckPermissibles: false})
	require.NoError(t, err)
	assert.Same(t, cv1, cv2, "identical options should hit the cache")

	cv3, err := compiler.Compile(s, "Person", CompileOptions{CheckPermissibles: true})
	require.NoError(t, err)
	assert.NotSame(t, cv1, cv3, "distinct options must not collide in the cache key")
}

func TestCompiler_CompileRejectsUnfrozenSchema(t *testing.T) {
	s := NewSchema("https://example.org/unfrozen", "unfrozen")
	compiler := NewCompiler(8)
	_, err := compiler.Compile(s, "Person", CompileOptions{})
	require.Error(t, err)
}
