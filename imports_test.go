package linkml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryLoader(files map[string]string) SchemaLoader {
	return func(pathOrURL string) ([]byte, error) {
		if content, ok := files[pathOrURL]; ok {
			return []byte(content), nil
		}
		return nil, ErrImportNotFound
	}
}

func TestImportResolver_MergesImportedClasses(t *testing.T) {
	files := map[string]string{
		"core.yaml": `
id: https://example.org/core
name: core
slots:
  id:
    identifier: true
    range: string
classes:
  Shared:
    slots:
      - id
`,
	}

	root, err := Parse([]byte(`
id: https://example.org/root
name: root
imports:
  - core
classes:
  Root:
    slots: []
`), ParserOptions{})
	require.NoError(t, err)

	resolver := NewImportResolver("", ImportSettings{}, memoryLoader(files))
	merged, err := resolver.Resolve(root)
	require.NoError(t, err)

	assert.True(t, merged.Frozen())
	_, ok := merged.Classes.Get("Shared")
	assert.True(t, ok, "imported class should be merged into the root schema")
	_, ok = merged.Classes.Get("Root")
	assert.True(t, ok)
}

func TestImportResolver_CircularImportDetected(t *testing.T) {
	files := map[string]string{
		"a.yaml": "id: https://example.org/a\nname: a\nimports:\n  - b\n",
		"b.yaml": "id: https://example.org/b\nname: b\nimports:\n  - a\n",
	}

	root, err := Parse([]byte(files["a.yaml"]), ParserOptions{})
	require.NoError(t, err)

	resolver := NewImportResolver("", ImportSettings{}, memoryLoader(files))
	_, err = resolver.Resolve(root)
	require.ErrorIs(t, err, ErrCircularImport)
}

func TestImportResolver_OptionalImportMissingIsTolerated(t *testing.T) {
	root, err := Parse([]byte(`
id: https://example.org/root
name: root
imports:
  - path: does-not-exist
    optional: true
`), ParserOptions{})
	require.NoError(t, err)

	resolver := NewImportResolver("", ImportSettings{}, memoryLoader(nil))
	merged, err := resolver.Resolve(root)
	require.NoError(t, err)
	assert.True(t, merged.Frozen())
}

func TestImportResolver_RequiredImportMissingErrors(t *testing.T) {
	root, err := Parse([]byte(`
id: https://example.org/root
name: root
imports:
  - does-not-exist
`), ParserOptions{})
	require.NoError(t, err)

	resolver := NewImportResolver("", ImportSettings{}, memoryLoader(nil))
	_, err = resolver.Resolve(root)
	require.ErrorIs(t, err, ErrImportNotFound)
}

func TestImportResolver_PrefixRenamesImportedClasses(t *testing.T) {
	files := map[string]string{
		"core.yaml": `
id: https://example.org/core
name: core
slots:
  id:
    range: string
classes:
  Shared:
    slots:
      - id
`,
	}

	root, err := Parse([]byte(`
id: https://example.org/root
name: root
imports:
  - path: core
    prefix: core
`), ParserOptions{})
	require.NoError(t, err)

	resolver := NewImportResolver("", ImportSettings{}, memoryLoader(files))
	merged, err := resolver.Resolve(root)
	require.NoError(t, err)

	_, ok := merged.Classes.Get("core_Shared")
	assert.True(t, ok)
	_, ok = merged.Classes.Get("Shared")
	assert.False(t, ok)
}

// TestImportResolver_ReCollisionOnQualifiedNameErrors reproduces a
// re-collision: the root schema already defines both "Shared" and the
// would-be-qualified "core_Shared" with definitions that differ from the
// imported "Shared", so qualifying the conflict can't find a free name.
func TestImportResolver_ReCollisionOnQualifiedNameErrors(t *testing.T) {
	files := map[string]string{
		"core.yaml": `
id: https://example.org/core
name: core
slots:
  id:
    range: string
  name:
    range: string
classes:
  Shared:
    slots:
      - id
      - name
`,
	}

	root, err := Parse([]byte(`
id: https://example.org/root
name: root
imports:
  - core
classes:
  Shared:
    slots:
      - id
  core_Shared:
    slots:
      - id
      - name
      - extra
  Root:
    slots: []
`), ParserOptions{})
	require.NoError(t, err)

	resolver := NewImportResolver("", ImportSettings{}, memoryLoader(files))
	_, err = resolver.Resolve(root)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrMergeConflict)

	var mergeErr *MergeConflictError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "class", mergeErr.Kind)
	assert.Equal(t, "Shared", mergeErr.Name)
	assert.Equal(t, "core_Shared", mergeErr.Qualified)
}
