package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFirstURLWithExtensions(t *testing.T) {
	t.Run("finds a url nested in maps and slices", func(t *testing.T) {
		doc := map[string]any{
			"a": map[string]any{
				"b": []any{"thumb.png", "https://cdn.example.com/mesh.glb"},
			},
		}
		got := findFirstURLWithExtensions(doc, meshExtensions)
		assert.Equal(t, "https://cdn.example.com/mesh.glb", got)
	})

	t.Run("matches case-insensitively but returns the original", func(t *testing.T) {
		doc := []any{"https://cdn.example.com/MESH.GLB"}
		got := findFirstURLWithExtensions(doc, meshExtensions)
		assert.Equal(t, "https://cdn.example.com/MESH.GLB", got)
	})

	t.Run("breadth first prefers shallow matches", func(t *testing.T) {
		doc := map[string]any{
			"deep":    map[string]any{"x": "buried.obj"},
			"shallow": "top.glb",
		}
		got := findFirstURLWithExtensions(doc, meshExtensions)
		assert.Equal(t, "top.glb", got)
	})

	t.Run("returns empty when nothing matches", func(t *testing.T) {
		doc := map[string]any{"a": []any{"x.png", float64(3), true, nil}}
		assert.Empty(t, findFirstURLWithExtensions(doc, meshExtensions))
	})

	t.Run("terminates on self-referential structures", func(t *testing.T) {
		inner := map[string]any{}
		inner["self"] = inner
		doc := map[string]any{"loop": inner, "list": []any{inner}}

		assert.Empty(t, findFirstURLWithExtensions(doc, meshExtensions))
	})

	t.Run("nil root is safe", func(t *testing.T) {
		assert.Empty(t, findFirstURLWithExtensions(nil, meshExtensions))
	})
}
