package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentValidator_Validate(t *testing.T) {
	v := NewDocumentValidator()

	t.Run("valid document", func(t *testing.T) {
		err := v.Validate(map[string]any{
			"channels": map[string]any{"email": true, "browser": false},
			"digestFrequency": "daily",
			"quietHours": map[string]any{
				"enabled": true,
				"start":   "22:00",
			},
		})
		assert.NoError(t, err)
	})

	t.Run("oversized string", func(t *testing.T) {
		err := v.Validate(map[string]any{
			"bio": strings.Repeat("x", 10001),
		})
		require.Error(t, err)

		var derrs DocumentErrors
		require.True(t, errors.As(err, &derrs))
		require.Len(t, derrs, 1)
		assert.Equal(t, "bio", derrs[0].Path)
	})

	t.Run("nesting too deep", func(t *testing.T) {
		doc := map[string]any{"v": "leaf"}
		for i := 0; i < 6; i++ {
			doc = map[string]any{"nested": doc}
		}
		err := v.Validate(doc)
		assert.Error(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		err := v.Validate(map[string]any{"": "value"})
		require.Error(t, err)

		var derrs DocumentErrors
		require.True(t, errors.As(err, &derrs))
		assert.Equal(t, "(root)", derrs[0].Path)
	})

	t.Run("errors accumulate with paths", func(t *testing.T) {
		err := v.Validate(map[string]any{
			"profile": map[string]any{
				"bio": strings.Repeat("x", 10001),
			},
			"tags": []any{strings.Repeat("y", 10001)},
		})
		require.Error(t, err)

		var derrs DocumentErrors
		require.True(t, errors.As(err, &derrs))
		require.Len(t, derrs, 2)

		paths := []string{derrs[0].Path, derrs[1].Path}
		assert.Contains(t, paths, "profile.bio")
		assert.Contains(t, paths, "tags[0]")
	})
}
