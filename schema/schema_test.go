package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		"brand": Keyword{IgnoreAbove: 256},
		"price": Float{},
		"stock": Optional(Integer{}),
	}
}

func TestSchemaProperties(t *testing.T) {
	properties := testSchema().Properties()

	assert.Equal(t, map[string]any{"type": "keyword", "ignore_above": 256}, properties["brand"])
	assert.Equal(t, map[string]any{"type": "float"}, properties["price"])
	assert.Equal(t, map[string]any{"type": "integer"}, properties["stock"])
}

func TestSchemaValidate(t *testing.T) {
	s := testSchema()

	t.Run("normalizes values", func(t *testing.T) {
		body := map[string]any{"brand": "gucci", "price": "19.99", "stock": float64(3)}
		normalized, err := s.Validate(body)
		require.NoError(t, err)
		assert.Equal(t, "gucci", normalized["brand"])
		assert.Equal(t, 19.99, normalized["price"])
		assert.Equal(t, int64(3), normalized["stock"])

		// The input body is left untouched.
		assert.Equal(t, "19.99", body["price"])
	})

	t.Run("rejects undeclared fields", func(t *testing.T) {
		_, err := s.Validate(map[string]any{"brand": "gucci", "price": 1.0, "size": "xl"})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "size", validationErr.Field)
	})

	t.Run("rejects missing required field", func(t *testing.T) {
		_, err := s.Validate(map[string]any{"brand": "gucci"})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "price", validationErr.Field)
	})

	t.Run("rejects null required field", func(t *testing.T) {
		_, err := s.Validate(map[string]any{"brand": "gucci", "price": nil})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "price", validationErr.Field)
	})

	t.Run("optional field may be absent", func(t *testing.T) {
		normalized, err := s.Validate(map[string]any{"brand": "gucci", "price": 1.0})
		require.NoError(t, err)
		assert.NotContains(t, normalized, "stock")
	})

	t.Run("present optional field is validated", func(t *testing.T) {
		_, err := s.Validate(map[string]any{"brand": "gucci", "price": 1.0, "stock": "many"})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "stock", validationErr.Field)
	})

	t.Run("reports field validator reason", func(t *testing.T) {
		_, err := s.Validate(map[string]any{"brand": "", "price": 1.0})
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "brand", validationErr.Field)
		assert.Contains(t, validationErr.Error(), "must not be empty")
	})
}
