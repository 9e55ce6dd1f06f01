package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingError(t *testing.T) {
	tests := []struct {
		name     string
		err      *MappingError
		expected string
	}{
		{name: "should print the bare message", err: NewMappingError("bad value"), expected: "bad value"},
		{
			name:     "should prefix the mapping context in order",
			err:      NewMappingError("bad value").AddStep("dateFormat").AddItemIndex(2).AddField("lines[].date").AddMapping("mapping-1"),
			expected: "mapping 'mapping-1' -> field 'lines[].date' -> item 2 -> step 'dateFormat': bad value",
		},
		{
			name:     "should fold wrapped errors into the message",
			err:      NewMappingErrorf("cannot parse %q: %w", "x", errors.New("not a number")),
			expected: `cannot parse "x": not a number`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestWrapMappingError(t *testing.T) {
	t.Run("should return nil for nil", func(t *testing.T) {
		assert.Nil(t, WrapMappingError(nil))
	})

	t.Run("should keep an existing mapping error", func(t *testing.T) {
		original := NewMappingError("bad").AddMapping("m1")
		assert.Same(t, original, WrapMappingError(original))
	})

	t.Run("should wrap other errors", func(t *testing.T) {
		wrapped := WrapMappingError(errors.New("boom")).AddItemIndex(0)
		index, ok := wrapped.ItemIndex()
		require.True(t, ok)
		assert.Zero(t, index)
		assert.True(t, IsMappingError(wrapped))
	})
}

func TestToHTTPError(t *testing.T) {
	t.Run("should render mapping errors as bad requests", func(t *testing.T) {
		err := NewMappingError("bad").AddMapping("m1").AddItemIndex(3).ToHTTPError()
		assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
		assert.Equal(t, "m1", err.Meta["mapping_id"])
		assert.Equal(t, 3, err.Meta["item_index"])
	})

	t.Run("should render unresolved refs as unprocessable", func(t *testing.T) {
		schemaErr := NewUnresolvedRefError("Customer", "#/$defs/Address")
		assert.True(t, IsSchemaError(schemaErr))
		assert.Equal(t, "schema 'Customer': could not resolve reference '#/$defs/Address'", schemaErr.Error())

		err := schemaErr.ToHTTPError()
		assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
		assert.Equal(t, "#/$defs/Address", err.Meta["ref"])
	})
}
