package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	type request struct {
		Name    string `validate:"required"`
		Version int    `validate:"min=1"`
	}

	tests := []struct {
		name    string
		input   request
		message string
	}{
		{name: "should accept a valid struct", input: request{Name: "customers", Version: 1}},
		{name: "should name the failing field and rule", input: request{Version: 1}, message: "field 'Name': rule 'required'"},
		{name: "should include the rule parameter", input: request{Name: "customers"}, message: "rule 'min' expected '1'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.input)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.message)
		})
	}
}
