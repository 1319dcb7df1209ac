package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	PostRef  string `validate:"required"`
	Quantity int64  `validate:"min=1,max=1000"`
	Handle   string `validate:"max=3"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()
	err := v.Struct(sample{Quantity: 0, Handle: "toolong"})

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "post_ref is required")
	assert.Contains(t, msg, "quantity must be at least 1")
	assert.Contains(t, msg, "handle must be at most 3 characters")
}

func TestFormatNonValidationError(t *testing.T) {
	assert.Equal(t, "malformed request body", FormatValidationError(errors.New("EOF")))
}
