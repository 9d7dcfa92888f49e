package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator_UsesTagNames(t *testing.T) {
	SetupValidator()

	type request struct {
		EntityType string `json:"entity_type,omitempty" binding:"required"`
		Year       int    `form:"year" binding:"required,min=2000"`
		Internal   string `json:"-" binding:"required"`
	}

	err := binding.Validator.ValidateStruct(&request{})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	assert.Contains(t, fields, "entity_type")
	assert.Contains(t, fields, "year")
	assert.NotContains(t, fields, "EntityType")
	assert.NotContains(t, fields, "Year")
}
