package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string `validate:"required,wirestatus"`
}

func TestWireStatusRule(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	for status, ok := range map[string]bool{
		"pendente":  true,
		"cursando":  true,
		"concluido": true,
		"Concluido": true,
		"aprovado":  false,
		"":          false,
	} {
		err := v.Struct(statusBody{Status: status})
		if ok {
			assert.NoError(t, err, status)
			continue
		}
		assert.Error(t, err, status)
	}
}

func TestWireStatusRuleReportsTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	err := v.Struct(statusBody{Status: "aprovado"})
	var fieldErrors validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrors)
	assert.Equal(t, TagWireStatus, fieldErrors[0].Tag())
}
