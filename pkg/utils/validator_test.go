package utils

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stateCodeForm struct {
	Name string `json:"name" validate:"required,state_name"`
	Code int    `json:"code" validate:"gte=0,lte=100"`
}

type variableForm struct {
	Key string `json:"variable_key" validate:"required,variable_key"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, RegisterValidators(v))
	return v
}

func TestStateNameRule(t *testing.T) {
	v := newValidator(t)
	for _, name := range []string{"init", "packer-running", "publish_ami", "v2.done"} {
		assert.NoError(t, v.Struct(stateCodeForm{Name: name}), name)
	}
	for _, name := range []string{"Packer", "-init", "packer running", "状态"} {
		err := v.Struct(stateCodeForm{Name: name})
		require.Error(t, err, name)
		assert.Contains(t, FormatValidationError(err), "field 'name' must be a lowercase state name")
	}
}

func TestVariableKeyRule(t *testing.T) {
	v := newValidator(t)
	for _, key := range []string{"vm_id", "_internal", "AMI.ID", "disk-gb"} {
		assert.NoError(t, v.Struct(variableForm{Key: key}), key)
	}
	for _, key := range []string{"1st", "has space", "a$b"} {
		assert.Error(t, v.Struct(variableForm{Key: key}), key)
	}
}

func TestFormatValidationError(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(stateCodeForm{Code: 120})
	assert.Equal(t, "field 'name' is required; field 'code' must be less than or equal to 100", FormatValidationError(err))

	var target struct {
		Code int `json:"code"`
	}
	err = json.Unmarshal([]byte(`{"code":"ten"}`), &target)
	assert.Equal(t, "field 'code' should be int", FormatValidationError(err))

	err = json.Unmarshal([]byte(`{"code":`), &target)
	assert.Equal(t, "invalid JSON format", FormatValidationError(err))

	assert.Equal(t, "", FormatValidationError(nil))
	assert.Equal(t, "boom", FormatValidationError(errors.New("boom")))
}
