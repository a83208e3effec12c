package jsonschema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notebookSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "pages": {"type": "integer", "minimum": 1},
    "ruling": {"type": "string", "enum": ["lined", "grid", "blank"]}
  },
  "required": ["pages"]
}`

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]byte(notebookSchema), map[string]interface{}{"pages": 100, "ruling": "grid"}))

	err := Validate([]byte(notebookSchema), map[string]interface{}{"pages": 0})
	require.Error(t, err)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "pages", fieldErr.Path)

	err = Validate([]byte(notebookSchema), map[string]interface{}{"ruling": "dotted"})
	require.Error(t, err)
}

func TestValidateDefaultSchemaAcceptsAnyObject(t *testing.T) {
	require.NoError(t, Validate(nil, map[string]interface{}{"colour": "blue"}))
	require.NoError(t, Validate([]byte(DefaultSchema), map[string]interface{}{}))
	assert.Error(t, Validate(nil, []int{1, 2}))
}

func TestCompileRejectsBrokenSchema(t *testing.T) {
	_, err := Compile([]byte(`{"type": 12}`))
	assert.Error(t, err)

	_, err = Compile([]byte(`{not json`))
	assert.Error(t, err)
}

func TestValidateNumbers(t *testing.T) {
	require.NoError(t, Validate([]byte(notebookSchema), map[string]interface{}{"pages": int64(9007199254740993)}))
	require.NoError(t, Validate([]byte(notebookSchema), map[string]interface{}{"pages": 80.0}))

	err := Validate([]byte(notebookSchema), map[string]interface{}{"pages": 2.5})
	require.Error(t, err)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "pages", fieldErr.Path)
}
