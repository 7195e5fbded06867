package plugin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	t.Parallel()

	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, SchemaID, schema["$id"])
	assert.ElementsMatch(t, []any{"name", "version"}, schema["required"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "dependencies")
	assert.NotEqual(t, false, schema["additionalProperties"])
}

func TestValidateSchema(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateSchema([]byte("name: a\nversion: 1.0.0\nextra: true\n"), FormatYAML))
	assert.NoError(t, ValidateSchema([]byte("name = \"a\"\nversion = \"1.0.0\"\n"), FormatTOML))

	err := ValidateSchema([]byte(`{"name": "", "version": "1.0.0"}`), FormatJSON)
	require.Error(t, err)
	assert.NotContains(t, FormatSchemaError(err), "schema validation failed:")
	assert.Empty(t, FormatSchemaError(nil))
}
