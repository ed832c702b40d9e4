package validation

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "radius"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "radius": {"type": "number", "exclusiveMinimum": 0}
  }
}`

func newTestValidator() SchemaValidator {
	return NewSchemaValidator(fstest.MapFS{
		"point.schema.json":  {Data: []byte(pointSchema)},
		"broken.schema.json": {Data: []byte(`{"type": `)},
	})
}

func TestValidateBytes(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "valid", data: `{"id": "mill", "radius": 25}`},
		{name: "missing field", data: `{"id": "mill"}`, wantErr: "required"},
		{name: "wrong type", data: `{"id": 7, "radius": 25}`, wantErr: "/id"},
		{name: "below minimum", data: `{"id": "mill", "radius": 0}`, wantErr: "exclusiveMinimum"},
		{name: "malformed json", data: `{"id":`, wantErr: "failed to parse JSON data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateBytes([]byte(tt.data), "point.schema.json")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBytes_SchemaProblems(t *testing.T) {
	v := newTestValidator()

	err := v.ValidateBytes([]byte(`{}`), "missing.schema.json")
	assert.ErrorContains(t, err, "failed to read schema file")

	err = v.ValidateBytes([]byte(`{}`), "broken.schema.json")
	assert.ErrorContains(t, err, "failed to parse schema JSON")
}

func TestValidateBytes_CachesCompiledSchema(t *testing.T) {
	v := newTestValidator().(*validator)

	require.NoError(t, v.ValidateBytes([]byte(`{"id": "a", "radius": 1}`), "point.schema.json"))
	require.NoError(t, v.ValidateBytes([]byte(`{"id": "b", "radius": 2}`), "point.schema.json"))
	assert.Len(t, v.schemas, 1)
}
