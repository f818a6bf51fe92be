package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchema reflects the configuration into a JSON Schema document.
func JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
	}

	s := r.Reflect(&Config{})
	s.Title = "ChainIngestor configuration"
	return s
}

// JSONSchemaIndent returns the schema as indented JSON.
func JSONSchemaIndent() ([]byte, error) {
	return json.MarshalIndent(JSONSchema(), "", "  ")
}
