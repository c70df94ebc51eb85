package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "imectx-config.schema.json"

// configSchemaJSON describes the document shape accepted in any of the
// supported file formats.
const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "logging", "probe", "candidate"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "logging": {
      "type": "object",
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "error"]},
        "format": {"enum": ["text", "json"]},
        "output": {"enum": ["stdout", "stderr"]},
        "log_text": {"type": "boolean"}
      }
    },
    "probe": {
      "type": "object",
      "properties": {
        "poll_interval_ms": {"type": "integer", "minimum": 10, "maximum": 60000},
        "output": {"enum": ["text", "json"]},
        "candidates": {"type": "boolean"},
        "window": {"type": "string", "pattern": "^(|(?i:foreground)|0[xX][0-9a-fA-F]+|[0-9]+)$"},
        "metrics_addr": {"type": "string"}
      }
    },
    "candidate": {
      "type": "object",
      "properties": {
        "offset_x": {"type": "number"},
        "offset_y": {"type": "number"},
        "scale_factor": {"type": "number", "exclusiveMinimum": 0}
      }
    }
  }
}`

var configSchema = jsonschema.MustCompileString(schemaURL, configSchemaJSON)

// validateSchema checks c against the configuration schema.
func validateSchema(c *Config) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return configSchema.Validate(doc)
}

// ValidateDocument validates raw JSON against the configuration schema
// without decoding it into a Config.
func ValidateDocument(data []byte) error {
	doc, err := decodeDocument(data)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return configSchema.Validate(doc)
}

// decodeDocument decodes JSON keeping numbers as json.Number so integer
// constraints are checked exactly.
func decodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
