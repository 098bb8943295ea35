package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is the JSON schema every config document must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "definitions": {
    "url": {"type": "string", "pattern": "^https?://[^/]+"}
  },
  "properties": {
    "endpoints": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "TEXT_GENERATION": {"$ref": "#/definitions/url"},
        "LOADER": {"$ref": "#/definitions/url"},
        "SAVE_WORKSPACE": {"$ref": "#/definitions/url"},
        "BLOCK_ACTION": {"$ref": "#/definitions/url"}
      }
    },
    "store": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "strict": {"type": "boolean"},
        "workspace_id": {"type": "string", "minLength": 1}
      }
    },
    "storage": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"enum": ["", "memory", "sqlite", "postgres"]},
        "dsn": {"type": "string"}
      }
    },
    "blob": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"enum": ["", "filesystem", "s3"]},
        "directory": {"type": "string"},
        "bucket": {"type": "string"},
        "region": {"type": "string"},
        "endpoint": {"type": "string"}
      }
    },
    "event": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"enum": ["", "memory", "nats"]},
        "url": {"type": "string"}
      }
    },
    "generation": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "driver": {"enum": ["", "echo", "openai"]},
        "model": {"type": "string"},
        "endpoint": {"$ref": "#/definitions/url"},
        "temperature": {"type": "number", "minimum": 0, "maximum": 2},
        "prompt_template": {"type": "string"}
      }
    },
    "http": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "host": {"type": "string"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535}
      }
    },
    "log": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["", "debug", "info", "warn", "error"]}
      }
    },
    "tracing": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "service_name": {"type": "string"},
        "exporter": {"enum": ["", "stdout", "otlp"]},
        "endpoint": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString(constants.ConfigSchemaFile, Schema)

// Validate runs JSON-Schema validation of a raw config document.
func Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("config does not match schema: %s", strings.TrimSpace(err.Error()))
	}
	return nil
}
