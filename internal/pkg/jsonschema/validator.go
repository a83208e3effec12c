// internal/pkg/jsonschema/validator.go
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// DefaultSchema is assigned to categories created without a schema
const DefaultSchema = `{"$schema":"https://json-schema.org/draft/2020-12/schema","type":"object","properties":{},"required":[]}`

// FieldError describes the first schema violation found in a document
type FieldError struct {
	Path    string
	Message string
}

func (e *FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var cache sync.Map // raw schema text -> *jsonschema.Schema

// Compile parses and compiles a schema document, caching by content
func Compile(raw []byte) (*jsonschema.Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte(DefaultSchema)
	}
	key := string(raw)
	if cached, ok := cache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("category.json", strings.NewReader(key)); err != nil {
		return nil, fmt.Errorf("invalid schema document: %w", err)
	}

	schema, err := compiler.Compile("category.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	cache.Store(key, schema)
	return schema, nil
}

// Validate checks a document against a raw schema. The document is normalised
// through JSON so Go maps built in code validate the same way as decoded bodies.
func Validate(rawSchema []byte, document interface{}) error {
	schema, err := Compile(rawSchema)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	// numbers stay json.Number so integer keywords see exact values
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var instance interface{}
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := deepest(ve)
			return &FieldError{Path: strings.TrimPrefix(leaf.InstanceLocation, "/"), Message: leaf.Message}
		}
		return err
	}

	return nil
}

func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
