package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiled is a JSON schema ready for repeated validation. Safe for concurrent use.
type Compiled struct {
	id     string
	schema *jsonschema.Schema
}

// Violation describes the innermost failing location of a validation error.
type Violation struct {
	// Path is the instance location split into unescaped JSON pointer tokens.
	Path    []string
	Message string
}

// Compile parses a JSON schema document once so it can be reused per request.
func Compile(id string, schema []byte) (*Compiled, error) {
	if len(schema) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	resourceID := schemaID(id)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceID, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Compiled{id: resourceID, schema: compiled}, nil
}

// MustCompile is Compile for schemas embedded at build time.
func MustCompile(id string, schema []byte) *Compiled {
	c, err := Compile(id, schema)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks a decoded value (or raw JSON bytes) against the schema.
func (c *Compiled) Validate(value any) error {
	if c == nil || c.schema == nil {
		return fmt.Errorf("schema not compiled")
	}
	payload, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("normalize payload: %w", err)
	}
	if err := c.schema.Validate(payload); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateSchema validates a value against a JSON schema payload.
func ValidateSchema(id string, schema []byte, value any) error {
	compiled, err := Compile(id, schema)
	if err != nil {
		return err
	}
	return compiled.Validate(value)
}

// LeafViolation extracts the deepest cause of a schema validation error.
func LeafViolation(err error) (Violation, bool) {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return Violation{}, false
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return Violation{Path: splitPointer(leaf.InstanceLocation), Message: leaf.Message}, true
}

func splitPointer(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return decodeJSON(v)
	case []byte:
		return decodeJSON(v)
	default:
		return value, nil
	}
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

func schemaID(id string) string {
	if id == "" {
		id = "schema"
	}
	return "inmemory://" + id
}
