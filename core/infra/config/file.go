package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/d2oracle/oracle/core/infra/schema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/oracle.schema.json
var configSchemaJSON []byte

var configSchema = schema.MustCompile("oracle-config", configSchemaJSON)

func (c *Config) mergeFile(path string) error {
	// #nosec G304 -- config path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return c.mergeYAML(data)
}

// mergeYAML overlays a YAML document; keys it omits keep their current value.
func (c *Config) mergeYAML(data []byte) error {
	var payload any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if payload == nil {
		return nil
	}
	if err := configSchema.Validate(payload); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
