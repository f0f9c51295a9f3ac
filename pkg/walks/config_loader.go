package walks

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a walk Config from a YAML file. Unknown keys are rejected
// so typos in parameter names fail loudly instead of silently walking with
// defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read walk config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse walk config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadParameters reads and validates walk parameters from a YAML file.
func LoadParameters(path string) (*Parameters, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewParameters(cfg)
}
