package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a problem from a .yaml/.yml or .json file and validates it.
func Load(filename string) (*ProblemSpec, error) {
	cfg, err := LoadConfig(filename)
	if err != nil {
		return nil, err
	}
	return NewProblemSpec(cfg)
}

func LoadConfig(filename string) (*ProblemConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return DecodeJSON(data)
	case ".yaml", ".yml", "":
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("unsupported problem file extension %q", filepath.Ext(filename))
	}
}

func DecodeYAML(data []byte) (*ProblemConfig, error) {
	cfg := NewProblemConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode problem yaml: %w", err)
	}
	return cfg, nil
}

func DecodeJSON(data []byte) (*ProblemConfig, error) {
	cfg := NewProblemConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode problem json: %w", err)
	}
	return cfg, nil
}
