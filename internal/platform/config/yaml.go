package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeYAML strictly decodes a single YAML document into target.
// Unknown keys are rejected.
func DecodeYAML(data []byte, target any) error {
	if target == nil {
		return errors.New("yaml target is required")
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("yaml document is empty")
		}
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// LoadYAMLFile reads path and decodes it with DecodeYAML.
func LoadYAMLFile(path string, target any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("yaml path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := DecodeYAML(data, target); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
