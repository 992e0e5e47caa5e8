// Package catalog loads planning problems, component repositories, cost
// models and controller configuration from YAML documents.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

func decode(r io.Reader, into interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func decodeFile(path string, into interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := decode(bytes.NewReader(data), into); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
