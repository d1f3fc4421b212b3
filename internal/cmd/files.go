package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/configpaths"
)

// featureFormat picks the interchange format from a file extension.
func featureFormat(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	}
	return fallback
}

func readFeature(path string) (*feature.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature: %w", err)
	}
	def := &feature.Definition{}
	switch featureFormat(path, "json") {
	case "yaml":
		err = yaml.Unmarshal(data, def)
	default:
		err = json.Unmarshal(data, def)
	}
	if err != nil {
		return nil, fmt.Errorf("parse feature %s: %w", path, err)
	}
	if err := def.Check(); err != nil {
		return nil, fmt.Errorf("feature %s: %w", path, err)
	}
	return def, nil
}

func encodeFeature(def *feature.Definition, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(def)
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeFeature writes def to path, or to stdout when path is empty.
func writeFeature(def *feature.Definition, path, format string, stdout io.Writer) error {
	data, err := encodeFeature(def, featureFormat(path, format))
	if err != nil {
		return fmt.Errorf("encode feature: %w", err)
	}
	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := configpaths.EnsureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
