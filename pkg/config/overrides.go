package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/utils"
)

// LoadOverrides reads an assumption override file. The format follows the
// extension: .hjson, .json (repaired if malformed), .yaml or .yml.
func LoadOverrides(path string) (assumption.Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return assumption.Overrides{}, fmt.Errorf("read overrides %s: %w", path, err)
	}
	o, err := ParseOverrides(filepath.Ext(path), data)
	if err != nil {
		return assumption.Overrides{}, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	return o, nil
}

// ParseOverrides decodes override data in the format named by ext.
func ParseOverrides(ext string, data []byte) (assumption.Overrides, error) {
	var o assumption.Overrides
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "hjson":
		js, err := utils.ParseHJSON(string(data))
		if err != nil {
			return o, err
		}
		if err := json.Unmarshal([]byte(js), &o); err != nil {
			return o, err
		}
	case "json", "":
		if _, err := utils.SmartParse(string(data), &o); err != nil {
			return o, err
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &o); err != nil {
			return o, err
		}
	default:
		return o, fmt.Errorf("unsupported override format %q", ext)
	}
	return o, nil
}
