// Package submission maps spreadsheet rows onto registry submission
// records using a YAML field-mapping configuration.
package submission

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNotFound indicates the mapping config file is missing.
	ErrConfigNotFound = errors.New("mapping config not found")
	// ErrColumnMissing indicates a configured source column is absent
	// from the sheet header.
	ErrColumnMissing = errors.New("configured column missing from sheet")
	// ErrEmptyMapping indicates the config declares no mapping rules.
	ErrEmptyMapping = errors.New("mapping config has no mapping rules")
)

// Rule is a single mapping rule: either a source column name or a
// constant value. In YAML a rule is written as a plain string (column
// name) or as {const: value}.
type Rule struct {
	Column  string
	Const   string
	IsConst bool
}

// UnmarshalYAML accepts either a scalar column name or a {const: ...}
// mapping.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.Column)
	case yaml.MappingNode:
		var m struct {
			Const string `yaml:"const"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		r.Const = m.Const
		r.IsConst = true
		return nil
	default:
		return fmt.Errorf("mapping rule must be a column name or {const: value} (line %d)", node.Line)
	}
}

// Config is the field-mapping configuration for one generation run.
type Config struct {
	// Mapping binds target JSON dot-paths (e.g. "type.artifact") to
	// source columns or constants.
	Mapping map[string]Rule `yaml:"mapping"`

	// PassthroughColumns are copied verbatim into each record's
	// x-extra object under slugified keys.
	PassthroughColumns []string `yaml:"passthrough_columns"`

	// RequiredFields are sheet columns that must be non-empty for a
	// row to produce a record; rows failing this are skipped.
	RequiredFields []string `yaml:"required_fields"`

	// ArrayName, when set, wraps the output array in an object under
	// this key (e.g. {"services": [...]}).
	ArrayName string `yaml:"array_name"`
}

// LoadConfig reads and validates a mapping config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: config path comes from flags
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("reading mapping config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing mapping config: %w", err)
	}
	if len(cfg.Mapping) == 0 {
		return Config{}, ErrEmptyMapping
	}
	return cfg, nil
}

// SourceColumns returns every sheet column the config references:
// mapped columns, passthrough columns, and required fields.
func (c Config) SourceColumns() []string {
	var cols []string
	for _, rule := range c.Mapping {
		if !rule.IsConst {
			cols = append(cols, rule.Column)
		}
	}
	cols = append(cols, c.PassthroughColumns...)
	cols = append(cols, c.RequiredFields...)
	return cols
}
