package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the raw configuration document: an ordered list of device
// prefixes, each carrying its rules in declaration order. The documented
// on-disk format is JSON (device-prefix → rule-name → rule body); parsing
// goes through yaml.v3 so declaration order survives, which Go maps would
// destroy. JSON is a YAML subset, so the same loader accepts both.
type Config struct {
	Devices []DeviceRules
}

// DeviceRules groups the rules declared under one device prefix.
type DeviceRules struct {
	Prefix string
	Rules  []RuleSpec
}

// RuleSpec is one rule body, shape-checked but otherwise uncompiled. The
// mapping scalar and the action lists stay raw; the rule compiler owns their
// validation so type errors surface as compile errors, not parse errors.
type RuleSpec struct {
	Name  string
	Title *string
	Class *string
	ID    *string

	Mapping    any
	HasMapping bool

	Pad    any
	Stylus any
	Eraser any
}

// UnmarshalYAML decodes the top-level document, preserving the declaration
// order of device prefixes and of rules within each prefix.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("configuration must be a mapping of device prefixes")
	}
	seen := map[string]struct{}{}
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("device prefix must be a string")
		}
		prefix := keyNode.Value
		if prefix == "" {
			return fmt.Errorf("device prefix cannot be empty")
		}
		if _, exists := seen[prefix]; exists {
			return fmt.Errorf("duplicate device prefix %q", prefix)
		}
		seen[prefix] = struct{}{}
		rules, err := decodeRules(valNode)
		if err != nil {
			return fmt.Errorf("device %q: %w", prefix, err)
		}
		c.Devices = append(c.Devices, DeviceRules{Prefix: prefix, Rules: rules})
	}
	return nil
}

func decodeRules(node *yaml.Node) ([]RuleSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("rules must be a mapping of rule names")
	}
	rules := make([]RuleSpec, 0, len(node.Content)/2)
	seen := map[string]struct{}{}
	for i := 0; i < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("rule name must be a string")
		}
		name := keyNode.Value
		if name == "" {
			return nil, fmt.Errorf("rule name cannot be empty")
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("duplicate rule %q", name)
		}
		seen[name] = struct{}{}
		rule, err := decodeRule(name, valNode)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodeRule(name string, node *yaml.Node) (RuleSpec, error) {
	rule := RuleSpec{Name: name}
	if node.Kind != yaml.MappingNode {
		return rule, fmt.Errorf("rule %q: body must be a mapping", name)
	}
	for i := 0; i < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return rule, fmt.Errorf("rule %q: keys must be strings", name)
		}
		switch key := keyNode.Value; key {
		case "window-title":
			if err := decodeMatcher(valNode, &rule.Title); err != nil {
				return rule, fmt.Errorf("rule %q: %s: %w", name, key, err)
			}
		case "window-class":
			if err := decodeMatcher(valNode, &rule.Class); err != nil {
				return rule, fmt.Errorf("rule %q: %s: %w", name, key, err)
			}
		case "window-id":
			if err := decodeMatcher(valNode, &rule.ID); err != nil {
				return rule, fmt.Errorf("rule %q: %s: %w", name, key, err)
			}
		case "mapping":
			var raw any
			if err := valNode.Decode(&raw); err != nil {
				return rule, fmt.Errorf("rule %q: mapping: %w", name, err)
			}
			rule.Mapping = raw
			rule.HasMapping = true
		case "pad":
			if err := valNode.Decode(&rule.Pad); err != nil {
				return rule, fmt.Errorf("rule %q: pad: %w", name, err)
			}
		case "stylus":
			if err := valNode.Decode(&rule.Stylus); err != nil {
				return rule, fmt.Errorf("rule %q: stylus: %w", name, err)
			}
		case "eraser":
			if err := valNode.Decode(&rule.Eraser); err != nil {
				return rule, fmt.Errorf("rule %q: eraser: %w", name, err)
			}
		default:
			return rule, fmt.Errorf("rule %q: unknown key %q", name, key)
		}
	}
	return rule, nil
}

func decodeMatcher(node *yaml.Node, dst **string) error {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return fmt.Errorf("must be a string")
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*dst = &s
	return nil
}

// Parse decodes a raw configuration payload.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Load reads and decodes a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}
