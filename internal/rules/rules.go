package rules

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/merklejerk/wacom-profile-daemon/internal/config"
)

// Rule is a compiled rule ready for evaluation. Specificity is the number of
// matchers present (0 to 3); a matcher-less rule is the device default.
type Rule struct {
	Name        string
	Title       *regexp.Regexp
	Class       *string
	ID          *string
	Specificity int

	Mapping MappingDirective
	Pad     []string
	Stylus  []string
	Eraser  []string
}

// Ruleset holds the compiled rules for one device prefix, ordered least to
// most specific. Rules of equal specificity keep their declaration order.
type Ruleset struct {
	Prefix string
	Rules  []Rule
}

// Compile turns the raw configuration into specificity-ordered rulesets, one
// per device prefix, in declaration order. It has no side effects; on the
// first faulty rule it returns a ConfigError and no rulesets.
func Compile(cfg *config.Config) ([]Ruleset, error) {
	rulesets := make([]Ruleset, 0, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		rs := Ruleset{Prefix: dev.Prefix, Rules: make([]Rule, 0, len(dev.Rules))}
		for _, spec := range dev.Rules {
			rule, err := compileRule(dev.Prefix, spec)
			if err != nil {
				return nil, err
			}
			rs.Rules = append(rs.Rules, rule)
		}
		rankRules(rs.Rules)
		rulesets = append(rulesets, rs)
	}
	return rulesets, nil
}

func compileRule(device string, spec config.RuleSpec) (Rule, error) {
	rule := Rule{Name: spec.Name}
	if spec.Title != nil {
		re, err := regexp.Compile(*spec.Title)
		if err != nil {
			return rule, &ConfigError{Kind: InvalidRegex, Device: device, Rule: spec.Name, Err: err}
		}
		rule.Title = re
		rule.Specificity++
	}
	if spec.Class != nil {
		rule.Class = spec.Class
		rule.Specificity++
	}
	if spec.ID != nil {
		rule.ID = spec.ID
		rule.Specificity++
	}
	if spec.HasMapping {
		directive, err := compileMappingValue(spec.Mapping)
		if err != nil {
			return rule, &ConfigError{Kind: InvalidMapping, Device: device, Rule: spec.Name, Err: err}
		}
		rule.Mapping = directive
	}
	components := []struct {
		key string
		raw any
		dst *[]string
	}{
		{"pad", spec.Pad, &rule.Pad},
		{"stylus", spec.Stylus, &rule.Stylus},
		{"eraser", spec.Eraser, &rule.Eraser},
	}
	for _, c := range components {
		actions, err := compileActions(c.raw)
		if err != nil {
			return rule, &ConfigError{
				Kind:   InvalidActionList,
				Device: device,
				Rule:   spec.Name,
				Err:    fmt.Errorf("%s: %w", c.key, err),
			}
		}
		*c.dst = actions
	}
	return rule, nil
}

func compileActions(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	seq, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("must be a sequence of strings, got %T", raw)
	}
	actions := make([]string, 0, len(seq))
	for _, item := range seq {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("must be a sequence of strings, got %T element", item)
		}
		actions = append(actions, s)
	}
	return actions, nil
}

// rankRules sorts rules ascending by specificity. The stable sort keeps
// declaration order for rules with equal matcher counts, so equal-specificity
// ties resolve to the later declaration during resolution.
func rankRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Specificity < rules[j].Specificity
	})
}
