package rules

import (
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

// Resolved is the merged outcome of one resolution pass for one device
// prefix. Action lists concatenate across matched rules in specificity order;
// the mapping directive is the most specific matched rule's (last writer
// wins). Matched records the contributing rule names for diagnostics.
type Resolved struct {
	Mapping MappingDirective
	// MappingRule names the rule the mapping directive came from.
	MappingRule string
	Pad         []string
	Stylus      []string
	Eraser      []string
	Matched     []string
}

// Empty reports whether the pass produced nothing to apply. Resolving a
// snapshot no rule matches is a legal no-op, not an error.
func (r Resolved) Empty() bool {
	return r.Mapping.IsZero() && len(r.Pad) == 0 && len(r.Stylus) == 0 && len(r.Eraser) == 0
}

// ActionsFor returns the resolved action list for one device component.
func (r Resolved) ActionsFor(t state.DeviceType) []string {
	switch t {
	case state.DevicePad:
		return r.Pad
	case state.DeviceStylus:
		return r.Stylus
	case state.DeviceEraser:
		return r.Eraser
	default:
		return nil
	}
}

// Resolve evaluates the ruleset against a window snapshot. The ruleset is
// already ordered least to most specific, so a later matched rule's actions
// append after an earlier one's and its mapping directive overrides.
func (rs Ruleset) Resolve(snap state.WindowSnapshot) Resolved {
	var out Resolved
	for _, rule := range rs.Rules {
		if !rule.Matches(snap) {
			continue
		}
		if !rule.Mapping.IsZero() {
			out.Mapping = rule.Mapping
			out.MappingRule = rule.Name
		}
		out.Pad = append(out.Pad, rule.Pad...)
		out.Stylus = append(out.Stylus, rule.Stylus...)
		out.Eraser = append(out.Eraser, rule.Eraser...)
		out.Matched = append(out.Matched, rule.Name)
	}
	return out
}
