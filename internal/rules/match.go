package rules

import (
	"github.com/merklejerk/wacom-profile-daemon/internal/state"
)

// Matches reports whether every matcher present on the rule succeeds against
// the snapshot. Matchers combine with logical AND; a rule with no matchers
// always matches. A rule that has matchers can never match when no window is
// focused. Pure function of its inputs.
func (r Rule) Matches(snap state.WindowSnapshot) bool {
	if r.Specificity > 0 && !snap.Focused() {
		return false
	}
	if r.Title != nil && !r.Title.MatchString(snap.Title) {
		return false
	}
	if r.Class != nil && !containsClass(snap.Classes, *r.Class) {
		return false
	}
	if r.ID != nil && snap.ID != *r.ID {
		return false
	}
	return true
}

// containsClass tests the literal against each class string the window
// reports (WM_CLASS carries both instance and class names). No partial
// matches.
func containsClass(classes []string, want string) bool {
	for _, c := range classes {
		if c == want {
			return true
		}
	}
	return false
}
