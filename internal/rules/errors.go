package rules

import "fmt"

// ConfigErrorKind classifies rule compilation failures.
type ConfigErrorKind int

const (
	InvalidRegex ConfigErrorKind = iota
	InvalidMapping
	InvalidActionList
)

func (k ConfigErrorKind) String() string {
	switch k {
	case InvalidRegex:
		return "invalid regex"
	case InvalidMapping:
		return "invalid mapping"
	case InvalidActionList:
		return "invalid action list"
	default:
		return "unknown"
	}
}

// ConfigError reports a rule that failed to compile. A reload that produces
// one must be rejected wholesale; the previous ruleset set stays active.
type ConfigError struct {
	Kind   ConfigErrorKind
	Device string
	Rule   string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("device %q rule %q: %s: %v", e.Device, e.Rule, e.Kind, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MappingErrorKind classifies per-pass mapping failures.
type MappingErrorKind int

const (
	DisplayNotFound MappingErrorKind = iota
	DegenerateTarget
)

func (k MappingErrorKind) String() string {
	switch k {
	case DisplayNotFound:
		return "display not found"
	case DegenerateTarget:
		return "degenerate target"
	default:
		return "unknown"
	}
}

// MappingError reports that a mapping directive could not be applied during a
// resolution pass. It is recovered locally: the pass keeps the previous
// mapping and still applies any resolved component actions.
type MappingError struct {
	Kind      MappingErrorKind
	Directive MappingDirective
	Detail    string
}

func (e *MappingError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("mapping %s: %s", e.Directive, e.Kind)
	}
	return fmt.Sprintf("mapping %s: %s: %s", e.Directive, e.Kind, e.Detail)
}
