package config

import (
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Diff renders a line diff between the last-good serialized configuration and
// the payload that failed to load, so rejected reloads point at what changed.
func Diff(previous, current []byte) string {
	return cmp.Diff(lines(previous), lines(current))
}

func lines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}
