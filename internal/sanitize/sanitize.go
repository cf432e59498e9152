// Package sanitize cleans model-generated code before it is persisted
// or embedded into a render harness. It is the single enforcement
// point keeping obviously unsafe submissions out of the pipeline.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// ForbiddenPatternError reports that cleaned code contains a
// denylisted substring.
type ForbiddenPatternError struct {
	Pattern string
}

func (e *ForbiddenPatternError) Error() string {
	return fmt.Sprintf("submission code contains forbidden pattern: %s", e.Pattern)
}

// Policy selects which denylist applies.
type Policy int

const (
	// DefaultPolicy blocks direct evaluation, dynamic function
	// construction, and DOM script injection.
	DefaultPolicy Policy = iota
	// StrictPolicy additionally blocks network-access APIs.
	StrictPolicy
)

var defaultDenylist = []string{
	"eval(",
	"Function(",
	"document.write",
	"document.createElement('script')",
}

var strictDenylist = append([]string{
	"fetch(",
	"XMLHttpRequest",
	"new WebSocket",
	"navigator.sendBeacon",
}, defaultDenylist...)

var (
	openingFence = regexp.MustCompile(`(?i)^` + "```" + `(?:javascript|js|typescript|ts)?[ \t]*\n?`)
	closingFence = regexp.MustCompile(`\n?` + "```" + `[ \t]*$`)
)

// Clean strips markdown code fences and rejects code matching the
// policy's denylist. Deterministic: same input, same output.
func Clean(code string, policy Policy) (string, error) {
	cleaned := strings.TrimSpace(code)
	cleaned = openingFence.ReplaceAllString(cleaned, "")
	cleaned = closingFence.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	for _, pattern := range denylist(policy) {
		if strings.Contains(cleaned, pattern) {
			return "", &ForbiddenPatternError{Pattern: pattern}
		}
	}
	return cleaned, nil
}

func denylist(policy Policy) []string {
	if policy == StrictPolicy {
		return strictDenylist
	}
	return defaultDenylist
}
