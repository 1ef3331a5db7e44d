package logging

import (
	"regexp"
)

// Sanitizer redacts credentials from log output. Everything this tool logs
// can carry an OpenShift bearer token (command lines, HTTP headers, raw
// kubeconfig fragments), so redaction sits in the log path itself rather
// than at call sites.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// OpenShift OAuth tokens (oc whoami --show-token)
		`sha256~[A-Za-z0-9_-]{20,}`,
		// Authorization headers / generic bearer tokens
		`(?i)bearer\s+[a-zA-Z0-9._~-]{20,}`,
		// Kubeconfig token fields
		`(?i)token["'\s:=]+[a-zA-Z0-9._~-]{20,}`,
		// AWS-style object store credentials
		`AKIA[0-9A-Z]{16}`,
		`(?i)(secret[_-]?(access[_-]?)?key)["'\s:=]+[A-Za-z0-9/+=]{20,}`,
		// Generic secrets and passwords
		`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)password["'\s:=]+[^\s"']{8,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts credentials from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
