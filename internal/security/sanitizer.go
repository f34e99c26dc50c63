package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxAuditInputLength bounds what is kept of a raw submission in the audit log.
const MaxAuditInputLength = 64

var htmlPolicy = bluemonday.StrictPolicy()

// SanitizeString removes potentially dangerous characters
func SanitizeString(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return truncate(input, 1000)
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeAuditInput prepares a raw play submission for storage in the audit log.
func SanitizeAuditInput(input string) string {
	return truncate(SanitizeHTML(SanitizeString(input)), MaxAuditInputLength)
}

func truncate(input string, max int) string {
	if len(input) <= max {
		return input
	}
	input = input[:max]
	for !utf8.ValidString(input) {
		input = input[:len(input)-1]
	}
	return input
}

// CodeValidator decides whether a submitted identifier is a playable code:
// it must match the configured format and be one of the configured codes.
type CodeValidator struct {
	pattern *regexp.Regexp
	allowed map[string]struct{}
}

func NewCodeValidator(pattern string, codes []string) (*CodeValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile code pattern: %w", err)
	}

	allowed := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if !re.MatchString(code) {
			return nil, fmt.Errorf("code %q does not match pattern %q", code, pattern)
		}
		allowed[code] = struct{}{}
	}
	return &CodeValidator{pattern: re, allowed: allowed}, nil
}

// WellFormed checks the format only.
func (v *CodeValidator) WellFormed(code string) bool {
	return v.pattern.MatchString(code)
}

// Valid checks format and membership.
func (v *CodeValidator) Valid(code string) bool {
	if !v.WellFormed(code) {
		return false
	}
	_, ok := v.allowed[code]
	return ok
}

// Codes returns the configured codes.
func (v *CodeValidator) Codes() []string {
	out := make([]string, 0, len(v.allowed))
	for code := range v.allowed {
		out = append(out, code)
	}
	return out
}
